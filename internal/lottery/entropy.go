package lottery

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// EntropySource derives pseudo-random values for a round's draw. It is an
// injectable seam: the block-hash implementation below can be replaced by a
// VRF or committed-randomness scheme without touching lifecycle logic.
//
// The same (round, seed) pair always yields the same output, so a draw must
// not reuse seeds or its numbers collide.
type EntropySource interface {
	Random(ctx context.Context, endRoundBlock uint64, seed uint64) (uint64, error)
	// ReferenceBlockHash identifies the entropy input for a round, recorded
	// on the winning ticket for auditability.
	ReferenceBlockHash(ctx context.Context, endRoundBlock uint64) (string, error)
}

// BlockSource is the chain surface the block entropy needs. *chain.Client
// satisfies it.
type BlockSource interface {
	GetBlockCount(ctx context.Context) (uint64, error)
	GetBlockHash(ctx context.Context, index uint64) (string, error)
}

// BlockEntropy derives randomness from the hash of the block at
// endRoundBlock + kParam, mixed with a caller-supplied seed.
//
// Known weakness, inherited deliberately: once the reference block is mined
// its hash is public, so anyone can compute the draw outcome before
// DrawNumbers executes. Swap the EntropySource for a VRF to harden.
type BlockEntropy struct {
	source BlockSource
	kParam uint64
}

// NewBlockEntropy creates a block-hash entropy source. kParam offsets the
// reference block past the round end; zero uses the round-end block itself.
func NewBlockEntropy(source BlockSource, kParam uint64) *BlockEntropy {
	return &BlockEntropy{source: source, kParam: kParam}
}

// Random returns a pseudo-random value for the round that ends at
// endRoundBlock. It fails with ErrNotReady until the reference block is
// final and visible on the chain.
func (e *BlockEntropy) Random(ctx context.Context, endRoundBlock uint64, seed uint64) (uint64, error) {
	count, err := e.source.GetBlockCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("get block count: %w", err)
	}
	if count == 0 {
		return 0, fmt.Errorf("node reports zero block count")
	}
	height := count - 1

	ref := endRoundBlock + e.kParam
	if height < ref {
		return 0, fmt.Errorf("%w: reference block %d, current height %d", ErrNotReady, ref, height)
	}

	hash, err := e.source.GetBlockHash(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("get block hash %d: %w", ref, err)
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(hash, "0x"))
	if err != nil {
		return 0, fmt.Errorf("decode block hash %q: %w", hash, err)
	}

	var seedBytes [8]byte
	binary.BigEndian.PutUint64(seedBytes[:], seed)

	h := sha256.New()
	h.Write(raw)
	h.Write(seedBytes[:])
	sum := h.Sum(nil)

	return binary.BigEndian.Uint64(sum[:8]), nil
}

// ReferenceBlock returns the block index whose hash seeds the draw for a
// round ending at endRoundBlock.
func (e *BlockEntropy) ReferenceBlock(endRoundBlock uint64) uint64 {
	return endRoundBlock + e.kParam
}

// ReferenceBlockHash implements EntropySource.
func (e *BlockEntropy) ReferenceBlockHash(ctx context.Context, endRoundBlock uint64) (string, error) {
	return e.source.GetBlockHash(ctx, e.ReferenceBlock(endRoundBlock))
}
