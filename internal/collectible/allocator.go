package collectible

import (
	"context"
	"fmt"
	"time"

	"github.com/R3E-Network/nft_lottery/pkg/logger"
)

// Allocator selects or mints a prize collectible per tier. Pool selection is
// deliberately deterministic, keyed off the global mint counter
// (mintCounter mod poolSize); it is not uniformly random and the formula is
// preserved for behavioral compatibility with the deployed contract.
type Allocator struct {
	ledger   Ledger
	pool     PoolStore
	contract string // the lottery contract's own address
	log      *logger.Logger
}

// NewAllocator creates an allocator bound to the lottery's own address,
// which is the identity whose transfer rights are checked before a pooled
// collectible is handed out.
func NewAllocator(ledger Ledger, pool PoolStore, contract string, log *logger.Logger) *Allocator {
	if log == nil {
		log = logger.NewDefault("allocator")
	}
	return &Allocator{ledger: ledger, pool: pool, contract: contract, log: log}
}

// Ledger exposes the underlying collectible ledger for read paths.
func (a *Allocator) Ledger() Ledger { return a.ledger }

// ImageRef derives the deterministic image reference for a collectible id.
func ImageRef(id uint64) string {
	return fmt.Sprintf("ipfs://nft-lottery/collectibles/%d.json", id)
}

// MintToPool mints a fresh collectible owned by the lottery contract and
// parks it in the given tier's pool. This is the operator's pool top-up path.
func (a *Allocator) MintToPool(ctx context.Context, tier int) (PoolEntry, error) {
	counter, err := a.pool.MintCounter(ctx)
	if err != nil {
		return PoolEntry{}, fmt.Errorf("read mint counter: %w", err)
	}

	id := counter + 1
	entry := PoolEntry{ID: id, Tier: tier, ImageRef: ImageRef(id), AddedAt: time.Now().UTC()}

	if err := a.ledger.Apply(ctx, []Op{{Kind: OpMint, ID: id, ImageRef: entry.ImageRef, To: a.contract}}); err != nil {
		return PoolEntry{}, fmt.Errorf("mint collectible %d: %w", id, err)
	}
	if err := a.pool.AddPoolEntry(ctx, entry); err != nil {
		return PoolEntry{}, fmt.Errorf("add pool entry: %w", err)
	}
	if err := a.pool.SetMintCounter(ctx, id); err != nil {
		return PoolEntry{}, fmt.Errorf("advance mint counter: %w", err)
	}

	a.log.WithField("collectible_id", id).WithField("tier", tier).Info("collectible minted to pool")
	return entry, nil
}

// Allocation is one planned prize: a collectible and how it was obtained.
type Allocation struct {
	CollectibleID uint64
	ImageRef      string
	Minted        bool
}

// Session stages allocations for one prize distribution. Nothing touches the
// ledger until the caller commits the staged ops in a single Apply; the
// session only advances its in-memory view of the mint counter so concurrent
// winners within one distribution see consistent ids.
type Session struct {
	a       *Allocator
	counter uint64
	ops     []Op
	taken   map[uint64]bool // pool entries already staged for transfer
}

// Begin opens an allocation session seeded with the persisted mint counter.
func (a *Allocator) Begin(ctx context.Context) (*Session, error) {
	counter, err := a.pool.MintCounter(ctx)
	if err != nil {
		return nil, fmt.Errorf("read mint counter: %w", err)
	}
	return &Session{a: a, counter: counter, taken: make(map[uint64]bool)}, nil
}

// Allocate plans one prize for a winner at the given tier.
//
// Empty pool: mint a fresh collectible straight to the winner. Non-empty
// pool: pick the entry at mintCounter mod poolSize and transfer it, provided
// the lottery contract still holds transfer rights over that specific
// collectible; a stale entry (moved elsewhere by its new owner, or already
// staged for another winner in this session) falls back to a fresh mint.
func (s *Session) Allocate(ctx context.Context, tier int, winner string) (Allocation, error) {
	entries, err := s.a.pool.PoolEntries(ctx, tier)
	if err != nil {
		return Allocation{}, fmt.Errorf("read tier %d pool: %w", tier, err)
	}

	if len(entries) > 0 {
		entry := entries[s.counter%uint64(len(entries))]
		if !s.taken[entry.ID] {
			from, ok, err := s.transferableFrom(ctx, entry.ID)
			if err != nil {
				return Allocation{}, err
			}
			if ok {
				s.taken[entry.ID] = true
				s.ops = append(s.ops, Op{Kind: OpTransfer, ID: entry.ID, From: from, To: winner})
				return Allocation{CollectibleID: entry.ID, ImageRef: entry.ImageRef}, nil
			}
			s.a.log.WithField("collectible_id", entry.ID).
				WithField("tier", tier).
				Warn("pool entry no longer transferable, minting fresh")
		}
	}

	id := s.counter + 1
	s.counter = id
	ref := ImageRef(id)
	s.ops = append(s.ops, Op{Kind: OpMint, ID: id, ImageRef: ref, To: winner})
	return Allocation{CollectibleID: id, ImageRef: ref, Minted: true}, nil
}

// transferableFrom resolves the address a staged transfer must name as the
// sender, and whether the lottery contract may move the collectible at all:
// it must be the owner, the approved delegate, or an approved operator for
// the current owner.
func (s *Session) transferableFrom(ctx context.Context, id uint64) (string, bool, error) {
	owner, err := s.a.ledger.OwnerOf(ctx, id)
	if err != nil {
		return "", false, fmt.Errorf("owner of %d: %w", id, err)
	}
	if owner == s.a.contract {
		return owner, true, nil
	}

	approved, err := s.a.ledger.GetApproved(ctx, id)
	if err != nil {
		return "", false, fmt.Errorf("approved for %d: %w", id, err)
	}
	if approved == s.a.contract {
		return owner, true, nil
	}

	all, err := s.a.ledger.IsApprovedForAll(ctx, owner, s.a.contract)
	if err != nil {
		return "", false, fmt.Errorf("operator approval for %s: %w", owner, err)
	}
	if all {
		return owner, true, nil
	}
	return "", false, nil
}

// Ops returns the staged ledger operations in allocation order.
func (s *Session) Ops() []Op {
	return s.ops
}

// MintCounter returns the counter value the pool store must be advanced to
// once the staged ops commit.
func (s *Session) MintCounter() uint64 {
	return s.counter
}

// Commit applies the staged ops as one atomic ledger batch and advances the
// persisted mint counter. A failed batch leaves both untouched, so the whole
// distribution can be retried.
func (s *Session) Commit(ctx context.Context) error {
	if len(s.ops) == 0 {
		return nil
	}
	if err := s.a.ledger.Apply(ctx, s.ops); err != nil {
		return fmt.Errorf("apply collectible batch: %w", err)
	}
	if err := s.a.pool.SetMintCounter(ctx, s.counter); err != nil {
		return fmt.Errorf("advance mint counter: %w", err)
	}
	return nil
}
