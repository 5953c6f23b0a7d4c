// Package collectible manages the class-tiered prize pool and the external
// collectible-token ledger the lottery hands prizes to.
package collectible

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports a collectible id with no minted token behind it.
var ErrNotFound = errors.New("collectible not found")

// Ledger is the collectible-token collaborator surface the lottery consumes.
// Ownership, approval, and transfer semantics live in the external token
// contract; this package only reads them and stages writes.
type Ledger interface {
	// Mint creates a collectible and assigns it to an owner.
	Mint(ctx context.Context, id uint64, imageRef, to string) error

	// OwnerOf returns the current owner of a collectible.
	OwnerOf(ctx context.Context, id uint64) (string, error)

	// TransferFrom moves a collectible between owners. It fails when from
	// is not the current owner or the caller lacks transfer rights.
	TransferFrom(ctx context.Context, from, to string, id uint64) error

	// GetApproved returns the single approved delegate for a collectible,
	// or an empty string when none is set.
	GetApproved(ctx context.Context, id uint64) (string, error)

	// IsApprovedForAll reports whether operator may move every collectible
	// owned by owner.
	IsApprovedForAll(ctx context.Context, owner, operator string) (bool, error)

	// Properties returns the metadata map of a collectible.
	Properties(ctx context.Context, id uint64) (map[string]string, error)

	// Apply executes a staged batch of operations atomically: either every
	// operation succeeds or none of them take effect.
	Apply(ctx context.Context, ops []Op) error
}

// OpKind identifies a staged ledger operation.
type OpKind string

const (
	OpMint     OpKind = "mint"
	OpTransfer OpKind = "transfer"
)

// Op is one staged ledger write. Distribution collects its ops into a batch
// and commits them in a single Apply call, which is the transactional
// boundary: a failing batch leaves the ledger untouched.
type Op struct {
	Kind     OpKind `json:"kind"`
	ID       uint64 `json:"id"`
	ImageRef string `json:"image_ref,omitempty"` // mint only
	From     string `json:"from,omitempty"`      // transfer only
	To       string `json:"to"`
}

// PoolEntry is one collectible parked in a prize tier's pool.
type PoolEntry struct {
	ID       uint64    `json:"id"`
	Tier     int       `json:"tier"`
	ImageRef string    `json:"image_ref"`
	AddedAt  time.Time `json:"added_at"`
}

// PoolStore persists the per-tier pools and the global mint counter.
type PoolStore interface {
	PoolEntries(ctx context.Context, tier int) ([]PoolEntry, error)
	AddPoolEntry(ctx context.Context, entry PoolEntry) error
	MintCounter(ctx context.Context) (uint64, error)
	SetMintCounter(ctx context.Context, counter uint64) error
}
