package collectible

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type token struct {
	owner    string
	imageRef string
	approved string
}

// MemoryLedger is a thread-safe in-memory collectible ledger implementing
// Ledger. It models the ownership and approval rules of the on-chain token
// contract and is intended for tests and prototyping.
type MemoryLedger struct {
	mu        sync.RWMutex
	caller    string // identity performing transfers, i.e. the lottery contract
	tokens    map[uint64]token
	operators map[string]map[string]bool // owner -> operator -> approved
}

// NewMemoryLedger creates an empty ledger whose transfer caller is the given
// lottery contract address.
func NewMemoryLedger(caller string) *MemoryLedger {
	return &MemoryLedger{
		caller:    caller,
		tokens:    make(map[uint64]token),
		operators: make(map[string]map[string]bool),
	}
}

// Mint implements Ledger.
func (m *MemoryLedger) Mint(_ context.Context, id uint64, imageRef, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return mintLocked(m.tokens, id, imageRef, to)
}

// OwnerOf implements Ledger.
func (m *MemoryLedger) OwnerOf(_ context.Context, id uint64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tok, ok := m.tokens[id]
	if !ok {
		return "", fmt.Errorf("collectible %d: %w", id, ErrNotFound)
	}
	return tok.owner, nil
}

// TransferFrom implements Ledger.
func (m *MemoryLedger) TransferFrom(_ context.Context, from, to string, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transferLocked(m.tokens, from, to, id)
}

// GetApproved implements Ledger.
func (m *MemoryLedger) GetApproved(_ context.Context, id uint64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tok, ok := m.tokens[id]
	if !ok {
		return "", fmt.Errorf("collectible %d: %w", id, ErrNotFound)
	}
	return tok.approved, nil
}

// IsApprovedForAll implements Ledger.
func (m *MemoryLedger) IsApprovedForAll(_ context.Context, owner, operator string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.operators[owner][operator], nil
}

// Properties implements Ledger with metadata derived from the token's image
// reference, mirroring what the contract publishes.
func (m *MemoryLedger) Properties(_ context.Context, id uint64) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tok, ok := m.tokens[id]
	if !ok {
		return nil, fmt.Errorf("collectible %d: %w", id, ErrNotFound)
	}
	return map[string]string{
		"name":  fmt.Sprintf("Lottery Collectible #%d", id),
		"image": tok.imageRef,
	}, nil
}

// Apply implements Ledger. The batch is validated and executed against a
// copy of the token table, which replaces the live table only when every
// operation succeeded.
func (m *MemoryLedger) Apply(_ context.Context, ops []Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := make(map[uint64]token, len(m.tokens))
	for id, tok := range m.tokens {
		staged[id] = tok
	}

	for i, op := range ops {
		var err error
		switch op.Kind {
		case OpMint:
			err = mintLocked(staged, op.ID, op.ImageRef, op.To)
		case OpTransfer:
			err = m.transferLocked(staged, op.From, op.To, op.ID)
		default:
			err = fmt.Errorf("unknown op kind %q", op.Kind)
		}
		if err != nil {
			return fmt.Errorf("op %d (%s %d): %w", i, op.Kind, op.ID, err)
		}
	}

	m.tokens = staged
	return nil
}

func mintLocked(tokens map[uint64]token, id uint64, imageRef, to string) error {
	if _, exists := tokens[id]; exists {
		return fmt.Errorf("collectible %d already exists", id)
	}
	if to == "" {
		return fmt.Errorf("mint recipient required")
	}
	tokens[id] = token{owner: to, imageRef: imageRef}
	return nil
}

func (m *MemoryLedger) transferLocked(tokens map[uint64]token, from, to string, id uint64) error {
	tok, ok := tokens[id]
	if !ok {
		return fmt.Errorf("collectible %d: %w", id, ErrNotFound)
	}
	if tok.owner != from {
		return fmt.Errorf("%s is not the owner of collectible %d", from, id)
	}
	if m.caller != tok.owner && m.caller != tok.approved && !m.operators[tok.owner][m.caller] {
		return fmt.Errorf("caller %s lacks transfer rights over collectible %d", m.caller, id)
	}
	// Single-token approval resets on transfer.
	tokens[id] = token{owner: to, imageRef: tok.imageRef}
	return nil
}

// Approve sets the single approved delegate for a collectible. Test helper
// standing in for the token contract's approve entry point.
func (m *MemoryLedger) Approve(id uint64, delegate string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, ok := m.tokens[id]
	if !ok {
		return fmt.Errorf("collectible %d: %w", id, ErrNotFound)
	}
	tok.approved = delegate
	m.tokens[id] = tok
	return nil
}

// SetApprovalForAll flags an operator approval for an owner.
func (m *MemoryLedger) SetApprovalForAll(owner, operator string, approved bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.operators[owner] == nil {
		m.operators[owner] = make(map[string]bool)
	}
	m.operators[owner][operator] = approved
}

// ForceTransfer moves a collectible as its current owner would, bypassing
// the caller rights check. Test helper simulating an external owner moving a
// previously awarded collectible, which is how pool entries go stale.
func (m *MemoryLedger) ForceTransfer(id uint64, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, ok := m.tokens[id]
	if !ok {
		return fmt.Errorf("collectible %d: %w", id, ErrNotFound)
	}
	m.tokens[id] = token{owner: to, imageRef: tok.imageRef}
	return nil
}

var _ Ledger = (*MemoryLedger)(nil)

// MemoryPool is an in-memory PoolStore.
type MemoryPool struct {
	mu      sync.RWMutex
	entries map[int][]PoolEntry
	counter uint64
}

// NewMemoryPool creates an empty pool store.
func NewMemoryPool() *MemoryPool {
	return &MemoryPool{entries: make(map[int][]PoolEntry)}
}

// PoolEntries implements PoolStore. Entries come back in insertion order.
func (p *MemoryPool) PoolEntries(_ context.Context, tier int) ([]PoolEntry, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries := p.entries[tier]
	out := make([]PoolEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AddPoolEntry implements PoolStore.
func (p *MemoryPool) AddPoolEntry(_ context.Context, entry PoolEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if entry.AddedAt.IsZero() {
		entry.AddedAt = time.Now().UTC()
	}
	p.entries[entry.Tier] = append(p.entries[entry.Tier], entry)
	return nil
}

// MintCounter implements PoolStore.
func (p *MemoryPool) MintCounter(_ context.Context) (uint64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.counter, nil
}

// SetMintCounter implements PoolStore.
func (p *MemoryPool) SetMintCounter(_ context.Context, counter uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counter = counter
	return nil
}
