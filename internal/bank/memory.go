package bank

import (
	"context"
	"fmt"
	"sync"
)

// MemoryLedger is an in-memory Ledger for tests and local runs.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]int64
}

// NewMemoryLedger creates a ledger with no balances.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[string]int64)}
}

// Credit adds funds to an account. Test setup helper.
func (m *MemoryLedger) Credit(account string, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[account] += amount
}

// Transfer implements Ledger.
func (m *MemoryLedger) Transfer(ctx context.Context, from, to string, amount int64) error {
	if err := validateTransfer(from, to, amount); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[from] < amount {
		return fmt.Errorf("transfer %d from %s: %w", amount, from, ErrInsufficientFunds)
	}
	m.balances[from] -= amount
	m.balances[to] += amount
	return nil
}

// BalanceOf implements Ledger.
func (m *MemoryLedger) BalanceOf(ctx context.Context, account string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[account], nil
}
