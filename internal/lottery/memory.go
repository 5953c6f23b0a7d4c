package lottery

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store used by tests and single-node deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	state   *State
	tickets map[string]*Ticket
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tickets: make(map[string]*Ticket)}
}

func cloneState(s *State) *State {
	if s == nil {
		return nil
	}
	out := *s
	if s.Winning != nil {
		w := *s.Winning
		out.Winning = &w
	}
	if s.Distribution != nil {
		d := *s.Distribution
		d.Awards = append([]Award(nil), s.Distribution.Awards...)
		out.Distribution = &d
	}
	return &out
}

func cloneTicket(t *Ticket) *Ticket {
	out := *t
	return &out
}

// GetState implements Store.
func (m *MemoryStore) GetState(ctx context.Context) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneState(m.state), nil
}

// SaveState implements Store.
func (m *MemoryStore) SaveState(ctx context.Context, state *State) error {
	if state == nil {
		return fmt.Errorf("nil state")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = cloneState(state)
	return nil
}

// AppendTicket implements Store.
func (m *MemoryStore) AppendTicket(ctx context.Context, ticket *Ticket) error {
	if ticket == nil || ticket.ID == "" {
		return fmt.Errorf("ticket without id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tickets[ticket.ID]; exists {
		return fmt.Errorf("ticket %s already exists", ticket.ID)
	}
	m.tickets[ticket.ID] = cloneTicket(ticket)
	return nil
}

// ListTickets implements Store.
func (m *MemoryStore) ListTickets(ctx context.Context) ([]*Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Ticket, 0, len(m.tickets))
	for _, t := range m.tickets {
		out = append(out, cloneTicket(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// UpdateTicket implements Store.
func (m *MemoryStore) UpdateTicket(ctx context.Context, ticket *Ticket) error {
	if ticket == nil || ticket.ID == "" {
		return fmt.Errorf("ticket without id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tickets[ticket.ID]; !exists {
		return fmt.Errorf("ticket %s not found", ticket.ID)
	}
	m.tickets[ticket.ID] = cloneTicket(ticket)
	return nil
}

// ClearTickets implements Store.
func (m *MemoryStore) ClearTickets(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets = make(map[string]*Ticket)
	return nil
}

// CountTickets implements Store.
func (m *MemoryStore) CountTickets(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tickets), nil
}
