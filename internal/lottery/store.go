package lottery

import "context"

// Store persists lottery state and the tickets of the current round.
// Implementations must be safe for concurrent use.
type Store interface {
	// GetState returns the persisted lottery state, or (nil, nil) when the
	// lottery has never been initialized.
	GetState(ctx context.Context) (*State, error)
	// SaveState writes the full lottery state.
	SaveState(ctx context.Context, state *State) error

	// AppendTicket adds a ticket to the current round. The ticket's Index
	// must already be set by the caller.
	AppendTicket(ctx context.Context, ticket *Ticket) error
	// ListTickets returns the tickets of the current round ordered by Index.
	ListTickets(ctx context.Context) ([]*Ticket, error)
	// UpdateTicket rewrites a ticket, matched by ID.
	UpdateTicket(ctx context.Context, ticket *Ticket) error
	// ClearTickets removes all tickets of the current round.
	ClearTickets(ctx context.Context) error
	// CountTickets returns the number of tickets in the current round.
	CountTickets(ctx context.Context) (int, error)
}
