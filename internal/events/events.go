// Package events carries lifecycle notifications from the lottery service to
// in-process subscribers such as the websocket feed.
package events

import (
	"sync"
	"time"
)

// Event types emitted by the lottery service.
const (
	TypeRoundOpened       = "round.opened"
	TypeLotteryClosed     = "lottery.closed"
	TypeTicketPurchased   = "ticket.purchased"
	TypeTicketRefunded    = "ticket.refunded"
	TypeNumbersDrawn      = "numbers.drawn"
	TypePrizeAssigned     = "prize.assigned"
	TypeCollectibleMinted = "collectible.minted"
	TypeRoundFinished     = "round.finished"
)

// Event is a single notification. Data holds type-specific fields and must be
// JSON-serializable.
type Event struct {
	Type      string                 `json:"type"`
	Round     uint64                 `json:"round"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

const defaultHistorySize = 256

// Bus fans events out to subscribers and keeps a bounded history for
// late joiners. Slow subscribers drop events rather than block publishers.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]chan Event
	nextID  int
	history []Event
	maxHist int
}

// NewBus creates a bus with the default history size.
func NewBus() *Bus {
	return &Bus{
		subs:    make(map[int]chan Event),
		maxHist: defaultHistorySize,
	}
}

// Publish stamps the event and delivers it to every subscriber.
func (b *Bus) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	b.mu.Lock()
	b.history = append(b.history, evt)
	if len(b.history) > b.maxHist {
		b.history = b.history[len(b.history)-b.maxHist:]
	}
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}

// Subscribe registers a new subscriber. The returned cancel func must be
// called to release the subscription.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Recent returns up to limit most recent events, oldest first.
func (b *Bus) Recent(limit int) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if limit <= 0 || limit > len(b.history) {
		limit = len(b.history)
	}
	out := make([]Event, limit)
	copy(out, b.history[len(b.history)-limit:])
	return out
}
