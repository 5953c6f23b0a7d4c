// Package lottery implements a recurring numbers lottery whose prizes are
// collectible tokens. Rounds are bounded by block height, winning numbers are
// derived from block-hash entropy, and prize distribution hands collectibles
// to winners through an external token ledger.
package lottery

import "time"

// Phase is the lifecycle state of the current round.
//
// A round in PhaseOpen is either accepting tickets (height < EndRoundBlock)
// or awaiting its draw (height >= EndRoundBlock); the split is derived from
// chain height rather than stored.
type Phase string

const (
	PhaseOpen     Phase = "open"
	PhaseDrawn    Phase = "drawn"
	PhaseFinished Phase = "finished"
)

// Number ranges and ticket shape (Powerball style).
const (
	MainNumberCount = 5
	MainNumberMin   = 1
	MainNumberMax   = 69
	BonusNumberMin  = 1
	BonusNumberMax  = 26
)

// TierCount is the number of prize tiers; tier 1 is the rarest.
const TierCount = 8

// Default configuration values.
const (
	DefaultTicketPrice   int64  = 10_000_000 // 0.1 GAS
	DefaultRoundDuration uint64 = 5760       // roughly one day of blocks
)

// Ticket is a purchased lottery ticket. Numbers are stored in ascending
// order; duplicates across the five slots are allowed and each duplicate is
// matched independently.
type Ticket struct {
	ID            string             `json:"id"`
	Owner         string             `json:"owner"`
	Numbers       [MainNumberCount]int `json:"numbers"`
	Bonus         int                `json:"bonus"`
	Price         int64              `json:"price"`
	Index         int64              `json:"index"` // purchase order within the round
	PrizeTier     int                `json:"prize_tier,omitempty"`
	CollectibleID uint64             `json:"collectible_id,omitempty"`
	PurchasedAt   time.Time          `json:"purchased_at"`
}

// WinningTicket is the house-drawn ticket for a round. It has no owner and
// exists only between a draw and the next round opening.
type WinningTicket struct {
	Numbers   [MainNumberCount]int `json:"numbers"`
	Bonus     int                  `json:"bonus"`
	BlockHash string               `json:"block_hash"` // entropy reference block
	DrawnAt   time.Time            `json:"drawn_at"`
}

// State is the persistent lottery state. It is created once at deployment
// and mutated only by the lifecycle operations.
type State struct {
	Operator      string         `json:"operator"`
	TicketPrice   int64          `json:"ticket_price"`
	RoundDuration uint64         `json:"round_duration"`
	EndRoundBlock uint64         `json:"end_round_block"`
	Phase         Phase          `json:"phase"`
	LotteryActive bool           `json:"lottery_active"`
	RoundNumber   int64          `json:"round_number"`
	Winning       *WinningTicket `json:"winning_ticket,omitempty"`
	// Distribution records awards whose collectibles are delivered (or about
	// to be) but whose settlement has not finished. A retried GivePrizes
	// resumes from it instead of allocating a second time.
	Distribution *PendingDistribution `json:"pending_distribution,omitempty"`

	// Cumulative counters, persisted with the state so stats survive restarts.
	RoundsCompleted int64 `json:"rounds_completed"`
	TicketsSold     int64 `json:"tickets_sold"`
	PrizesAwarded   int64 `json:"prizes_awarded"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Award records one collectible handed to a winning ticket.
type Award struct {
	TicketID      string `json:"ticket_id"`
	Owner         string `json:"owner"`
	Tier          int    `json:"tier"`
	MatchCount    int    `json:"match_count"`
	BonusMatch    bool   `json:"bonus_match"`
	CollectibleID uint64 `json:"collectible_id"`
	ImageRef      string `json:"image_ref"`
	Minted        bool   `json:"minted"` // freshly minted rather than taken from the pool
}

// PendingDistribution is the durable record of one round's prize batch. It is
// written before the collectible ledger commits and cleared when settlement
// completes, so a failure between the two cannot double-award on retry.
type PendingDistribution struct {
	Round  int64   `json:"round"`
	Awards []Award `json:"awards"`
}

// DistributionResult is the outcome of a completed prize distribution.
type DistributionResult struct {
	RoundNumber int64          `json:"round_number"`
	Winning     WinningTicket  `json:"winning_ticket"`
	TicketCount int64          `json:"ticket_count"`
	Awards      []Award        `json:"awards"`
	Revenue     int64          `json:"revenue"` // ticketCount x ticketPrice paid to the operator
	SettledAt   time.Time      `json:"settled_at"`
}

// Refund records one ticket refunded by CloseLottery.
type Refund struct {
	TicketID string `json:"ticket_id"`
	Owner    string `json:"owner"`
	Amount   int64  `json:"amount"`
}

// Stats summarizes lifetime lottery activity.
type Stats struct {
	RoundsCompleted int64 `json:"rounds_completed"`
	TicketsSold     int64 `json:"tickets_sold"`
	PrizesAwarded   int64 `json:"prizes_awarded"`
	CurrentRound    int64 `json:"current_round"`
	Phase           Phase `json:"phase"`
	LotteryActive   bool  `json:"lottery_active"`
	EndRoundBlock   uint64 `json:"end_round_block"`
}
