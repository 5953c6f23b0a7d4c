package lottery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/nft_lottery/internal/bank"
	"github.com/R3E-Network/nft_lottery/internal/collectible"
	"github.com/R3E-Network/nft_lottery/internal/events"
	"github.com/R3E-Network/nft_lottery/internal/metrics"
	"github.com/R3E-Network/nft_lottery/pkg/logger"
)

// HeightSource reports chain height. *chain.Client satisfies it.
type HeightSource interface {
	GetBlockCount(ctx context.Context) (uint64, error)
}

// Options configures a Service. Operator and Escrow are required; zero-valued
// price and duration fall back to the defaults.
type Options struct {
	// Operator is the only address allowed to run lifecycle operations.
	Operator string
	// Escrow is the account that holds ticket payments until settlement and
	// owns pooled collectibles.
	Escrow string
	// TicketPrice is the exact payment required per ticket.
	TicketPrice int64
	// RoundDuration is the round length in blocks.
	RoundDuration uint64
}

// Service drives the round lifecycle: open, sell, draw, distribute, settle.
// All mutating operations are serialized under one mutex so state transitions
// observe a total order, mirroring contract execution.
type Service struct {
	mu      sync.Mutex
	store   Store
	entropy EntropySource
	alloc   *collectible.Allocator
	pool    collectible.PoolStore
	bank    bank.Ledger
	heights HeightSource
	bus     *events.Bus
	metrics *metrics.Metrics
	log     *logger.Logger

	escrow string
}

// NewService wires a lottery service. The store is initialized with a
// finished, active lottery on first run so the operator can open round one.
func NewService(ctx context.Context, store Store, entropy EntropySource, alloc *collectible.Allocator, pool collectible.PoolStore, bankLedger bank.Ledger, heights HeightSource, bus *events.Bus, m *metrics.Metrics, log *logger.Logger, opts Options) (*Service, error) {
	if opts.Operator == "" {
		return nil, fmt.Errorf("operator address is required")
	}
	if opts.Escrow == "" {
		return nil, fmt.Errorf("escrow address is required")
	}
	if log == nil {
		log = logger.NewDefault("lottery")
	}
	if bus == nil {
		bus = events.NewBus()
	}

	s := &Service{
		store:   store,
		entropy: entropy,
		alloc:   alloc,
		pool:    pool,
		bank:    bankLedger,
		heights: heights,
		bus:     bus,
		metrics: m,
		log:     log,
		escrow:  opts.Escrow,
	}

	state, err := store.GetState(ctx)
	if err != nil {
		return nil, fmt.Errorf("load lottery state: %w", err)
	}
	if state == nil {
		price := opts.TicketPrice
		if price <= 0 {
			price = DefaultTicketPrice
		}
		duration := opts.RoundDuration
		if duration == 0 {
			duration = DefaultRoundDuration
		}
		state = &State{
			Operator:      opts.Operator,
			TicketPrice:   price,
			RoundDuration: duration,
			Phase:         PhaseFinished,
			LotteryActive: true,
			UpdatedAt:     time.Now().UTC(),
		}
		if err := store.SaveState(ctx, state); err != nil {
			return nil, fmt.Errorf("initialize lottery state: %w", err)
		}
		log.WithField("operator", opts.Operator).
			WithField("ticket_price", price).
			WithField("round_duration", duration).
			Info("lottery initialized")
	}
	return s, nil
}

// Bus returns the event bus the service publishes to.
func (s *Service) Bus() *events.Bus { return s.bus }

func (s *Service) loadState(ctx context.Context) (*State, error) {
	state, err := s.store.GetState(ctx)
	if err != nil {
		return nil, fmt.Errorf("load lottery state: %w", err)
	}
	if state == nil {
		return nil, fmt.Errorf("lottery state not initialized")
	}
	return state, nil
}

func (s *Service) requireOperator(state *State, caller string) error {
	if caller != state.Operator {
		return fmt.Errorf("%w: caller %s is not the operator", ErrUnauthorized, caller)
	}
	return nil
}

func (s *Service) height(ctx context.Context) (uint64, error) {
	count, err := s.heights.GetBlockCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("get block count: %w", err)
	}
	if count == 0 {
		return 0, fmt.Errorf("node reports zero block count")
	}
	return count - 1, nil
}

// OpenRound starts a new sales round. Only the operator may call it, the
// lottery must be active, and the previous round must be fully settled.
func (s *Service) OpenRound(ctx context.Context, caller string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadState(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.requireOperator(state, caller); err != nil {
		return nil, err
	}
	if !state.LotteryActive {
		return nil, NewStateError("lottery is closed")
	}
	if state.Phase != PhaseFinished {
		return nil, NewStateError(fmt.Sprintf("previous round not settled, phase is %s", state.Phase))
	}

	height, err := s.height(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.store.ClearTickets(ctx); err != nil {
		return nil, fmt.Errorf("clear tickets: %w", err)
	}

	state.RoundNumber++
	state.EndRoundBlock = height + state.RoundDuration
	state.Phase = PhaseOpen
	state.Winning = nil
	state.Distribution = nil
	state.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveState(ctx, state); err != nil {
		return nil, fmt.Errorf("save lottery state: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RoundsOpened.Inc()
		s.metrics.CurrentRound.Set(float64(state.RoundNumber))
	}
	s.bus.Publish(events.Event{
		Type:  events.TypeRoundOpened,
		Round: uint64(state.RoundNumber),
		Data: map[string]interface{}{
			"end_round_block": state.EndRoundBlock,
			"ticket_price":    state.TicketPrice,
		},
	})
	s.log.WithField("round", state.RoundNumber).
		WithField("end_round_block", state.EndRoundBlock).
		Info("round opened")
	return cloneState(state), nil
}

// Buy purchases one ticket for the caller. The payment must equal the ticket
// price exactly and the round must still be selling.
func (s *Service) Buy(ctx context.Context, caller string, numbers [MainNumberCount]int, bonus int, payment int64) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadState(ctx)
	if err != nil {
		return nil, err
	}
	if !state.LotteryActive {
		return nil, NewStateError("lottery is closed")
	}
	if state.Phase != PhaseOpen {
		return nil, NewStateError("no round is open")
	}

	height, err := s.height(ctx)
	if err != nil {
		return nil, err
	}
	if height >= state.EndRoundBlock {
		return nil, NewStateError("round has ended, awaiting draw")
	}

	if caller == "" {
		return nil, NewValidationError("caller", "address is required")
	}
	for i, n := range numbers {
		if n < MainNumberMin || n > MainNumberMax {
			return nil, NewValidationError(fmt.Sprintf("numbers[%d]", i),
				fmt.Sprintf("%d outside [%d, %d]", n, MainNumberMin, MainNumberMax))
		}
	}
	if bonus < BonusNumberMin || bonus > BonusNumberMax {
		return nil, NewValidationError("bonus",
			fmt.Sprintf("%d outside [%d, %d]", bonus, BonusNumberMin, BonusNumberMax))
	}
	if payment != state.TicketPrice {
		return nil, NewValidationError("payment",
			fmt.Sprintf("expected %d, got %d", state.TicketPrice, payment))
	}

	if err := s.bank.Transfer(ctx, caller, s.escrow, payment); err != nil {
		return nil, fmt.Errorf("collect ticket payment: %w", err)
	}

	index, err := s.store.CountTickets(ctx)
	if err != nil {
		return nil, fmt.Errorf("count tickets: %w", err)
	}
	ticket := &Ticket{
		ID:          uuid.New().String(),
		Owner:       caller,
		Numbers:     sortNumbers(numbers),
		Bonus:       bonus,
		Price:       payment,
		Index:       int64(index),
		PurchasedAt: time.Now().UTC(),
	}
	if err := s.store.AppendTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("store ticket: %w", err)
	}

	state.TicketsSold++
	state.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveState(ctx, state); err != nil {
		return nil, fmt.Errorf("save lottery state: %w", err)
	}

	if s.metrics != nil {
		s.metrics.TicketsSold.Inc()
	}
	s.bus.Publish(events.Event{
		Type:  events.TypeTicketPurchased,
		Round: uint64(state.RoundNumber),
		Data: map[string]interface{}{
			"ticket_id": ticket.ID,
			"owner":     ticket.Owner,
			"index":     ticket.Index,
		},
	})
	s.log.WithField("round", state.RoundNumber).
		WithField("ticket_id", ticket.ID).
		WithField("owner", caller).
		Debug("ticket purchased")
	return cloneTicket(ticket), nil
}

// DrawNumbers derives the winning ticket for the current round from chain
// entropy. It fails with ErrNotReady until the entropy reference block is
// final, so callers can poll it safely.
func (s *Service) DrawNumbers(ctx context.Context, caller string) (*WinningTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadState(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.requireOperator(state, caller); err != nil {
		return nil, err
	}
	if !state.LotteryActive {
		return nil, NewStateError("lottery is closed")
	}
	if state.Phase != PhaseOpen {
		return nil, NewStateError(fmt.Sprintf("cannot draw in phase %s", state.Phase))
	}

	height, err := s.height(ctx)
	if err != nil {
		return nil, err
	}
	if height < state.EndRoundBlock {
		return nil, NewStateError(fmt.Sprintf("round still selling until block %d", state.EndRoundBlock))
	}

	var winning WinningTicket
	var raw [MainNumberCount]int
	for seed := uint64(1); seed <= MainNumberCount; seed++ {
		v, err := s.entropy.Random(ctx, state.EndRoundBlock, seed)
		if err != nil {
			return nil, fmt.Errorf("draw number %d: %w", seed, err)
		}
		raw[seed-1] = int(v%uint64(MainNumberMax)) + MainNumberMin
	}
	bonusRaw, err := s.entropy.Random(ctx, state.EndRoundBlock, MainNumberCount+1)
	if err != nil {
		return nil, fmt.Errorf("draw bonus number: %w", err)
	}

	blockHash, err := s.entropy.ReferenceBlockHash(ctx, state.EndRoundBlock)
	if err != nil {
		return nil, fmt.Errorf("resolve reference block hash: %w", err)
	}

	winning = WinningTicket{
		Numbers:   sortNumbers(raw),
		Bonus:     int(bonusRaw%uint64(BonusNumberMax)) + BonusNumberMin,
		BlockHash: blockHash,
		DrawnAt:   time.Now().UTC(),
	}

	state.Winning = &winning
	state.Phase = PhaseDrawn
	state.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveState(ctx, state); err != nil {
		return nil, fmt.Errorf("save lottery state: %w", err)
	}

	if s.metrics != nil {
		s.metrics.Draws.Inc()
	}
	s.bus.Publish(events.Event{
		Type:  events.TypeNumbersDrawn,
		Round: uint64(state.RoundNumber),
		Data: map[string]interface{}{
			"numbers":    winning.Numbers,
			"bonus":      winning.Bonus,
			"block_hash": winning.BlockHash,
		},
	})
	s.log.WithField("round", state.RoundNumber).
		WithField("numbers", winning.Numbers).
		WithField("bonus", winning.Bonus).
		Info("winning numbers drawn")
	return &winning, nil
}

// GivePrizes matches every ticket against the winning ticket, hands winners
// their collectibles, pays the round's revenue to the operator, and finishes
// the round.
//
// The collectible batch is the transactional boundary: all prize mints and
// transfers commit together or the whole distribution is rolled back and the
// round stays in the drawn phase for a retry. The planned awards are recorded
// in the state before the batch commits, so a retry after a later failure
// (settlement, state save) resumes from the recorded awards instead of
// allocating a second collectible per winner.
func (s *Service) GivePrizes(ctx context.Context, caller string) (*DistributionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadState(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.requireOperator(state, caller); err != nil {
		return nil, err
	}
	if state.Phase != PhaseDrawn {
		return nil, NewStateError(fmt.Sprintf("cannot distribute prizes in phase %s", state.Phase))
	}
	if state.Winning == nil {
		return nil, NewStateError("winning ticket missing")
	}

	tickets, err := s.store.ListTickets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}

	var awards []Award
	if state.Distribution != nil && state.Distribution.Round == state.RoundNumber {
		awards = state.Distribution.Awards
		s.log.WithField("round", state.RoundNumber).
			WithField("awards", len(awards)).
			Warn("resuming interrupted prize distribution")
	} else {
		awards, err = s.distribute(ctx, state, tickets)
		if err != nil {
			return nil, err
		}
	}

	revenue := int64(len(tickets)) * state.TicketPrice
	if revenue > 0 {
		if err := s.bank.Transfer(ctx, s.escrow, state.Operator, revenue); err != nil {
			return nil, fmt.Errorf("settle round revenue: %w", err)
		}
	}

	state.Distribution = nil
	state.Phase = PhaseFinished
	state.RoundsCompleted++
	state.PrizesAwarded += int64(len(awards))
	state.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveState(ctx, state); err != nil {
		return nil, fmt.Errorf("save lottery state: %w", err)
	}

	for _, a := range awards {
		if s.metrics != nil {
			s.metrics.PrizeAwarded(a.Tier)
			if a.Minted {
				s.metrics.Mints.Inc()
			}
		}
		s.bus.Publish(events.Event{
			Type:  events.TypePrizeAssigned,
			Round: uint64(state.RoundNumber),
			Data: map[string]interface{}{
				"ticket_id":      a.TicketID,
				"owner":          a.Owner,
				"tier":           a.Tier,
				"collectible_id": a.CollectibleID,
			},
		})
		if a.Minted {
			s.bus.Publish(events.Event{
				Type:  events.TypeCollectibleMinted,
				Round: uint64(state.RoundNumber),
				Data: map[string]interface{}{
					"collectible_id": a.CollectibleID,
					"owner":          a.Owner,
					"image_ref":      a.ImageRef,
				},
			})
		}
	}
	s.bus.Publish(events.Event{
		Type:  events.TypeRoundFinished,
		Round: uint64(state.RoundNumber),
		Data: map[string]interface{}{
			"ticket_count": len(tickets),
			"award_count":  len(awards),
			"revenue":      revenue,
		},
	})
	s.log.WithField("round", state.RoundNumber).
		WithField("tickets", len(tickets)).
		WithField("awards", len(awards)).
		WithField("revenue", revenue).
		Info("prizes distributed")

	return &DistributionResult{
		RoundNumber: state.RoundNumber,
		Winning:     *state.Winning,
		TicketCount: int64(len(tickets)),
		Awards:      awards,
		Revenue:     revenue,
		SettledAt:   time.Now().UTC(),
	}, nil
}

// distribute allocates one collectible per winning ticket and commits the
// batch. The awards are saved as a pending distribution before the ledger
// commit; the caller clears the record once settlement finishes.
func (s *Service) distribute(ctx context.Context, state *State, tickets []*Ticket) ([]Award, error) {
	session, err := s.alloc.Begin(ctx)
	if err != nil {
		return nil, err
	}

	type pending struct {
		ticket *Ticket
		award  Award
	}
	var winners []pending
	for _, t := range tickets {
		matchCount, bonusMatch := countMatches(*t, *state.Winning)
		tier := classify(matchCount, bonusMatch)
		if tier == 0 {
			continue
		}
		allocation, err := session.Allocate(ctx, tier, t.Owner)
		if err != nil {
			return nil, fmt.Errorf("allocate prize for ticket %s: %w", t.ID, err)
		}
		winners = append(winners, pending{
			ticket: t,
			award: Award{
				TicketID:      t.ID,
				Owner:         t.Owner,
				Tier:          tier,
				MatchCount:    matchCount,
				BonusMatch:    bonusMatch,
				CollectibleID: allocation.CollectibleID,
				ImageRef:      allocation.ImageRef,
				Minted:        allocation.Minted,
			},
		})
	}
	if len(winners) == 0 {
		return nil, nil
	}

	awards := make([]Award, 0, len(winners))
	for _, w := range winners {
		awards = append(awards, w.award)
	}

	state.Distribution = &PendingDistribution{Round: state.RoundNumber, Awards: awards}
	state.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveState(ctx, state); err != nil {
		return nil, fmt.Errorf("record pending distribution: %w", err)
	}

	if err := session.Commit(ctx); err != nil {
		state.Distribution = nil
		if saveErr := s.store.SaveState(ctx, state); saveErr != nil {
			s.log.WithError(saveErr).Error("failed to clear pending distribution after rollback")
		}
		return nil, err
	}

	for _, w := range winners {
		w.ticket.PrizeTier = w.award.Tier
		w.ticket.CollectibleID = w.award.CollectibleID
		if err := s.store.UpdateTicket(ctx, w.ticket); err != nil {
			s.log.WithError(err).
				WithField("ticket_id", w.ticket.ID).
				Error("failed to annotate winning ticket")
		}
	}
	return awards, nil
}

// CloseLottery refunds every outstanding ticket and deactivates the lottery.
// Closing after a draw forfeits the round: the winning ticket is discarded
// and sold tickets are not refunded.
func (s *Service) CloseLottery(ctx context.Context, caller string) ([]Refund, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadState(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.requireOperator(state, caller); err != nil {
		return nil, err
	}
	if !state.LotteryActive {
		return nil, NewStateError("lottery already closed")
	}

	var refunds []Refund
	if state.Phase == PhaseOpen {
		tickets, err := s.store.ListTickets(ctx)
		if err != nil {
			return nil, fmt.Errorf("list tickets: %w", err)
		}
		for _, t := range tickets {
			if err := s.bank.Transfer(ctx, s.escrow, t.Owner, t.Price); err != nil {
				return nil, fmt.Errorf("refund ticket %s: %w", t.ID, err)
			}
			refunds = append(refunds, Refund{TicketID: t.ID, Owner: t.Owner, Amount: t.Price})
		}
		if err := s.store.ClearTickets(ctx); err != nil {
			return nil, fmt.Errorf("clear tickets: %w", err)
		}
	}

	state.Phase = PhaseFinished
	state.LotteryActive = false
	state.Winning = nil
	state.Distribution = nil
	state.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveState(ctx, state); err != nil {
		return nil, fmt.Errorf("save lottery state: %w", err)
	}

	for _, r := range refunds {
		if s.metrics != nil {
			s.metrics.Refunds.Inc()
		}
		s.bus.Publish(events.Event{
			Type:  events.TypeTicketRefunded,
			Round: uint64(state.RoundNumber),
			Data: map[string]interface{}{
				"ticket_id": r.TicketID,
				"owner":     r.Owner,
				"amount":    r.Amount,
			},
		})
	}
	s.bus.Publish(events.Event{
		Type:  events.TypeLotteryClosed,
		Round: uint64(state.RoundNumber),
		Data:  map[string]interface{}{"refunds": len(refunds)},
	})
	s.log.WithField("round", state.RoundNumber).
		WithField("refunds", len(refunds)).
		Info("lottery closed")
	return refunds, nil
}

// MintCollectible mints a fresh collectible into the given tier's prize pool,
// owned by the escrow account until a winner claims it.
func (s *Service) MintCollectible(ctx context.Context, caller string, tier int) (*collectible.PoolEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadState(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.requireOperator(state, caller); err != nil {
		return nil, err
	}
	if tier < 1 || tier > TierCount {
		return nil, NewValidationError("tier", fmt.Sprintf("%d outside [1, %d]", tier, TierCount))
	}

	entry, err := s.alloc.MintToPool(ctx, tier)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.Mints.Inc()
		s.metrics.PoolSize.Inc()
	}
	s.bus.Publish(events.Event{
		Type:  events.TypeCollectibleMinted,
		Round: uint64(state.RoundNumber),
		Data: map[string]interface{}{
			"collectible_id": entry.ID,
			"tier":           entry.Tier,
			"image_ref":      entry.ImageRef,
			"pooled":         true,
		},
	})
	return &entry, nil
}

// PoolEntries returns the collectible prize pool for a tier.
func (s *Service) PoolEntries(ctx context.Context, tier int) ([]collectible.PoolEntry, error) {
	if tier < 1 || tier > TierCount {
		return nil, NewValidationError("tier", fmt.Sprintf("%d outside [1, %d]", tier, TierCount))
	}
	return s.pool.PoolEntries(ctx, tier)
}

// CollectibleInfo describes one minted collectible and its current owner.
type CollectibleInfo struct {
	ID         uint64            `json:"id"`
	Owner      string            `json:"owner"`
	Properties map[string]string `json:"properties"`
}

// Collectible resolves a collectible's owner and metadata from the token
// ledger.
func (s *Service) Collectible(ctx context.Context, id uint64) (*CollectibleInfo, error) {
	if id == 0 {
		return nil, NewValidationError("id", "must be positive")
	}
	ledger := s.alloc.Ledger()
	owner, err := ledger.OwnerOf(ctx, id)
	if err != nil {
		return nil, err
	}
	props, err := ledger.Properties(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CollectibleInfo{ID: id, Owner: owner, Properties: props}, nil
}

// IsRoundActive reports whether tickets can be purchased right now.
func (s *Service) IsRoundActive(ctx context.Context) (bool, error) {
	state, err := s.loadState(ctx)
	if err != nil {
		return false, err
	}
	if !state.LotteryActive || state.Phase != PhaseOpen {
		return false, nil
	}
	height, err := s.height(ctx)
	if err != nil {
		return false, err
	}
	return height < state.EndRoundBlock, nil
}

// State returns a copy of the current lottery state.
func (s *Service) State(ctx context.Context) (*State, error) {
	return s.loadState(ctx)
}

// Tickets returns the current round's tickets in purchase order.
func (s *Service) Tickets(ctx context.Context) ([]*Ticket, error) {
	return s.store.ListTickets(ctx)
}

// WinningNumbers returns the drawn ticket, or ErrInvalidState before a draw.
func (s *Service) WinningNumbers(ctx context.Context) (*WinningTicket, error) {
	state, err := s.loadState(ctx)
	if err != nil {
		return nil, err
	}
	if state.Winning == nil {
		return nil, NewStateError("no numbers drawn for the current round")
	}
	w := *state.Winning
	return &w, nil
}

// Stats summarizes lifetime activity.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	state, err := s.loadState(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		RoundsCompleted: state.RoundsCompleted,
		TicketsSold:     state.TicketsSold,
		PrizesAwarded:   state.PrizesAwarded,
		CurrentRound:    state.RoundNumber,
		Phase:           state.Phase,
		LotteryActive:   state.LotteryActive,
		EndRoundBlock:   state.EndRoundBlock,
	}, nil
}
