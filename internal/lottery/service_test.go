package lottery

import (
	"context"
	"errors"
	"testing"

	"github.com/R3E-Network/nft_lottery/internal/bank"
	"github.com/R3E-Network/nft_lottery/internal/collectible"
	"github.com/R3E-Network/nft_lottery/internal/events"
)

const (
	testOperator = "0xaabb000000000000000000000000000000000001"
	testEscrow   = "0xaabb000000000000000000000000000000000002"
	testAlice    = "0xaabb000000000000000000000000000000000010"
	testBob      = "0xaabb000000000000000000000000000000000011"

	testPrice    int64  = 100
	testDuration uint64 = 10
)

type fakeEntropy struct {
	values map[uint64]uint64
	ready  bool
	hash   string
}

func (f *fakeEntropy) Random(ctx context.Context, endRoundBlock, seed uint64) (uint64, error) {
	if !f.ready {
		return 0, ErrNotReady
	}
	return f.values[seed], nil
}

func (f *fakeEntropy) ReferenceBlockHash(ctx context.Context, endRoundBlock uint64) (string, error) {
	return f.hash, nil
}

type fakeHeights struct {
	count uint64
}

func (f *fakeHeights) GetBlockCount(ctx context.Context) (uint64, error) {
	return f.count, nil
}

type harness struct {
	svc     *Service
	entropy *fakeEntropy
	heights *fakeHeights
	bank    *bank.MemoryLedger
	ledger  *collectible.MemoryLedger
	pool    *collectible.MemoryPool
}

// Entropy values chosen so the draw is [3 17 29 44 69] bonus 7.
func newHarness(t *testing.T) *harness {
	t.Helper()

	entropy := &fakeEntropy{
		values: map[uint64]uint64{1: 2, 2: 16, 3: 28, 4: 43, 5: 68, 6: 6},
		hash:   "0x4c1e0f3a2b5d6e7f8091a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f7",
	}
	heights := &fakeHeights{count: 101} // height 100
	payments := bank.NewMemoryLedger()
	payments.Credit(testAlice, 1000)
	payments.Credit(testBob, 1000)

	ledger := collectible.NewMemoryLedger(testEscrow)
	pool := collectible.NewMemoryPool()
	alloc := collectible.NewAllocator(ledger, pool, testEscrow, nil)

	svc, err := NewService(context.Background(), NewMemoryStore(), entropy, alloc, pool,
		payments, heights, events.NewBus(), nil, nil, Options{
			Operator:      testOperator,
			Escrow:        testEscrow,
			TicketPrice:   testPrice,
			RoundDuration: testDuration,
		})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return &harness{
		svc:     svc,
		entropy: entropy,
		heights: heights,
		bank:    payments,
		ledger:  ledger,
		pool:    pool,
	}
}

func (h *harness) buy(t *testing.T, owner string, numbers [MainNumberCount]int, bonus int) *Ticket {
	t.Helper()
	ticket, err := h.svc.Buy(context.Background(), owner, numbers, bonus, testPrice)
	if err != nil {
		t.Fatalf("Buy(%s) error = %v", owner, err)
	}
	return ticket
}

func TestService_InitialStateAllowsFirstRound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	state, err := h.svc.State(ctx)
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if state.Phase != PhaseFinished {
		t.Errorf("initial phase = %s, want %s", state.Phase, PhaseFinished)
	}
	if !state.LotteryActive {
		t.Error("initial state should be active")
	}

	if _, err := h.svc.OpenRound(ctx, testOperator); err != nil {
		t.Fatalf("OpenRound() error = %v", err)
	}
}

func TestService_OpenRound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.OpenRound(ctx, testAlice); !IsUnauthorized(err) {
		t.Errorf("OpenRound by non-operator error = %v, want ErrUnauthorized", err)
	}

	state, err := h.svc.OpenRound(ctx, testOperator)
	if err != nil {
		t.Fatalf("OpenRound() error = %v", err)
	}
	if state.RoundNumber != 1 {
		t.Errorf("round number = %d, want 1", state.RoundNumber)
	}
	if state.EndRoundBlock != 110 {
		t.Errorf("end round block = %d, want 110", state.EndRoundBlock)
	}
	if state.Phase != PhaseOpen {
		t.Errorf("phase = %s, want %s", state.Phase, PhaseOpen)
	}

	if _, err := h.svc.OpenRound(ctx, testOperator); !IsInvalidState(err) {
		t.Errorf("second OpenRound error = %v, want ErrInvalidState", err)
	}
}

func TestService_Buy(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.Buy(ctx, testAlice, [5]int{1, 2, 3, 4, 5}, 7, testPrice); !IsInvalidState(err) {
		t.Errorf("Buy before round error = %v, want ErrInvalidState", err)
	}

	if _, err := h.svc.OpenRound(ctx, testOperator); err != nil {
		t.Fatalf("OpenRound() error = %v", err)
	}

	tests := []struct {
		name    string
		numbers [MainNumberCount]int
		bonus   int
		payment int64
	}{
		{"number too small", [5]int{0, 2, 3, 4, 5}, 7, testPrice},
		{"number too large", [5]int{1, 2, 3, 4, 70}, 7, testPrice},
		{"bonus too small", [5]int{1, 2, 3, 4, 5}, 0, testPrice},
		{"bonus too large", [5]int{1, 2, 3, 4, 5}, 27, testPrice},
		{"underpayment", [5]int{1, 2, 3, 4, 5}, 7, testPrice - 1},
		{"overpayment", [5]int{1, 2, 3, 4, 5}, 7, testPrice + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Buy(ctx, testAlice, tt.numbers, tt.bonus, tt.payment)
			if !IsInvalidInput(err) {
				t.Errorf("Buy() error = %v, want ErrInvalidInput", err)
			}
		})
	}

	ticket := h.buy(t, testAlice, [5]int{69, 44, 29, 17, 3}, 7)
	if ticket.Numbers != [5]int{3, 17, 29, 44, 69} {
		t.Errorf("ticket numbers = %v, want sorted ascending", ticket.Numbers)
	}
	if ticket.Index != 0 {
		t.Errorf("first ticket index = %d, want 0", ticket.Index)
	}

	// Duplicate numbers across slots are accepted.
	if _, err := h.svc.Buy(ctx, testBob, [5]int{7, 7, 7, 7, 7}, 1, testPrice); err != nil {
		t.Errorf("Buy with duplicate numbers error = %v", err)
	}

	escrow, _ := h.bank.BalanceOf(ctx, testEscrow)
	if escrow != 2*testPrice {
		t.Errorf("escrow balance = %d, want %d", escrow, 2*testPrice)
	}

	// Sales stop once the round's end block is reached.
	h.heights.count = 111 // height 110 == end block
	if _, err := h.svc.Buy(ctx, testAlice, [5]int{1, 2, 3, 4, 5}, 7, testPrice); !IsInvalidState(err) {
		t.Errorf("Buy after round end error = %v, want ErrInvalidState", err)
	}
}

func TestService_DrawNumbers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.OpenRound(ctx, testOperator); err != nil {
		t.Fatalf("OpenRound() error = %v", err)
	}

	if _, err := h.svc.DrawNumbers(ctx, testAlice); !IsUnauthorized(err) {
		t.Errorf("DrawNumbers by non-operator error = %v, want ErrUnauthorized", err)
	}
	if _, err := h.svc.DrawNumbers(ctx, testOperator); !IsInvalidState(err) {
		t.Errorf("DrawNumbers while selling error = %v, want ErrInvalidState", err)
	}

	h.heights.count = 111 // height 110 == end block
	if _, err := h.svc.DrawNumbers(ctx, testOperator); !IsNotReady(err) {
		t.Errorf("DrawNumbers before entropy block error = %v, want ErrNotReady", err)
	}

	h.entropy.ready = true
	winning, err := h.svc.DrawNumbers(ctx, testOperator)
	if err != nil {
		t.Fatalf("DrawNumbers() error = %v", err)
	}
	if winning.Numbers != [5]int{3, 17, 29, 44, 69} {
		t.Errorf("winning numbers = %v, want [3 17 29 44 69]", winning.Numbers)
	}
	if winning.Bonus != 7 {
		t.Errorf("winning bonus = %d, want 7", winning.Bonus)
	}
	if winning.BlockHash != h.entropy.hash {
		t.Errorf("winning block hash = %s, want %s", winning.BlockHash, h.entropy.hash)
	}

	if _, err := h.svc.DrawNumbers(ctx, testOperator); !IsInvalidState(err) {
		t.Errorf("second DrawNumbers error = %v, want ErrInvalidState", err)
	}
}

func TestService_GivePrizes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.GivePrizes(ctx, testOperator); !IsInvalidState(err) {
		t.Errorf("GivePrizes before draw error = %v, want ErrInvalidState", err)
	}

	if _, err := h.svc.OpenRound(ctx, testOperator); err != nil {
		t.Fatalf("OpenRound() error = %v", err)
	}
	jackpot := h.buy(t, testAlice, [5]int{3, 17, 29, 44, 69}, 7) // tier 1
	h.buy(t, testBob, [5]int{1, 2, 4, 5, 6}, 9)                  // no prize

	h.heights.count = 111
	h.entropy.ready = true
	if _, err := h.svc.DrawNumbers(ctx, testOperator); err != nil {
		t.Fatalf("DrawNumbers() error = %v", err)
	}

	result, err := h.svc.GivePrizes(ctx, testOperator)
	if err != nil {
		t.Fatalf("GivePrizes() error = %v", err)
	}
	if result.TicketCount != 2 {
		t.Errorf("ticket count = %d, want 2", result.TicketCount)
	}
	if len(result.Awards) != 1 {
		t.Fatalf("awards = %d, want 1", len(result.Awards))
	}
	award := result.Awards[0]
	if award.Tier != 1 || award.Owner != testAlice || !award.Minted {
		t.Errorf("award = %+v, want tier 1 fresh mint for alice", award)
	}

	owner, err := h.ledger.OwnerOf(ctx, award.CollectibleID)
	if err != nil {
		t.Fatalf("OwnerOf(%d) error = %v", award.CollectibleID, err)
	}
	if owner != testAlice {
		t.Errorf("collectible owner = %s, want %s", owner, testAlice)
	}

	if result.Revenue != 2*testPrice {
		t.Errorf("revenue = %d, want %d", result.Revenue, 2*testPrice)
	}
	opBalance, _ := h.bank.BalanceOf(ctx, testOperator)
	if opBalance != 2*testPrice {
		t.Errorf("operator balance = %d, want %d", opBalance, 2*testPrice)
	}
	escrow, _ := h.bank.BalanceOf(ctx, testEscrow)
	if escrow != 0 {
		t.Errorf("escrow balance after settlement = %d, want 0", escrow)
	}

	tickets, err := h.svc.Tickets(ctx)
	if err != nil {
		t.Fatalf("Tickets() error = %v", err)
	}
	for _, tk := range tickets {
		if tk.ID == jackpot.ID {
			if tk.PrizeTier != 1 || tk.CollectibleID != award.CollectibleID {
				t.Errorf("winning ticket annotation = tier %d id %d", tk.PrizeTier, tk.CollectibleID)
			}
		} else if tk.PrizeTier != 0 {
			t.Errorf("losing ticket got tier %d", tk.PrizeTier)
		}
	}

	state, _ := h.svc.State(ctx)
	if state.Phase != PhaseFinished {
		t.Errorf("phase after distribution = %s, want %s", state.Phase, PhaseFinished)
	}
	if state.RoundsCompleted != 1 || state.PrizesAwarded != 1 {
		t.Errorf("counters = %d rounds %d prizes, want 1 and 1",
			state.RoundsCompleted, state.PrizesAwarded)
	}

	// The next round starts clean.
	if _, err := h.svc.OpenRound(ctx, testOperator); err != nil {
		t.Fatalf("OpenRound() after settlement error = %v", err)
	}
	n, _ := h.svc.Tickets(ctx)
	if len(n) != 0 {
		t.Errorf("tickets after new round = %d, want 0", len(n))
	}
}

func TestService_GivePrizes_PooledCollectible(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Stock tier 1 before the round.
	entry, err := h.svc.MintCollectible(ctx, testOperator, 1)
	if err != nil {
		t.Fatalf("MintCollectible() error = %v", err)
	}

	if _, err := h.svc.OpenRound(ctx, testOperator); err != nil {
		t.Fatalf("OpenRound() error = %v", err)
	}
	h.buy(t, testAlice, [5]int{3, 17, 29, 44, 69}, 7)

	h.heights.count = 111
	h.entropy.ready = true
	if _, err := h.svc.DrawNumbers(ctx, testOperator); err != nil {
		t.Fatalf("DrawNumbers() error = %v", err)
	}
	result, err := h.svc.GivePrizes(ctx, testOperator)
	if err != nil {
		t.Fatalf("GivePrizes() error = %v", err)
	}

	if len(result.Awards) != 1 {
		t.Fatalf("awards = %d, want 1", len(result.Awards))
	}
	award := result.Awards[0]
	if award.Minted {
		t.Error("award should come from the pool, not a fresh mint")
	}
	if award.CollectibleID != entry.ID {
		t.Errorf("award collectible = %d, want pooled %d", award.CollectibleID, entry.ID)
	}
	owner, _ := h.ledger.OwnerOf(ctx, entry.ID)
	if owner != testAlice {
		t.Errorf("pooled collectible owner = %s, want %s", owner, testAlice)
	}
}

func TestService_CloseLottery(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.OpenRound(ctx, testOperator); err != nil {
		t.Fatalf("OpenRound() error = %v", err)
	}
	h.buy(t, testAlice, [5]int{1, 2, 3, 4, 5}, 7)
	h.buy(t, testBob, [5]int{6, 7, 8, 9, 10}, 8)

	if _, err := h.svc.CloseLottery(ctx, testAlice); !IsUnauthorized(err) {
		t.Errorf("CloseLottery by non-operator error = %v, want ErrUnauthorized", err)
	}

	refunds, err := h.svc.CloseLottery(ctx, testOperator)
	if err != nil {
		t.Fatalf("CloseLottery() error = %v", err)
	}
	if len(refunds) != 2 {
		t.Fatalf("refunds = %d, want 2", len(refunds))
	}

	alice, _ := h.bank.BalanceOf(ctx, testAlice)
	if alice != 1000 {
		t.Errorf("alice balance after refund = %d, want 1000", alice)
	}
	escrow, _ := h.bank.BalanceOf(ctx, testEscrow)
	if escrow != 0 {
		t.Errorf("escrow balance after refunds = %d, want 0", escrow)
	}

	state, _ := h.svc.State(ctx)
	if state.LotteryActive {
		t.Error("lottery still active after close")
	}
	if _, err := h.svc.OpenRound(ctx, testOperator); !IsInvalidState(err) {
		t.Errorf("OpenRound after close error = %v, want ErrInvalidState", err)
	}
	if _, err := h.svc.CloseLottery(ctx, testOperator); !IsInvalidState(err) {
		t.Errorf("second CloseLottery error = %v, want ErrInvalidState", err)
	}
}

func TestService_CloseLottery_AfterDraw(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.OpenRound(ctx, testOperator); err != nil {
		t.Fatalf("OpenRound() error = %v", err)
	}
	h.buy(t, testAlice, [5]int{1, 2, 3, 4, 5}, 9)
	h.heights.count = 111
	h.entropy.ready = true
	if _, err := h.svc.DrawNumbers(ctx, testOperator); err != nil {
		t.Fatalf("DrawNumbers() error = %v", err)
	}

	// A drawn round closes without refunds: the ticket money stays in escrow.
	refunds, err := h.svc.CloseLottery(ctx, testOperator)
	if err != nil {
		t.Fatalf("CloseLottery after draw error = %v", err)
	}
	if len(refunds) != 0 {
		t.Errorf("refunds = %d, want 0 after a draw", len(refunds))
	}
	escrow, _ := h.bank.BalanceOf(ctx, testEscrow)
	if escrow != testPrice {
		t.Errorf("escrow balance = %d, want %d retained", escrow, testPrice)
	}

	state, _ := h.svc.State(ctx)
	if state.LotteryActive {
		t.Error("lottery still active after close")
	}
	if state.Winning != nil {
		t.Error("winning ticket should be discarded on close")
	}
	if _, err := h.svc.OpenRound(ctx, testOperator); !IsInvalidState(err) {
		t.Errorf("OpenRound after close error = %v, want ErrInvalidState", err)
	}
}

func TestService_GivePrizes_RetryDoesNotDoubleAward(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.OpenRound(ctx, testOperator); err != nil {
		t.Fatalf("OpenRound() error = %v", err)
	}
	h.buy(t, testAlice, [5]int{3, 17, 29, 44, 69}, 7) // tier 1

	h.heights.count = 111
	h.entropy.ready = true
	if _, err := h.svc.DrawNumbers(ctx, testOperator); err != nil {
		t.Fatalf("DrawNumbers() error = %v", err)
	}

	// Drain the escrow so settling the round's revenue fails after the
	// collectible batch has already committed.
	if err := h.bank.Transfer(ctx, testEscrow, testBob, testPrice); err != nil {
		t.Fatalf("drain escrow: %v", err)
	}
	if _, err := h.svc.GivePrizes(ctx, testOperator); err == nil {
		t.Fatal("GivePrizes with an empty escrow should fail at settlement")
	}

	owner, err := h.ledger.OwnerOf(ctx, 1)
	if err != nil {
		t.Fatalf("OwnerOf(1) error = %v", err)
	}
	if owner != testAlice {
		t.Errorf("collectible 1 owner = %s, want %s", owner, testAlice)
	}
	state, _ := h.svc.State(ctx)
	if state.Phase != PhaseDrawn {
		t.Fatalf("phase after failed settlement = %s, want %s", state.Phase, PhaseDrawn)
	}
	if state.Distribution == nil || state.Distribution.Round != state.RoundNumber {
		t.Fatalf("pending distribution = %+v, want awards recorded for round %d",
			state.Distribution, state.RoundNumber)
	}

	// The retry must settle without handing the winner a second collectible.
	h.bank.Credit(testEscrow, testPrice)
	result, err := h.svc.GivePrizes(ctx, testOperator)
	if err != nil {
		t.Fatalf("GivePrizes() retry error = %v", err)
	}
	if len(result.Awards) != 1 || result.Awards[0].CollectibleID != 1 {
		t.Errorf("retry awards = %+v, want the original collectible 1", result.Awards)
	}
	if _, err := h.ledger.OwnerOf(ctx, 2); err == nil {
		t.Error("retry minted a second collectible for the same winning ticket")
	}
	counter, _ := h.pool.MintCounter(ctx)
	if counter != 1 {
		t.Errorf("mint counter = %d, want 1", counter)
	}

	state, _ = h.svc.State(ctx)
	if state.Phase != PhaseFinished || state.Distribution != nil {
		t.Errorf("state after retry = phase %s distribution %+v, want finished and cleared",
			state.Phase, state.Distribution)
	}
	if state.PrizesAwarded != 1 {
		t.Errorf("prizes awarded = %d, want 1", state.PrizesAwarded)
	}
	opBalance, _ := h.bank.BalanceOf(ctx, testOperator)
	if opBalance != testPrice {
		t.Errorf("operator balance = %d, want %d", opBalance, testPrice)
	}
}

func TestService_MintCollectible(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.MintCollectible(ctx, testAlice, 1); !IsUnauthorized(err) {
		t.Errorf("MintCollectible by non-operator error = %v, want ErrUnauthorized", err)
	}
	if _, err := h.svc.MintCollectible(ctx, testOperator, 0); !IsInvalidInput(err) {
		t.Errorf("MintCollectible tier 0 error = %v, want ErrInvalidInput", err)
	}
	if _, err := h.svc.MintCollectible(ctx, testOperator, TierCount+1); !IsInvalidInput(err) {
		t.Errorf("MintCollectible tier 9 error = %v, want ErrInvalidInput", err)
	}

	entry, err := h.svc.MintCollectible(ctx, testOperator, 3)
	if err != nil {
		t.Fatalf("MintCollectible() error = %v", err)
	}
	owner, err := h.ledger.OwnerOf(ctx, entry.ID)
	if err != nil {
		t.Fatalf("OwnerOf(%d) error = %v", entry.ID, err)
	}
	if owner != testEscrow {
		t.Errorf("pooled collectible owner = %s, want escrow", owner)
	}

	entries, err := h.pool.PoolEntries(ctx, 3)
	if err != nil {
		t.Fatalf("PoolEntries() error = %v", err)
	}
	if len(entries) != 1 || entries[0].ID != entry.ID {
		t.Errorf("tier 3 pool = %+v, want the minted entry", entries)
	}
}

func TestService_Collectible(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	entry, err := h.svc.MintCollectible(ctx, testOperator, 2)
	if err != nil {
		t.Fatalf("MintCollectible() error = %v", err)
	}

	info, err := h.svc.Collectible(ctx, entry.ID)
	if err != nil {
		t.Fatalf("Collectible(%d) error = %v", entry.ID, err)
	}
	if info.Owner != testEscrow {
		t.Errorf("owner = %s, want escrow", info.Owner)
	}
	if info.Properties["image"] != entry.ImageRef {
		t.Errorf("image property = %s, want %s", info.Properties["image"], entry.ImageRef)
	}

	if _, err := h.svc.Collectible(ctx, 0); !IsInvalidInput(err) {
		t.Errorf("Collectible(0) error = %v, want ErrInvalidInput", err)
	}
	if _, err := h.svc.Collectible(ctx, 99); !errors.Is(err, collectible.ErrNotFound) {
		t.Errorf("Collectible(99) error = %v, want ErrNotFound", err)
	}
}

func TestService_ZeroBlockCount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.heights.count = 0
	if _, err := h.svc.OpenRound(ctx, testOperator); err == nil {
		t.Error("OpenRound with zero block count should fail")
	}
}

func TestService_IsRoundActive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	active, err := h.svc.IsRoundActive(ctx)
	if err != nil {
		t.Fatalf("IsRoundActive() error = %v", err)
	}
	if active {
		t.Error("active before any round opened")
	}

	if _, err := h.svc.OpenRound(ctx, testOperator); err != nil {
		t.Fatalf("OpenRound() error = %v", err)
	}
	if active, _ = h.svc.IsRoundActive(ctx); !active {
		t.Error("inactive right after opening")
	}

	h.heights.count = 111 // height 110 == end block
	if active, _ = h.svc.IsRoundActive(ctx); active {
		t.Error("still active past the end block")
	}
}

func TestService_Stats(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.OpenRound(ctx, testOperator); err != nil {
		t.Fatalf("OpenRound() error = %v", err)
	}
	h.buy(t, testAlice, [5]int{3, 17, 29, 44, 69}, 7)
	h.heights.count = 111
	h.entropy.ready = true
	if _, err := h.svc.DrawNumbers(ctx, testOperator); err != nil {
		t.Fatalf("DrawNumbers() error = %v", err)
	}
	if _, err := h.svc.GivePrizes(ctx, testOperator); err != nil {
		t.Fatalf("GivePrizes() error = %v", err)
	}

	stats, err := h.svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.RoundsCompleted != 1 || stats.TicketsSold != 1 || stats.PrizesAwarded != 1 {
		t.Errorf("stats = %+v, want one round, one ticket, one prize", stats)
	}
	if stats.CurrentRound != 1 || stats.Phase != PhaseFinished {
		t.Errorf("stats round/phase = %d/%s", stats.CurrentRound, stats.Phase)
	}
}
