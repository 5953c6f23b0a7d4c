package collectible

import (
	"context"
	"testing"
)

const (
	escrow = "0xcc00000000000000000000000000000000000001"
	winner = "0xcc00000000000000000000000000000000000010"
	other  = "0xcc00000000000000000000000000000000000011"
)

func newAllocator(t *testing.T) (*Allocator, *MemoryLedger, *MemoryPool) {
	t.Helper()
	ledger := NewMemoryLedger(escrow)
	pool := NewMemoryPool()
	return NewAllocator(ledger, pool, escrow, nil), ledger, pool
}

func commit(t *testing.T, s *Session) {
	t.Helper()
	if err := s.Commit(context.Background()); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
}

func TestAllocator_MintToPool(t *testing.T) {
	alloc, ledger, pool := newAllocator(t)
	ctx := context.Background()

	entry, err := alloc.MintToPool(ctx, 2)
	if err != nil {
		t.Fatalf("MintToPool() error = %v", err)
	}
	if entry.ID != 1 {
		t.Errorf("first pooled id = %d, want 1", entry.ID)
	}
	if entry.ImageRef != ImageRef(1) {
		t.Errorf("image ref = %s, want %s", entry.ImageRef, ImageRef(1))
	}

	owner, err := ledger.OwnerOf(ctx, entry.ID)
	if err != nil {
		t.Fatalf("OwnerOf() error = %v", err)
	}
	if owner != escrow {
		t.Errorf("pooled collectible owner = %s, want escrow", owner)
	}

	counter, _ := pool.MintCounter(ctx)
	if counter != 1 {
		t.Errorf("mint counter = %d, want 1", counter)
	}

	second, err := alloc.MintToPool(ctx, 2)
	if err != nil {
		t.Fatalf("MintToPool() error = %v", err)
	}
	if second.ID != 2 {
		t.Errorf("second pooled id = %d, want 2", second.ID)
	}
}

func TestSession_AllocateFromEmptyPoolMints(t *testing.T) {
	alloc, ledger, pool := newAllocator(t)
	ctx := context.Background()

	session, err := alloc.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	allocation, err := session.Allocate(ctx, 1, winner)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if !allocation.Minted {
		t.Error("empty pool should produce a fresh mint")
	}
	if allocation.CollectibleID != 1 {
		t.Errorf("minted id = %d, want 1", allocation.CollectibleID)
	}
	commit(t, session)

	owner, _ := ledger.OwnerOf(ctx, 1)
	if owner != winner {
		t.Errorf("collectible owner = %s, want winner", owner)
	}
	counter, _ := pool.MintCounter(ctx)
	if counter != 1 {
		t.Errorf("mint counter after commit = %d, want 1", counter)
	}

	// Fresh mints bypass the pool entirely.
	entries, _ := pool.PoolEntries(ctx, 1)
	if len(entries) != 0 {
		t.Errorf("pool entries = %d, want 0", len(entries))
	}
}

func TestSession_AllocateSelectsByCounter(t *testing.T) {
	alloc, ledger, _ := newAllocator(t)
	ctx := context.Background()

	// Three pooled entries: ids 1, 2, 3; counter ends at 3.
	for i := 0; i < 3; i++ {
		if _, err := alloc.MintToPool(ctx, 1); err != nil {
			t.Fatalf("MintToPool() error = %v", err)
		}
	}

	session, err := alloc.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	allocation, err := session.Allocate(ctx, 1, winner)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	// counter 3 mod pool size 3 selects index 0, id 1.
	if allocation.Minted || allocation.CollectibleID != 1 {
		t.Errorf("allocation = %+v, want transfer of pooled id 1", allocation)
	}
	commit(t, session)

	owner, _ := ledger.OwnerOf(ctx, 1)
	if owner != winner {
		t.Errorf("collectible 1 owner = %s, want winner", owner)
	}
}

func TestSession_StalePoolEntryFallsBackToMint(t *testing.T) {
	alloc, ledger, pool := newAllocator(t)
	ctx := context.Background()

	entry, err := alloc.MintToPool(ctx, 1)
	if err != nil {
		t.Fatalf("MintToPool() error = %v", err)
	}
	// The pooled collectible leaves escrow custody without the pool entry
	// being removed, which is exactly how entries go stale.
	if err := ledger.ForceTransfer(entry.ID, other); err != nil {
		t.Fatalf("ForceTransfer() error = %v", err)
	}

	session, err := alloc.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	allocation, err := session.Allocate(ctx, 1, winner)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if !allocation.Minted {
		t.Error("stale entry should fall back to a fresh mint")
	}
	if allocation.CollectibleID != entry.ID+1 {
		t.Errorf("fallback id = %d, want %d", allocation.CollectibleID, entry.ID+1)
	}
	commit(t, session)

	// The stale holder keeps the collectible.
	owner, _ := ledger.OwnerOf(ctx, entry.ID)
	if owner != other {
		t.Errorf("stale collectible owner = %s, want %s", owner, other)
	}
	counter, _ := pool.MintCounter(ctx)
	if counter != entry.ID+1 {
		t.Errorf("counter = %d, want %d", counter, entry.ID+1)
	}
}

func TestSession_ApprovedStaleEntryStillTransfers(t *testing.T) {
	alloc, ledger, _ := newAllocator(t)
	ctx := context.Background()

	entry, err := alloc.MintToPool(ctx, 1)
	if err != nil {
		t.Fatalf("MintToPool() error = %v", err)
	}
	if err := ledger.ForceTransfer(entry.ID, other); err != nil {
		t.Fatalf("ForceTransfer() error = %v", err)
	}
	// The new holder re-approves the lottery, so the entry is usable again.
	if err := ledger.Approve(entry.ID, escrow); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	session, err := alloc.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	allocation, err := session.Allocate(ctx, 1, winner)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if allocation.Minted || allocation.CollectibleID != entry.ID {
		t.Errorf("allocation = %+v, want transfer of re-approved entry", allocation)
	}
	commit(t, session)

	owner, _ := ledger.OwnerOf(ctx, entry.ID)
	if owner != winner {
		t.Errorf("collectible owner = %s, want winner", owner)
	}
}

func TestSession_SameEntryNotAwardedTwice(t *testing.T) {
	alloc, _, _ := newAllocator(t)
	ctx := context.Background()

	entry, err := alloc.MintToPool(ctx, 1)
	if err != nil {
		t.Fatalf("MintToPool() error = %v", err)
	}

	session, err := alloc.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	first, err := session.Allocate(ctx, 1, winner)
	if err != nil {
		t.Fatalf("first Allocate() error = %v", err)
	}
	second, err := session.Allocate(ctx, 1, other)
	if err != nil {
		t.Fatalf("second Allocate() error = %v", err)
	}

	if first.Minted || first.CollectibleID != entry.ID {
		t.Errorf("first allocation = %+v, want pooled transfer", first)
	}
	if !second.Minted {
		t.Error("second winner of the same pooled entry should get a mint")
	}
	if second.CollectibleID == first.CollectibleID {
		t.Error("both winners received the same collectible")
	}
	commit(t, session)
}

func TestMemoryLedger_ApplyIsAtomic(t *testing.T) {
	ledger := NewMemoryLedger(escrow)
	ctx := context.Background()

	if err := ledger.Mint(ctx, 1, ImageRef(1), escrow); err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	// Second op mints an id that already exists, so the whole batch must
	// be rejected, including the valid transfer before it.
	err := ledger.Apply(ctx, []Op{
		{Kind: OpTransfer, ID: 1, From: escrow, To: winner},
		{Kind: OpMint, ID: 1, ImageRef: ImageRef(1), To: other},
	})
	if err == nil {
		t.Fatal("Apply() with conflicting mint should fail")
	}

	owner, _ := ledger.OwnerOf(ctx, 1)
	if owner != escrow {
		t.Errorf("owner after failed batch = %s, want escrow untouched", owner)
	}
}

func TestMemoryLedger_TransferRequiresRights(t *testing.T) {
	ledger := NewMemoryLedger(escrow)
	ctx := context.Background()

	if err := ledger.Mint(ctx, 1, ImageRef(1), other); err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	if err := ledger.TransferFrom(ctx, other, winner, 1); err == nil {
		t.Fatal("transfer without approval should fail")
	}

	ledger.SetApprovalForAll(other, escrow, true)
	if err := ledger.TransferFrom(ctx, other, winner, 1); err != nil {
		t.Fatalf("transfer with operator approval error = %v", err)
	}
	owner, _ := ledger.OwnerOf(ctx, 1)
	if owner != winner {
		t.Errorf("owner = %s, want winner", owner)
	}
}
