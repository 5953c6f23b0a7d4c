// Package postgres persists lottery state, tickets, and the collectible
// prize pool in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/R3E-Network/nft_lottery/internal/collectible"
	"github.com/R3E-Network/nft_lottery/internal/lottery"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store implements lottery.Store and collectible.PoolStore on PostgreSQL.
type Store struct {
	db *sqlx.DB
}

// Open connects to the database and runs pending migrations.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := Migrate(db.DB); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection without running migrations. Used by
// tests that drive the store against a mock.
func NewWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Migrate applies all pending schema migrations.
func Migrate(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

type stateRow struct {
	Operator        string    `db:"operator"`
	TicketPrice     int64     `db:"ticket_price"`
	RoundDuration   int64     `db:"round_duration"`
	EndRoundBlock   int64     `db:"end_round_block"`
	Phase           string    `db:"phase"`
	LotteryActive   bool      `db:"lottery_active"`
	RoundNumber     int64     `db:"round_number"`
	Winning         []byte    `db:"winning"`
	Distribution    []byte    `db:"distribution"`
	RoundsCompleted int64     `db:"rounds_completed"`
	TicketsSold     int64     `db:"tickets_sold"`
	PrizesAwarded   int64     `db:"prizes_awarded"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// GetState implements lottery.Store.
func (s *Store) GetState(ctx context.Context) (*lottery.State, error) {
	var row stateRow
	err := s.db.GetContext(ctx, &row, `
		SELECT operator, ticket_price, round_duration, end_round_block, phase,
		       lottery_active, round_number, winning, distribution,
		       rounds_completed, tickets_sold, prizes_awarded, updated_at
		FROM lottery_state WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lottery state: %w", err)
	}

	state := &lottery.State{
		Operator:        row.Operator,
		TicketPrice:     row.TicketPrice,
		RoundDuration:   uint64(row.RoundDuration),
		EndRoundBlock:   uint64(row.EndRoundBlock),
		Phase:           lottery.Phase(row.Phase),
		LotteryActive:   row.LotteryActive,
		RoundNumber:     row.RoundNumber,
		RoundsCompleted: row.RoundsCompleted,
		TicketsSold:     row.TicketsSold,
		PrizesAwarded:   row.PrizesAwarded,
		UpdatedAt:       row.UpdatedAt,
	}
	if len(row.Winning) > 0 {
		var w lottery.WinningTicket
		if err := json.Unmarshal(row.Winning, &w); err != nil {
			return nil, fmt.Errorf("decode winning ticket: %w", err)
		}
		state.Winning = &w
	}
	if len(row.Distribution) > 0 {
		var d lottery.PendingDistribution
		if err := json.Unmarshal(row.Distribution, &d); err != nil {
			return nil, fmt.Errorf("decode pending distribution: %w", err)
		}
		state.Distribution = &d
	}
	return state, nil
}

// SaveState implements lottery.Store.
func (s *Store) SaveState(ctx context.Context, state *lottery.State) error {
	if state == nil {
		return fmt.Errorf("nil state")
	}
	var winning []byte
	if state.Winning != nil {
		raw, err := json.Marshal(state.Winning)
		if err != nil {
			return fmt.Errorf("encode winning ticket: %w", err)
		}
		winning = raw
	}
	var distribution []byte
	if state.Distribution != nil {
		raw, err := json.Marshal(state.Distribution)
		if err != nil {
			return fmt.Errorf("encode pending distribution: %w", err)
		}
		distribution = raw
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lottery_state (
			id, operator, ticket_price, round_duration, end_round_block,
			phase, lottery_active, round_number, winning, distribution,
			rounds_completed, tickets_sold, prizes_awarded, updated_at
		) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			operator = EXCLUDED.operator,
			ticket_price = EXCLUDED.ticket_price,
			round_duration = EXCLUDED.round_duration,
			end_round_block = EXCLUDED.end_round_block,
			phase = EXCLUDED.phase,
			lottery_active = EXCLUDED.lottery_active,
			round_number = EXCLUDED.round_number,
			winning = EXCLUDED.winning,
			distribution = EXCLUDED.distribution,
			rounds_completed = EXCLUDED.rounds_completed,
			tickets_sold = EXCLUDED.tickets_sold,
			prizes_awarded = EXCLUDED.prizes_awarded,
			updated_at = EXCLUDED.updated_at`,
		state.Operator, state.TicketPrice, int64(state.RoundDuration),
		int64(state.EndRoundBlock), string(state.Phase), state.LotteryActive,
		state.RoundNumber, winning, distribution, state.RoundsCompleted,
		state.TicketsSold, state.PrizesAwarded, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save lottery state: %w", err)
	}
	return nil
}

type ticketRow struct {
	ID            string    `db:"id"`
	Owner         string    `db:"owner_address"`
	Numbers       []byte    `db:"numbers"`
	Bonus         int       `db:"bonus"`
	Price         int64     `db:"price"`
	Index         int64     `db:"idx"`
	PrizeTier     int       `db:"prize_tier"`
	CollectibleID int64     `db:"collectible_id"`
	PurchasedAt   time.Time `db:"purchased_at"`
}

func (r ticketRow) toTicket() (*lottery.Ticket, error) {
	var numbers [lottery.MainNumberCount]int
	if err := json.Unmarshal(r.Numbers, &numbers); err != nil {
		return nil, fmt.Errorf("decode ticket %s numbers: %w", r.ID, err)
	}
	return &lottery.Ticket{
		ID:            r.ID,
		Owner:         r.Owner,
		Numbers:       numbers,
		Bonus:         r.Bonus,
		Price:         r.Price,
		Index:         r.Index,
		PrizeTier:     r.PrizeTier,
		CollectibleID: uint64(r.CollectibleID),
		PurchasedAt:   r.PurchasedAt,
	}, nil
}

// AppendTicket implements lottery.Store.
func (s *Store) AppendTicket(ctx context.Context, ticket *lottery.Ticket) error {
	numbers, err := json.Marshal(ticket.Numbers)
	if err != nil {
		return fmt.Errorf("encode ticket numbers: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tickets (id, owner_address, numbers, bonus, price, idx,
		                     prize_tier, collectible_id, purchased_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ticket.ID, ticket.Owner, numbers, ticket.Bonus, ticket.Price,
		ticket.Index, ticket.PrizeTier, int64(ticket.CollectibleID),
		ticket.PurchasedAt)
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

// ListTickets implements lottery.Store.
func (s *Store) ListTickets(ctx context.Context) ([]*lottery.Ticket, error) {
	var rows []ticketRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, owner_address, numbers, bonus, price, idx, prize_tier,
		       collectible_id, purchased_at
		FROM tickets ORDER BY idx`)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}

	out := make([]*lottery.Ticket, 0, len(rows))
	for _, r := range rows {
		t, err := r.toTicket()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// UpdateTicket implements lottery.Store.
func (s *Store) UpdateTicket(ctx context.Context, ticket *lottery.Ticket) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tickets
		SET prize_tier = $2, collectible_id = $3
		WHERE id = $1`,
		ticket.ID, ticket.PrizeTier, int64(ticket.CollectibleID))
	if err != nil {
		return fmt.Errorf("update ticket: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update ticket: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("ticket %s not found", ticket.ID)
	}
	return nil
}

// ClearTickets implements lottery.Store.
func (s *Store) ClearTickets(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tickets`); err != nil {
		return fmt.Errorf("clear tickets: %w", err)
	}
	return nil
}

// CountTickets implements lottery.Store.
func (s *Store) CountTickets(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM tickets`); err != nil {
		return 0, fmt.Errorf("count tickets: %w", err)
	}
	return n, nil
}

type poolRow struct {
	ID       int64     `db:"id"`
	Tier     int       `db:"tier"`
	ImageRef string    `db:"image_ref"`
	AddedAt  time.Time `db:"added_at"`
}

// PoolEntries implements collectible.PoolStore. Entries come back ordered by
// id so the allocator's counter-based selection is stable.
func (s *Store) PoolEntries(ctx context.Context, tier int) ([]collectible.PoolEntry, error) {
	var rows []poolRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, tier, image_ref, added_at
		FROM pool_entries WHERE tier = $1 ORDER BY id`, tier)
	if err != nil {
		return nil, fmt.Errorf("list tier %d pool: %w", tier, err)
	}

	out := make([]collectible.PoolEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, collectible.PoolEntry{
			ID:       uint64(r.ID),
			Tier:     r.Tier,
			ImageRef: r.ImageRef,
			AddedAt:  r.AddedAt,
		})
	}
	return out, nil
}

// AddPoolEntry implements collectible.PoolStore.
func (s *Store) AddPoolEntry(ctx context.Context, entry collectible.PoolEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pool_entries (id, tier, image_ref, added_at)
		VALUES ($1, $2, $3, $4)`,
		int64(entry.ID), entry.Tier, entry.ImageRef, entry.AddedAt)
	if err != nil {
		return fmt.Errorf("insert pool entry: %w", err)
	}
	return nil
}

// MintCounter implements collectible.PoolStore.
func (s *Store) MintCounter(ctx context.Context) (uint64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n,
		`SELECT value FROM counters WHERE name = 'mint_counter'`)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read mint counter: %w", err)
	}
	return uint64(n), nil
}

// SetMintCounter implements collectible.PoolStore.
func (s *Store) SetMintCounter(ctx context.Context, counter uint64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO counters (name, value) VALUES ('mint_counter', $1)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`,
		int64(counter))
	if err != nil {
		return fmt.Errorf("write mint counter: %w", err)
	}
	return nil
}

var (
	_ lottery.Store         = (*Store)(nil)
	_ collectible.PoolStore = (*Store)(nil)
)
