package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"

	"github.com/albapepper/yardgoats-tracker/internal/db"
	"github.com/albapepper/yardgoats-tracker/internal/recipients"
	"github.com/albapepper/yardgoats-tracker/internal/schedule"
)

// runLockKey is the advisory lock id for the alert job ("ygalerts").
const runLockKey int64 = 0x7967616c65727473

// Postgres is the hosted Store. Every query goes through the prepared
// statements registered by internal/db.
type Postgres struct {
	pool *db.Pool
}

// NewPostgres wraps an open pool. The caller owns the pool's lifetime.
func NewPostgres(pool *db.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Ping runs the pool's health check.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.HealthCheck(ctx)
}

// Close is a no-op; the pool is closed by whoever opened it.
func (s *Postgres) Close() error { return nil }

// AcquireRunLock takes a session-level advisory lock on a dedicated
// connection, held until release is called.
func (s *Postgres) AcquireRunLock(ctx context.Context) (func(), error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock connection: %w", err)
	}

	var locked bool
	if err := conn.QueryRow(ctx, "try_run_lock", runLockKey).Scan(&locked); err != nil {
		conn.Release()
		return nil, fmt.Errorf("try advisory lock: %w", err)
	}
	if !locked {
		conn.Release()
		return nil, ErrRunInProgress
	}

	return func() {
		_, _ = conn.Exec(context.Background(), "run_unlock", runLockKey)
		conn.Release()
	}, nil
}

// --------------------------------------------------------------------------
// Schedule
// --------------------------------------------------------------------------

func (s *Postgres) LatestUpdate(ctx context.Context) (*time.Time, error) {
	var latest *time.Time
	if err := s.pool.QueryRow(ctx, "latest_game_update").Scan(&latest); err != nil {
		return nil, fmt.Errorf("latest game update: %w", err)
	}
	return latest, nil
}

func (s *Postgres) GamesOn(ctx context.Context, date time.Time) ([]schedule.Game, error) {
	rows, err := s.pool.Query(ctx, "games_on_date", schedule.DateOf(date))
	if err != nil {
		return nil, fmt.Errorf("games on date: %w", err)
	}
	defer rows.Close()

	var games []schedule.Game
	for rows.Next() {
		var (
			g      schedule.Game
			promos []byte
		)
		if err := rows.Scan(
			&g.ID, &g.Date, &g.DayOfWeek, &g.StartTime, &g.Opponent,
			&g.IsHome, &g.TicketURL, &g.UpdatedAt, &promos,
		); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		if err := json.Unmarshal(promos, &g.Promotions); err != nil {
			return nil, fmt.Errorf("decode promotions for game %d: %w", g.ID, err)
		}
		g.Date = schedule.DateOf(g.Date)
		games = append(games, g)
	}
	return games, rows.Err()
}

func (s *Postgres) UpsertGame(ctx context.Context, g schedule.Game) (int64, error) {
	var updatedAt *time.Time
	if !g.UpdatedAt.IsZero() {
		updatedAt = &g.UpdatedAt
	}

	var id int64
	err := s.pool.QueryRow(ctx, "upsert_game",
		schedule.DateOf(g.Date), g.DayOfWeek, g.StartTime, g.Opponent,
		g.IsHome, g.TicketURL, updatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert game: %w", err)
	}
	return id, nil
}

// ReplacePromotions deletes and re-inserts a game's promotions in one
// transaction.
func (s *Postgres) ReplacePromotions(ctx context.Context, gameID int64, promos []schedule.Promotion) error {
	if err := checkPromotions(promos); err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var n int
		if err := tx.QueryRow(ctx, "game_exists", gameID).Scan(&n); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("replace promotions for game %d: %w", gameID, ErrNotFound)
			}
			return fmt.Errorf("check game: %w", err)
		}
		if _, err := tx.Exec(ctx, "delete_promotions", gameID); err != nil {
			return fmt.Errorf("delete promotions: %w", err)
		}
		for _, p := range promos {
			if _, err := tx.Exec(ctx, "insert_promotion", gameID, string(p.Type), p.Description); err != nil {
				return fmt.Errorf("insert promotion: %w", err)
			}
		}
		return nil
	})
}

// --------------------------------------------------------------------------
// Recipients
// --------------------------------------------------------------------------

func (s *Postgres) AddRecipient(ctx context.Context, r recipients.Recipient) (int64, error) {
	if err := checkContact(r); err != nil {
		return 0, err
	}
	var id int64
	if err := s.pool.QueryRow(ctx, "insert_recipient", r.Name, r.Phone, r.Email).Scan(&id); err != nil {
		return 0, fmt.Errorf("add recipient: %w", err)
	}
	return id, nil
}

func (s *Postgres) ListRecipients(ctx context.Context, activeOnly bool) ([]recipients.Recipient, error) {
	rows, err := s.pool.Query(ctx, "list_recipients", activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	defer rows.Close()

	var out []recipients.Recipient
	for rows.Next() {
		var r recipients.Recipient
		if err := rows.Scan(&r.ID, &r.Name, &r.Phone, &r.Email, &r.Active, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Postgres) SetRecipientActive(ctx context.Context, id int64, active bool) error {
	tag, err := s.pool.Exec(ctx, "set_recipient_active", id, active)
	if err != nil {
		return fmt.Errorf("set recipient active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("recipient %d: %w", id, ErrNotFound)
	}
	return nil
}

// --------------------------------------------------------------------------
// Ledger
// --------------------------------------------------------------------------

func (s *Postgres) HasDelivery(ctx context.Context, key DeliveryKey) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, "has_delivery", key.GameID, key.RecipientID, string(key.Channel)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check delivery: %w", err)
	}
	return exists, nil
}

func (s *Postgres) RecordDelivery(ctx context.Context, d Delivery) error {
	if d.SentAt.IsZero() {
		d.SentAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, "record_delivery",
		d.GameID, d.RecipientID, string(d.Channel), string(d.Status),
		d.Detail, d.RunID, d.SentAt,
	)
	if err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	return nil
}

func (s *Postgres) ListDeliveries(ctx context.Context, gameID int64) ([]Delivery, error) {
	rows, err := s.pool.Query(ctx, "list_deliveries", gameID)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		var (
			d               Delivery
			channel, status string
		)
		if err := rows.Scan(&d.GameID, &d.RecipientID, &channel, &status, &d.Detail, &d.RunID, &d.SentAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		d.Channel = Channel(channel)
		d.Status = Status(status)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Postgres) PruneDeliveries(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, "prune_deliveries", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune deliveries: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
