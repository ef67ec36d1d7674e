// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/yardgoats-tracker/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// Statements maps prepared statement names to SQL. Tables are described in
// schema.sql; schema changes are applied outside this service.
var Statements = map[string]string{
	// Health
	"health_check": "SELECT 1",

	// Schedule (read side)
	"latest_game_update": "SELECT MAX(updated_at) FROM games",
	"games_on_date": `
		SELECT g.id, g.game_date, g.day_of_week, g.start_time, g.opponent,
		       g.is_home, g.ticket_url, g.updated_at,
		       COALESCE(
		           json_agg(json_build_object(
		               'promo_type', p.promo_type,
		               'description', COALESCE(p.description, '')
		           ) ORDER BY p.id) FILTER (WHERE p.id IS NOT NULL),
		           '[]'::json)
		FROM games g
		LEFT JOIN promotions p ON p.game_id = g.id
		WHERE g.game_date = $1
		GROUP BY g.id
		ORDER BY g.id`,

	// Schedule (ingestion side)
	"upsert_game": `
		INSERT INTO games (game_date, day_of_week, start_time, opponent, is_home, ticket_url, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))
		ON CONFLICT (game_date) DO UPDATE SET
			day_of_week = EXCLUDED.day_of_week,
			start_time  = EXCLUDED.start_time,
			opponent    = EXCLUDED.opponent,
			is_home     = EXCLUDED.is_home,
			ticket_url  = EXCLUDED.ticket_url,
			updated_at  = EXCLUDED.updated_at
		RETURNING id`,
	"delete_promotions": "DELETE FROM promotions WHERE game_id = $1",
	"insert_promotion":  "INSERT INTO promotions (game_id, promo_type, description) VALUES ($1, $2, $3)",
	"game_exists":       "SELECT 1 FROM games WHERE id = $1",

	// Recipients
	"insert_recipient":     "INSERT INTO recipients (name, phone, email, active) VALUES ($1, $2, $3, true) RETURNING id",
	"list_recipients":      "SELECT id, name, phone, email, active, created_at FROM recipients WHERE active OR NOT $1 ORDER BY id",
	"set_recipient_active": "UPDATE recipients SET active = $2 WHERE id = $1",

	// Delivery ledger
	"has_delivery": "SELECT EXISTS (SELECT 1 FROM alert_deliveries WHERE game_id = $1 AND recipient_id = $2 AND channel = $3)",
	"record_delivery": `
		INSERT INTO alert_deliveries (game_id, recipient_id, channel, status, detail, run_id, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (game_id, recipient_id, channel) DO UPDATE SET
			status  = EXCLUDED.status,
			detail  = EXCLUDED.detail,
			run_id  = EXCLUDED.run_id,
			sent_at = EXCLUDED.sent_at`,
	"list_deliveries": `
		SELECT game_id, recipient_id, channel, status, detail, run_id, sent_at
		FROM alert_deliveries
		WHERE $1 = 0 OR game_id = $1
		ORDER BY sent_at DESC`,
	"prune_deliveries": "DELETE FROM alert_deliveries WHERE sent_at < $1",

	// Run lock
	"try_run_lock": "SELECT pg_try_advisory_lock($1)",
	"run_unlock":   "SELECT pg_advisory_unlock($1)",
}

// registerPreparedStatements registers every statement the alert engine and
// admin tooling use.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	for name, sql := range Statements {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
