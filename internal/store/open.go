package store

import (
	"context"
	"fmt"

	"github.com/albapepper/yardgoats-tracker/internal/config"
	"github.com/albapepper/yardgoats-tracker/internal/db"
)

// Open returns the Store selected by cfg.StoreDriver. The returned Store's
// Close releases everything Open acquired.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err := db.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		return &ownedPostgres{Postgres: NewPostgres(pool), pool: pool}, nil
	case config.StoreDriverBolt:
		s, err := OpenBolt(cfg.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("open bolt store: %w", err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// ownedPostgres closes the pool it was opened with.
type ownedPostgres struct {
	*Postgres
	pool *db.Pool
}

func (s *ownedPostgres) Close() error {
	s.pool.Close()
	return nil
}
