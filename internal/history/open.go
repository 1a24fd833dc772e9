package history

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/profiler/internal/config"
)

// Open returns the store selected by cfg: PostgreSQL when a database URL is
// configured, memory otherwise. The returned close function releases the pool.
func Open(ctx context.Context, cfg config.HistoryConfig) (Store, func(), error) {
	if !cfg.Persistent() {
		slog.Info("upload history kept in memory", "capacity", cfg.MemoryCapacity)
		return NewMemoryStore(cfg.MemoryCapacity), func() {}, nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	store, err := NewPgStore(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	if u, err := url.Parse(cfg.DatabaseURL); err == nil {
		slog.Info("upload history stored in database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return store, pool.Close, nil
}
