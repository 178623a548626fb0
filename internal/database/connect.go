package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/spreadcache/internal/config"
	"github.com/rickgao/spreadcache/internal/store"
)

// Connect creates a connection pool and checks it with a ping.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// OpenStore connects, creates the series table if needed and returns the
// store with the pool backing it. The caller closes the pool.
func OpenStore(ctx context.Context, cfg config.DBConfig) (*store.PostgresStore, *pgxpool.Pool, error) {
	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	st := store.NewPostgresStore(pool)
	if err := st.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return st, pool, nil
}
