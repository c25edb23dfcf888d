package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/chatbot-backend/internal/config"
)

// PoolOptions size the pool for the process using it.
type PoolOptions struct {
	// AppName is reported as application_name in pg_stat_activity.
	AppName string
	// Reserved counts goroutines that may each hold a connection for long
	// stretches: ingest workers and event writer shards. MaxConns is raised so
	// that snapshot reloads and HTTP reads still get a connection.
	Reserved int32
}

// spare connections kept above Reserved.
const spareConns = 2

// NewPool creates a connection pool from cfg and pings it.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, opts PoolOptions) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database DSN: %w", err)
	}

	poolCfg.MaxConns = max(cfg.MaxConns, opts.Reserved+spareConns)
	poolCfg.MinConns = min(cfg.MinConns, poolCfg.MaxConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	if opts.AppName != "" {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = opts.AppName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database %s: %w", poolCfg.ConnConfig.Host, err)
	}

	return pool, nil
}
