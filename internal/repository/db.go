// Package repository persists match snapshots in Postgres, or in memory when
// no database is configured.
package repository

import (
	"context"
	"fmt"

	"github.com/coupline/coup-server-go/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DB wraps the pgx connection pool.
type DB struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewDB opens a pool for cfg.DSN and checks connectivity.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if logger != nil {
		logger.Info("connected to database",
			zap.String("host", poolCfg.ConnConfig.Host),
			zap.String("database", poolCfg.ConnConfig.Database),
			zap.Int32("max_conns", poolCfg.MaxConns),
		)
	}
	return &DB{pool: pool, logger: logger}, nil
}

// Pool exposes the underlying pool.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Stats returns pool statistics.
func (db *DB) Stats() *pgxpool.Stat {
	return db.pool.Stat()
}

// Close releases every connection.
func (db *DB) Close() {
	db.pool.Close()
}
