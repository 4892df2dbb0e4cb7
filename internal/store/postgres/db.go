package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// DB owns the connection pool shared by every PostgreSQL store.
type DB struct {
	pool *pgxpool.Pool
	cfg  *Config

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Open establishes a connection pool and, when enabled, runs migrations.
func Open(ctx context.Context, cfg *Config) (*DB, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	pool, err := NewPool(ctx, &cfg.PoolConfig)
	if err != nil {
		return nil, err
	}

	connConfig := pool.Config().ConnConfig
	log.Info().
		Str("database", connConfig.Database).
		Str("host", connConfig.Host).
		Int32("max_conns", cfg.MaxConns).
		Msg("Connected to PostgreSQL")

	if cfg.AutoMigrate {
		if err := RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return &DB{
		pool:   pool,
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}, nil
}

// Pool returns the underlying connection pool.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Start starts background tasks.
func (db *DB) Start() {
	db.wg.Add(1)
	go func() {
		defer db.wg.Done()
		db.monitorConnectionPool()
	}()
}

// Close stops background tasks and closes the pool.
func (db *DB) Close() {
	close(db.stopCh)
	db.wg.Wait()
	db.pool.Close()

	log.Info().Msg("PostgreSQL connection pool closed")
}

// monitorConnectionPool logs connection pool statistics periodically.
func (db *DB) monitorConnectionPool() {
	ticker := time.NewTicker(time.Duration(db.cfg.MonitorIntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats := db.pool.Stat()
			log.Debug().
				Int32("total_conns", stats.TotalConns()).
				Int32("idle_conns", stats.IdleConns()).
				Int32("acquired_conns", stats.AcquiredConns()).
				Int64("acquire_count", stats.AcquireCount()).
				Int64("acquire_duration_ns", stats.AcquireDuration().Nanoseconds()).
				Msg("Connection pool stats")
		case <-db.stopCh:
			return
		}
	}
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var snapshotTx = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

// readSnapshot runs fn in a read-only REPEATABLE READ transaction so that
// reads spanning several statements observe a single snapshot.
func readSnapshot(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	return pgx.BeginTxFunc(ctx, pool, snapshotTx, fn)
}
