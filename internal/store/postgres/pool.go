package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ApplicationName is reported to the server for every pooled connection.
const ApplicationName = "rfpcore"

// PoolConfig sizes the pgx connection pool. Durations are whole seconds so
// they map directly onto integer CLI flags.
type PoolConfig struct {
	// ConnString is a postgres:// URL or keyword/value DSN.
	ConnString string

	MaxConns int32 // default 20
	MinConns int32 // default 5

	MaxConnLifetime   int32 // default 3600
	MaxConnIdleTime   int32 // default 1800
	HealthCheckPeriod int32 // default 60
	ConnectTimeout    int32 // default 10
}

// Validate checks that the pool configuration is usable.
func (c *PoolConfig) Validate() error {
	if c.ConnString == "" {
		return errors.New("connection string is required")
	}
	if c.MinConns > c.MaxConns {
		return fmt.Errorf("min conns (%d) exceeds max conns (%d)", c.MinConns, c.MaxConns)
	}
	return nil
}

// ApplyDefaults fills unset fields.
func (c *PoolConfig) ApplyDefaults() {
	setDefault(&c.MaxConns, 20)
	setDefault(&c.MinConns, 5)
	setDefault(&c.MaxConnLifetime, 3600)
	setDefault(&c.MaxConnIdleTime, 1800)
	setDefault(&c.HealthCheckPeriod, 60)
	setDefault(&c.ConnectTimeout, 10)
	if c.MinConns > c.MaxConns {
		c.MinConns = c.MaxConns
	}
}

func setDefault(v *int32, def int32) {
	if *v == 0 {
		*v = def
	}
}

func seconds(n int32) time.Duration {
	return time.Duration(n) * time.Second
}

// pgxConfig translates the configuration into pgxpool settings.
func (c *PoolConfig) pgxConfig() (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(c.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pc.MaxConns = c.MaxConns
	pc.MinConns = c.MinConns
	pc.MaxConnLifetime = seconds(c.MaxConnLifetime)
	pc.MaxConnIdleTime = seconds(c.MaxConnIdleTime)
	pc.HealthCheckPeriod = seconds(c.HealthCheckPeriod)
	pc.ConnConfig.ConnectTimeout = seconds(c.ConnectTimeout)

	if _, ok := pc.ConnConfig.RuntimeParams["application_name"]; !ok {
		pc.ConnConfig.RuntimeParams["application_name"] = ApplicationName
	}
	// Timestamps are read back in UTC, as the memory store keeps them.
	pc.ConnConfig.RuntimeParams["timezone"] = "UTC"

	return pc, nil
}

// NewPool opens a pool and pings the server so connection errors surface
// immediately rather than on first use.
func NewPool(ctx context.Context, cfg *PoolConfig) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, errors.New("pool config is required")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pool config: %w", err)
	}

	pc, err := cfg.pgxConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
