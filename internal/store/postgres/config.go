package postgres

import (
	"fmt"
)

// Config holds configuration for the PostgreSQL stores.
// Pool configuration is embedded so a single flag set can fill both.
type Config struct {
	PoolConfig

	// AutoMigrate applies pending migrations when the database is opened.
	AutoMigrate bool

	// MonitorIntervalSeconds is the period between connection pool stat logs.
	// Default: 30
	MonitorIntervalSeconds int32
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := c.PoolConfig.Validate(); err != nil {
		return err
	}
	if c.MonitorIntervalSeconds < 0 {
		return fmt.Errorf("monitor interval must not be negative")
	}
	return nil
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *Config) ApplyDefaults() {
	c.PoolConfig.ApplyDefaults()
	if c.MonitorIntervalSeconds == 0 {
		c.MonitorIntervalSeconds = 30
	}
}
