package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/rfpcore/internal/catalog"
	"github.com/wolfeidau/rfpcore/internal/invite"
	"github.com/wolfeidau/rfpcore/internal/logger"
	"github.com/wolfeidau/rfpcore/internal/rolesync"
	"github.com/wolfeidau/rfpcore/internal/snapshot"
	"github.com/wolfeidau/rfpcore/internal/store"
	"github.com/wolfeidau/rfpcore/internal/store/memory"
	"github.com/wolfeidau/rfpcore/internal/store/postgres"
	"github.com/wolfeidau/rfpcore/internal/telemetry"
)

type Globals struct {
	Debug     bool
	Telemetry bool
	Version   string
	Store     *StoreFlags
	Tokens    TokenFlags
}

type TokenFlags struct {
	InviteTTL time.Duration `help:"how long invites stay valid" default:"168h" env:"RFP_INVITE_TTL"`
	ResetTTL  time.Duration `help:"how long password reset tokens stay valid" default:"1h" env:"RFP_RESET_TTL"`
}

func (t TokenFlags) options() []invite.Option {
	var opts []invite.Option
	if t.InviteTTL > 0 {
		opts = append(opts, invite.WithInviteTTL(t.InviteTTL))
	}
	if t.ResetTTL > 0 {
		opts = append(opts, invite.WithResetTTL(t.ResetTTL))
	}
	return opts
}

type StoreFlags struct {
	StoreType string        `name:"store" help:"store type (memory or postgres)" default:"memory" env:"RFP_STORE" enum:"memory,postgres"`
	Postgres  PostgresFlags `embed:"" prefix:"postgres-"`
}

type PostgresFlags struct {
	// Connection Configuration
	ConnString  string        `help:"PostgreSQL connection string" env:"RFP_POSTGRES_CONNECTION_STRING"`
	WaitTimeout time.Duration `help:"how long to wait for the database to accept connections" default:"30s" env:"RFP_POSTGRES_WAIT_TIMEOUT"`

	// Connection Pool Configuration
	MaxConns        int32 `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32 `help:"minimum number of connections in pool" default:"1"`
	MaxConnLifetime int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32 `help:"maximum connection idle time in seconds" default:"1800"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"RFP_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or RFP_POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

func (s *PostgresFlags) config() *postgres.Config {
	return &postgres.Config{
		PoolConfig: postgres.PoolConfig{
			ConnString:      s.ConnString,
			MaxConns:        s.MaxConns,
			MinConns:        s.MinConns,
			MaxConnLifetime: s.MaxConnLifetime,
			MaxConnIdleTime: s.MaxConnIdleTime,
		},
		AutoMigrate: s.AutoMigrate,
	}
}

// Backend bundles the stores and services of one store type.
type Backend struct {
	Name string

	Orgs  store.OrganizationStore
	Users store.UserStore
	Roles store.RoleStore
	Rows  store.CatalogStore
	RFPs  store.RFPStore

	Catalog   *catalog.Service
	Proposals *catalog.Proposals
	Sync      *rolesync.Engine
	Finalizer *snapshot.Finalizer
	Invites   *invite.Service

	// DB is set for the postgres store only.
	DB *postgres.DB

	log      zerolog.Logger
	shutdown []func()
}

// Close releases the backend's connections and flushes telemetry.
func (b *Backend) Close() {
	for i := len(b.shutdown) - 1; i >= 0; i-- {
		b.shutdown[i]()
	}
}

// Run wraps one operation in a span and logs its outcome.
func (b *Backend) Run(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, endSpan := telemetry.Span(ctx, name)
	ctx, done := logger.Operation(ctx, b.log, name, b.Name)
	err := fn(ctx)
	done(err)
	endSpan(err)
	return err
}

// Open builds the backend selected by the store flags.
func (g *Globals) Open(ctx context.Context) (*Backend, error) {
	l := logger.Setup(g.Debug)
	log.Logger = l

	b := &Backend{Name: g.Store.StoreType, log: l}

	if g.Telemetry {
		shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Config{ServiceName: "rfpctl", Version: g.Version})
		if err != nil {
			l.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
		} else {
			b.shutdown = append(b.shutdown, func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					l.Error().Err(err).Msg("Failed to shutdown telemetry")
				}
			})
		}
	}

	switch g.Store.StoreType {
	case "postgres":
		db, err := g.Store.Postgres.connect(ctx)
		if err != nil {
			b.Close()
			return nil, err
		}
		db.Start()
		b.DB = db
		b.shutdown = append(b.shutdown, db.Close)

		pool := db.Pool()
		b.Orgs = postgres.NewOrganizationStore(pool)
		b.Users = postgres.NewUserStore(pool)
		b.Roles = postgres.NewRoleStore(pool)
		b.Rows = postgres.NewCatalogStore(pool)
		b.RFPs = postgres.NewRFPStore(pool)
		b.Invites = invite.NewService(postgres.NewInviteStore(pool), g.Tokens.options()...)
	default:
		l.Warn().Msg("Using in-memory store, state is discarded on exit")

		db := memory.NewDB()
		b.Orgs = memory.NewOrganizationStore(db)
		b.Users = memory.NewUserStore(db)
		b.Roles = memory.NewRoleStore(db)
		b.Rows = memory.NewCatalogStore(db)
		b.RFPs = memory.NewRFPStore(db)
		b.Invites = invite.NewService(memory.NewInviteStore(db), g.Tokens.options()...)
	}

	b.Catalog = catalog.NewService(b.Rows)
	b.Proposals = catalog.NewProposals(b.RFPs, b.Rows, b.Users)
	b.Sync = rolesync.NewEngine(b.Users)
	b.Finalizer = snapshot.NewFinalizer(b.RFPs)

	return b, nil
}

// connect opens the database, retrying with exponential backoff until it
// accepts connections or the wait timeout passes.
func (s *PostgresFlags) connect(ctx context.Context) (*postgres.DB, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	cfg := s.config()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid postgres configuration: %w", err)
	}

	return backoff.Retry(ctx, func() (*postgres.DB, error) {
		return postgres.Open(ctx, cfg)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(s.WaitTimeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Dur("retry_in", next).Msg("Database not ready")
		}),
	)
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

// parseOptionalID treats an empty string as no organization.
func parseOptionalID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := parseID(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseIDs(values []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := parseID(v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func formatID(id *uuid.UUID) string {
	if id == nil {
		return "-"
	}
	return id.String()
}

func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
