package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/rfpcore/internal/models"
	"github.com/wolfeidau/rfpcore/internal/ownership"
	"github.com/wolfeidau/rfpcore/internal/store"
)

const organizationColumns = `org_id, name, domain, created_at, updated_at`

// OrganizationStore implements store.OrganizationStore using PostgreSQL.
type OrganizationStore struct {
	pool *pgxpool.Pool
}

// NewOrganizationStore returns a store sharing pool with the other stores.
func NewOrganizationStore(pool *pgxpool.Pool) *OrganizationStore {
	return &OrganizationStore{pool: pool}
}

func scanOrganization(row pgx.Row) (*models.Organization, error) {
	var org models.Organization
	if err := row.Scan(&org.OrgID, &org.Name, &org.Domain, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return nil, err
	}
	return &org, nil
}

// Create inserts a tenant, defaulting its domain.
func (s *OrganizationStore) Create(ctx context.Context, org *models.Organization) error {
	if org.Domain == "" {
		org.Domain = models.DefaultDomain
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO organizations (`+organizationColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		org.OrgID, org.Name, org.Domain, org.CreatedAt, org.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "organizations_pkey") {
			return store.ErrOrganizationAlreadyExists
		}
		return fmt.Errorf("failed to create organization: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("org_id", org.OrgID.String()).
		Str("domain", org.Domain).
		Msg("Created organization")

	return nil
}

func (s *OrganizationStore) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	org, err := scanOrganization(s.pool.QueryRow(ctx,
		`SELECT `+organizationColumns+` FROM organizations WHERE org_id = $1`, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// Update rewrites name and domain. created_at is never changed and is read
// back into org.
func (s *OrganizationStore) Update(ctx context.Context, org *models.Organization) error {
	if org.Domain == "" {
		org.Domain = models.DefaultDomain
	}

	updated, err := scanOrganization(s.pool.QueryRow(ctx, `
		UPDATE organizations SET name = $2, domain = $3, updated_at = $4
		WHERE org_id = $1
		RETURNING `+organizationColumns,
		org.OrgID, org.Name, org.Domain, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrOrganizationNotFound
		}
		return fmt.Errorf("failed to update organization: %w", mapPostgresError(err))
	}
	*org = *updated

	log.Debug().Str("org_id", org.OrgID.String()).Msg("Updated organization")

	return nil
}

// Delete removes a tenant. Its users, private catalogue rows, proposals and
// snapshots go with it through cascading foreign keys; a protect reference
// from another tenant's proposal fails the whole delete.
func (s *OrganizationStore) Delete(ctx context.Context, orgID uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM organizations WHERE org_id = $1`, orgID)
	if err != nil {
		return mapDeleteError(err, ownership.RelationOrganization, orgID)
	}
	if result.RowsAffected() == 0 {
		return store.ErrOrganizationNotFound
	}

	log.Info().Str("org_id", orgID.String()).Msg("Deleted organization")

	return nil
}

// List returns every organization in byte-wise name order.
func (s *OrganizationStore) List(ctx context.Context) ([]*models.Organization, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+organizationColumns+` FROM organizations ORDER BY name COLLATE "C", org_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}

	orgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Organization, error) {
		return scanOrganization(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan organizations: %w", err)
	}
	return orgs, nil
}
