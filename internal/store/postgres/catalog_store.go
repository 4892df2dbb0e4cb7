package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/rfpcore/internal/models"
	"github.com/wolfeidau/rfpcore/internal/ownership"
	"github.com/wolfeidau/rfpcore/internal/store"
	"github.com/wolfeidau/rfpcore/internal/visibility"
)

// catalogTable maps one catalogue kind onto its table. Every table shares
// the base columns id, org_id, created_by, created_at and updated_at.
type catalogTable struct {
	name       string
	blockTable string
	columns    []string
	orderBy    string
	join       string
	fields     func(row models.CatalogRow) []any
}

var catalogTables = map[models.Kind]catalogTable{
	models.KindIndustry: {
		name:       "industries",
		blockTable: ownership.TableFor(ownership.RelationIndustryBlock),
		columns:    []string{"name", "description", "url"},
		orderBy:    `t.name COLLATE "C", t.id`,
		fields: func(row models.CatalogRow) []any {
			r := row.(*models.Industry)
			return []any{&r.Name, &r.Description, &r.URL}
		},
	},
	models.KindService: {
		name:    "services",
		columns: []string{"name", "description"},
		orderBy: `t.name COLLATE "C", t.id`,
		fields: func(row models.CatalogRow) []any {
			r := row.(*models.Service)
			return []any{&r.Name, &r.Description}
		},
	},
	models.KindBusinessCycle: {
		name:    "business_cycles",
		columns: []string{"sort_order", "name", "description"},
		orderBy: `t.org_id NULLS FIRST, t.sort_order, t.name COLLATE "C", t.id`,
		fields: func(row models.CatalogRow) []any {
			r := row.(*models.BusinessCycle)
			return []any{&r.Order, &r.Name, &r.Description}
		},
	},
	models.KindFunctionalArea: {
		name:    "functional_areas",
		columns: []string{"business_cycle_id", "sort_order", "name", "description"},
		join:    `JOIN business_cycles c ON c.id = t.business_cycle_id`,
		orderBy: `c.sort_order, t.sort_order, t.name COLLATE "C", t.id`,
		fields: func(row models.CatalogRow) []any {
			r := row.(*models.FunctionalArea)
			return []any{&r.BusinessCycleID, &r.Order, &r.Name, &r.Description}
		},
	},
	models.KindProvider: {
		name:    "providers",
		columns: []string{"company_name", "contact_name", "contact_phone", "contact_email"},
		orderBy: `t.company_name COLLATE "C", t.id`,
		fields: func(row models.CatalogRow) []any {
			r := row.(*models.Provider)
			return []any{&r.CompanyName, &r.ContactName, &r.ContactPhone, &r.ContactEmail}
		},
	},
}

func tableFor(kind models.Kind) (catalogTable, error) {
	t, ok := catalogTables[kind]
	if !ok {
		return catalogTable{}, fmt.Errorf("unknown catalogue kind %q", kind)
	}
	return t, nil
}

// selectList returns the qualified column list used for scanning.
func (t catalogTable) selectList() string {
	cols := []string{"t.id", "t.org_id", "t.created_by", "t.created_at", "t.updated_at"}
	for _, c := range t.columns {
		cols = append(cols, "t."+c)
	}
	return strings.Join(cols, ", ")
}

func (t catalogTable) scan(kind models.Kind, row pgx.Row) (models.CatalogRow, error) {
	out, err := models.NewCatalogRow(kind)
	if err != nil {
		return nil, err
	}
	base := out.Base()
	dest := append([]any{&base.ID, &base.OrgID, &base.CreatedBy, &base.CreatedAt, &base.UpdatedAt}, t.fields(out)...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return out, nil
}

// CatalogStore implements store.CatalogStore using PostgreSQL.
type CatalogStore struct {
	pool *pgxpool.Pool
}

// NewCatalogStore creates a new PostgreSQL-backed catalogue store.
func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

// Create inserts a row. The scope unique index reports duplicate natural keys.
func (s *CatalogStore) Create(ctx context.Context, row models.CatalogRow) error {
	t, err := tableFor(row.Kind())
	if err != nil {
		return err
	}

	base := row.Base()
	if b, ok := row.(models.Blockable); ok && base.OrgID != nil && len(b.Blocks().BlockedFor) > 0 {
		return store.ErrNotGlobal
	}

	cols := append([]string{"id", "org_id", "created_by", "created_at", "updated_at"}, t.columns...)
	args := []any{base.ID, base.OrgID, base.CreatedBy, base.CreatedAt, base.UpdatedAt}
	for _, f := range t.fields(row) {
		args = append(args, deref(f))
	}
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		t.name, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return err
		}
		if b, ok := row.(models.Blockable); ok && t.blockTable != "" {
			for _, org := range b.Blocks().BlockedFor {
				_, err := tx.Exec(ctx, `INSERT INTO `+t.blockTable+` (row_id, org_id) VALUES ($1, $2)`, base.ID, org)
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err, ownership.UniqueConstraint(row.Kind())) {
			return ownership.KeyOf(row).Duplicate()
		}
		return fmt.Errorf("failed to create %s: %w", row.Kind(), mapPostgresError(err))
	}

	log.Debug().
		Str("entity", string(row.Kind())).
		Str("id", base.ID.String()).
		Msg("Created catalogue row")

	return nil
}

// Get retrieves a row by kind and ID.
func (s *CatalogStore) Get(ctx context.Context, kind models.Kind, id uuid.UUID) (models.CatalogRow, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s t WHERE t.id = $1`, t.selectList(), t.name)
	row, err := t.scan(kind, s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrRowNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", kind, err)
	}

	if b, ok := row.(models.Blockable); ok && t.blockTable != "" {
		blocked, err := s.blockedFor(ctx, t, `b.row_id = $1`, id)
		if err != nil {
			return nil, err
		}
		b.Blocks().BlockedFor = blocked[id]
	}

	return row, nil
}

// ListVisible selects the visible rows with the visibility predicate
// rendered into the WHERE clause.
func (s *CatalogStore) ListVisible(ctx context.Context, kind models.Kind, viewer visibility.Viewer) ([]models.CatalogRow, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	pred, args := visibility.Predicate("t", t.blockTable, viewer, 1)
	query := fmt.Sprintf(`SELECT %s FROM %s t %s WHERE %s ORDER BY %s`,
		t.selectList(), t.name, t.join, pred, t.orderBy)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.CatalogRow, error) {
		return t.scan(kind, row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", kind, err)
	}

	if t.blockTable != "" && len(result) > 0 {
		blocked, err := s.blockedFor(ctx, t, pred, args...)
		if err != nil {
			return nil, err
		}
		for _, row := range result {
			if b, ok := row.(models.Blockable); ok {
				b.Blocks().BlockedFor = blocked[row.RowID()]
			}
		}
	}

	return result, nil
}

// blockedFor loads block lists for the rows of t matching where.
func (s *CatalogStore) blockedFor(ctx context.Context, t catalogTable, where string, args ...any) (map[uuid.UUID][]uuid.UUID, error) {
	query := fmt.Sprintf(`
		SELECT b.row_id, b.org_id
		FROM %s b
		JOIN %s t ON t.id = b.row_id
		WHERE %s
		ORDER BY b.org_id
	`, t.blockTable, t.name, where)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read block list: %w", err)
	}
	defer rows.Close()

	out := map[uuid.UUID][]uuid.UUID{}
	for rows.Next() {
		var rowID, orgID uuid.UUID
		if err := rows.Scan(&rowID, &orgID); err != nil {
			return nil, fmt.Errorf("failed to scan block list: %w", err)
		}
		out[rowID] = append(out[rowID], orgID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating block list: %w", err)
	}
	return out, nil
}

// Delete deletes a row. NO ACTION references from proposal joins surface as
// a ReferencedRowProtectedError.
func (s *CatalogStore) Delete(ctx context.Context, kind models.Kind, id uuid.UUID) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}

	result, err := s.pool.Exec(ctx, `DELETE FROM `+t.name+` WHERE id = $1`, id)
	if err != nil {
		return mapDeleteError(err, ownership.Relation(kind), id)
	}
	if result.RowsAffected() == 0 {
		return store.ErrRowNotFound
	}

	log.Info().
		Str("entity", string(kind)).
		Str("id", id.String()).
		Msg("Deleted catalogue row")

	return nil
}

// Block hides a global row from an organization.
func (s *CatalogStore) Block(ctx context.Context, kind models.Kind, id, orgID uuid.UUID) error {
	return s.updateBlocks(ctx, kind, id, orgID, `
		INSERT INTO %s (row_id, org_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`)
}

// Unblock reverses Block.
func (s *CatalogStore) Unblock(ctx context.Context, kind models.Kind, id, orgID uuid.UUID) error {
	return s.updateBlocks(ctx, kind, id, orgID, `DELETE FROM %s WHERE row_id = $1 AND org_id = $2`)
}

func (s *CatalogStore) updateBlocks(ctx context.Context, kind models.Kind, id, orgID uuid.UUID, stmt string) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var owner *uuid.UUID
		err := tx.QueryRow(ctx, `SELECT org_id FROM `+t.name+` WHERE id = $1 FOR UPDATE`, id).Scan(&owner)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.ErrRowNotFound
			}
			return fmt.Errorf("failed to lock %s: %w", kind, err)
		}
		if t.blockTable == "" {
			return store.ErrNotBlockable
		}
		if owner != nil {
			return store.ErrNotGlobal
		}

		var orgExists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM organizations WHERE org_id = $1)`, orgID).Scan(&orgExists); err != nil {
			return fmt.Errorf("failed to check organization: %w", err)
		}
		if !orgExists {
			return store.ErrOrganizationNotFound
		}

		result, err := tx.Exec(ctx, fmt.Sprintf(stmt, t.blockTable), id, orgID)
		if err != nil {
			return mapPostgresError(err)
		}
		if result.RowsAffected() == 0 {
			return nil
		}

		_, err = tx.Exec(ctx, `UPDATE `+t.name+` SET updated_at = $2 WHERE id = $1`, id, time.Now())
		return err
	})
}

// deref turns a scan target back into a query argument.
func deref(p any) any {
	switch v := p.(type) {
	case *string:
		return *v
	case *int:
		return *v
	case *uuid.UUID:
		return *v
	}
	return p
}
