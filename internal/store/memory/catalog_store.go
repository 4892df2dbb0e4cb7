package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/rfpcore/internal/models"
	"github.com/wolfeidau/rfpcore/internal/ownership"
	"github.com/wolfeidau/rfpcore/internal/store"
	"github.com/wolfeidau/rfpcore/internal/visibility"
)

// CatalogStore implements store.CatalogStore using in-memory storage.
type CatalogStore struct {
	db *DB
}

// NewCatalogStore creates a new in-memory catalogue store.
func NewCatalogStore(db *DB) *CatalogStore {
	return &CatalogStore{db: db}
}

// Create stores a new row, enforcing per-scope uniqueness of its natural key.
func (s *CatalogStore) Create(ctx context.Context, row models.CatalogRow) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	base := row.Base()
	if !s.db.orgExists(base.OrgID) {
		return store.ErrOrganizationNotFound
	}
	if base.CreatedBy != nil && !s.db.userExists(*base.CreatedBy) {
		return store.ErrUserNotFound
	}
	if area, ok := row.(*models.FunctionalArea); ok {
		if _, ok := s.db.rows[models.KindBusinessCycle][area.BusinessCycleID]; !ok {
			return store.ErrRowNotFound
		}
	}
	if b, ok := row.(models.Blockable); ok && len(b.Blocks().BlockedFor) > 0 {
		if base.OrgID != nil {
			return store.ErrNotGlobal
		}
		for _, org := range b.Blocks().BlockedFor {
			if !s.db.orgExists(&org) {
				return store.ErrOrganizationNotFound
			}
		}
	}

	key := ownership.KeyOf(row)
	if _, taken := s.db.keys[key]; taken {
		return key.Duplicate()
	}

	s.db.rows[row.Kind()][base.ID] = row.Clone()
	s.db.keys[key] = base.ID

	return nil
}

// Get retrieves a row by kind and ID.
func (s *CatalogStore) Get(ctx context.Context, kind models.Kind, id uuid.UUID) (models.CatalogRow, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	row, ok := s.db.rows[kind][id]
	if !ok {
		return nil, store.ErrRowNotFound
	}

	return row.Clone(), nil
}

// ListVisible returns the rows of a kind visible to the viewer.
func (s *CatalogStore) ListVisible(ctx context.Context, kind models.Kind, viewer visibility.Viewer) ([]models.CatalogRow, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	rows, ok := s.db.rows[kind]
	if !ok {
		return nil, store.ErrRowNotFound
	}

	all := make([]models.CatalogRow, 0, len(rows))
	for _, row := range rows {
		all = append(all, row)
	}
	s.sortRows(kind, all)

	result := visibility.Filter(all, viewer)
	for i, row := range result {
		result[i] = row.Clone()
	}

	return result, nil
}

// Delete deletes a row under the referential policy.
func (s *CatalogStore) Delete(ctx context.Context, kind models.Kind, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.rows[kind][id]; !ok {
		return store.ErrRowNotFound
	}

	plan, err := s.db.deleteRow(ownership.Relation(kind), id)
	if err != nil {
		return err
	}

	log.Info().
		Str("entity", string(kind)).
		Str("id", id.String()).
		Int("rows", len(plan.Deletes)).
		Msg("Deleted catalogue row")

	return nil
}

// Block hides a global row from an organization.
func (s *CatalogStore) Block(ctx context.Context, kind models.Kind, id, orgID uuid.UUID) error {
	return s.updateBlocks(kind, id, orgID, func(b *models.BlockList) bool {
		return b.Block(orgID)
	})
}

// Unblock reverses Block.
func (s *CatalogStore) Unblock(ctx context.Context, kind models.Kind, id, orgID uuid.UUID) error {
	return s.updateBlocks(kind, id, orgID, func(b *models.BlockList) bool {
		return b.Unblock(orgID)
	})
}

func (s *CatalogStore) updateBlocks(kind models.Kind, id, orgID uuid.UUID, fn func(*models.BlockList) bool) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	row, ok := s.db.rows[kind][id]
	if !ok {
		return store.ErrRowNotFound
	}
	blockable, ok := row.(models.Blockable)
	if !ok {
		return store.ErrNotBlockable
	}
	if row.Owner() != nil {
		return store.ErrNotGlobal
	}
	if !s.db.orgExists(&orgID) {
		return store.ErrOrganizationNotFound
	}

	if fn(blockable.Blocks()) {
		row.Base().UpdatedAt = time.Now()
	}

	return nil
}

// sortRows applies the default ordering of a kind. Callers must hold the lock.
func (s *CatalogStore) sortRows(kind models.Kind, rows []models.CatalogRow) {
	slices.SortFunc(rows, func(a, b models.CatalogRow) int {
		switch kind {
		case models.KindBusinessCycle:
			x, y := a.(*models.BusinessCycle), b.(*models.BusinessCycle)
			return cmp.Or(
				compareOwners(x.OrgID, y.OrgID),
				cmp.Compare(x.Order, y.Order),
				strings.Compare(x.Name, y.Name),
				models.CompareIDs(x.ID, y.ID),
			)
		case models.KindFunctionalArea:
			x, y := a.(*models.FunctionalArea), b.(*models.FunctionalArea)
			return cmp.Or(
				cmp.Compare(s.cycleOrder(x.BusinessCycleID), s.cycleOrder(y.BusinessCycleID)),
				cmp.Compare(x.Order, y.Order),
				strings.Compare(x.Name, y.Name),
				models.CompareIDs(x.ID, y.ID),
			)
		}
		return cmp.Or(
			strings.Compare(a.NaturalKey(), b.NaturalKey()),
			models.CompareIDs(a.RowID(), b.RowID()),
		)
	})
}

func (s *CatalogStore) cycleOrder(id uuid.UUID) int {
	if row, ok := s.db.rows[models.KindBusinessCycle][id]; ok {
		return row.(*models.BusinessCycle).Order
	}
	return 0
}

// compareOwners sorts global rows first, then by organization ID.
func compareOwners(a, b *uuid.UUID) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return models.CompareIDs(*a, *b)
}
