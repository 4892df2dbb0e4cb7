// Package catalog is the caller-facing service for ownership-scoped catalogue
// rows and the proposals that reference them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/rfpcore/internal/models"
	"github.com/wolfeidau/rfpcore/internal/ownership"
	"github.com/wolfeidau/rfpcore/internal/store"
	"github.com/wolfeidau/rfpcore/internal/telemetry"
	"github.com/wolfeidau/rfpcore/internal/visibility"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrEmptyKey is returned when a row's natural key is blank.
var ErrEmptyKey = errors.New("natural key is required")

// Service manages catalogue rows.
type Service struct {
	rows store.CatalogStore
	now  func() time.Time
}

// NewService creates a catalogue service.
func NewService(rows store.CatalogStore) *Service {
	return &Service{rows: rows, now: time.Now}
}

// Create stores a new row in the scope given by org. The row's ID is
// generated when unset.
func (s *Service) Create(ctx context.Context, row models.CatalogRow, org, creator *uuid.UUID) (models.CatalogRow, error) {
	if strings.TrimSpace(row.NaturalKey()) == "" {
		return nil, ErrEmptyKey
	}

	if area, ok := row.(*models.FunctionalArea); ok {
		if err := s.checkCycle(ctx, area.BusinessCycleID, org); err != nil {
			return nil, err
		}
	}

	base := row.Base()
	if base.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate id: %w", err)
		}
		base.ID = id
	}
	base.OrgID = models.CloneID(org)
	base.CreatedBy = models.CloneID(creator)
	now := s.now()
	base.CreatedAt = now
	base.UpdatedAt = now

	err := s.rows.Create(ctx, row)
	s.record(ctx, row.Kind(), "create", err)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", row.Kind(), err)
	}

	log.Debug().
		Str("entity", string(row.Kind())).
		Str("id", base.ID.String()).
		Str("scope", ownership.ScopeOf(org).String()).
		Msg("Created catalogue row")

	return row, nil
}

// Delete removes a row under the referential policy.
func (s *Service) Delete(ctx context.Context, kind models.Kind, id uuid.UUID) error {
	err := s.rows.Delete(ctx, kind, id)
	s.record(ctx, kind, "delete", err)
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", kind, id, err)
	}
	return nil
}

// Visible lists the rows of kind visible to org in the kind's default
// ordering. A nil org sees global rows only.
func (s *Service) Visible(ctx context.Context, kind models.Kind, org *uuid.UUID) ([]models.CatalogRow, error) {
	viewer := visibility.For(org)

	rows, err := s.rows.ListVisible(ctx, kind, viewer)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}

	m := telemetry.GetMetrics()
	attrs := metric.WithAttributes(attribute.String("entity", string(kind)))
	m.VisibilityQueriesTotal.Add(ctx, 1, attrs)
	m.VisibleRows.Record(ctx, int64(len(rows)), attrs)

	log.Debug().
		Str("entity", string(kind)).
		Str("viewer", viewer.String()).
		Int("rows", len(rows)).
		Msg("Listed visible rows")

	return rows, nil
}

// Block hides a global row from org.
func (s *Service) Block(ctx context.Context, kind models.Kind, id, org uuid.UUID) error {
	err := s.rows.Block(ctx, kind, id, org)
	s.record(ctx, kind, "block", err)
	if err != nil {
		return fmt.Errorf("failed to block %s %s: %w", kind, id, err)
	}
	return nil
}

// Unblock makes a global row visible to org again.
func (s *Service) Unblock(ctx context.Context, kind models.Kind, id, org uuid.UUID) error {
	err := s.rows.Unblock(ctx, kind, id, org)
	s.record(ctx, kind, "unblock", err)
	if err != nil {
		return fmt.Errorf("failed to unblock %s %s: %w", kind, id, err)
	}
	return nil
}

// checkCycle requires a functional area's business cycle to be visible in
// the scope the area is created in.
func (s *Service) checkCycle(ctx context.Context, cycleID uuid.UUID, org *uuid.UUID) error {
	cycle, err := s.rows.Get(ctx, models.KindBusinessCycle, cycleID)
	if err != nil {
		return fmt.Errorf("%s %s: %w", models.KindBusinessCycle, cycleID, err)
	}
	if !visibility.Visible(cycle, visibility.For(org)) {
		return fmt.Errorf("%s %s: %w", models.KindBusinessCycle, cycleID, ErrNotVisible)
	}
	return nil
}

func (s *Service) record(ctx context.Context, kind models.Kind, op string, err error) {
	m := telemetry.GetMetrics()
	switch {
	case err == nil:
		m.CatalogMutationsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("entity", string(kind)),
			attribute.String("op", op)))
	case errors.Is(err, ownership.ErrDuplicateInScope):
		m.ConstraintViolationsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("entity", string(kind)),
			attribute.String("constraint", "duplicate_in_scope")))
	case errors.Is(err, ownership.ErrReferencedRowProtected):
		m.ConstraintViolationsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("entity", string(kind)),
			attribute.String("constraint", "referenced_row_protected")))
	}
}

// Visible lists rows of a concrete type. The kind is taken from T.
func Visible[T models.CatalogRow](ctx context.Context, s *Service, org *uuid.UUID) ([]T, error) {
	var zero T
	rows, err := s.Visible(ctx, zero.Kind(), org)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(rows))
	for _, row := range rows {
		typed, ok := row.(T)
		if !ok {
			return nil, fmt.Errorf("unexpected row type %T for %s", row, zero.Kind())
		}
		out = append(out, typed)
	}
	return out, nil
}
