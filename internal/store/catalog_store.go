package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/wolfeidau/rfpcore/internal/models"
	"github.com/wolfeidau/rfpcore/internal/visibility"
)

// CatalogStore manages ownership-scoped catalogue rows of every kind.
type CatalogStore interface {
	// Create stores a new row. Fails with a DuplicateInScopeError when the
	// natural key is already used in the row's scope.
	Create(ctx context.Context, row models.CatalogRow) error

	// Get retrieves a row by kind and ID regardless of visibility.
	// Returns ErrRowNotFound if the row doesn't exist.
	Get(ctx context.Context, kind models.Kind, id uuid.UUID) (models.CatalogRow, error)

	// ListVisible returns the rows of a kind visible to the viewer in the
	// kind's default ordering.
	ListVisible(ctx context.Context, kind models.Kind, viewer visibility.Viewer) ([]models.CatalogRow, error)

	// Delete deletes a row under the referential policy. Fails with a
	// ReferencedRowProtectedError while a proposal still links it.
	Delete(ctx context.Context, kind models.Kind, id uuid.UUID) error

	// Block hides a global row from an organization.
	// Returns ErrNotGlobal for private rows and ErrNotBlockable for kinds
	// without a block list.
	Block(ctx context.Context, kind models.Kind, id, orgID uuid.UUID) error

	// Unblock reverses Block.
	Unblock(ctx context.Context, kind models.Kind, id, orgID uuid.UUID) error
}
