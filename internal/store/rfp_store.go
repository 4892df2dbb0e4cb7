package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/rfpcore/internal/models"
)

// Sentinel errors for proposal store operations
var (
	ErrRFPNotFound        = errors.New("generated RFP not found")
	ErrRFPAlreadyExists   = errors.New("generated RFP already exists")
	ErrFinalizedNotFound  = errors.New("finalized RFP not found")
	ErrSubmissionNotFound = errors.New("submitted RFP not found")
)

// RFPStore manages generated proposals, their joins and finalized snapshots.
type RFPStore interface {
	// Create stores a new proposal including its joins.
	Create(ctx context.Context, rfp *models.GeneratedRFP) error

	// Get retrieves a proposal with all of its joins.
	Get(ctx context.Context, rfpID uuid.UUID) (*models.GeneratedRFP, error)

	// ListByOrganization returns an organization's proposals, newest first.
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.GeneratedRFP, error)

	// Update writes the scalar fields, allowed users and free-form lists.
	// Joins are changed through the Link/Unlink methods.
	Update(ctx context.Context, rfp *models.GeneratedRFP) error

	// UpdateEntries locks the proposal, calls fn with its current free-form
	// lists and stores the result before the lock is released.
	UpdateEntries(ctx context.Context, rfpID uuid.UUID, fn EntriesFunc) (models.Entries, error)

	// Delete deletes a proposal and its joins. Finalized snapshots survive
	// with their source reference cleared.
	Delete(ctx context.Context, rfpID uuid.UUID) error

	LinkService(ctx context.Context, rfpID, serviceID uuid.UUID) error
	UnlinkService(ctx context.Context, rfpID, serviceID uuid.UUID) error
	LinkBusinessCycle(ctx context.Context, rfpID, cycleID uuid.UUID) error
	UnlinkBusinessCycle(ctx context.Context, rfpID, cycleID uuid.UUID) error
	LinkArea(ctx context.Context, rfpID, areaID uuid.UUID, priority models.Priority) error
	UnlinkArea(ctx context.Context, rfpID, areaID uuid.UUID) error

	// Finalize reads the full proposal graph and stores the record built by
	// fn, both inside one transaction.
	Finalize(ctx context.Context, rfpID uuid.UUID, fn SnapshotFunc) (*models.FinalizedRFP, error)

	// GetFinalized retrieves a finalized record by ID.
	GetFinalized(ctx context.Context, finalizedID uuid.UUID) (*models.FinalizedRFP, error)

	// ListFinalized returns an organization's finalized records, newest first.
	ListFinalized(ctx context.Context, orgID uuid.UUID) ([]*models.FinalizedRFP, error)

	// CreateSubmission records delivery of a proposal.
	CreateSubmission(ctx context.Context, s *models.SubmittedRFP) error

	// ListSubmissions returns the submissions of a proposal.
	ListSubmissions(ctx context.Context, rfpID uuid.UUID) ([]*models.SubmittedRFP, error)

	// CreateResponse records a provider response to a submission.
	CreateResponse(ctx context.Context, r *models.ResponseRFP) error
}
