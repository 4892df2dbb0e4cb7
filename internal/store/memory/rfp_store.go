package memory

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/rfpcore/internal/models"
	"github.com/wolfeidau/rfpcore/internal/ownership"
	"github.com/wolfeidau/rfpcore/internal/store"
)

// RFPStore implements store.RFPStore using in-memory storage.
type RFPStore struct {
	db *DB
}

// NewRFPStore creates a new in-memory proposal store.
func NewRFPStore(db *DB) *RFPStore {
	return &RFPStore{db: db}
}

// Create stores a new proposal and its joins.
func (s *RFPStore) Create(ctx context.Context, rfp *models.GeneratedRFP) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.rfps[rfp.RFPID]; exists {
		return store.ErrRFPAlreadyExists
	}
	if !s.db.orgExists(rfp.OrgID) {
		return store.ErrOrganizationNotFound
	}
	if !s.db.userExists(rfp.OwnerID) {
		return store.ErrUserNotFound
	}
	if !s.exists(models.KindIndustry, rfp.IndustryID) {
		return store.ErrRowNotFound
	}
	if err := s.checkJoins(rfp); err != nil {
		return err
	}

	if rfp.Status == "" {
		rfp.Status = models.RFPStatusInProgress
	}
	rfp.AllowedUserIDs = models.SortIDs(rfp.AllowedUserIDs)

	s.db.rfps[rfp.RFPID] = rfp.Clone()

	return nil
}

// Get retrieves a proposal with all of its joins.
func (s *RFPStore) Get(ctx context.Context, rfpID uuid.UUID) (*models.GeneratedRFP, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	rfp, exists := s.db.rfps[rfpID]
	if !exists {
		return nil, store.ErrRFPNotFound
	}

	return rfp.Clone(), nil
}

// ListByOrganization returns an organization's proposals, newest first.
func (s *RFPStore) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.GeneratedRFP, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*models.GeneratedRFP
	for _, rfp := range s.db.rfps {
		if isID(rfp.OrgID, orgID) {
			result = append(result, rfp.Clone())
		}
	}

	slices.SortFunc(result, func(a, b *models.GeneratedRFP) int {
		return models.CompareIDs(b.RFPID, a.RFPID)
	})

	return result, nil
}

// Update writes the scalar fields, allowed users and free-form lists.
func (s *RFPStore) Update(ctx context.Context, rfp *models.GeneratedRFP) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	existing, exists := s.db.rfps[rfp.RFPID]
	if !exists {
		return store.ErrRFPNotFound
	}
	if !s.exists(models.KindIndustry, rfp.IndustryID) {
		return store.ErrRowNotFound
	}
	for _, id := range rfp.AllowedUserIDs {
		if !s.db.userExists(id) {
			return store.ErrUserNotFound
		}
	}

	next := rfp.Clone()
	next.OrgID = existing.OrgID
	next.OwnerID = existing.OwnerID
	next.CreatedAt = existing.CreatedAt
	next.ServiceIDs = existing.ServiceIDs
	next.BusinessCycleIDs = existing.BusinessCycleIDs
	next.Areas = existing.Areas
	next.AllowedUserIDs = models.SortIDs(next.AllowedUserIDs)
	next.UpdatedAt = time.Now()
	rfp.UpdatedAt = next.UpdatedAt

	s.db.rfps[rfp.RFPID] = next

	return nil
}

// UpdateEntries applies fn to the proposal's free-form lists under the write lock.
func (s *RFPStore) UpdateEntries(ctx context.Context, rfpID uuid.UUID, fn store.EntriesFunc) (models.Entries, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	rfp, exists := s.db.rfps[rfpID]
	if !exists {
		return models.Entries{}, store.ErrRFPNotFound
	}

	next, err := fn(models.Entries{
		Questionnaires: models.CloneEntries(rfp.Questionnaires),
		Descriptions:   models.CloneEntries(rfp.Descriptions),
	})
	if err != nil {
		return models.Entries{}, err
	}

	rfp.Questionnaires = models.CloneEntries(next.Questionnaires)
	rfp.Descriptions = models.CloneEntries(next.Descriptions)
	rfp.UpdatedAt = time.Now()

	return next, nil
}

// Delete deletes a proposal. Finalized snapshots keep a nil source.
func (s *RFPStore) Delete(ctx context.Context, rfpID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.rfps[rfpID]; !exists {
		return store.ErrRFPNotFound
	}

	plan, err := s.db.deleteRow(ownership.RelationGeneratedRFP, rfpID)
	if err != nil {
		return err
	}

	log.Info().
		Str("rfp_id", rfpID.String()).
		Int("detached_snapshots", len(plan.Nullify)).
		Msg("Deleted generated RFP")

	return nil
}

func (s *RFPStore) LinkService(ctx context.Context, rfpID, serviceID uuid.UUID) error {
	return s.link(rfpID, models.KindService, serviceID, func(r *models.GeneratedRFP) bool {
		if slices.Contains(r.ServiceIDs, serviceID) {
			return false
		}
		r.ServiceIDs = append(r.ServiceIDs, serviceID)
		return true
	})
}

func (s *RFPStore) UnlinkService(ctx context.Context, rfpID, serviceID uuid.UUID) error {
	return s.unlink(rfpID, func(r *models.GeneratedRFP) bool {
		n := len(r.ServiceIDs)
		r.ServiceIDs = without(r.ServiceIDs, serviceID)
		return len(r.ServiceIDs) != n
	})
}

func (s *RFPStore) LinkBusinessCycle(ctx context.Context, rfpID, cycleID uuid.UUID) error {
	return s.link(rfpID, models.KindBusinessCycle, cycleID, func(r *models.GeneratedRFP) bool {
		if slices.Contains(r.BusinessCycleIDs, cycleID) {
			return false
		}
		r.BusinessCycleIDs = append(r.BusinessCycleIDs, cycleID)
		return true
	})
}

func (s *RFPStore) UnlinkBusinessCycle(ctx context.Context, rfpID, cycleID uuid.UUID) error {
	return s.unlink(rfpID, func(r *models.GeneratedRFP) bool {
		n := len(r.BusinessCycleIDs)
		r.BusinessCycleIDs = without(r.BusinessCycleIDs, cycleID)
		return len(r.BusinessCycleIDs) != n
	})
}

func (s *RFPStore) LinkArea(ctx context.Context, rfpID, areaID uuid.UUID, priority models.Priority) error {
	return s.link(rfpID, models.KindFunctionalArea, areaID, func(r *models.GeneratedRFP) bool {
		if hasArea(r.Areas, areaID) {
			return false
		}
		r.Areas = append(r.Areas, models.AreaLink{AreaID: areaID, Priority: priority})
		return true
	})
}

func (s *RFPStore) UnlinkArea(ctx context.Context, rfpID, areaID uuid.UUID) error {
	return s.unlink(rfpID, func(r *models.GeneratedRFP) bool {
		n := len(r.Areas)
		r.Areas = slices.DeleteFunc(slices.Clone(r.Areas), func(a models.AreaLink) bool { return a.AreaID == areaID })
		return len(r.Areas) != n
	})
}

func (s *RFPStore) link(rfpID uuid.UUID, kind models.Kind, id uuid.UUID, fn func(*models.GeneratedRFP) bool) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	rfp, exists := s.db.rfps[rfpID]
	if !exists {
		return store.ErrRFPNotFound
	}
	if !s.exists(kind, id) {
		return store.ErrRowNotFound
	}
	if !fn(rfp) {
		return store.ErrAlreadyLinked
	}
	rfp.UpdatedAt = time.Now()

	return nil
}

func (s *RFPStore) unlink(rfpID uuid.UUID, fn func(*models.GeneratedRFP) bool) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	rfp, exists := s.db.rfps[rfpID]
	if !exists {
		return store.ErrRFPNotFound
	}
	if !fn(rfp) {
		return store.ErrNotLinked
	}
	rfp.UpdatedAt = time.Now()

	return nil
}

// Finalize builds and stores a snapshot under the write lock.
func (s *RFPStore) Finalize(ctx context.Context, rfpID uuid.UUID, fn store.SnapshotFunc) (*models.FinalizedRFP, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	rfp, exists := s.db.rfps[rfpID]
	if !exists {
		return nil, store.ErrRFPNotFound
	}

	rec, err := fn(rfp.Clone())
	if err != nil {
		return nil, err
	}
	if !s.db.orgExists(&rec.OrgID) {
		return nil, store.ErrOrganizationNotFound
	}

	s.db.finalized[rec.FinalizedID] = rec.Clone()

	return rec, nil
}

// GetFinalized retrieves a finalized record by ID.
func (s *RFPStore) GetFinalized(ctx context.Context, finalizedID uuid.UUID) (*models.FinalizedRFP, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	rec, exists := s.db.finalized[finalizedID]
	if !exists {
		return nil, store.ErrFinalizedNotFound
	}

	return rec.Clone(), nil
}

// ListFinalized returns an organization's finalized records, newest first.
func (s *RFPStore) ListFinalized(ctx context.Context, orgID uuid.UUID) ([]*models.FinalizedRFP, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*models.FinalizedRFP
	for _, rec := range s.db.finalized {
		if rec.OrgID == orgID {
			result = append(result, rec.Clone())
		}
	}

	slices.SortFunc(result, func(a, b *models.FinalizedRFP) int {
		return models.CompareIDs(b.FinalizedID, a.FinalizedID)
	})

	return result, nil
}

// CreateSubmission records delivery of a proposal.
func (s *RFPStore) CreateSubmission(ctx context.Context, sub *models.SubmittedRFP) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.rfps[sub.RFPID]; !exists {
		return store.ErrRFPNotFound
	}
	if sub.UserID != nil && !s.db.userExists(*sub.UserID) {
		return store.ErrUserNotFound
	}

	clone := *sub
	clone.UserID = models.CloneID(sub.UserID)
	s.db.submissions[sub.SubmissionID] = &clone

	return nil
}

// ListSubmissions returns the submissions of a proposal in creation order.
func (s *RFPStore) ListSubmissions(ctx context.Context, rfpID uuid.UUID) ([]*models.SubmittedRFP, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*models.SubmittedRFP
	for _, sub := range s.db.submissions {
		if sub.RFPID == rfpID {
			clone := *sub
			clone.UserID = models.CloneID(sub.UserID)
			result = append(result, &clone)
		}
	}

	slices.SortFunc(result, func(a, b *models.SubmittedRFP) int {
		return models.CompareIDs(a.SubmissionID, b.SubmissionID)
	})

	return result, nil
}

// CreateResponse records a provider response to a submission.
func (s *RFPStore) CreateResponse(ctx context.Context, r *models.ResponseRFP) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.rfps[r.RFPID]; !exists {
		return store.ErrRFPNotFound
	}
	if _, exists := s.db.submissions[r.SubmissionID]; !exists {
		return store.ErrSubmissionNotFound
	}
	if !s.exists(models.KindProvider, r.ProviderID) {
		return store.ErrRowNotFound
	}
	if !s.db.userExists(r.UserID) {
		return store.ErrUserNotFound
	}

	clone := *r
	clone.CompletedFields = models.CloneEntries(r.CompletedFields)
	clone.ResponseFields = models.CloneEntries(r.ResponseFields)
	s.db.responses[r.ResponseID] = &clone

	return nil
}

func (s *RFPStore) exists(kind models.Kind, id uuid.UUID) bool {
	_, ok := s.db.rows[kind][id]
	return ok
}

func (s *RFPStore) checkJoins(rfp *models.GeneratedRFP) error {
	seen := map[uuid.UUID]bool{}
	check := func(kind models.Kind, id uuid.UUID) error {
		if !s.exists(kind, id) {
			return store.ErrRowNotFound
		}
		if seen[id] {
			return store.ErrAlreadyLinked
		}
		seen[id] = true
		return nil
	}

	for _, id := range rfp.ServiceIDs {
		if err := check(models.KindService, id); err != nil {
			return err
		}
	}
	for _, id := range rfp.BusinessCycleIDs {
		if err := check(models.KindBusinessCycle, id); err != nil {
			return err
		}
	}
	for _, a := range rfp.Areas {
		if err := check(models.KindFunctionalArea, a.AreaID); err != nil {
			return err
		}
	}
	for _, id := range rfp.AllowedUserIDs {
		if !s.db.userExists(id) {
			return store.ErrUserNotFound
		}
	}
	return nil
}
