package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/rfpcore/internal/models"
	"github.com/wolfeidau/rfpcore/internal/ownership"
	"github.com/wolfeidau/rfpcore/internal/store"
)

// OrganizationStore implements store.OrganizationStore using in-memory storage.
type OrganizationStore struct {
	db *DB
}

// NewOrganizationStore creates a new in-memory organization store.
func NewOrganizationStore(db *DB) *OrganizationStore {
	return &OrganizationStore{db: db}
}

// Create creates a new organization in memory.
func (s *OrganizationStore) Create(ctx context.Context, org *models.Organization) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	// Check if organization already exists
	if _, exists := s.db.orgs[org.OrgID]; exists {
		return store.ErrOrganizationAlreadyExists
	}

	if org.Domain == "" {
		org.Domain = models.DefaultDomain
	}

	// Clone to avoid external modifications
	clone := *org
	s.db.orgs[org.OrgID] = &clone

	return nil
}

// Get retrieves an organization by ID.
func (s *OrganizationStore) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	org, exists := s.db.orgs[orgID]
	if !exists {
		return nil, store.ErrOrganizationNotFound
	}

	clone := *org
	return &clone, nil
}

// Update updates an existing organization.
func (s *OrganizationStore) Update(ctx context.Context, org *models.Organization) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.orgs[org.OrgID]; !exists {
		return store.ErrOrganizationNotFound
	}

	org.UpdatedAt = time.Now()

	clone := *org
	s.db.orgs[org.OrgID] = &clone

	return nil
}

// Delete deletes an organization and everything it owns.
func (s *OrganizationStore) Delete(ctx context.Context, orgID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.orgs[orgID]; !exists {
		return store.ErrOrganizationNotFound
	}

	plan, err := s.db.deleteRow(ownership.RelationOrganization, orgID)
	if err != nil {
		return err
	}

	log.Info().
		Str("org_id", orgID.String()).
		Int("rows", len(plan.Deletes)).
		Msg("Deleted organization")

	return nil
}

// List returns all organizations ordered by name.
func (s *OrganizationStore) List(ctx context.Context) ([]*models.Organization, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	result := make([]*models.Organization, 0, len(s.db.orgs))
	for _, org := range s.db.orgs {
		clone := *org
		result = append(result, &clone)
	}

	slices.SortFunc(result, func(a, b *models.Organization) int {
		return strings.Compare(a.Name, b.Name)
	})

	return result, nil
}
