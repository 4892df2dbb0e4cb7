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

// UserStore implements store.UserStore using in-memory storage.
type UserStore struct {
	db *DB
}

// NewUserStore creates a new in-memory user store.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// Create stores a new user.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.users[user.UserID]; exists {
		return store.ErrUserAlreadyExists
	}
	for _, u := range s.db.users {
		if u.Email == user.Email {
			return store.ErrUserAlreadyExists
		}
	}
	if !s.db.orgExists(user.OrgID) {
		return store.ErrOrganizationNotFound
	}
	if err := s.checkRoles(user.Membership()); err != nil {
		return err
	}

	if user.ValuePropositions == "" {
		user.ValuePropositions = models.DefaultValuePropositions
	}
	user.GroupIDs = models.SortIDs(user.GroupIDs)

	s.db.users[user.UserID] = user.Clone()

	return nil
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	user, exists := s.db.users[userID]
	if !exists {
		return nil, store.ErrUserNotFound
	}

	return user.Clone(), nil
}

// ListByOrganization returns the users of an organization ordered by email.
func (s *UserStore) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*models.User
	for _, u := range s.db.users {
		if isID(u.OrgID, orgID) {
			result = append(result, u.Clone())
		}
	}

	slices.SortFunc(result, func(a, b *models.User) int {
		return strings.Compare(a.Email, b.Email)
	})

	return result, nil
}

// Delete deletes a user under the referential policy.
func (s *UserStore) Delete(ctx context.Context, userID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if !s.db.userExists(userID) {
		return store.ErrUserNotFound
	}

	plan, err := s.db.deleteRow(ownership.RelationUser, userID)
	if err != nil {
		return err
	}

	log.Info().
		Str("user_id", userID.String()).
		Int("rows", len(plan.Deletes)).
		Int("nullified", len(plan.Nullify)).
		Msg("Deleted user")

	return nil
}

// UpdateMembership runs fn under the write lock and stores its result.
func (s *UserStore) UpdateMembership(ctx context.Context, userID uuid.UUID, fn store.MembershipFunc) (models.Membership, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	user, exists := s.db.users[userID]
	if !exists {
		return models.Membership{}, store.ErrUserNotFound
	}

	next, ok := fn(user.Membership())
	if !ok {
		return user.Membership(), nil
	}
	if err := s.checkRoles(next); err != nil {
		return models.Membership{}, err
	}

	user.RoleID = models.CloneID(next.RoleID)
	user.GroupIDs = models.SortIDs(next.GroupIDs)
	user.UpdatedAt = time.Now()

	return user.Membership(), nil
}

// AssignBusinessCycle records an assignment, unique per (organization, cycle).
func (s *UserStore) AssignBusinessCycle(ctx context.Context, a *models.BusinessCycleAssignment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if !s.db.orgExists(&a.OrgID) {
		return store.ErrOrganizationNotFound
	}
	if a.UserID != nil && !s.db.userExists(*a.UserID) {
		return store.ErrUserNotFound
	}
	if _, ok := s.db.rows[models.KindBusinessCycle][a.BusinessCycleID]; !ok {
		return store.ErrRowNotFound
	}

	for _, existing := range s.db.assignments {
		if existing.OrgID == a.OrgID && existing.BusinessCycleID == a.BusinessCycleID {
			return &ownership.DuplicateInScopeError{
				Entity: ownership.RelationAssignment,
				Scope:  ownership.Scope{OrgID: a.OrgID},
				Key:    a.BusinessCycleID.String(),
			}
		}
	}

	clone := *a
	clone.UserID = models.CloneID(a.UserID)
	s.db.assignments[a.AssignmentID] = &clone

	return nil
}

// ListAssignments returns an organization's assignments in creation order.
func (s *UserStore) ListAssignments(ctx context.Context, orgID uuid.UUID) ([]*models.BusinessCycleAssignment, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*models.BusinessCycleAssignment
	for _, a := range s.db.assignments {
		if a.OrgID == orgID {
			clone := *a
			clone.UserID = models.CloneID(a.UserID)
			result = append(result, &clone)
		}
	}

	slices.SortFunc(result, func(a, b *models.BusinessCycleAssignment) int {
		return models.CompareIDs(a.AssignmentID, b.AssignmentID)
	})

	return result, nil
}

func (s *UserStore) checkRoles(m models.Membership) error {
	if m.RoleID != nil {
		if _, ok := s.db.roles[*m.RoleID]; !ok {
			return store.ErrRoleNotFound
		}
	}
	for _, id := range m.GroupIDs {
		if _, ok := s.db.roles[id]; !ok {
			return store.ErrRoleNotFound
		}
	}
	return nil
}

// RoleStore implements store.RoleStore using in-memory storage.
type RoleStore struct {
	db *DB
}

// NewRoleStore creates a new in-memory role store.
func NewRoleStore(db *DB) *RoleStore {
	return &RoleStore{db: db}
}

// Create stores a new role. Role names are unique.
func (s *RoleStore) Create(ctx context.Context, role *models.Role) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.roles[role.RoleID]; exists {
		return store.ErrRoleAlreadyExists
	}
	for _, r := range s.db.roles {
		if r.Name == role.Name {
			return store.ErrRoleAlreadyExists
		}
	}

	clone := *role
	s.db.roles[role.RoleID] = &clone

	return nil
}

// Get retrieves a role by ID.
func (s *RoleStore) Get(ctx context.Context, roleID uuid.UUID) (*models.Role, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	role, exists := s.db.roles[roleID]
	if !exists {
		return nil, store.ErrRoleNotFound
	}

	clone := *role
	return &clone, nil
}

// GetByName retrieves a role by name.
func (s *RoleStore) GetByName(ctx context.Context, name string) (*models.Role, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, role := range s.db.roles {
		if role.Name == name {
			clone := *role
			return &clone, nil
		}
	}

	return nil, store.ErrRoleNotFound
}

// List returns all roles ordered by name.
func (s *RoleStore) List(ctx context.Context) ([]*models.Role, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	result := make([]*models.Role, 0, len(s.db.roles))
	for _, role := range s.db.roles {
		clone := *role
		result = append(result, &clone)
	}

	slices.SortFunc(result, func(a, b *models.Role) int {
		return strings.Compare(a.Name, b.Name)
	})

	return result, nil
}

// Delete deletes a role, clearing it from every user.
func (s *RoleStore) Delete(ctx context.Context, roleID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.roles[roleID]; !exists {
		return store.ErrRoleNotFound
	}

	_, err := s.db.deleteRow(ownership.RelationRole, roleID)
	return err
}
