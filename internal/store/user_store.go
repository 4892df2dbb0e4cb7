package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/rfpcore/internal/models"
)

// Errors
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrRoleNotFound      = errors.New("role not found")
	ErrRoleAlreadyExists = errors.New("role already exists")
)

// UserStore manages users, their role/group membership and business cycle
// assignments.
type UserStore interface {
	// Create creates a new user with the membership as given.
	// Returns ErrUserAlreadyExists on a duplicate ID or email and
	// ErrRoleNotFound if a referenced role does not exist.
	Create(ctx context.Context, user *models.User) error

	// Get retrieves a user by ID.
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// ListByOrganization returns the users of an organization ordered by email.
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.User, error)

	// Delete deletes a user. Catalogue rows created by the user are kept and
	// their creator reference cleared; proposals owned by the user are deleted.
	Delete(ctx context.Context, userID uuid.UUID) error

	// UpdateMembership locks the user, calls fn with the current role and
	// groups and writes both back in the same transaction.
	UpdateMembership(ctx context.Context, userID uuid.UUID, fn MembershipFunc) (models.Membership, error)

	// AssignBusinessCycle records an assignment. A second assignment of the
	// same cycle within one organization fails with a DuplicateInScopeError.
	AssignBusinessCycle(ctx context.Context, a *models.BusinessCycleAssignment) error

	// ListAssignments returns the business cycle assignments of an organization.
	ListAssignments(ctx context.Context, orgID uuid.UUID) ([]*models.BusinessCycleAssignment, error)
}

// RoleStore manages roles (groups).
type RoleStore interface {
	// Create creates a role. Role names are unique.
	Create(ctx context.Context, role *models.Role) error

	// Get retrieves a role by ID.
	Get(ctx context.Context, roleID uuid.UUID) (*models.Role, error)

	// GetByName retrieves a role by name.
	GetByName(ctx context.Context, name string) (*models.Role, error)

	// List returns all roles ordered by name.
	List(ctx context.Context) ([]*models.Role, error)

	// Delete deletes a role. Users holding it as their role have it cleared and
	// it is removed from every group set.
	Delete(ctx context.Context, roleID uuid.UUID) error
}
