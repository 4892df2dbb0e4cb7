// Package rolesync keeps a user's primary role and group memberships
// consistent. Every mutation is a read-modify-write of both sides inside one
// store transaction.
package rolesync

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/rfpcore/internal/models"
	"github.com/wolfeidau/rfpcore/internal/store"
	"github.com/wolfeidau/rfpcore/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type trigger string

const (
	triggerRole   trigger = "role"
	triggerGroups trigger = "groups"
)

// Engine applies role and group changes.
type Engine struct {
	users store.UserStore
}

// NewEngine creates an engine over the given store.
func NewEngine(users store.UserStore) *Engine {
	return &Engine{users: users}
}

// CreateUser normalizes the membership of a new user and stores it.
func (e *Engine) CreateUser(ctx context.Context, user *models.User) error {
	m := Normalize(user.Membership())
	user.RoleID = m.RoleID
	user.GroupIDs = m.GroupIDs

	return e.users.Create(ctx, user)
}

// SetUserRole assigns the primary role. Groups become exactly {role}, or
// empty when role is nil.
func (e *Engine) SetUserRole(ctx context.Context, userID uuid.UUID, role *uuid.UUID) (models.Membership, error) {
	return e.update(ctx, userID, triggerRole, func(models.Membership) (models.Membership, bool) {
		return AssignRole(role), true
	})
}

// SetUserGroups replaces the group set. The role is derived from the change.
func (e *Engine) SetUserGroups(ctx context.Context, userID uuid.UUID, groups []uuid.UUID) (models.Membership, error) {
	desired := slices.Clone(groups)
	return e.update(ctx, userID, triggerGroups, func(current models.Membership) (models.Membership, bool) {
		return Replace(current, desired)
	})
}

// AddUserGroups adds groups. The lowest added group becomes the role.
func (e *Engine) AddUserGroups(ctx context.Context, userID uuid.UUID, groups ...uuid.UUID) (models.Membership, error) {
	return e.change(ctx, userID, Change{Op: OpAdd, IDs: slices.Clone(groups)})
}

// RemoveUserGroups removes groups. The role falls back to the lowest
// remaining group, or nil.
func (e *Engine) RemoveUserGroups(ctx context.Context, userID uuid.UUID, groups ...uuid.UUID) (models.Membership, error) {
	return e.change(ctx, userID, Change{Op: OpRemove, IDs: slices.Clone(groups)})
}

// ClearUserGroups removes every group and clears the role.
func (e *Engine) ClearUserGroups(ctx context.Context, userID uuid.UUID) (models.Membership, error) {
	return e.change(ctx, userID, Change{Op: OpClear})
}

func (e *Engine) change(ctx context.Context, userID uuid.UUID, c Change) (models.Membership, error) {
	return e.update(ctx, userID, triggerGroups, func(current models.Membership) (models.Membership, bool) {
		return ApplyChange(current, c)
	})
}

func (e *Engine) update(ctx context.Context, userID uuid.UUID, t trigger, fn store.MembershipFunc) (models.Membership, error) {
	var before models.Membership
	applied := false

	m, err := e.users.UpdateMembership(ctx, userID, func(current models.Membership) (models.Membership, bool) {
		before = current
		next, ok := fn(current)
		applied = ok
		return next, ok
	})
	if err != nil {
		return models.Membership{}, fmt.Errorf("failed to sync %s for user %s: %w", t, userID, err)
	}

	if applied {
		telemetry.GetMetrics().RoleSyncsTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("trigger", string(t))))

		log.Debug().
			Str("user_id", userID.String()).
			Str("trigger", string(t)).
			Str("role_before", idString(before.RoleID)).
			Str("role_after", idString(m.RoleID)).
			Int("groups", len(m.GroupIDs)).
			Msg("Synced user role and groups")
	}

	return m, nil
}

func idString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
