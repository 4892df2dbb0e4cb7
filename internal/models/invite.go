package models

import (
	"time"

	"github.com/google/uuid"
)

// Invite is a time-boxed single-use credential. Only the token hash is stored.
type Invite struct {
	InviteID  uuid.UUID // UUIDv7
	InviterID uuid.UUID // invites are deleted with the inviter
	OrgID     *uuid.UUID
	Email     string
	TokenHash string

	IsActive      bool
	DeactivatedAt *time.Time // set once, never cleared
	ExpiresAt     time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsValid reports whether the invite can still be used at now. A deactivated
// invite stays invalid even if IsActive is later flipped back.
func (i *Invite) IsValid(now time.Time) bool {
	return i.IsActive && i.DeactivatedAt == nil && i.ExpiresAt.After(now)
}

// Deactivate permanently invalidates the invite.
func (i *Invite) Deactivate(now time.Time) {
	i.IsActive = false
	if i.DeactivatedAt == nil {
		i.DeactivatedAt = &now
	}
	i.UpdatedAt = now
}

// PasswordResetToken is a single-use password reset credential.
type PasswordResetToken struct {
	TokenID   uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	IsUsed    bool
	CreatedAt time.Time
}

// IsValid reports whether the token is unused and unexpired at now.
func (t *PasswordResetToken) IsValid(now time.Time) bool {
	return !t.IsUsed && t.ExpiresAt.After(now)
}

// BusinessCycleAssignment assigns a business cycle to one user within an
// organization. Unique per (organization, business cycle).
type BusinessCycleAssignment struct {
	AssignmentID    uuid.UUID
	UserID          *uuid.UUID
	OrgID           uuid.UUID
	BusinessCycleID uuid.UUID
	CreatedAt       time.Time
}
