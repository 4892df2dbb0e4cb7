package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/rfpcore/internal/models"
)

// Sentinel errors for invite store operations
var (
	ErrInviteNotFound = errors.New("invite not found")
	ErrTokenNotFound  = errors.New("password reset token not found")
)

// InviteStore manages invites and password reset tokens. Lookups are by
// token hash; raw tokens are never stored.
type InviteStore interface {
	Create(ctx context.Context, invite *models.Invite) error
	Get(ctx context.Context, inviteID uuid.UUID) (*models.Invite, error)

	// Consume locks the invite with the given token hash, calls fn to validate
	// it and deactivates it in the same transaction when fn succeeds.
	Consume(ctx context.Context, tokenHash string, now time.Time, fn func(*models.Invite) error) (*models.Invite, error)

	// Deactivate permanently invalidates an invite.
	Deactivate(ctx context.Context, inviteID uuid.UUID, now time.Time) error

	CreateResetToken(ctx context.Context, token *models.PasswordResetToken) error

	// ConsumeResetToken locks the token, calls fn to validate it and marks it
	// used in the same transaction when fn succeeds.
	ConsumeResetToken(ctx context.Context, tokenHash string, fn func(*models.PasswordResetToken) error) (*models.PasswordResetToken, error)
}
