// Package invite issues and redeems single-use invites and password reset
// tokens. Raw tokens are returned once at issue time; only a base58 SHA-256
// fingerprint is stored.
package invite

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/rfpcore/internal/models"
	"github.com/wolfeidau/rfpcore/internal/store"
	"github.com/wolfeidau/rfpcore/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// DefaultInviteTTL is how long an invite stays valid.
	DefaultInviteTTL = 7 * 24 * time.Hour
	// DefaultResetTTL is how long a password reset token stays valid.
	DefaultResetTTL = time.Hour

	tokenBytes = 32
)

// ErrInvalidInvite is matched by InvalidInviteError.
var ErrInvalidInvite = errors.New("invalid invite")

// Reasons reported by InvalidInviteError.
const (
	ReasonUnknown     = "unknown"
	ReasonExpired     = "expired"
	ReasonDeactivated = "deactivated"
	ReasonUsed        = "used"
)

// InvalidInviteError reports a credential that cannot be redeemed.
type InvalidInviteError struct {
	Reason string
}

func (e *InvalidInviteError) Error() string {
	return "invalid invite: " + e.Reason
}

func (e *InvalidInviteError) Is(target error) bool {
	return target == ErrInvalidInvite
}

// Service issues and redeems credentials.
type Service struct {
	invites   store.InviteStore
	inviteTTL time.Duration
	resetTTL  time.Duration
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithInviteTTL overrides DefaultInviteTTL.
func WithInviteTTL(ttl time.Duration) Option {
	return func(s *Service) { s.inviteTTL = ttl }
}

// WithResetTTL overrides DefaultResetTTL.
func WithResetTTL(ttl time.Duration) Option {
	return func(s *Service) { s.resetTTL = ttl }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an invite service.
func NewService(invites store.InviteStore, opts ...Option) *Service {
	s := &Service{
		invites:   invites,
		inviteTTL: DefaultInviteTTL,
		resetTTL:  DefaultResetTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates an active invite and returns it with its raw token.
func (s *Service) Issue(ctx context.Context, inviterID uuid.UUID, orgID *uuid.UUID, email string) (*models.Invite, string, error) {
	token, err := GenerateToken()
	if err != nil {
		return nil, "", err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate invite id: %w", err)
	}

	now := s.now()
	inv := &models.Invite{
		InviteID:  id,
		InviterID: inviterID,
		OrgID:     models.CloneID(orgID),
		Email:     email,
		TokenHash: HashToken(token),
		IsActive:  true,
		ExpiresAt: now.Add(s.inviteTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.invites.Create(ctx, inv); err != nil {
		return nil, "", fmt.Errorf("failed to create invite: %w", err)
	}

	log.Debug().
		Str("invite_id", id.String()).
		Str("inviter_id", inviterID.String()).
		Time("expires_at", inv.ExpiresAt).
		Msg("Issued invite")

	return inv, token, nil
}

// Accept redeems an invite. Validation and deactivation happen in one store
// transaction so a token can be accepted at most once.
func (s *Service) Accept(ctx context.Context, token string) (*models.Invite, error) {
	now := s.now()

	inv, err := s.invites.Consume(ctx, HashToken(token), now, func(inv *models.Invite) error {
		return validate(inv, now)
	})

	reason := "accepted"
	var invalid *InvalidInviteError
	switch {
	case errors.Is(err, store.ErrInviteNotFound):
		err = &InvalidInviteError{Reason: ReasonUnknown}
		reason = ReasonUnknown
	case errors.As(err, &invalid):
		reason = invalid.Reason
	case err != nil:
		reason = "error"
	}
	telemetry.GetMetrics().InviteAcceptsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", reason)))

	if err != nil {
		return nil, err
	}

	log.Info().
		Str("invite_id", inv.InviteID.String()).
		Msg("Accepted invite")

	return inv, nil
}

// Deactivate permanently invalidates an invite.
func (s *Service) Deactivate(ctx context.Context, inviteID uuid.UUID) error {
	if err := s.invites.Deactivate(ctx, inviteID, s.now()); err != nil {
		return fmt.Errorf("failed to deactivate invite %s: %w", inviteID, err)
	}
	return nil
}

// IssueResetToken creates a password reset token for a user.
func (s *Service) IssueResetToken(ctx context.Context, userID uuid.UUID) (*models.PasswordResetToken, string, error) {
	token, err := GenerateToken()
	if err != nil {
		return nil, "", err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token id: %w", err)
	}

	now := s.now()
	t := &models.PasswordResetToken{
		TokenID:   id,
		UserID:    userID,
		TokenHash: HashToken(token),
		ExpiresAt: now.Add(s.resetTTL),
		CreatedAt: now,
	}

	if err := s.invites.CreateResetToken(ctx, t); err != nil {
		return nil, "", fmt.Errorf("failed to create reset token: %w", err)
	}

	return t, token, nil
}

// UseResetToken redeems a password reset token once.
func (s *Service) UseResetToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	now := s.now()

	t, err := s.invites.ConsumeResetToken(ctx, HashToken(token), func(t *models.PasswordResetToken) error {
		switch {
		case t.IsUsed:
			return &InvalidInviteError{Reason: ReasonUsed}
		case !t.IsValid(now):
			return &InvalidInviteError{Reason: ReasonExpired}
		}
		return nil
	})
	if errors.Is(err, store.ErrTokenNotFound) {
		return nil, &InvalidInviteError{Reason: ReasonUnknown}
	}
	if err != nil {
		return nil, err
	}

	return t, nil
}

func validate(inv *models.Invite, now time.Time) error {
	if inv.IsValid(now) {
		return nil
	}
	if !inv.IsActive || inv.DeactivatedAt != nil {
		return &InvalidInviteError{Reason: ReasonDeactivated}
	}
	return &InvalidInviteError{Reason: ReasonExpired}
}

// GenerateToken returns a random base58 token.
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base58.Encode(b), nil
}

// HashToken returns the stored fingerprint of a raw token (Base58-encoded SHA256).
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return base58.Encode(hash[:])
}
