package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/rfpcore/internal/models"
	"github.com/wolfeidau/rfpcore/internal/store"
)

// InviteStore implements store.InviteStore using in-memory storage.
type InviteStore struct {
	db *DB
}

// NewInviteStore creates a new in-memory invite store.
func NewInviteStore(db *DB) *InviteStore {
	return &InviteStore{db: db}
}

// Create stores a new invite.
func (s *InviteStore) Create(ctx context.Context, invite *models.Invite) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if !s.db.userExists(invite.InviterID) {
		return store.ErrUserNotFound
	}
	if !s.db.orgExists(invite.OrgID) {
		return store.ErrOrganizationNotFound
	}

	s.db.invites[invite.InviteID] = cloneInvite(invite)

	return nil
}

// Get retrieves an invite by ID.
func (s *InviteStore) Get(ctx context.Context, inviteID uuid.UUID) (*models.Invite, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	invite, exists := s.db.invites[inviteID]
	if !exists {
		return nil, store.ErrInviteNotFound
	}

	return cloneInvite(invite), nil
}

// Consume validates and deactivates an invite under the write lock.
func (s *InviteStore) Consume(ctx context.Context, tokenHash string, now time.Time, fn func(*models.Invite) error) (*models.Invite, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var invite *models.Invite
	for _, i := range s.db.invites {
		if i.TokenHash == tokenHash {
			invite = i
			break
		}
	}
	if invite == nil {
		return nil, store.ErrInviteNotFound
	}

	if err := fn(cloneInvite(invite)); err != nil {
		return nil, err
	}
	invite.Deactivate(now)

	return cloneInvite(invite), nil
}

// Deactivate permanently invalidates an invite.
func (s *InviteStore) Deactivate(ctx context.Context, inviteID uuid.UUID, now time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	invite, exists := s.db.invites[inviteID]
	if !exists {
		return store.ErrInviteNotFound
	}
	invite.Deactivate(now)

	return nil
}

// CreateResetToken stores a new password reset token.
func (s *InviteStore) CreateResetToken(ctx context.Context, token *models.PasswordResetToken) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if !s.db.userExists(token.UserID) {
		return store.ErrUserNotFound
	}

	clone := *token
	s.db.resetTokens[token.TokenID] = &clone

	return nil
}

// ConsumeResetToken validates and marks a token used under the write lock.
func (s *InviteStore) ConsumeResetToken(ctx context.Context, tokenHash string, fn func(*models.PasswordResetToken) error) (*models.PasswordResetToken, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var token *models.PasswordResetToken
	for _, t := range s.db.resetTokens {
		if t.TokenHash == tokenHash {
			token = t
			break
		}
	}
	if token == nil {
		return nil, store.ErrTokenNotFound
	}

	clone := *token
	if err := fn(&clone); err != nil {
		return nil, err
	}
	token.IsUsed = true

	clone = *token
	return &clone, nil
}

func cloneInvite(i *models.Invite) *models.Invite {
	clone := *i
	clone.OrgID = models.CloneID(i.OrgID)
	if i.DeactivatedAt != nil {
		t := *i.DeactivatedAt
		clone.DeactivatedAt = &t
	}
	return &clone
}
