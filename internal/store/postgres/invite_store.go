package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/rfpcore/internal/models"
	"github.com/wolfeidau/rfpcore/internal/store"
)

const inviteColumns = `invite_id, inviter_id, org_id, email, token_hash, is_active, deactivated_at,
	expires_at, created_at, updated_at`

// InviteStore implements store.InviteStore using PostgreSQL.
type InviteStore struct {
	pool *pgxpool.Pool
}

// NewInviteStore creates a new PostgreSQL-backed invite store.
func NewInviteStore(pool *pgxpool.Pool) *InviteStore {
	return &InviteStore{pool: pool}
}

// Create inserts an invite.
func (s *InviteStore) Create(ctx context.Context, invite *models.Invite) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO invites (`+inviteColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		invite.InviteID,
		invite.InviterID,
		invite.OrgID,
		invite.Email,
		invite.TokenHash,
		invite.IsActive,
		invite.DeactivatedAt,
		invite.ExpiresAt,
		invite.CreatedAt,
		invite.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create invite: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("invite_id", invite.InviteID.String()).
		Msg("Created invite")

	return nil
}

// Get retrieves an invite by ID.
func (s *InviteStore) Get(ctx context.Context, inviteID uuid.UUID) (*models.Invite, error) {
	invite, err := scanInvite(s.pool.QueryRow(ctx, `SELECT `+inviteColumns+` FROM invites WHERE invite_id = $1`, inviteID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrInviteNotFound
		}
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	return invite, nil
}

// Consume locks the invite row, validates it with fn and deactivates it
// before committing. A concurrent accept blocks on the lock and then sees
// the deactivated row.
func (s *InviteStore) Consume(ctx context.Context, tokenHash string, now time.Time, fn func(*models.Invite) error) (*models.Invite, error) {
	var invite *models.Invite

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		invite, err = scanInvite(tx.QueryRow(ctx, `SELECT `+inviteColumns+` FROM invites WHERE token_hash = $1 FOR UPDATE`, tokenHash))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.ErrInviteNotFound
			}
			return fmt.Errorf("failed to lock invite: %w", err)
		}

		if err := fn(invite); err != nil {
			return err
		}

		invite.Deactivate(now)
		return deactivate(ctx, tx, invite)
	})
	if err != nil {
		return nil, err
	}

	return invite, nil
}

// Deactivate permanently invalidates an invite. deactivated_at is only
// written the first time.
func (s *InviteStore) Deactivate(ctx context.Context, inviteID uuid.UUID, now time.Time) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE invites SET
			is_active = FALSE,
			deactivated_at = COALESCE(deactivated_at, $2),
			updated_at = $2
		WHERE invite_id = $1
	`, inviteID, now)
	if err != nil {
		return fmt.Errorf("failed to deactivate invite: %w", mapPostgresError(err))
	}
	if result.RowsAffected() == 0 {
		return store.ErrInviteNotFound
	}
	return nil
}

func deactivate(ctx context.Context, tx pgx.Tx, invite *models.Invite) error {
	_, err := tx.Exec(ctx, `
		UPDATE invites SET is_active = $2, deactivated_at = $3, updated_at = $4
		WHERE invite_id = $1
	`, invite.InviteID, invite.IsActive, invite.DeactivatedAt, invite.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to deactivate invite: %w", mapPostgresError(err))
	}
	return nil
}

// CreateResetToken inserts a password reset token.
func (s *InviteStore) CreateResetToken(ctx context.Context, token *models.PasswordResetToken) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO password_reset_tokens (token_id, user_id, token_hash, expires_at, is_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		token.TokenID,
		token.UserID,
		token.TokenHash,
		token.ExpiresAt,
		token.IsUsed,
		token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reset token: %w", mapPostgresError(err))
	}
	return nil
}

// ConsumeResetToken locks the token row, validates it with fn and marks it
// used before committing.
func (s *InviteStore) ConsumeResetToken(ctx context.Context, tokenHash string, fn func(*models.PasswordResetToken) error) (*models.PasswordResetToken, error) {
	var token models.PasswordResetToken

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			SELECT token_id, user_id, token_hash, expires_at, is_used, created_at
			FROM password_reset_tokens
			WHERE token_hash = $1
			FOR UPDATE
		`, tokenHash).Scan(
			&token.TokenID,
			&token.UserID,
			&token.TokenHash,
			&token.ExpiresAt,
			&token.IsUsed,
			&token.CreatedAt,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.ErrTokenNotFound
			}
			return fmt.Errorf("failed to lock reset token: %w", err)
		}

		if err := fn(&token); err != nil {
			return err
		}

		token.IsUsed = true
		_, err = tx.Exec(ctx, `UPDATE password_reset_tokens SET is_used = TRUE WHERE token_id = $1`, token.TokenID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &token, nil
}

func scanInvite(row pgx.Row) (*models.Invite, error) {
	var i models.Invite
	err := row.Scan(
		&i.InviteID,
		&i.InviterID,
		&i.OrgID,
		&i.Email,
		&i.TokenHash,
		&i.IsActive,
		&i.DeactivatedAt,
		&i.ExpiresAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}
