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
	"github.com/wolfeidau/rfpcore/internal/ownership"
	"github.com/wolfeidau/rfpcore/internal/store"
)

const userColumns = `user_id, org_id, email, username, role_id, value_propositions, external_uid, created_at, updated_at`

// UserStore implements store.UserStore using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new PostgreSQL-backed user store.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Create inserts the user and its group rows in one transaction.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	if user.ValuePropositions == "" {
		user.ValuePropositions = models.DefaultValuePropositions
	}
	user.GroupIDs = models.SortIDs(user.GroupIDs)

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (`+userColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			user.UserID,
			user.OrgID,
			user.Email,
			user.Username,
			user.RoleID,
			user.ValuePropositions,
			user.ExternalUID,
			user.CreatedAt,
			user.UpdatedAt,
		)
		if err != nil {
			return err
		}
		return writeGroups(ctx, tx, user.UserID, user.GroupIDs)
	})
	if err != nil {
		if isUniqueViolation(err, "users_pkey", "users_email_key") {
			return store.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("user_id", user.UserID.String()).
		Int("groups", len(user.GroupIDs)).
		Msg("Created user")

	return nil
}

// Get retrieves a user by ID with its groups. Both reads share one snapshot
// so the role and groups always belong to the same membership write.
func (s *UserStore) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user *models.User

	err := readSnapshot(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		user, err = scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID))
		if err != nil {
			return err
		}
		user.GroupIDs, err = readGroups(ctx, tx, userID)
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// ListByOrganization returns the users of an organization ordered by email.
func (s *UserStore) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.User, error) {
	var users []*models.User

	err := readSnapshot(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		users, err = listUsers(ctx, tx, orgID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return users, nil
}

func listUsers(ctx context.Context, q querier, orgID uuid.UUID) ([]*models.User, error) {
	rows, err := q.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE org_id = $1
		ORDER BY email COLLATE "C"
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.User, error) {
		return scanUser(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	byID := make(map[uuid.UUID]*models.User, len(users))
	for _, u := range users {
		byID[u.UserID] = u
	}

	groups, err := q.Query(ctx, `
		SELECT g.user_id, g.role_id
		FROM user_groups g
		JOIN users u ON u.user_id = g.user_id
		WHERE u.org_id = $1
		ORDER BY g.user_id, g.role_id
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user groups: %w", err)
	}
	defer groups.Close()

	for groups.Next() {
		var userID, roleID uuid.UUID
		if err := groups.Scan(&userID, &roleID); err != nil {
			return nil, fmt.Errorf("failed to scan user group: %w", err)
		}
		if u, ok := byID[userID]; ok {
			u.GroupIDs = append(u.GroupIDs, roleID)
		}
	}
	if err := groups.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user groups: %w", err)
	}

	return users, nil
}

// Delete deletes a user. Owned proposals cascade, creator references on
// catalogue rows are set to NULL.
func (s *UserStore) Delete(ctx context.Context, userID uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, userID)
	if err != nil {
		return mapDeleteError(err, ownership.RelationUser, userID)
	}

	if result.RowsAffected() == 0 {
		return store.ErrUserNotFound
	}

	log.Info().
		Str("user_id", userID.String()).
		Msg("Deleted user")

	return nil
}

// UpdateMembership locks the user row with SELECT ... FOR UPDATE, applies fn
// and writes role and groups back before committing.
func (s *UserStore) UpdateMembership(ctx context.Context, userID uuid.UUID, fn store.MembershipFunc) (models.Membership, error) {
	var result models.Membership

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var current models.Membership
		err := tx.QueryRow(ctx, `SELECT role_id FROM users WHERE user_id = $1 FOR UPDATE`, userID).Scan(&current.RoleID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.ErrUserNotFound
			}
			return fmt.Errorf("failed to lock user: %w", err)
		}

		current.GroupIDs, err = readGroups(ctx, tx, userID)
		if err != nil {
			return err
		}

		next, ok := fn(current)
		if !ok {
			result = current
			return nil
		}
		next.GroupIDs = models.SortIDs(next.GroupIDs)

		_, err = tx.Exec(ctx, `UPDATE users SET role_id = $2, updated_at = $3 WHERE user_id = $1`,
			userID, next.RoleID, time.Now())
		if err != nil {
			return mapPostgresError(err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM user_groups WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("failed to clear groups: %w", err)
		}
		if err := writeGroups(ctx, tx, userID, next.GroupIDs); err != nil {
			return mapPostgresError(err)
		}

		result = models.Membership{RoleID: models.CloneID(next.RoleID), GroupIDs: next.GroupIDs}
		return nil
	})
	if err != nil {
		return models.Membership{}, err
	}

	return result, nil
}

// AssignBusinessCycle records an assignment, unique per (organization, cycle).
func (s *UserStore) AssignBusinessCycle(ctx context.Context, a *models.BusinessCycleAssignment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO business_cycle_assignments (
			assignment_id, user_id, org_id, business_cycle_id, created_at
		) VALUES ($1, $2, $3, $4, $5)
	`,
		a.AssignmentID,
		a.UserID,
		a.OrgID,
		a.BusinessCycleID,
		a.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, ownership.AssignmentUniqueConstraint) {
			return &ownership.DuplicateInScopeError{
				Entity: ownership.RelationAssignment,
				Scope:  ownership.Scope{OrgID: a.OrgID},
				Key:    a.BusinessCycleID.String(),
			}
		}
		return fmt.Errorf("failed to assign business cycle: %w", mapPostgresError(err))
	}

	return nil
}

// ListAssignments returns an organization's assignments in creation order.
func (s *UserStore) ListAssignments(ctx context.Context, orgID uuid.UUID) ([]*models.BusinessCycleAssignment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT assignment_id, user_id, org_id, business_cycle_id, created_at
		FROM business_cycle_assignments
		WHERE org_id = $1
		ORDER BY assignment_id
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.BusinessCycleAssignment, error) {
		var a models.BusinessCycleAssignment
		err := row.Scan(&a.AssignmentID, &a.UserID, &a.OrgID, &a.BusinessCycleID, &a.CreatedAt)
		return &a, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan assignment: %w", err)
	}

	return result, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.UserID,
		&u.OrgID,
		&u.Email,
		&u.Username,
		&u.RoleID,
		&u.ValuePropositions,
		&u.ExternalUID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func readGroups(ctx context.Context, q querier, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.Query(ctx, `SELECT role_id FROM user_groups WHERE user_id = $1 ORDER BY role_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read groups: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("failed to scan group: %w", err)
	}
	return ids, nil
}

func writeGroups(ctx context.Context, tx pgx.Tx, userID uuid.UUID, groupIDs []uuid.UUID) error {
	if len(groupIDs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, id := range groupIDs {
		batch.Queue(`INSERT INTO user_groups (user_id, role_id) VALUES ($1, $2)`, userID, id)
	}
	return tx.SendBatch(ctx, batch).Close()
}

// RoleStore implements store.RoleStore using PostgreSQL.
type RoleStore struct {
	pool *pgxpool.Pool
}

// NewRoleStore creates a new PostgreSQL-backed role store.
func NewRoleStore(pool *pgxpool.Pool) *RoleStore {
	return &RoleStore{pool: pool}
}

// Create inserts a role. Role names are unique.
func (s *RoleStore) Create(ctx context.Context, role *models.Role) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO roles (role_id, name) VALUES ($1, $2)`, role.RoleID, role.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrRoleAlreadyExists
		}
		return fmt.Errorf("failed to create role: %w", mapPostgresError(err))
	}
	return nil
}

// Get retrieves a role by ID.
func (s *RoleStore) Get(ctx context.Context, roleID uuid.UUID) (*models.Role, error) {
	return s.getBy(ctx, `role_id = $1`, roleID)
}

// GetByName retrieves a role by name.
func (s *RoleStore) GetByName(ctx context.Context, name string) (*models.Role, error) {
	return s.getBy(ctx, `name = $1`, name)
}

func (s *RoleStore) getBy(ctx context.Context, where string, arg any) (*models.Role, error) {
	var role models.Role
	err := s.pool.QueryRow(ctx, `SELECT role_id, name FROM roles WHERE `+where, arg).Scan(&role.RoleID, &role.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &role, nil
}

// List returns all roles ordered by name.
func (s *RoleStore) List(ctx context.Context) ([]*models.Role, error) {
	rows, err := s.pool.Query(ctx, `SELECT role_id, name FROM roles ORDER BY name COLLATE "C"`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	roles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Role, error) {
		var r models.Role
		err := row.Scan(&r.RoleID, &r.Name)
		return &r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan role: %w", err)
	}
	return roles, nil
}

// Delete deletes a role. users.role_id is set to NULL and group rows cascade.
func (s *RoleStore) Delete(ctx context.Context, roleID uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM roles WHERE role_id = $1`, roleID)
	if err != nil {
		return mapDeleteError(err, ownership.RelationRole, roleID)
	}
	if result.RowsAffected() == 0 {
		return store.ErrRoleNotFound
	}
	return nil
}
