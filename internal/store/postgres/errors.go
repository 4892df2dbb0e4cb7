package postgres

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wolfeidau/rfpcore/internal/ownership"
	"github.com/wolfeidau/rfpcore/internal/store"
)

// parentConstraints name the foreign keys from join and child tables to
// their owning aggregate. They are not part of the referential policy since
// the aggregate is the only writer.
var parentConstraints = map[string]error{
	"user_groups_user_fk":                  store.ErrUserNotFound,
	"generated_rfp_services_rfp_fk":        store.ErrRFPNotFound,
	"generated_rfp_business_cycles_rfp_fk": store.ErrRFPNotFound,
	"generated_rfp_areas_rfp_fk":           store.ErrRFPNotFound,
	"generated_rfp_allowed_users_rfp_fk":   store.ErrRFPNotFound,
	"industry_blocked_for_row_fk":          store.ErrRowNotFound,
}

// mapPostgresError maps PostgreSQL-specific errors to sentinel errors.
// Returns the original error if it's not a PostgreSQL error or doesn't match known patterns.
func mapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return fmt.Errorf("unique constraint violation: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.ForeignKeyViolation:
		// Inserts and updates pointing at a missing row
		return fmt.Errorf("%w: %s", missingRowError(pgErr.ConstraintName), pgErr.Detail)

	case pgerrcode.CheckViolation:
		return fmt.Errorf("check constraint violation: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return fmt.Errorf("transaction conflict (retryable): %w", err)

	case pgerrcode.ConnectionException,
		pgerrcode.ConnectionDoesNotExist,
		pgerrcode.ConnectionFailure,
		pgerrcode.CannotConnectNow,
		pgerrcode.SQLClientUnableToEstablishSQLConnection:
		return fmt.Errorf("database connection error: %w", err)

	case pgerrcode.AdminShutdown,
		pgerrcode.CrashShutdown:
		return fmt.Errorf("database server unavailable: %w", err)

	case pgerrcode.QueryCanceled:
		return fmt.Errorf("query canceled: %w", err)

	case pgerrcode.InsufficientResources,
		pgerrcode.DiskFull,
		pgerrcode.OutOfMemory,
		pgerrcode.TooManyConnections:
		return fmt.Errorf("database resource limit: %w", err)

	default:
		return fmt.Errorf("postgres error [%s]: %s (detail: %s, hint: %s): %w",
			pgErr.Code, pgErr.Message, pgErr.Detail, pgErr.Hint, err)
	}
}

// mapDeleteError maps a failed delete of one row. A foreign key violation
// raised by a delete can only come from a protect reference.
func mapDeleteError(err error, rel ownership.Relation, id uuid.UUID) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
		if ref, ok := ownership.ReferenceByName(pgErr.ConstraintName); ok && ref.OnDelete == ownership.Protect {
			return &ownership.ReferencedRowProtectedError{
				Entity:       ref.To,
				ID:           referencedID(ref, rel, id),
				ReferencedBy: ref.From,
				Constraint:   ref.Name,
			}
		}
	}
	return mapPostgresError(err)
}

// referencedID reports the protected row. When the protected row was reached
// through a cascade its ID is not known here, and the requested row is used.
func referencedID(ref ownership.Reference, rel ownership.Relation, id uuid.UUID) uuid.UUID {
	if ref.To == rel {
		return id
	}
	return uuid.Nil
}

// missingRowError returns the not-found sentinel for the target of a
// violated foreign key.
func missingRowError(constraint string) error {
	if err, ok := parentConstraints[constraint]; ok {
		return err
	}
	ref, ok := ownership.ReferenceByName(constraint)
	if !ok {
		return store.ErrRowNotFound
	}
	switch ref.To {
	case ownership.RelationOrganization:
		return store.ErrOrganizationNotFound
	case ownership.RelationUser:
		return store.ErrUserNotFound
	case ownership.RelationRole:
		return store.ErrRoleNotFound
	case ownership.RelationGeneratedRFP:
		return store.ErrRFPNotFound
	case ownership.RelationSubmittedRFP:
		return store.ErrSubmissionNotFound
	}
	return store.ErrRowNotFound
}

// isUniqueViolation reports whether err is a unique violation, optionally
// restricted to one constraint.
func isUniqueViolation(err error, constraints ...string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return false
	}
	if len(constraints) == 0 {
		return true
	}
	for _, c := range constraints {
		if pgErr.ConstraintName == c {
			return true
		}
	}
	return false
}
