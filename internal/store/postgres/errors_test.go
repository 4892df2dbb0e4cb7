package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/rfpcore/internal/models"
	"github.com/wolfeidau/rfpcore/internal/ownership"
	"github.com/wolfeidau/rfpcore/internal/store"
)

func TestStoreInterfaces(t *testing.T) {
	var _ store.OrganizationStore = (*OrganizationStore)(nil)
	var _ store.UserStore = (*UserStore)(nil)
	var _ store.RoleStore = (*RoleStore)(nil)
	var _ store.CatalogStore = (*CatalogStore)(nil)
	var _ store.RFPStore = (*RFPStore)(nil)
	var _ store.InviteStore = (*InviteStore)(nil)
}

func TestMapDeleteError(t *testing.T) {
	id := uuid.Must(uuid.NewV7())

	t.Run("protect reference", func(t *testing.T) {
		err := fmt.Errorf("exec: %w", &pgconn.PgError{
			Code:           pgerrcode.ForeignKeyViolation,
			ConstraintName: "generated_rfp_services_service_fk",
		})

		mapped := mapDeleteError(err, ownership.RelationService, id)
		require.ErrorIs(t, mapped, ownership.ErrReferencedRowProtected)

		var protected *ownership.ReferencedRowProtectedError
		require.True(t, errors.As(mapped, &protected))
		require.Equal(t, ownership.RelationService, protected.Entity)
		require.Equal(t, id, protected.ID)
		require.Equal(t, ownership.RelationRFPService, protected.ReferencedBy)
	})

	t.Run("protect reference reached through cascade", func(t *testing.T) {
		err := &pgconn.PgError{
			Code:           pgerrcode.ForeignKeyViolation,
			ConstraintName: "generated_rfp_areas_area_fk",
		}

		var protected *ownership.ReferencedRowProtectedError
		require.True(t, errors.As(mapDeleteError(err, ownership.RelationBusinessCycle, id), &protected))
		require.Equal(t, ownership.RelationFunctionalArea, protected.Entity)
		require.Equal(t, uuid.Nil, protected.ID)
	})

	t.Run("other errors", func(t *testing.T) {
		err := &pgconn.PgError{Code: pgerrcode.QueryCanceled}
		mapped := mapDeleteError(err, ownership.RelationService, id)
		require.NotErrorIs(t, mapped, ownership.ErrReferencedRowProtected)
		require.ErrorContains(t, mapped, "query canceled")
	})
}

func TestMapPostgresErrorForeignKey(t *testing.T) {
	tests := []struct {
		constraint string
		want       error
	}{
		{"users_org_fk", store.ErrOrganizationNotFound},
		{"users_role_fk", store.ErrRoleNotFound},
		{"user_groups_role_fk", store.ErrRoleNotFound},
		{"user_groups_user_fk", store.ErrUserNotFound},
		{"generated_rfps_owner_fk", store.ErrUserNotFound},
		{"generated_rfp_services_rfp_fk", store.ErrRFPNotFound},
		{"generated_rfp_services_service_fk", store.ErrRowNotFound},
		{"response_rfps_submission_fk", store.ErrSubmissionNotFound},
		{"functional_areas_business_cycle_fk", store.ErrRowNotFound},
		{"unknown_fk", store.ErrRowNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			err := mapPostgresError(&pgconn.PgError{
				Code:           pgerrcode.ForeignKeyViolation,
				ConstraintName: tt.constraint,
			})
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{
		Code:           pgerrcode.UniqueViolation,
		ConstraintName: ownership.UniqueConstraint(models.KindService),
	})

	require.True(t, isUniqueViolation(err))
	require.True(t, isUniqueViolation(err, "services_scope_key"))
	require.False(t, isUniqueViolation(err, "industries_scope_key"))
	require.False(t, isUniqueViolation(errors.New("boom")))
}
