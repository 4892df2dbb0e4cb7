package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/rfpcore/internal/models"
)

type fixture struct {
	db       *DB
	orgs     *OrganizationStore
	users    *UserStore
	roles    *RoleStore
	catalog  *CatalogStore
	rfps     *RFPStore
	invites  *InviteStore
	orgA     uuid.UUID
	orgB     uuid.UUID
	userA    uuid.UUID
	industry uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db := NewDB()
	f := &fixture{
		db:      db,
		orgs:    NewOrganizationStore(db),
		users:   NewUserStore(db),
		roles:   NewRoleStore(db),
		catalog: NewCatalogStore(db),
		rfps:    NewRFPStore(db),
		invites: NewInviteStore(db),
	}

	f.orgA = f.createOrg(t, "Acme")
	f.orgB = f.createOrg(t, "Globex")

	f.userA = uuid.Must(uuid.NewV7())
	require.NoError(t, f.users.Create(ctx, &models.User{
		UserID:   f.userA,
		OrgID:    &f.orgA,
		Email:    "alice@acme.test",
		Username: "alice",
	}))

	f.industry = f.createRow(t, &models.Industry{Name: "Retail"}, nil)

	return f
}

func (f *fixture) createOrg(t *testing.T, name string) uuid.UUID {
	t.Helper()
	id := uuid.Must(uuid.NewV7())
	require.NoError(t, f.orgs.Create(context.Background(), &models.Organization{
		OrgID:     id,
		Name:      name,
		CreatedAt: time.Now(),
	}))
	return id
}

func (f *fixture) createRole(t *testing.T, name string) uuid.UUID {
	t.Helper()
	id := uuid.Must(uuid.NewV7())
	require.NoError(t, f.roles.Create(context.Background(), &models.Role{RoleID: id, Name: name}))
	return id
}

// createRow stores row in the given scope and returns its ID.
func (f *fixture) createRow(t *testing.T, row models.CatalogRow, org *uuid.UUID) uuid.UUID {
	t.Helper()
	base := row.Base()
	base.ID = uuid.Must(uuid.NewV7())
	base.OrgID = org
	require.NoError(t, f.catalog.Create(context.Background(), row))
	return base.ID
}

func (f *fixture) createRFP(t *testing.T, mutate func(*models.GeneratedRFP)) *models.GeneratedRFP {
	t.Helper()
	rfp := &models.GeneratedRFP{
		RFPID:      uuid.Must(uuid.NewV7()),
		OrgID:      &f.orgA,
		OwnerID:    f.userA,
		Name:       "Warehouse automation",
		IndustryID: f.industry,
	}
	if mutate != nil {
		mutate(rfp)
	}
	require.NoError(t, f.rfps.Create(context.Background(), rfp))
	return rfp
}

func ids(rows []models.CatalogRow) []uuid.UUID {
	out := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		out[i] = r.RowID()
	}
	return out
}
