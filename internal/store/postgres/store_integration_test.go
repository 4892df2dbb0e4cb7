//go:build integration

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/wolfeidau/rfpcore/internal/models"
	"github.com/wolfeidau/rfpcore/internal/ownership"
	"github.com/wolfeidau/rfpcore/internal/store"
	"github.com/wolfeidau/rfpcore/internal/visibility"
)

type testStores struct {
	orgs    *OrganizationStore
	users   *UserStore
	roles   *RoleStore
	catalog *CatalogStore
	rfps    *RFPStore
	invites *InviteStore
	db      *DB
}

func setupPostgresContainer(t *testing.T, ctx context.Context) (*testStores, func()) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := &Config{
		PoolConfig: PoolConfig{
			ConnString: fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		},
		AutoMigrate: true,
	}

	db, err := Open(ctx, cfg)
	require.NoError(t, err)
	db.Start()

	pool := db.Pool()
	stores := &testStores{
		orgs:    NewOrganizationStore(pool),
		users:   NewUserStore(pool),
		roles:   NewRoleStore(pool),
		catalog: NewCatalogStore(pool),
		rfps:    NewRFPStore(pool),
		invites: NewInviteStore(pool),
		db:      db,
	}

	cleanup := func() {
		db.Close()
		_ = container.Terminate(ctx)
	}

	return stores, cleanup
}

func newID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	return id
}

func (s *testStores) createOrg(t *testing.T, ctx context.Context, name string) uuid.UUID {
	t.Helper()
	now := time.Now()
	org := &models.Organization{OrgID: newID(t), Name: name, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.orgs.Create(ctx, org))
	return org.OrgID
}

func (s *testStores) createUser(t *testing.T, ctx context.Context, org *uuid.UUID, email string) uuid.UUID {
	t.Helper()
	now := time.Now()
	u := &models.User{UserID: newID(t), OrgID: org, Email: email, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.users.Create(ctx, u))
	return u.UserID
}

func catalogBase(t *testing.T, org, creator *uuid.UUID) models.CatalogBase {
	now := time.Now()
	return models.CatalogBase{
		ID:        newID(t),
		Ownership: models.Ownership{OrgID: org, CreatedBy: creator},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestIntegration_Migrations(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	// A second run is a no-op.
	require.NoError(t, RunMigrations(ctx, s.db.Pool()))

	applied, err := AppliedMigrations(ctx, s.db.Pool())
	require.NoError(t, err)
	require.Equal(t, []Migration{{Version: 1, Name: "1_initial_schema.sql"}}, applied)
}

func TestIntegration_Catalog(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	orgA := s.createOrg(t, ctx, "Acme")
	orgB := s.createOrg(t, ctx, "Globex")

	global := &models.Industry{CatalogBase: catalogBase(t, nil, nil), Name: "Retail"}
	require.NoError(t, s.catalog.Create(ctx, global))

	t.Run("duplicate global key", func(t *testing.T) {
		err := s.catalog.Create(ctx, &models.Industry{CatalogBase: catalogBase(t, nil, nil), Name: " Retail "})
		require.ErrorIs(t, err, ownership.ErrDuplicateInScope)

		var dup *ownership.DuplicateInScopeError
		require.ErrorAs(t, err, &dup)
		require.True(t, dup.Scope.IsGlobal())
	})

	t.Run("same key in separate scopes", func(t *testing.T) {
		require.NoError(t, s.catalog.Create(ctx, &models.Industry{CatalogBase: catalogBase(t, &orgA, nil), Name: "Retail"}))
		require.NoError(t, s.catalog.Create(ctx, &models.Industry{CatalogBase: catalogBase(t, &orgB, nil), Name: "Retail"}))

		err := s.catalog.Create(ctx, &models.Industry{CatalogBase: catalogBase(t, &orgA, nil), Name: "Retail"})
		require.ErrorIs(t, err, ownership.ErrDuplicateInScope)
	})

	t.Run("visibility and block list", func(t *testing.T) {
		require.NoError(t, s.catalog.Block(ctx, models.KindIndustry, global.ID, orgA))
		require.NoError(t, s.catalog.Block(ctx, models.KindIndustry, global.ID, orgA))

		rowsA, err := s.catalog.ListVisible(ctx, models.KindIndustry, visibility.Org(orgA))
		require.NoError(t, err)
		require.Len(t, rowsA, 1)
		require.Equal(t, &orgA, rowsA[0].Owner())

		rowsB, err := s.catalog.ListVisible(ctx, models.KindIndustry, visibility.Org(orgB))
		require.NoError(t, err)
		require.Len(t, rowsB, 2)
		require.Nil(t, rowsB[0].Owner(), "global rows sort first on equal names")

		anon, err := s.catalog.ListVisible(ctx, models.KindIndustry, visibility.Anonymous)
		require.NoError(t, err)
		require.Len(t, anon, 1)
		require.Equal(t, []uuid.UUID{orgA}, anon[0].(*models.Industry).BlockedFor)

		require.NoError(t, s.catalog.Unblock(ctx, models.KindIndustry, global.ID, orgA))
		rowsA, err = s.catalog.ListVisible(ctx, models.KindIndustry, visibility.Org(orgA))
		require.NoError(t, err)
		require.Len(t, rowsA, 2)
	})

	t.Run("block rejects private rows and other kinds", func(t *testing.T) {
		private := &models.Industry{CatalogBase: catalogBase(t, &orgA, nil), Name: "Mining"}
		require.NoError(t, s.catalog.Create(ctx, private))
		require.ErrorIs(t, s.catalog.Block(ctx, models.KindIndustry, private.ID, orgB), store.ErrNotGlobal)

		svc := &models.Service{CatalogBase: catalogBase(t, nil, nil), Name: "Audit"}
		require.NoError(t, s.catalog.Create(ctx, svc))
		require.ErrorIs(t, s.catalog.Block(ctx, models.KindService, svc.ID, orgA), store.ErrNotBlockable)
		require.ErrorIs(t, s.catalog.Block(ctx, models.KindIndustry, newID(t), orgA), store.ErrRowNotFound)
	})

	t.Run("functional areas order by cycle", func(t *testing.T) {
		late := &models.BusinessCycle{CatalogBase: catalogBase(t, &orgB, nil), Order: 2, Name: "Close"}
		early := &models.BusinessCycle{CatalogBase: catalogBase(t, &orgB, nil), Order: 1, Name: "Open"}
		require.NoError(t, s.catalog.Create(ctx, late))
		require.NoError(t, s.catalog.Create(ctx, early))

		a1 := &models.FunctionalArea{CatalogBase: catalogBase(t, &orgB, nil), BusinessCycleID: late.ID, Order: 1, Name: "Ledger"}
		a2 := &models.FunctionalArea{CatalogBase: catalogBase(t, &orgB, nil), BusinessCycleID: early.ID, Order: 5, Name: "Intake"}
		require.NoError(t, s.catalog.Create(ctx, a1))
		require.NoError(t, s.catalog.Create(ctx, a2))

		rows, err := s.catalog.ListVisible(ctx, models.KindFunctionalArea, visibility.Org(orgB))
		require.NoError(t, err)
		require.Len(t, rows, 2)
		require.Equal(t, a2.ID, rows[0].RowID())
		require.Equal(t, a1.ID, rows[1].RowID())

		err = s.catalog.Create(ctx, &models.FunctionalArea{CatalogBase: catalogBase(t, &orgB, nil), BusinessCycleID: newID(t), Name: "Orphan"})
		require.ErrorIs(t, err, store.ErrRowNotFound)
	})
}

func TestIntegration_ReferentialPolicy(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	org := s.createOrg(t, ctx, "Acme")
	owner := s.createUser(t, ctx, &org, "owner@acme.test")

	industry := &models.Industry{CatalogBase: catalogBase(t, nil, nil), Name: "Retail"}
	service := &models.Service{CatalogBase: catalogBase(t, nil, &owner), Name: "Audit"}
	cycle := &models.BusinessCycle{CatalogBase: catalogBase(t, &org, &owner), Name: "Procure"}
	require.NoError(t, s.catalog.Create(ctx, industry))
	require.NoError(t, s.catalog.Create(ctx, service))
	require.NoError(t, s.catalog.Create(ctx, cycle))
	area := &models.FunctionalArea{CatalogBase: catalogBase(t, &org, &owner), BusinessCycleID: cycle.ID, Name: "Sourcing"}
	require.NoError(t, s.catalog.Create(ctx, area))

	now := time.Now()
	rfp := &models.GeneratedRFP{
		RFPID:          newID(t),
		OrgID:          &org,
		OwnerID:        owner,
		Name:           "Warehouse",
		IndustryID:     industry.ID,
		ServiceIDs:     []uuid.UUID{service.ID},
		Questionnaires: []json.RawMessage{json.RawMessage(`{"q":1}`)},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, s.rfps.Create(ctx, rfp))
	require.NoError(t, s.rfps.LinkArea(ctx, rfp.RFPID, area.ID, models.PriorityHigh))
	require.ErrorIs(t, s.rfps.LinkArea(ctx, rfp.RFPID, area.ID, models.PriorityLow), store.ErrAlreadyLinked)

	t.Run("linked rows are protected", func(t *testing.T) {
		err := s.catalog.Delete(ctx, models.KindService, service.ID)
		require.ErrorIs(t, err, ownership.ErrReferencedRowProtected)

		err = s.catalog.Delete(ctx, models.KindBusinessCycle, cycle.ID)
		require.ErrorIs(t, err, ownership.ErrReferencedRowProtected)

		_, err = s.catalog.Get(ctx, models.KindFunctionalArea, area.ID)
		require.NoError(t, err)
	})

	t.Run("get returns joins in link order", func(t *testing.T) {
		got, err := s.rfps.Get(ctx, rfp.RFPID)
		require.NoError(t, err)
		require.Equal(t, []uuid.UUID{service.ID}, got.ServiceIDs)
		require.Equal(t, []models.AreaLink{{AreaID: area.ID, Priority: models.PriorityHigh}}, got.Areas)
		require.Equal(t, models.RFPStatusInProgress, got.Status)
		require.JSONEq(t, `{"q":1}`, string(got.Questionnaires[0]))
	})

	t.Run("unlink then delete", func(t *testing.T) {
		require.NoError(t, s.rfps.UnlinkService(ctx, rfp.RFPID, service.ID))
		require.ErrorIs(t, s.rfps.UnlinkService(ctx, rfp.RFPID, service.ID), store.ErrNotLinked)
		require.NoError(t, s.catalog.Delete(ctx, models.KindService, service.ID))
	})

	t.Run("finalized snapshot outlives its source", func(t *testing.T) {
		rec, err := s.rfps.Finalize(ctx, rfp.RFPID, func(r *models.GeneratedRFP) (*models.FinalizedRFP, error) {
			return &models.FinalizedRFP{
				FinalizedID: newID(t),
				SourceRFPID: &r.RFPID,
				OrgID:       *r.OrgID,
				Status:      models.RFPStatusFinalized,
				Snapshot:    []byte(`{"rfp_name":"Warehouse"}`),
				Checksum:    1 << 63,
				CreatedAt:   time.Now(),
			}, nil
		})
		require.NoError(t, err)

		_, err = s.db.Pool().Exec(ctx, `UPDATE finalized_rfps SET status = 'changed' WHERE finalized_id = $1`, rec.FinalizedID)
		require.Error(t, err)

		require.NoError(t, s.rfps.Delete(ctx, rfp.RFPID))

		got, err := s.rfps.GetFinalized(ctx, rec.FinalizedID)
		require.NoError(t, err)
		require.Nil(t, got.SourceRFPID)
		require.Equal(t, rec.Snapshot, got.Snapshot)
		require.Equal(t, rec.Checksum, got.Checksum)

		// With the proposal gone the area can be deleted.
		require.NoError(t, s.catalog.Delete(ctx, models.KindBusinessCycle, cycle.ID))
		_, err = s.catalog.Get(ctx, models.KindFunctionalArea, area.ID)
		require.ErrorIs(t, err, store.ErrRowNotFound)
	})

	t.Run("user delete clears creator", func(t *testing.T) {
		other := s.createUser(t, ctx, &org, "other@acme.test")
		svc := &models.Service{CatalogBase: catalogBase(t, &org, &other), Name: "Consulting"}
		require.NoError(t, s.catalog.Create(ctx, svc))

		require.NoError(t, s.users.Delete(ctx, other))

		got, err := s.catalog.Get(ctx, models.KindService, svc.ID)
		require.NoError(t, err)
		require.Nil(t, got.Base().CreatedBy)
	})

	t.Run("organization delete cascades", func(t *testing.T) {
		require.NoError(t, s.orgs.Delete(ctx, org))

		_, err := s.users.Get(ctx, owner)
		require.ErrorIs(t, err, store.ErrUserNotFound)

		list, err := s.rfps.ListFinalized(ctx, org)
		require.NoError(t, err)
		require.Empty(t, list)

		_, err = s.catalog.Get(ctx, models.KindIndustry, industry.ID)
		require.NoError(t, err, "global rows survive")

		require.ErrorIs(t, s.orgs.Delete(ctx, org), store.ErrOrganizationNotFound)
	})
}

func TestIntegration_Membership(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	org := s.createOrg(t, ctx, "Acme")
	admin := &models.Role{RoleID: newID(t), Name: "admin"}
	viewer := &models.Role{RoleID: newID(t), Name: "viewer"}
	require.NoError(t, s.roles.Create(ctx, admin))
	require.NoError(t, s.roles.Create(ctx, viewer))
	require.ErrorIs(t, s.roles.Create(ctx, &models.Role{RoleID: newID(t), Name: "admin"}), store.ErrRoleAlreadyExists)

	userID := s.createUser(t, ctx, &org, "member@acme.test")
	require.ErrorIs(t, s.users.Create(ctx, &models.User{UserID: newID(t), Email: "member@acme.test"}), store.ErrUserAlreadyExists)

	m, err := s.users.UpdateMembership(ctx, userID, func(current models.Membership) (models.Membership, bool) {
		require.Nil(t, current.RoleID)
		require.Empty(t, current.GroupIDs)
		return models.Membership{RoleID: &viewer.RoleID, GroupIDs: []uuid.UUID{viewer.RoleID, admin.RoleID}}, true
	})
	require.NoError(t, err)
	require.True(t, m.Consistent())

	got, err := s.users.Get(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, &viewer.RoleID, got.RoleID)
	require.Equal(t, models.SortIDs([]uuid.UUID{viewer.RoleID, admin.RoleID}), got.GroupIDs)
	require.Equal(t, models.DefaultValuePropositions, got.ValuePropositions)

	_, err = s.users.UpdateMembership(ctx, userID, func(current models.Membership) (models.Membership, bool) {
		return models.Membership{GroupIDs: []uuid.UUID{newID(t)}}, true
	})
	require.ErrorIs(t, err, store.ErrRoleNotFound)

	require.NoError(t, s.roles.Delete(ctx, viewer.RoleID))
	got, err = s.users.Get(ctx, userID)
	require.NoError(t, err)
	require.Nil(t, got.RoleID)
	require.Equal(t, []uuid.UUID{admin.RoleID}, got.GroupIDs)

	users, err := s.users.ListByOrganization(ctx, org)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, []uuid.UUID{admin.RoleID}, users[0].GroupIDs)

	t.Run("assignment unique per organization and cycle", func(t *testing.T) {
		cycle := &models.BusinessCycle{CatalogBase: catalogBase(t, &org, nil), Name: "Procure"}
		require.NoError(t, s.catalog.Create(ctx, cycle))

		a := &models.BusinessCycleAssignment{AssignmentID: newID(t), UserID: &userID, OrgID: org, BusinessCycleID: cycle.ID, CreatedAt: time.Now()}
		require.NoError(t, s.users.AssignBusinessCycle(ctx, a))

		dup := &models.BusinessCycleAssignment{AssignmentID: newID(t), OrgID: org, BusinessCycleID: cycle.ID, CreatedAt: time.Now()}
		require.ErrorIs(t, s.users.AssignBusinessCycle(ctx, dup), ownership.ErrDuplicateInScope)

		list, err := s.users.ListAssignments(ctx, org)
		require.NoError(t, err)
		require.Len(t, list, 1)
	})
}

func TestIntegration_MembershipReadsConsistent(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	org := s.createOrg(t, ctx, "Acme")
	a := &models.Role{RoleID: newID(t), Name: "analyst"}
	b := &models.Role{RoleID: newID(t), Name: "buyer"}
	require.NoError(t, s.roles.Create(ctx, a))
	require.NoError(t, s.roles.Create(ctx, b))
	userID := s.createUser(t, ctx, &org, "member@acme.test")

	set := func(role uuid.UUID) error {
		_, err := s.users.UpdateMembership(ctx, userID, func(models.Membership) (models.Membership, bool) {
			return models.Membership{RoleID: &role, GroupIDs: []uuid.UUID{role}}, true
		})
		return err
	}
	require.NoError(t, set(a.RoleID))

	var (
		wg       sync.WaitGroup
		writeErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 200 {
			role := a.RoleID
			if i%2 == 0 {
				role = b.RoleID
			}
			if err := set(role); err != nil {
				writeErr = err
				return
			}
		}
	}()

	for range 200 {
		got, err := s.users.Get(ctx, userID)
		require.NoError(t, err)
		require.NotNil(t, got.RoleID)
		require.Equal(t, []uuid.UUID{*got.RoleID}, got.GroupIDs)

		users, err := s.users.ListByOrganization(ctx, org)
		require.NoError(t, err)
		require.Len(t, users, 1)
		require.Equal(t, []uuid.UUID{*users[0].RoleID}, users[0].GroupIDs)
	}

	wg.Wait()
	require.NoError(t, writeErr)
}

func TestIntegration_UpdateEntries(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	org := s.createOrg(t, ctx, "Acme")
	owner := s.createUser(t, ctx, &org, "owner@acme.test")
	industry := &models.Industry{CatalogBase: catalogBase(t, nil, nil), Name: "Retail"}
	require.NoError(t, s.catalog.Create(ctx, industry))

	now := time.Now()
	rfp := &models.GeneratedRFP{RFPID: newID(t), OrgID: &org, OwnerID: owner, Name: "Fleet", IndustryID: industry.ID, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.rfps.Create(ctx, rfp))

	locked := make(chan struct{})
	release := make(chan struct{})
	var (
		wg        sync.WaitGroup
		secondErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-locked
		_, secondErr = s.rfps.UpdateEntries(ctx, rfp.RFPID, func(current models.Entries) (models.Entries, error) {
			current.Descriptions = []json.RawMessage{json.RawMessage(`"d"`)}
			return current, nil
		})
	}()

	_, err := s.rfps.UpdateEntries(ctx, rfp.RFPID, func(current models.Entries) (models.Entries, error) {
		close(locked)
		time.AfterFunc(200*time.Millisecond, func() { close(release) })
		<-release
		current.Questionnaires = []json.RawMessage{json.RawMessage(`"q"`)}
		return current, nil
	})
	require.NoError(t, err)
	wg.Wait()
	require.NoError(t, secondErr)

	got, err := s.rfps.Get(ctx, rfp.RFPID)
	require.NoError(t, err)
	require.Len(t, got.Questionnaires, 1)
	require.Len(t, got.Descriptions, 1)

	_, err = s.rfps.UpdateEntries(ctx, newID(t), func(current models.Entries) (models.Entries, error) {
		return current, nil
	})
	require.ErrorIs(t, err, store.ErrRFPNotFound)
}

func TestIntegration_BlockListOnCreate(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	org := s.createOrg(t, ctx, "Acme")

	owned := &models.Industry{CatalogBase: catalogBase(t, &org, nil), BlockList: models.BlockList{BlockedFor: []uuid.UUID{org}}, Name: "Mining"}
	require.ErrorIs(t, s.catalog.Create(ctx, owned), store.ErrNotGlobal)

	unknown := &models.Industry{CatalogBase: catalogBase(t, nil, nil), BlockList: models.BlockList{BlockedFor: []uuid.UUID{newID(t)}}, Name: "Mining"}
	require.ErrorIs(t, s.catalog.Create(ctx, unknown), store.ErrOrganizationNotFound)

	global := &models.Industry{CatalogBase: catalogBase(t, nil, nil), BlockList: models.BlockList{BlockedFor: []uuid.UUID{org}}, Name: "Mining"}
	require.NoError(t, s.catalog.Create(ctx, global))

	rows, err := s.catalog.ListVisible(ctx, models.KindIndustry, visibility.Org(org))
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestIntegration_Invites(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	org := s.createOrg(t, ctx, "Acme")
	inviter := s.createUser(t, ctx, &org, "inviter@acme.test")
	now := time.Now().UTC().Truncate(time.Microsecond)

	invite := &models.Invite{
		InviteID:  newID(t),
		InviterID: inviter,
		OrgID:     &org,
		Email:     "new@acme.test",
		TokenHash: "hash-1",
		IsActive:  true,
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.invites.Create(ctx, invite))

	validate := func(i *models.Invite) error {
		if !i.IsValid(now) {
			return fmt.Errorf("invalid invite")
		}
		return nil
	}

	got, err := s.invites.Consume(ctx, "hash-1", now, validate)
	require.NoError(t, err)
	require.False(t, got.IsActive)
	require.NotNil(t, got.DeactivatedAt)

	_, err = s.invites.Consume(ctx, "hash-1", now, validate)
	require.Error(t, err)

	_, err = s.invites.Consume(ctx, "missing", now, validate)
	require.ErrorIs(t, err, store.ErrInviteNotFound)

	require.NoError(t, s.invites.Deactivate(ctx, invite.InviteID, now.Add(time.Minute)))
	stored, err := s.invites.Get(ctx, invite.InviteID)
	require.NoError(t, err)
	require.True(t, stored.DeactivatedAt.Equal(now), "first deactivation time is kept")

	token := &models.PasswordResetToken{TokenID: newID(t), UserID: inviter, TokenHash: "reset-1", ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	require.NoError(t, s.invites.CreateResetToken(ctx, token))

	used, err := s.invites.ConsumeResetToken(ctx, "reset-1", func(tok *models.PasswordResetToken) error {
		if !tok.IsValid(now) {
			return fmt.Errorf("invalid token")
		}
		return nil
	})
	require.NoError(t, err)
	require.True(t, used.IsUsed)
}
