package snapshot_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/rfpcore/internal/models"
	"github.com/wolfeidau/rfpcore/internal/ownership"
	"github.com/wolfeidau/rfpcore/internal/snapshot"
	"github.com/wolfeidau/rfpcore/internal/store"
	"github.com/wolfeidau/rfpcore/internal/store/memory"
)

type env struct {
	rfps      *memory.RFPStore
	catalog   *memory.CatalogStore
	finalizer *snapshot.Finalizer
	rfp       *models.GeneratedRFP
	services  []uuid.UUID
}

func setup(t *testing.T, withOrg bool) *env {
	t.Helper()
	ctx := context.Background()

	db := memory.NewDB()
	orgs := memory.NewOrganizationStore(db)
	users := memory.NewUserStore(db)
	e := &env{
		rfps:    memory.NewRFPStore(db),
		catalog: memory.NewCatalogStore(db),
	}
	e.finalizer = snapshot.NewFinalizer(e.rfps)

	orgID := uuid.Must(uuid.NewV7())
	require.NoError(t, orgs.Create(ctx, &models.Organization{OrgID: orgID, Name: "Acme"}))
	userID := uuid.Must(uuid.NewV7())
	require.NoError(t, users.Create(ctx, &models.User{UserID: userID, OrgID: &orgID, Email: "a@acme.test"}))

	industry := &models.Industry{Name: "Retail"}
	industry.ID = uuid.Must(uuid.NewV7())
	require.NoError(t, e.catalog.Create(ctx, industry))

	for _, name := range []string{"Audit", "Hosting", "Support"} {
		svc := &models.Service{Name: name}
		svc.ID = uuid.Must(uuid.NewV7())
		require.NoError(t, e.catalog.Create(ctx, svc))
		e.services = append(e.services, svc.ID)
	}

	cycle := &models.BusinessCycle{Name: "Plan"}
	cycle.ID = uuid.Must(uuid.NewV7())
	require.NoError(t, e.catalog.Create(ctx, cycle))
	area := &models.FunctionalArea{BusinessCycleID: cycle.ID, Name: "Budget"}
	area.ID = uuid.Must(uuid.NewV7())
	require.NoError(t, e.catalog.Create(ctx, area))

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e.rfp = &models.GeneratedRFP{
		RFPID:            uuid.Must(uuid.NewV7()),
		OwnerID:          userID,
		Name:             "Warehouse automation",
		Description:      "Replace conveyors",
		CompanyURL:       "https://acme.test",
		StartDate:        &start,
		IndustryID:       industry.ID,
		ServiceIDs:       e.services[:2],
		BusinessCycleIDs: []uuid.UUID{cycle.ID},
		Areas:            []models.AreaLink{{AreaID: area.ID, Priority: models.PriorityHigh}},
		Questionnaires:   []json.RawMessage{json.RawMessage(`{ "q": "budget?" }`)},
	}
	if withOrg {
		e.rfp.OrgID = &orgID
	}
	require.NoError(t, e.rfps.Create(ctx, e.rfp))

	return e
}

func TestFinalize(t *testing.T) {
	ctx := context.Background()
	e := setup(t, true)

	rec, err := e.finalizer.Finalize(ctx, e.rfp.RFPID)
	require.NoError(t, err)
	require.Equal(t, models.RFPStatusFinalized, rec.Status)
	require.Equal(t, *e.rfp.OrgID, rec.OrgID)
	require.Equal(t, &e.rfp.RFPID, rec.SourceRFPID)
	require.Equal(t, e.rfp.StartDate, rec.StartDate)
	require.NoError(t, snapshot.VerifyChecksum(rec))

	doc, err := rec.Document()
	require.NoError(t, err)
	require.Equal(t, "Warehouse automation", doc.RFPName)
	require.Equal(t, e.rfp.IndustryID, doc.IndustryID)
	require.Equal(t, e.services[:2], doc.ServiceIDs)
	require.Equal(t, models.PriorityHigh, doc.Areas[0].Priority)
	require.JSONEq(t, `{"q":"budget?"}`, string(doc.Questionnaires[0]))
	require.Empty(t, doc.Descriptions)
}

func TestFinalize_SnapshotIsIndependent(t *testing.T) {
	ctx := context.Background()
	e := setup(t, true)

	first, err := e.finalizer.Finalize(ctx, e.rfp.RFPID)
	require.NoError(t, err)

	require.NoError(t, e.rfps.LinkService(ctx, e.rfp.RFPID, e.services[2]))
	require.NoError(t, e.rfps.UnlinkService(ctx, e.rfp.RFPID, e.services[0]))

	second, err := e.finalizer.Finalize(ctx, e.rfp.RFPID)
	require.NoError(t, err)
	require.NotEqual(t, first.FinalizedID, second.FinalizedID)

	stored, err := e.rfps.GetFinalized(ctx, first.FinalizedID)
	require.NoError(t, err)
	require.Equal(t, first.Snapshot, stored.Snapshot)

	doc, err := stored.Document()
	require.NoError(t, err)
	require.Equal(t, e.services[:2], doc.ServiceIDs)

	doc, err = second.Document()
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{e.services[1], e.services[2]}, doc.ServiceIDs)

	// Mutating a returned record must not reach the stored one.
	stored.Snapshot[0] = 'X'
	again, err := e.rfps.GetFinalized(ctx, first.FinalizedID)
	require.NoError(t, err)
	require.NoError(t, snapshot.VerifyChecksum(again))
}

func TestFinalize_MissingOwner(t *testing.T) {
	ctx := context.Background()
	e := setup(t, false)

	_, err := e.finalizer.Finalize(ctx, e.rfp.RFPID)
	require.ErrorIs(t, err, ownership.ErrMissingOwner)

	var missing *ownership.MissingOwnerError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "finalize", missing.Op)
}

func TestFinalize_UnknownRFP(t *testing.T) {
	e := setup(t, true)

	_, err := e.finalizer.Finalize(context.Background(), uuid.Must(uuid.NewV7()))
	require.ErrorIs(t, err, store.ErrRFPNotFound)
}

func TestEncode_Canonical(t *testing.T) {
	doc := &models.SnapshotDocument{
		RFPName:        "x",
		Questionnaires: []json.RawMessage{json.RawMessage("{\n  \"a\": 1\n}")},
	}

	a, err := snapshot.Encode(doc)
	require.NoError(t, err)
	doc.Questionnaires[0] = json.RawMessage(`{"a":1}`)
	b, err := snapshot.Encode(doc)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, snapshot.Checksum(a), snapshot.Checksum(b))

	_, err = snapshot.Encode(&models.SnapshotDocument{Descriptions: []json.RawMessage{json.RawMessage("{")}})
	require.Error(t, err)
}

func TestVerifyChecksum(t *testing.T) {
	rec := &models.FinalizedRFP{Snapshot: []byte(`{"rfp_name":"x"}`)}
	rec.Checksum = snapshot.Checksum(rec.Snapshot)
	require.NoError(t, snapshot.VerifyChecksum(rec))

	rec.Snapshot = []byte(`{"rfp_name":"y"}`)
	require.ErrorIs(t, snapshot.VerifyChecksum(rec), snapshot.ErrChecksumMismatch)
}
