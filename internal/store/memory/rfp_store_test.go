package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/rfpcore/internal/models"
	"github.com/wolfeidau/rfpcore/internal/store"
)

func TestRFPStore_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults status", func(t *testing.T) {
		f := newFixture(t)
		rfp := f.createRFP(t, nil)

		got, err := f.rfps.Get(ctx, rfp.RFPID)
		require.NoError(t, err)
		require.Equal(t, models.RFPStatusInProgress, got.Status)
	})

	t.Run("duplicate join rows", func(t *testing.T) {
		f := newFixture(t)
		svc := f.createRow(t, &models.Service{Name: "Audit"}, nil)

		err := f.rfps.Create(ctx, &models.GeneratedRFP{
			RFPID:      uuid.Must(uuid.NewV7()),
			OrgID:      &f.orgA,
			OwnerID:    f.userA,
			IndustryID: f.industry,
			ServiceIDs: []uuid.UUID{svc, svc},
		})
		require.ErrorIs(t, err, store.ErrAlreadyLinked)
	})

	t.Run("unknown industry", func(t *testing.T) {
		f := newFixture(t)

		err := f.rfps.Create(ctx, &models.GeneratedRFP{
			RFPID:      uuid.Must(uuid.NewV7()),
			OwnerID:    f.userA,
			IndustryID: uuid.Must(uuid.NewV7()),
		})
		require.ErrorIs(t, err, store.ErrRowNotFound)
	})
}

func TestRFPStore_Links(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rfp := f.createRFP(t, nil)

	svc := f.createRow(t, &models.Service{Name: "Audit"}, nil)
	cycle := f.createRow(t, &models.BusinessCycle{Name: "Plan"}, nil)
	area := f.createRow(t, &models.FunctionalArea{BusinessCycleID: cycle, Name: "Budget"}, nil)

	require.NoError(t, f.rfps.LinkService(ctx, rfp.RFPID, svc))
	require.ErrorIs(t, f.rfps.LinkService(ctx, rfp.RFPID, svc), store.ErrAlreadyLinked)
	require.NoError(t, f.rfps.LinkBusinessCycle(ctx, rfp.RFPID, cycle))
	require.NoError(t, f.rfps.LinkArea(ctx, rfp.RFPID, area, models.PriorityLow))
	require.ErrorIs(t, f.rfps.LinkArea(ctx, rfp.RFPID, area, models.PriorityHigh), store.ErrAlreadyLinked)
	require.ErrorIs(t, f.rfps.LinkService(ctx, rfp.RFPID, uuid.Must(uuid.NewV7())), store.ErrRowNotFound)

	got, err := f.rfps.Get(ctx, rfp.RFPID)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{svc}, got.ServiceIDs)
	require.Equal(t, []uuid.UUID{cycle}, got.BusinessCycleIDs)
	require.Equal(t, []models.AreaLink{{AreaID: area, Priority: models.PriorityLow}}, got.Areas)

	require.NoError(t, f.rfps.UnlinkArea(ctx, rfp.RFPID, area))
	require.ErrorIs(t, f.rfps.UnlinkArea(ctx, rfp.RFPID, area), store.ErrNotLinked)
	require.NoError(t, f.rfps.UnlinkBusinessCycle(ctx, rfp.RFPID, cycle))
	require.ErrorIs(t, f.rfps.UnlinkService(ctx, uuid.Must(uuid.NewV7()), svc), store.ErrRFPNotFound)
}

func TestRFPStore_Update(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.createRow(t, &models.Service{Name: "Audit"}, nil)
	rfp := f.createRFP(t, func(r *models.GeneratedRFP) { r.ServiceIDs = []uuid.UUID{svc} })

	rfp.Name = "Renamed"
	rfp.ServiceIDs = nil
	rfp.Questionnaires = []json.RawMessage{json.RawMessage(`{"q":"budget?"}`)}
	require.NoError(t, f.rfps.Update(ctx, rfp))

	got, err := f.rfps.Get(ctx, rfp.RFPID)
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.Name)
	require.Equal(t, []uuid.UUID{svc}, got.ServiceIDs, "joins change only through link methods")
	require.Len(t, got.Questionnaires, 1)
}

func TestRFPStore_UpdateEntries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rfp := f.createRFP(t, func(r *models.GeneratedRFP) {
		r.Questionnaires = []json.RawMessage{json.RawMessage(`"q1"`)}
	})

	var seen models.Entries
	next, err := f.rfps.UpdateEntries(ctx, rfp.RFPID, func(current models.Entries) (models.Entries, error) {
		seen = current
		current.Descriptions = []json.RawMessage{json.RawMessage(`"d1"`)}
		return current, nil
	})
	require.NoError(t, err)
	require.Equal(t, []json.RawMessage{json.RawMessage(`"q1"`)}, seen.Questionnaires)
	require.Len(t, next.Descriptions, 1)

	got, err := f.rfps.Get(ctx, rfp.RFPID)
	require.NoError(t, err)
	require.Len(t, got.Questionnaires, 1)
	require.Len(t, got.Descriptions, 1)

	boom := errors.New("boom")
	_, err = f.rfps.UpdateEntries(ctx, rfp.RFPID, func(models.Entries) (models.Entries, error) {
		return models.Entries{}, boom
	})
	require.ErrorIs(t, err, boom)

	got, err = f.rfps.Get(ctx, rfp.RFPID)
	require.NoError(t, err)
	require.Len(t, got.Questionnaires, 1)

	_, err = f.rfps.UpdateEntries(ctx, uuid.Must(uuid.NewV7()), func(current models.Entries) (models.Entries, error) {
		return current, nil
	})
	require.ErrorIs(t, err, store.ErrRFPNotFound)
}

func TestRFPStore_Finalize(t *testing.T) {
	ctx := context.Background()

	build := func(rfp *models.GeneratedRFP) (*models.FinalizedRFP, error) {
		return &models.FinalizedRFP{
			FinalizedID: uuid.Must(uuid.NewV7()),
			SourceRFPID: &rfp.RFPID,
			OrgID:       *rfp.OrgID,
			Status:      models.RFPStatusFinalized,
			Snapshot:    []byte(`{"rfp_name":"` + rfp.Name + `"}`),
			CreatedAt:   time.Now(),
		}, nil
	}

	t.Run("source delete keeps snapshot", func(t *testing.T) {
		f := newFixture(t)
		rfp := f.createRFP(t, nil)

		rec, err := f.rfps.Finalize(ctx, rfp.RFPID, build)
		require.NoError(t, err)

		require.NoError(t, f.rfps.Delete(ctx, rfp.RFPID))

		got, err := f.rfps.GetFinalized(ctx, rec.FinalizedID)
		require.NoError(t, err)
		require.Nil(t, got.SourceRFPID)
		require.Equal(t, rec.Snapshot, got.Snapshot)

		list, err := f.rfps.ListFinalized(ctx, f.orgA)
		require.NoError(t, err)
		require.Len(t, list, 1)
	})

	t.Run("builder error stores nothing", func(t *testing.T) {
		f := newFixture(t)
		rfp := f.createRFP(t, nil)
		boom := errors.New("boom")

		_, err := f.rfps.Finalize(ctx, rfp.RFPID, func(*models.GeneratedRFP) (*models.FinalizedRFP, error) {
			return nil, boom
		})
		require.ErrorIs(t, err, boom)

		list, err := f.rfps.ListFinalized(ctx, f.orgA)
		require.NoError(t, err)
		require.Empty(t, list)
	})

	t.Run("newest first", func(t *testing.T) {
		f := newFixture(t)
		rfp := f.createRFP(t, nil)

		first, err := f.rfps.Finalize(ctx, rfp.RFPID, build)
		require.NoError(t, err)
		second, err := f.rfps.Finalize(ctx, rfp.RFPID, build)
		require.NoError(t, err)

		list, err := f.rfps.ListFinalized(ctx, f.orgA)
		require.NoError(t, err)
		require.Equal(t, second.FinalizedID, list[0].FinalizedID)
		require.Equal(t, first.FinalizedID, list[1].FinalizedID)
	})
}

func TestRFPStore_Submissions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rfp := f.createRFP(t, nil)
	provider := f.createRow(t, &models.Provider{CompanyName: "Initech"}, nil)

	sub := &models.SubmittedRFP{SubmissionID: uuid.Must(uuid.NewV7()), RFPID: rfp.RFPID, UserID: &f.userA, RecipientEmail: "bids@initech.test"}
	require.NoError(t, f.rfps.CreateSubmission(ctx, sub))
	require.NoError(t, f.rfps.CreateResponse(ctx, &models.ResponseRFP{
		ResponseID:   uuid.Must(uuid.NewV7()),
		ProviderID:   provider,
		RFPID:        rfp.RFPID,
		UserID:       f.userA,
		SubmissionID: sub.SubmissionID,
		IsPending:    true,
	}))

	subs, err := f.rfps.ListSubmissions(ctx, rfp.RFPID)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	require.NoError(t, f.rfps.Delete(ctx, rfp.RFPID))

	subs, err = f.rfps.ListSubmissions(ctx, rfp.RFPID)
	require.NoError(t, err)
	require.Empty(t, subs)
	require.Empty(t, f.db.responses)
}
