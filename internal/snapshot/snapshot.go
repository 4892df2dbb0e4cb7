// Package snapshot freezes a generated RFP into an immutable finalized record.
//
// The snapshot is a self-contained JSON document built from a deep copy of the
// proposal, so later edits to the proposal never reach an existing record. A
// CRC64-NVME checksum of the document is stored alongside it and verified
// whenever the record is read back for export.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/minio/crc64nvme"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/rfpcore/internal/models"
	"github.com/wolfeidau/rfpcore/internal/ownership"
	"github.com/wolfeidau/rfpcore/internal/store"
	"github.com/wolfeidau/rfpcore/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrChecksumMismatch is returned when a stored snapshot no longer matches its checksum.
var ErrChecksumMismatch = errors.New("snapshot checksum mismatch")

// Finalizer creates finalized records from generated RFPs.
type Finalizer struct {
	rfps store.RFPStore
	now  func() time.Time
}

// NewFinalizer creates a finalizer over the given store.
func NewFinalizer(rfps store.RFPStore) *Finalizer {
	return &Finalizer{rfps: rfps, now: time.Now}
}

// Finalize snapshots the proposal in one store transaction. A proposal may be
// finalized any number of times; each call creates an independent record.
func (f *Finalizer) Finalize(ctx context.Context, rfpID uuid.UUID) (*models.FinalizedRFP, error) {
	started := f.now()

	rec, err := f.rfps.Finalize(ctx, rfpID, func(rfp *models.GeneratedRFP) (*models.FinalizedRFP, error) {
		return Build(rfp, f.now())
	})

	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errors.Is(err, ownership.ErrMissingOwner) {
			outcome = "missing_owner"
		}
	}
	m := telemetry.GetMetrics()
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.FinalizationsTotal.Add(ctx, 1, attrs)
	m.FinalizeDuration.Record(ctx, float64(f.now().Sub(started).Milliseconds()), attrs)

	if err != nil {
		return nil, fmt.Errorf("failed to finalize rfp %s: %w", rfpID, err)
	}

	log.Debug().
		Str("rfp_id", rfpID.String()).
		Str("finalized_id", rec.FinalizedID.String()).
		Str("org_id", rec.OrgID.String()).
		Msg("Finalized RFP")

	return rec, nil
}

// Build creates the finalized record for rfp without storing it. It fails
// with a MissingOwnerError when the proposal has no organization.
func Build(rfp *models.GeneratedRFP, now time.Time) (*models.FinalizedRFP, error) {
	if rfp.OrgID == nil {
		return nil, &ownership.MissingOwnerError{
			Op:     "finalize",
			Entity: ownership.RelationGeneratedRFP,
			ID:     rfp.RFPID,
		}
	}

	doc := Document(rfp)
	data, err := Encode(doc)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate finalized id: %w", err)
	}

	src := rfp.RFPID
	clone := rfp.Clone()

	return &models.FinalizedRFP{
		FinalizedID: id,
		SourceRFPID: &src,
		OrgID:       *clone.OrgID,
		Status:      models.RFPStatusFinalized,
		StartDate:   clone.StartDate,
		EndDate:     clone.EndDate,
		Snapshot:    data,
		Checksum:    Checksum(data),
		CreatedAt:   now,
	}, nil
}

// Document copies the proposal content into a snapshot document. The result
// shares no storage with rfp.
func Document(rfp *models.GeneratedRFP) *models.SnapshotDocument {
	c := rfp.Clone()

	areas := make([]models.SnapshotArea, len(c.Areas))
	for i, a := range c.Areas {
		areas[i] = models.SnapshotArea{AreaID: a.AreaID, Priority: a.Priority}
	}

	return &models.SnapshotDocument{
		RFPName:           c.Name,
		RFPDescription:    c.Description,
		CompanyURL:        c.CompanyURL,
		ValuePropositions: c.ValuePropositions,
		Status:            c.Status,
		IndustryID:        c.IndustryID,
		ServiceIDs:        nonNil(c.ServiceIDs),
		BusinessCycleIDs:  nonNil(c.BusinessCycleIDs),
		Areas:             areas,
		Questionnaires:    nonNil(c.Questionnaires),
		Descriptions:      nonNil(c.Descriptions),
	}
}

// Encode renders a document as canonical JSON: fixed field order, compacted
// entries and empty lists instead of null.
func Encode(doc *models.SnapshotDocument) ([]byte, error) {
	c := *doc
	c.ServiceIDs = nonNil(doc.ServiceIDs)
	c.BusinessCycleIDs = nonNil(doc.BusinessCycleIDs)
	c.Areas = nonNil(doc.Areas)
	var err error
	if c.Questionnaires, err = compact(doc.Questionnaires); err != nil {
		return nil, fmt.Errorf("invalid questionnaire entry: %w", err)
	}
	if c.Descriptions, err = compact(doc.Descriptions); err != nil {
		return nil, fmt.Errorf("invalid description entry: %w", err)
	}

	data, err := json.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// Checksum returns the CRC64-NVME checksum of an encoded snapshot.
func Checksum(data []byte) uint64 {
	h := crc64nvme.New()
	h.Write(data)
	return h.Sum64()
}

// VerifyChecksum checks a record's snapshot against its stored checksum.
func VerifyChecksum(rec *models.FinalizedRFP) error {
	if got := Checksum(rec.Snapshot); got != rec.Checksum {
		return fmt.Errorf("%w: finalized rfp %s has %016x, computed %016x",
			ErrChecksumMismatch, rec.FinalizedID, rec.Checksum, got)
	}
	return nil
}

func compact(entries []json.RawMessage) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, len(entries))
	for i, e := range entries {
		var buf bytes.Buffer
		if err := json.Compact(&buf, e); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out[i] = buf.Bytes()
	}
	return out, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return slices.Clip(s)
}
