package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// FinalizedRFP is the immutable point-in-time copy of a GeneratedRFP.
//
// The snapshot is held as canonical JSON bytes and never written after
// creation; SourceRFPID becomes nil when the source proposal is deleted.
type FinalizedRFP struct {
	FinalizedID uuid.UUID  // UUIDv7
	SourceRFPID *uuid.UUID // nil once the source is deleted
	OrgID       uuid.UUID
	Status      string
	StartDate   *time.Time
	EndDate     *time.Time

	Snapshot []byte // canonical JSON of SnapshotDocument
	Checksum uint64 // CRC64-NVME of Snapshot

	CreatedAt time.Time
}

// Document decodes a fresh copy of the snapshot.
func (f *FinalizedRFP) Document() (*SnapshotDocument, error) {
	var doc SnapshotDocument
	if err := json.Unmarshal(f.Snapshot, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", f.FinalizedID, err)
	}
	return &doc, nil
}

// Clone returns a deep copy of the record.
func (f *FinalizedRFP) Clone() *FinalizedRFP {
	c := *f
	c.SourceRFPID = CloneID(f.SourceRFPID)
	c.StartDate = cloneTime(f.StartDate)
	c.EndDate = cloneTime(f.EndDate)
	c.Snapshot = slices.Clone(f.Snapshot)
	return &c
}

// SnapshotDocument mirrors the proposal's field shape.
type SnapshotDocument struct {
	RFPName           string            `json:"rfp_name"`
	RFPDescription    string            `json:"rfp_description"`
	CompanyURL        string            `json:"company_url"`
	ValuePropositions string            `json:"value_propositions"`
	Status            string            `json:"status"`
	IndustryID        uuid.UUID         `json:"industry_id"`
	ServiceIDs        []uuid.UUID       `json:"service_ids"`
	BusinessCycleIDs  []uuid.UUID       `json:"business_cycle_ids"`
	Areas             []SnapshotArea    `json:"areas"`
	Questionnaires    []json.RawMessage `json:"questionnaires"`
	Descriptions      []json.RawMessage `json:"descriptions"`
}

// SnapshotArea is an area/priority pair inside a snapshot.
type SnapshotArea struct {
	AreaID   uuid.UUID `json:"area_id"`
	Priority Priority  `json:"priority"`
}
