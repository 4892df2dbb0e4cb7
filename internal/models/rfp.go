package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Priority tags a functional area within a proposal.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority validates a priority, defaulting empty input to medium.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(s), nil
	}
	return "", fmt.Errorf("invalid priority %q", s)
}

// Proposal statuses.
const (
	RFPStatusInProgress = "in-progress"
	RFPStatusFinalized  = "finalized"
)

// AreaLink joins a proposal to a functional area with a priority.
type AreaLink struct {
	AreaID   uuid.UUID
	Priority Priority
}

// GeneratedRFP is the mutable proposal aggregate.
//
// ServiceIDs, BusinessCycleIDs and Areas are join rows kept in link order;
// each referenced catalogue row is protected from deletion while linked.
type GeneratedRFP struct {
	RFPID   uuid.UUID  // UUIDv7
	OrgID   *uuid.UUID // nil = unassigned, cannot be finalized
	OwnerID uuid.UUID  // creating user, proposal is deleted with the user

	Status            string
	Name              string
	Description       string
	CompanyURL        string
	ValuePropositions string
	StartDate         *time.Time
	EndDate           *time.Time

	IndustryID       uuid.UUID
	ServiceIDs       []uuid.UUID
	BusinessCycleIDs []uuid.UUID
	Areas            []AreaLink
	AllowedUserIDs   []uuid.UUID

	// Free-form ordered entries, stored opaque.
	Questionnaires []json.RawMessage
	Descriptions   []json.RawMessage

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy sharing no mutable storage with r.
func (r *GeneratedRFP) Clone() *GeneratedRFP {
	c := *r
	c.OrgID = CloneID(r.OrgID)
	c.StartDate = cloneTime(r.StartDate)
	c.EndDate = cloneTime(r.EndDate)
	c.ServiceIDs = slices.Clone(r.ServiceIDs)
	c.BusinessCycleIDs = slices.Clone(r.BusinessCycleIDs)
	c.Areas = slices.Clone(r.Areas)
	c.AllowedUserIDs = slices.Clone(r.AllowedUserIDs)
	c.Questionnaires = CloneEntries(r.Questionnaires)
	c.Descriptions = CloneEntries(r.Descriptions)
	return &c
}

// Entries holds a proposal's free-form questionnaire and description lists.
type Entries struct {
	Questionnaires []json.RawMessage
	Descriptions   []json.RawMessage
}

// CloneEntries deep copies a list of opaque entries.
func CloneEntries(entries []json.RawMessage) []json.RawMessage {
	if entries == nil {
		return nil
	}
	out := make([]json.RawMessage, len(entries))
	for i, e := range entries {
		out[i] = slices.Clone(e)
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// SubmittedRFP tracks delivery of a proposal to a recipient.
type SubmittedRFP struct {
	SubmissionID       uuid.UUID
	RFPID              uuid.UUID
	UserID             *uuid.UUID
	Status             string
	RecipientName      string
	RecipientEmail     string
	PDFLink            string
	IsOpened           bool
	LastLoginIPAddress string
	CreatedAt          time.Time
}

// ResponseRFP is a provider's answer to a submitted proposal.
type ResponseRFP struct {
	ResponseID      uuid.UUID
	ProviderID      uuid.UUID
	RFPID           uuid.UUID
	UserID          uuid.UUID
	SubmissionID    uuid.UUID
	CompletedFields []json.RawMessage
	ResponseFields  []json.RawMessage
	IsAccepted      bool
	IsRejected      bool
	IsPending       bool
	Status          string
	CreatedAt       time.Time
}
