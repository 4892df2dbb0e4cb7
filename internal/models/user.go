package models

import (
	"bytes"
	"slices"
	"time"

	"github.com/google/uuid"
)

// User represents a person belonging to at most one organization.
//
// RoleID is the primary role and GroupIDs the full group membership. At every
// committed state RoleID is either nil or an element of GroupIDs.
type User struct {
	UserID   uuid.UUID  // UUIDv7
	OrgID    *uuid.UUID // nil = unassigned
	Email    string     // unique
	Username string

	RoleID   *uuid.UUID
	GroupIDs []uuid.UUID // sorted ascending

	ValuePropositions string
	ExternalUID       *string // identifier in the upstream account provider

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultValuePropositions is stored when a user is created without one.
const DefaultValuePropositions = "system"

// Membership returns a copy of the user's role and group state.
func (u *User) Membership() Membership {
	return Membership{
		RoleID:   CloneID(u.RoleID),
		GroupIDs: slices.Clone(u.GroupIDs),
	}
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	clone := *u
	clone.OrgID = CloneID(u.OrgID)
	clone.RoleID = CloneID(u.RoleID)
	clone.GroupIDs = slices.Clone(u.GroupIDs)
	if u.ExternalUID != nil {
		uid := *u.ExternalUID
		clone.ExternalUID = &uid
	}
	return &clone
}

// Membership is the role/group pair kept consistent by the sync engine.
type Membership struct {
	RoleID   *uuid.UUID
	GroupIDs []uuid.UUID
}

// HasGroup reports whether id is one of the member groups.
func (m Membership) HasGroup(id uuid.UUID) bool {
	return slices.Contains(m.GroupIDs, id)
}

// Consistent reports whether the role is nil or one of the groups.
func (m Membership) Consistent() bool {
	return m.RoleID == nil || m.HasGroup(*m.RoleID)
}

// CloneID copies an optional identifier.
func CloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// SameID reports whether two optional identifiers are equal.
func SameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// SortIDs sorts identifiers in ascending byte order and removes duplicates.
func SortIDs(ids []uuid.UUID) []uuid.UUID {
	out := slices.Clone(ids)
	slices.SortFunc(out, CompareIDs)
	return slices.Compact(out)
}

// CompareIDs orders identifiers by their byte representation. For UUIDv7
// this is creation order.
func CompareIDs(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}
