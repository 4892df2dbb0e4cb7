package ownership

import (
	"strings"

	"github.com/google/uuid"
	"github.com/wolfeidau/rfpcore/internal/models"
)

// Scope is an ownership scope: one organization, or the global scope.
type Scope struct {
	OrgID uuid.UUID // uuid.Nil = global
}

// ScopeOf returns the scope for an optional organization.
func ScopeOf(org *uuid.UUID) Scope {
	if org == nil {
		return Scope{}
	}
	return Scope{OrgID: *org}
}

// IsGlobal reports whether this is the global scope.
func (s Scope) IsGlobal() bool {
	return s.OrgID == uuid.Nil
}

func (s Scope) String() string {
	if s.IsGlobal() {
		return "global"
	}
	return "organization " + s.OrgID.String()
}

// Key identifies a natural key inside a scope for one entity type.
// Two rows with equal keys violate per-scope uniqueness.
type Key struct {
	Entity Relation
	Scope  Scope
	Value  string
}

// KeyOf returns the uniqueness key of a catalogue row.
func KeyOf(row models.CatalogRow) Key {
	return Key{
		Entity: Relation(row.Kind()),
		Scope:  ScopeOf(row.Owner()),
		Value:  strings.TrimSpace(row.NaturalKey()),
	}
}

// Duplicate builds the error reported when k is already taken.
func (k Key) Duplicate() *DuplicateInScopeError {
	return &DuplicateInScopeError{Entity: k.Entity, Scope: k.Scope, Key: k.Value}
}

// UniqueConstraint returns the database constraint enforcing per-scope
// uniqueness for a catalogue kind.
func UniqueConstraint(kind models.Kind) string {
	return TableFor(Relation(kind)) + "_scope_key"
}

// AssignmentUniqueConstraint enforces one assignee per (organization, business cycle).
const AssignmentUniqueConstraint = "business_cycle_assignments_scope_key"

// KindForUniqueConstraint maps a violated constraint back to its kind.
func KindForUniqueConstraint(name string) (models.Kind, bool) {
	for _, k := range models.Kinds {
		if UniqueConstraint(k) == name {
			return k, true
		}
	}
	return "", false
}
