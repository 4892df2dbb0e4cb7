// Package visibility decides which ownership-scoped rows an organization may see.
//
// A row is visible to a viewer when it is global or owned by the viewer, and,
// for rows carrying a block list, the viewer is not blocked. A viewer without
// an organization sees global rows only; block lists are not consulted for it.
// Rows owned by one organization are never visible to another.
package visibility

import (
	"github.com/google/uuid"
)

// Owned is implemented by every ownership-scoped row.
type Owned interface {
	Owner() *uuid.UUID
}

// Blockable is the optional block-list capability. Types opt in by
// implementing it; nothing probes for fields at runtime.
type Blockable interface {
	Owned
	IsBlockedFor(org uuid.UUID) bool
}

// Viewer is the organization a listing is computed for. The zero Viewer has
// no organization.
type Viewer struct {
	orgID uuid.UUID
	set   bool
}

// Anonymous is a viewer with no organization.
var Anonymous = Viewer{}

// For returns the viewer for an optional organization.
func For(org *uuid.UUID) Viewer {
	if org == nil {
		return Anonymous
	}
	return Viewer{orgID: *org, set: true}
}

// Org returns a viewer for an organization.
func Org(org uuid.UUID) Viewer {
	return Viewer{orgID: org, set: true}
}

// OrgID returns the viewer's organization, if any.
func (v Viewer) OrgID() (uuid.UUID, bool) {
	return v.orgID, v.set
}

func (v Viewer) String() string {
	if !v.set {
		return "anonymous"
	}
	return v.orgID.String()
}

// Visible reports whether row is visible to v. It is pure and has no side
// effects.
func Visible(row Owned, v Viewer) bool {
	owner := row.Owner()
	if owner != nil {
		return v.set && *owner == v.orgID
	}
	if !v.set {
		return true
	}
	if b, ok := row.(Blockable); ok {
		return !b.IsBlockedFor(v.orgID)
	}
	return true
}

// Filter returns the visible subset of rows in their original order. An empty
// result is not an error.
func Filter[T Owned](rows []T, v Viewer) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if Visible(row, v) {
			out = append(out, row)
		}
	}
	return out
}
