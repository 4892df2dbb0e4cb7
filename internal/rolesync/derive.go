package rolesync

import (
	"slices"

	"github.com/google/uuid"
	"github.com/wolfeidau/rfpcore/internal/models"
)

// Op is the kind of group membership change.
type Op int

const (
	OpAdd Op = iota
	OpRemove
	OpClear
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpRemove:
		return "remove"
	case OpClear:
		return "clear"
	}
	return "unknown"
}

// Change is an explicit edit of a user's groups.
type Change struct {
	Op  Op
	IDs []uuid.UUID // ignored for OpClear
}

// AssignRole is the role trigger: groups become exactly {role}, or empty
// when role is nil. It replaces, never merges.
func AssignRole(role *uuid.UUID) models.Membership {
	if role == nil {
		return models.Membership{}
	}
	return models.Membership{
		RoleID:   models.CloneID(role),
		GroupIDs: []uuid.UUID{*role},
	}
}

// ApplyChange is the groups trigger. It applies the change and derives the
// role directly, without going back through AssignRole. The second result
// is false when the change leaves the groups untouched.
func ApplyChange(m models.Membership, c Change) (models.Membership, bool) {
	groups := models.SortIDs(m.GroupIDs)
	var changed []uuid.UUID

	switch c.Op {
	case OpAdd:
		for _, id := range models.SortIDs(c.IDs) {
			if !slices.Contains(groups, id) {
				changed = append(changed, id)
			}
		}
		groups = models.SortIDs(append(groups, changed...))
	case OpRemove:
		for _, id := range models.SortIDs(c.IDs) {
			if i := slices.Index(groups, id); i >= 0 {
				changed = append(changed, id)
				groups = slices.Delete(groups, i, i+1)
			}
		}
	case OpClear:
		changed = groups
		groups = nil
	}

	if len(changed) == 0 {
		return models.Membership{RoleID: models.CloneID(m.RoleID), GroupIDs: groups}, false
	}

	candidates := changed
	if c.Op == OpClear {
		candidates = nil
	}

	return models.Membership{
		RoleID:   DeriveRole(groups, candidates),
		GroupIDs: groups,
	}, true
}

// DeriveRole picks the role after a groups change. The lowest identifier of
// candidates still in groups wins; otherwise the lowest identifier in groups;
// nil when groups is empty. The result is always nil or a member of groups.
func DeriveRole(groups, candidates []uuid.UUID) *uuid.UUID {
	var pick *uuid.UUID
	for _, id := range candidates {
		if !slices.Contains(groups, id) {
			continue
		}
		if pick == nil || models.CompareIDs(id, *pick) < 0 {
			v := id
			pick = &v
		}
	}
	if pick != nil {
		return pick
	}
	if len(groups) == 0 {
		return nil
	}
	lowest := slices.MinFunc(groups, models.CompareIDs)
	return &lowest
}

// Diff splits a full replacement of the groups into the removals and
// additions it implies, applied in that order.
func Diff(current, desired []uuid.UUID) (removed, added []uuid.UUID) {
	cur := models.SortIDs(current)
	want := models.SortIDs(desired)
	for _, id := range cur {
		if !slices.Contains(want, id) {
			removed = append(removed, id)
		}
	}
	for _, id := range want {
		if !slices.Contains(cur, id) {
			added = append(added, id)
		}
	}
	return removed, added
}

// Replace applies a full replacement as a remove followed by an add. When
// the replacement empties the groups it behaves as a clear.
func Replace(m models.Membership, desired []uuid.UUID) (models.Membership, bool) {
	removed, added := Diff(m.GroupIDs, desired)
	if len(removed) == 0 && len(added) == 0 {
		return m, false
	}
	if len(desired) == 0 {
		return ApplyChange(m, Change{Op: OpClear})
	}

	out := m
	if len(removed) > 0 {
		out, _ = ApplyChange(out, Change{Op: OpRemove, IDs: removed})
	}
	if len(added) > 0 {
		out, _ = ApplyChange(out, Change{Op: OpAdd, IDs: added})
	}
	return out, true
}

// Normalize makes a membership consistent before a user is first stored. A
// set role wins and defines the groups; otherwise the role is derived from
// the groups as if they had just been added.
func Normalize(m models.Membership) models.Membership {
	if m.RoleID != nil {
		return AssignRole(m.RoleID)
	}
	if len(m.GroupIDs) == 0 {
		return models.Membership{}
	}
	out, _ := ApplyChange(models.Membership{}, Change{Op: OpAdd, IDs: m.GroupIDs})
	return out
}
