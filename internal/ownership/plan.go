package ownership

import (
	"github.com/google/uuid"
)

// Graph exposes the rows depending on a referenced row. For join references
// the returned IDs are those of the parent aggregate holding the link.
type Graph interface {
	Dependents(ref Reference, id uuid.UUID) []uuid.UUID
}

// Row addresses one row of a relation.
type Row struct {
	Relation Relation
	ID       uuid.UUID
}

// Link addresses a join row by its parent and the referenced row.
type Link struct {
	Ref      Reference
	ParentID uuid.UUID
	TargetID uuid.UUID
}

// DeletePlan is the full effect of deleting one row under the referential policy.
type DeletePlan struct {
	// Deletes lists rows to delete, the requested row first.
	Deletes []Row
	// Unlinks lists join rows removed because their target is deleted.
	Unlinks []Link
	// Nullify lists dependent rows whose reference is cleared.
	Nullify []Link
}

// Deleting reports whether the plan deletes the given row.
func (p *DeletePlan) Deleting(rel Relation, id uuid.UUID) bool {
	for _, r := range p.Deletes {
		if r.Relation == rel && r.ID == id {
			return true
		}
	}
	return false
}

type protectCheck struct {
	ref  Reference
	id   uuid.UUID
	deps []uuid.UUID
}

// PlanDelete walks the referential policy from one row. Cascades are followed
// transitively. Protect references are evaluated once the whole cascade is
// known, so a dependent that is itself being deleted does not block; any
// other live dependent fails the plan with a ReferencedRowProtectedError.
func PlanDelete(g Graph, rel Relation, id uuid.UUID) (*DeletePlan, error) {
	plan := &DeletePlan{}
	seen := map[Row]bool{}
	queue := []Row{{Relation: rel, ID: id}}
	var checks []protectCheck

	for len(queue) > 0 {
		row := queue[0]
		queue = queue[1:]
		if seen[row] {
			continue
		}
		seen[row] = true
		plan.Deletes = append(plan.Deletes, row)

		for _, ref := range ReferencesTo(row.Relation) {
			deps := g.Dependents(ref, row.ID)
			if len(deps) == 0 {
				continue
			}
			switch ref.OnDelete {
			case Protect:
				checks = append(checks, protectCheck{ref: ref, id: row.ID, deps: deps})
			case SetNull:
				for _, dep := range deps {
					plan.Nullify = append(plan.Nullify, Link{Ref: ref, ParentID: dep, TargetID: row.ID})
				}
			case Cascade:
				for _, dep := range deps {
					if ref.IsJoin() {
						plan.Unlinks = append(plan.Unlinks, Link{Ref: ref, ParentID: dep, TargetID: row.ID})
						continue
					}
					queue = append(queue, Row{Relation: ref.From, ID: dep})
				}
			}
		}
	}

	for _, c := range checks {
		for _, dep := range c.deps {
			if !seen[Row{Relation: c.ref.Holder(), ID: dep}] {
				return nil, &ReferencedRowProtectedError{
					Entity:       c.ref.To,
					ID:           c.id,
					ReferencedBy: c.ref.From,
					Constraint:   c.ref.Name,
				}
			}
		}
	}

	// Links into rows that are deleted anyway need no separate work.
	plan.Unlinks = pruneLinks(plan.Unlinks, seen)
	plan.Nullify = pruneLinks(plan.Nullify, seen)

	return plan, nil
}

func pruneLinks(links []Link, deleted map[Row]bool) []Link {
	out := links[:0]
	for _, l := range links {
		if deleted[Row{Relation: l.Ref.Holder(), ID: l.ParentID}] {
			continue
		}
		out = append(out, l)
	}
	return out
}
