// Package memory provides in-memory store implementations for development and
// testing. All stores created over one DB share its tables so foreign-key
// style cascades, protects and set-null actions behave as they do in
// postgres. Data is lost on restart.
package memory

import (
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/wolfeidau/rfpcore/internal/models"
	"github.com/wolfeidau/rfpcore/internal/ownership"
)

// DB holds every table behind a single lock. A write lock is held for the
// full duration of an operation, which gives each operation the isolation of
// a serializable transaction.
type DB struct {
	mu sync.RWMutex

	orgs        map[uuid.UUID]*models.Organization
	roles       map[uuid.UUID]*models.Role
	users       map[uuid.UUID]*models.User
	rows        map[models.Kind]map[uuid.UUID]models.CatalogRow
	keys        map[ownership.Key]uuid.UUID
	rfps        map[uuid.UUID]*models.GeneratedRFP
	finalized   map[uuid.UUID]*models.FinalizedRFP
	submissions map[uuid.UUID]*models.SubmittedRFP
	responses   map[uuid.UUID]*models.ResponseRFP
	invites     map[uuid.UUID]*models.Invite
	resetTokens map[uuid.UUID]*models.PasswordResetToken
	assignments map[uuid.UUID]*models.BusinessCycleAssignment
}

// NewDB creates an empty database.
func NewDB() *DB {
	db := &DB{
		orgs:        make(map[uuid.UUID]*models.Organization),
		roles:       make(map[uuid.UUID]*models.Role),
		users:       make(map[uuid.UUID]*models.User),
		rows:        make(map[models.Kind]map[uuid.UUID]models.CatalogRow),
		keys:        make(map[ownership.Key]uuid.UUID),
		rfps:        make(map[uuid.UUID]*models.GeneratedRFP),
		finalized:   make(map[uuid.UUID]*models.FinalizedRFP),
		submissions: make(map[uuid.UUID]*models.SubmittedRFP),
		responses:   make(map[uuid.UUID]*models.ResponseRFP),
		invites:     make(map[uuid.UUID]*models.Invite),
		resetTokens: make(map[uuid.UUID]*models.PasswordResetToken),
		assignments: make(map[uuid.UUID]*models.BusinessCycleAssignment),
	}
	for _, k := range models.Kinds {
		db.rows[k] = make(map[uuid.UUID]models.CatalogRow)
	}
	return db
}

// Dependents implements ownership.Graph. Callers must hold the lock.
func (db *DB) Dependents(ref ownership.Reference, id uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	add := func(match bool, dep uuid.UUID) {
		if match {
			out = append(out, dep)
		}
	}

	switch ref.Name {
	case "users_org_fk":
		for _, u := range db.users {
			add(isID(u.OrgID, id), u.UserID)
		}
	case "users_role_fk":
		for _, u := range db.users {
			add(isID(u.RoleID, id), u.UserID)
		}
	case "user_groups_role_fk":
		for _, u := range db.users {
			add(slices.Contains(u.GroupIDs, id), u.UserID)
		}
	case "generated_rfps_org_fk":
		for _, r := range db.rfps {
			add(isID(r.OrgID, id), r.RFPID)
		}
	case "generated_rfps_owner_fk":
		for _, r := range db.rfps {
			add(r.OwnerID == id, r.RFPID)
		}
	case "generated_rfps_industry_fk":
		for _, r := range db.rfps {
			add(r.IndustryID == id, r.RFPID)
		}
	case "generated_rfp_services_service_fk":
		for _, r := range db.rfps {
			add(slices.Contains(r.ServiceIDs, id), r.RFPID)
		}
	case "generated_rfp_business_cycles_cycle_fk":
		for _, r := range db.rfps {
			add(slices.Contains(r.BusinessCycleIDs, id), r.RFPID)
		}
	case "generated_rfp_areas_area_fk":
		for _, r := range db.rfps {
			add(hasArea(r.Areas, id), r.RFPID)
		}
	case "generated_rfp_allowed_users_user_fk":
		for _, r := range db.rfps {
			add(slices.Contains(r.AllowedUserIDs, id), r.RFPID)
		}
	case "finalized_rfps_org_fk":
		for _, f := range db.finalized {
			add(f.OrgID == id, f.FinalizedID)
		}
	case "finalized_rfps_source_fk":
		for _, f := range db.finalized {
			add(isID(f.SourceRFPID, id), f.FinalizedID)
		}
	case "submitted_rfps_rfp_fk":
		for _, s := range db.submissions {
			add(s.RFPID == id, s.SubmissionID)
		}
	case "submitted_rfps_user_fk":
		for _, s := range db.submissions {
			add(isID(s.UserID, id), s.SubmissionID)
		}
	case "response_rfps_rfp_fk":
		for _, r := range db.responses {
			add(r.RFPID == id, r.ResponseID)
		}
	case "response_rfps_submission_fk":
		for _, r := range db.responses {
			add(r.SubmissionID == id, r.ResponseID)
		}
	case "response_rfps_provider_fk":
		for _, r := range db.responses {
			add(r.ProviderID == id, r.ResponseID)
		}
	case "response_rfps_user_fk":
		for _, r := range db.responses {
			add(r.UserID == id, r.ResponseID)
		}
	case "functional_areas_business_cycle_fk":
		for _, row := range db.rows[models.KindFunctionalArea] {
			add(row.(*models.FunctionalArea).BusinessCycleID == id, row.RowID())
		}
	case "industry_blocked_for_org_fk":
		for _, row := range db.rows[models.KindIndustry] {
			add(row.(*models.Industry).IsBlockedFor(id), row.RowID())
		}
	case "invites_inviter_fk":
		for _, i := range db.invites {
			add(i.InviterID == id, i.InviteID)
		}
	case "invites_org_fk":
		for _, i := range db.invites {
			add(isID(i.OrgID, id), i.InviteID)
		}
	case "password_reset_tokens_user_fk":
		for _, t := range db.resetTokens {
			add(t.UserID == id, t.TokenID)
		}
	case "business_cycle_assignments_org_fk":
		for _, a := range db.assignments {
			add(a.OrgID == id, a.AssignmentID)
		}
	case "business_cycle_assignments_user_fk":
		for _, a := range db.assignments {
			add(isID(a.UserID, id), a.AssignmentID)
		}
	case "business_cycle_assignments_cycle_fk":
		for _, a := range db.assignments {
			add(a.BusinessCycleID == id, a.AssignmentID)
		}
	default:
		// Ownership columns shared by every catalogue kind.
		rows, ok := db.rows[models.Kind(ref.From)]
		if !ok {
			return nil
		}
		for _, row := range rows {
			base := row.Base()
			switch ref.To {
			case ownership.RelationOrganization:
				add(isID(base.OrgID, id), base.ID)
			case ownership.RelationUser:
				add(isID(base.CreatedBy, id), base.ID)
			}
		}
	}

	// Map iteration order is random; plans are easier to reason about sorted.
	slices.SortFunc(out, models.CompareIDs)
	return out
}

// apply applies a plan computed by ownership.PlanDelete. Callers must
// hold the write lock.
func (db *DB) apply(plan *ownership.DeletePlan) {
	for _, l := range plan.Unlinks {
		db.unlink(l)
	}
	for _, l := range plan.Nullify {
		db.nullify(l)
	}
	for _, r := range plan.Deletes {
		db.remove(r)
	}
}

func (db *DB) remove(r ownership.Row) {
	switch r.Relation {
	case ownership.RelationOrganization:
		delete(db.orgs, r.ID)
	case ownership.RelationUser:
		delete(db.users, r.ID)
	case ownership.RelationRole:
		delete(db.roles, r.ID)
	case ownership.RelationGeneratedRFP:
		delete(db.rfps, r.ID)
	case ownership.RelationFinalizedRFP:
		delete(db.finalized, r.ID)
	case ownership.RelationSubmittedRFP:
		delete(db.submissions, r.ID)
	case ownership.RelationResponseRFP:
		delete(db.responses, r.ID)
	case ownership.RelationInvite:
		delete(db.invites, r.ID)
	case ownership.RelationResetToken:
		delete(db.resetTokens, r.ID)
	case ownership.RelationAssignment:
		delete(db.assignments, r.ID)
	default:
		rows, ok := db.rows[models.Kind(r.Relation)]
		if !ok {
			return
		}
		if row, ok := rows[r.ID]; ok {
			delete(db.keys, ownership.KeyOf(row))
			delete(rows, r.ID)
		}
	}
}

func (db *DB) unlink(l ownership.Link) {
	switch l.Ref.Name {
	case "user_groups_role_fk":
		if u, ok := db.users[l.ParentID]; ok {
			u.GroupIDs = without(u.GroupIDs, l.TargetID)
		}
	case "generated_rfp_allowed_users_user_fk":
		if r, ok := db.rfps[l.ParentID]; ok {
			r.AllowedUserIDs = without(r.AllowedUserIDs, l.TargetID)
		}
	case "industry_blocked_for_org_fk":
		if row, ok := db.rows[models.KindIndustry][l.ParentID]; ok {
			row.(*models.Industry).Unblock(l.TargetID)
		}
	}
}

func (db *DB) nullify(l ownership.Link) {
	switch l.Ref.Name {
	case "users_role_fk":
		if u, ok := db.users[l.ParentID]; ok {
			u.RoleID = nil
		}
	case "finalized_rfps_source_fk":
		if f, ok := db.finalized[l.ParentID]; ok {
			f.SourceRFPID = nil
		}
	default:
		if row, ok := db.rows[models.Kind(l.Ref.From)][l.ParentID]; ok && l.Ref.To == ownership.RelationUser {
			row.Base().CreatedBy = nil
		}
	}
}

// deleteRow plans and applies the delete of one row. Callers must hold the
// write lock and have checked that the row exists.
func (db *DB) deleteRow(rel ownership.Relation, id uuid.UUID) (*ownership.DeletePlan, error) {
	plan, err := ownership.PlanDelete(db, rel, id)
	if err != nil {
		return nil, err
	}
	db.apply(plan)
	return plan, nil
}

func (db *DB) userExists(id uuid.UUID) bool {
	_, ok := db.users[id]
	return ok
}

func (db *DB) orgExists(id *uuid.UUID) bool {
	if id == nil {
		return true
	}
	_, ok := db.orgs[*id]
	return ok
}

func isID(p *uuid.UUID, id uuid.UUID) bool {
	return p != nil && *p == id
}

func hasArea(areas []models.AreaLink, id uuid.UUID) bool {
	return slices.ContainsFunc(areas, func(a models.AreaLink) bool { return a.AreaID == id })
}

func without(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	return slices.DeleteFunc(slices.Clone(ids), func(v uuid.UUID) bool { return v == id })
}
