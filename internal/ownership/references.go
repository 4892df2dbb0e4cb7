package ownership

import (
	"github.com/wolfeidau/rfpcore/internal/models"
)

// Relation names a stored entity or join relation.
type Relation string

const (
	RelationOrganization  Relation = "organization"
	RelationUser          Relation = "user"
	RelationRole          Relation = "role"
	RelationGeneratedRFP  Relation = "generated_rfp"
	RelationFinalizedRFP  Relation = "finalized_rfp"
	RelationSubmittedRFP  Relation = "submitted_rfp"
	RelationResponseRFP   Relation = "response_rfp"
	RelationInvite        Relation = "invite"
	RelationResetToken    Relation = "password_reset_token"
	RelationAssignment    Relation = "business_cycle_assignment"
	RelationRFPService    Relation = "generated_rfp_service"
	RelationRFPCycle      Relation = "generated_rfp_business_cycle"
	RelationRFPArea       Relation = "generated_rfp_area"
	RelationRFPAllowed    Relation = "generated_rfp_allowed_user"
	RelationUserGroup     Relation = "user_group"
	RelationIndustryBlock Relation = "industry_blocked_for"

	RelationIndustry       = Relation(models.KindIndustry)
	RelationService        = Relation(models.KindService)
	RelationBusinessCycle  = Relation(models.KindBusinessCycle)
	RelationFunctionalArea = Relation(models.KindFunctionalArea)
	RelationProvider       = Relation(models.KindProvider)
)

var tables = map[Relation]string{
	RelationOrganization:   "organizations",
	RelationUser:           "users",
	RelationRole:           "roles",
	RelationGeneratedRFP:   "generated_rfps",
	RelationFinalizedRFP:   "finalized_rfps",
	RelationSubmittedRFP:   "submitted_rfps",
	RelationResponseRFP:    "response_rfps",
	RelationInvite:         "invites",
	RelationResetToken:     "password_reset_tokens",
	RelationAssignment:     "business_cycle_assignments",
	RelationRFPService:     "generated_rfp_services",
	RelationRFPCycle:       "generated_rfp_business_cycles",
	RelationRFPArea:        "generated_rfp_areas",
	RelationRFPAllowed:     "generated_rfp_allowed_users",
	RelationUserGroup:      "user_groups",
	RelationIndustryBlock:  "industry_blocked_for",
	RelationIndustry:       "industries",
	RelationService:        "services",
	RelationBusinessCycle:  "business_cycles",
	RelationFunctionalArea: "functional_areas",
	RelationProvider:       "providers",
}

// TableFor returns the database table backing a relation.
func TableFor(r Relation) string {
	return tables[r]
}

// Action is the referential action applied when the referenced row is deleted.
type Action int

const (
	// Cascade deletes the dependent row.
	Cascade Action = iota
	// Protect blocks the delete while any dependent row exists.
	Protect
	// SetNull clears the dependent row's reference.
	SetNull
)

func (a Action) String() string {
	switch a {
	case Cascade:
		return "cascade"
	case Protect:
		return "protect"
	case SetNull:
		return "set-null"
	}
	return "unknown"
}

// Reference is a foreign key from one relation to another.
//
// For join relations Parent names the aggregate that embeds the join rows;
// dependents of such a reference are identified by their parent ID, and a
// cascade removes the link rather than the parent.
type Reference struct {
	Name     string // database constraint name
	From     Relation
	To       Relation
	Parent   Relation
	OnDelete Action
}

// IsJoin reports whether the dependent side is a join relation.
func (r Reference) IsJoin() bool {
	return r.Parent != ""
}

// Holder is the relation identifying dependent rows.
func (r Reference) Holder() Relation {
	if r.IsJoin() {
		return r.Parent
	}
	return r.From
}

// References is the referential policy of the whole schema.
var References = buildReferences()

func buildReferences() []Reference {
	refs := []Reference{
		{Name: "users_org_fk", From: RelationUser, To: RelationOrganization, OnDelete: Cascade},
		{Name: "users_role_fk", From: RelationUser, To: RelationRole, OnDelete: SetNull},
		{Name: "user_groups_role_fk", From: RelationUserGroup, To: RelationRole, Parent: RelationUser, OnDelete: Cascade},

		{Name: "generated_rfps_org_fk", From: RelationGeneratedRFP, To: RelationOrganization, OnDelete: Cascade},
		{Name: "generated_rfps_owner_fk", From: RelationGeneratedRFP, To: RelationUser, OnDelete: Cascade},
		{Name: "generated_rfps_industry_fk", From: RelationGeneratedRFP, To: RelationIndustry, OnDelete: Cascade},
		{Name: "generated_rfp_services_service_fk", From: RelationRFPService, To: RelationService, Parent: RelationGeneratedRFP, OnDelete: Protect},
		{Name: "generated_rfp_business_cycles_cycle_fk", From: RelationRFPCycle, To: RelationBusinessCycle, Parent: RelationGeneratedRFP, OnDelete: Protect},
		{Name: "generated_rfp_areas_area_fk", From: RelationRFPArea, To: RelationFunctionalArea, Parent: RelationGeneratedRFP, OnDelete: Protect},
		{Name: "generated_rfp_allowed_users_user_fk", From: RelationRFPAllowed, To: RelationUser, Parent: RelationGeneratedRFP, OnDelete: Cascade},

		{Name: "finalized_rfps_org_fk", From: RelationFinalizedRFP, To: RelationOrganization, OnDelete: Cascade},
		{Name: "finalized_rfps_source_fk", From: RelationFinalizedRFP, To: RelationGeneratedRFP, OnDelete: SetNull},

		{Name: "submitted_rfps_rfp_fk", From: RelationSubmittedRFP, To: RelationGeneratedRFP, OnDelete: Cascade},
		{Name: "submitted_rfps_user_fk", From: RelationSubmittedRFP, To: RelationUser, OnDelete: Cascade},
		{Name: "response_rfps_rfp_fk", From: RelationResponseRFP, To: RelationGeneratedRFP, OnDelete: Cascade},
		{Name: "response_rfps_submission_fk", From: RelationResponseRFP, To: RelationSubmittedRFP, OnDelete: Cascade},
		{Name: "response_rfps_provider_fk", From: RelationResponseRFP, To: RelationProvider, OnDelete: Cascade},
		{Name: "response_rfps_user_fk", From: RelationResponseRFP, To: RelationUser, OnDelete: Cascade},

		{Name: "functional_areas_business_cycle_fk", From: RelationFunctionalArea, To: RelationBusinessCycle, OnDelete: Cascade},
		{Name: "industry_blocked_for_org_fk", From: RelationIndustryBlock, To: RelationOrganization, Parent: RelationIndustry, OnDelete: Cascade},

		{Name: "invites_inviter_fk", From: RelationInvite, To: RelationUser, OnDelete: Cascade},
		{Name: "invites_org_fk", From: RelationInvite, To: RelationOrganization, OnDelete: Cascade},
		{Name: "password_reset_tokens_user_fk", From: RelationResetToken, To: RelationUser, OnDelete: Cascade},

		{Name: "business_cycle_assignments_org_fk", From: RelationAssignment, To: RelationOrganization, OnDelete: Cascade},
		{Name: "business_cycle_assignments_user_fk", From: RelationAssignment, To: RelationUser, OnDelete: Cascade},
		{Name: "business_cycle_assignments_cycle_fk", From: RelationAssignment, To: RelationBusinessCycle, OnDelete: Cascade},
	}

	// Every catalogue kind is owned by an organization and weakly tied to its creator.
	for _, k := range models.Kinds {
		rel := Relation(k)
		refs = append(refs,
			Reference{Name: TableFor(rel) + "_org_fk", From: rel, To: RelationOrganization, OnDelete: Cascade},
			Reference{Name: TableFor(rel) + "_created_by_fk", From: rel, To: RelationUser, OnDelete: SetNull},
		)
	}

	return refs
}

// ReferencesTo returns the references pointing at a relation.
func ReferencesTo(to Relation) []Reference {
	var out []Reference
	for _, r := range References {
		if r.To == to {
			out = append(out, r)
		}
	}
	return out
}

// ReferenceByName looks up a reference by constraint name.
func ReferenceByName(name string) (Reference, bool) {
	for _, r := range References {
		if r.Name == name {
			return r, true
		}
	}
	return Reference{}, false
}
