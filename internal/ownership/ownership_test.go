package ownership

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/rfpcore/internal/models"
)

// fakeGraph answers Dependents from a constraint-name keyed table.
type fakeGraph map[string]map[uuid.UUID][]uuid.UUID

func (g fakeGraph) Dependents(ref Reference, id uuid.UUID) []uuid.UUID {
	return g[ref.Name][id]
}

func TestKeyOf(t *testing.T) {
	org := uuid.Must(uuid.NewV7())

	global := &models.Service{Name: "Audit"}
	private := &models.Service{Name: " Audit ", CatalogBase: models.CatalogBase{Ownership: models.Ownership{OrgID: &org}}}

	require.Equal(t, Key{Entity: RelationService, Scope: Scope{}, Value: "Audit"}, KeyOf(global))
	require.Equal(t, Key{Entity: RelationService, Scope: Scope{OrgID: org}, Value: "Audit"}, KeyOf(private))
	require.NotEqual(t, KeyOf(global), KeyOf(private))

	provider := &models.Provider{CompanyName: "Acme"}
	require.Equal(t, "Acme", KeyOf(provider).Value)
	require.Equal(t, RelationProvider, KeyOf(provider).Entity)
}

func TestErrors(t *testing.T) {
	org := uuid.Must(uuid.NewV7())

	dup := Key{Entity: RelationIndustry, Scope: Scope{OrgID: org}, Value: "Retail"}.Duplicate()
	require.ErrorIs(t, dup, ErrDuplicateInScope)
	require.Contains(t, dup.Error(), "organization "+org.String())
	require.Contains(t, dup.Error(), `"Retail"`)

	var target *DuplicateInScopeError
	require.True(t, errors.As(error(dup), &target))
	require.Equal(t, "Retail", target.Key)

	require.Equal(t, "global", Scope{}.String())

	protected := &ReferencedRowProtectedError{Entity: RelationService, ID: org, ReferencedBy: RelationRFPService}
	require.ErrorIs(t, protected, ErrReferencedRowProtected)
	require.NotErrorIs(t, protected, ErrDuplicateInScope)

	missing := &MissingOwnerError{Op: "finalize", Entity: RelationGeneratedRFP, ID: org}
	require.ErrorIs(t, missing, ErrMissingOwner)
}

func TestUniqueConstraintNames(t *testing.T) {
	for _, k := range models.Kinds {
		name := UniqueConstraint(k)
		got, ok := KindForUniqueConstraint(name)
		require.True(t, ok, name)
		require.Equal(t, k, got)
	}
	require.Equal(t, "functional_areas_scope_key", UniqueConstraint(models.KindFunctionalArea))

	_, ok := KindForUniqueConstraint("users_email_key")
	require.False(t, ok)
}

func TestReferencePolicy(t *testing.T) {
	tests := []struct {
		name   string
		action Action
	}{
		{"generated_rfp_services_service_fk", Protect},
		{"generated_rfp_business_cycles_cycle_fk", Protect},
		{"generated_rfp_areas_area_fk", Protect},
		{"functional_areas_business_cycle_fk", Cascade},
		{"finalized_rfps_source_fk", SetNull},
		{"services_created_by_fk", SetNull},
		{"industries_org_fk", Cascade},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, ok := ReferenceByName(tt.name)
			require.True(t, ok)
			require.Equal(t, tt.action, ref.OnDelete)
		})
	}
}

func TestPlanDelete(t *testing.T) {
	serviceID := uuid.Must(uuid.NewV7())
	rfpID := uuid.Must(uuid.NewV7())
	orgID := uuid.Must(uuid.NewV7())
	cycleID := uuid.Must(uuid.NewV7())
	areaID := uuid.Must(uuid.NewV7())
	userID := uuid.Must(uuid.NewV7())
	finalID := uuid.Must(uuid.NewV7())

	t.Run("unreferenced row deletes alone", func(t *testing.T) {
		plan, err := PlanDelete(fakeGraph{}, RelationService, serviceID)
		require.NoError(t, err)
		require.Equal(t, []Row{{Relation: RelationService, ID: serviceID}}, plan.Deletes)
		require.Empty(t, plan.Unlinks)
		require.Empty(t, plan.Nullify)
	})

	t.Run("linked service is protected", func(t *testing.T) {
		g := fakeGraph{"generated_rfp_services_service_fk": {serviceID: {rfpID}}}

		_, err := PlanDelete(g, RelationService, serviceID)
		require.ErrorIs(t, err, ErrReferencedRowProtected)

		var protected *ReferencedRowProtectedError
		require.ErrorAs(t, err, &protected)
		require.Equal(t, RelationService, protected.Entity)
		require.Equal(t, serviceID, protected.ID)
		require.Equal(t, RelationRFPService, protected.ReferencedBy)
	})

	t.Run("cascade into a protected area fails", func(t *testing.T) {
		g := fakeGraph{
			"functional_areas_business_cycle_fk": {cycleID: {areaID}},
			"generated_rfp_areas_area_fk":        {areaID: {rfpID}},
		}

		_, err := PlanDelete(g, RelationBusinessCycle, cycleID)
		var protected *ReferencedRowProtectedError
		require.ErrorAs(t, err, &protected)
		require.Equal(t, RelationFunctionalArea, protected.Entity)
		require.Equal(t, areaID, protected.ID)
	})

	t.Run("cascade into an unreferenced area succeeds", func(t *testing.T) {
		g := fakeGraph{"functional_areas_business_cycle_fk": {cycleID: {areaID}}}

		plan, err := PlanDelete(g, RelationBusinessCycle, cycleID)
		require.NoError(t, err)
		require.True(t, plan.Deleting(RelationFunctionalArea, areaID))
	})

	t.Run("protect is satisfied when the referrer is deleted too", func(t *testing.T) {
		g := fakeGraph{
			"services_org_fk":                   {orgID: {serviceID}},
			"generated_rfps_org_fk":             {orgID: {rfpID}},
			"generated_rfp_services_service_fk": {serviceID: {rfpID}},
			"finalized_rfps_source_fk":          {rfpID: {finalID}},
			"finalized_rfps_org_fk":             {orgID: {finalID}},
		}

		plan, err := PlanDelete(g, RelationOrganization, orgID)
		require.NoError(t, err)
		require.True(t, plan.Deleting(RelationService, serviceID))
		require.True(t, plan.Deleting(RelationGeneratedRFP, rfpID))
		require.True(t, plan.Deleting(RelationFinalizedRFP, finalID))
		require.Empty(t, plan.Nullify, "deleted finalized rows need no nulling")
	})

	t.Run("user delete clears creator references", func(t *testing.T) {
		g := fakeGraph{"services_created_by_fk": {userID: {serviceID}}}

		plan, err := PlanDelete(g, RelationUser, userID)
		require.NoError(t, err)
		require.Len(t, plan.Deletes, 1)
		require.Equal(t, []Link{{
			Ref:      mustRef(t, "services_created_by_fk"),
			ParentID: serviceID,
			TargetID: userID,
		}}, plan.Nullify)
	})

	t.Run("proposal delete keeps finalized snapshots", func(t *testing.T) {
		g := fakeGraph{"finalized_rfps_source_fk": {rfpID: {finalID}}}

		plan, err := PlanDelete(g, RelationGeneratedRFP, rfpID)
		require.NoError(t, err)
		require.False(t, plan.Deleting(RelationFinalizedRFP, finalID))
		require.Len(t, plan.Nullify, 1)
		require.Equal(t, finalID, plan.Nullify[0].ParentID)
	})

	t.Run("join cascade unlinks instead of deleting the parent", func(t *testing.T) {
		g := fakeGraph{"generated_rfp_allowed_users_user_fk": {userID: {rfpID}}}

		plan, err := PlanDelete(g, RelationUser, userID)
		require.NoError(t, err)
		require.False(t, plan.Deleting(RelationGeneratedRFP, rfpID))
		require.Len(t, plan.Unlinks, 1)
		require.Equal(t, rfpID, plan.Unlinks[0].ParentID)
	})
}

func mustRef(t *testing.T, name string) Reference {
	t.Helper()
	ref, ok := ReferenceByName(name)
	require.True(t, ok)
	return ref
}
