package rolesync

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/rfpcore/internal/models"
)

// newIDs returns n identifiers in ascending byte order.
func newIDs(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.Must(uuid.NewV7())
	}
	return models.SortIDs(out)
}

func ptr(id uuid.UUID) *uuid.UUID { return &id }

func TestAssignRole(t *testing.T) {
	id := newIDs(1)[0]

	m := AssignRole(&id)
	require.Equal(t, &id, m.RoleID)
	require.Equal(t, []uuid.UUID{id}, m.GroupIDs)

	m = AssignRole(nil)
	require.Nil(t, m.RoleID)
	require.Empty(t, m.GroupIDs)
}

func TestApplyChange(t *testing.T) {
	g := newIDs(4)

	tests := []struct {
		name      string
		current   models.Membership
		change    Change
		wantRole  *uuid.UUID
		wantGroup []uuid.UUID
		wantOK    bool
	}{
		{
			name:      "add to empty picks lowest added",
			current:   models.Membership{},
			change:    Change{Op: OpAdd, IDs: []uuid.UUID{g[2], g[1]}},
			wantRole:  ptr(g[1]),
			wantGroup: []uuid.UUID{g[1], g[2]},
			wantOK:    true,
		},
		{
			name:      "add moves role to the added group",
			current:   models.Membership{RoleID: ptr(g[0]), GroupIDs: []uuid.UUID{g[0]}},
			change:    Change{Op: OpAdd, IDs: []uuid.UUID{g[3]}},
			wantRole:  ptr(g[3]),
			wantGroup: []uuid.UUID{g[0], g[3]},
			wantOK:    true,
		},
		{
			name:      "add of existing group is a no-op",
			current:   models.Membership{RoleID: ptr(g[0]), GroupIDs: []uuid.UUID{g[0]}},
			change:    Change{Op: OpAdd, IDs: []uuid.UUID{g[0]}},
			wantRole:  ptr(g[0]),
			wantGroup: []uuid.UUID{g[0]},
			wantOK:    false,
		},
		{
			name:      "remove role falls back to lowest remaining",
			current:   models.Membership{RoleID: ptr(g[1]), GroupIDs: []uuid.UUID{g[1], g[2], g[3]}},
			change:    Change{Op: OpRemove, IDs: []uuid.UUID{g[1]}},
			wantRole:  ptr(g[2]),
			wantGroup: []uuid.UUID{g[2], g[3]},
			wantOK:    true,
		},
		{
			name:      "remove last group clears role",
			current:   models.Membership{RoleID: ptr(g[1]), GroupIDs: []uuid.UUID{g[1]}},
			change:    Change{Op: OpRemove, IDs: []uuid.UUID{g[1]}},
			wantRole:  nil,
			wantGroup: nil,
			wantOK:    true,
		},
		{
			name:      "remove of absent group is a no-op",
			current:   models.Membership{RoleID: ptr(g[1]), GroupIDs: []uuid.UUID{g[1]}},
			change:    Change{Op: OpRemove, IDs: []uuid.UUID{g[2]}},
			wantRole:  ptr(g[1]),
			wantGroup: []uuid.UUID{g[1]},
			wantOK:    false,
		},
		{
			name:      "clear empties both",
			current:   models.Membership{RoleID: ptr(g[0]), GroupIDs: []uuid.UUID{g[0], g[1]}},
			change:    Change{Op: OpClear},
			wantRole:  nil,
			wantGroup: nil,
			wantOK:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ApplyChange(tt.current, tt.change)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.wantRole, got.RoleID)
			if len(tt.wantGroup) == 0 {
				require.Empty(t, got.GroupIDs)
			} else {
				require.Equal(t, tt.wantGroup, got.GroupIDs)
			}
			require.True(t, got.Consistent())
		})
	}
}

func TestReplace(t *testing.T) {
	g := newIDs(4)

	t.Run("role follows the added groups", func(t *testing.T) {
		current := models.Membership{RoleID: ptr(g[0]), GroupIDs: []uuid.UUID{g[0], g[1]}}

		got, ok := Replace(current, []uuid.UUID{g[1], g[3], g[2]})
		require.True(t, ok)
		require.Equal(t, ptr(g[2]), got.RoleID)
		require.Equal(t, []uuid.UUID{g[1], g[2], g[3]}, got.GroupIDs)
	})

	t.Run("pure removal keeps lowest remaining", func(t *testing.T) {
		current := models.Membership{RoleID: ptr(g[0]), GroupIDs: []uuid.UUID{g[0], g[1], g[2]}}

		got, ok := Replace(current, []uuid.UUID{g[2], g[1]})
		require.True(t, ok)
		require.Equal(t, ptr(g[1]), got.RoleID)
	})

	t.Run("empty replacement clears", func(t *testing.T) {
		current := models.Membership{RoleID: ptr(g[0]), GroupIDs: []uuid.UUID{g[0]}}

		got, ok := Replace(current, nil)
		require.True(t, ok)
		require.Nil(t, got.RoleID)
		require.Empty(t, got.GroupIDs)
	})

	t.Run("identical set is a no-op", func(t *testing.T) {
		current := models.Membership{RoleID: ptr(g[1]), GroupIDs: []uuid.UUID{g[0], g[1]}}

		got, ok := Replace(current, []uuid.UUID{g[1], g[0]})
		require.False(t, ok)
		require.Equal(t, ptr(g[1]), got.RoleID)
	})
}

func TestNormalize(t *testing.T) {
	g := newIDs(3)

	got := Normalize(models.Membership{RoleID: ptr(g[2]), GroupIDs: []uuid.UUID{g[0], g[1]}})
	require.Equal(t, ptr(g[2]), got.RoleID)
	require.Equal(t, []uuid.UUID{g[2]}, got.GroupIDs)

	got = Normalize(models.Membership{GroupIDs: []uuid.UUID{g[1], g[0]}})
	require.Equal(t, ptr(g[0]), got.RoleID)
	require.Equal(t, []uuid.UUID{g[0], g[1]}, got.GroupIDs)

	got = Normalize(models.Membership{})
	require.Nil(t, got.RoleID)
}

func TestDiff(t *testing.T) {
	g := newIDs(3)

	removed, added := Diff([]uuid.UUID{g[0], g[1]}, []uuid.UUID{g[1], g[2]})
	require.Equal(t, []uuid.UUID{g[0]}, removed)
	require.Equal(t, []uuid.UUID{g[2]}, added)
}
