package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/rfpcore/internal/models"
)

const seedYAML = `
organizations:
  - name: Acme
    domain: acme.example
  - name: Globex
roles:
  - admin
  - viewer
users:
  - email: alice@acme.example
    username: alice
    organization: Acme
    groups: [viewer, admin]
  - email: bob@globex.example
    organization: Globex
    role: viewer
catalog:
  industries:
    - name: Retail
      blocked_for: [Globex]
    - name: Mining
      organization: Acme
      created_by: alice@acme.example
  business_cycles:
    - name: Order to Cash
      order: 1
  functional_areas:
    - name: Billing
      business_cycle: Order to Cash
      order: 2
  providers:
    - name: Initech
      contact_email: sales@initech.example
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newMemoryBackend(t *testing.T) *Backend {
	t.Helper()
	g := &Globals{Store: &StoreFlags{StoreType: "memory"}}
	b, err := g.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(b.Close)
	return b
}

func TestLoadSeedFile(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		f, err := LoadSeedFile(writeFile(t, "seed.yaml", seedYAML))
		require.NoError(t, err)
		require.Len(t, f.Organizations, 2)
		require.Equal(t, []string{"admin", "viewer"}, f.Roles)
		require.Equal(t, []string{"Globex"}, f.Catalog.Industries[0].BlockedFor)
	})

	t.Run("json", func(t *testing.T) {
		f, err := LoadSeedFile(writeFile(t, "seed.json", `{"organizations":[{"name":"Acme"}],"roles":["admin"]}`))
		require.NoError(t, err)
		require.Equal(t, "Acme", f.Organizations[0].Name)
		require.Equal(t, []string{"admin"}, f.Roles)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := LoadSeedFile(writeFile(t, "seed.json", `{"organizations":`))
		require.ErrorContains(t, err, "failed to parse JSON seed file")
	})
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	b := newMemoryBackend(t)

	f, err := LoadSeedFile(writeFile(t, "seed.yaml", seedYAML))
	require.NoError(t, err)

	res, err := Seed(ctx, b, f)
	require.NoError(t, err)
	require.Len(t, res.Organizations, 2)
	require.Len(t, res.Users, 2)

	acme := res.Organizations["Acme"]
	globex := res.Organizations["Globex"]

	org, err := b.Orgs.Get(ctx, globex)
	require.NoError(t, err)
	require.Equal(t, models.DefaultDomain, org.Domain)

	// Groups without a role pick the lowest group id as the primary role.
	alice, err := b.Users.Get(ctx, res.Users["alice@acme.example"])
	require.NoError(t, err)
	require.Len(t, alice.GroupIDs, 2)
	require.NotNil(t, alice.RoleID)
	require.Equal(t, alice.GroupIDs[0], *alice.RoleID)

	bob, err := b.Users.Get(ctx, res.Users["bob@globex.example"])
	require.NoError(t, err)
	require.Equal(t, res.Roles["viewer"], *bob.RoleID)
	require.Equal(t, []uuid.UUID{res.Roles["viewer"]}, bob.GroupIDs)

	acmeRows, err := b.Catalog.Visible(ctx, models.KindIndustry, &acme)
	require.NoError(t, err)
	require.Len(t, acmeRows, 2)

	globexRows, err := b.Catalog.Visible(ctx, models.KindIndustry, &globex)
	require.NoError(t, err)
	require.Empty(t, globexRows)

	areaID, ok := res.rowID(models.KindFunctionalArea, "", "Billing")
	require.True(t, ok)
	area, err := b.Rows.Get(ctx, models.KindFunctionalArea, areaID)
	require.NoError(t, err)
	cycleID, _ := res.rowID(models.KindBusinessCycle, "", "Order to Cash")
	require.Equal(t, cycleID, area.(*models.FunctionalArea).BusinessCycleID)
}

func TestSeedUnknownReference(t *testing.T) {
	tests := []struct {
		name string
		file *SeedFile
		want string
	}{
		{
			name: "user organization",
			file: &SeedFile{Users: []SeedUser{{Email: "a@example.com", Organization: "Missing"}}},
			want: `unknown organization "Missing"`,
		},
		{
			name: "user role",
			file: &SeedFile{Users: []SeedUser{{Email: "a@example.com", Role: "missing"}}},
			want: `unknown role "missing"`,
		},
		{
			name: "area cycle",
			file: &SeedFile{Catalog: SeedCatalog{FunctionalAreas: []SeedRow{{Name: "Billing", BusinessCycle: "missing"}}}},
			want: `unknown business cycle "missing"`,
		},
		{
			name: "block list",
			file: &SeedFile{Catalog: SeedCatalog{Industries: []SeedRow{{Name: "Retail", BlockedFor: []string{"Missing"}}}}},
			want: `unknown organization "Missing"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Seed(context.Background(), newMemoryBackend(t), tt.file)
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestSeedDuplicateRowInScope(t *testing.T) {
	b := newMemoryBackend(t)
	f := &SeedFile{Catalog: SeedCatalog{Services: []SeedRow{{Name: "Audit"}, {Name: "Audit"}}}}

	_, err := Seed(context.Background(), b, f)
	require.Error(t, err)
	require.ErrorContains(t, err, `failed to seed service "Audit"`)
}
