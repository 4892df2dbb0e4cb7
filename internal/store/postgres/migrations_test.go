package postgres

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/10_add_index.sql":     {Data: []byte("CREATE INDEX x ON t (a);")},
		"m/2_add_table.sql":      {Data: []byte("CREATE TABLE t (a INT);")},
		"m/1_initial_schema.sql": {Data: []byte("SELECT 1;")},
		"m/README.md":            {Data: []byte("ignored")},
		"m/noversion.sql":        {Data: []byte("ignored")},
		"m/abc_bad_version.sql":  {Data: []byte("ignored")},
	}

	got, err := loadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, []int{1, 2, 10}, []int{got[0].version, got[1].version, got[2].version})
	require.Equal(t, "2_add_table.sql", got[1].name)
	require.Equal(t, "CREATE TABLE t (a INT);", got[1].sql)
}

func TestLoadMigrationsDuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"m/1_a.sql": {Data: []byte("SELECT 1;")},
		"m/1_b.sql": {Data: []byte("SELECT 2;")},
	}

	_, err := loadMigrations(fsys, "m")
	require.ErrorContains(t, err, "duplicate migration version 1")
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := loadMigrations(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	require.Equal(t, 1, got[0].version)
	require.Contains(t, got[0].sql, "CREATE TABLE IF NOT EXISTS schema_migrations")
}
