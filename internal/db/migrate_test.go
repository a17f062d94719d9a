package db

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := LoadMigrations(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	first := migrations[0]
	assert.Equal(t, int64(1), first.Version)
	assert.Equal(t, "create_todo", first.Name)
	assert.Contains(t, first.Up, "CREATE TABLE IF NOT EXISTS todo")
}

func TestLoadMigrationsOrdersByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"m/000010_add_index.up.sql": {Data: []byte("create index x on todo(title);")},
		"m/000002_second.up.sql":    {Data: []byte("select 2;")},
		"m/000002_second.down.sql":  {Data: []byte("ignored")},
		"m/000001_first.up.sql":     {Data: []byte("select 1;")},
		"m/README.md":               {Data: []byte("ignored")},
	}

	migrations, err := LoadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, migrations, 3)

	assert.Equal(t, []int64{1, 2, 10}, []int64{migrations[0].Version, migrations[1].Version, migrations[2].Version})
	assert.Equal(t, "select 2;", migrations[1].Up)
}

func TestLoadMigrationsRejectsBadNames(t *testing.T) {
	_, err := LoadMigrations(fstest.MapFS{
		"m/first.up.sql": {Data: []byte("select 1;")},
	}, "m")
	assert.Error(t, err)

	_, err = LoadMigrations(fstest.MapFS{
		"m/000001_a.up.sql": {Data: []byte("select 1;")},
		"m/1_b.up.sql":      {Data: []byte("select 1;")},
	}, "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}
