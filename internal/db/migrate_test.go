package db

import (
	"context"
	"io/fs"
	"testing"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumitpatel93/ledger-harness/internal/db/dbtest"
	"github.com/sumitpatel93/ledger-harness/internal/db/migrations"
)

func appliedMigrations(t *testing.T, pool ConnectionPool) []string {
	t.Helper()

	var ids []string
	err := pool.SelectContext(context.Background(), &ids, "SELECT id FROM gorp_migrations ORDER BY id")
	require.NoError(t, err)
	return ids
}

func TestMigrate_up_1(t *testing.T) {
	ctx := context.Background()
	dbt := dbtest.OpenWithoutMigrations(t)

	n, err := Migrate(ctx, dbt.DSN, migrate.Up, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pool, err := OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer pool.Close()

	assert.Equal(t, []string{"2026-09-14.0-leaked_resources.sql"}, appliedMigrations(t, pool))
}

func TestMigrate_up_2_down_1(t *testing.T) {
	ctx := context.Background()
	dbt := dbtest.OpenWithoutMigrations(t)

	n, err := Migrate(ctx, dbt.DSN, migrate.Up, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	pool, err := OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer pool.Close()

	assert.Equal(t, []string{
		"2026-09-14.0-leaked_resources.sql",
		"2026-09-21.0-reclaim_attempts.sql",
	}, appliedMigrations(t, pool))

	n, err = Migrate(ctx, dbt.DSN, migrate.Down, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"2026-09-14.0-leaked_resources.sql"}, appliedMigrations(t, pool))
}

func TestMigrate_upall_down_all(t *testing.T) {
	ctx := context.Background()
	dbt := dbtest.OpenWithoutMigrations(t)

	// Get number of files in the migrations directory
	var count int
	err := fs.WalkDir(migrations.FS, ".", func(path string, d fs.DirEntry, err error) error {
		require.NoError(t, err)
		if !d.IsDir() {
			count++
		}
		return nil
	})
	require.NoError(t, err)

	n, err := Migrate(ctx, dbt.DSN, migrate.Up, 0)
	require.NoError(t, err)
	require.Equal(t, count, n)

	pool, err := OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer pool.Close()
	assert.Len(t, appliedMigrations(t, pool), count)

	n, err = Migrate(ctx, dbt.DSN, migrate.Down, count)
	require.NoError(t, err)
	require.Equal(t, count, n)
	assert.Empty(t, appliedMigrations(t, pool))
}
