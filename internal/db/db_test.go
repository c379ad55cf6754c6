package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumitpatel93/ledger-harness/internal/db/dbtest"
)

func TestOpenDBConnectionPool(t *testing.T) {
	dbt := dbtest.Open(t)

	dbConnectionPool, err := OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer dbConnectionPool.Close()

	assert.Equal(t, DriverName, dbConnectionPool.DriverName())

	ctx := context.Background()
	err = dbConnectionPool.Ping(ctx)
	require.NoError(t, err)

	var foreignKeys int
	require.NoError(t, dbConnectionPool.GetContext(ctx, &foreignKeys, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, foreignKeys)
}

func TestWithForeignKeys(t *testing.T) {
	assert.Equal(t, "leaks.db?_foreign_keys=on", withForeignKeys("leaks.db"))
	assert.Equal(t, "file:leaks.db?mode=rwc&_foreign_keys=on", withForeignKeys("file:leaks.db?mode=rwc"))
}

func TestRunInTransactionWithResult(t *testing.T) {
	ctx := context.Background()
	dbt := dbtest.Open(t)
	dbConnectionPool, err := OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer dbConnectionPool.Close()

	const insert = `INSERT INTO leaked_resources (id, run_id, kind, entity_id, reason) VALUES (?, 'run', 'topic', '0.0.1', 'test')`
	count := func() int {
		var n int
		require.NoError(t, dbConnectionPool.GetContext(ctx, &n, "SELECT COUNT(*) FROM leaked_resources"))
		return n
	}

	t.Run("rolls back on error", func(t *testing.T) {
		_, err := RunInTransactionWithResult(ctx, dbConnectionPool, nil, func(dbTx Transaction) (string, error) {
			_, err := dbTx.ExecContext(ctx, insert, "a")
			require.NoError(t, err)
			return "a", errors.New("boom")
		})
		assert.ErrorContains(t, err, "boom")
		assert.Equal(t, 0, count())
	})

	t.Run("commits on success", func(t *testing.T) {
		id, err := RunInTransactionWithResult(ctx, dbConnectionPool, &sql.TxOptions{}, func(dbTx Transaction) (string, error) {
			_, err := dbTx.ExecContext(ctx, insert, "b")
			return "b", err
		})
		require.NoError(t, err)
		assert.Equal(t, "b", id)
		assert.Equal(t, 1, count())
	})
}
