// Package dbtest provides migrated sqlite databases for tests. It opens them without the db package
// so that db's own tests can use it.
package dbtest

import (
	"net/http"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/stretchr/testify/require"

	"github.com/sumitpatel93/ledger-harness/internal/db/migrations"
)

const driverName = "sqlite3"

// DB is a throwaway sqlite database living in the test's temporary directory.
type DB struct {
	DSN string
}

// OpenWithoutMigrations returns an empty database.
func OpenWithoutMigrations(t *testing.T) *DB {
	t.Helper()

	return &DB{DSN: filepath.Join(t.TempDir(), "leaks.db")}
}

// Open returns a database with every migration applied.
func Open(t *testing.T) *DB {
	t.Helper()

	dbt := OpenWithoutMigrations(t)
	conn, err := sqlx.Open(driverName, dbt.DSN)
	require.NoError(t, err)
	defer conn.Close()

	m := migrate.HttpFileSystemMigrationSource{FileSystem: http.FS(migrations.FS)}
	_, err = migrate.Exec(conn.DB, driverName, m, migrate.Up)
	require.NoError(t, err)

	return dbt
}
