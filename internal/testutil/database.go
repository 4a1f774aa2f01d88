// Package testutil provides testing utilities for database backed tests.
//
// Database Setup:
//
//	db := testutil.SetupSQLiteDB(t)
//	defer testutil.TeardownDB(t, db)
//
// Every call opens a fresh SQLite file under t.TempDir() and applies the embedded
// migrations, so tests never share state.
package testutil

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/storesync/storesync/migrations"
)

// SQLiteDSN returns the connection string for a SQLite file at path.
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite", path)
}

// SetupSQLiteDB creates a migrated SQLite database pinned to a single connection.
func SetupSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", SQLiteDSN(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err, "failed to open sqlite")

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	err = db.Ping()
	require.NoError(t, err, "failed to ping sqlite database")

	runSQLiteMigrations(t, db)

	return db
}

// TeardownDB closes the database connection and cleans up.
func TeardownDB(t *testing.T, db *sql.DB) {
	t.Helper()
	if db != nil {
		err := db.Close()
		require.NoError(t, err, "failed to close database connection")
	}
}

// Now returns the current UTC time truncated to microseconds, the precision every
// supported driver round-trips.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// runSQLiteMigrations applies all pending SQLite migrations for the test database.
func runSQLiteMigrations(t *testing.T, db *sql.DB) {
	t.Helper()

	m, err := migrations.New(db, "sqlite")
	require.NoError(t, err, "failed to create migrate instance for sqlite")

	// The migrate instance is not closed: closing it would close db, which is owned
	// by the caller.
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "failed to run sqlite migrations")
	}
}
