package db

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	dbx, err := Connect(SQLite, filepath.Join(t.TempDir(), "relay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbx.Close() })
	return dbx
}

func tableExists(t *testing.T, dbx *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := dbx.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n == 1
}

func TestMigrateSQLiteIdempotent(t *testing.T) {
	dbx := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, Migrate(ctx, dbx, SQLite))
	require.NoError(t, Migrate(ctx, dbx, SQLite), "second run must be a no-op")

	assert.True(t, tableExists(t, dbx, "signatures"))
	assert.True(t, tableExists(t, dbx, "channels"))
}

func TestRunMigrationsSQLite(t *testing.T) {
	dbx := openSQLite(t)
	log := slog.New(slog.DiscardHandler)

	require.NoError(t, RunMigrations(dbx, SQLite, log))
	require.NoError(t, RunMigrations(dbx, SQLite, log))

	assert.True(t, tableExists(t, dbx, "signatures"))
	assert.True(t, tableExists(t, dbx, "channels"))
}

func TestMigratePostgres(t *testing.T) {
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set; skipping postgres migration test")
	}
	dbx, err := Connect(Postgres, dsn)
	require.NoError(t, err)
	defer dbx.Close()

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, dbx, Postgres))
	require.NoError(t, Migrate(ctx, dbx, Postgres))
}

func TestConnectRejectsUnknownDialect(t *testing.T) {
	_, err := Connect(Dialect("oracle"), "x")
	assert.Error(t, err)

	_, err = Connect(SQLite, "  ")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	q := `INSERT INTO signatures (user_id, signature) VALUES (?, ?)`
	assert.Equal(t, q, SQLite.Rebind(q))
	assert.Equal(t, `INSERT INTO signatures (user_id, signature) VALUES ($1, $2)`, Postgres.Rebind(q))
}
