package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/onnwee/signature-relay/db"
	"github.com/onnwee/signature-relay/store"
	"github.com/onnwee/signature-relay/store/storetest"
)

func TestSQLiteConformance(t *testing.T) {
	storetest.RunConformance(t, func(t *testing.T) store.Store {
		dbx, err := db.Connect(db.SQLite, filepath.Join(t.TempDir(), "relay.db"))
		require.NoError(t, err)
		require.NoError(t, db.Migrate(context.Background(), dbx, db.SQLite))
		st := New(dbx, db.SQLite)
		t.Cleanup(func() { _ = st.Close() })
		return st
	})
}

func TestPostgresConformance(t *testing.T) {
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	storetest.RunConformance(t, func(t *testing.T) store.Store {
		dbx, err := db.Connect(db.Postgres, dsn)
		require.NoError(t, err)
		ctx := context.Background()
		require.NoError(t, db.Migrate(ctx, dbx, db.Postgres))
		_, err = dbx.ExecContext(ctx, `TRUNCATE signatures, channels`)
		require.NoError(t, err)
		st := New(dbx, db.Postgres)
		t.Cleanup(func() { _ = st.Close() })
		return st
	})
}

func TestClosedDatabaseIsStorageError(t *testing.T) {
	dbx, err := db.Connect(db.SQLite, filepath.Join(t.TempDir(), "relay.db"))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx, dbx, db.SQLite))
	st := New(dbx, db.SQLite)
	require.NoError(t, st.Close())

	_, err = st.GetSignature(ctx, 1)
	require.Error(t, err)
	require.True(t, store.IsStorageError(err))

	_, err = st.RemoveChannel(ctx, 1)
	require.True(t, store.IsStorageError(err))
}
