package backend

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onnwee/signature-relay/config"
	"github.com/onnwee/signature-relay/store"
	"github.com/onnwee/signature-relay/store/badgerstore"
	"github.com/onnwee/signature-relay/store/sqlstore"
)

func TestOpenSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{Backend: config.BackendSQLite, DBPath: filepath.Join(t.TempDir(), "nested", "dev.db")}

	st, err := Open(ctx, cfg, slog.Default())
	require.NoError(t, err)
	assert.IsType(t, &sqlstore.Store{}, st)

	require.NoError(t, st.SetSignature(ctx, store.Signature{Owner: 1, Text: "hi"}))
	require.NoError(t, st.Close())

	// Reopening runs migrations again against an existing schema.
	st, err = Open(ctx, cfg, slog.Default())
	require.NoError(t, err)
	defer st.Close()
	got, err := st.GetSignature(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Text)
}

func TestOpenBadger(t *testing.T) {
	cfg := &config.Config{Backend: config.BackendBadger, BadgerDir: filepath.Join(t.TempDir(), "kv")}
	st, err := Open(context.Background(), cfg, slog.Default())
	require.NoError(t, err)
	defer st.Close()
	assert.IsType(t, &badgerstore.Store{}, st)
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{Backend: "etcd"}, slog.Default())
	assert.Error(t, err)
}
