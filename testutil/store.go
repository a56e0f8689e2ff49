// Package testutil provides shared helpers for tests: a mock Bot API server and stores.
package testutil

import (
	"context"
	"log/slog"
	"testing"

	"github.com/onnwee/signature-relay/store"
	"github.com/onnwee/signature-relay/store/badgerstore"
)

// NewStore returns an empty in-memory store closed at test cleanup.
func NewStore(t *testing.T) store.Store {
	t.Helper()
	st, err := badgerstore.OpenInMemory(slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// FailingStore fails every operation with Err, wrapped as a storage error.
type FailingStore struct {
	Err error
}

func (f FailingStore) SetSignature(context.Context, store.Signature) error {
	return store.Wrap("set signature", f.Err)
}

func (f FailingStore) GetSignature(context.Context, int64) (store.Signature, error) {
	return store.Signature{}, store.Wrap("get signature", f.Err)
}

func (f FailingStore) RemoveSignature(context.Context, int64) (bool, error) {
	return false, store.Wrap("remove signature", f.Err)
}

func (f FailingStore) SetChannel(context.Context, store.ChannelBinding) error {
	return store.Wrap("set channel", f.Err)
}

func (f FailingStore) GetChannel(context.Context, int64) (store.ChannelBinding, error) {
	return store.ChannelBinding{}, store.Wrap("get channel", f.Err)
}

func (f FailingStore) RemoveChannel(context.Context, int64) (bool, error) {
	return false, store.Wrap("remove channel", f.Err)
}

func (f FailingStore) Ping(context.Context) error { return store.Wrap("ping", f.Err) }

func (f FailingStore) Close() error { return nil }
