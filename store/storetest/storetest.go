// Package storetest holds the conformance suite every store backend must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onnwee/signature-relay/entities"
	"github.com/onnwee/signature-relay/store"
)

// NewStore constructs a fresh, empty store for one subtest.
type NewStore func(t *testing.T) store.Store

// RunConformance exercises the Store contract against a backend.
func RunConformance(t *testing.T, newStore NewStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("SignatureRoundTrip", func(t *testing.T) {
		st := newStore(t)
		want := store.Signature{
			Owner: 42,
			Text:  "Best, John",
			Spans: []entities.Span{
				{Kind: entities.KindBold, Offset: 0, Length: 4},
				{Kind: entities.KindTextLink, Offset: 6, Length: 4, URL: "https://john.example"},
			},
		}
		require.NoError(t, st.SetSignature(ctx, want))

		got, err := st.GetSignature(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, want.Owner, got.Owner)
		assert.Equal(t, want.Text, got.Text)
		assert.Equal(t, want.Spans, got.Spans)
		assert.False(t, got.UpdatedAt.IsZero())
	})

	t.Run("SignatureWithoutSpans", func(t *testing.T) {
		st := newStore(t)
		require.NoError(t, st.SetSignature(ctx, store.Signature{Owner: 7, Text: "plain"}))
		got, err := st.GetSignature(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "plain", got.Text)
		assert.Empty(t, got.Spans)
	})

	t.Run("OnlyLinksKeepURL", func(t *testing.T) {
		st := newStore(t)
		require.NoError(t, st.SetSignature(ctx, store.Signature{
			Owner: 5,
			Text:  "ab",
			Spans: []entities.Span{
				{Kind: entities.KindItalic, Offset: 0, Length: 1, URL: "https://stray.example"},
				{Kind: entities.KindTextLink, Offset: 1, Length: 1, URL: "https://kept.example"},
			},
		}))
		got, err := st.GetSignature(ctx, 5)
		require.NoError(t, err)
		require.Len(t, got.Spans, 2)
		assert.Empty(t, got.Spans[0].URL)
		assert.Equal(t, "https://kept.example", got.Spans[1].URL)
	})

	t.Run("EntityPayloadsRoundTrip", func(t *testing.T) {
		st := newStore(t)
		spans := []entities.Span{
			{Kind: entities.KindTextMention, Offset: 0, Length: 3, User: &entities.MentionUser{ID: 99, FirstName: "Ann"}},
			{Kind: entities.KindCustomEmoji, Offset: 4, Length: 2, CustomEmojiID: "5368324170671202286"},
			{Kind: entities.KindPre, Offset: 7, Length: 2, Language: "go"},
		}
		require.NoError(t, st.SetSignature(ctx, store.Signature{Owner: 6, Text: "Ann 😀 go", Spans: spans}))
		got, err := st.GetSignature(ctx, 6)
		require.NoError(t, err)
		assert.Equal(t, spans, got.Spans)
	})

	t.Run("ExplicitUpdatedAtKept", func(t *testing.T) {
		st := newStore(t)
		at := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
		require.NoError(t, st.SetSignature(ctx, store.Signature{Owner: 8, Text: "old", UpdatedAt: at}))
		require.NoError(t, st.SetChannel(ctx, store.ChannelBinding{Owner: 8, Channel: "@old", UpdatedAt: at}))

		sig, err := st.GetSignature(ctx, 8)
		require.NoError(t, err)
		assert.True(t, at.Equal(sig.UpdatedAt), "got %s", sig.UpdatedAt)
		ch, err := st.GetChannel(ctx, 8)
		require.NoError(t, err)
		assert.True(t, at.Equal(ch.UpdatedAt), "got %s", ch.UpdatedAt)
	})

	t.Run("SetOverwrites", func(t *testing.T) {
		st := newStore(t)
		require.NoError(t, st.SetSignature(ctx, store.Signature{
			Owner: 1,
			Text:  "first",
			Spans: []entities.Span{{Kind: entities.KindBold, Offset: 0, Length: 5}},
		}))
		require.NoError(t, st.SetSignature(ctx, store.Signature{Owner: 1, Text: "second"}))
		got, err := st.GetSignature(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "second", got.Text)
		assert.Empty(t, got.Spans, "spans of the previous signature must not survive")
	})

	t.Run("MissingSignature", func(t *testing.T) {
		st := newStore(t)
		_, err := st.GetSignature(ctx, 99)
		assert.True(t, errors.Is(err, store.ErrNotFound))
		assert.False(t, store.IsStorageError(err))
	})

	t.Run("RemoveSignatureIdempotent", func(t *testing.T) {
		st := newStore(t)
		removed, err := st.RemoveSignature(ctx, 3)
		require.NoError(t, err)
		assert.False(t, removed)

		require.NoError(t, st.SetSignature(ctx, store.Signature{Owner: 3, Text: "x"}))
		removed, err = st.RemoveSignature(ctx, 3)
		require.NoError(t, err)
		assert.True(t, removed)

		_, err = st.GetSignature(ctx, 3)
		assert.ErrorIs(t, err, store.ErrNotFound)

		removed, err = st.RemoveSignature(ctx, 3)
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("UsersDoNotInterfere", func(t *testing.T) {
		st := newStore(t)
		require.NoError(t, st.SetSignature(ctx, store.Signature{Owner: 1, Text: "A"}))
		require.NoError(t, st.SetSignature(ctx, store.Signature{Owner: 2, Text: "B"}))
		require.NoError(t, st.SetChannel(ctx, store.ChannelBinding{Owner: 2, Channel: "@b"}))

		got, err := st.GetSignature(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "A", got.Text)
		_, err = st.GetChannel(ctx, 1)
		assert.ErrorIs(t, err, store.ErrNotFound)

		_, err = st.RemoveSignature(ctx, 2)
		require.NoError(t, err)
		got, err = st.GetSignature(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "A", got.Text)
	})

	t.Run("ChannelLifecycle", func(t *testing.T) {
		st := newStore(t)
		_, err := st.GetChannel(ctx, 10)
		assert.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, st.SetChannel(ctx, store.ChannelBinding{Owner: 10, Channel: "@first"}))
		require.NoError(t, st.SetChannel(ctx, store.ChannelBinding{Owner: 10, Channel: "@second"}))
		got, err := st.GetChannel(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, "@second", got.Channel)

		removed, err := st.RemoveChannel(ctx, 10)
		require.NoError(t, err)
		assert.True(t, removed)
		removed, err = st.RemoveChannel(ctx, 10)
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("RejectsInvalidRecords", func(t *testing.T) {
		st := newStore(t)
		assert.Error(t, st.SetSignature(ctx, store.Signature{Owner: 1, Text: "ab", Spans: []entities.Span{{Kind: entities.KindBold, Offset: 1, Length: 5}}}))
		assert.Error(t, st.SetChannel(ctx, store.ChannelBinding{Owner: 1}))
	})

	t.Run("Ping", func(t *testing.T) {
		st := newStore(t)
		assert.NoError(t, st.Ping(ctx))
	})

	t.Run("Export", func(t *testing.T) {
		st := newStore(t)
		exp, ok := st.(store.Exporter)
		if !ok {
			t.Skip("backend does not implement store.Exporter")
		}
		require.NoError(t, st.SetSignature(ctx, store.Signature{Owner: 1, Text: "A"}))
		require.NoError(t, st.SetSignature(ctx, store.Signature{Owner: 2, Text: "B"}))
		require.NoError(t, st.SetChannel(ctx, store.ChannelBinding{Owner: 2, Channel: "@b"}))

		owners := map[int64]string{}
		require.NoError(t, exp.ForEachSignature(ctx, func(s store.Signature) error {
			owners[s.Owner] = s.Text
			return nil
		}))
		assert.Equal(t, map[int64]string{1: "A", 2: "B"}, owners)

		var channels []string
		require.NoError(t, exp.ForEachChannel(ctx, func(b store.ChannelBinding) error {
			channels = append(channels, b.Channel)
			return nil
		}))
		assert.Equal(t, []string{"@b"}, channels)
	})
}
