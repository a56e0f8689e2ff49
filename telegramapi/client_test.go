package telegramapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onnwee/signature-relay/entities"
)

const token = "123:ABC"

// newTestClient starts a server answering every method with handler.
func newTestClient(t *testing.T, handler func(method string, body map[string]any) (int, string)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		method, ok := strings.CutPrefix(r.URL.Path, "/bot"+token+"/")
		if !ok {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body := map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		status, resp := handler(method, body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(resp))
	}))
	t.Cleanup(srv.Close)
	return &Client{Token: token, BaseURL: srv.URL + "/"}
}

func TestSendMessage(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(method string, body map[string]any) (int, string) {
		assert.Equal(t, "sendMessage", method)
		got = body
		return 200, `{"ok":true,"result":{"message_id":7,"chat":{"id":42,"type":"private"},"text":"hi"}}`
	})

	m, err := c.SendMessage(context.Background(), SendMessageParams{
		ChatID:   "42",
		Text:     "hi",
		Entities: []entities.Span{{Kind: entities.KindBold, Offset: 0, Length: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), m.MessageID)
	assert.Equal(t, "42", m.Chat.Ref())

	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "hi", got["text"])
	assert.NotContains(t, got, "parse_mode")
	ents, ok := got["entities"].([]any)
	require.True(t, ok)
	require.Len(t, ents, 1)
	assert.Equal(t, "bold", ents[0].(map[string]any)["type"])
}

func TestSendMessageOmitsEmptyEntities(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(_ string, body map[string]any) (int, string) {
		got = body
		return 200, `{"ok":true,"result":{"message_id":1,"chat":{"id":1}}}`
	})
	_, err := c.SendMessage(context.Background(), SendMessageParams{ChatID: "@chan", Text: "plain"})
	require.NoError(t, err)
	assert.NotContains(t, got, "entities")
	assert.Equal(t, "@chan", got["chat_id"])
}

func TestSendMessageRequiresChat(t *testing.T) {
	c := &Client{Token: token, BaseURL: "http://127.0.0.1:1"}
	_, err := c.SendMessage(context.Background(), SendMessageParams{Text: "x"})
	require.Error(t, err)
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, func(string, map[string]any) (int, string) {
		return 429, `{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 3","parameters":{"retry_after":3}}`
	})

	_, err := c.SendMessage(context.Background(), SendMessageParams{ChatID: "1", Text: "x"})
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "sendMessage", apiErr.Method)
	assert.Equal(t, 429, apiErr.Code)
	assert.Equal(t, 3, apiErr.RetryAfter)
	assert.Contains(t, err.Error(), "Too Many Requests")
}

func TestGetUpdates(t *testing.T) {
	c := newTestClient(t, func(method string, body map[string]any) (int, string) {
		assert.Equal(t, "getUpdates", method)
		assert.Equal(t, float64(10), body["offset"])
		assert.Equal(t, float64(30), body["timeout"])
		assert.Equal(t, []any{"message"}, body["allowed_updates"])
		return 200, `{"ok":true,"result":[
			{"update_id":10,"message":{"message_id":1,"from":{"id":5,"is_bot":false,"first_name":"A"},
			 "chat":{"id":5,"type":"private"},"text":"Hi","entities":[{"type":"italic","offset":0,"length":2}]}},
			{"update_id":11,"message":{"message_id":2,"from":{"id":5,"first_name":"A"},"chat":{"id":5},
			 "photo":[{"file_id":"s","file_unique_id":"u1","width":90,"height":90},{"file_id":"l","file_unique_id":"u2","width":800,"height":800}],
			 "caption":"pic"}}]}`
	})

	updates, err := c.GetUpdates(context.Background(), 10, 30*time.Second)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, "Hi", updates[0].Message.Text)
	assert.Equal(t, []entities.Span{{Kind: entities.KindItalic, Offset: 0, Length: 2}}, updates[0].Message.Entities)
	assert.Equal(t, int64(5), updates[0].Message.From.ID)
	require.Len(t, updates[1].Message.Photo, 2)
	assert.Equal(t, "pic", updates[1].Message.Caption)
}

func TestSendMedia(t *testing.T) {
	var method string
	var got map[string]any
	c := newTestClient(t, func(m string, body map[string]any) (int, string) {
		method, got = m, body
		return 200, `{"ok":true,"result":{"message_id":3,"chat":{"id":1}}}`
	})

	_, err := c.SendMedia(context.Background(), MediaVoice, SendMediaParams{ChatID: "1", FileID: "voice-id"})
	require.NoError(t, err)
	assert.Equal(t, "sendVoice", method)
	assert.Equal(t, "voice-id", got["voice"])
	assert.NotContains(t, got, "caption")
	assert.NotContains(t, got, "caption_entities")

	_, err = c.SendMedia(context.Background(), MediaPhoto, SendMediaParams{
		ChatID:          "1",
		FileID:          "photo-id",
		Caption:         "cap",
		CaptionEntities: []entities.Span{{Kind: entities.KindUnderline, Offset: 0, Length: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, "sendPhoto", method)
	assert.Equal(t, "photo-id", got["photo"])
	assert.Equal(t, "cap", got["caption"])
	assert.Len(t, got["caption_entities"], 1)

	_, err = c.SendMedia(context.Background(), MediaKind("sticker"), SendMediaParams{ChatID: "1", FileID: "x"})
	require.Error(t, err)
}

func TestDeleteMessage(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(method string, body map[string]any) (int, string) {
		assert.Equal(t, "deleteMessage", method)
		got = body
		return 200, `{"ok":true,"result":true}`
	})
	require.NoError(t, c.DeleteMessage(context.Background(), "@chan", 99))
	assert.Equal(t, "@chan", got["chat_id"])
	assert.Equal(t, float64(99), got["message_id"])
}

func TestGetMe(t *testing.T) {
	c := newTestClient(t, func(string, map[string]any) (int, string) {
		return 200, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Relay","username":"relay_bot"}}`
	})
	me, err := c.GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "relay_bot", me.Username)
	assert.True(t, me.IsBot)
}

func TestTransportErrorRedactsToken(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := &Client{Token: token, BaseURL: url}
	_, err := c.GetMe(context.Background())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), token)
	assert.Contains(t, err.Error(), "getMe")
}

func TestDecodeErrorOnNonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	t.Cleanup(srv.Close)

	c := &Client{Token: token, BaseURL: srv.URL}
	_, err := c.GetMe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
