package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/onnwee/signature-relay/entities"
	"github.com/onnwee/signature-relay/telegramapi"
)

// TestToken is the bot token the mock server expects in request paths.
const TestToken = "123456:TEST"

// Call is one recorded Bot API request.
type Call struct {
	Method string
	Params map[string]any
}

// ChatID returns the chat_id argument as a string.
func (c Call) ChatID() string { return fmt.Sprint(c.Params["chat_id"]) }

// Str returns a string argument, or "" when absent.
func (c Call) Str(key string) string {
	s, _ := c.Params[key].(string)
	return s
}

// Spans decodes an entities argument ("entities" or "caption_entities").
func (c Call) Spans(key string) []entities.Span {
	raw, ok := c.Params[key]
	if !ok {
		return nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var spans []entities.Span
	if err := json.Unmarshal(b, &spans); err != nil {
		return nil
	}
	return spans
}

// MockTelegramServer mocks the Bot API. Every send succeeds with a fresh message id unless
// a failure was registered with FailChat; getUpdates drains the queued updates.
type MockTelegramServer struct {
	*httptest.Server

	mu      sync.Mutex
	calls   []Call
	fail    map[string]string
	updates []telegramapi.Update
	nextID  int64
}

// NewMockTelegramServer creates a new mock Bot API server.
func NewMockTelegramServer(t *testing.T) *MockTelegramServer {
	t.Helper()
	m := &MockTelegramServer{
		fail:   make(map[string]string),
		nextID: 100,
	}
	m.Server = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.Close)
	return m
}

// Client returns a telegramapi.Client pointed at the mock.
func (m *MockTelegramServer) Client() *telegramapi.Client {
	return &telegramapi.Client{Token: TestToken, BaseURL: m.URL}
}

// FailChat makes every call addressed to chatID fail with a 400 and the given description.
func (m *MockTelegramServer) FailChat(chatID, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[chatID] = description
}

// QueueUpdates adds updates for the next getUpdates call.
func (m *MockTelegramServer) QueueUpdates(updates ...telegramapi.Update) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, updates...)
}

// Calls returns a copy of the recorded calls, optionally filtered by method.
func (m *MockTelegramServer) Calls(methods ...string) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Call
	for _, c := range m.calls {
		if len(methods) == 0 || contains(methods, c.Method) {
			out = append(out, c)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (m *MockTelegramServer) serve(w http.ResponseWriter, r *http.Request) {
	prefix := "/bot" + TestToken + "/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"ok": false, "error_code": 401, "description": "Unauthorized"})
		return
	}
	method := strings.TrimPrefix(r.URL.Path, prefix)
	params := map[string]any{}
	_ = json.NewDecoder(r.Body).Decode(&params) //nolint:errcheck // empty bodies are fine

	if method != "getUpdates" {
		m.mu.Lock()
		m.calls = append(m.calls, Call{Method: method, Params: params})
		m.mu.Unlock()
	}

	chatID := fmt.Sprint(params["chat_id"])
	m.mu.Lock()
	desc, failing := m.fail[chatID]
	m.mu.Unlock()
	if failing {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error_code": 400, "description": desc})
		return
	}

	switch method {
	case "getMe":
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": map[string]any{"id": 1, "is_bot": true, "first_name": "Relay", "username": "relay_bot"}})
	case "getUpdates":
		m.mu.Lock()
		updates := m.updates
		m.updates = nil
		m.mu.Unlock()
		if len(updates) == 0 {
			// Stand in for the long poll without stalling shutdown.
			time.Sleep(10 * time.Millisecond)
			updates = []telegramapi.Update{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": updates})
	case "deleteMessage":
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": true})
	default:
		m.mu.Lock()
		m.nextID++
		id := m.nextID
		m.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": map[string]any{
			"message_id": id,
			"chat":       map[string]any{"id": 0, "type": "private"},
			"date":       time.Now().Unix(),
		}})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // test mock response
}
