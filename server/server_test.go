package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onnwee/signature-relay/telemetry"
	"github.com/onnwee/signature-relay/testutil"
)

var discard = slog.New(slog.DiscardHandler)

func serve(h http.Handler, method, path string, hdr ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	h := NewMux(NewHandlers(testutil.NewStore(t), "badger"), discard)

	rr := serve(h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestHealthzStoreDown(t *testing.T) {
	h := NewMux(NewHandlers(testutil.FailingStore{Err: errors.New("down")}, "sqlite"), discard)

	rr := serve(h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestReadyz(t *testing.T) {
	handlers := NewHandlers(testutil.NewStore(t), "badger")
	h := NewMux(handlers, discard)

	rr := serve(h, http.MethodGet, "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "not_ready", resp["status"])
	assert.Equal(t, "bot_identity", resp["failed_check"])

	handlers.SetBotUsername("relay_bot")
	rr = serve(h, http.MethodGet, "/readyz")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ready", resp["status"])
}

func TestReadyzStoreDown(t *testing.T) {
	handlers := NewHandlers(testutil.FailingStore{Err: errors.New("down")}, "postgres")
	handlers.SetBotUsername("relay_bot")

	rr := serve(NewMux(handlers, discard), http.MethodGet, "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "store", resp["failed_check"])
}

func TestStatus(t *testing.T) {
	handlers := NewHandlers(testutil.NewStore(t), "badger")
	handlers.SetBotUsername("relay_bot")
	h := NewMux(handlers, discard)

	rr := serve(h, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "relay_bot", resp["bot"])
	assert.Equal(t, "badger", resp["backend"])
	assert.Equal(t, "ok", resp["store"])
	assert.Contains(t, resp, "uptime_seconds")

	rr = serve(h, http.MethodPost, "/status")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	telemetry.Init()
	telemetry.IncUpdates()
	h := NewMux(NewHandlers(testutil.NewStore(t), "badger"), discard)

	rr := serve(h, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "relay_updates_received_total")
}

func TestCorrelationID(t *testing.T) {
	h := NewMux(NewHandlers(testutil.NewStore(t), "badger"), discard)

	rr := serve(h, http.MethodGet, "/healthz", "X-Correlation-ID", "abc-123")
	assert.Equal(t, "abc-123", rr.Header().Get("X-Correlation-ID"))

	rr = serve(h, http.MethodGet, "/healthz")
	assert.Len(t, rr.Header().Get("X-Correlation-ID"), 36)
}

func TestStartShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Start(ctx, "127.0.0.1:0", NewHandlers(testutil.NewStore(t), "badger"), discard) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
