package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"
)

// Pinger is the store's health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	store   Pinger
	backend string
	started time.Time

	mu  sync.RWMutex
	bot string
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(st Pinger, backend string) *Handlers {
	return &Handlers{store: st, backend: backend, started: time.Now()}
}

// SetBotUsername records the bot identity once getMe has succeeded; /readyz waits for it.
func (h *Handlers) SetBotUsername(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bot = name
}

func (h *Handlers) botUsername() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.bot
}

// HandleHealthz responds to liveness requests by checking store connectivity.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness requests with the first failing check, if any.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"store", func() error { return h.store.Ping(r.Context()) }},
		{"bot_identity", func() error {
			if h.botUsername() == "" {
				return errors.New("bot identity not resolved yet")
			}
			return nil
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HandleStatus returns a lightweight status summary.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	storeStatus := "ok"
	if err := h.store.Ping(r.Context()); err != nil {
		storeStatus = err.Error()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bot":            h.botUsername(),
		"backend":        h.backend,
		"store":          storeStatus,
		"started_at":     h.started.UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
