// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	UpdatesReceived prometheus.Counter
	CommandsHandled *prometheus.CounterVec // label: command
	Relays          *prometheus.CounterVec // label: kind (text, photo, video, audio, voice)
	RelayFailures   *prometheus.CounterVec // label: target (user, channel)
	ChannelChecks   *prometheus.CounterVec // label: result (ok, failed)
	StoreErrors     prometheus.Counter
	PollErrors      prometheus.Counter

	// Histograms (seconds)
	HandleDuration prometheus.Observer
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		UpdatesReceived = promauto.NewCounter(prometheus.CounterOpts{Name: "relay_updates_received_total", Help: "Number of updates received from getUpdates"})
		CommandsHandled = promauto.NewCounterVec(prometheus.CounterOpts{Name: "relay_commands_total", Help: "Number of bot commands handled"}, []string{"command"})
		Relays = promauto.NewCounterVec(prometheus.CounterOpts{Name: "relay_messages_relayed_total", Help: "Number of messages relayed with a signature"}, []string{"kind"})
		RelayFailures = promauto.NewCounterVec(prometheus.CounterOpts{Name: "relay_send_failures_total", Help: "Number of failed sends while relaying"}, []string{"target"})
		ChannelChecks = promauto.NewCounterVec(prometheus.CounterOpts{Name: "relay_channel_checks_total", Help: "Number of channel access checks by result"}, []string{"result"})
		StoreErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "relay_store_errors_total", Help: "Number of storage errors seen while handling updates"})
		PollErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "relay_poll_errors_total", Help: "Number of failed getUpdates calls"})
		HandleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_update_handle_duration_seconds",
			Help:    "Time spent handling a single update",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		})
	})
}

// IncCommand counts a handled command. Safe to call before Init.
func IncCommand(command string) {
	if CommandsHandled != nil {
		CommandsHandled.WithLabelValues(command).Inc()
	}
}

// IncRelay counts a relayed message of the given payload kind.
func IncRelay(kind string) {
	if Relays != nil {
		Relays.WithLabelValues(kind).Inc()
	}
}

// IncRelayFailure counts a failed send to target ("user" or "channel").
func IncRelayFailure(target string) {
	if RelayFailures != nil {
		RelayFailures.WithLabelValues(target).Inc()
	}
}

// IncChannelCheck counts a channel access check outcome.
func IncChannelCheck(ok bool) {
	if ChannelChecks == nil {
		return
	}
	result := "failed"
	if ok {
		result = "ok"
	}
	ChannelChecks.WithLabelValues(result).Inc()
}

func IncStoreError() {
	if StoreErrors != nil {
		StoreErrors.Inc()
	}
}

func IncUpdates() {
	if UpdatesReceived != nil {
		UpdatesReceived.Inc()
	}
}

func IncPollError() {
	if PollErrors != nil {
		PollErrors.Inc()
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns base (or slog.Default when nil) with a corr attribute if present.
func LoggerWithCorr(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	if id := GetCorrelation(ctx); id != "" {
		return base.With(slog.String("corr", id))
	}
	return base
}
