package telemetry

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracingDisabledWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	shutdown, err := InitTracing("signature-relay", "test", slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	shutdown()
	assert.False(t, IsTracingEnabled())
}

func TestStartSpanNoopProvider(t *testing.T) {
	ctx := WithCorrelation(context.Background(), "corr-1")
	ctx, span := StartSpan(ctx, "test", UpdateIDAttr(1), CommandAttr("start"))
	defer span.End()

	require.NotNil(t, ctx)
	RecordError(span, nil)
	SetSpanHTTPStatus(span, 503)
	SetSpanSuccess(span)
}
