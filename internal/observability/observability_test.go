package observability

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/couchcryptid/sea-info-service/internal/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestNewLogger_InstallsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := NewLogger(&config.Config{LogLevel: "warn", LogFormat: "json"})

	assert.Same(t, logger, slog.Default())
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}

func TestNewStderrLogger_Levels(t *testing.T) {
	debug := NewStderrLogger(&config.Config{LogLevel: "DEBUG"})
	assert.True(t, debug.Enabled(context.Background(), slog.LevelDebug))

	fallback := NewStderrLogger(&config.Config{LogLevel: "bogus"})
	assert.False(t, fallback.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, fallback.Enabled(context.Background(), slog.LevelInfo))
}

func TestMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.Cache.WithLabelValues("hit").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Cache.WithLabelValues("hit")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Cache.WithLabelValues("hit")))
}

func TestInitTracing_Disabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	shutdown, err := InitTracing(context.Background(), &config.Config{}, logger)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	_, span := otel.Tracer(TracerName).Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
}

func TestInitTracing_Stdout(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{TracingEnabled: true, TracingExporter: "stdout", TracingSampleRatio: 1}

	shutdown, err := InitTracing(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { ShutdownTracing(shutdown, logger) })

	_, span := otel.Tracer(TracerName).Start(context.Background(), "sampled")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
}
