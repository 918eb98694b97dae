package monitoring

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/grabpic/grabpic-api/internal/config"
	"github.com/grabpic/grabpic-api/pkg/logger"
)

func TestZapLogger_Fields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapLoggerFromCore(core)

	log.WithComponent("admission").Warn(context.Background(), "store unavailable",
		logger.String("key", "ratelimit:203.0.113.5:guest-search"),
		logger.String("secret_key", "hunter2"),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "admission", fields["component"])
	assert.Equal(t, "ratelimit:203.0.113.5:guest-search", fields["key"])
	assert.Equal(t, "[REDACTED]", fields["secret_key"])
}

func TestZapLogger_ErrorAndTrace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapLoggerFromCore(core)

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	log.Error(ctx, "queue publish failed", errors.New("broker down"))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "broker down", fields["error"])
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
}

func TestZapLogger_SetLevel(t *testing.T) {
	log, err := NewZapLogger(&config.LogConfig{Level: "info"})
	require.NoError(t, err)

	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	log.SetLevel("debug")
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
	log.SetLevel("nonsense")
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestMetrics_RecordAdmission(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordAdmission("guest-search", AdmissionAllowed, 0)
	m.RecordAdmission("guest-search", AdmissionDenied, 0)
	m.RecordAdmission("auth", AdmissionFailOpen, 0)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.AdmissionDecisions.WithLabelValues("guest-search", AdmissionDenied)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AdmissionStoreErrors.WithLabelValues("auth")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.AdmissionStoreErrors.WithLabelValues("guest-search")))
}
