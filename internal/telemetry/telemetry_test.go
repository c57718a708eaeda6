package telemetry

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"debug":   slog.LevelDebug,
		" warn ":  slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}

	for input, want := range tests {
		assert.Equal(t, want, ParseLevel(input), "input %q", input)
	}
}

func TestLoggerContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithLogger(context.Background(), WithAttempt(WithTaskID(logger, "task-1"), 2))
	FromContext(ctx).Info("hello")

	assert.Contains(t, buf.String(), "task_id=task-1")
	assert.Contains(t, buf.String(), "attempt=2")
}

func TestFromContext_Default(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))
}

func TestMetricsRegistered(t *testing.T) {
	before := testutil.ToFloat64(DeliveriesTotal.WithLabelValues("ack"))
	DeliveriesTotal.WithLabelValues("ack").Inc()

	assert.Equal(t, before+1, testutil.ToFloat64(DeliveriesTotal.WithLabelValues("ack")))
}

func TestNewSampler(t *testing.T) {
	assert.Equal(t, "AlwaysOnSampler", newSampler("always_on", 0).Description())
	assert.Equal(t, "AlwaysOffSampler", newSampler("always_off", 0).Description())
	assert.Equal(t, "AlwaysOnSampler", newSampler("", 0).Description())
	assert.Contains(t, newSampler("trace_id_ratio", 0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestSetupTracing_DisabledWithoutEndpoint(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	shutdown, err := SetupTracing(context.Background(), TracingConfig{ServiceName: "remedy-worker"}, logger)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestTracer_ExportsToInstalledProvider(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	exporter := tracetest.NewInMemoryExporter()
	tp, err := newTracerProvider(context.Background(), TracingConfig{
		ServiceName: "remedy-test",
		Sampling:    "always_on",
	}, sdktrace.WithSyncer(exporter))
	require.NoError(t, err)
	installTracerProvider(tp)

	_, span := Tracer().Start(context.Background(), "remedy.delivery")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "remedy.delivery", spans[0].Name)
	assert.Contains(t, spans[0].Resource.Attributes(), semconv.ServiceName("remedy-test"))
}

func TestTracer_NeverSampleDropsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp, err := newTracerProvider(context.Background(), TracingConfig{
		ServiceName: "remedy-test",
		Sampling:    "always_off",
	}, sdktrace.WithSyncer(exporter))
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "remedy.execute")
	span.End()

	assert.Empty(t, exporter.GetSpans())
}

func TestTracer(t *testing.T) {
	_, span := Tracer().Start(context.Background(), "test")
	defer span.End()

	assert.NotNil(t, span)
}
