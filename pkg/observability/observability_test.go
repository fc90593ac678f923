package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/revdiff/pkg/observability"
)

var errDiff = errors.New("diff failed")

func setupTestMeter(t *testing.T) (*observability.DiffMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	dm, err := observability.NewDiffMetrics(mp.Meter("test"))
	require.NoError(t, err)

	return dm, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func sumValue(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}

	return total
}

func TestDiffMetrics_RecordDiff(t *testing.T) {
	t.Parallel()

	dm, reader := setupTestMeter(t)
	ctx := context.Background()

	dm.RecordDiff(ctx, "diff", nil, time.Millisecond)
	dm.RecordDiff(ctx, "diff", errDiff, time.Millisecond)

	rm := collectMetrics(t, reader)

	total := findMetric(rm, "revdiff.diffs.total")
	require.NotNil(t, total)
	assert.Equal(t, int64(2), sumValue(t, total))

	errs := findMetric(rm, "revdiff.errors.total")
	require.NotNil(t, errs)
	assert.Equal(t, int64(1), sumValue(t, errs))

	require.NotNil(t, findMetric(rm, "revdiff.diff.duration.seconds"))
}

func TestDiffMetrics_TrackBatch(t *testing.T) {
	t.Parallel()

	dm, reader := setupTestMeter(t)
	ctx := context.Background()

	done := dm.TrackBatch(ctx)

	inflight := findMetric(collectMetrics(t, reader), "revdiff.batch.inflight")
	require.NotNil(t, inflight)
	assert.Equal(t, int64(1), sumValue(t, inflight))

	done()

	inflight = findMetric(collectMetrics(t, reader), "revdiff.batch.inflight")
	require.NotNil(t, inflight)
	assert.Equal(t, int64(0), sumValue(t, inflight))
}

func TestDiffMetrics_Observer(t *testing.T) {
	t.Parallel()

	dm, reader := setupTestMeter(t)
	observe := dm.Observer(context.Background(), "batch")

	observe(0, nil, time.Microsecond)
	observe(1, errDiff, time.Microsecond)
	observe(2, nil, time.Microsecond)

	total := findMetric(collectMetrics(t, reader), "revdiff.diffs.total")
	require.NotNil(t, total)
	assert.Equal(t, int64(3), sumValue(t, total))
}

func TestRunHandler_InjectsTraceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(observability.NewRunHandler(inner, "test-svc", "test", observability.ModeCLI))

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})

	logger.InfoContext(trace.ContextWithSpanContext(context.Background(), sc), "diff computed")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", record["trace_id"])
	assert.Equal(t, "0102030405060708", record["span_id"])
	assert.Equal(t, "test-svc", record["service"])
	assert.Equal(t, "test", record["env"])
	assert.Equal(t, "cli", record["mode"])
}

func TestRunHandler_GroupsKeepServiceTopLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(observability.NewRunHandler(inner, "revdiff", "", observability.ModeMCP))

	logger.WithGroup("batch").Info("finished", "items", 3)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "revdiff", record["service"])
	assert.Equal(t, "mcp", record["mode"])
	assert.NotContains(t, record, "env")
	assert.NotContains(t, record, "trace_id")
	assert.NotContains(t, record, "run_id")
	assert.NotContains(t, record, "op")

	group, ok := record["batch"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 3.0, group["items"], 0)
}

func TestRunHandler_InjectsRunContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(observability.NewRunHandler(inner, "revdiff", "", observability.ModeCLI))

	ctx := observability.WithOp(context.Background(), "batch")
	ctx = observability.WithRunID(ctx, "run-42")

	logger.InfoContext(ctx, "batch item failed", "index", 2)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "run-42", record["run_id"])
	assert.Equal(t, "batch", record["op"])
	assert.Equal(t, "run-42", observability.RunID(ctx))
	assert.Empty(t, observability.RunID(context.Background()))
}

func TestNewLogger_Level(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogOutput = &buf
	cfg.LogLevel = slog.LevelWarn

	logger := observability.NewLogger(cfg)
	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "service=revdiff")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	level, err := observability.ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = observability.ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = observability.ParseLevel("chatty")
	require.Error(t, err)
}

func TestInit_NoopWithoutExporters(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.LogOutput = io.Discard

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)
	assert.NotNil(t, providers.Metrics)
	assert.Nil(t, providers.MetricsHandler)

	providers.Metrics.RecordDiff(context.Background(), "diff", nil, time.Millisecond)

	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_PrometheusEndpoint(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.LogOutput = io.Discard
	cfg.PrometheusAddr = "127.0.0.1:0"

	providers, err := observability.Init(cfg)
	require.NoError(t, err)
	require.NotNil(t, providers.MetricsHandler)

	t.Cleanup(func() { _ = providers.Shutdown(context.Background()) })

	providers.Metrics.RecordDiff(context.Background(), "diff", nil, time.Millisecond)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)

	go func() { served <- observability.ServeMetrics(ctx, ln, providers.MetricsHandler, providers.Logger) }()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet,
		"http://"+ln.Addr().String()+"/metrics", http.NoBody)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "revdiff_diffs"), string(body))

	cancel()
	require.NoError(t, <-served)
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	assert.Nil(t, observability.ParseOTLPHeaders(""))
	assert.Nil(t, observability.ParseOTLPHeaders("novalue"))
	assert.Equal(t, map[string]string{"api-key": "secret", "team": "core"},
		observability.ParseOTLPHeaders(" api-key = secret ,team=core,broken"))
}
