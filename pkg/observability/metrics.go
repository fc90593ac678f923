package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricDiffsTotal    = "revdiff.diffs.total"
	metricDiffDuration  = "revdiff.diff.duration.seconds"
	metricErrorsTotal   = "revdiff.errors.total"
	metricBatchInflight = "revdiff.batch.inflight"

	attrStatus = "status"

	// StatusOK marks a successful comparison.
	StatusOK = "ok"
	// StatusError marks a failed comparison.
	StatusError = "error"
)

// durationBucketBoundaries covers 10µs to 10s; most comparisons finish in
// well under a millisecond.
var durationBucketBoundaries = []float64{
	0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10,
}

// DiffMetrics holds the instruments recorded for every comparison.
type DiffMetrics struct {
	diffsTotal    metric.Int64Counter
	diffDuration  metric.Float64Histogram
	errorsTotal   metric.Int64Counter
	batchInflight metric.Int64UpDownCounter
}

// NewDiffMetrics creates the diff instruments from mt.
func NewDiffMetrics(mt metric.Meter) (*DiffMetrics, error) {
	total, err := mt.Int64Counter(metricDiffsTotal,
		metric.WithDescription("Total number of comparisons"),
		metric.WithUnit("{diff}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricDiffsTotal, err)
	}

	duration, err := mt.Float64Histogram(metricDiffDuration,
		metric.WithDescription("Comparison duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricDiffDuration, err)
	}

	errs, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Total number of failed comparisons"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	inflight, err := mt.Int64UpDownCounter(metricBatchInflight,
		metric.WithDescription("Number of batches being processed"),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricBatchInflight, err)
	}

	return &DiffMetrics{
		diffsTotal:    total,
		diffDuration:  duration,
		errorsTotal:   errs,
		batchInflight: inflight,
	}, nil
}

// RecordDiff records one finished comparison.
func (dm *DiffMetrics) RecordDiff(ctx context.Context, op string, err error, duration time.Duration) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	dm.diffsTotal.Add(ctx, 1, attrs)
	dm.diffDuration.Record(ctx, duration.Seconds(), attrs)

	if err != nil {
		dm.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
	}
}

// TrackBatch increments the in-flight batch gauge and returns its decrement.
func (dm *DiffMetrics) TrackBatch(ctx context.Context) func() {
	dm.batchInflight.Add(ctx, 1)

	return func() {
		dm.batchInflight.Add(ctx, -1)
	}
}

// Observer returns a per-item callback that records every batch item under op.
func (dm *DiffMetrics) Observer(ctx context.Context, op string) func(index int, err error, elapsed time.Duration) {
	return func(_ int, err error, elapsed time.Duration) {
		dm.RecordDiff(ctx, op, err, elapsed)
	}
}
