// Package textdiff is the entry point of the diff engine. It compares two
// versions of a text document, classifies the change, optionally renders a
// unified diff, scores similarity and runs batches of comparisons.
package textdiff

import (
	"context"
	"fmt"
	"time"

	"github.com/Sumatoshi-tech/revdiff/pkg/align"
	"github.com/Sumatoshi-tech/revdiff/pkg/batch"
	"github.com/Sumatoshi-tech/revdiff/pkg/classify"
	"github.com/Sumatoshi-tech/revdiff/pkg/document"
	"github.com/Sumatoshi-tech/revdiff/pkg/similarity"
	"github.com/Sumatoshi-tech/revdiff/pkg/unified"
)

// DiffResult describes the change from one document version to the next.
type DiffResult struct {
	DiffSize      int     `json:"diff_size"             yaml:"diff_size"`
	IsSignificant bool    `json:"is_significant"        yaml:"is_significant"`
	Summary       string  `json:"summary"               yaml:"summary"`
	LinesAdded    int     `json:"lines_added"           yaml:"lines_added"`
	LinesRemoved  int     `json:"lines_removed"         yaml:"lines_removed"`
	CharsAdded    int     `json:"chars_added"           yaml:"chars_added"`
	CharsDeleted  int     `json:"chars_deleted"         yaml:"chars_deleted"`
	AfterContent  string  `json:"after_content"         yaml:"after_content"`
	UnifiedDiff   *string `json:"unified_diff,omitempty" yaml:"unified_diff,omitempty"`
}

// Option configures a comparison.
type Option func(*options)

type options struct {
	threshold int
	unified   unified.Options
	emit      bool
	limits    align.Limits
	workers   int
	onResult  func(index int, err error, elapsed time.Duration)
}

func newOptions(opts []Option) options {
	o := options{
		threshold: classify.DefaultThreshold,
		unified:   unified.DefaultOptions(),
		limits:    align.DefaultLimits(),
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// WithThreshold sets the minimum byte-length delta for a significant change.
func WithThreshold(threshold int) Option {
	return func(o *options) { o.threshold = threshold }
}

// WithUnified enables unified-diff rendering in the result.
func WithUnified(enabled bool) Option {
	return func(o *options) { o.emit = enabled }
}

// WithContextLines sets the unified-diff context window. Negative means default.
func WithContextLines(n int) Option {
	return func(o *options) { o.unified.Context = n }
}

// WithLabels sets the "---" and "+++" file header labels of the unified diff.
func WithLabels(oldLabel, newLabel string) Option {
	return func(o *options) {
		o.unified.OldLabel = oldLabel
		o.unified.NewLabel = newLabel
	}
}

// WithLimits sets the alignment resource guards.
func WithLimits(limits align.Limits) Option {
	return func(o *options) { o.limits = limits }
}

// WithWorkers sets the batch worker pool size. Zero means one per CPU.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithObserver registers a callback invoked once per batch item.
func WithObserver(fn func(index int, err error, elapsed time.Duration)) Option {
	return func(o *options) { o.onResult = fn }
}

// ComputeDiff compares before and after line by line.
func ComputeDiff(before, after string, opts ...Option) (DiffResult, error) {
	return computeDiff(before, after, newOptions(opts))
}

func computeDiff(before, after string, o options) (DiffResult, error) {
	oldDoc, newDoc, script, err := lineScript(before, after, o.limits)
	if err != nil {
		return DiffResult{}, err
	}

	c := classify.Classify(script, oldDoc.Len(), newDoc.Len(), o.threshold)

	res := DiffResult{
		DiffSize:      c.DiffSize,
		IsSignificant: c.IsSignificant,
		Summary:       c.Summary,
		LinesAdded:    c.LinesAdded,
		LinesRemoved:  c.LinesRemoved,
		CharsAdded:    c.CharsAdded,
		CharsDeleted:  c.CharsDeleted,
		AfterContent:  after,
	}

	if o.emit {
		text := unified.Format(oldDoc, newDoc, script, o.unified)
		res.UnifiedDiff = &text
	}

	return res, nil
}

// Script returns the line edit script between before and after. Tokens keep
// their line terminators.
func Script(before, after string, opts ...Option) (align.Script[string], error) {
	_, _, script, err := lineScript(before, after, newOptions(opts).limits)

	return script, err
}

// Similarity returns the character-level similarity ratio in [0, 1].
func Similarity(before, after string, opts ...Option) (float64, error) {
	o := newOptions(opts)

	err := document.Validate(before)
	if err != nil {
		return 0, fmt.Errorf("before: %w", err)
	}

	err = document.Validate(after)
	if err != nil {
		return 0, fmt.Errorf("after: %w", err)
	}

	ratio, err := similarity.Ratio(before, after, o.limits)
	if err != nil {
		return 0, fmt.Errorf("align characters: %w", err)
	}

	return ratio, nil
}

// Pair is one (before, after) comparison of a batch.
type Pair struct {
	Before string
	After  string
	// Err marks a pair that could not be prepared, for example an input
	// that failed to load. It is reported in the pair's slot unchanged.
	Err error
}

// BatchItem is the outcome of one batch pair. Result is nil when Err is set.
type BatchItem struct {
	Result *DiffResult
	Err    error
}

// BatchComputeDiff runs ComputeDiff over every pair on a worker pool. The
// returned slice always has len(pairs) items and items[i] belongs to
// pairs[i]. Unified rendering is disabled unless WithUnified is passed.
func BatchComputeDiff(ctx context.Context, pairs []Pair, opts ...Option) []BatchItem {
	o := newOptions(opts)

	fn := func(_ context.Context, p Pair) (*DiffResult, error) {
		if p.Err != nil {
			return nil, p.Err
		}

		res, err := computeDiff(p.Before, p.After, o)
		if err != nil {
			return nil, err
		}

		return &res, nil
	}

	results := batch.Run(ctx, pairs, fn, batch.Options{Workers: o.workers, OnResult: o.onResult})

	items := make([]BatchItem, len(results))
	for i, r := range results {
		if r.OK() {
			items[i] = BatchItem{Result: r.Value}
		} else {
			items[i] = BatchItem{Err: r.Err}
		}
	}

	return items
}

func lineScript(before, after string, limits align.Limits) (
	oldDoc, newDoc document.Document, script align.Script[string], err error,
) {
	oldDoc, err = document.New(before)
	if err != nil {
		return oldDoc, newDoc, nil, fmt.Errorf("before: %w", err)
	}

	newDoc, err = document.New(after)
	if err != nil {
		return oldDoc, newDoc, nil, fmt.Errorf("after: %w", err)
	}

	script, err = align.Align(oldDoc.Lines(), newDoc.Lines(), limits)
	if err != nil {
		return oldDoc, newDoc, nil, fmt.Errorf("align lines: %w", err)
	}

	return oldDoc, newDoc, script, nil
}
