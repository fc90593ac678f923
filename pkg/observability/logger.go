package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
	attrEnv     = "env"
	attrMode    = "mode"
	attrRunID   = "run_id"
	attrOp      = "op"
)

type logKey int

const (
	runIDKey logKey = iota
	opKey
)

// WithRunID tags ctx with a batch run identifier. Records logged with ctx
// carry it as run_id.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithOp tags ctx with the diff operation being served, such as "diff" or
// "batch". Records logged with ctx carry it as op.
func WithOp(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, opKey, op)
}

// RunID returns the run identifier set by WithRunID, or "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)

	return id
}

// RunHandler is an [slog.Handler] that stamps each record with the run
// context: run_id and op from WithRunID and WithOp, plus trace_id and
// span_id when a span is active. The service, mode and env attributes are
// attached once at construction so groups do not nest them.
type RunHandler struct {
	inner slog.Handler
}

// NewRunHandler wraps inner with run correlation and service metadata.
func NewRunHandler(inner slog.Handler, service, env string, mode AppMode) *RunHandler {
	attrs := []slog.Attr{
		slog.String(attrService, service),
		slog.String(attrMode, string(mode)),
	}

	if env != "" {
		attrs = append(attrs, slog.String(attrEnv, env))
	}

	return &RunHandler{inner: inner.WithAttrs(attrs)}
}

// Enabled delegates to the inner handler.
func (h *RunHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds the run context and delegates.
func (h *RunHandler) Handle(ctx context.Context, record slog.Record) error {
	if op, ok := ctx.Value(opKey).(string); ok && op != "" {
		record.AddAttrs(slog.String(attrOp, op))
	}

	if id := RunID(ctx); id != "" {
		record.AddAttrs(slog.String(attrRunID, id))
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	err := h.inner.Handle(ctx, record)
	if err != nil {
		return fmt.Errorf("run handler: %w", err)
	}

	return nil
}

// WithAttrs implements [slog.Handler].
func (h *RunHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &RunHandler{inner: h.inner.WithAttrs(attrs)}
}

// WithGroup implements [slog.Handler].
func (h *RunHandler) WithGroup(name string) slog.Handler {
	return &RunHandler{inner: h.inner.WithGroup(name)}
}

// NewLogger builds the process logger described by cfg.
func NewLogger(cfg Config) *slog.Logger {
	var out io.Writer = os.Stderr
	if cfg.LogOutput != nil {
		out = cfg.LogOutput
	}

	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var inner slog.Handler = slog.NewTextHandler(out, opts)
	if cfg.LogJSON {
		inner = slog.NewJSONHandler(out, opts)
	}

	return slog.New(NewRunHandler(inner, cfg.ServiceName, cfg.Environment, cfg.Mode))
}
