// Package mcp implements a Model Context Protocol server exposing the
// revdiff engine as MCP tools over stdio transport.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/revdiff/pkg/config"
	"github.com/Sumatoshi-tech/revdiff/pkg/observability"
	"github.com/Sumatoshi-tech/revdiff/pkg/version"
)

const (
	serverName = "revdiff"
	toolCount  = 6

	mcpSpanPrefix  = "mcp."
	traceIDMetaKey = "trace_id"
)

var errToolFailed = errors.New("tool returned an error result")

// ServerDeps holds injectable dependencies for the MCP server.
// Zero-value fields use defaults.
type ServerDeps struct {
	Logger  *slog.Logger
	Metrics *observability.DiffMetrics
	Tracer  trace.Tracer
	// Config supplies diff defaults and limits. Nil uses config.Default().
	Config *config.Config
}

// Server wraps the MCP SDK server with the revdiff tool registrations.
type Server struct {
	inner   *mcpsdk.Server
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.DiffMetrics
	tracer  trace.Tracer

	mu    sync.RWMutex
	tools []string
}

// NewServer creates a server with all tools registered.
func NewServer(deps ServerDeps) *Server {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	srv := &Server{
		inner:   mcpsdk.NewServer(&mcpsdk.Implementation{Name: serverName, Version: version.Version}, opts),
		cfg:     cfg,
		logger:  logger,
		metrics: deps.Metrics,
		tracer:  deps.Tracer,
		tools:   make([]string, 0, toolCount),
	}

	srv.registerTools()

	return srv
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run serves on stdio until ctx is canceled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport serves on transport until ctx is canceled or the
// connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

func (s *Server) registerTools() {
	addTool(s, ToolNameDiff, diffToolDescription, s.handleDiff)
	addTool(s, ToolNameLineChanges, lineChangesToolDescription, s.handleLineChanges)
	addTool(s, ToolNameSimilarity, similarityToolDescription, s.handleSimilarity)
	addTool(s, ToolNameBatch, batchToolDescription, s.handleBatch)
	addTool(s, ToolNameFileStats, fileStatsToolDescription, s.handleFileStats)
	addTool(s, ToolNameDetectLanguage, detectLanguageToolDescription, s.handleDetectLanguage)
}

func addTool[In any](
	s *Server, name, description string,
	h func(context.Context, *mcpsdk.CallToolRequest, In) (*mcpsdk.CallToolResult, ToolOutput, error),
) {
	tagged := func(ctx context.Context, req *mcpsdk.CallToolRequest, input In) (*mcpsdk.CallToolResult, ToolOutput, error) {
		return h(observability.WithOp(ctx, name), req, input)
	}

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{Name: name, Description: description},
		withMetrics(s.metrics, name, withTracing(s.tracer, name, tagged)))

	s.mu.Lock()
	s.tools = append(s.tools, name)
	s.mu.Unlock()
}

// withTracing opens a server span per call and appends the trace id to the
// result content when the span is sampled.
func withTracing[In any](
	tracer trace.Tracer,
	toolName string,
	h func(context.Context, *mcpsdk.CallToolRequest, In) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, In) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if tracer == nil {
		return h
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input In) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		result, output, err := h(ctx, req, input)

		if sc := span.SpanContext(); sc.IsSampled() && result != nil {
			result.Content = append(result.Content,
				&mcpsdk.TextContent{Text: traceIDMetaKey + "=" + sc.TraceID().String()})
		}

		return result, output, err
	}
}

// withMetrics records one diff metric sample per call.
func withMetrics[In any](
	metrics *observability.DiffMetrics,
	toolName string,
	h func(context.Context, *mcpsdk.CallToolRequest, In) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, In) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if metrics == nil {
		return h
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input In) (*mcpsdk.CallToolResult, ToolOutput, error) {
		start := time.Now()

		result, output, err := h(ctx, req, input)

		recorded := err
		if recorded == nil && result != nil && result.IsError {
			recorded = errToolFailed
		}

		metrics.RecordDiff(ctx, mcpSpanPrefix+toolName, recorded, time.Since(start))

		return result, output, err
	}
}
