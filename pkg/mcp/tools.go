package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/revdiff/internal/render"
	"github.com/Sumatoshi-tech/revdiff/pkg/lang"
	"github.com/Sumatoshi-tech/revdiff/pkg/observability"
	"github.com/Sumatoshi-tech/revdiff/pkg/safeconv"
	"github.com/Sumatoshi-tech/revdiff/pkg/textdiff"
	"github.com/Sumatoshi-tech/revdiff/pkg/textstats"
)

// Tool name constants.
const (
	ToolNameDiff           = "revdiff_diff"
	ToolNameLineChanges    = "revdiff_line_changes"
	ToolNameSimilarity     = "revdiff_similarity"
	ToolNameBatch          = "revdiff_batch"
	ToolNameFileStats      = "revdiff_file_stats"
	ToolNameDetectLanguage = "revdiff_detect_language"
)

const (
	diffToolDescription = "Compare two versions of a text document. Returns the change size, " +
		"significance, a summary and optionally a unified diff."
	lineChangesToolDescription = "List inserted and deleted lines between two versions of a document."
	similarityToolDescription  = "Score the character-level similarity of two texts in [0, 1]."
	batchToolDescription       = "Compare many (before, after) pairs in parallel. " +
		"Results keep input order and one failing pair does not affect the others."
	fileStatsToolDescription      = "Count lines, words, characters, blank and comment lines, and estimate tokens."
	detectLanguageToolDescription = "Detect the programming language of a file and list its function names."
)

// Sentinel errors for tool input validation.
var (
	// ErrInputTooLarge indicates a text input exceeds the configured size limit.
	ErrInputTooLarge = errors.New("input exceeds maximum size")
	// ErrEmptyBatch indicates the pairs parameter is empty.
	ErrEmptyBatch = errors.New("pairs parameter is required and must not be empty")
)

// DiffInput is the input schema for the revdiff_diff tool.
type DiffInput struct {
	Before         string `json:"before"                    jsonschema:"previous version of the document"`
	After          string `json:"after"                     jsonschema:"current version of the document"`
	Threshold      *int   `json:"threshold,omitempty"       jsonschema:"minimum byte-length delta for a significant change"`
	IncludeUnified *bool  `json:"include_unified,omitempty" jsonschema:"render a unified diff in the result"`
	ContextLines   *int   `json:"context_lines,omitempty"   jsonschema:"unified diff context lines (default 3)"`
}

// LineChangesInput is the input schema for the revdiff_line_changes tool.
type LineChangesInput struct {
	Before string `json:"before" jsonschema:"previous version of the document"`
	After  string `json:"after"  jsonschema:"current version of the document"`
}

// SimilarityInput is the input schema for the revdiff_similarity tool.
type SimilarityInput struct {
	A string `json:"a" jsonschema:"first text"`
	B string `json:"b" jsonschema:"second text"`
}

// PairInput is one comparison of a revdiff_batch call.
type PairInput struct {
	Name   string `json:"name,omitempty" jsonschema:"optional label echoed in the result"`
	Before string `json:"before"         jsonschema:"previous version of the document"`
	After  string `json:"after"          jsonschema:"current version of the document"`
}

// BatchInput is the input schema for the revdiff_batch tool.
type BatchInput struct {
	Pairs     []PairInput `json:"pairs"               jsonschema:"comparisons to run"`
	Threshold *int        `json:"threshold,omitempty" jsonschema:"minimum byte-length delta for a significant change"`
}

// FileStatsInput is the input schema for the revdiff_file_stats tool.
type FileStatsInput struct {
	Content string `json:"content" jsonschema:"file content"`
}

// DetectLanguageInput is the input schema for the revdiff_detect_language tool.
type DetectLanguageInput struct {
	Content  string `json:"content"            jsonschema:"file content"`
	Filename string `json:"filename,omitempty" jsonschema:"file name or path used for extension lookup"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

type similarityResult struct {
	Similarity float64 `json:"similarity"`
}

type fileStatsResult struct {
	textstats.FileStats

	CodeLines       int `json:"code_lines"`
	EstimatedTokens int `json:"estimated_tokens"`
}

type languageResult struct {
	Language  lang.Language `json:"language"`
	Functions []string      `json:"functions"`
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// checkSize rejects any text longer than the configured input limit.
func (s *Server) checkSize(texts ...string) error {
	limit, err := s.cfg.MaxInputBytes()
	if err != nil {
		return err
	}

	if limit == 0 {
		return nil
	}

	for _, text := range texts {
		if safeconv.Size(len(text)) > limit {
			return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(text), limit)
		}
	}

	return nil
}

func (s *Server) baseOptions(threshold *int) []textdiff.Option {
	t := s.cfg.Diff.Threshold
	if threshold != nil {
		t = *threshold
	}

	return []textdiff.Option{
		textdiff.WithThreshold(t),
		textdiff.WithLimits(s.cfg.Limits),
		textdiff.WithContextLines(s.cfg.Diff.ContextLines),
		textdiff.WithWorkers(s.cfg.Batch.Workers),
	}
}

func (s *Server) handleDiff(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	input DiffInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := s.checkSize(input.Before, input.After)
	if err != nil {
		return errorResult(err)
	}

	includeUnified := s.cfg.Diff.IncludeUnified
	if input.IncludeUnified != nil {
		includeUnified = *input.IncludeUnified
	}

	opts := append(s.baseOptions(input.Threshold), textdiff.WithUnified(includeUnified))
	if input.ContextLines != nil {
		opts = append(opts, textdiff.WithContextLines(*input.ContextLines))
	}

	res, err := textdiff.ComputeDiff(input.Before, input.After, opts...)
	if err != nil {
		return errorResult(fmt.Errorf("compute diff: %w", err))
	}

	return jsonResult(res)
}

func (s *Server) handleLineChanges(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	input LineChangesInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := s.checkSize(input.Before, input.After)
	if err != nil {
		return errorResult(err)
	}

	changes, err := textdiff.LineChanges(input.Before, input.After, s.baseOptions(nil)...)
	if err != nil {
		return errorResult(fmt.Errorf("line changes: %w", err))
	}

	return jsonResult(changes)
}

func (s *Server) handleSimilarity(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	input SimilarityInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := s.checkSize(input.A, input.B)
	if err != nil {
		return errorResult(err)
	}

	ratio, err := textdiff.Similarity(input.A, input.B, s.baseOptions(nil)...)
	if err != nil {
		return errorResult(fmt.Errorf("similarity: %w", err))
	}

	return jsonResult(similarityResult{Similarity: ratio})
}

func (s *Server) handleBatch(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input BatchInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if len(input.Pairs) == 0 {
		return errorResult(ErrEmptyBatch)
	}

	pairs := make([]textdiff.Pair, len(input.Pairs))
	names := make([]string, len(input.Pairs))

	for i, p := range input.Pairs {
		pairs[i] = textdiff.Pair{Before: p.Before, After: p.After, Err: s.checkSize(p.Before, p.After)}
		names[i] = p.Name
	}

	opts := s.baseOptions(input.Threshold)

	if s.metrics != nil {
		done := s.metrics.TrackBatch(ctx)
		defer done()

		opts = append(opts, textdiff.WithObserver(s.metrics.Observer(ctx, ToolNameBatch+".item")))
	}

	runID := uuid.NewString()
	ctx = observability.WithRunID(ctx, runID)
	s.logger.DebugContext(ctx, "batch started", "pairs", len(pairs))

	items := textdiff.BatchComputeDiff(ctx, pairs, opts...)

	threshold := s.cfg.Diff.Threshold
	if input.Threshold != nil {
		threshold = *input.Threshold
	}

	report := render.NewBatchReport(runID, threshold, names, items)
	s.logger.DebugContext(ctx, "batch finished", "failed", report.Summary.Failed)

	return jsonResult(report)
}

func (s *Server) handleFileStats(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	input FileStatsInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := s.checkSize(input.Content)
	if err != nil {
		return errorResult(err)
	}

	stats := textstats.Stats(input.Content)

	return jsonResult(fileStatsResult{
		FileStats:       stats,
		CodeLines:       stats.CodeLines(),
		EstimatedTokens: textstats.EstimateTokens(input.Content),
	})
}

func (s *Server) handleDetectLanguage(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	input DetectLanguageInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := s.checkSize(input.Content)
	if err != nil {
		return errorResult(err)
	}

	detected := lang.Detect(input.Content, input.Filename)

	return jsonResult(languageResult{
		Language:  detected,
		Functions: lang.ExtractFunctions(input.Content, detected),
	})
}
