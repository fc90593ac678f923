package render_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/revdiff/internal/render"
	"github.com/Sumatoshi-tech/revdiff/pkg/align"
	"github.com/Sumatoshi-tech/revdiff/pkg/textdiff"
	"github.com/Sumatoshi-tech/revdiff/pkg/textstats"
)

func init() {
	color.NoColor = true //nolint:reassign // deterministic output in tests
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	f, err := render.ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, render.FormatJSON, f)

	f, err = render.ParseFormat(" YAML ")
	require.NoError(t, err)
	assert.Equal(t, render.FormatYAML, f)

	f, err = render.ParseFormat("plot", render.FormatJSON, render.FormatPlot)
	require.NoError(t, err)
	assert.Equal(t, render.FormatPlot, f)

	_, err = render.ParseFormat("plot")
	require.ErrorIs(t, err, render.ErrUnknownFormat)

	_, err = render.ParseFormat("xml")
	require.ErrorIs(t, err, render.ErrUnknownFormat)
}

func sampleResult(t *testing.T) textdiff.DiffResult {
	t.Helper()

	res, err := textdiff.ComputeDiff("a\nb\nc\n", "a\nx\nc\nd\n", textdiff.WithUnified(true), textdiff.WithThreshold(1))
	require.NoError(t, err)

	return res
}

func TestWriteStructured(t *testing.T) {
	t.Parallel()

	res := sampleResult(t)

	var buf bytes.Buffer
	require.NoError(t, render.WriteStructured(&buf, render.FormatJSON, res))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.InDelta(t, 2.0, decoded["diff_size"], 0)
	assert.Equal(t, "+2 chars", decoded["summary"])
	assert.Contains(t, decoded, "unified_diff")

	buf.Reset()
	require.NoError(t, render.WriteStructured(&buf, render.FormatYAML, res))

	var fromYAML textdiff.DiffResult
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, res, fromYAML)

	require.ErrorIs(t, render.WriteStructured(&buf, render.FormatText, res), render.ErrUnknownFormat)
}

func TestWriteDiffText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, render.WriteDiffText(&buf, sampleResult(t)))

	out := buf.String()
	assert.Contains(t, out, "+2 chars")
	assert.Contains(t, out, "@@ -1,3 +1,4 @@")
	assert.Contains(t, out, "-b\n+x\n")
	assert.Contains(t, out, "+d\n")
}

func TestWriteDiffText_NoUnified(t *testing.T) {
	t.Parallel()

	res, err := textdiff.ComputeDiff("a\n", "a\n")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, render.WriteDiffText(&buf, res))
	assert.Contains(t, buf.String(), "no change")
	assert.NotContains(t, buf.String(), "@@")
}

func TestWriteLineChangesText(t *testing.T) {
	t.Parallel()

	changes, err := textdiff.LineChanges("a\nb\n", "a\nc\n")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, render.WriteLineChangesText(&buf, changes))

	out := buf.String()
	assert.Contains(t, out, "- delete")
	assert.Contains(t, out, "+ insert")
	assert.Contains(t, out, "2 changed lines")
}

func TestWriteStatsText(t *testing.T) {
	t.Parallel()

	content := "// hi\ncode here\n\n"
	stats := textstats.Stats(content)

	var buf bytes.Buffer
	require.NoError(t, render.WriteStatsText(&buf, "file.go", stats, textstats.EstimateTokens(content)))

	out := buf.String()
	assert.Contains(t, out, "file.go")
	assert.Contains(t, out, "Comment lines")
	assert.Contains(t, out, "17 B")
}

var errPair = errors.New("pair failed")

func sampleReport() render.BatchReport {
	ok := textdiff.DiffResult{Summary: "+12 chars", DiffSize: 12, IsSignificant: true, LinesAdded: 2, LinesRemoved: 1}
	quiet := textdiff.DiffResult{Summary: "no change", LinesAdded: 1, LinesRemoved: 1}

	items := []textdiff.BatchItem{
		{Result: &ok},
		{Err: errPair},
		{Result: &quiet},
	}

	return render.NewBatchReport("run-1", 10, []string{"first.txt", "second.txt"}, items)
}

func TestNewBatchReport(t *testing.T) {
	t.Parallel()

	report := sampleReport()

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, render.BatchSummary{Total: 3, Failed: 1, Significant: 1, LinesAdded: 3, LinesRemoved: 2}, report.Summary)
	require.Len(t, report.Items, 3)

	assert.Equal(t, "first.txt", report.Items[0].Name)
	assert.Equal(t, "pair failed", report.Items[1].Error)
	assert.Nil(t, report.Items[1].Result)
	assert.Empty(t, report.Items[2].Name)
	assert.Equal(t, 2, report.Items[2].Index)
}

func TestWriteBatchText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, render.WriteBatchText(&buf, sampleReport()))

	out := buf.String()
	assert.Contains(t, out, "first.txt")
	assert.Contains(t, out, "error: pair failed")
	assert.Contains(t, out, "#2")
	assert.Contains(t, out, "Total: 3")
}

func TestWriteBatchPlot(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, render.WriteBatchPlot(&buf, sampleReport()))

	out := buf.String()
	assert.True(t, strings.Contains(out, "<html") || strings.Contains(out, "<!DOCTYPE"), "expected HTML output")
	assert.Contains(t, out, "Lines added")
	assert.Contains(t, out, "first.txt")
	assert.NotContains(t, out, "second.txt")
}

func TestInlineDiff(t *testing.T) {
	t.Parallel()

	out, err := render.InlineDiff("kitten", "sitting", align.Limits{})
	require.NoError(t, err)

	assert.Contains(t, out, "itt")
	assert.Contains(t, out, "\x1b[")

	out, err = render.InlineDiff("same", "same", align.Limits{})
	require.NoError(t, err)
	assert.Equal(t, "same", out)
}
