package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/revdiff/internal/render"
	"github.com/Sumatoshi-tech/revdiff/pkg/textdiff"
	"github.com/Sumatoshi-tech/revdiff/pkg/textstats"
)

func validate(t *testing.T, schema *Schema, doc any) *gojsonschema.Result {
	t.Helper()

	res, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(doc))
	require.NoError(t, err)

	return res
}

func TestGenerateSchema_DiffResult(t *testing.T) {
	t.Parallel()

	schema := generateSchema("diff_result", textdiff.DiffResult{})

	assert.Equal(t, draft07, schema.Schema)
	assert.Equal(t, "Diff Result", schema.Title)
	assert.Equal(t, "integer", schema.Properties["diff_size"].Type)
	assert.Equal(t, "boolean", schema.Properties["is_significant"].Type)
	assert.Equal(t, "string", schema.Properties["unified_diff"].Type)
	assert.Contains(t, schema.Required, "after_content")
	assert.NotContains(t, schema.Required, "unified_diff")
}

func TestGenerateSchema_EmbeddedDefinitions(t *testing.T) {
	t.Parallel()

	schema := generateSchema("batch_report", render.BatchReport{})

	require.Contains(t, schema.Definitions, "BatchRecord")
	require.Contains(t, schema.Definitions, "DiffResult")
	assert.Equal(t, "#/definitions/BatchSummary", schema.Properties["summary"].Ref)
	assert.Equal(t, "array", schema.Properties["items"].Type)
	assert.Equal(t, "#/definitions/BatchRecord", schema.Properties["items"].Items.Ref)
}

func TestGenerateSchema_ValidatesOutput(t *testing.T) {
	t.Parallel()

	res, err := textdiff.ComputeDiff("a\nb\n", "a\nc\n", textdiff.WithUnified(true))
	require.NoError(t, err)

	result := validate(t, generateSchema("diff_result", textdiff.DiffResult{}), res)
	assert.True(t, result.Valid(), "%v", result.Errors())

	report := render.NewBatchReport("run", 3, []string{"ok"}, []textdiff.BatchItem{
		{Result: &res},
		{Err: errors.New("boom")},
	})

	result = validate(t, generateSchema("batch_report", render.BatchReport{}), report)
	assert.True(t, result.Valid(), "%v", result.Errors())

	result = validate(t, generateSchema("file_stats", textstats.FileStats{}), textstats.Stats("x\n"))
	assert.True(t, result.Valid(), "%v", result.Errors())
}

func TestGenerateSchema_RejectsWrongType(t *testing.T) {
	t.Parallel()

	result := validate(t, generateSchema("line_change", textdiff.LineChange{}), map[string]any{
		"line_number": "one",
		"change_type": "insert",
		"content":     "x",
	})

	assert.False(t, result.Valid())
}

func TestRun_WritesFiles(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "schemas")
	require.NoError(t, run(dir))

	for name := range documents() {
		data, err := os.ReadFile(filepath.Join(dir, name+".json"))
		require.NoError(t, err)

		var schema Schema
		require.NoError(t, json.Unmarshal(data, &schema))
		assert.Equal(t, "object", schema.Type, name)
	}
}

func TestTitle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "File Stats", title("file_stats"))
	assert.Equal(t, "Single", title("single"))
}
