package batchio_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/revdiff/internal/batchio"
	"github.com/Sumatoshi-tech/revdiff/pkg/textdiff"
)

const manifestJSON = `{
  "threshold": 5,
  "pairs": [
    {"name": "inline", "before": "a\n", "after": "a\nb\n"},
    {"before_path": "old.txt", "after_path": "new.txt"},
    {"after": "created\n"}
  ]
}`

const manifestYAML = `threshold: 5
pairs:
  - name: inline
    before: "a\n"
    after: "a\nb\n"
  - before_path: old.txt
    after_path: new.txt
  - after: "created\n"
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func fixtureDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "old.txt"), "one\ntwo\n")
	writeFile(t, filepath.Join(dir, "new.txt"), "one\nthree\n")

	return dir
}

func assertResolved(t *testing.T, m *batchio.Manifest) {
	t.Helper()

	require.NotNil(t, m.Threshold)
	assert.Equal(t, 5, *m.Threshold)

	pairs, names := m.Resolve(0)

	assert.Equal(t, []textdiff.Pair{
		{Before: "a\n", After: "a\nb\n"},
		{Before: "one\ntwo\n", After: "one\nthree\n"},
		{Before: "", After: "created\n"},
	}, pairs)
	assert.Equal(t, []string{"inline", "new.txt", ""}, names)
}

func TestLoad_JSON(t *testing.T) {
	t.Parallel()

	dir := fixtureDir(t)
	path := filepath.Join(dir, "batch.json")
	writeFile(t, path, manifestJSON)

	m, err := batchio.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, dir, m.BaseDir)
	assertResolved(t, m)
}

func TestLoad_YAML(t *testing.T) {
	t.Parallel()

	dir := fixtureDir(t)
	path := filepath.Join(dir, "batch.yml")
	writeFile(t, path, manifestYAML)

	m, err := batchio.Load(path, nil)
	require.NoError(t, err)
	assertResolved(t, m)
}

func TestLoad_LZ4(t *testing.T) {
	t.Parallel()

	dir := fixtureDir(t)
	path := filepath.Join(dir, "batch.yaml.lz4")

	f, err := os.Create(path)
	require.NoError(t, err)

	zw := lz4.NewWriter(f)
	_, err = zw.Write([]byte(manifestYAML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	m, err := batchio.Load(path, nil)
	require.NoError(t, err)
	assertResolved(t, m)
}

func TestLoad_Stdin(t *testing.T) {
	t.Parallel()

	m, err := batchio.Load(batchio.StdinPath, strings.NewReader(`{"pairs": [{"before": "x", "after": "y"}]}`))
	require.NoError(t, err)

	assert.Equal(t, ".", m.BaseDir)
	assert.Nil(t, m.Threshold)
	require.Len(t, m.Pairs, 1)
	assert.Equal(t, "y", m.Pairs[0].After)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := batchio.Load(filepath.Join(t.TempDir(), "absent.json"), nil)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
		want string
	}{
		{name: "missing pairs", doc: `{"threshold": 1}`, want: "pairs"},
		{name: "unknown field", doc: `{"pairs": [], "extra": true}`, want: "extra"},
		{name: "wrong type", doc: `{"pairs": [{"before": 3}]}`, want: "before"},
		{name: "inline and path", doc: `{"pairs": [{"before": "x", "before_path": "f"}]}`, want: "pairs.0"},
		{name: "not an object", doc: `[1, 2]`, want: "object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := batchio.Parse([]byte(tt.doc), false)
			require.ErrorIs(t, err, batchio.ErrInvalidManifest)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_BadYAML(t *testing.T) {
	t.Parallel()

	_, err := batchio.Parse([]byte("pairs: [unclosed"), true)
	require.ErrorIs(t, err, batchio.ErrInvalidManifest)
}

func TestResolve_SizeLimit(t *testing.T) {
	t.Parallel()

	dir := fixtureDir(t)

	m := &batchio.Manifest{
		BaseDir: dir,
		Pairs: []batchio.Entry{
			{Name: "ok", Before: "a", After: "b"},
			{Name: "big file", BeforePath: "old.txt", After: "x"},
			{Name: "big inline", Before: "x", After: strings.Repeat("y", 10)},
			{Name: "last", Before: "c", After: "d"},
		},
	}

	pairs, names := m.Resolve(4)
	require.Len(t, pairs, 4)
	assert.Equal(t, []string{"ok", "big file", "big inline", "last"}, names)

	assert.Equal(t, textdiff.Pair{Before: "a", After: "b"}, pairs[0])
	assert.Equal(t, textdiff.Pair{Before: "c", After: "d"}, pairs[3])

	require.ErrorIs(t, pairs[1].Err, batchio.ErrInputTooLarge)
	assert.Contains(t, pairs[1].Err.Error(), "before")

	require.ErrorIs(t, pairs[2].Err, batchio.ErrInputTooLarge)
	assert.Contains(t, pairs[2].Err.Error(), "after")
}

func TestResolve_FailedPairKeepsSlot(t *testing.T) {
	t.Parallel()

	m := &batchio.Manifest{
		BaseDir: fixtureDir(t),
		Pairs: []batchio.Entry{
			{BeforePath: "nope.txt"},
			{BeforePath: "old.txt", AfterPath: "new.txt"},
		},
	}

	pairs, names := m.Resolve(0)
	require.Len(t, pairs, 2)
	assert.Equal(t, []string{"nope.txt", "new.txt"}, names)

	require.ErrorIs(t, pairs[0].Err, os.ErrNotExist)
	require.NoError(t, pairs[1].Err)

	items := textdiff.BatchComputeDiff(context.Background(), pairs)
	require.Len(t, items, 2)

	require.ErrorIs(t, items[0].Err, os.ErrNotExist)
	assert.Nil(t, items[0].Result)

	require.NoError(t, items[1].Err)
	assert.Equal(t, 1, items[1].Result.LinesAdded)
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "doc.txt")
	writeFile(t, path, "hello\n")

	text, err := batchio.ReadFile(path, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", text)

	text, err = batchio.ReadFile(path, 6)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", text)

	_, err = batchio.ReadFile(path, 5)
	require.ErrorIs(t, err, batchio.ErrInputTooLarge)
}
