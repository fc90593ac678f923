// Package batchio loads batch manifests: JSON or YAML documents listing the
// (before, after) pairs of a batch run, optionally lz4-compressed.
package batchio

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/revdiff/pkg/safeconv"
	"github.com/Sumatoshi-tech/revdiff/pkg/textdiff"
)

// StdinPath selects standard input as the manifest source.
const StdinPath = "-"

const lz4Ext = ".lz4"

// Sentinel errors.
var (
	ErrInvalidManifest = errors.New("invalid batch manifest")
	ErrInputTooLarge   = errors.New("input exceeds maximum size")
)

//go:embed schema.json
var schemaJSON []byte

// Entry is one pair of a manifest. Inline text and path are exclusive per
// side; a side with neither is the empty document.
type Entry struct {
	Name       string `json:"name,omitempty"        yaml:"name,omitempty"`
	Before     string `json:"before,omitempty"      yaml:"before,omitempty"`
	After      string `json:"after,omitempty"       yaml:"after,omitempty"`
	BeforePath string `json:"before_path,omitempty" yaml:"before_path,omitempty"`
	AfterPath  string `json:"after_path,omitempty"  yaml:"after_path,omitempty"`
}

// Manifest is a decoded batch input.
type Manifest struct {
	Threshold *int    `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Pairs     []Entry `json:"pairs"               yaml:"pairs"`

	// BaseDir anchors relative entry paths.
	BaseDir string `json:"-" yaml:"-"`
}

// Load reads and validates the manifest at path. Path "-" reads stdin and
// resolves entry paths against the working directory. A ".lz4" suffix
// selects lz4 frame decompression; ".yaml" or ".yml" before it selects YAML.
func Load(path string, stdin io.Reader) (*Manifest, error) {
	var (
		src     io.Reader
		baseDir = "."
		name    = path
	)

	if path == StdinPath {
		src = stdin
		name = "stdin"
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open manifest: %w", err)
		}
		defer f.Close()

		src = f
		baseDir = filepath.Dir(path)
	}

	if strings.HasSuffix(name, lz4Ext) {
		src = lz4.NewReader(src)
		name = strings.TrimSuffix(name, lz4Ext)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", name, err)
	}

	m, err := Parse(data, isYAML(name))
	if err != nil {
		return nil, err
	}

	m.BaseDir = baseDir

	return m, nil
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))

	return ext == ".yaml" || ext == ".yml"
}

// Parse decodes and validates a JSON or YAML manifest.
func Parse(data []byte, asYAML bool) (*Manifest, error) {
	if asYAML {
		var doc any

		err := yaml.Unmarshal(data, &doc)
		if err != nil {
			return nil, fmt.Errorf("%w: decode yaml: %w", ErrInvalidManifest, err)
		}

		data, err = json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
		}
	}

	err := validate(data)
	if err != nil {
		return nil, err
	}

	var m Manifest

	err = json.Unmarshal(data, &m)
	if err != nil {
		return nil, fmt.Errorf("%w: decode json: %w", ErrInvalidManifest, err)
	}

	return &m, nil
}

func validate(data []byte) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		problems = append(problems, verr.Field()+": "+verr.Description())
	}

	return fmt.Errorf("%w: %s", ErrInvalidManifest, strings.Join(problems, "; "))
}

// Resolve reads path-backed entries and returns the pairs in manifest order
// with their display names. An entry whose input cannot be read or exceeds
// maxBytes keeps its slot with Pair.Err set. maxBytes of 0 disables the size
// check.
func (m *Manifest) Resolve(maxBytes uint64) ([]textdiff.Pair, []string) {
	pairs := make([]textdiff.Pair, len(m.Pairs))
	names := make([]string, len(m.Pairs))

	for i, e := range m.Pairs {
		names[i] = e.displayName()

		before, err := m.side(e.Before, e.BeforePath, maxBytes)
		if err != nil {
			pairs[i].Err = fmt.Errorf("before: %w", err)

			continue
		}

		after, err := m.side(e.After, e.AfterPath, maxBytes)
		if err != nil {
			pairs[i].Err = fmt.Errorf("after: %w", err)

			continue
		}

		pairs[i] = textdiff.Pair{Before: before, After: after}
	}

	return pairs, names
}

func (e Entry) displayName() string {
	switch {
	case e.Name != "":
		return e.Name
	case e.AfterPath != "":
		return e.AfterPath
	default:
		return e.BeforePath
	}
}

func (m *Manifest) side(inline, path string, maxBytes uint64) (string, error) {
	if path == "" {
		return inline, checkSize(safeconv.Size(len(inline)), maxBytes)
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(m.BaseDir, path)
	}

	return ReadFile(path, maxBytes)
}

// ReadFile reads a document, rejecting files larger than maxBytes.
func ReadFile(path string, maxBytes uint64) (string, error) {
	if maxBytes > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}

		err = checkSize(safeconv.Size(info.Size()), maxBytes)
		if err != nil {
			return "", fmt.Errorf("%s: %w", path, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	return string(data), nil
}

func checkSize(n, maxBytes uint64) error {
	if maxBytes > 0 && n > maxBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, n, maxBytes)
	}

	return nil
}
