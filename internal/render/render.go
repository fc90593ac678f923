// Package render writes revdiff results as JSON, YAML, terminal text or
// HTML charts.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is an output encoding.
type Format string

// Output formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatText Format = "text"
	FormatPlot Format = "plot"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat validates s against allowed. An empty s selects the first allowed format.
func ParseFormat(s string, allowed ...Format) (Format, error) {
	if len(allowed) == 0 {
		allowed = []Format{FormatJSON, FormatYAML, FormatText}
	}

	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return allowed[0], nil
	}

	for _, f := range allowed {
		if Format(s) == f {
			return f, nil
		}
	}

	names := make([]string, len(allowed))
	for i, f := range allowed {
		names[i] = string(f)
	}

	return "", fmt.Errorf("%w %q (want one of %s)", ErrUnknownFormat, s, strings.Join(names, ", "))
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(v)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

// WriteYAML writes v as a YAML document.
func WriteYAML(w io.Writer, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write yaml: %w", err)
	}

	return nil
}

// WriteStructured writes v as JSON or YAML.
func WriteStructured(w io.Writer, format Format, v any) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, v)
	case FormatYAML:
		return WriteYAML(w, v)
	case FormatText, FormatPlot:
		return fmt.Errorf("%w: %s is not a structured format", ErrUnknownFormat, format)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}
