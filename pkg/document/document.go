// Package document turns raw text into immutable token sequences for alignment.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// BinarySniffLength is the maximum number of bytes scanned for null-byte
// detection. Matches the heuristic used by Git and most editors.
const BinarySniffLength = 8000

// Sentinel encoding errors.
var (
	// ErrInvalidEncoding indicates the input is not valid UTF-8.
	ErrInvalidEncoding = errors.New("input is not valid UTF-8 text")
	// ErrBinaryContent indicates the input looks like binary data.
	ErrBinaryContent = errors.New("input looks like binary content")
)

// Document is an immutable view of a text split into lines. Each line keeps
// its terminator, so lines that differ only in "\n" versus "\r\n", or in a
// missing final newline, compare unequal.
type Document struct {
	text  string
	lines []string
}

// New validates text and splits it into terminated lines.
func New(text string) (Document, error) {
	err := Validate(text)
	if err != nil {
		return Document{}, err
	}

	return Document{text: text, lines: SplitTerminated(text)}, nil
}

// Validate checks that text is valid UTF-8 and does not look binary.
func Validate(text string) error {
	if !utf8.ValidString(text) {
		offset := invalidOffset(text)

		return fmt.Errorf("%w: invalid byte at offset %d", ErrInvalidEncoding, offset)
	}

	if IsBinary([]byte(text)) {
		return ErrBinaryContent
	}

	return nil
}

// IsBinary returns true if data contains a null byte within the first
// BinarySniffLength bytes. Empty data is not binary.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}

	sniff := data
	if len(sniff) > BinarySniffLength {
		sniff = sniff[:BinarySniffLength]
	}

	return bytes.IndexByte(sniff, 0) >= 0
}

// SplitLines splits text on "\n", strips a trailing "\r" from each line and
// reports whether the final line had no terminator. A trailing terminator
// does not produce an empty final line.
func SplitLines(text string) (lines []string, missingNewline bool) {
	if text == "" {
		return nil, false
	}

	lines = strings.Split(text, "\n")

	if last := len(lines) - 1; lines[last] == "" {
		lines = lines[:last]
	} else {
		missingNewline = true
	}

	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}

	return lines, missingNewline
}

// SplitTerminated splits text after every "\n". The last line has no
// terminator when text does not end with one; a trailing terminator does not
// produce an empty final line.
func SplitTerminated(text string) []string {
	if text == "" {
		return nil
	}

	lines := strings.SplitAfter(text, "\n")
	if last := len(lines) - 1; lines[last] == "" {
		lines = lines[:last]
	}

	return lines
}

// StripTerminator removes a trailing "\n" or "\r\n" from line.
func StripTerminator(line string) string {
	line, ok := strings.CutSuffix(line, "\n")
	if !ok {
		return line
	}

	return strings.TrimSuffix(line, "\r")
}

// HasTerminator reports whether line ends with "\n".
func HasTerminator(line string) bool {
	return strings.HasSuffix(line, "\n")
}

// Text returns the original text.
func (d Document) Text() string { return d.text }

// Lines returns the terminated line tokens. Callers must not modify the slice.
func (d Document) Lines() []string { return d.lines }

// LineCount returns the number of lines.
func (d Document) LineCount() int { return len(d.lines) }

// Len returns the length of the text in bytes.
func (d Document) Len() int { return len(d.text) }

// MissingFinalNewline reports whether the last line has no terminator.
func (d Document) MissingFinalNewline() bool {
	return len(d.lines) > 0 && !HasTerminator(d.lines[len(d.lines)-1])
}

func invalidOffset(text string) int {
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}

		i += size
	}

	return len(text)
}
