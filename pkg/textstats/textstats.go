// Package textstats counts lines, words and tokens of a text document.
package textstats

import (
	"fmt"
	"math"
	"strings"

	"github.com/tiktoken-go/tokenizer"

	"github.com/Sumatoshi-tech/revdiff/pkg/document"
)

// DefaultEncoding is the tokenizer used when CountTokens is given no encoding.
const DefaultEncoding = tokenizer.Cl100kBase

// Token estimate weights.
const (
	wordWeight    = 1.3
	charsPerToken = 4.0
)

var commentPrefixes = []string{"//", "#", "/*"}

// FileStats is a single-pass summary of a text document.
type FileStats struct {
	Lines        int `json:"lines"         yaml:"lines"`
	Chars        int `json:"chars"         yaml:"chars"`
	Words        int `json:"words"         yaml:"words"`
	BlankLines   int `json:"blank_lines"   yaml:"blank_lines"`
	CommentLines int `json:"comment_lines" yaml:"comment_lines"`
}

// CodeLines returns the lines that are neither blank nor comments.
func (s FileStats) CodeLines() int {
	return s.Lines - s.BlankLines - s.CommentLines
}

// Stats classifies every trimmed line as blank, comment or code.
// Chars counts bytes.
func Stats(content string) FileStats {
	lines, _ := document.SplitLines(content)

	stats := FileStats{Lines: len(lines), Chars: len(content)}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			stats.BlankLines++
		case isComment(trimmed):
			stats.CommentLines++
		}

		stats.Words += len(strings.Fields(trimmed))
	}

	return stats
}

func isComment(trimmed string) bool {
	for _, prefix := range commentPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}

	return false
}

// EstimateTokens approximates a token count as the mean of 1.3 tokens per
// word and one token per four bytes, rounded up.
func EstimateTokens(text string) int {
	words := float64(len(strings.Fields(text)))
	chars := float64(len(text))

	return int(math.Ceil((words*wordWeight + chars/charsPerToken) / 2.0))
}

// CountTokens counts tokens exactly with a BPE encoding such as
// "cl100k_base" or "o200k_base". An empty encoding selects DefaultEncoding.
func CountTokens(text string, encoding tokenizer.Encoding) (int, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}

	enc, err := tokenizer.Get(encoding)
	if err != nil {
		return 0, fmt.Errorf("tokenizer %s: %w", encoding, err)
	}

	count, err := enc.Count(text)
	if err != nil {
		return 0, fmt.Errorf("count tokens: %w", err)
	}

	return count, nil
}
