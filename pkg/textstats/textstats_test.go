package textstats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tiktoken-go/tokenizer"

	"github.com/Sumatoshi-tech/revdiff/pkg/textstats"
)

func TestStats(t *testing.T) {
	t.Parallel()

	content := "package main\n\n// comment here\n# shell\n  /* block */\nfunc main() {}\n"

	got := textstats.Stats(content)

	assert.Equal(t, textstats.FileStats{
		Lines:        6,
		Chars:        len(content),
		Words:        13,
		BlankLines:   1,
		CommentLines: 3,
	}, got)
	assert.Equal(t, 2, got.CodeLines())
}

func TestStats_Empty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, textstats.FileStats{}, textstats.Stats(""))
}

func TestStats_CRLFAndNoTrailingNewline(t *testing.T) {
	t.Parallel()

	got := textstats.Stats("a b\r\n\r\nc")

	assert.Equal(t, 3, got.Lines)
	assert.Equal(t, 1, got.BlankLines)
	assert.Equal(t, 3, got.Words)
	assert.Equal(t, 8, got.Chars)
}

func TestEstimateTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		// (1*1.3 + 5/4) / 2 = 1.275
		{"hello", 2},
		// (2*1.3 + 11/4) / 2 = 2.675
		{"hello world", 3},
		// (0 + 4/4) / 2 = 0.5
		{"    ", 1},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, textstats.EstimateTokens(tc.text), tc.text)
	}
}

func TestCountTokens(t *testing.T) {
	t.Parallel()

	count, err := textstats.CountTokens("hello world", "")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = textstats.CountTokens("", tokenizer.O200kBase)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = textstats.CountTokens("x", tokenizer.Encoding("no_such_encoding"))
	require.Error(t, err)
}
