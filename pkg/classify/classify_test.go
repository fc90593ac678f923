package classify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/revdiff/pkg/align"
	"github.com/Sumatoshi-tech/revdiff/pkg/classify"
)

func TestClassify_SameLengthSubstitution(t *testing.T) {
	t.Parallel()

	script, err := align.Align([]string{"a", "b", "c"}, []string{"a", "x", "c"}, align.Limits{})
	require.NoError(t, err)

	got := classify.Classify(script, 6, 6, 1)

	assert.Equal(t, 1, got.LinesAdded)
	assert.Equal(t, 1, got.LinesRemoved)
	assert.Equal(t, 0, got.DiffSize)
	assert.False(t, got.IsSignificant)
	assert.Equal(t, "no change", got.Summary)
}

func TestClassify_Growth(t *testing.T) {
	t.Parallel()

	script, err := align.Align([]string{"a"}, []string{"a", "bbbbbbbbbbbb"}, align.Limits{})
	require.NoError(t, err)

	got := classify.Classify(script, 2, 15, classify.DefaultThreshold)

	assert.Equal(t, 13, got.DiffSize)
	assert.Equal(t, 13, got.CharsAdded)
	assert.Equal(t, 0, got.CharsDeleted)
	assert.True(t, got.IsSignificant)
	assert.Equal(t, "+13 chars", got.Summary)
	assert.Equal(t, 1, got.LinesAdded)
	assert.Equal(t, 0, got.LinesRemoved)
}

func TestClassify_Shrink(t *testing.T) {
	t.Parallel()

	got := classify.Classify(align.Script[string]{}, 20, 15, classify.DefaultThreshold)

	assert.Equal(t, 5, got.DiffSize)
	assert.Equal(t, 5, got.CharsDeleted)
	assert.Equal(t, 0, got.CharsAdded)
	assert.False(t, got.IsSignificant)
	assert.Equal(t, "-5 chars", got.Summary)
}

func TestClassify_ThresholdMonotonic(t *testing.T) {
	t.Parallel()

	script := align.Script[string]{}
	previous := true

	for threshold := 0; threshold <= 30; threshold++ {
		got := classify.Classify(script, 10, 22, threshold)
		if !previous {
			assert.False(t, got.IsSignificant, "threshold %d flipped back to significant", threshold)
		}

		previous = got.IsSignificant
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "+3 chars", classify.Summary(3, 0))
	assert.Equal(t, "-4 chars", classify.Summary(0, 4))
	assert.Equal(t, "no change", classify.Summary(0, 0))
}
