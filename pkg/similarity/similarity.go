// Package similarity scores how much of two texts is shared, in [0, 1].
package similarity

import (
	"github.com/Sumatoshi-tech/revdiff/pkg/align"
)

// Ratio aligns a and b by code point and returns 2*matched / (len(a)+len(b)).
// Two empty strings are identical (1.0).
func Ratio(a, b string, limits align.Limits) (float64, error) {
	if a == b {
		return 1.0, nil
	}

	script, err := align.Align([]rune(a), []rune(b), limits)
	if err != nil {
		return 0, err
	}

	return ScriptRatio(script), nil
}

// ScriptRatio computes the matched ratio from an existing script.
func ScriptRatio[T any](script align.Script[T]) float64 {
	equal, inserted, deleted := script.Counts()

	total := 2*equal + inserted + deleted
	if total == 0 {
		return 1.0
	}

	ratio := float64(2*equal) / float64(total)

	return min(1.0, max(0.0, ratio))
}
