// Package classify turns an edit script into change counts, a significance
// verdict and a one-line summary.
package classify

import (
	"strconv"

	"github.com/Sumatoshi-tech/revdiff/pkg/align"
)

// DefaultThreshold is the default minimum byte-length delta for a significant change.
const DefaultThreshold = 10

// SummaryNoChange is the summary for equal-length inputs.
const SummaryNoChange = "no change"

// Classification holds the counts derived from a line edit script.
//
// CharsAdded and CharsDeleted are the clamped byte-length delta of the two
// documents, not a per-character tally.
type Classification struct {
	Summary       string
	DiffSize      int
	LinesAdded    int
	LinesRemoved  int
	CharsAdded    int
	CharsDeleted  int
	IsSignificant bool
}

// Classify derives a Classification from a line script and the byte
// lengths of both documents.
func Classify[T any](script align.Script[T], lenA, lenB, threshold int) Classification {
	_, inserted, deleted := script.Counts()

	delta := lenB - lenA
	size := max(delta, -delta)

	added := max(0, delta)
	removed := max(0, -delta)

	return Classification{
		Summary:       Summary(added, removed),
		DiffSize:      size,
		LinesAdded:    inserted,
		LinesRemoved:  deleted,
		CharsAdded:    added,
		CharsDeleted:  removed,
		IsSignificant: size >= threshold,
	}
}

// Summary renders "+N chars", "-N chars" or "no change".
func Summary(charsAdded, charsDeleted int) string {
	switch {
	case charsAdded > 0:
		return "+" + strconv.Itoa(charsAdded) + " chars"
	case charsDeleted > 0:
		return "-" + strconv.Itoa(charsDeleted) + " chars"
	default:
		return SummaryNoChange
	}
}
