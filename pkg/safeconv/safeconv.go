// Package safeconv converts between signed and unsigned integer widths,
// saturating at the bounds of the target type instead of wrapping.
package safeconv

import "math"

// Size converts a non-negative count such as a byte length to uint64.
// Negative values saturate to 0.
func Size[T ~int | ~int64](v T) uint64 {
	if v < 0 {
		return 0
	}

	return uint64(v)
}

// Int64 converts v to int64, saturating at math.MaxInt64.
func Int64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}

	return int64(v)
}
