package safeconv_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/revdiff/pkg/safeconv"
)

func TestSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(0), safeconv.Size(0))
	assert.Equal(t, uint64(42), safeconv.Size(42))
	assert.Equal(t, uint64(0), safeconv.Size(-1))
	assert.Equal(t, uint64(math.MaxInt64), safeconv.Size(int64(math.MaxInt64)))
	assert.Equal(t, uint64(0), safeconv.Size(int64(math.MinInt64)))
}

func TestInt64(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(0), safeconv.Int64(0))
	assert.Equal(t, int64(1<<40), safeconv.Int64(1<<40))
	assert.Equal(t, int64(math.MaxInt64), safeconv.Int64(math.MaxInt64))
	assert.Equal(t, int64(math.MaxInt64), safeconv.Int64(math.MaxUint64))
}
