// Package align computes minimal edit scripts between two token sequences.
//
// The search is Myers' O((N+M)D) shortest-edit-script algorithm. Only
// insertions and deletions are produced; substitutions appear as a Delete
// run followed by an Insert run. When the Myers trace would exceed its
// memory budget, an LCS table is used instead, provided the table itself
// fits under its own budget. Inputs that fit neither are rejected with
// ErrResourceExceeded.
package align

import (
	"errors"
	"fmt"
)

// ErrResourceExceeded is returned when an input pair is too large for the bounded alignment paths.
var ErrResourceExceeded = errors.New("alignment resource limit exceeded")

// Default resource limits.
const (
	DefaultMaxTokens     = 4_000_000
	DefaultMaxTraceCells = 8_000_000
	DefaultMaxTableCells = 16_000_000
)

// Limits bounds the memory used by a single alignment.
// Zero fields are replaced by the package defaults.
type Limits struct {
	// MaxTokens is the maximum combined length N+M of the two sequences.
	MaxTokens int `mapstructure:"max_tokens"`
	// MaxTraceCells is the maximum number of V-array cells the Myers trace may hold.
	MaxTraceCells int `mapstructure:"max_trace_cells"`
	// MaxTableCells is the maximum N*M for the LCS table fallback.
	MaxTableCells int `mapstructure:"max_table_cells"`
}

// DefaultLimits returns the package default limits.
func DefaultLimits() Limits {
	return Limits{
		MaxTokens:     DefaultMaxTokens,
		MaxTraceCells: DefaultMaxTraceCells,
		MaxTableCells: DefaultMaxTableCells,
	}
}

func (l Limits) normalized() Limits {
	if l.MaxTokens <= 0 {
		l.MaxTokens = DefaultMaxTokens
	}

	if l.MaxTraceCells <= 0 {
		l.MaxTraceCells = DefaultMaxTraceCells
	}

	if l.MaxTableCells <= 0 {
		l.MaxTableCells = DefaultMaxTableCells
	}

	return l
}

// Align returns a minimal edit script transforming a into b.
//
// When several minimal scripts exist the result is the one produced by the
// canonical Myers trace-back, with every contiguous change run reordered so
// that its deletions precede its insertions. The LCS table fallback is
// minimal and applies the same reordering, but may pick a different minimal
// script. For a given input and Limits the result is deterministic.
func Align[T comparable](a, b []T, limits Limits) (Script[T], error) {
	limits = limits.normalized()

	if total := len(a) + len(b); total > limits.MaxTokens {
		return nil, fmt.Errorf("%w: %d tokens (max %d)", ErrResourceExceeded, total, limits.MaxTokens)
	}

	prefix := commonPrefix(a, b)
	suffix := commonSuffix(a[prefix:], b[prefix:])

	midA := a[prefix : len(a)-suffix]
	midB := b[prefix : len(b)-suffix]

	var ops []Op

	switch {
	case len(midA) == 0 && len(midB) == 0:
	case len(midA) == 0:
		ops = repeatOp(OpInsert, len(midB))
	case len(midB) == 0:
		ops = repeatOp(OpDelete, len(midA))
	default:
		var ok bool

		ops, ok = myers(midA, midB, limits.MaxTraceCells)
		if !ok {
			cells := len(midA) * len(midB)
			if cells > limits.MaxTableCells {
				return nil, fmt.Errorf("%w: %dx%d change region", ErrResourceExceeded, len(midA), len(midB))
			}

			ops = lcsTable(midA, midB)
		}
	}

	normalizeRuns(ops)

	return buildScript(a, b, prefix, suffix, ops), nil
}

func commonPrefix[T comparable](a, b []T) int {
	n := min(len(a), len(b))

	for i := range n {
		if a[i] != b[i] {
			return i
		}
	}

	return n
}

func commonSuffix[T comparable](a, b []T) int {
	n := min(len(a), len(b))

	for i := range n {
		if a[len(a)-1-i] != b[len(b)-1-i] {
			return i
		}
	}

	return n
}

func repeatOp(op Op, n int) []Op {
	ops := make([]Op, n)
	for i := range ops {
		ops[i] = op
	}

	return ops
}

// normalizeRuns reorders every maximal run of non-equal ops so that all
// deletions come first. Both orders consume the same A and B ranges, so the
// script stays valid and minimal.
func normalizeRuns(ops []Op) {
	for start := 0; start < len(ops); {
		if ops[start] == OpEqual {
			start++

			continue
		}

		end := start
		deletes := 0

		for end < len(ops) && ops[end] != OpEqual {
			if ops[end] == OpDelete {
				deletes++
			}

			end++
		}

		for i := start; i < end; i++ {
			if i-start < deletes {
				ops[i] = OpDelete
			} else {
				ops[i] = OpInsert
			}
		}

		start = end
	}
}

// buildScript merges per-token ops of the middle region into spans and
// wraps them with the common prefix and suffix.
func buildScript[T any](a, b []T, prefix, suffix int, ops []Op) Script[T] {
	script := make(Script[T], 0, initialScriptCapacity)

	if prefix > 0 {
		script = append(script, Edit[T]{Op: OpEqual, A: a[:prefix], B: b[:prefix]})
	}

	ai, bi := prefix, prefix

	for i := 0; i < len(ops); {
		op := ops[i]
		j := i

		for j < len(ops) && ops[j] == op {
			j++
		}

		n := j - i

		switch op {
		case OpEqual:
			script = append(script, Edit[T]{Op: OpEqual, A: a[ai : ai+n], B: b[bi : bi+n]})
			ai += n
			bi += n
		case OpDelete:
			script = append(script, Edit[T]{Op: OpDelete, A: a[ai : ai+n]})
			ai += n
		case OpInsert:
			script = append(script, Edit[T]{Op: OpInsert, B: b[bi : bi+n]})
			bi += n
		}

		i = j
	}

	if suffix > 0 {
		tail := Edit[T]{Op: OpEqual, A: a[len(a)-suffix:], B: b[len(b)-suffix:]}

		if last := len(script) - 1; last >= 0 && script[last].Op == OpEqual {
			script[last].A = a[len(a)-suffix-len(script[last].A):]
			script[last].B = b[len(b)-suffix-len(script[last].B):]
		} else {
			script = append(script, tail)
		}
	}

	return script
}
