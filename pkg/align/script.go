package align

import "github.com/sergi/go-diff/diffmatchpatch"

const (
	initialScriptCapacity = 8
	initialTraceCapacity  = 16
)

// Op is an edit operation from the old sequence to the new one.
type Op int

const (
	// OpEqual means the tokens are present in both sequences.
	OpEqual Op = iota
	// OpInsert means the tokens were added in the new sequence.
	OpInsert
	// OpDelete means the tokens were removed from the old sequence.
	OpDelete
)

// String returns the lower-case name of the op.
func (o Op) String() string {
	switch o {
	case OpEqual:
		return "equal"
	case OpInsert:
		return "insert"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Edit is a contiguous span of a single op.
//   - OpEqual: A and B hold the same tokens.
//   - OpDelete: A holds the removed tokens, B is nil.
//   - OpInsert: B holds the added tokens, A is nil.
type Edit[T any] struct {
	Op Op
	A  []T
	B  []T
}

// Len returns the number of tokens the span covers.
func (e Edit[T]) Len() int {
	if e.Op == OpInsert {
		return len(e.B)
	}

	return len(e.A)
}

// Script is an ordered list of spans covering both sequences end to end.
//
// Invariants:
//   - concat(A of OpEqual and OpDelete spans) == old sequence
//   - concat(B of OpEqual and OpInsert spans) == new sequence
//   - adjacent spans never share an op
type Script[T any] []Edit[T]

// Reconstruct rebuilds both input sequences from the script.
func (s Script[T]) Reconstruct() (a, b []T) {
	for _, e := range s {
		switch e.Op {
		case OpEqual:
			a = append(a, e.A...)
			b = append(b, e.B...)
		case OpDelete:
			a = append(a, e.A...)
		case OpInsert:
			b = append(b, e.B...)
		}
	}

	return a, b
}

// Counts returns the number of equal, inserted and deleted tokens.
func (s Script[T]) Counts() (equal, inserted, deleted int) {
	for _, e := range s {
		switch e.Op {
		case OpEqual:
			equal += len(e.A)
		case OpInsert:
			inserted += len(e.B)
		case OpDelete:
			deleted += len(e.A)
		}
	}

	return equal, inserted, deleted
}

// Distance returns the number of inserted plus deleted tokens.
func (s Script[T]) Distance() int {
	_, ins, del := s.Counts()

	return ins + del
}

// IsIdentity reports whether the script contains no changes.
func (s Script[T]) IsIdentity() bool {
	for _, e := range s {
		if e.Op != OpEqual {
			return false
		}
	}

	return true
}

// RunesToDiffMatchPatch converts a character script into diffmatchpatch diffs.
func RunesToDiffMatchPatch(s Script[rune]) []diffmatchpatch.Diff {
	diffs := make([]diffmatchpatch.Diff, 0, len(s))

	for _, e := range s {
		tokens := e.A
		if e.Op == OpInsert {
			tokens = e.B
		}

		diffs = append(diffs, diffmatchpatch.Diff{Type: dmpType(e.Op), Text: string(tokens)})
	}

	return diffs
}

func dmpType(op Op) diffmatchpatch.Operation {
	switch op {
	case OpInsert:
		return diffmatchpatch.DiffInsert
	case OpDelete:
		return diffmatchpatch.DiffDelete
	default:
		return diffmatchpatch.DiffEqual
	}
}
