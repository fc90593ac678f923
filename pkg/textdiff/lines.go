package textdiff

import (
	"github.com/Sumatoshi-tech/revdiff/pkg/align"
	"github.com/Sumatoshi-tech/revdiff/pkg/document"
)

// ChangeKind is the direction of a changed line.
type ChangeKind string

// Change kinds.
const (
	KindInsert ChangeKind = "insert"
	KindDelete ChangeKind = "delete"
)

// LineChange is one inserted or deleted line.
//
// Position is 1-based and advances on every line of the edit script,
// equal lines included, even though equal lines are not reported. It is
// therefore an index into the interleaved diff, not a line number of
// either document.
type LineChange struct {
	Position int        `json:"line_number" yaml:"line_number"`
	Kind     ChangeKind `json:"change_type" yaml:"change_type"`
	Content  string     `json:"content"     yaml:"content"`
}

// LineChanges lists the inserted and deleted lines between before and
// after, in edit-script order with deletions ahead of insertions.
func LineChanges(before, after string, opts ...Option) ([]LineChange, error) {
	script, err := Script(before, after, opts...)
	if err != nil {
		return nil, err
	}

	return fromScript(script), nil
}

func fromScript(script align.Script[string]) []LineChange {
	changes := make([]LineChange, 0, script.Distance())
	position := 0

	for _, e := range script {
		switch e.Op {
		case align.OpEqual:
			position += len(e.A)
		case align.OpDelete:
			for _, line := range e.A {
				position++
				changes = append(changes, LineChange{Position: position, Kind: KindDelete, Content: document.StripTerminator(line)})
			}
		case align.OpInsert:
			for _, line := range e.B {
				position++
				changes = append(changes, LineChange{Position: position, Kind: KindInsert, Content: document.StripTerminator(line)})
			}
		}
	}

	return changes
}
