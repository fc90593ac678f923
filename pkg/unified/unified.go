// Package unified renders line edit scripts as unified-diff text.
package unified

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/revdiff/pkg/align"
	"github.com/Sumatoshi-tech/revdiff/pkg/document"
)

// DefaultContext is the conventional number of context lines around a change.
const DefaultContext = 3

// NoNewlineMarker follows a line that has no terminator in its document.
const NoNewlineMarker = `\ No newline at end of file`

// Options configures unified rendering.
type Options struct {
	// OldLabel and NewLabel produce "---" / "+++" file headers when either is set.
	OldLabel string
	NewLabel string
	// Context is the number of unchanged lines around each change.
	// Negative values select DefaultContext.
	Context int
}

// DefaultOptions returns options with the conventional context window.
func DefaultOptions() Options {
	return Options{Context: DefaultContext}
}

// record is one rendered line with the count of old/new lines before it.
type record struct {
	text      string
	op        align.Op
	oldBefore int
	newBefore int
	noNewline bool
}

type hunk struct {
	start, end int
}

// Format renders script, which must align oldDoc.Lines() with
// newDoc.Lines(), as unified-diff text. Identical documents render empty.
// Line bodies drop their "\n" but keep any "\r", so the hunks apply back to
// the exact bytes of both documents.
func Format(oldDoc, newDoc document.Document, script align.Script[string], opts Options) string {
	if script.IsIdentity() {
		return ""
	}

	ctx := opts.Context
	if ctx < 0 {
		ctx = DefaultContext
	}

	records := flatten(script, oldDoc.LineCount()+newDoc.LineCount())
	hunks := group(records, ctx)

	var sb strings.Builder

	if opts.OldLabel != "" || opts.NewLabel != "" {
		fmt.Fprintf(&sb, "--- %s\n+++ %s\n", opts.OldLabel, opts.NewLabel)
	}

	for _, h := range hunks {
		writeHunk(&sb, records[h.start:h.end])
	}

	return sb.String()
}

// flatten expands the script into per-line records.
func flatten(script align.Script[string], capacity int) []record {
	records := make([]record, 0, capacity)
	oldN, newN := 0, 0

	add := func(line string, op align.Op) {
		records = append(records, record{
			text:      strings.TrimSuffix(line, "\n"),
			op:        op,
			oldBefore: oldN,
			newBefore: newN,
			noNewline: !document.HasTerminator(line),
		})
	}

	for _, e := range script {
		switch e.Op {
		case align.OpEqual:
			for _, line := range e.A {
				add(line, align.OpEqual)
				oldN++
				newN++
			}
		case align.OpDelete:
			for _, line := range e.A {
				add(line, align.OpDelete)
				oldN++
			}
		case align.OpInsert:
			for _, line := range e.B {
				add(line, align.OpInsert)
				newN++
			}
		}
	}

	return records
}

// group returns record ranges around changes. Windows closer than 2*ctx
// unchanged lines merge into one hunk.
func group(records []record, ctx int) []hunk {
	var hunks []hunk

	for i, rec := range records {
		if rec.op == align.OpEqual {
			continue
		}

		start := max(0, i-ctx)
		end := min(len(records), i+ctx+1)

		if last := len(hunks) - 1; last >= 0 && start <= hunks[last].end {
			hunks[last].end = max(hunks[last].end, end)

			continue
		}

		hunks = append(hunks, hunk{start: start, end: end})
	}

	return hunks
}

func writeHunk(sb *strings.Builder, recs []record) {
	oldCount, newCount := 0, 0

	for _, rec := range recs {
		switch rec.op {
		case align.OpEqual:
			oldCount++
			newCount++
		case align.OpDelete:
			oldCount++
		case align.OpInsert:
			newCount++
		}
	}

	first := recs[0]

	fmt.Fprintf(sb, "@@ -%s +%s @@\n",
		formatRange(first.oldBefore, oldCount),
		formatRange(first.newBefore, newCount))

	for _, rec := range recs {
		switch rec.op {
		case align.OpEqual:
			sb.WriteByte(' ')
		case align.OpDelete:
			sb.WriteByte('-')
		case align.OpInsert:
			sb.WriteByte('+')
		}

		sb.WriteString(rec.text)
		sb.WriteByte('\n')

		if rec.noNewline {
			sb.WriteString(NoNewlineMarker)
			sb.WriteByte('\n')
		}
	}
}

// formatRange follows the GNU convention: a single line omits the count and
// an empty range names the line before it.
func formatRange(before, count int) string {
	switch count {
	case 0:
		return strconv.Itoa(before) + ",0"
	case 1:
		return strconv.Itoa(before + 1)
	default:
		return strconv.Itoa(before+1) + "," + strconv.Itoa(count)
	}
}
