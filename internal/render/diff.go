package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/revdiff/pkg/align"
	"github.com/Sumatoshi-tech/revdiff/pkg/safeconv"
	"github.com/Sumatoshi-tech/revdiff/pkg/textdiff"
	"github.com/Sumatoshi-tech/revdiff/pkg/textstats"
)

var (
	addColor    = color.New(color.FgGreen)
	deleteColor = color.New(color.FgRed)
	hunkColor   = color.New(color.FgCyan)
	headerColor = color.New(color.Bold)
)

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)

	return tbl
}

// WriteDiffText writes a summary table followed by the colored unified diff, if present.
func WriteDiffText(w io.Writer, res textdiff.DiffResult) error {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Summary", "Size", "Significant", "Lines +", "Lines -"})
	tbl.AppendRow(table.Row{
		res.Summary,
		humanize.Bytes(safeconv.Size(res.DiffSize)),
		res.IsSignificant,
		res.LinesAdded,
		res.LinesRemoved,
	})

	_, err := fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	if res.UnifiedDiff == nil || *res.UnifiedDiff == "" {
		return nil
	}

	_, err = fmt.Fprintln(w)
	if err != nil {
		return fmt.Errorf("write diff: %w", err)
	}

	return WriteUnified(w, *res.UnifiedDiff)
}

// WriteUnified writes unified-diff text with per-line colors.
func WriteUnified(w io.Writer, text string) error {
	for line := range strings.Lines(text) {
		line = strings.TrimSuffix(line, "\n")

		var err error

		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			_, err = headerColor.Fprintln(w, line)
		case strings.HasPrefix(line, "@@"):
			_, err = hunkColor.Fprintln(w, line)
		case strings.HasPrefix(line, "+"):
			_, err = addColor.Fprintln(w, line)
		case strings.HasPrefix(line, "-"):
			_, err = deleteColor.Fprintln(w, line)
		default:
			_, err = fmt.Fprintln(w, line)
		}

		if err != nil {
			return fmt.Errorf("write diff line: %w", err)
		}
	}

	return nil
}

// WriteLineChangesText writes one table row per changed line.
func WriteLineChangesText(w io.Writer, changes []textdiff.LineChange) error {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"#", "Kind", "Content"})

	for _, c := range changes {
		marker := addColor.Sprint("+")
		if c.Kind == textdiff.KindDelete {
			marker = deleteColor.Sprint("-")
		}

		tbl.AppendRow(table.Row{c.Position, marker + " " + string(c.Kind), c.Content})
	}

	tbl.AppendFooter(table.Row{"", "Total", strconv.Itoa(len(changes)) + " changed lines"})

	_, err := fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return fmt.Errorf("write line changes: %w", err)
	}

	return nil
}

// WriteStatsText writes file statistics and token estimates as a table.
func WriteStatsText(w io.Writer, name string, stats textstats.FileStats, tokens int) error {
	tbl := newTable()
	tbl.SetTitle(name)
	tbl.AppendHeader(table.Row{"Metric", "Value"})
	tbl.AppendRows([]table.Row{
		{"Lines", humanize.Comma(int64(stats.Lines))},
		{"Code lines", humanize.Comma(int64(stats.CodeLines()))},
		{"Comment lines", humanize.Comma(int64(stats.CommentLines))},
		{"Blank lines", humanize.Comma(int64(stats.BlankLines))},
		{"Words", humanize.Comma(int64(stats.Words))},
		{"Size", humanize.Bytes(safeconv.Size(stats.Chars))},
		{"Estimated tokens", humanize.Comma(int64(tokens))},
	})

	_, err := fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return fmt.Errorf("write stats: %w", err)
	}

	return nil
}

// InlineDiff renders a character-level diff of before and after with ANSI
// colors, using the same alignment as the similarity score.
func InlineDiff(before, after string, limits align.Limits) (string, error) {
	script, err := align.Align([]rune(before), []rune(after), limits)
	if err != nil {
		return "", fmt.Errorf("align characters: %w", err)
	}

	dmp := diffmatchpatch.New()

	return dmp.DiffPrettyText(align.RunesToDiffMatchPatch(script)), nil
}
