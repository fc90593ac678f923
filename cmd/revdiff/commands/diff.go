package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/revdiff/internal/render"
	"github.com/Sumatoshi-tech/revdiff/pkg/observability"
	"github.com/Sumatoshi-tech/revdiff/pkg/textdiff"
)

// diffFlags are shared by the commands that compare two documents.
type diffFlags struct {
	threshold    int
	unified      bool
	contextLines int
	format       string
}

func (f *diffFlags) register(cmd *cobra.Command, defaultFormat string) {
	cmd.Flags().IntVarP(&f.threshold, "threshold", "t", 0, "minimum byte-length delta for a significant change (default from config)")
	cmd.Flags().BoolVarP(&f.unified, "unified", "u", false, "include a unified diff in structured output")
	cmd.Flags().IntVarP(&f.contextLines, "context", "U", 0, "unified diff context lines (default from config)")
	cmd.Flags().StringVarP(&f.format, "format", "f", defaultFormat, "output format: json, yaml or text")
}

// options merges config defaults with the flags the user set.
func (f *diffFlags) options(cmd *cobra.Command, s *session) []textdiff.Option {
	threshold := s.cfg.Diff.Threshold
	if cmd.Flags().Changed("threshold") {
		threshold = f.threshold
	}

	contextLines := s.cfg.Diff.ContextLines
	if cmd.Flags().Changed("context") {
		contextLines = f.contextLines
	}

	return []textdiff.Option{
		textdiff.WithThreshold(threshold),
		textdiff.WithContextLines(contextLines),
		textdiff.WithLimits(s.cfg.Limits),
		textdiff.WithWorkers(s.cfg.Batch.Workers),
	}
}

func newDiffCommand(g *globalFlags) *cobra.Command {
	var (
		flags  diffFlags
		inline bool
	)

	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Compare two versions of a document",
		Long: `Compare two versions of a document line by line.

Reports the change size, whether it crosses the significance threshold and
line counts. Text output shows the unified diff. Use "-" to read one side
from stdin.`,
		Args: cobra.ExactArgs(2), //nolint:mnd // OLD and NEW.
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := render.ParseFormat(flags.format, render.FormatText, render.FormatJSON, render.FormatYAML)
			if err != nil {
				return err
			}

			s, err := g.open(cmd, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer s.close()

			texts, err := s.readInputs(cmd, args[0], args[1])
			if err != nil {
				return err
			}

			opts := append(flags.options(cmd, s),
				textdiff.WithUnified(flags.unified || s.cfg.Diff.IncludeUnified || format == render.FormatText),
				textdiff.WithLabels(args[0], args[1]),
			)

			var res textdiff.DiffResult

			err = s.observe(cmd.Context(), "diff", func(context.Context) error {
				var diffErr error

				res, diffErr = textdiff.ComputeDiff(texts[0], texts[1], opts...)

				return diffErr
			})
			if err != nil {
				return err
			}

			if format != render.FormatText {
				return render.WriteStructured(cmd.OutOrStdout(), format, res)
			}

			err = render.WriteDiffText(cmd.OutOrStdout(), res)
			if err != nil || !inline {
				return err
			}

			text, err := render.InlineDiff(texts[0], texts[1], s.cfg.Limits)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)

			return err
		},
	}

	flags.register(cmd, string(render.FormatText))
	cmd.Flags().BoolVar(&inline, "inline", false, "append a character-level inline diff to text output")

	return cmd
}

func newLinesCommand(g *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "lines OLD NEW",
		Short: "List inserted and deleted lines",
		Long: `List every inserted and deleted line between two versions of a document.

Each change carries its position in the edit sequence, counting unchanged
lines. Deletions precede insertions within a replaced region.`,
		Args: cobra.ExactArgs(2), //nolint:mnd // OLD and NEW.
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := render.ParseFormat(format, render.FormatText, render.FormatJSON, render.FormatYAML)
			if err != nil {
				return err
			}

			s, err := g.open(cmd, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer s.close()

			texts, err := s.readInputs(cmd, args[0], args[1])
			if err != nil {
				return err
			}

			var changes []textdiff.LineChange

			err = s.observe(cmd.Context(), "lines", func(context.Context) error {
				var lineErr error

				changes, lineErr = textdiff.LineChanges(texts[0], texts[1], textdiff.WithLimits(s.cfg.Limits))

				return lineErr
			})
			if err != nil {
				return err
			}

			if f == render.FormatText {
				return render.WriteLineChangesText(cmd.OutOrStdout(), changes)
			}

			return render.WriteStructured(cmd.OutOrStdout(), f, changes)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(render.FormatText), "output format: text, json or yaml")

	return cmd
}

type similarityOutput struct {
	Similarity float64 `json:"similarity" yaml:"similarity"`
}

func newSimilarityCommand(g *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "similarity A B",
		Short: "Score the character-level similarity of two files",
		Long: `Score the character-level similarity of two files as
2*matches / (2*matches + insertions + deletions), in [0, 1].

Identical inputs score 1, including two empty inputs.`,
		Args: cobra.ExactArgs(2), //nolint:mnd // A and B.
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := render.ParseFormat(format, render.FormatText, render.FormatJSON, render.FormatYAML)
			if err != nil {
				return err
			}

			s, err := g.open(cmd, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer s.close()

			texts, err := s.readInputs(cmd, args[0], args[1])
			if err != nil {
				return err
			}

			var ratio float64

			err = s.observe(cmd.Context(), "similarity", func(context.Context) error {
				var simErr error

				ratio, simErr = textdiff.Similarity(texts[0], texts[1], textdiff.WithLimits(s.cfg.Limits))

				return simErr
			})
			if err != nil {
				return err
			}

			if f == render.FormatText {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", ratio)

				return err
			}

			return render.WriteStructured(cmd.OutOrStdout(), f, similarityOutput{Similarity: ratio})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(render.FormatText), "output format: text, json or yaml")

	return cmd
}
