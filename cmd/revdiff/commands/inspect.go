package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/tiktoken-go/tokenizer"

	"github.com/Sumatoshi-tech/revdiff/internal/batchio"
	"github.com/Sumatoshi-tech/revdiff/internal/render"
	"github.com/Sumatoshi-tech/revdiff/pkg/dedupe"
	"github.com/Sumatoshi-tech/revdiff/pkg/document"
	"github.com/Sumatoshi-tech/revdiff/pkg/lang"
	"github.com/Sumatoshi-tech/revdiff/pkg/observability"
	"github.com/Sumatoshi-tech/revdiff/pkg/textstats"
)

// ErrNoPatterns is returned by search without any --pattern.
var ErrNoPatterns = errors.New("at least one --pattern is required")

// readOne opens a session and reads a single input.
func (g *globalFlags) readOne(cmd *cobra.Command, path string) (*session, string, error) {
	s, err := g.open(cmd, observability.ModeCLI)
	if err != nil {
		return nil, "", err
	}

	texts, err := s.readInputs(cmd, path)
	if err != nil {
		s.close()

		return nil, "", err
	}

	return s, texts[0], nil
}

type statsOutput struct {
	Path string `json:"path" yaml:"path"`

	textstats.FileStats `yaml:",inline"`

	CodeLines       int `json:"code_lines"       yaml:"code_lines"`
	EstimatedTokens int `json:"estimated_tokens" yaml:"estimated_tokens"`
}

func newStatsCommand(g *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats FILE",
		Short: "Count lines, words, characters and comments of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := render.ParseFormat(format, render.FormatText, render.FormatJSON, render.FormatYAML)
			if err != nil {
				return err
			}

			s, content, err := g.readOne(cmd, args[0])
			if err != nil {
				return err
			}
			defer s.close()

			stats := textstats.Stats(content)
			tokens := textstats.EstimateTokens(content)

			if f == render.FormatText {
				return render.WriteStatsText(cmd.OutOrStdout(), args[0], stats, tokens)
			}

			return render.WriteStructured(cmd.OutOrStdout(), f, statsOutput{
				Path:            args[0],
				FileStats:       stats,
				CodeLines:       stats.CodeLines(),
				EstimatedTokens: tokens,
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(render.FormatText), "output format: text, json or yaml")

	return cmd
}

func newTokensCommand(g *globalFlags) *cobra.Command {
	var (
		exact    bool
		encoding string
	)

	cmd := &cobra.Command{
		Use:   "tokens FILE",
		Short: "Estimate or count LLM tokens in a file",
		Long: `Estimate the token count of a file from its word and byte counts.

With --exact the file is tokenized with a BPE encoding instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, content, err := g.readOne(cmd, args[0])
			if err != nil {
				return err
			}
			defer s.close()

			count := textstats.EstimateTokens(content)

			if exact {
				count, err = textstats.CountTokens(content, tokenizer.Encoding(encoding))
				if err != nil {
					return err
				}
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), count)

			return err
		},
	}

	cmd.Flags().BoolVar(&exact, "exact", false, "tokenize with a BPE encoding")
	cmd.Flags().StringVar(&encoding, "encoding", string(textstats.DefaultEncoding), "BPE encoding for --exact")

	return cmd
}

func newDetectCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "detect FILE",
		Short: "Detect the programming language of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, content, err := g.readOne(cmd, args[0])
			if err != nil {
				return err
			}
			defer s.close()

			_, err = fmt.Fprintln(cmd.OutOrStdout(), lang.Detect(content, args[0]))

			return err
		},
	}
}

func newFunctionsCommand(g *globalFlags) *cobra.Command {
	var language string

	cmd := &cobra.Command{
		Use:   "functions FILE",
		Short: "List function names declared in a file",
		Long: `List function names declared in a file, in source order.

The language is detected from the file unless --language is given.
Supported: javascript, typescript, python, rust and go.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, content, err := g.readOne(cmd, args[0])
			if err != nil {
				return err
			}
			defer s.close()

			l := lang.Detect(content, args[0])
			if language != "" {
				l = lang.Parse(language)
			}

			if !lang.SupportsFunctions(l) {
				s.logger.Debug("function extraction unsupported", "language", l.String())
			}

			for _, name := range lang.ExtractFunctions(content, l) {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), name)
				if err != nil {
					return err
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "",
		"language tag, overriding detection ("+languageTags()+")")

	return cmd
}

func languageTags() string {
	tags := make([]string, len(lang.All))
	for i, l := range lang.All {
		tags[i] = l.String()
	}

	return strings.Join(tags, ", ")
}

func newSearchCommand(g *globalFlags) *cobra.Command {
	var (
		patterns []string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "search FILE",
		Short: "Count regular expression matches in a file",
		Long: `Count non-overlapping matches of each --pattern in a file.

Patterns that do not compile are reported and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(patterns) == 0 {
				return ErrNoPatterns
			}

			f, err := render.ParseFormat(format, render.FormatText, render.FormatJSON, render.FormatYAML)
			if err != nil {
				return err
			}

			s, content, err := g.readOne(cmd, args[0])
			if err != nil {
				return err
			}
			defer s.close()

			counts, errs := lang.SearchPatterns(content, patterns)
			for _, perr := range errs {
				s.logger.Warn("skipping pattern", "error", perr)
			}

			if f != render.FormatText {
				return render.WriteStructured(cmd.OutOrStdout(), f, counts)
			}

			tbl := table.NewWriter()
			tbl.SetStyle(table.StyleLight)
			tbl.AppendHeader(table.Row{"Pattern", "Matches"})

			for _, p := range dedupe.Strings(patterns) {
				if n, ok := counts[p]; ok {
					tbl.AppendRow(table.Row{p, n})
				}
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), tbl.Render())

			return err
		},
	}

	cmd.Flags().StringArrayVarP(&patterns, "pattern", "p", nil, "regular expression, repeatable")
	cmd.Flags().StringVarP(&format, "format", "f", string(render.FormatText), "output format: text, json or yaml")

	return cmd
}

func newDedupeCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dedupe [FILE]",
		Short: "Print the distinct lines of a file in first-seen order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := batchio.StdinPath
			if len(args) == 1 {
				path = args[0]
			}

			s, content, err := g.readOne(cmd, path)
			if err != nil {
				return err
			}
			defer s.close()

			lines, _ := document.SplitLines(content)
			lines = dedupe.Strings(lines)

			_, err = fmt.Fprint(cmd.OutOrStdout(), joinLines(lines))

			return err
		},
	}
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}

	return strings.Join(lines, "\n") + "\n"
}
