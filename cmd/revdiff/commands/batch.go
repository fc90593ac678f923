package commands

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/revdiff/internal/batchio"
	"github.com/Sumatoshi-tech/revdiff/internal/render"
	"github.com/Sumatoshi-tech/revdiff/pkg/observability"
	"github.com/Sumatoshi-tech/revdiff/pkg/textdiff"
)

func newBatchCommand(g *globalFlags) *cobra.Command {
	var (
		flags   diffFlags
		workers int
	)

	cmd := &cobra.Command{
		Use:   "batch MANIFEST",
		Short: "Compare many document pairs in parallel",
		Long: `Compare every pair listed in a JSON or YAML manifest on a worker pool.

Manifest shape:
  threshold: 10          # optional
  pairs:
    - name: readme       # optional label
      before_path: old/README.md
      after_path: new/README.md
    - before: "inline text"
      after: "inline text, edited"

Relative paths resolve against the manifest directory. A ".lz4" suffix is
decompressed first; "-" reads the manifest from stdin. Results keep manifest
order and a failing pair is reported without affecting the others.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := render.ParseFormat(flags.format,
				render.FormatJSON, render.FormatYAML, render.FormatText, render.FormatPlot)
			if err != nil {
				return err
			}

			s, err := g.open(cmd, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer s.close()

			manifest, err := batchio.Load(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			pairs, names := manifest.Resolve(s.maxBytes)

			threshold := s.cfg.Diff.Threshold
			if manifest.Threshold != nil {
				threshold = *manifest.Threshold
			}

			if cmd.Flags().Changed("threshold") {
				threshold = flags.threshold
			}

			opts := append(flags.options(cmd, s),
				textdiff.WithThreshold(threshold),
				textdiff.WithUnified(flags.unified || s.cfg.Diff.IncludeUnified),
				textdiff.WithObserver(s.providers.Metrics.Observer(cmd.Context(), "batch.item")),
			)

			if cmd.Flags().Changed("workers") {
				opts = append(opts, textdiff.WithWorkers(workers))
			}

			report, err := runBatch(cmd.Context(), s, pairs, names, threshold, opts)
			if err != nil {
				return err
			}

			switch format {
			case render.FormatText:
				return render.WriteBatchText(cmd.OutOrStdout(), report)
			case render.FormatPlot:
				return render.WriteBatchPlot(cmd.OutOrStdout(), report)
			default:
				return render.WriteStructured(cmd.OutOrStdout(), format, report)
			}
		},
	}

	flags.register(cmd, string(render.FormatJSON))
	cmd.Flags().Lookup("format").Usage = "output format: json, yaml, text or plot"
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "worker pool size, 0 for one per CPU (default from config)")

	return cmd
}

func runBatch(
	ctx context.Context, s *session, pairs []textdiff.Pair, names []string, threshold int, opts []textdiff.Option,
) (render.BatchReport, error) {
	runID := uuid.NewString()
	ctx = observability.WithRunID(observability.WithOp(ctx, "batch"), runID)

	done := s.providers.Metrics.TrackBatch(ctx)
	defer done()

	s.logger.InfoContext(ctx, "batch started", "pairs", len(pairs))

	start := time.Now()

	var items []textdiff.BatchItem

	err := s.observe(ctx, "batch", func(ctx context.Context) error {
		items = textdiff.BatchComputeDiff(ctx, pairs, opts...)

		return nil
	})
	if err != nil {
		return render.BatchReport{}, err
	}

	report := render.NewBatchReport(runID, threshold, names, items)

	for _, rec := range report.Items {
		if rec.Error != "" {
			s.logger.WarnContext(ctx, "batch item failed", "index", rec.Index, "name", rec.Name, "error", rec.Error)
		}
	}

	s.logger.InfoContext(ctx, "batch finished",
		"pairs", report.Summary.Total,
		"failed", report.Summary.Failed,
		"significant", report.Summary.Significant,
		"elapsed", time.Since(start),
	)

	return report, nil
}
