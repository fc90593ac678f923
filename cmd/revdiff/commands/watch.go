package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/revdiff/internal/render"
	"github.com/Sumatoshi-tech/revdiff/internal/watch"
	"github.com/Sumatoshi-tech/revdiff/pkg/observability"
	"github.com/Sumatoshi-tech/revdiff/pkg/textdiff"
)

func newWatchCommand(g *globalFlags) *cobra.Command {
	var (
		flags    diffFlags
		debounce time.Duration
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "watch FILE...",
		Short: "Report changes to files as they are saved",
		Long: `Watch files and print one line per saved revision, diffed against the
previous revision of the same file.

Only significant changes are printed unless --all is set. With --format json
each revision is written as one JSON object per line. When --metrics-addr or
telemetry.metrics_addr is set a Prometheus /metrics endpoint is served while
watching.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := render.ParseFormat(flags.format, render.FormatText, render.FormatJSON)
			if err != nil {
				return err
			}

			s, err := g.open(cmd, observability.ModeWatch)
			if err != nil {
				return err
			}
			defer s.close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			metricsDone, err := s.serveMetrics(ctx)
			if err != nil {
				return err
			}

			opts := append(flags.options(cmd, s), textdiff.WithUnified(flags.unified || s.cfg.Diff.IncludeUnified))

			w, err := watch.New(args, watch.Options{
				Debounce: debounce,
				MaxBytes: s.maxBytes,
				Diff:     opts,
				Logger:   s.logger,
			})
			if err != nil {
				return err
			}
			defer w.Close()

			s.logger.InfoContext(ctx, "watching", "files", len(args))

			out := cmd.OutOrStdout()

			err = w.Run(ctx, func(e watch.Event) error {
				s.providers.Metrics.RecordDiff(ctx, "watch", nil, e.Elapsed)

				if !all && !e.Result.IsSignificant {
					s.logger.DebugContext(ctx, "insignificant revision", "path", e.Path, "summary", e.Result.Summary)

					return nil
				}

				return writeWatchEvent(out, format, e)
			})

			cancel()

			return joinServeErr(err, metricsDone)
		},
	}

	flags.register(cmd, string(render.FormatText))
	cmd.Flags().Lookup("format").Usage = "output format: text or json"
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before a change is diffed")
	cmd.Flags().BoolVar(&all, "all", false, "also print insignificant changes")
	g.registerMetricsAddr(cmd)

	return cmd
}

func writeWatchEvent(w io.Writer, format render.Format, e watch.Event) error {
	if format == render.FormatJSON {
		return json.NewEncoder(w).Encode(e)
	}

	marker := color.GreenString("*")
	if !e.Result.IsSignificant {
		marker = " "
	}

	_, err := fmt.Fprintf(w, "%s %s %s: %s (+%d/-%d lines)\n",
		marker, e.Time.Format(time.TimeOnly), e.Path, e.Result.Summary, e.Result.LinesAdded, e.Result.LinesRemoved)
	if err != nil {
		return err
	}

	if e.Result.UnifiedDiff != nil {
		return render.WriteUnified(w, *e.Result.UnifiedDiff)
	}

	return nil
}

// serveMetrics starts the Prometheus endpoint when one is configured. The
// returned channel yields the server result after ctx is done; it is nil
// when nothing is served.
func (s *session) serveMetrics(ctx context.Context) (<-chan error, error) {
	if s.providers.MetricsHandler == nil {
		return nil, nil
	}

	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", s.cfg.Telemetry.MetricsAddr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics: %w", err)
	}

	done := make(chan error, 1)

	go func() {
		done <- observability.ServeMetrics(ctx, ln, s.providers.MetricsHandler, s.logger)
	}()

	return done, nil
}

func joinServeErr(err error, metricsDone <-chan error) error {
	if metricsDone == nil {
		return err
	}

	serveErr := <-metricsDone
	if err != nil {
		return err
	}

	return serveErr
}
