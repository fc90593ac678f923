// Package commands implements the revdiff CLI commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/codes"

	"github.com/Sumatoshi-tech/revdiff/internal/batchio"
	"github.com/Sumatoshi-tech/revdiff/pkg/config"
	"github.com/Sumatoshi-tech/revdiff/pkg/observability"
	"github.com/Sumatoshi-tech/revdiff/pkg/safeconv"
	"github.com/Sumatoshi-tech/revdiff/pkg/version"
)

const spanPrefix = "revdiff."

// ErrStdinTwice is returned when more than one input names stdin.
var ErrStdinTwice = errors.New("stdin can be used for only one input")

type globalFlags struct {
	configPath string
	verbose    bool
	logJSON    bool
	noColor    bool
	// metricsAddr overrides telemetry.metrics_addr for long-running modes.
	metricsAddr string
}

func (g *globalFlags) registerMetricsAddr(cmd *cobra.Command) {
	cmd.Flags().StringVar(&g.metricsAddr, "metrics-addr", "",
		"serve Prometheus metrics on this address, e.g. :9464 (overrides config)")
}

// NewRootCommand builds the revdiff command tree.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "revdiff",
		Short: "revdiff - document revision diffing and change classification",
		Long: `revdiff compares versions of text documents, classifies the change,
renders unified diffs and scores similarity.

Commands:
  diff        Compare two files
  lines       List inserted and deleted lines
  similarity  Score character-level similarity
  batch       Compare many pairs from a manifest in parallel
  watch       Report changes to files as they are saved
  mcp         Serve the engine as MCP tools on stdio`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if g.noColor && !color.NoColor {
				color.NoColor = true //nolint:reassign // intentional override of library global
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "config file (default: ./revdiff.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&g.logJSON, "log-json", false, "log as JSON")
	rootCmd.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(
		newDiffCommand(g),
		newLinesCommand(g),
		newSimilarityCommand(g),
		newBatchCommand(g),
		newStatsCommand(g),
		newTokensCommand(g),
		newDetectCommand(g),
		newFunctionsCommand(g),
		newSearchCommand(g),
		newDedupeCommand(g),
		newWatchCommand(g),
		newMCPCommand(g),
		versionCmd(),
	)

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// session bundles the configuration and telemetry of one command run.
type session struct {
	cfg       *config.Config
	maxBytes  uint64
	providers observability.Providers
	logger    *slog.Logger
}

func (g *globalFlags) open(cmd *cobra.Command, mode observability.AppMode) (*session, error) {
	cfg, err := config.LoadConfig(g.configPath)
	if err != nil {
		return nil, err
	}

	if g.metricsAddr != "" {
		cfg.Telemetry.MetricsAddr = g.metricsAddr
	}

	maxBytes, err := cfg.MaxInputBytes()
	if err != nil {
		return nil, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	obsCfg.LogJSON = cfg.Logging.JSON || g.logJSON
	obsCfg.LogOutput = cmd.ErrOrStderr()

	if obsCfg.OTLPEndpoint == "" {
		obsCfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}

	if mode != observability.ModeCLI {
		obsCfg.PrometheusAddr = cfg.Telemetry.MetricsAddr
	}

	obsCfg.LogLevel, err = observability.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	if g.verbose {
		obsCfg.LogLevel = slog.LevelDebug
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	return &session{cfg: cfg, maxBytes: maxBytes, providers: providers, logger: providers.Logger}, nil
}

// observe runs fn inside a span and records it as one diff operation.
func (s *session) observe(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := s.providers.Tracer.Start(observability.WithOp(ctx, op), spanPrefix+op)
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	s.providers.Metrics.RecordDiff(ctx, op, err, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}

func (s *session) close() {
	err := s.providers.Shutdown(context.Background())
	if err != nil {
		s.logger.Warn("observability shutdown failed", "error", err)
	}
}

// readInputs reads each path, with "-" naming stdin at most once.
func (s *session) readInputs(cmd *cobra.Command, paths ...string) ([]string, error) {
	texts := make([]string, len(paths))
	usedStdin := false

	for i, path := range paths {
		if path != batchio.StdinPath {
			text, err := batchio.ReadFile(path, s.maxBytes)
			if err != nil {
				return nil, err
			}

			texts[i] = text

			continue
		}

		if usedStdin {
			return nil, ErrStdinTwice
		}

		usedStdin = true

		text, err := s.readStdin(cmd.InOrStdin())
		if err != nil {
			return nil, err
		}

		texts[i] = text
	}

	return texts, nil
}

func (s *session) readStdin(r io.Reader) (string, error) {
	if s.maxBytes > 0 {
		r = io.LimitReader(r, safeconv.Int64(s.maxBytes+1))
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}

	if s.maxBytes > 0 && safeconv.Size(len(data)) > s.maxBytes {
		return "", fmt.Errorf("stdin: %w: more than %d bytes", batchio.ErrInputTooLarge, s.maxBytes)
	}

	return string(data), nil
}
