package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/revdiff/pkg/mcp"
	"github.com/Sumatoshi-tech/revdiff/pkg/observability"
)

// newMCPCommand creates the MCP server command.
func newMCPCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes the diff engine as tools that AI agents can discover
and invoke:
  - revdiff_diff: Compare two versions of a document
  - revdiff_line_changes: List inserted and deleted lines
  - revdiff_similarity: Character-level similarity score
  - revdiff_batch: Compare many pairs in parallel
  - revdiff_file_stats: Line, word and comment counts with a token estimate
  - revdiff_detect_language: Language detection and function names

Logs go to stderr as JSON.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			g.logJSON = true

			s, err := g.open(cobraCmd, observability.ModeMCP)
			if err != nil {
				return err
			}
			defer s.close()

			ctx, cancel := context.WithCancel(cobraCmd.Context())
			defer cancel()

			metricsDone, err := s.serveMetrics(ctx)
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:  s.logger,
				Metrics: s.providers.Metrics,
				Tracer:  s.providers.Tracer,
				Config:  s.cfg,
			})

			err = srv.Run(ctx)

			cancel()

			return joinServeErr(err, metricsDone)
		},
	}

	g.registerMetricsAddr(cmd)

	return cmd
}
