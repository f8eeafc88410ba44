package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// DefaultGraphOutput is where graph writes when --output is not given.
const DefaultGraphOutput = "file_graph.json"

func newGraphCmd(deps *Dependencies) *cobra.Command {
	var (
		outputPath string
		summary    int
	)

	cmd := &cobra.Command{
		Use:   "graph [path]",
		Short: "Analyze a local Git repository and write its co-change graph",
		Long: `Walk the full history of a local repository and write its co-change graph.

The output is pretty-printed JSON; a path ending in .lz4 is LZ4 compressed
and "-" writes to stdout.

Examples:
  cochange graph
  cochange graph /path/to/repo --output graph.json.lz4
  cochange graph . --output - --summary 5`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoPath := "."
			if len(args) > 0 {
				repoPath = args[0]
			}
			return runGraph(cmd, deps, repoPath, outputPath, summary)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", DefaultGraphOutput,
		"Output file for the graph (.lz4 to compress, - for stdout)")
	cmd.Flags().IntVarP(&summary, "summary", "s", 0,
		"Print the top N files of every era to stderr (0 disables)")

	return cmd
}

// runGraph analyzes one local repository with injected dependencies.
func runGraph(cmd *cobra.Command, deps *Dependencies, repoPath, outputPath string, summary int) error {
	s, err := start(cmd, deps, "graph analysis", map[string]interface{}{
		"path":   repoPath,
		"output": outputPath,
	})
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(s, deps)
	if err != nil {
		return err
	}
	defer closeStore()

	analyzer := deps.AnalyzerFactory(s.cfg, s.log)
	graph, err := analyzer.Analyze(s.ctx, repoPath)
	if err != nil {
		s.log.Error(s.ctx, "failed to analyze repository", err, map[string]interface{}{
			"path": repoPath,
		})
		return userError(err, repoPath)
	}

	writer := deps.OutputWriterFactory(stdoutOf(deps))
	if err := writer.WriteGraph(outputPath, graph); err != nil {
		s.log.Error(s.ctx, "failed to write output", err, nil)
		return fmt.Errorf("output error: %w", err)
	}

	if store != nil {
		if err := store.SaveGraph(s.ctx, graph); err != nil {
			s.log.Error(s.ctx, "failed to store graph", err, nil)
			return fmt.Errorf("database error: %w", err)
		}
	}

	if summary > 0 {
		summaryWriter := deps.OutputWriterFactory(stderrOf(deps))
		if err := summaryWriter.WriteSummary(graph, summary); err != nil {
			s.log.Warn(s.ctx, "failed to print summary", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	s.log.Info(s.ctx, "graph analysis complete", map[string]interface{}{
		"repository":             graph.Repo,
		"total_commits_analyzed": graph.TotalCommitsAnalyzed,
		"eras":                   len(graph.Eras),
		"output":                 outputPath,
	})

	return nil
}
