package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MyCarrier-DevOps/cochange/internal/domain"
	"github.com/MyCarrier-DevOps/cochange/internal/usecases"
)

// DefaultBatchOutput is where clone writes when --output is not given.
const DefaultBatchOutput = "repo_graphs.json"

func newCloneCmd(deps *Dependencies) *cobra.Command {
	var (
		inputPath  string
		outputPath string
		clonePath  string
	)

	cmd := &cobra.Command{
		Use:   "clone",
		Short: "Clone and analyze every GitHub repository listed in a JSON file",
		Long: `Clone and analyze every GitHub repository listed in a JSON file.

The input is the output of "cochange github" (repo_url) or "cochange joss"
(software_repository). Repositories are processed one at a time in a single
clone directory; a repository that fails to clone or analyze is skipped.

Examples:
  cochange clone --input github_stats.json
  cochange clone -i joss_papers.json -o graphs.json.lz4 --path /var/tmp/clone`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClone(cmd, deps, inputPath, outputPath, clonePath)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "JSON file listing the repositories (required)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", DefaultBatchOutput,
		"Output file for the graph array (.lz4 to compress, - for stdout)")
	cmd.Flags().StringVarP(&clonePath, "path", "p", "",
		"Clone directory (defaults to COCHANGE_CLONE_PATH or "+domain.DefaultClonePath+")")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// runClone runs a batch analysis with injected dependencies.
func runClone(cmd *cobra.Command, deps *Dependencies, inputPath, outputPath, clonePath string) error {
	s, err := start(cmd, deps, "batch analysis", map[string]interface{}{
		"input":  inputPath,
		"output": outputPath,
	})
	if err != nil {
		return err
	}

	var targets []domain.RepoTarget
	if err := readInput(deps, inputPath, &targets); err != nil {
		s.log.Error(s.ctx, "failed to read input", err, map[string]interface{}{
			"input": inputPath,
		})
		return err
	}

	if clonePath == "" {
		clonePath = s.cfg.ClonePath
	}

	store, closeStore, err := openStore(s, deps)
	if err != nil {
		return err
	}
	defer closeStore()

	var opts []usecases.BatchOption
	if store != nil {
		opts = append(opts, usecases.WithGraphStore(store))
	}

	runner := usecases.NewBatchRunner(
		deps.ClonerFactory(s.cfg, s.log),
		deps.AnalyzerFactory(s.cfg, s.log),
		s.log,
		opts...,
	)

	graphs, err := runner.Run(s.ctx, domain.BatchInput{
		ClonePath: clonePath,
		Targets:   targets,
	})
	if err != nil {
		s.log.Error(s.ctx, "batch analysis aborted", err, nil)
		return err
	}

	writer := deps.OutputWriterFactory(stdoutOf(deps))
	if err := writer.WriteGraphs(outputPath, graphs); err != nil {
		s.log.Error(s.ctx, "failed to write output", err, nil)
		return fmt.Errorf("output error: %w", err)
	}

	s.log.Info(s.ctx, "batch analysis complete", map[string]interface{}{
		"repositories": len(graphs),
		"output":       outputPath,
	})
	return nil
}
