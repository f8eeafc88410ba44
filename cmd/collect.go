package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MyCarrier-DevOps/cochange/internal/domain"
	"github.com/MyCarrier-DevOps/cochange/internal/usecases"
)

// Default output files of the collectors.
const (
	DefaultJossLanguage = "python"
	DefaultJossOutput   = "joss_papers.json"
	DefaultStatsOutput  = "github_stats.json"
)

func newJossCmd(deps *Dependencies) *cobra.Command {
	var (
		language   string
		outputPath string
	)

	cmd := &cobra.Command{
		Use:   "joss",
		Short: "Collect JOSS papers and their software repositories",
		Long: `Collect every paper the Journal of Open Source Software lists for a language.

Examples:
  cochange joss
  cochange joss --language julia --output julia_papers.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runJoss(cmd, deps, language, outputPath)
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", DefaultJossLanguage, "Programming language to list papers for")
	cmd.Flags().StringVarP(&outputPath, "output", "o", DefaultJossOutput, "Output file for the papers (- for stdout)")

	return cmd
}

func runJoss(cmd *cobra.Command, deps *Dependencies, language, outputPath string) error {
	s, err := start(cmd, deps, "JOSS collection", map[string]interface{}{
		"language": language,
		"output":   outputPath,
	})
	if err != nil {
		return err
	}

	collector := usecases.NewCollector(deps.PaperSourceFactory(s.log), nil, s.log)
	papers, err := collector.CollectPapers(s.ctx, language)
	if err != nil {
		s.log.Error(s.ctx, "failed to collect papers", err, nil)
		return err
	}

	if err := deps.OutputWriterFactory(stdoutOf(deps)).WriteJSON(outputPath, papers); err != nil {
		s.log.Error(s.ctx, "failed to write output", err, nil)
		return fmt.Errorf("output error: %w", err)
	}
	return nil
}

func newGitHubCmd(deps *Dependencies) *cobra.Command {
	var (
		inputPath  string
		outputPath string
		token      string
	)

	cmd := &cobra.Command{
		Use:   "github",
		Short: "Collect GitHub statistics for the repositories of JOSS papers",
		Long: `Collect size, commit count and contributor count of every github.com
repository listed in a "cochange joss" output file.

The token defaults to GITHUB_TOKEN or the Vault secret at VAULT_GITHUB_TOKEN_PATH.

Examples:
  cochange github --input joss_papers.json
  cochange github -i joss_papers.json -o stats.json --token ghp_xxx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGitHub(cmd, deps, inputPath, outputPath, token)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "JSON file of JOSS papers (required)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", DefaultStatsOutput, "Output file for the statistics (- for stdout)")
	cmd.Flags().StringVarP(&token, "token", "t", "", "GitHub token (overrides configuration)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runGitHub(cmd *cobra.Command, deps *Dependencies, inputPath, outputPath, token string) error {
	s, err := start(cmd, deps, "GitHub collection", map[string]interface{}{
		"input":  inputPath,
		"output": outputPath,
	})
	if err != nil {
		return err
	}

	var papers []domain.Paper
	if err := readInput(deps, inputPath, &papers); err != nil {
		s.log.Error(s.ctx, "failed to read input", err, map[string]interface{}{
			"input": inputPath,
		})
		return err
	}

	if token == "" {
		token = s.cfg.GitHubToken
	}
	if token == "" {
		s.log.Warn(s.ctx, "no GitHub token configured; requests are subject to anonymous rate limits", nil)
	}

	source, err := deps.StatsSourceFactory(token, s.log)
	if err != nil {
		s.log.Error(s.ctx, "failed to create GitHub client", err, nil)
		return err
	}

	stats, err := usecases.NewCollector(nil, source, s.log).CollectStats(s.ctx, papers)
	if err != nil {
		s.log.Error(s.ctx, "GitHub collection aborted", err, nil)
		return err
	}

	if err := deps.OutputWriterFactory(stdoutOf(deps)).WriteJSON(outputPath, stats); err != nil {
		s.log.Error(s.ctx, "failed to write output", err, nil)
		return fmt.Errorf("output error: %w", err)
	}
	return nil
}
