// Package cmd provides the CLI commands for cochange.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/MyCarrier-DevOps/cochange/internal/domain"
)

// Logger defines the logging interface used by the commands.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// OutputWriter writes command results.
type OutputWriter interface {
	domain.GraphWriter

	// WriteJSON writes any document as indented JSON; "-" targets stdout.
	WriteJSON(path string, v any) error

	// WriteSummary prints the top files of every era of graph.
	WriteSummary(graph *domain.FileGraph, top int) error
}

// Dependencies holds all injectable dependencies for the commands.
// This enables testing by allowing mock implementations to be injected.
type Dependencies struct {
	// LoggerFactory creates a logger instance.
	LoggerFactory func() Logger

	// ConfigLoader loads application configuration.
	ConfigLoader func() (*AppConfig, error)

	// AnalyzerFactory creates the co-change analyzer for the given config.
	AnalyzerFactory func(cfg *AppConfig, log Logger) domain.Analyzer

	// ClonerFactory creates the cloner used by batch runs.
	ClonerFactory func(cfg *AppConfig, log Logger) domain.Cloner

	// GraphStoreFactory opens the optional secondary graph sink.
	// It returns a nil store when the sink is disabled.
	GraphStoreFactory func(ctx context.Context, cfg *AppConfig, log Logger) (domain.GraphStore, error)

	// PaperSourceFactory creates the JOSS paper source.
	PaperSourceFactory func(log Logger) domain.PaperSource

	// StatsSourceFactory creates the GitHub statistics source authenticated with token.
	StatsSourceFactory func(token string, log Logger) (domain.RepoStatsSource, error)

	// OutputWriterFactory creates an OutputWriter whose stream output goes to out.
	OutputWriterFactory func(out io.Writer) OutputWriter

	// InputReader decodes a JSON (or .lz4 compressed JSON) input file into v.
	InputReader func(path string, v any) error

	// Validator checks a graph document file and returns its schema violations.
	Validator func(path string) ([]string, error)

	// Stdout is the writer for standard output.
	Stdout io.Writer

	// Stderr is the writer for standard error (for warnings/errors).
	Stderr io.Writer
}

// AppConfig holds application configuration loaded by ConfigLoader.
type AppConfig struct {
	// Policy holds the era segmentation constants.
	Policy domain.EraPolicy

	// DetectRenames enables rename detection in commit diffs.
	DetectRenames bool

	// ClonePath is the default clone directory of batch runs.
	ClonePath string

	// GitHubToken authenticates GitHub API calls and clones.
	GitHubToken string

	// ClickHouseEnabled turns on the ClickHouse graph sink.
	ClickHouseEnabled bool

	// ClickHouseConfig is passed to the GraphStoreFactory.
	ClickHouseConfig any

	// Database is the ClickHouse database name.
	Database string

	// LogLevel is the log level setting.
	LogLevel string

	// LogAppName is the application name for logging.
	LogAppName string
}

// defaultDeps holds the production dependencies.
// This is set by the production wiring in main or via SetDefaultDependencies.
var defaultDeps *Dependencies

// SetDefaultDependencies sets the default dependencies for production use.
// This should be called from main() before Execute().
func SetDefaultDependencies(deps *Dependencies) {
	defaultDeps = deps
}

// NewRootCmd creates the root command for cochange.
func NewRootCmd() *cobra.Command {
	return NewRootCmdWithDeps(defaultDeps)
}

// NewRootCmdWithDeps creates the root command with explicit dependencies.
// This is the primary constructor that enables testing via dependency injection.
func NewRootCmdWithDeps(deps *Dependencies) *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "cochange",
		Short: "Build file co-change graphs from Git commit history",
		Long: `cochange mines the commit history of Git repositories and builds, for each
repository, a graph of files that change together.

The history is split into eras: when a commit deletes a large share of the
most coupled files, the accumulated statistics are frozen and a new era starts.

Examples:
  # Analyze the repository in the current directory
  cochange graph

  # Analyze a repository and print its ten most active files per era
  cochange graph /path/to/repo --summary 10

  # Collect JOSS papers, their GitHub statistics, then analyze every repository
  cochange joss --language python
  cochange github --input joss_papers.json
  cochange clone --input github_stats.json --output repo_graphs.json.lz4`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if !verbose {
				return
			}
			// Set log level before the logger is built (best-effort)
			if err := os.Setenv("LOG_LEVEL", "debug"); err != nil {
				writeWarningf(stderrOf(deps), "warning: could not set log level: %v\n", err)
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose/debug logging")

	rootCmd.AddCommand(
		newGraphCmd(deps),
		newCloneCmd(deps),
		newJossCmd(deps),
		newGitHubCmd(deps),
		newValidateCmd(deps),
	)

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// session bundles what every command needs after start-up.
type session struct {
	ctx context.Context
	log Logger
	cfg *AppConfig
}

// start validates deps, builds the logger and loads configuration.
func start(cmd *cobra.Command, deps *Dependencies, name string, fields map[string]interface{}) (*session, error) {
	if deps == nil {
		return nil, errors.New("dependencies not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	log := deps.LoggerFactory()
	log.Info(ctx, "starting "+name, fields)

	cfg, err := deps.ConfigLoader()
	if err != nil {
		log.Error(ctx, "failed to load configuration", err, nil)
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	return &session{ctx: ctx, log: log, cfg: cfg}, nil
}

// openStore opens the optional graph sink; a nil store means the sink is disabled.
func openStore(s *session, deps *Dependencies) (domain.GraphStore, func(), error) {
	noop := func() {}
	if deps.GraphStoreFactory == nil || !s.cfg.ClickHouseEnabled {
		return nil, noop, nil
	}

	store, err := deps.GraphStoreFactory(s.ctx, s.cfg, s.log)
	if err != nil {
		s.log.Error(s.ctx, "failed to initialize graph store", err, nil)
		return nil, noop, fmt.Errorf("database error: %w", err)
	}
	if store == nil {
		return nil, noop, nil
	}

	closeStore := func() {
		if closeErr := store.Close(); closeErr != nil {
			s.log.Warn(s.ctx, "failed to close graph store", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
	}
	return store, closeStore, nil
}

// readInput decodes an input file through the injected reader.
func readInput(deps *Dependencies, path string, v any) error {
	if deps.InputReader == nil {
		return errors.New("input reader not configured")
	}
	if err := deps.InputReader(path, v); err != nil {
		return fmt.Errorf("input error: %w", err)
	}
	return nil
}

// userError maps domain errors to short messages for the terminal.
func userError(err error, path string) error {
	switch {
	case errors.Is(err, domain.ErrRepositoryNotFound):
		return fmt.Errorf("not a git repository: %s", path)
	case errors.Is(err, domain.ErrNoHead):
		return fmt.Errorf("repository has no commits: %s", path)
	case errors.Is(err, domain.ErrDiffFailed):
		return fmt.Errorf("could not read commit history of %s: %w", path, err)
	default:
		return err
	}
}

func stderrOf(deps *Dependencies) io.Writer {
	if deps != nil && deps.Stderr != nil {
		return deps.Stderr
	}
	return os.Stderr
}

func stdoutOf(deps *Dependencies) io.Writer {
	if deps != nil && deps.Stdout != nil {
		return deps.Stdout
	}
	return os.Stdout
}

// writeWarningf writes a warning message to the given writer.
// This is a best-effort operation; errors are intentionally ignored
// because there is no recovery action if stderr writes fail.
func writeWarningf(w io.Writer, format string, args ...any) {
	_, err := fmt.Fprintf(w, format, args...)
	if err != nil {
		return
	}
}
