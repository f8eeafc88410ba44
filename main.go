// Package main is the entry point for the cochange CLI application.
// cochange mines Git commit history into per-era file co-change graphs and
// collects candidate repositories from JOSS and GitHub.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	ch "github.com/MyCarrier-DevOps/goLibMyCarrier/clickhouse"
	"github.com/MyCarrier-DevOps/goLibMyCarrier/logger"

	"github.com/MyCarrier-DevOps/cochange/cmd"
	"github.com/MyCarrier-DevOps/cochange/internal/adapters/git"
	"github.com/MyCarrier-DevOps/cochange/internal/adapters/github"
	"github.com/MyCarrier-DevOps/cochange/internal/adapters/joss"
	logadapter "github.com/MyCarrier-DevOps/cochange/internal/adapters/logger"
	"github.com/MyCarrier-DevOps/cochange/internal/adapters/output"
	"github.com/MyCarrier-DevOps/cochange/internal/adapters/store"
	"github.com/MyCarrier-DevOps/cochange/internal/domain"
	"github.com/MyCarrier-DevOps/cochange/internal/infrastructure/config"
	"github.com/MyCarrier-DevOps/cochange/internal/usecases"
)

func main() {
	// LOG_LEVEL may come from .env, so it is loaded before the logger is built.
	if err := config.LoadEnvFile(config.DefaultEnvFile); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	// The logger is built on first use so that --verbose can still raise the level.
	var (
		once    sync.Once
		adapter *logadapter.ZapAdapter
	)
	getLogger := func() *logadapter.ZapAdapter {
		once.Do(func() {
			adapter = logadapter.NewZapAdapter(logger.NewZapLoggerFromConfig())
		})
		return adapter
	}

	deps := &cmd.Dependencies{
		LoggerFactory: func() cmd.Logger {
			return getLogger()
		},

		ConfigLoader: func() (*cmd.AppConfig, error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			return &cmd.AppConfig{
				Policy:            cfg.Policy,
				DetectRenames:     cfg.DetectRenames,
				ClonePath:         cfg.ClonePath,
				GitHubToken:       cfg.GitHubToken,
				ClickHouseEnabled: cfg.ClickHouseEnabled,
				ClickHouseConfig:  cfg.ClickHouse,
				Database:          cfg.Database,
				LogLevel:          cfg.LogLevel,
				LogAppName:        cfg.LogAppName,
			}, nil
		},

		AnalyzerFactory: func(cfg *cmd.AppConfig, log cmd.Logger) domain.Analyzer {
			opener := func(path string) (domain.LocalGitRepository, error) {
				return git.NewGoGitRepository(path, log, git.WithRenameDetection(cfg.DetectRenames))
			}
			return usecases.NewGraphAnalyzer(opener, cfg.Policy, log)
		},

		ClonerFactory: func(cfg *cmd.AppConfig, log cmd.Logger) domain.Cloner {
			return git.NewGoGitCloner(cfg.GitHubToken, log)
		},

		GraphStoreFactory: func(ctx context.Context, cfg *cmd.AppConfig, log cmd.Logger) (domain.GraphStore, error) {
			chConfig, ok := cfg.ClickHouseConfig.(*ch.ClickhouseConfig)
			if !ok || chConfig == nil {
				return nil, newConfigTypeError("*ch.ClickhouseConfig")
			}

			session, err := store.OpenSession(ctx, chConfig)
			if err != nil {
				return nil, err
			}

			graphStore, err := store.NewClickHouseStore(session, cfg.Database, log)
			if err != nil {
				_ = session.Close()
				return nil, err
			}
			if err := graphStore.EnsureSchema(ctx); err != nil {
				_ = session.Close()
				return nil, err
			}

			log.Info(ctx, "graph store opened", map[string]interface{}{
				"database": cfg.Database,
				"run_id":   graphStore.RunID(),
			})
			return graphStore, nil
		},

		PaperSourceFactory: func(log cmd.Logger) domain.PaperSource {
			return joss.NewClient(log)
		},

		StatsSourceFactory: func(token string, log cmd.Logger) (domain.RepoStatsSource, error) {
			client, err := github.NewClient(token, log)
			if err != nil {
				return nil, err
			}
			return client, nil
		},

		OutputWriterFactory: func(out io.Writer) cmd.OutputWriter {
			return output.NewWriterWithOutput(out)
		},

		InputReader: output.ReadJSON,

		Validator: func(path string) ([]string, error) {
			res, err := output.ValidateFile(path)
			if err != nil {
				return nil, err
			}
			return res.Errors, nil
		},

		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}

	cmd.SetDefaultDependencies(deps)
	cmd.Execute()
}

func newConfigTypeError(expected string) error {
	return &configTypeError{expected: expected}
}

// configTypeError is returned when configuration type assertion fails.
type configTypeError struct {
	expected string
}

func (e *configTypeError) Error() string {
	return "invalid configuration type: expected " + e.expected
}
