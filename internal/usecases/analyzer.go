// Package usecases contains the application business logic.
// This package orchestrates domain entities and interfaces to fulfill use cases.
package usecases

import (
	"context"
	"fmt"

	"github.com/MyCarrier-DevOps/cochange/internal/domain"
	"github.com/MyCarrier-DevOps/cochange/internal/graph"
)

// Logger defines the logging interface required by the use cases.
// This abstracts the logger dependency to avoid coupling to a specific implementation.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// GraphAnalyzer walks a repository's history and builds its co-change graph.
type GraphAnalyzer struct {
	open             domain.RepositoryOpener
	policy           domain.EraPolicy
	logger           Logger
	progressInterval int
}

// NewGraphAnalyzer creates a GraphAnalyzer with the given dependencies.
func NewGraphAnalyzer(open domain.RepositoryOpener, policy domain.EraPolicy, log Logger) *GraphAnalyzer {
	return &GraphAnalyzer{
		open:             open,
		policy:           policy,
		logger:           log,
		progressInterval: domain.DefaultProgressInterval,
	}
}

// Analyze builds the co-change graph of the repository at path.
// Any repository or diff error aborts the analysis; no partial graph is returned.
func (a *GraphAnalyzer) Analyze(ctx context.Context, path string) (*domain.FileGraph, error) {
	repo, err := a.open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			a.logger.Warn(ctx, "failed to close git repository", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
	}()

	name := repo.Name(ctx)
	a.logger.Info(ctx, "analyzing repository", map[string]interface{}{
		"repository": name,
		"path":       path,
	})

	commits, err := repo.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list commit history: %w", err)
	}

	session := graph.NewSession(name, a.policy)
	for i, hash := range commits {
		diff, err := repo.Diff(ctx, hash)
		if err != nil {
			return nil, err
		}

		res := session.Apply(diff)
		if res.EraClosed {
			a.logger.Info(ctx, "era closed", map[string]interface{}{
				"repository":   name,
				"reset_commit": hash,
				"eras":         session.Builder().ErasCreated(),
			})
		}

		if walked := i + 1; a.progressInterval > 0 && walked%a.progressInterval == 0 {
			a.logger.Info(ctx, "processed commits", map[string]interface{}{
				"repository": name,
				"walked":     walked,
				"total":      len(commits),
			})
		}
	}

	fileGraph := session.Finalize()

	a.logger.Info(ctx, "repository analysis complete", map[string]interface{}{
		"repository":             name,
		"commits_walked":         len(commits),
		"total_commits_analyzed": fileGraph.TotalCommitsAnalyzed,
		"eras":                   len(fileGraph.Eras),
		"renames":                session.Resolver().Renames(),
	})

	return fileGraph, nil
}
