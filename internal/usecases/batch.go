package usecases

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/MyCarrier-DevOps/cochange/internal/domain"
)

// BatchRunner clones and analyzes a list of remote repositories one at a time.
type BatchRunner struct {
	cloner   domain.Cloner
	analyzer domain.Analyzer
	store    domain.GraphStore
	logger   Logger
}

// BatchOption configures a BatchRunner.
type BatchOption func(*BatchRunner)

// WithGraphStore forwards every finalized graph to store in addition to the returned slice.
func WithGraphStore(store domain.GraphStore) BatchOption {
	return func(b *BatchRunner) {
		b.store = store
	}
}

// NewBatchRunner creates a BatchRunner with the given dependencies.
func NewBatchRunner(cloner domain.Cloner, analyzer domain.Analyzer, log Logger, opts ...BatchOption) *BatchRunner {
	b := &BatchRunner{
		cloner:   cloner,
		analyzer: analyzer,
		logger:   log,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run processes every target of input sequentially and returns the graphs of the
// repositories that were analyzed successfully. A failing repository is logged and skipped.
// Only cancellation of ctx aborts the batch.
func (b *BatchRunner) Run(ctx context.Context, input domain.BatchInput) ([]*domain.FileGraph, error) {
	clonePath := input.ClonePath
	if clonePath == "" {
		clonePath = domain.DefaultClonePath
	}

	graphs := make([]*domain.FileGraph, 0, len(input.Targets))
	skipped := 0

	for i, target := range input.Targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		repoURL := strings.TrimSpace(target.URL())
		if err := checkTarget(repoURL); err != nil {
			b.logger.Debug(ctx, "skipping batch entry", map[string]interface{}{
				"index":  i,
				"url":    repoURL,
				"reason": err.Error(),
			})
			skipped++
			continue
		}

		b.logger.Info(ctx, "processing repository", map[string]interface{}{
			"index": i,
			"url":   repoURL,
		})

		g, err := b.analyzeRemote(ctx, repoURL, clonePath)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			b.logger.Error(ctx, "repository skipped", err, map[string]interface{}{
				"url": repoURL,
			})
			skipped++
			continue
		}

		if b.store != nil {
			if err := b.store.SaveGraph(ctx, g); err != nil {
				b.logger.Warn(ctx, "failed to store graph", map[string]interface{}{
					"repository": g.Repo,
					"error":      err.Error(),
				})
			}
		}
		graphs = append(graphs, g)
	}

	b.logger.Info(ctx, "batch complete", map[string]interface{}{
		"analyzed": len(graphs),
		"skipped":  skipped,
		"total":    len(input.Targets),
	})

	return graphs, nil
}

// analyzeRemote clones repoURL into clonePath, analyzes it and removes the clone.
func (b *BatchRunner) analyzeRemote(ctx context.Context, repoURL, clonePath string) (*domain.FileGraph, error) {
	if err := b.cloner.Clone(ctx, repoURL, clonePath); err != nil {
		return nil, err
	}
	defer func() {
		if err := b.cloner.Remove(clonePath); err != nil {
			b.logger.Warn(ctx, "failed to remove clone", map[string]interface{}{
				"path":  clonePath,
				"error": err.Error(),
			})
		}
	}()

	g, err := b.analyzer.Analyze(ctx, clonePath)
	if err != nil {
		return nil, fmt.Errorf("analysis of %s failed: %w", repoURL, err)
	}
	return g, nil
}

// checkTarget rejects entries without a URL or hosted outside github.com.
func checkTarget(repoURL string) error {
	if repoURL == "" {
		return domain.ErrNoRepositoryURL
	}
	if !IsGitHubURL(repoURL) {
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedHost, repoURL)
	}
	return nil
}

// IsGitHubURL reports whether raw points at a repository on github.com.
func IsGitHubURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "git@github.com:") {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "github.com" || host == "www.github.com"
}

