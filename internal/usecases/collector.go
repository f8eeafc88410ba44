package usecases

import (
	"context"
	"fmt"
	"strings"

	"github.com/MyCarrier-DevOps/cochange/internal/domain"
)

// Collector gathers the candidate repositories of a study: JOSS papers and
// the GitHub metadata of their software repositories.
type Collector struct {
	papers domain.PaperSource
	stats  domain.RepoStatsSource
	logger Logger
}

// NewCollector creates a Collector. Either source may be nil when the
// corresponding step is not used.
func NewCollector(papers domain.PaperSource, stats domain.RepoStatsSource, log Logger) *Collector {
	return &Collector{
		papers: papers,
		stats:  stats,
		logger: log,
	}
}

// CollectPapers lists every JOSS paper published for language.
func (c *Collector) CollectPapers(ctx context.Context, language string) ([]domain.Paper, error) {
	language = strings.TrimSpace(language)
	if language == "" {
		return nil, fmt.Errorf("language must not be empty")
	}

	papers, err := c.papers.Papers(ctx, language)
	if err != nil {
		return nil, fmt.Errorf("failed to collect papers for %s: %w", language, err)
	}

	c.logger.Info(ctx, "collected papers", map[string]interface{}{
		"language": language,
		"papers":   len(papers),
	})
	return papers, nil
}

// CollectStats fetches GitHub metadata for every paper hosted on github.com.
// Papers whose lookup fails are logged and left out.
func (c *Collector) CollectStats(ctx context.Context, papers []domain.Paper) ([]domain.RepoStats, error) {
	stats := make([]domain.RepoStats, 0, len(papers))

	for _, p := range papers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		repoURL := strings.TrimSpace(p.SoftwareRepository)
		if !IsGitHubURL(repoURL) {
			c.logger.Debug(ctx, "skipping paper outside github.com", map[string]interface{}{
				"title": p.Title,
				"url":   repoURL,
			})
			continue
		}

		sizeKB, commits, contributors, err := c.stats.Stats(ctx, repoURL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.logger.Warn(ctx, "failed to fetch repository stats", map[string]interface{}{
				"url":   repoURL,
				"error": err.Error(),
			})
			continue
		}

		stats = append(stats, domain.RepoStats{
			Title:            p.Title,
			RepoURL:          repoURL,
			SizeKB:           sizeKB,
			CommitCount:      commits,
			ContributorCount: contributors,
		})
	}

	c.logger.Info(ctx, "collected repository stats", map[string]interface{}{
		"papers":       len(papers),
		"repositories": len(stats),
	})
	return stats, nil
}
