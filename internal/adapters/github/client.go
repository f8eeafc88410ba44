// Package github implements domain.RepoStatsSource with the GitHub REST API.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v79/github"
	"golang.org/x/time/rate"

	"github.com/MyCarrier-DevOps/cochange/internal/domain"
)

// DefaultInterval is the minimum delay between two repositories, to stay below
// GitHub's secondary rate limits.
const DefaultInterval = 700 * time.Millisecond

// Logger defines the logging interface for the GitHub client.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
}

// Client fetches repository size, commit count and contributor count.
type Client struct {
	gh      *gh.Client
	limiter *rate.Limiter
	logger  Logger
}

// Option configures a Client.
type Option func(*Client) error

// WithBaseURL points the client at a GitHub Enterprise or test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) error {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("invalid GitHub base URL %q: %w", baseURL, err)
		}
		c.gh.BaseURL = u
		return nil
	}
}

// WithInterval sets the minimum delay between two repositories.
func WithInterval(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return nil
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
		return nil
	}
}

// NewClient creates a GitHub client. An empty token issues anonymous requests.
func NewClient(token string, log Logger, opts ...Option) (*Client, error) {
	client := gh.NewClient(&http.Client{Timeout: 30 * time.Second})
	if token != "" {
		client = client.WithAuthToken(token)
	}

	c := &Client{
		gh:      client,
		limiter: rate.NewLimiter(rate.Every(DefaultInterval), 1),
		logger:  log,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Stats returns the size in KB, the commit count and the contributor count of repoURL.
func (c *Client) Stats(ctx context.Context, repoURL string) (sizeKB, commits, contributors int, err error) {
	owner, name, err := ParseOwnerRepo(repoURL)
	if err != nil {
		return 0, 0, 0, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, 0, 0, err
	}

	repo, _, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to get repository %s/%s: %w", owner, name, err)
	}

	// With one item per page the last page number equals the item count.
	list := gh.ListOptions{PerPage: 1}

	commitList, resp, err := c.gh.Repositories.ListCommits(ctx, owner, name, &gh.CommitsListOptions{ListOptions: list})
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to list commits of %s/%s: %w", owner, name, err)
	}
	commits = countFromResponse(resp, len(commitList))

	contributorList, resp, err := c.gh.Repositories.ListContributors(ctx, owner, name, &gh.ListContributorsOptions{ListOptions: list})
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to list contributors of %s/%s: %w", owner, name, err)
	}
	contributors = countFromResponse(resp, len(contributorList))

	c.logger.Debug(ctx, "fetched repository stats", map[string]interface{}{
		"repository":   owner + "/" + name,
		"size_kb":      repo.GetSize(),
		"commits":      commits,
		"contributors": contributors,
	})

	return repo.GetSize(), commits, contributors, nil
}

// countFromResponse reads the item count of a per_page=1 listing.
func countFromResponse(resp *gh.Response, items int) int {
	if resp != nil && resp.LastPage > 0 {
		return resp.LastPage
	}
	return items
}

// ParseOwnerRepo extracts owner and repository name from a github.com URL.
func ParseOwnerRepo(repoURL string) (owner, name string, err error) {
	raw := strings.TrimSpace(repoURL)

	var rest string
	switch {
	case strings.HasPrefix(raw, "git@github.com:"):
		rest = strings.TrimPrefix(raw, "git@github.com:")
	default:
		u, perr := url.Parse(raw)
		if perr != nil || u.Host == "" {
			return "", "", fmt.Errorf("%w: %s", domain.ErrUnsupportedHost, repoURL)
		}
		host := strings.ToLower(u.Hostname())
		if host != "github.com" && host != "www.github.com" {
			return "", "", fmt.Errorf("%w: %s", domain.ErrUnsupportedHost, repoURL)
		}
		rest = u.Path
	}

	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %s", domain.ErrInvalidRemoteURL, repoURL)
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}
