// Package joss implements domain.PaperSource against the Journal of Open Source Software.
package joss

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/MyCarrier-DevOps/cochange/internal/domain"
)

// DefaultBaseURL is the public JOSS site.
const DefaultBaseURL = "https://joss.theoj.org"

// DefaultInterval is the minimum delay between two page requests.
const DefaultInterval = 500 * time.Millisecond

// Logger defines the logging interface for the JOSS client.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
}

// Client pages through the per-language paper listings of JOSS.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another host.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithInterval sets the minimum delay between requests.
func WithInterval(d time.Duration) Option {
	return func(c *Client) {
		c.limiter = newLimiter(d)
	}
}

// NewClient creates a JOSS client.
func NewClient(log Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: newLimiter(DefaultInterval),
		logger:  log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newLimiter(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// Papers fetches pages 1, 2, ... until an empty page and returns every paper found.
func (c *Client) Papers(ctx context.Context, language string) ([]domain.Paper, error) {
	var all []domain.Paper
	for page := 1; ; page++ {
		papers, err := c.page(ctx, language, page)
		if err != nil {
			return nil, err
		}
		if len(papers) == 0 {
			c.logger.Debug(ctx, "reached last JOSS page", map[string]interface{}{
				"language": language,
				"pages":    page - 1,
				"papers":   len(all),
			})
			return all, nil
		}

		c.logger.Debug(ctx, "fetched JOSS page", map[string]interface{}{
			"language": language,
			"page":     page,
			"papers":   len(papers),
		})
		all = append(all, papers...)
	}
}

func (c *Client) page(ctx context.Context, language string, page int) ([]domain.Paper, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/papers/in/%s.json?page=%d", c.baseURL, url.PathEscape(language), page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for page %d: %w", page, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page %d: %w", page, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("page %d: unexpected status %s: %s", page, resp.Status, strings.TrimSpace(string(body)))
	}

	var papers []domain.Paper
	if err := json.NewDecoder(resp.Body).Decode(&papers); err != nil {
		return nil, fmt.Errorf("failed to decode page %d: %w", page, err)
	}
	return papers, nil
}
