package git

import (
	"context"
	"fmt"
	"os"

	"github.com/go-git/go-git/v5"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/MyCarrier-DevOps/cochange/internal/domain"
)

// GoGitCloner implements domain.Cloner with go-git.
// Only one clone exists on disk at a time: each Clone replaces the previous one.
type GoGitCloner struct {
	token  string
	logger Logger
}

// NewGoGitCloner creates a cloner. A non-empty token is sent as HTTP basic auth,
// which GitHub accepts for private repositories.
func NewGoGitCloner(token string, log Logger) *GoGitCloner {
	return &GoGitCloner{token: token, logger: log}
}

// Clone removes anything at path and clones url into it.
func (c *GoGitCloner) Clone(ctx context.Context, url, path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("%w: remove previous clone at %s: %w", domain.ErrCloneFailed, path, err)
	}

	opts := &git.CloneOptions{URL: url}
	if c.token != "" {
		opts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: c.token}
	}

	if _, err := git.PlainCloneContext(ctx, path, false, opts); err != nil {
		// A failed clone can leave a partial checkout behind.
		if rmErr := os.RemoveAll(path); rmErr != nil {
			c.logger.Warn(ctx, "failed to clean up partial clone", map[string]interface{}{
				"path":  path,
				"error": rmErr.Error(),
			})
		}
		return fmt.Errorf("%w: %s: %w", domain.ErrCloneFailed, url, err)
	}

	c.logger.Debug(ctx, "cloned repository", map[string]interface{}{
		"url":  url,
		"path": path,
	})
	return nil
}

// Remove deletes the local clone at path.
func (c *GoGitCloner) Remove(path string) error {
	return os.RemoveAll(path)
}
