// Package git provides adapters for interacting with local Git repositories.
// This package implements the domain.LocalGitRepository interface using go-git/v5.
package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	fdiff "github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"github.com/MyCarrier-DevOps/cochange/internal/domain"
)

// Logger defines the logging interface for the git adapter.
// This interface enables dependency injection and testability.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
}

// GoGitRepository implements domain.LocalGitRepository using go-git/v5.
type GoGitRepository struct {
	repo          *git.Repository
	path          string
	logger        Logger
	detectRenames bool
}

// Option configures a GoGitRepository.
type Option func(*GoGitRepository)

// WithRenameDetection toggles rename detection in commit diffs. Enabled by default.
func WithRenameDetection(enabled bool) Option {
	return func(r *GoGitRepository) {
		r.detectRenames = enabled
	}
}

// NewGoGitRepository opens the repository at path.
// The path can be either a working directory or a bare repository.
// Returns domain.ErrRepositoryNotFound if the path is not a valid Git repository.
func NewGoGitRepository(path string, log Logger, opts ...Option) (*GoGitRepository, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRepositoryNotFound, path)
	}

	r := &GoGitRepository{
		repo:          repo,
		path:          path,
		logger:        log,
		detectRenames: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Name returns owner/repo parsed from the origin remote URL.
// Falls back to the base name of the repository directory.
func (r *GoGitRepository) Name(ctx context.Context) string {
	fallback := filepath.Base(filepath.Clean(r.path))
	if abs, err := filepath.Abs(r.path); err == nil {
		fallback = filepath.Base(abs)
	}

	remote, err := r.repo.Remote("origin")
	if err != nil {
		r.logger.Debug(ctx, "no origin remote; using directory name", map[string]interface{}{
			"path": r.path,
			"name": fallback,
		})
		return fallback
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return fallback
	}

	name, err := parseRepoFromURL(urls[0])
	if err != nil {
		r.logger.Warn(ctx, "could not parse origin URL; using directory name", map[string]interface{}{
			"url":   urls[0],
			"name":  fallback,
			"error": err.Error(),
		})
		return fallback
	}
	return name
}

// History returns every commit reachable from HEAD, oldest first.
func (r *GoGitRepository) History(ctx context.Context) ([]string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrNoHead, err)
	}

	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get commit object for HEAD: %w", domain.ErrHistoryWalk, err)
	}

	nodes := make(map[plumbing.Hash]*commitNode)
	iter := object.NewCommitIterCTime(commit, nil, nil)
	defer iter.Close()

	err = iter.ForEach(func(c *object.Commit) error {
		// Check context for cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		nodes[c.Hash] = &commitNode{
			hash:    c.Hash,
			when:    c.Committer.When,
			parents: c.ParentHashes,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrHistoryWalk, err)
	}

	ordered := chronological(nodes)

	r.logger.Debug(ctx, "walked commit history", map[string]interface{}{
		"commits_found": len(ordered),
		"head_sha":      head.Hash().String(),
	})

	return ordered, nil
}

// Diff compares the commit with its first parent, or with the empty tree for a root commit.
func (r *GoGitRepository) Diff(ctx context.Context, hash string) (*domain.CommitDiff, error) {
	commit, err := r.repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return nil, fmt.Errorf("%w: read commit %s: %w", domain.ErrDiffFailed, hash, err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("%w: read tree of %s: %w", domain.ErrDiffFailed, hash, err)
	}

	parentTree := &object.Tree{}
	if commit.NumParents() > 0 {
		parent, err := commit.Parent(0)
		if err != nil {
			return nil, fmt.Errorf("%w: read parent of %s: %w", domain.ErrDiffFailed, hash, err)
		}
		parentTree, err = parent.Tree()
		if err != nil {
			return nil, fmt.Errorf("%w: read parent tree of %s: %w", domain.ErrDiffFailed, hash, err)
		}
	}

	changes, err := object.DiffTreeWithOptions(ctx, parentTree, tree, r.diffOptions())
	if err != nil {
		return nil, fmt.Errorf("%w: diff %s: %w", domain.ErrDiffFailed, hash, err)
	}

	diff := &domain.CommitDiff{
		Hash:  hash,
		Files: make([]domain.FileChange, 0, len(changes)),
	}
	for _, change := range changes {
		fc, err := fileChange(ctx, change)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrDiffFailed, hash, err)
		}
		diff.Files = append(diff.Files, fc)
		if !fc.Deleted && fc.OldPath != "" && fc.OldPath != fc.Path {
			diff.Renames = append(diff.Renames, domain.RenamePair{From: fc.OldPath, To: fc.Path})
		}
	}

	return diff, nil
}

// Close releases any resources held by the repository.
// For go-git, this is a no-op as the repository doesn't hold persistent resources.
func (r *GoGitRepository) Close() error {
	return nil
}

func (r *GoGitRepository) diffOptions() *object.DiffTreeOptions {
	if !r.detectRenames {
		return nil
	}
	opts := *object.DefaultDiffTreeOptions
	return &opts
}

// fileChange converts one tree change into line statistics keyed by path.
func fileChange(ctx context.Context, change *object.Change) (domain.FileChange, error) {
	action, err := change.Action()
	if err != nil {
		return domain.FileChange{}, err
	}

	patch, err := change.PatchContext(ctx)
	if err != nil {
		return domain.FileChange{}, err
	}
	additions, deletions := countLines(patch)

	from := toValidPath(change.From.Name)
	to := toValidPath(change.To.Name)

	fc := domain.FileChange{Additions: additions, Deletions: deletions}
	switch action {
	case merkletrie.Insert:
		fc.Path = to
	case merkletrie.Delete:
		fc.OldPath = from
		fc.Path = from
		fc.Deleted = true
	default:
		fc.OldPath = from
		fc.Path = to
	}
	return fc, nil
}

// countLines counts added and removed lines across the chunks of patch.
func countLines(patch *object.Patch) (additions, deletions int) {
	for _, fp := range patch.FilePatches() {
		if fp.IsBinary() {
			continue
		}
		for _, chunk := range fp.Chunks() {
			switch chunk.Type() {
			case fdiff.Add:
				additions += lineCount(chunk.Content())
			case fdiff.Delete:
				deletions += lineCount(chunk.Content())
			}
		}
	}
	return additions, deletions
}

// lineCount counts lines in s, including a final line without a newline.
func lineCount(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

// toValidPath replaces invalid UTF-8 sequences so paths stay usable as JSON keys.
func toValidPath(p string) string {
	return strings.ToValidUTF8(p, "\uFFFD")
}

// Regular expressions for parsing Git remote URLs.
var (
	// httpsURLPattern matches HTTPS URLs like:
	// https://github.com/owner/repo.git
	// https://github.com/owner/repo
	httpsURLPattern = regexp.MustCompile(`^https?://[^/]+/([^/]+)/([^/]+?)(?:\.git)?/?$`)

	// sshURLPattern matches SSH URLs like:
	// git@github.com:owner/repo.git
	// git@github.com:owner/repo
	sshURLPattern = regexp.MustCompile(`^git@[^:]+:([^/]+)/([^/]+?)(?:\.git)?$`)
)

// parseRepoFromURL extracts owner/repo from a Git remote URL.
// Supports both HTTPS and SSH formats:
//   - https://github.com/owner/repo.git -> owner/repo
//   - https://github.com/owner/repo -> owner/repo
//   - git@github.com:owner/repo.git -> owner/repo
//   - git@github.com:owner/repo -> owner/repo
func parseRepoFromURL(url string) (string, error) {
	url = strings.TrimSpace(url)

	if matches := httpsURLPattern.FindStringSubmatch(url); len(matches) == 3 {
		return matches[1] + "/" + matches[2], nil
	}

	if matches := sshURLPattern.FindStringSubmatch(url); len(matches) == 3 {
		return matches[1] + "/" + matches[2], nil
	}

	return "", fmt.Errorf("%w: %s", domain.ErrInvalidRemoteURL, url)
}

