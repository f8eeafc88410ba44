// Package domain defines the core business entities and interfaces for cochange.
// This package contains no external dependencies and represents the innermost layer
// of the CLEAN architecture.
package domain

import (
	"context"
	"errors"
)

// Domain errors for repository access, diffing and collection.
var (
	// ErrRepositoryNotFound indicates the specified path is not a valid Git repository.
	ErrRepositoryNotFound = errors.New("git repository not found at specified path")

	// ErrNoHead indicates the repository has no HEAD to walk from.
	ErrNoHead = errors.New("repository has no HEAD reference")

	// ErrHistoryWalk indicates the commit history could not be read.
	ErrHistoryWalk = errors.New("failed to walk commit history")

	// ErrDiffFailed indicates a commit could not be diffed against its parent.
	ErrDiffFailed = errors.New("failed to compute commit diff")

	// ErrInvalidRemoteURL indicates the remote URL could not be parsed to extract owner/repo.
	ErrInvalidRemoteURL = errors.New("could not parse repository name from remote URL")

	// ErrCloneFailed indicates a remote repository could not be cloned.
	ErrCloneFailed = errors.New("failed to clone repository")

	// ErrNoRepositoryURL indicates a batch entry carries no remote locator.
	ErrNoRepositoryURL = errors.New("batch entry has no repository URL")

	// ErrUnsupportedHost indicates the repository is not hosted on github.com.
	ErrUnsupportedHost = errors.New("repository is not hosted on github.com")
)

// LocalGitRepository exposes the commit history of one local repository.
// Implementations are used by a single goroutine for the lifetime of one analysis.
type LocalGitRepository interface {
	// Name returns owner/repo derived from the origin remote,
	// or the directory name when the repository has no usable origin.
	Name(ctx context.Context) string

	// History returns every commit hash reachable from HEAD, oldest first.
	// A commit never precedes its parents.
	History(ctx context.Context) ([]string, error)

	// Diff compares the commit with its first parent, or with the empty tree for a root commit.
	Diff(ctx context.Context, hash string) (*CommitDiff, error)

	// Close releases any resources held by the repository.
	Close() error
}

// RepositoryOpener opens a local repository for analysis.
type RepositoryOpener func(path string) (LocalGitRepository, error)

// Analyzer builds the co-change graph of a local repository.
type Analyzer interface {
	Analyze(ctx context.Context, path string) (*FileGraph, error)
}

// Cloner materializes a remote repository at a local path.
type Cloner interface {
	// Clone replaces whatever exists at path with a fresh clone of url.
	Clone(ctx context.Context, url, path string) error

	// Remove deletes the local clone at path.
	Remove(path string) error
}

// GraphWriter persists finalized graphs.
type GraphWriter interface {
	// WriteGraph writes a single graph document to path.
	WriteGraph(path string, graph *FileGraph) error

	// WriteGraphs writes an array of graph documents to path.
	WriteGraphs(path string, graphs []*FileGraph) error
}

// GraphStore is an optional secondary sink for finalized graphs.
type GraphStore interface {
	SaveGraph(ctx context.Context, graph *FileGraph) error
	Close() error
}

// PaperSource lists JOSS papers for a language.
type PaperSource interface {
	Papers(ctx context.Context, language string) ([]Paper, error)
}

// RepoStatsSource fetches repository metadata for a GitHub URL.
type RepoStatsSource interface {
	// Stats returns size in KB, commit count and contributor count.
	Stats(ctx context.Context, repoURL string) (sizeKB, commits, contributors int, err error)
}
