package graph

import (
	"github.com/MyCarrier-DevOps/cochange/internal/domain"
)

// Builder accumulates commits into eras and produces the final FileGraph.
// A Builder is owned by a single analysis session and is not safe for concurrent use.
type Builder struct {
	repo      string
	segmenter *Segmenter

	closed  []domain.Era
	current *eraBuilder

	totalCommits int
}

// CommitResult describes the effect of one AddCommit call.
type CommitResult struct {
	// Counted is false for commits without changed files.
	Counted bool

	// EraClosed is true when the commit ended the era it was ingested into.
	EraClosed bool

	// PairsAdded is the number of undirected co-change pairs the commit contributed.
	PairsAdded int
}

// NewBuilder returns a Builder with one open, empty era.
func NewBuilder(repo string, policy domain.EraPolicy) *Builder {
	return &Builder{
		repo:      repo,
		segmenter: NewSegmenter(policy),
		current:   newEraBuilder(0, nil),
	}
}

// AddCommit ingests the changed files of one commit into the open era and then
// closes the era if the segmentation rule fires. The closing commit stays in the
// closed era; the next era starts empty with hash as its reset commit.
func (b *Builder) AddCommit(hash string, files []domain.ChangedFile) CommitResult {
	if len(files) == 0 {
		return CommitResult{}
	}

	b.totalCommits++
	paths := b.current.ingest(files)
	res := CommitResult{
		Counted:    true,
		PairsAdded: len(paths) * (len(paths) - 1) / 2,
	}

	if b.segmenter.shouldClose(b.current, b.ErasCreated(), files) {
		b.closed = append(b.closed, b.current.finalize())
		reset := hash
		b.current = newEraBuilder(b.current.index+1, &reset)
		res.EraClosed = true
	}
	return res
}

// ErasCreated counts the closed eras plus the open one.
func (b *Builder) ErasCreated() int {
	return len(b.closed) + 1
}

// TotalCommits returns the number of commits that changed at least one file.
func (b *Builder) TotalCommits() int {
	return b.totalCommits
}

// CurrentEraCommits returns the number of commits ingested into the open era.
func (b *Builder) CurrentEraCommits() int {
	return b.current.commits
}

// CurrentEdgeWeight returns the summed half-edge weight of the open era.
func (b *Builder) CurrentEdgeWeight() int {
	return b.current.totalEdgeWeight()
}

// Finalize returns the exported graph. The open era is included even when empty.
// Edge target commit counts are resolved here, after every commit has been ingested.
func (b *Builder) Finalize() *domain.FileGraph {
	eras := make([]domain.Era, 0, len(b.closed)+1)
	eras = append(eras, b.closed...)
	eras = append(eras, b.current.finalize())

	return &domain.FileGraph{
		Repo:                 b.repo,
		TotalCommitsAnalyzed: b.totalCommits,
		Eras:                 eras,
	}
}
