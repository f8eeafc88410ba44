// Package domain defines the core business entities and interfaces for cochange.
package domain

// FileGraph is the finalized co-change graph of one repository.
// It is the document handed to the JSON writer and the graph stores.
type FileGraph struct {
	// Repo is the repository name, owner/repo when an origin remote exists.
	Repo string `json:"repo"`

	// TotalCommitsAnalyzed counts the commits that changed at least one file.
	TotalCommitsAnalyzed int `json:"total_commits_analyzed"`

	// Eras partition the analyzed history in chronological order.
	Eras []Era `json:"eras"`
}

// Era is a contiguous span of commits sharing one accumulation state.
type Era struct {
	EraIndex     int `json:"era_index"`
	CommitsInEra int `json:"commits_in_era"`

	// ResetCommit is the hash of the commit that closed the previous era.
	// It is nil for the first era.
	ResetCommit *string `json:"reset_commit"`

	// Nodes are ordered by CommitCount descending, then Path ascending.
	Nodes []FileNode `json:"nodes"`
}

// FileNode holds the churn statistics of one canonical path within an era.
type FileNode struct {
	Path        string `json:"path"`
	Additions   int    `json:"additions"`
	Deletions   int    `json:"deletions"`
	CommitCount int    `json:"commit_count"`
	Edges       []Edge `json:"edges"`
}

// Edge is one direction of a co-change link between two files.
type Edge struct {
	Target string `json:"target"`

	// Weight is the number of commits in which both endpoints changed.
	Weight int `json:"weight"`

	// TargetCommits is the target's commit count at the end of the era.
	TargetCommits int `json:"target_commits"`
}

// FileChange is one path's change within a single commit, before identity resolution.
type FileChange struct {
	// OldPath is the path before the commit. Empty for additions.
	OldPath string

	// Path is the path after the commit, or the removed path for deletions.
	Path string

	Additions int
	Deletions int
	Deleted   bool
}

// RenamePair records a path move reported by the diff of one commit.
type RenamePair struct {
	From string
	To   string
}

// CommitDiff is the output of the diff extractor for one commit.
type CommitDiff struct {
	Hash    string
	Files   []FileChange
	Renames []RenamePair
}

// ChangedFile is one file's change within one commit after identity resolution.
type ChangedFile struct {
	Path      string
	Additions int
	Deletions int
	Deleted   bool
}

// EraPolicy holds the constants of the era segmentation heuristic.
type EraPolicy struct {
	// MinEraCommits is the number of commits an era must exceed before it may close.
	MinEraCommits int

	// MaxEras is the era count past which no era closes again. Counting the open era,
	// a repository ends with at most MaxEras+1 eras.
	MaxEras int

	// TopFiles is the size of the "important files" set ranked by edge weight.
	TopFiles int

	// DeletionRatio is the share of TopFiles that one commit must delete to close an era.
	DeletionRatio float64
}

// Default era segmentation constants.
const (
	DefaultMinEraCommits = 10
	DefaultMaxEras       = 10
	DefaultTopFiles      = 10
	DefaultDeletionRatio = 0.4
)

// DefaultEraPolicy returns the policy used when no override is configured.
func DefaultEraPolicy() EraPolicy {
	return EraPolicy{
		MinEraCommits: DefaultMinEraCommits,
		MaxEras:       DefaultMaxEras,
		TopFiles:      DefaultTopFiles,
		DeletionRatio: DefaultDeletionRatio,
	}
}

// Paper is a JOSS publication with its software repository.
type Paper struct {
	Title              string `json:"title"`
	DOI                string `json:"doi"`
	SoftwareRepository string `json:"software_repository"`
}

// RepoStats holds repository metadata collected from the GitHub API.
type RepoStats struct {
	Title            string `json:"title"`
	RepoURL          string `json:"repo_url"`
	SizeKB           int    `json:"size_kb"`
	CommitCount      int    `json:"commit_count"`
	ContributorCount int    `json:"contributor_count"`
}

// RepoTarget is one entry of a batch input file.
// Either field may carry the remote URL depending on which collector produced the file.
type RepoTarget struct {
	RepoURL            string `json:"repo_url,omitempty"`
	SoftwareRepository string `json:"software_repository,omitempty"`
}

// URL returns the remote locator of the target.
func (t RepoTarget) URL() string {
	if t.RepoURL != "" {
		return t.RepoURL
	}
	return t.SoftwareRepository
}

// BatchInput contains the parameters of a clone-and-analyze run.
type BatchInput struct {
	// ClonePath is the single local directory every repository is cloned into.
	ClonePath string

	Targets []RepoTarget
}

// DefaultClonePath is where batch runs materialize each remote repository.
const DefaultClonePath = "/tmp/repoToAnalyse"

// DefaultProgressInterval is how many walked commits separate two progress log lines.
const DefaultProgressInterval = 100
