package graph

import (
	"math"

	"github.com/MyCarrier-DevOps/cochange/internal/domain"
)

// Segmenter decides when a burst of deletions among the most coupled files
// ends the current era.
type Segmenter struct {
	policy domain.EraPolicy
}

// NewSegmenter returns a segmenter for policy. Non-positive fields fall back to defaults.
func NewSegmenter(policy domain.EraPolicy) *Segmenter {
	def := domain.DefaultEraPolicy()
	if policy.MinEraCommits < 0 {
		policy.MinEraCommits = def.MinEraCommits
	}
	if policy.MaxEras <= 0 {
		policy.MaxEras = def.MaxEras
	}
	if policy.TopFiles <= 0 {
		policy.TopFiles = def.TopFiles
	}
	if policy.DeletionRatio <= 0 || policy.DeletionRatio > 1 {
		policy.DeletionRatio = def.DeletionRatio
	}
	return &Segmenter{policy: policy}
}

// Policy returns the effective policy.
func (s *Segmenter) Policy() domain.EraPolicy {
	return s.policy
}

// DeletionThreshold is the number of top files one commit must delete to close an era.
func (s *Segmenter) DeletionThreshold() int {
	return int(math.Ceil(s.policy.DeletionRatio * float64(s.policy.TopFiles)))
}

// shouldClose reports whether era must close after ingesting a commit with files.
// erasCreated counts every era opened so far, including the current one.
func (s *Segmenter) shouldClose(era *eraBuilder, erasCreated int, files []domain.ChangedFile) bool {
	if era.commits <= s.policy.MinEraCommits {
		return false
	}
	if erasCreated > s.policy.MaxEras {
		return false
	}

	top := era.topFiles(s.policy.TopFiles)
	if len(top) < s.policy.TopFiles {
		return false
	}
	important := make(map[string]struct{}, len(top))
	for _, p := range top {
		important[p] = struct{}{}
	}

	deleted := 0
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		if !f.Deleted {
			continue
		}
		if _, dup := seen[f.Path]; dup {
			continue
		}
		seen[f.Path] = struct{}{}
		if _, ok := important[f.Path]; ok {
			deleted++
		}
	}
	return deleted >= s.DeletionThreshold()
}
