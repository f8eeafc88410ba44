package graph

import (
	"github.com/MyCarrier-DevOps/cochange/internal/domain"
)

// Session is the walk state of one repository analysis: the rename history and
// the era accumulator. Commits must be applied in chronological order.
type Session struct {
	resolver *IdentityResolver
	builder  *Builder
}

// NewSession starts an analysis of repo with the given segmentation policy.
func NewSession(repo string, policy domain.EraPolicy) *Session {
	return &Session{
		resolver: NewIdentityResolver(),
		builder:  NewBuilder(repo, policy),
	}
}

// Apply resolves the identities of one commit's changes and ingests them.
func (s *Session) Apply(diff *domain.CommitDiff) CommitResult {
	files := s.resolver.Canonicalize(diff)
	return s.builder.AddCommit(diff.Hash, files)
}

// Resolver exposes the rename history accumulated so far.
func (s *Session) Resolver() *IdentityResolver {
	return s.resolver
}

// Builder exposes the era accumulator.
func (s *Session) Builder() *Builder {
	return s.builder
}

// Finalize returns the graph of every commit applied so far.
func (s *Session) Finalize() *domain.FileGraph {
	return s.builder.Finalize()
}
