package graph

import (
	"sort"

	"github.com/MyCarrier-DevOps/cochange/internal/domain"
)

// IdentityResolver maps every path seen in a rename to the latest name in its chain.
type IdentityResolver struct {
	current map[string]string
}

// NewIdentityResolver returns an empty resolver. Every path resolves to itself.
func NewIdentityResolver() *IdentityResolver {
	return &IdentityResolver{current: make(map[string]string)}
}

// Observe records that oldPath was renamed to newPath.
func (r *IdentityResolver) Observe(oldPath, newPath string) {
	r.current[oldPath] = newPath
	r.current[newPath] = newPath
}

// Resolve returns the most recent known name of path.
func (r *IdentityResolver) Resolve(path string) string {
	// Each Observe makes its target a fixed point, so chains end.
	// The step bound only guards against a corrupted map.
	for steps := 0; steps <= len(r.current); steps++ {
		next, ok := r.current[path]
		if !ok || next == path {
			return path
		}
		path = next
	}
	return path
}

// Renames returns the number of paths that resolve to another name.
func (r *IdentityResolver) Renames() int {
	n := 0
	for k, v := range r.current {
		if k != v {
			n++
		}
	}
	return n
}

// Canonicalize applies the renames of diff and returns its files keyed by canonical path.
// Renames are recorded before any path is resolved so a file renamed and edited in the
// same commit is counted once under its new name. The result is sorted by path.
func (r *IdentityResolver) Canonicalize(diff *domain.CommitDiff) []domain.ChangedFile {
	for _, rn := range diff.Renames {
		if rn.From == "" || rn.To == "" || rn.From == rn.To {
			continue
		}
		r.Observe(rn.From, rn.To)
	}

	byPath := make(map[string]*domain.ChangedFile, len(diff.Files))
	for _, fc := range diff.Files {
		path := r.Resolve(fc.Path)
		cf, ok := byPath[path]
		if !ok {
			cf = &domain.ChangedFile{Path: path}
			byPath[path] = cf
		}
		cf.Additions += fc.Additions
		cf.Deletions += fc.Deletions
		cf.Deleted = cf.Deleted || fc.Deleted
	}

	files := make([]domain.ChangedFile, 0, len(byPath))
	for _, cf := range byPath {
		files = append(files, *cf)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files
}
