// Package graph accumulates per-era co-change statistics and finalizes them into a FileGraph.
// Nothing in this package performs I/O; the commit walker feeds it one commit at a time.
package graph

import (
	"sort"

	"github.com/MyCarrier-DevOps/cochange/internal/domain"
)

type nodeBuilder struct {
	path        string
	additions   int
	deletions   int
	commitCount int

	// edges maps neighbour path to co-change weight.
	edges map[string]int
}

// totalWeight is the sum of all outgoing edge weights.
func (n *nodeBuilder) totalWeight() int {
	total := 0
	for _, w := range n.edges {
		total += w
	}
	return total
}

// eraBuilder is the mutable accumulation state of one era.
type eraBuilder struct {
	index       int
	resetCommit *string
	commits     int
	nodes       map[string]*nodeBuilder
}

func newEraBuilder(index int, resetCommit *string) *eraBuilder {
	return &eraBuilder{
		index:       index,
		resetCommit: resetCommit,
		nodes:       make(map[string]*nodeBuilder),
	}
}

func (e *eraBuilder) node(path string) *nodeBuilder {
	n, ok := e.nodes[path]
	if !ok {
		n = &nodeBuilder{path: path, edges: make(map[string]int)}
		e.nodes[path] = n
	}
	return n
}

// ingest adds one commit's changed files to the era.
// Returns the deduplicated, sorted path list of the commit.
func (e *eraBuilder) ingest(files []domain.ChangedFile) []string {
	merged := make(map[string]domain.ChangedFile, len(files))
	for _, f := range files {
		m := merged[f.Path]
		m.Path = f.Path
		m.Additions += f.Additions
		m.Deletions += f.Deletions
		m.Deleted = m.Deleted || f.Deleted
		merged[f.Path] = m
	}

	paths := make([]string, 0, len(merged))
	for p := range merged {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		f := merged[p]
		n := e.node(p)
		n.additions += f.Additions
		n.deletions += f.Deletions
		n.commitCount++
	}

	for i := 0; i < len(paths); i++ {
		src := e.nodes[paths[i]]
		for j := i + 1; j < len(paths); j++ {
			dst := e.nodes[paths[j]]
			src.edges[dst.path]++
			dst.edges[src.path]++
		}
	}

	e.commits++
	return paths
}

// totalEdgeWeight sums every half-edge of the era. Each undirected pair counts twice.
func (e *eraBuilder) totalEdgeWeight() int {
	total := 0
	for _, n := range e.nodes {
		total += n.totalWeight()
	}
	return total
}

// topFiles returns up to k paths ranked by summed edge weight, ties by path.
func (e *eraBuilder) topFiles(k int) []string {
	type ranked struct {
		path   string
		weight int
	}
	all := make([]ranked, 0, len(e.nodes))
	for p, n := range e.nodes {
		all = append(all, ranked{path: p, weight: n.totalWeight()})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].weight != all[j].weight {
			return all[i].weight > all[j].weight
		}
		return all[i].path < all[j].path
	})
	if len(all) > k {
		all = all[:k]
	}
	out := make([]string, len(all))
	for i, r := range all {
		out[i] = r.path
	}
	return out
}

// finalize freezes the era into its exported shape.
func (e *eraBuilder) finalize() domain.Era {
	nodes := make([]domain.FileNode, 0, len(e.nodes))
	for _, nb := range e.nodes {
		edges := make([]domain.Edge, 0, len(nb.edges))
		for target, w := range nb.edges {
			targetCommits := 0
			if t, ok := e.nodes[target]; ok {
				targetCommits = t.commitCount
			}
			edges = append(edges, domain.Edge{
				Target:        target,
				Weight:        w,
				TargetCommits: targetCommits,
			})
		}
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].Weight != edges[j].Weight {
				return edges[i].Weight > edges[j].Weight
			}
			return edges[i].Target < edges[j].Target
		})

		nodes = append(nodes, domain.FileNode{
			Path:        nb.path,
			Additions:   nb.additions,
			Deletions:   nb.deletions,
			CommitCount: nb.commitCount,
			Edges:       edges,
		})
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].CommitCount != nodes[j].CommitCount {
			return nodes[i].CommitCount > nodes[j].CommitCount
		}
		return nodes[i].Path < nodes[j].Path
	})

	return domain.Era{
		EraIndex:     e.index,
		CommitsInEra: e.commits,
		ResetCommit:  e.resetCommit,
		Nodes:        nodes,
	}
}
