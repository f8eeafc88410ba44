package git

import (
	"container/heap"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
)

type commitNode struct {
	hash    plumbing.Hash
	when    time.Time
	parents []plumbing.Hash
}

// commitHeap pops the oldest commit first; equal timestamps pop in hash order.
type commitHeap []*commitNode

func (h commitHeap) Len() int { return len(h) }

func (h commitHeap) Less(i, j int) bool {
	if !h[i].when.Equal(h[j].when) {
		return h[i].when.Before(h[j].when)
	}
	return h[i].hash.String() < h[j].hash.String()
}

func (h commitHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *commitHeap) Push(x any) { *h = append(*h, x.(*commitNode)) }

func (h *commitHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	*h = old[:len(old)-1]
	return n
}

// chronological orders commits oldest first by committer time while never
// emitting a commit before any of its parents.
func chronological(nodes map[plumbing.Hash]*commitNode) []string {
	pending := make(map[plumbing.Hash]int, len(nodes))
	children := make(map[plumbing.Hash][]*commitNode, len(nodes))
	ready := &commitHeap{}

	for _, n := range nodes {
		for _, p := range n.parents {
			if _, ok := nodes[p]; !ok {
				continue
			}
			pending[n.hash]++
			children[p] = append(children[p], n)
		}
		if pending[n.hash] == 0 {
			*ready = append(*ready, n)
		}
	}
	heap.Init(ready)

	ordered := make([]string, 0, len(nodes))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(*commitNode)
		ordered = append(ordered, n.hash.String())
		for _, child := range children[n.hash] {
			pending[child.hash]--
			if pending[child.hash] == 0 {
				heap.Push(ready, child)
			}
		}
	}
	return ordered
}
