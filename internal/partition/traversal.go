package partition

import "resourcegraph/internal/domain"

// Traversal is the set of nodes reached from a set of start nodes, and the
// edges crossed to reach them
type Traversal struct {
	Visited map[string]bool
	EdgeIDs map[string]bool
}

func newTraversal() *Traversal {
	return &Traversal{
		Visited: make(map[string]bool),
		EdgeIDs: make(map[string]bool),
	}
}

// TraverseUpstream follows edges against their direction from every start
// node. Start nodes are always visited, even when no edge mentions them.
func TraverseUpstream(start []string, edges []domain.Edge) *Traversal {
	incoming := make(map[string][]int)
	for i, e := range edges {
		incoming[e.Target] = append(incoming[e.Target], i)
	}
	t := newTraversal()
	t.walk(start, edges, incoming, func(e domain.Edge) string { return e.Source })
	return t
}

// TraverseDownstream follows edges in their direction from every start node
func TraverseDownstream(start []string, edges []domain.Edge) *Traversal {
	outgoing := make(map[string][]int)
	for i, e := range edges {
		outgoing[e.Source] = append(outgoing[e.Source], i)
	}
	t := newTraversal()
	t.walk(start, edges, outgoing, func(e domain.Edge) string { return e.Target })
	return t
}

// TraverseBidirectional is the union of the upstream and downstream traversals.
// It does not reach siblings that only share an ancestor with a start node.
func TraverseBidirectional(start []string, edges []domain.Edge) *Traversal {
	up := TraverseUpstream(start, edges)
	down := TraverseDownstream(start, edges)
	for id := range down.Visited {
		up.Visited[id] = true
	}
	for id := range down.EdgeIDs {
		up.EdgeIDs[id] = true
	}
	return up
}

func (t *Traversal) walk(start []string, edges []domain.Edge, adj map[string][]int, next func(domain.Edge) string) {
	queue := append([]string(nil), start...)
	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		if t.Visited[cur] {
			continue
		}
		t.Visited[cur] = true
		for _, i := range adj[cur] {
			t.EdgeIDs[edges[i].ID] = true
			if n := next(edges[i]); !t.Visited[n] {
				queue = append(queue, n)
			}
		}
	}
}
