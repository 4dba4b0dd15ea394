package domain

// Graph is the laid-out resource graph
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// GraphStats summarizes a graph's shape
type GraphStats struct {
	Nodes  int                  `json:"nodes" yaml:"nodes"`
	Edges  int                  `json:"edges" yaml:"edges"`
	Roots  int                  `json:"roots" yaml:"roots"`
	Leaves int                  `json:"leaves" yaml:"leaves"`
	ByKind map[ResourceKind]int `json:"by_kind" yaml:"by_kind"`
}

// Node returns the node with the given id
func (g *Graph) Node(id string) (*Node, bool) {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i], true
		}
	}
	return nil, false
}

// Stats counts nodes, edges, roots (no incoming edges), leaves (no outgoing edges) and nodes per kind
func (g *Graph) Stats() GraphStats {
	stats := GraphStats{
		Nodes:  len(g.Nodes),
		Edges:  len(g.Edges),
		ByKind: make(map[ResourceKind]int),
	}

	hasIn := make(map[string]bool, len(g.Nodes))
	hasOut := make(map[string]bool, len(g.Nodes))
	for _, e := range g.Edges {
		hasOut[e.Source] = true
		hasIn[e.Target] = true
	}

	for _, n := range g.Nodes {
		stats.ByKind[n.Kind]++
		if !hasIn[n.ID] {
			stats.Roots++
		}
		if !hasOut[n.ID] {
			stats.Leaves++
		}
	}

	return stats
}
