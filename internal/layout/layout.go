// Package layout places graph nodes in layers, top to bottom.
//
// Layered layout in four phases:
//
//  1. Cycle breaking: edges that close a cycle during a depth-first walk in
//     input order are reversed.
//  2. Ranking: longest path from the sources. Pinned nodes move to the last rank.
//  3. Ordering: edges spanning several ranks get zero-width dummy nodes, then
//     alternating barycenter sweeps reorder each rank to reduce crossings.
//  4. Coordinates: ranks are stacked RankSep apart and nodes packed NodeSep
//     apart (EdgeSep next to dummies), each rank centred on the widest one.
//
// All phases iterate slices in input order, so equal input gives equal output.
package layout

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrInvalidConfig is returned for negative spacing
	ErrInvalidConfig = errors.New("invalid layout config")
	// ErrTooLarge is returned when the graph exceeds Config.MaxNodes
	ErrTooLarge = errors.New("graph too large for layout")
	// ErrDuplicateNode is returned when two nodes share an id
	ErrDuplicateNode = errors.New("duplicate node id")
)

// Config holds spacing and limits
type Config struct {
	NodeSep float64 // horizontal gap between nodes in a rank
	RankSep float64 // vertical gap between ranks
	EdgeSep float64 // horizontal gap next to edge dummies

	// MaxNodes caps the node count. Zero means no cap.
	MaxNodes int

	// OrderingPasses is the number of down+up barycenter sweeps
	OrderingPasses int
}

// DefaultConfig returns the spacing used by the resource graph
func DefaultConfig() Config {
	return Config{
		NodeSep:        27,
		RankSep:        72,
		EdgeSep:        4,
		MaxNodes:       5000,
		OrderingPasses: 4,
	}
}

func (c Config) validate() error {
	if c.NodeSep < 0 || c.RankSep < 0 || c.EdgeSep < 0 {
		return fmt.Errorf("%w: spacing must not be negative", ErrInvalidConfig)
	}
	if c.OrderingPasses < 0 {
		return fmt.Errorf("%w: ordering passes must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Node is a box to place
type Node struct {
	ID     string
	Width  float64
	Height float64

	// PinToLastRank places the node on the terminal rank
	PinToLastRank bool
}

// Edge is a directed edge between node ids
type Edge struct {
	Source string
	Target string
}

// Point is a node centre
type Point struct {
	X float64
	Y float64
}

// Result holds the centre of every node and its rank
type Result struct {
	Centers map[string]Point
	Ranks   map[string]int
	Width   float64
	Height  float64
}

// Layout runs the layered layout. Edges with unknown endpoints and self
// loops are ignored.
func Layout(nodes []Node, edges []Edge, cfg Config) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.MaxNodes > 0 && len(nodes) > cfg.MaxNodes {
		return nil, fmt.Errorf("%w: %d nodes, limit %d", ErrTooLarge, len(nodes), cfg.MaxNodes)
	}

	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		if _, dup := index[n.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
		}
		index[n.ID] = i
	}

	dag := acyclicEdges(len(nodes), resolveEdges(index, edges))
	ranks := assignRanks(nodes, dag)
	g := buildLayers(nodes, dag, ranks)
	g.order(cfg.OrderingPasses)
	return g.coordinates(nodes, ranks, cfg), nil
}

type arc struct{ from, to int }

// resolveEdges maps ids to indexes, dropping unknown endpoints, self loops and duplicates
func resolveEdges(index map[string]int, edges []Edge) []arc {
	seen := make(map[arc]bool, len(edges))
	out := make([]arc, 0, len(edges))
	for _, e := range edges {
		from, ok1 := index[e.Source]
		to, ok2 := index[e.Target]
		if !ok1 || !ok2 || from == to {
			continue
		}
		a := arc{from, to}
		if seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

// acyclicEdges reverses back edges found by a depth-first walk in input order
func acyclicEdges(n int, arcs []arc) []arc {
	out := make([][]int, n)
	for i, a := range arcs {
		out[a.from] = append(out[a.from], i)
	}

	const (
		white = iota
		gray
		black
	)
	state := make([]uint8, n)
	reversed := make([]bool, len(arcs))

	var visit func(u int)
	visit = func(u int) {
		state[u] = gray
		for _, ei := range out[u] {
			v := arcs[ei].to
			switch state[v] {
			case gray:
				reversed[ei] = true
			case white:
				visit(v)
			}
		}
		state[u] = black
	}
	for u := 0; u < n; u++ {
		if state[u] == white {
			visit(u)
		}
	}

	dag := make([]arc, 0, len(arcs))
	seen := make(map[arc]bool, len(arcs))
	for i, a := range arcs {
		if reversed[i] {
			a = arc{a.to, a.from}
		}
		if seen[a] {
			continue
		}
		seen[a] = true
		dag = append(dag, a)
	}
	return dag
}

// assignRanks computes longest-path ranks with a Kahn walk, then pins nodes to the last rank
func assignRanks(nodes []Node, dag []arc) []int {
	n := len(nodes)
	ranks := make([]int, n)
	indeg := make([]int, n)
	out := make([][]int, n)
	for _, a := range dag {
		out[a.from] = append(out[a.from], a.to)
		indeg[a.to]++
	}

	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			queue = append(queue, i)
		}
	}
	for head := 0; head < len(queue); head++ {
		u := queue[head]
		for _, v := range out[u] {
			if ranks[u]+1 > ranks[v] {
				ranks[v] = ranks[u] + 1
			}
			indeg[v]--
			if indeg[v] == 0 {
				queue = append(queue, v)
			}
		}
	}

	maxRank := 0
	for _, r := range ranks {
		if r > maxRank {
			maxRank = r
		}
	}
	for i, node := range nodes {
		if node.PinToLastRank {
			ranks[i] = maxRank
		}
	}
	return ranks
}

// layered is the ordering graph: real nodes followed by dummies
type layered struct {
	width  []float64
	height []float64
	dummy  []bool
	up     [][]int
	down   [][]int
	layers [][]int
	pos    []int
}

func buildLayers(nodes []Node, dag []arc, ranks []int) *layered {
	g := &layered{}
	maxRank := 0
	for i, node := range nodes {
		g.add(node.Width, node.Height, false)
		if ranks[i] > maxRank {
			maxRank = ranks[i]
		}
	}
	g.layers = make([][]int, maxRank+1)
	rankOf := append([]int(nil), ranks...)
	for i := range nodes {
		g.layers[ranks[i]] = append(g.layers[ranks[i]], i)
	}

	for _, a := range dag {
		// Pinning can leave an edge pointing up or sideways; it takes no part in ordering.
		if rankOf[a.to] <= rankOf[a.from] {
			continue
		}
		prev := a.from
		for r := rankOf[a.from] + 1; r < rankOf[a.to]; r++ {
			d := g.add(0, 0, true)
			rankOf = append(rankOf, r)
			g.layers[r] = append(g.layers[r], d)
			g.link(prev, d)
			prev = d
		}
		g.link(prev, a.to)
	}

	g.pos = make([]int, len(g.width))
	for _, layer := range g.layers {
		for i, v := range layer {
			g.pos[v] = i
		}
	}
	return g
}

func (g *layered) add(w, h float64, dummy bool) int {
	g.width = append(g.width, w)
	g.height = append(g.height, h)
	g.dummy = append(g.dummy, dummy)
	g.up = append(g.up, nil)
	g.down = append(g.down, nil)
	return len(g.width) - 1
}

func (g *layered) link(from, to int) {
	g.down[from] = append(g.down[from], to)
	g.up[to] = append(g.up[to], from)
}

// order runs barycenter sweeps: down using upper neighbours, then up using lower ones
func (g *layered) order(passes int) {
	for p := 0; p < passes; p++ {
		for r := 1; r < len(g.layers); r++ {
			g.sortLayer(r, g.up)
		}
		for r := len(g.layers) - 2; r >= 0; r-- {
			g.sortLayer(r, g.down)
		}
	}
}

func (g *layered) sortLayer(r int, neighbours [][]int) {
	layer := g.layers[r]
	bary := make(map[int]float64, len(layer))
	for _, v := range layer {
		adj := neighbours[v]
		if len(adj) == 0 {
			bary[v] = float64(g.pos[v])
			continue
		}
		sum := 0.0
		for _, u := range adj {
			sum += float64(g.pos[u])
		}
		bary[v] = sum / float64(len(adj))
	}
	sort.SliceStable(layer, func(i, j int) bool {
		return bary[layer[i]] < bary[layer[j]]
	})
	for i, v := range layer {
		g.pos[v] = i
	}
}

func (g *layered) sep(v int, cfg Config) float64 {
	if g.dummy[v] {
		return cfg.EdgeSep
	}
	return cfg.NodeSep
}

func (g *layered) coordinates(nodes []Node, ranks []int, cfg Config) *Result {
	widths := make([]float64, len(g.layers))
	heights := make([]float64, len(g.layers))
	maxWidth := 0.0
	for r, layer := range g.layers {
		w := 0.0
		for i, v := range layer {
			w += g.width[v]
			if i > 0 {
				w += g.sep(layer[i-1], cfg)/2 + g.sep(v, cfg)/2
			}
			heights[r] = math.Max(heights[r], g.height[v])
		}
		widths[r] = w
		maxWidth = math.Max(maxWidth, w)
	}

	res := &Result{
		Centers: make(map[string]Point, len(nodes)),
		Ranks:   make(map[string]int, len(nodes)),
		Width:   maxWidth,
	}

	y := 0.0
	for r, layer := range g.layers {
		cy := y + heights[r]/2
		x := (maxWidth - widths[r]) / 2
		for i, v := range layer {
			if i > 0 {
				x += g.sep(layer[i-1], cfg)/2 + g.sep(v, cfg)/2
			}
			if !g.dummy[v] {
				res.Centers[nodes[v].ID] = Point{X: x + g.width[v]/2, Y: cy}
				res.Ranks[nodes[v].ID] = ranks[v]
			}
			x += g.width[v]
		}
		y += heights[r]
		if r < len(g.layers)-1 {
			y += cfg.RankSep
		}
	}
	res.Height = y
	return res
}

// Grid places nodes row by row in a square-ish grid. It never fails and is
// used when Layout cannot run.
func Grid(nodes []Node, cfg Config) *Result {
	res := &Result{
		Centers: make(map[string]Point, len(nodes)),
		Ranks:   make(map[string]int, len(nodes)),
	}
	if len(nodes) == 0 {
		return res
	}

	cellW, cellH := 0.0, 0.0
	for _, n := range nodes {
		cellW = math.Max(cellW, n.Width)
		cellH = math.Max(cellH, n.Height)
	}
	nodeSep := math.Max(cfg.NodeSep, 0)
	rankSep := math.Max(cfg.RankSep, 0)
	cols := int(math.Ceil(math.Sqrt(float64(len(nodes)))))

	for i, n := range nodes {
		row, col := i/cols, i%cols
		res.Centers[n.ID] = Point{
			X: float64(col)*(cellW+nodeSep) + cellW/2,
			Y: float64(row)*(cellH+rankSep) + cellH/2,
		}
		res.Ranks[n.ID] = row
	}

	rows := (len(nodes) + cols - 1) / cols
	res.Width = float64(cols)*cellW + float64(cols-1)*nodeSep
	res.Height = float64(rows)*cellH + float64(rows-1)*rankSep
	return res
}
