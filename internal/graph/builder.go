// Package graph builds the laid-out resource dependency graph from a
// snapshot of runtime resources.
package graph

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"resourcegraph/internal/apperr"
	"resourcegraph/internal/domain"
	"resourcegraph/internal/layout"
	"resourcegraph/internal/metrics"
)

// Node sizing
const (
	MinNodeWidth      = 160.0
	MaxNodeWidth      = 320.0
	NodeHeight        = 56.0
	averageCharWidth  = 8.5
	horizontalPadding = 72.0
)

// PositionCache stores node positions per namespace
type PositionCache interface {
	Position(ns, nodeID string) (domain.Position, bool)
	SetPosition(ns, nodeID string, pos domain.Position)
}

// Options control a single build
type Options struct {
	// PositionNamespace scopes cached positions. Blank means domain.DefaultCacheNamespace.
	PositionNamespace string

	// IgnoreCache discards cached positions and uses the computed layout.
	// Computed positions are still written back.
	IgnoreCache bool
}

// Builder turns resources into a Graph
type Builder struct {
	cache    PositionCache
	layout   layout.Config
	reporter *apperr.Reporter
	logger   *slog.Logger
}

// BuilderOption configures a Builder
type BuilderOption func(*Builder)

// WithLayoutConfig overrides the layout spacing
func WithLayoutConfig(cfg layout.Config) BuilderOption {
	return func(b *Builder) { b.layout = cfg }
}

// WithReporter sets the reporter notified of recoverable failures
func WithReporter(r *apperr.Reporter) BuilderOption {
	return func(b *Builder) { b.reporter = r }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder creates a builder. cache may be nil, in which case every build
// uses freshly computed positions.
func NewBuilder(cache PositionCache, opts ...BuilderOption) *Builder {
	b := &Builder{
		cache:  cache,
		layout: layout.DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build computes nodes, edges and positions for resources. It never fails:
// bad resources are skipped and a failed layout falls back to a grid, both
// reported through the Reporter.
func (b *Builder) Build(resources []*domain.Resource, opts Options) *domain.Graph {
	start := time.Now()
	ns := strings.TrimSpace(opts.PositionNamespace)
	if ns == "" {
		ns = domain.DefaultCacheNamespace
	}

	skipped := 0
	visible := make([]*domain.Resource, 0, len(resources))
	index := make(map[string]int, len(resources))
	for _, r := range resources {
		if r == nil || !r.Name.Complete() {
			skipped++
			continue
		}
		if !domain.IsVisible(r) {
			continue
		}
		id := r.ID()
		if _, dup := index[id]; dup {
			continue
		}
		index[id] = len(visible)
		visible = append(visible, r)
	}
	if skipped > 0 {
		b.reporter.Report(apperr.ResourceData("graph.build",
			fmt.Errorf("skipped %d resources with incomplete identity", skipped)))
	}

	consumers := countConsumers(resources)

	graph := &domain.Graph{
		Nodes: make([]domain.Node, 0, len(visible)),
		Edges: buildEdges(visible, index),
	}
	for _, r := range visible {
		id := r.ID()
		width := EstimateNodeWidth(r.Name.Name)
		meta := ExtractMetadata(r)
		meta.AlertCount = consumers[id].alerts
		meta.APICount = consumers[id].apis
		graph.Nodes = append(graph.Nodes, domain.Node{
			ID:       id,
			Kind:     domain.CoerceKind(r),
			Label:    r.Name.Name,
			Width:    width,
			Height:   NodeHeight,
			Metadata: meta,
			Resource: r,
		})
	}

	centers := b.runLayout(graph)
	for i := range graph.Nodes {
		n := &graph.Nodes[i]
		c := centers[n.ID]
		pos := domain.CenteredAt(c.X, c.Y, n.Width, n.Height)
		if b.cache != nil {
			if !opts.IgnoreCache {
				if cached, ok := b.cache.Position(ns, n.ID); ok {
					pos = cached
				}
			}
			b.cache.SetPosition(ns, n.ID, pos)
		}
		n.Position = pos
	}

	metrics.ObserveBuild(time.Since(start), len(graph.Nodes), len(graph.Edges))
	b.logger.Debug("graph built",
		"namespace", ns,
		"nodes", len(graph.Nodes),
		"edges", len(graph.Edges),
		"skipped", skipped,
	)
	return graph
}

// buildEdges links each ref to its dependent. Edges are grouped by upstream
// resource in the order upstreams are first referenced.
func buildEdges(visible []*domain.Resource, index map[string]int) []domain.Edge {
	var order []string
	dependents := make(map[string][]string)
	seen := make(map[string]bool)

	for _, r := range visible {
		target := r.ID()
		for _, ref := range r.Refs {
			source, ok := domain.CreateResourceID(ref)
			if !ok || source == target {
				continue
			}
			if _, present := index[source]; !present {
				continue
			}
			id := domain.EdgeID(source, target)
			if seen[id] {
				continue
			}
			seen[id] = true
			if _, ok := dependents[source]; !ok {
				order = append(order, source)
			}
			dependents[source] = append(dependents[source], target)
		}
	}

	edges := make([]domain.Edge, 0, len(seen))
	for _, source := range order {
		for _, target := range dependents[source] {
			edges = append(edges, domain.NewEdge(source, target))
		}
	}
	return edges
}

func (b *Builder) runLayout(g *domain.Graph) map[string]layout.Point {
	nodes := make([]layout.Node, len(g.Nodes))
	for i, n := range g.Nodes {
		nodes[i] = layout.Node{
			ID:            n.ID,
			Width:         n.Width,
			Height:        n.Height,
			PinToLastRank: n.Kind.IsDashboard(),
		}
	}
	edges := make([]layout.Edge, len(g.Edges))
	for i, e := range g.Edges {
		edges[i] = layout.Edge{Source: e.Source, Target: e.Target}
	}

	res, err := layout.Layout(nodes, edges, b.layout)
	if err != nil {
		metrics.LayoutFallback()
		b.reporter.Report(apperr.Layout("graph.layout", err))
		res = layout.Grid(nodes, b.layout)
	}
	return res.Centers
}

// EstimateNodeWidth sizes a node to fit its label on one line
func EstimateNodeWidth(label string) float64 {
	text := strings.TrimSpace(label)
	if text == "" {
		return MinNodeWidth
	}
	longest := 0
	for _, word := range strings.Fields(text) {
		longest = max(longest, utf8.RuneCountInString(word))
	}
	chars := max(utf8.RuneCountInString(text), longest)
	width := math.Round(horizontalPadding + float64(chars)*averageCharWidth)
	return math.Max(MinNodeWidth, math.Min(MaxNodeWidth, width))
}
