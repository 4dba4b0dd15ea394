// Package partition splits the visible resources into groups that are
// drawn as separate graphs: one per seed, or one per metrics view.
//
// Both partitioners remember which group each resource landed in, and the
// label of every group, in a Cache so that groups stay stable when their
// anchor disappears between snapshots.
package partition

import (
	"resourcegraph/internal/domain"
	"resourcegraph/internal/seed"
)

// Partition modes
const (
	ModeSeeds   = "seeds"
	ModeMetrics = "metrics"
)

// Cache stores group assignments and labels
type Cache interface {
	Assignment(resourceID string) (string, bool)
	SetAssignment(resourceID, groupID string)
	Label(groupID string) (string, bool)
	SetLabel(groupID, label string)
}

// KindFilter keeps groups holding at least one resource of a kind.
// FilterDashboards matches explores and canvases.
type KindFilter string

// FilterDashboards matches both dashboard kinds
const FilterDashboards KindFilter = "dashboards"

// FilterForToken returns the filter matching a kind token
func FilterForToken(t seed.KindToken) KindFilter {
	switch t {
	case seed.TokenDashboards:
		return FilterDashboards
	case seed.TokenMetrics:
		return KindFilter(domain.KindMetricsView)
	case seed.TokenModels:
		return KindFilter(domain.KindModel)
	case seed.TokenSources:
		return KindFilter(domain.KindSource)
	case seed.TokenConnector:
		return KindFilter(domain.KindConnector)
	}
	return ""
}

func (f KindFilter) matches(r *domain.Resource) bool {
	kind := domain.CoerceKind(r)
	if f == FilterDashboards {
		return kind.IsDashboard()
	}
	return kind == domain.ResourceKind(f)
}

// visibleSet indexes the visible resources by id, keeping input order
type visibleSet struct {
	resources []*domain.Resource
	index     map[string]int
}

func newVisibleSet(resources []*domain.Resource) *visibleSet {
	v := &visibleSet{resources: domain.VisibleResources(resources)}
	v.index = make(map[string]int, len(v.resources))
	for i, r := range v.resources {
		v.index[r.ID()] = i
	}
	return v
}

// edges returns one edge per distinct ref between visible resources
func (v *visibleSet) edges() []domain.Edge {
	var edges []domain.Edge
	seen := make(map[string]bool)
	for _, r := range v.resources {
		target := r.ID()
		for _, ref := range r.Refs {
			source, ok := domain.CreateResourceID(ref)
			if !ok || source == target {
				continue
			}
			if _, present := v.index[source]; !present {
				continue
			}
			e := domain.NewEdge(source, target)
			if !seen[e.ID] {
				seen[e.ID] = true
				edges = append(edges, e)
			}
		}
	}
	return edges
}

// members returns the visible resources in ids, in input order
func (v *visibleSet) members(ids map[string]bool) []*domain.Resource {
	out := make([]*domain.Resource, 0, len(ids))
	for _, r := range v.resources {
		if ids[r.ID()] {
			out = append(out, r)
		}
	}
	return out
}

// builder accumulates groups before they are materialized
type builder struct {
	ids    []string
	groups map[string]*pending
}

type pending struct {
	label   string
	origin  domain.GroupOrigin
	members map[string]bool
}

func newBuilder() *builder {
	return &builder{groups: make(map[string]*pending)}
}

func (b *builder) add(id, label string, origin domain.GroupOrigin) *pending {
	p := &pending{label: label, origin: origin, members: make(map[string]bool)}
	b.ids = append(b.ids, id)
	b.groups[id] = p
	return p
}

func (b *builder) has(id string) bool {
	_, ok := b.groups[id]
	return ok
}

// build materializes groups and records assignments and labels in cache
func (b *builder) build(v *visibleSet, cache Cache) []*domain.Group {
	groups := make([]*domain.Group, 0, len(b.ids))
	for _, id := range b.ids {
		p := b.groups[id]
		g := &domain.Group{
			ID:        id,
			Label:     p.label,
			Origin:    p.origin,
			Resources: v.members(p.members),
		}
		groups = append(groups, g)
		if cache == nil {
			continue
		}
		cache.SetLabel(g.ID, g.Label)
		for _, r := range g.Resources {
			cache.SetAssignment(r.ID(), g.ID)
		}
	}
	return groups
}
