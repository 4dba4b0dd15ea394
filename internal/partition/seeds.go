package partition

import (
	"resourcegraph/internal/domain"
	"resourcegraph/internal/metrics"
	"resourcegraph/internal/seed"
)

// SeedOptions configure BySeeds
type SeedOptions struct {
	// Cache may be nil
	Cache Cache

	// FilterKind drops groups with no resource of the kind. Empty keeps all.
	FilterKind KindFilter
}

// BySeeds builds one group per seed holding the seed, everything upstream of
// it and everything downstream of it. Resources outside every closure rejoin
// the group they were last assigned to; when that group no longer exists it
// is recreated as a recovered group.
//
// Seeds are deduplicated by id. A seed that matches no visible resource
// produces no group.
func BySeeds(resources []*domain.Resource, seeds []seed.Seed, opts SeedOptions) []*domain.Group {
	metrics.Partition(ModeSeeds)

	v := newVisibleSet(resources)
	edges := v.edges()
	b := newBuilder()
	assigned := make(map[string]bool)

	for _, id := range seedIDs(seeds) {
		if _, present := v.index[id]; !present || b.has(id) {
			continue
		}
		closure := TraverseBidirectional([]string{id}, edges)

		p := b.add(id, v.resources[v.index[id]].Name.Name, domain.GroupOriginSeed)
		for rid := range closure.Visited {
			if _, present := v.index[rid]; present {
				p.members[rid] = true
				assigned[rid] = true
			}
		}
	}

	if opts.Cache != nil {
		rejoinCachedGroups(v, b, assigned, opts.Cache)
	}

	groups := b.build(v, opts.Cache)
	if opts.FilterKind == "" {
		return groups
	}

	filtered := groups[:0]
	for _, g := range groups {
		for _, r := range g.Resources {
			if opts.FilterKind.matches(r) {
				filtered = append(filtered, g)
				break
			}
		}
	}
	return filtered
}

// BySeedStrings normalizes seed strings and partitions by them
func BySeedStrings(resources []*domain.Resource, seeds []string, opts SeedOptions) []*domain.Group {
	return BySeeds(resources, seed.NormalizeSeeds(seeds), opts)
}

func seedIDs(seeds []seed.Seed) []string {
	ids := make([]string, 0, len(seeds))
	seen := make(map[string]bool, len(seeds))
	for _, s := range seeds {
		id := s.ID()
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// rejoinCachedGroups places unassigned resources in their cached group. Live
// groups are tried first; cached groups that are gone are recreated.
func rejoinCachedGroups(v *visibleSet, b *builder, assigned map[string]bool, cache Cache) {
	live := make(map[string]bool, len(b.ids))
	for _, id := range b.ids {
		live[id] = true
	}

	var missing []string
	for _, r := range v.resources {
		id := r.ID()
		if assigned[id] {
			continue
		}
		groupID, ok := cache.Assignment(id)
		if !ok || groupID == "" {
			continue
		}
		if live[groupID] {
			b.groups[groupID].members[id] = true
			assigned[id] = true
			continue
		}
		missing = append(missing, id)
	}

	for _, id := range missing {
		groupID, _ := cache.Assignment(id)
		p, ok := b.groups[groupID]
		if !ok {
			label, ok := cache.Label(groupID)
			if !ok || label == "" {
				label = domain.RecoveredGroupLabel
			}
			p = b.add(groupID, label, domain.GroupOriginRecovered)
		}
		p.members[id] = true
		assigned[id] = true
	}
}
