package partition

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"resourcegraph/internal/domain"
	"resourcegraph/internal/metrics"
)

// orphanNamespace scopes the name-based UUIDs of orphan groups
var orphanNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("resourcegraph:orphan-group"))

// OrphanGroupID returns the id of the orphan group whose first member is firstID
func OrphanGroupID(firstID string) string {
	return "orphan:" + uuid.NewSHA1(orphanNamespace, []byte(firstID)).String()
}

// ByMetrics builds one group per metrics view holding its whole connected
// component, ignoring edge direction. Metrics views are taken in name order
// and a metrics view already inside an earlier component gets no group of
// its own. Remaining components become "Other resources" groups. Every
// visible resource ends up in exactly one group.
func ByMetrics(resources []*domain.Resource, cache Cache) []*domain.Group {
	metrics.Partition(ModeMetrics)

	v := newVisibleSet(resources)
	adj := make(map[string][]string, len(v.resources))
	for _, e := range v.edges() {
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
	}

	var views []*domain.Resource
	for _, r := range v.resources {
		if r.Name.Kind == domain.KindMetricsView {
			views = append(views, r)
		}
	}
	sort.SliceStable(views, func(i, j int) bool {
		a, b := strings.ToLower(views[i].Name.Name), strings.ToLower(views[j].Name.Name)
		if a != b {
			return a < b
		}
		return views[i].Name.Name < views[j].Name.Name
	})

	b := newBuilder()
	assigned := make(map[string]bool, len(v.resources))

	for _, mv := range views {
		id := mv.ID()
		if assigned[id] {
			continue
		}
		p := b.add(id, mv.Name.Name, domain.GroupOriginMetrics)
		for _, rid := range component(id, adj) {
			p.members[rid] = true
			assigned[rid] = true
		}
	}

	for _, r := range v.resources {
		id := r.ID()
		if assigned[id] {
			continue
		}
		p := b.add(OrphanGroupID(id), domain.OrphanGroupLabel, domain.GroupOriginOrphan)
		for _, rid := range component(id, adj) {
			p.members[rid] = true
			assigned[rid] = true
		}
	}

	return b.build(v, cache)
}

// component returns every node connected to start
func component(start string, adj map[string][]string) []string {
	visited := map[string]bool{start: true}
	queue := []string{start}
	for head := 0; head < len(queue); head++ {
		for _, n := range adj[queue[head]] {
			if !visited[n] {
				visited[n] = true
				queue = append(queue, n)
			}
		}
	}
	return queue
}
