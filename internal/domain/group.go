package domain

// GroupOrigin records how a group was formed
type GroupOrigin string

const (
	GroupOriginSeed      GroupOrigin = "seed"
	GroupOriginMetrics   GroupOrigin = "metrics"
	GroupOriginOrphan    GroupOrigin = "orphan"
	GroupOriginRecovered GroupOrigin = "recovered"
)

const (
	// OrphanGroupLabel labels groups with no metrics view anchor
	OrphanGroupLabel = "Other resources"
	// RecoveredGroupLabel labels a recovered group that has no cached label
	RecoveredGroupLabel = "Recovered group"
)

// Group is a named bundle of resources presented together
type Group struct {
	ID        string      `json:"id" yaml:"id"`
	Label     string      `json:"label" yaml:"label"`
	Origin    GroupOrigin `json:"origin" yaml:"origin"`
	Resources []*Resource `json:"resources" yaml:"resources"`
}

// ResourceIDs returns the ids of the group's members in order
func (g *Group) ResourceIDs() []string {
	ids := make([]string, 0, len(g.Resources))
	for _, r := range g.Resources {
		ids = append(ids, r.ID())
	}
	return ids
}

// Contains reports whether the group holds the resource with the given id
func (g *Group) Contains(id string) bool {
	for _, r := range g.Resources {
		if r.ID() == id {
			return true
		}
	}
	return false
}
