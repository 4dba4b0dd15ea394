// Package seed parses the seed strings that select which parts of the
// resource graph to show, and builds and parses graph navigation URLs.
//
// A seed is one of:
//
//	orders                        metrics view named "orders"
//	model:orders                  short or plural kind alias
//	rill.runtime.v1.Model:orders  fully qualified kind
//	models                        kind token, expands to every visible model
package seed

import (
	"strings"

	"resourcegraph/internal/domain"
)

// Seed is a normalized seed. Name is set when the kind resolved; otherwise
// Raw holds the input, used as an opaque resource id.
type Seed struct {
	Name domain.ResourceName
	Raw  string
}

// FromName wraps a resource name
func FromName(name domain.ResourceName) Seed {
	return Seed{Name: name}
}

// ID returns the resource id the seed refers to
func (s Seed) ID() string {
	if s.Name.Kind != "" {
		return string(s.Name.Kind) + ":" + s.Name.Name
	}
	return s.Raw
}

// Resolved reports whether the seed's kind was recognized
func (s Seed) Resolved() bool {
	return s.Name.Kind != ""
}

// DisplayName is the name part of the seed, or the raw input
func (s Seed) DisplayName() string {
	if s.Resolved() && s.Name.Name != "" {
		return s.Name.Name
	}
	return s.ID()
}

// shortNames maps singular short names to runtime kinds
var shortNames = map[string]domain.ResourceKind{
	"source":      domain.KindSource,
	"model":       domain.KindModel,
	"metricsview": domain.KindMetricsView,
	"explore":     domain.KindExplore,
	"canvas":      domain.KindCanvas,
	"connector":   domain.KindConnector,
	"alert":       domain.KindAlert,
	"api":         domain.KindAPI,
	"report":      domain.KindReport,
	"theme":       domain.KindTheme,
}

// aliases maps plural and informal forms onto short names
var aliases = map[string]string{
	"connectors": "connector",
	"metrics":    "metricsview",
	"metric":     "metricsview",
	"models":     "model",
	"sources":    "source",
	"dashboards": "explore",
	"dashboard":  "explore",
}

// ResolveKindAlias maps an alias such as "models" or "Metrics" to its kind
func ResolveKindAlias(alias string) (domain.ResourceKind, bool) {
	key := strings.ToLower(strings.TrimSpace(alias))
	if short, ok := aliases[key]; ok {
		key = short
	}
	kind, ok := shortNames[key]
	return kind, ok
}

// NormalizeSeed parses a seed string. Only the first colon separates kind
// from name. Unknown kind aliases leave the seed unresolved.
func NormalizeSeed(s string) Seed {
	kindPart, name, found := strings.Cut(s, ":")
	if !found {
		return Seed{Name: domain.ResourceName{Kind: domain.KindMetricsView, Name: s}}
	}
	if strings.Contains(kindPart, ".") {
		return Seed{Name: domain.ResourceName{Kind: domain.ResourceKind(kindPart), Name: name}}
	}
	if kind, ok := ResolveKindAlias(kindPart); ok {
		return Seed{Name: domain.ResourceName{Kind: kind, Name: name}}
	}
	return Seed{Raw: s}
}

// NormalizeSeeds normalizes seed strings and drops duplicate ids, keeping the first
func NormalizeSeeds(in []string) []Seed {
	out := make([]Seed, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		sd := NormalizeSeed(s)
		if id := sd.ID(); !seen[id] {
			seen[id] = true
			out = append(out, sd)
		}
	}
	return out
}
