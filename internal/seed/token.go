package seed

import (
	"strings"

	"resourcegraph/internal/domain"
)

// KindToken selects every resource of a kind
type KindToken string

const (
	TokenConnector  KindToken = "connector"
	TokenMetrics    KindToken = "metrics"
	TokenSources    KindToken = "sources"
	TokenModels     KindToken = "models"
	TokenDashboards KindToken = "dashboards"
)

// Tokens lists the valid kind tokens
var Tokens = []KindToken{TokenConnector, TokenMetrics, TokenSources, TokenModels, TokenDashboards}

// Valid reports whether t is one of Tokens
func (t KindToken) Valid() bool {
	for _, v := range Tokens {
		if t == v {
			return true
		}
	}
	return false
}

// IsKindToken reports whether s names a kind rather than a resource
func IsKindToken(s string) (domain.ResourceKind, bool) {
	return ResolveKindAlias(s)
}

// TokenForKind returns the token covering kind, or "" for kinds without one
func TokenForKind(kind string) KindToken {
	key := strings.ToLower(kind)
	switch {
	case key == "":
		return ""
	case strings.Contains(key, "connector"):
		return TokenConnector
	case strings.Contains(key, "source"):
		return TokenSources
	case strings.Contains(key, "model"):
		return TokenModels
	case strings.Contains(key, "metric"):
		return TokenMetrics
	case strings.Contains(key, "explore"), strings.Contains(key, "dashboard"), strings.Contains(key, "canvas"):
		return TokenDashboards
	}
	return ""
}

// TokenForSeedString returns the token a seed belongs to. Bare names are
// metrics views.
func TokenForSeedString(s string) KindToken {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "" {
		return ""
	}
	if kind, ok := IsKindToken(normalized); ok {
		return TokenForKind(string(kind))
	}

	kindPart, _, found := strings.Cut(normalized, ":")
	if !found {
		return TokenMetrics
	}
	switch kindPart {
	case "dashboard", "dashboards", "canvas":
		return TokenDashboards
	}
	if kind, ok := ResolveKindAlias(kindPart); ok {
		return TokenForKind(string(kind))
	}
	return TokenForKind(kindPart)
}

// CoerceFunc returns the kind a resource is displayed as
type CoerceFunc func(*domain.Resource) domain.ResourceKind

// ExpandSeedsByKind replaces kind tokens with one seed per visible resource
// of that kind. Explicit and bare seeds pass through normalized. The result
// holds each id once. A nil coerce uses domain.CoerceKind.
func ExpandSeedsByKind(seeds []string, resources []*domain.Resource, coerce CoerceFunc) []Seed {
	if coerce == nil {
		coerce = domain.CoerceKind
	}

	var out []Seed
	seen := make(map[string]bool)
	push := func(s Seed) {
		id := s.ID()
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, s)
	}

	var visible []*domain.Resource
	for _, r := range resources {
		if r == nil {
			continue
		}
		kind := coerce(r)
		if !domain.IsGraphKind(kind) || (r.Hidden && kind != domain.KindConnector) {
			continue
		}
		visible = append(visible, r)
	}

	for _, raw := range seeds {
		if raw == "" {
			continue
		}
		if strings.Contains(raw, ":") {
			push(NormalizeSeed(raw))
			continue
		}
		tokenKind, ok := IsKindToken(raw)
		if !ok {
			push(NormalizeSeed(raw))
			continue
		}

		lower := strings.ToLower(strings.TrimSpace(raw))
		dashboards := lower == "dashboards" || lower == "dashboard"
		for _, r := range visible {
			kind := coerce(r)
			if dashboards {
				if !kind.IsDashboard() {
					continue
				}
			} else if kind != tokenKind {
				continue
			}
			if !r.Name.Complete() {
				continue
			}
			// Seeds use the runtime kind so ids match the graph's node ids
			push(FromName(r.Name))
		}
	}
	return out
}
