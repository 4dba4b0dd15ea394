package seed

import (
	"fmt"
	"net/url"
	"strings"

	"resourcegraph/internal/apperr"
	"resourcegraph/internal/domain"
)

// Graph URL query parameters
const (
	ParamKind     = "kind"
	ParamResource = "resource"
	ParamExpanded = "expanded"

	DefaultBasePath = "/graph"
)

// GraphParams are the parsed graph URL parameters. Kind and Resources are
// mutually exclusive; Kind wins when both are set.
type GraphParams struct {
	Kind      KindToken `json:"kind,omitempty" yaml:"kind,omitempty"`
	Resources []string  `json:"resources,omitempty" yaml:"resources,omitempty"`
	Expanded  string    `json:"expanded,omitempty" yaml:"expanded,omitempty"`
}

// ParseGraphParams reads graph parameters from a query. An unknown kind is
// dropped and reported as a navigation error; the returned params are usable
// either way.
func ParseGraphParams(q url.Values) (GraphParams, error) {
	var p GraphParams
	var err error

	if raw := strings.ToLower(strings.TrimSpace(q.Get(ParamKind))); raw != "" {
		if raw == "source" {
			raw = string(TokenSources)
		}
		if t := KindToken(raw); t.Valid() {
			p.Kind = t
		} else {
			err = apperr.Navigation("seed.parse_params", fmt.Errorf("unknown kind %q", raw))
		}
	}

	for _, r := range q[ParamResource] {
		if r = strings.TrimSpace(r); r != "" {
			p.Resources = append(p.Resources, r)
		}
	}
	p.Expanded = strings.TrimSpace(q.Get(ParamExpanded))
	return p, err
}

// ParamsToSeeds converts params to seed strings: the kind token when set,
// otherwise the resources
func ParamsToSeeds(p GraphParams) []string {
	if p.Kind != "" {
		return []string{string(p.Kind)}
	}
	return p.Resources
}

// BuildGraphURL renders params as a URL under basePath ("" means /graph)
func BuildGraphURL(p GraphParams, basePath string) string {
	if basePath == "" {
		basePath = DefaultBasePath
	}

	q := url.Values{}
	if p.Kind != "" {
		q.Set(ParamKind, string(p.Kind))
	} else {
		for _, r := range p.Resources {
			if r = strings.TrimSpace(r); r != "" {
				q.Add(ParamResource, r)
			}
		}
	}
	if p.Expanded != "" {
		q.Set(ParamExpanded, p.Expanded)
	}

	if len(q) == 0 {
		return basePath
	}
	return basePath + "?" + q.Encode()
}

// urlShortNames are the kind prefixes used in resource links
var urlShortNames = map[domain.ResourceKind]string{
	domain.KindModel:       "model",
	domain.KindSource:      "source",
	domain.KindMetricsView: "metrics",
	domain.KindExplore:     "dashboard",
	domain.KindCanvas:      "canvas",
	domain.KindConnector:   "connector",
}

// SeedString renders a resource name as a link seed, e.g. "model:orders".
// Kinds without a short name render as the bare name.
func SeedString(name domain.ResourceName) string {
	if short, ok := urlShortNames[name.Kind]; ok {
		return short + ":" + name.Name
	}
	return name.Name
}

// ResourcesGraphURL links to the graphs of several resources
func ResourcesGraphURL(names []domain.ResourceName) string {
	p := GraphParams{}
	for _, n := range names {
		if s := SeedString(n); s != "" {
			p.Resources = append(p.Resources, s)
		}
	}
	return BuildGraphURL(p, "")
}

// ResourceGraphURL links to the graph of one resource, plus any extra seeds
func ResourceGraphURL(kind domain.ResourceKind, name string, extra ...string) string {
	p := GraphParams{}
	if s := SeedString(domain.ResourceName{Kind: kind, Name: name}); s != "" {
		p.Resources = append(p.Resources, s)
	}
	p.Resources = append(p.Resources, extra...)
	return BuildGraphURL(p, "")
}
