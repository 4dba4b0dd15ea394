package domain

import "strings"

// ResourceKind is the fully qualified runtime kind of a resource
type ResourceKind string

const (
	KindSource      ResourceKind = "rill.runtime.v1.Source"
	KindModel       ResourceKind = "rill.runtime.v1.Model"
	KindMetricsView ResourceKind = "rill.runtime.v1.MetricsView"
	KindExplore     ResourceKind = "rill.runtime.v1.Explore"
	KindCanvas      ResourceKind = "rill.runtime.v1.Canvas"
	KindConnector   ResourceKind = "rill.runtime.v1.Connector"
	KindAlert       ResourceKind = "rill.runtime.v1.Alert"
	KindAPI         ResourceKind = "rill.runtime.v1.API"
	KindReport      ResourceKind = "rill.runtime.v1.Report"
	KindTheme       ResourceKind = "rill.runtime.v1.Theme"
)

// graphKinds lists the kinds drawn in the resource graph
var graphKinds = map[ResourceKind]bool{
	KindConnector:   true,
	KindSource:      true,
	KindModel:       true,
	KindMetricsView: true,
	KindExplore:     true,
	KindCanvas:      true,
}

// IsGraphKind reports whether resources of kind k participate in the graph
func IsGraphKind(k ResourceKind) bool {
	return graphKinds[k]
}

// IsDashboard reports whether k is one of the dashboard kinds (Explore or Canvas)
func (k ResourceKind) IsDashboard() bool {
	return k == KindExplore || k == KindCanvas
}

// Short returns the last dotted segment of the kind, e.g. "MetricsView"
func (k ResourceKind) Short() string {
	s := string(k)
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[i+1:]
	}
	return s
}

// ResourceName identifies a resource by kind and name
type ResourceName struct {
	Kind ResourceKind `json:"kind" yaml:"kind"`
	Name string       `json:"name" yaml:"name"`
}

// ID returns the canonical "kind:name" form, or "" if either part is missing
func (n ResourceName) ID() string {
	id, _ := CreateResourceID(n)
	return id
}

// Complete reports whether both kind and name are set
func (n ResourceName) Complete() bool {
	return n.Kind != "" && n.Name != ""
}

// Schedule describes a refresh schedule. Either Cron or TickerSeconds is set.
type Schedule struct {
	Cron          string `json:"cron,omitempty" yaml:"cron,omitempty"`
	TimeZone      string `json:"time_zone,omitempty" yaml:"time_zone,omitempty"`
	TickerSeconds int    `json:"ticker_seconds,omitempty" yaml:"ticker_seconds,omitempty"`
}

// ModelSpec is the subset of a model's spec used for display metadata
type ModelSpec struct {
	InputConnector     string         `json:"input_connector,omitempty" yaml:"input_connector,omitempty"`
	InputProperties    map[string]any `json:"input_properties,omitempty" yaml:"input_properties,omitempty"`
	Incremental        bool           `json:"incremental,omitempty" yaml:"incremental,omitempty"`
	PartitionsResolver string         `json:"partitions_resolver,omitempty" yaml:"partitions_resolver,omitempty"`
	DefinedAsSource    bool           `json:"defined_as_source,omitempty" yaml:"defined_as_source,omitempty"`
	RefreshSchedule    *Schedule      `json:"refresh_schedule,omitempty" yaml:"refresh_schedule,omitempty"`
	RetryAttempts      int            `json:"retry_attempts,omitempty" yaml:"retry_attempts,omitempty"`
}

// SourceSpec is the subset of a legacy source's spec used for display metadata
type SourceSpec struct {
	SourceConnector string         `json:"source_connector,omitempty" yaml:"source_connector,omitempty"`
	Properties      map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
	RefreshSchedule *Schedule      `json:"refresh_schedule,omitempty" yaml:"refresh_schedule,omitempty"`
}

// DashboardSpec covers the theme settings shared by explores and canvases
type DashboardSpec struct {
	Theme         string `json:"theme,omitempty" yaml:"theme,omitempty"`
	EmbeddedTheme bool   `json:"embedded_theme,omitempty" yaml:"embedded_theme,omitempty"`
}

// Resource is one entry of the runtime's resource listing
type Resource struct {
	Name      ResourceName   `json:"name" yaml:"name"`
	Hidden    bool           `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Refs      []ResourceName `json:"refs,omitempty" yaml:"refs,omitempty"`
	FilePaths []string       `json:"file_paths,omitempty" yaml:"file_paths,omitempty"`

	Model   *ModelSpec     `json:"model,omitempty" yaml:"model,omitempty"`
	Source  *SourceSpec    `json:"source,omitempty" yaml:"source,omitempty"`
	Explore *DashboardSpec `json:"explore,omitempty" yaml:"explore,omitempty"`
	Canvas  *DashboardSpec `json:"canvas,omitempty" yaml:"canvas,omitempty"`
}

// ID returns the resource's canonical id, or "" when its identity is incomplete
func (r *Resource) ID() string {
	return r.Name.ID()
}

// CreateResourceID builds "kind:name". It returns false when kind or name is missing.
func CreateResourceID(name ResourceName) (string, bool) {
	if !name.Complete() {
		return "", false
	}
	return string(name.Kind) + ":" + name.Name, true
}

// ParseResourceID splits an id on its first colon. Names may contain colons.
func ParseResourceID(id string) ResourceName {
	kind, name, _ := strings.Cut(id, ":")
	return ResourceName{Kind: ResourceKind(kind), Name: name}
}

// IsVisible reports whether a resource is drawn: its kind must be a graph kind
// and it must not be hidden. Connectors are drawn even when hidden.
func IsVisible(r *Resource) bool {
	if r == nil || !IsGraphKind(r.Name.Kind) {
		return false
	}
	if r.Hidden && r.Name.Kind != KindConnector {
		return false
	}
	return true
}

// CoerceKind returns the kind a resource is displayed as. Models defined as
// sources are displayed as sources.
func CoerceKind(r *Resource) ResourceKind {
	if r == nil {
		return ""
	}
	if r.Name.Kind == KindModel && r.Model != nil && r.Model.DefinedAsSource {
		return KindSource
	}
	return r.Name.Kind
}

// VisibleResources filters resources to the visible set with complete identity,
// keeping input order and the first occurrence of each id.
func VisibleResources(resources []*Resource) []*Resource {
	out := make([]*Resource, 0, len(resources))
	seen := make(map[string]bool, len(resources))
	for _, r := range resources {
		if !IsVisible(r) {
			continue
		}
		id := r.ID()
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, r)
	}
	return out
}
