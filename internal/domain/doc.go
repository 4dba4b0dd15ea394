// Package domain defines the core types of the resource dependency graph.
//
// Resources arrive as a flat snapshot from the runtime's resource listing.
// Each one is identified by a (kind, name) pair whose canonical string form
// is "kind:name", split on the first colon so names may contain colons.
//
// # Core Types
//
// Resource is one entry of the snapshot: identity, hidden flag, references to
// upstream resources and the kind-specific payload used for display metadata.
//
// Node is a visible resource placed on the canvas, with its estimated size,
// position and derived NodeMetadata.
//
// Edge is a directed dependency from an upstream resource to its dependent.
// Edge ids have the form "source->target".
//
// Group is a named bundle of resources produced by the partitioners.
//
// # Visibility
//
// Only Connector, Source, Model, MetricsView, Explore and Canvas resources are
// drawn. Hidden resources are dropped except connectors. A model defined as a
// source is displayed with the Source kind (see CoerceKind).
//
// # Validated Ids
//
// ResourceID is a validated value for ids that cross a trust boundary such as
// URLs or imported cache blobs. Snapshot processing uses the lighter
// CreateResourceID and ParseResourceID helpers.
package domain
