// Package service implements the resource graph application layer.
//
// It sits between the HTTP handlers and CLI on one side and the graph,
// partition and cache packages on the other.
//
// # Services
//
// GraphService holds the current resource snapshot, builds graphs and groups
// from it on demand, and owns the layout cache. Snapshots come from files
// (via the loader), from API uploads, or from the repository on startup.
//
// # Event System
//
// GraphService publishes events via EventBus for real-time updates to
// connected clients via Server-Sent Events (SSE): snapshot reloads, cache
// clears and imports, and reported graph errors.
package service
