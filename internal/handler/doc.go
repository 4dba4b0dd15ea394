// Package handler implements the HTTP API of the resource graph server.
//
// # Handlers
//
// GraphHandler serves graphs, groups, the resource snapshot, graph links and
// the layout cache. NewRouter mounts it together with the SSE event stream
// and the Prometheus metrics endpoint.
//
// Middleware provides panic recovery, CORS and request logging.
//
// # Response Format
//
// Success responses return JSON data with appropriate status codes (200, 204).
// Error responses return JSON with {error, details} structure. Recoverable
// graph errors such as an unknown kind in a link do not fail a request; they
// are returned in a "warnings" list next to the data.
package handler
