package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter mounts the API, the SSE stream at /events and Prometheus at
// /metrics. events may be nil.
func NewRouter(h *GraphHandler, events http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	// Graph
	mux.HandleFunc("GET /api/graph", h.GetGraph)
	mux.HandleFunc("GET /api/groups", h.GetGroups)
	mux.HandleFunc("GET /api/url", h.GraphURL)

	// Snapshot
	mux.HandleFunc("GET /api/resources", h.ListResources)
	mux.HandleFunc("PUT /api/resources", h.ReplaceResources)

	// Layout cache
	mux.HandleFunc("GET /api/cache/stats", h.CacheStats)
	mux.HandleFunc("DELETE /api/cache", h.ClearCache)
	mux.HandleFunc("GET /api/cache/export", h.ExportCache)
	mux.HandleFunc("POST /api/cache/import", h.ImportCache)

	mux.HandleFunc("GET /healthz", h.Health)
	mux.Handle("GET /metrics", promhttp.Handler())
	if events != nil {
		mux.Handle("GET /events", events)
	}
	return mux
}
