package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"resourcegraph/internal/apperr"
	"resourcegraph/internal/cache"
	"resourcegraph/internal/codec"
	"resourcegraph/internal/domain"
	"resourcegraph/internal/seed"
	"resourcegraph/internal/service"
)

// maxBodyBytes bounds snapshot and cache uploads
const maxBodyBytes = 32 << 20

// GraphHandler handles graph API requests
type GraphHandler struct {
	svc    *service.GraphService
	logger *slog.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(svc *service.GraphService, logger *slog.Logger) *GraphHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphHandler{svc: svc, logger: logger.With("component", "handler")}
}

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Warning is a recoverable error returned next to a successful result
type Warning struct {
	Category apperr.Category `json:"category"`
	Message  string          `json:"message"`
	Recovery string          `json:"recovery"`
	Details  string          `json:"details,omitempty"`
}

func warningsFor(err error) []Warning {
	appErr := apperr.As(err)
	if appErr == nil {
		return nil
	}
	w := Warning{Category: appErr.Category, Message: appErr.Message, Recovery: appErr.Recovery}
	if appErr.Err != nil {
		w.Details = appErr.Err.Error()
	}
	return []Warning{w}
}

// GraphResponse is a built graph plus its statistics
type GraphResponse struct {
	*domain.Graph
	Stats domain.GraphStats `json:"stats"`
}

// GetGraph builds the graph of the current snapshot.
// Query: ns (position namespace), ignore_cache (bool).
func (h *GraphHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := service.GraphOptions{Namespace: q.Get("ns")}
	if raw := q.Get("ignore_cache"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, "Invalid ignore_cache", err.Error(), http.StatusBadRequest)
			return
		}
		opts.IgnoreCache = v
	}

	g := h.svc.Graph(opts)
	h.writeJSON(w, GraphResponse{Graph: g, Stats: g.Stats()}, http.StatusOK)
}

// GroupsResponse wraps a partition with any link warnings
type GroupsResponse struct {
	*service.GroupsResult
	Warnings []Warning `json:"warnings,omitempty"`
}

// GetGroups partitions the snapshot.
// Query: kind, resource (repeated), expanded, mode (seeds|metrics).
func (h *GraphHandler) GetGroups(w http.ResponseWriter, r *http.Request) {
	params, perr := seed.ParseGraphParams(r.URL.Query())

	res, err := h.svc.Groups(service.GroupQuery{Mode: r.URL.Query().Get("mode"), Params: params})
	if err != nil {
		if errors.Is(err, service.ErrInvalidMode) {
			h.writeError(w, "Invalid mode", err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to partition", "error", err)
		h.writeError(w, "Failed to partition resources", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, GroupsResponse{GroupsResult: res, Warnings: warningsFor(perr)}, http.StatusOK)
}

// ResourcesResponse is the snapshot with its provenance
type ResourcesResponse struct {
	Snapshot  service.SnapshotInfo `json:"snapshot"`
	Resources []*domain.Resource   `json:"resources"`
}

// ListResources returns the snapshot. format=yaml returns a YAML snapshot document.
func (h *GraphHandler) ListResources(w http.ResponseWriter, r *http.Request) {
	resources := h.svc.Resources()

	if format := r.URL.Query().Get("format"); format != "" && format != "json" {
		c, err := codec.ForFormat(format)
		if err != nil {
			h.writeError(w, "Invalid format", err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/x-yaml")
		if err := c.Export(resources, w); err != nil {
			h.logger.Error("failed to export snapshot", "error", err)
		}
		return
	}

	if resources == nil {
		resources = []*domain.Resource{}
	}
	h.writeJSON(w, ResourcesResponse{Snapshot: h.svc.Snapshot(), Resources: resources}, http.StatusOK)
}

// ReplaceResources replaces the snapshot with the request body. YAML bodies
// are accepted with a YAML content type; anything else is parsed as JSON.
func (h *GraphHandler) ReplaceResources(w http.ResponseWriter, r *http.Request) {
	c := codec.Codec(codec.NewJSONCodec())
	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil {
		switch mt {
		case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
			c = codec.NewYAMLCodec()
		}
	}

	resources, err := c.Parse(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, "Invalid snapshot", err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.ReplaceResources(r.Context(), resources, "api"); err != nil {
		// The snapshot is live; only persistence failed.
		h.logger.Warn("snapshot not persisted", "error", err)
	}
	h.writeJSON(w, h.svc.Snapshot(), http.StatusOK)
}

// URLResponse is a canonical graph link
type URLResponse struct {
	URL      string           `json:"url"`
	Params   seed.GraphParams `json:"params"`
	Warnings []Warning        `json:"warnings,omitempty"`
}

// GraphURL normalizes graph link parameters into a canonical link.
// Query: kind, resource (repeated), expanded, base.
func (h *GraphHandler) GraphURL(w http.ResponseWriter, r *http.Request) {
	params, perr := seed.ParseGraphParams(r.URL.Query())
	h.writeJSON(w, URLResponse{
		URL:      seed.BuildGraphURL(params, r.URL.Query().Get("base")),
		Params:   params,
		Warnings: warningsFor(perr),
	}, http.StatusOK)
}

// CacheStats reports the cache's health
func (h *GraphHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.CacheStats()
	if err != nil {
		h.writeCacheError(w, "Failed to read cache stats", err)
		return
	}
	h.writeJSON(w, stats, http.StatusOK)
}

// ClearCache drops every cached position, assignment and label
func (h *GraphHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearCache(r.Context()); err != nil {
		h.writeCacheError(w, "Failed to clear cache", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportCache downloads the cache blob
func (h *GraphHandler) ExportCache(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.ExportCache()
	if err != nil {
		h.writeCacheError(w, "Failed to export cache", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=resourcegraph-cache.json")
	w.Write(data)
}

// ImportResponse reports how many entries an import merged
type ImportResponse struct {
	Imported int `json:"imported"`
}

// ImportCache merges an exported cache blob
func (h *GraphHandler) ImportCache(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, "Failed to read body", err.Error(), http.StatusBadRequest)
		return
	}

	n, err := h.svc.ImportCache(r.Context(), data)
	if err != nil {
		if errors.Is(err, service.ErrNoCache) {
			h.writeCacheError(w, "Failed to import cache", err)
			return
		}
		h.writeError(w, "Invalid cache blob", err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, ImportResponse{Imported: n}, http.StatusOK)
}

// Health reports liveness and snapshot size
func (h *GraphHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]any{
		"status":    "ok",
		"resources": h.svc.Snapshot().Count,
	}, http.StatusOK)
}

// Helper methods

func (h *GraphHandler) writeCacheError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrNoCache):
		h.writeError(w, msg, err.Error(), http.StatusNotFound)
	case errors.Is(err, cache.ErrUnavailable), errors.Is(err, apperr.ErrCache):
		h.writeError(w, msg, err.Error(), http.StatusServiceUnavailable)
	default:
		h.logger.Error(msg, "error", err)
		h.writeError(w, msg, err.Error(), http.StatusInternalServerError)
	}
}

func (h *GraphHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *GraphHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
	}); err != nil {
		h.logger.Error("failed to encode error response", "error", err)
	}
}

