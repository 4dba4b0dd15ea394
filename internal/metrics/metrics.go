// Package metrics holds the Prometheus collectors of the resource graph.
//
// Collectors register with the default registry on package init and are
// served by promhttp at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	buildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "resourcegraph_build_duration_seconds",
		Help:    "Time spent building and laying out the resource graph",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})

	graphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "resourcegraph_nodes",
		Help: "Node count of the most recent graph build",
	})

	graphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "resourcegraph_edges",
		Help: "Edge count of the most recent graph build",
	})

	layoutFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resourcegraph_layout_fallbacks_total",
		Help: "Builds that fell back to the grid layout",
	})

	partitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resourcegraph_partitions_total",
		Help: "Partition runs by mode",
	}, []string{"mode"})

	cachePersistTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resourcegraph_cache_persist_total",
		Help: "Cache persist attempts by result",
	}, []string{"result"})

	cachePrunedEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resourcegraph_cache_pruned_entries_total",
		Help: "Cache entries removed by size pruning",
	}, []string{"map"})

	cacheEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "resourcegraph_cache_entries",
		Help: "Entries currently held by the cache",
	}, []string{"map"})
)

// Persist results
const (
	PersistOK          = "ok"
	PersistQuota       = "quota_exceeded"
	PersistUnavailable = "unavailable"
	PersistError       = "error"
	PersistDeferred    = "deferred"
)

// ObserveBuild records a finished graph build
func ObserveBuild(d time.Duration, nodes, edges int) {
	buildDuration.Observe(d.Seconds())
	graphNodes.Set(float64(nodes))
	graphEdges.Set(float64(edges))
}

// LayoutFallback counts a grid layout fallback
func LayoutFallback() {
	layoutFallbacks.Inc()
}

// Partition counts a partition run for the given mode
func Partition(mode string) {
	partitionsTotal.WithLabelValues(mode).Inc()
}

// CachePersist counts a persist attempt
func CachePersist(result string) {
	cachePersistTotal.WithLabelValues(result).Inc()
}

// CachePruned counts entries removed from one of the cache maps
func CachePruned(mapName string, n int) {
	if n > 0 {
		cachePrunedEntries.WithLabelValues(mapName).Add(float64(n))
	}
}

// CacheEntries sets the current size of the cache maps
func CacheEntries(positions, assignments, labels int) {
	cacheEntries.WithLabelValues("positions").Set(float64(positions))
	cacheEntries.WithLabelValues("assignments").Set(float64(assignments))
	cacheEntries.WithLabelValues("labels").Set(float64(labels))
}
