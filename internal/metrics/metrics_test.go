package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveBuild(t *testing.T) {
	ObserveBuild(5*time.Millisecond, 12, 7)

	assert.Equal(t, 12.0, testutil.ToFloat64(graphNodes))
	assert.Equal(t, 7.0, testutil.ToFloat64(graphEdges))
}

func TestCacheCounters(t *testing.T) {
	before := testutil.ToFloat64(cachePersistTotal.WithLabelValues(PersistQuota))
	CachePersist(PersistQuota)
	assert.Equal(t, before+1, testutil.ToFloat64(cachePersistTotal.WithLabelValues(PersistQuota)))

	prunedBefore := testutil.ToFloat64(cachePrunedEntries.WithLabelValues("positions"))
	CachePruned("positions", 0)
	CachePruned("positions", 3)
	assert.Equal(t, prunedBefore+3, testutil.ToFloat64(cachePrunedEntries.WithLabelValues("positions")))

	CacheEntries(4, 5, 6)
	assert.Equal(t, 5.0, testutil.ToFloat64(cacheEntries.WithLabelValues("assignments")))
}

func TestPartitionCounter(t *testing.T) {
	before := testutil.ToFloat64(partitionsTotal.WithLabelValues("seeds"))
	Partition("seeds")
	assert.Equal(t, before+1, testutil.ToFloat64(partitionsTotal.WithLabelValues("seeds")))
}
