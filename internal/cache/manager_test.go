package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resourcegraph/internal/apperr"
	"resourcegraph/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingStore counts Set calls
type countingStore struct {
	*MemoryStore
	mu   sync.Mutex
	sets int
}

func (s *countingStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.sets++
	s.mu.Unlock()
	return s.MemoryStore.Set(ctx, key, value)
}

func (s *countingStore) Sets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

func testOptions(clock *fakeClock) Options {
	return Options{
		WriteDebounce: -1,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:           clock.Now,
	}
}

func openManager(t *testing.T, store Store, opts Options) *Manager {
	t.Helper()
	m, err := Open(context.Background(), store, opts)
	require.NoError(t, err)
	return m
}

func modelID(i int) string {
	return fmt.Sprintf("rill.runtime.v1.Model:m%03d", i)
}

func TestOpen_NilStore(t *testing.T) {
	_, err := Open(context.Background(), nil, Options{})
	assert.Error(t, err)
}

func TestManager_GetSet(t *testing.T) {
	m := openManager(t, NewMemoryStore(), testOptions(newFakeClock()))

	_, ok := m.Position("", modelID(1))
	assert.False(t, ok)

	m.SetPosition("", modelID(1), domain.Position{X: 10, Y: 20})
	pos, ok := m.Position("global", modelID(1))
	require.True(t, ok)
	assert.Equal(t, domain.Position{X: 10, Y: 20}, pos)

	_, ok = m.Position("other", modelID(1))
	assert.False(t, ok, "namespaces are independent")

	m.SetAssignment(modelID(1), "grp")
	group, ok := m.Assignment(modelID(1))
	require.True(t, ok)
	assert.Equal(t, "grp", group)

	m.SetLabel("grp", "Orders")
	label, ok := m.Label("grp")
	require.True(t, ok)
	assert.Equal(t, "Orders", label)
}

func TestPositionKey(t *testing.T) {
	assert.Equal(t, "global|a:b", PositionKey("", "a:b"))
	assert.Equal(t, "global|a:b", PositionKey("   ", "a:b"))
	assert.Equal(t, "dash|a:b", PositionKey(" dash ", "a:b"))
}

func TestManager_PersistAndReload(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{MemoryStore: NewMemoryStore()}
	clock := newFakeClock()

	m := openManager(t, store, testOptions(clock))
	require.NoError(t, m.Persist(ctx))
	assert.Equal(t, 0, store.Sets(), "clean cache is not written")

	m.SetPosition("ns", modelID(1), domain.Position{X: 1, Y: 2})
	m.SetAssignment(modelID(1), "g1")
	m.SetLabel("g1", "Group one")
	require.NoError(t, m.FlushNow(ctx))
	require.NoError(t, m.Persist(ctx))
	assert.Equal(t, 1, store.Sets(), "second persist is a no-op")
	assert.False(t, m.Stats().Dirty)

	data, err := store.Get(ctx, m.Key())
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "positions")
	assert.Contains(t, raw, "assignments")
	assert.Contains(t, raw, "labels")

	reloaded := openManager(t, store, testOptions(clock))
	pos, ok := reloaded.Position("ns", modelID(1))
	require.True(t, ok)
	assert.Equal(t, domain.Position{X: 1, Y: 2}, pos)
	label, _ := reloaded.Label("g1")
	assert.Equal(t, "Group one", label)
}

func TestManager_DebouncedWrite(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore()}
	opts := testOptions(newFakeClock())
	opts.WriteDebounce = 20 * time.Millisecond
	m := openManager(t, store, opts)

	for i := 0; i < 10; i++ {
		m.SetPosition("", modelID(i), domain.Position{X: float64(i)})
	}

	require.Eventually(t, func() bool { return store.Sets() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, m.Stats().Dirty)
	assert.Equal(t, 1, store.Sets(), "rapid mutations coalesce into one write")
}

func TestManager_StaleTimerKeepsNewerHandle(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore()}
	m := openManager(t, store, testOptions(newFakeClock()))

	m.mu.Lock()
	m.scheduleLocked(time.Hour)
	current := m.timer
	m.mu.Unlock()

	// A timer that fired earlier and only now got the lock
	m.flushFromTimer(time.NewTimer(time.Hour))

	m.mu.Lock()
	assert.Same(t, current, m.timer)
	m.mu.Unlock()

	require.NoError(t, m.Close(context.Background()))
	assert.False(t, current.Stop(), "Close stops the pending timer")
}

func TestManager_NoWritesAfterClose(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{MemoryStore: NewMemoryStore()}
	opts := testOptions(newFakeClock())
	opts.WriteDebounce = 10 * time.Millisecond
	m := openManager(t, store, opts)

	m.SetPosition("", modelID(1), domain.Position{X: 1})
	require.NoError(t, m.Close(ctx))
	require.Equal(t, 1, store.Sets())

	m.SetPosition("", modelID(2), domain.Position{X: 2})
	require.NoError(t, m.Persist(ctx))
	require.NoError(t, m.FlushNow(ctx))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, store.Sets())

	pos, ok := m.Position("", modelID(2))
	require.True(t, ok, "mutations after Close stay in memory")
	assert.Equal(t, 2.0, pos.X)
}

func TestManager_SweepsLegacyKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, "resourcegraph.cache.v0", []byte(`{}`)))
	require.NoError(t, store.Set(ctx, "resourcegraph.cache.v7", []byte(`{}`)))
	require.NoError(t, store.Set(ctx, "resourcegraph.cache.v1", []byte(`{"labels":{"g":"kept"}}`)))
	require.NoError(t, store.Set(ctx, "unrelated", []byte(`x`)))

	m := openManager(t, store, testOptions(newFakeClock()))

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"resourcegraph.cache.v1", "unrelated"}, keys)

	label, ok := m.Label("g")
	assert.True(t, ok)
	assert.Equal(t, "kept", label)
}

func TestManager_CorruptBlobIgnored(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, "resourcegraph.cache.v1", []byte(`not json`)))

	m := openManager(t, store, testOptions(newFakeClock()))
	stats := m.Stats()
	assert.Zero(t, stats.Positions)
	assert.False(t, stats.WritesDisabled)
}

func TestManager_QuotaExceeded(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore().WithQuota(200)
	reporter := apperr.NewReporter(slog.New(slog.NewTextHandler(io.Discard, nil)))
	var reported []*apperr.Error
	reporter.Register(func(e *apperr.Error) { reported = append(reported, e) })

	opts := testOptions(newFakeClock())
	opts.Reporter = reporter
	m := openManager(t, store, opts)

	for i := 0; i < 20; i++ {
		m.SetPosition("", modelID(i), domain.Position{X: float64(i)})
	}
	err := m.FlushNow(ctx)
	assert.ErrorIs(t, err, apperr.ErrCache)
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	stats := m.Stats()
	assert.True(t, stats.WritesDisabled)
	assert.Equal(t, "quota_exceeded", stats.DisabledReason)
	assert.Zero(t, stats.Positions)
	require.Len(t, reported, 1)
	assert.Equal(t, apperr.CategoryCache, reported[0].Category)

	// Writes stay disabled until cleared
	m.SetLabel("g", "x")
	require.NoError(t, m.FlushNow(ctx))
	_, err = store.Get(ctx, m.Key())
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.ClearAll(ctx))
	assert.False(t, m.Stats().WritesDisabled)
	m.SetLabel("g", "x")
	require.NoError(t, m.FlushNow(ctx))
	_, err = store.Get(ctx, m.Key())
	assert.NoError(t, err)
}

func TestManager_StorageUnavailable(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SetUnavailable(true)

	m := openManager(t, store, testOptions(newFakeClock()))
	assert.True(t, m.Stats().WritesDisabled)

	assert.NotPanics(t, func() {
		m.SetPosition("", modelID(1), domain.Position{X: 5})
	})
	pos, ok := m.Position("", modelID(1))
	require.True(t, ok, "in-memory cache still works")
	assert.Equal(t, 5.0, pos.X)
	assert.NoError(t, m.FlushNow(ctx))
}

func TestManager_UnavailableOnWrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := openManager(t, store, testOptions(newFakeClock()))

	store.SetUnavailable(true)
	m.SetPosition("", modelID(1), domain.Position{})
	err := m.FlushNow(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)

	stats := m.Stats()
	assert.True(t, stats.WritesDisabled)
	assert.Equal(t, 1, stats.Positions, "entries survive an unavailable store")
}

func TestManager_PrunesQuarterOfPositions(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	opts := testOptions(clock)
	opts.MaxSizeBytes = 100
	m := openManager(t, NewMemoryStore(), opts)

	for i := 0; i < 40; i++ {
		m.SetPosition("", modelID(i), domain.Position{X: float64(i)})
		m.SetAssignment(modelID(i), "g")
	}
	// Touch the oldest entry so it is no longer least recently used
	_, ok := m.Position("", modelID(0))
	require.True(t, ok)

	require.NoError(t, m.FlushNow(ctx))

	stats := m.Stats()
	assert.Equal(t, 30, stats.Positions)
	assert.Equal(t, 40, stats.Assignments, "ten pruned positions leave assignments alone")
	assert.Equal(t, clock.Now(), stats.LastPrune)

	_, ok = m.Position("", modelID(0))
	assert.True(t, ok, "recently used entry survives")
	_, ok = m.Position("", modelID(1))
	assert.False(t, ok, "least recently used entry is pruned")
}

func TestManager_PrunesAssignmentsWhenFewPositions(t *testing.T) {
	ctx := context.Background()
	opts := testOptions(newFakeClock())
	opts.MaxSizeBytes = 50
	m := openManager(t, NewMemoryStore(), opts)

	for i := 0; i < 8; i++ {
		m.SetPosition("", modelID(i), domain.Position{})
		m.SetAssignment(modelID(i), "g")
	}
	require.NoError(t, m.FlushNow(ctx))

	stats := m.Stats()
	assert.Equal(t, 6, stats.Positions)
	assert.Equal(t, 6, stats.Assignments)
}

func TestManager_PruneRateLimited(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	opts := testOptions(clock)
	opts.MaxSizeBytes = 100
	opts.MinPruneInterval = 5 * time.Second
	store := &countingStore{MemoryStore: NewMemoryStore()}
	m := openManager(t, store, opts)

	for i := 0; i < 40; i++ {
		m.SetPosition("", modelID(i), domain.Position{})
	}
	require.NoError(t, m.FlushNow(ctx))
	assert.Equal(t, 30, m.Stats().Positions)
	assert.Equal(t, 1, store.Sets())

	m.SetPosition("", modelID(100), domain.Position{})
	clock.Advance(time.Second)
	require.NoError(t, m.FlushNow(ctx))
	stats := m.Stats()
	assert.Equal(t, 31, stats.Positions, "no prune inside the interval")
	assert.True(t, stats.Dirty, "write deferred until a prune is allowed")
	assert.Equal(t, 1, store.Sets())

	clock.Advance(6 * time.Second)
	require.NoError(t, m.FlushNow(ctx))
	stats = m.Stats()
	assert.Equal(t, 23, stats.Positions)
	assert.False(t, stats.Dirty)
	assert.Equal(t, 2, store.Sets())
}

func TestManager_ExportImport(t *testing.T) {
	ctx := context.Background()
	src := openManager(t, NewMemoryStore(), testOptions(newFakeClock()))
	src.SetPosition("", modelID(1), domain.Position{X: 3, Y: 4})
	src.SetAssignment(modelID(1), "g1")
	src.SetLabel("g1", "One")

	data, err := src.Export()
	require.NoError(t, err)

	dst := openManager(t, NewMemoryStore(), testOptions(newFakeClock()))
	n, err := dst.Import(data)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	pos, ok := dst.Position("", modelID(1))
	require.True(t, ok)
	assert.Equal(t, domain.Position{X: 3, Y: 4}, pos)
	assert.True(t, dst.Stats().Dirty)
	require.NoError(t, dst.Close(ctx))
	assert.False(t, dst.Stats().Dirty)

	n, err = dst.Import([]byte(`{"positions":{"nobar":{"x":1,"y":1},"global|noseparator":{"x":1,"y":1}},"assignments":{"bad":"g"},"labels":{"":"x"}}`))
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = dst.Import([]byte(`[`))
	assert.Error(t, err)
}

func TestManager_ClearAll(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := openManager(t, store, testOptions(newFakeClock()))
	m.SetPosition("", modelID(1), domain.Position{})
	require.NoError(t, m.FlushNow(ctx))

	require.NoError(t, m.ClearAll(ctx))
	stats := m.Stats()
	assert.Zero(t, stats.Positions)
	assert.False(t, stats.Dirty)
	_, err := store.Get(ctx, m.Key())
	assert.ErrorIs(t, err, ErrNotFound)
}
