// Package cache keeps node positions, group assignments and group labels
// across graph rebuilds.
//
// The Manager holds three in-memory maps and persists them as one JSON blob
// under a versioned key of a Store. Writes are debounced. When the blob grows
// past the byte budget the least recently used positions (and, if that frees
// little, assignments) are pruned. A full store clears the cache and disables
// writes until ClearAll; an unusable store only disables writes. Neither ever
// fails a graph build.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"resourcegraph/internal/apperr"
	"resourcegraph/internal/domain"
	"resourcegraph/internal/metrics"
)

// Defaults for Options
const (
	DefaultKeyPrefix        = "resourcegraph.cache"
	DefaultVersion          = 1
	DefaultWriteDebounce    = 300 * time.Millisecond
	DefaultMaxSizeBytes     = 2 << 20
	DefaultMinPruneInterval = 5 * time.Second

	// pruneFraction of entries is removed per prune
	pruneFraction = 0.25
	// below this many pruned positions, assignments are pruned too
	minPositionPrune = 10
)

// Options configures a Manager
type Options struct {
	// KeyPrefix and Version form the store key "<prefix>.v<version>".
	// Keys "<prefix>.v<N>" with another N are deleted on Open.
	KeyPrefix string
	Version   int

	// WriteDebounce delays persistence after a mutation. Negative disables
	// the timer; the cache is then only written by Persist, FlushNow or Close.
	WriteDebounce time.Duration

	MaxSizeBytes     int
	MinPruneInterval time.Duration

	Logger   *slog.Logger
	Reporter *apperr.Reporter

	// Now is the clock used for prune rate limiting
	Now func() time.Time
}

func (o *Options) applyDefaults() {
	if o.KeyPrefix == "" {
		o.KeyPrefix = DefaultKeyPrefix
	}
	if o.Version <= 0 {
		o.Version = DefaultVersion
	}
	if o.WriteDebounce == 0 {
		o.WriteDebounce = DefaultWriteDebounce
	}
	if o.MaxSizeBytes <= 0 {
		o.MaxSizeBytes = DefaultMaxSizeBytes
	}
	if o.MinPruneInterval <= 0 {
		o.MinPruneInterval = DefaultMinPruneInterval
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Stats describes the cache's health
type Stats struct {
	Key            string    `json:"key"`
	Positions      int       `json:"positions"`
	Assignments    int       `json:"assignments"`
	Labels         int       `json:"labels"`
	EstimatedBytes int       `json:"estimated_bytes"`
	MaxSizeBytes   int       `json:"max_size_bytes"`
	Dirty          bool      `json:"dirty"`
	WritesDisabled bool      `json:"writes_disabled"`
	DisabledReason string    `json:"disabled_reason,omitempty"`
	LastPrune      time.Time `json:"last_prune,omitempty"`
	LastError      string    `json:"last_error,omitempty"`
}

// blob is the persisted form
type blob struct {
	Positions   map[string]domain.Position `json:"positions"`
	Assignments map[string]string          `json:"assignments"`
	Labels      map[string]string          `json:"labels"`
}

// Manager is the layout cache. It is safe for concurrent use.
type Manager struct {
	mu    sync.Mutex
	store Store
	opts  Options
	key   string

	positions   *lruMap[domain.Position]
	assignments *lruMap[string]
	labels      *lruMap[string]

	dirty          bool
	closed         bool
	writesDisabled bool
	disabledReason string
	timer          *time.Timer
	pruneLimiter   *rate.Limiter
	lastPrune      time.Time
	lastErr        string
	log            *slog.Logger
}

// Open creates a Manager over store, sweeps legacy keys and loads the current blob.
// Storage failures are reported and leave an empty cache; only a nil store is an error.
func Open(ctx context.Context, store Store, opts Options) (*Manager, error) {
	if store == nil {
		return nil, errors.New("cache: nil store")
	}
	opts.applyDefaults()

	m := &Manager{
		store:        store,
		opts:         opts,
		key:          fmt.Sprintf("%s.v%d", opts.KeyPrefix, opts.Version),
		positions:    newLRUMap[domain.Position](),
		assignments:  newLRUMap[string](),
		labels:       newLRUMap[string](),
		pruneLimiter: rate.NewLimiter(rate.Every(opts.MinPruneInterval), 1),
		log:          opts.Logger.With("component", "cache"),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweepLegacyLocked(ctx)
	m.loadLocked(ctx)
	m.updateGaugesLocked()

	return m, nil
}

// Key returns the store key of the current cache version
func (m *Manager) Key() string {
	return m.key
}

func (m *Manager) sweepLegacyLocked(ctx context.Context) {
	keys, err := m.store.Keys(ctx)
	if err != nil {
		m.handleStoreErrLocked("cache.sweep", err)
		return
	}

	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(m.opts.KeyPrefix) + `\.v\d+$`)
	for _, k := range keys {
		if k == m.key || !pattern.MatchString(k) {
			continue
		}
		if err := m.store.Delete(ctx, k); err != nil {
			m.log.Warn("failed to delete legacy cache key", "key", k, "error", err)
			continue
		}
		m.log.Info("deleted legacy cache key", "key", k)
	}
}

func (m *Manager) loadLocked(ctx context.Context) {
	data, err := m.store.Get(ctx, m.key)
	if errors.Is(err, ErrNotFound) {
		return
	}
	if err != nil {
		m.handleStoreErrLocked("cache.load", err)
		return
	}

	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		m.log.Warn("ignoring corrupt cache blob", "key", m.key, "error", err)
		m.report(apperr.Cache("cache.load", err))
		return
	}
	m.mergeLocked(b)
}

// mergeLocked inserts blob entries in sorted key order
func (m *Manager) mergeLocked(b blob) {
	for _, k := range sortedKeys(b.Positions) {
		m.positions.set(k, b.Positions[k])
	}
	for _, k := range sortedKeys(b.Assignments) {
		m.assignments.set(k, b.Assignments[k])
	}
	for _, k := range sortedKeys(b.Labels) {
		m.labels.set(k, b.Labels[k])
	}
}

func sortedKeys[V any](in map[string]V) []string {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PositionKey returns "<ns>|<nodeID>". A blank namespace becomes "global".
func PositionKey(ns, nodeID string) string {
	ns = strings.TrimSpace(ns)
	if ns == "" {
		ns = domain.DefaultCacheNamespace
	}
	return ns + "|" + nodeID
}

// Position returns the cached position of a node in a namespace
func (m *Manager) Position(ns, nodeID string) (domain.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.positions.get(PositionKey(ns, nodeID))
}

// SetPosition caches a node position
func (m *Manager) SetPosition(ns, nodeID string, pos domain.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions.set(PositionKey(ns, nodeID), pos)
	m.markDirtyLocked()
}

// Assignment returns the group a resource was last assigned to
func (m *Manager) Assignment(resourceID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assignments.get(resourceID)
}

// SetAssignment records the group of a resource
func (m *Manager) SetAssignment(resourceID, groupID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments.set(resourceID, groupID)
	m.markDirtyLocked()
}

// Label returns a group's cached display label
func (m *Manager) Label(groupID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.labels.get(groupID)
}

// SetLabel caches a group's display label
func (m *Manager) SetLabel(groupID, label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.labels.set(groupID, label)
	m.markDirtyLocked()
}

func (m *Manager) markDirtyLocked() {
	m.dirty = true
	m.updateGaugesLocked()
	if m.closed || m.writesDisabled || m.opts.WriteDebounce < 0 {
		return
	}
	m.scheduleLocked(m.opts.WriteDebounce)
}

func (m *Manager) scheduleLocked(d time.Duration) {
	if m.timer != nil {
		m.timer.Stop()
	}
	// t is assigned under m.mu, which the callback takes before reading it
	var t *time.Timer
	t = time.AfterFunc(d, func() { m.flushFromTimer(t) })
	m.timer = t
}

// flushFromTimer persists on behalf of fired. A newer timer scheduled while
// fired waited for the lock keeps its handle.
func (m *Manager) flushFromTimer(fired *time.Timer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer == fired {
		m.timer = nil
	}
	if err := m.persistLocked(context.Background()); err != nil {
		m.log.Warn("debounced cache write failed", "error", err)
	}
}

// Persist writes the cache if it changed since the last write.
// It is a no-op when clean or when writes are disabled.
func (m *Manager) Persist(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persistLocked(ctx)
}

// FlushNow cancels a pending debounced write and persists immediately
func (m *Manager) FlushNow(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimerLocked()
	return m.persistLocked(ctx)
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) persistLocked(ctx context.Context) error {
	if m.closed || !m.dirty {
		return nil
	}
	if m.writesDisabled {
		m.dirty = false
		return nil
	}

	data, err := m.encodeLocked()
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	if len(data) > m.opts.MaxSizeBytes {
		removed, allowed := m.pruneLocked()
		if !allowed {
			// Too soon after the last prune; try again once the interval has passed.
			m.log.Debug("cache over budget, prune rate limited", "bytes", len(data), "budget", m.opts.MaxSizeBytes)
			metrics.CachePersist(metrics.PersistDeferred)
			if m.opts.WriteDebounce >= 0 {
				m.scheduleLocked(m.opts.MinPruneInterval)
			}
			return nil
		}
		if removed > 0 {
			if data, err = m.encodeLocked(); err != nil {
				return fmt.Errorf("encode cache: %w", err)
			}
		}
	}

	if err := m.store.Set(ctx, m.key, data); err != nil {
		return m.handleStoreErrLocked("cache.persist", err)
	}

	m.dirty = false
	m.lastErr = ""
	metrics.CachePersist(metrics.PersistOK)
	return nil
}

// pruneLocked removes the least recently used quarter of positions, and a
// quarter of assignments when few positions were removed. It reports false
// when the prune was rate limited.
func (m *Manager) pruneLocked() (int, bool) {
	now := m.opts.Now()
	if !m.pruneLimiter.AllowN(now, 1) {
		return 0, false
	}
	m.lastPrune = now

	positions := m.positions.evictOldest(quarter(m.positions.len()))
	assignments := 0
	if positions < minPositionPrune {
		assignments = m.assignments.evictOldest(quarter(m.assignments.len()))
	}

	metrics.CachePruned("positions", positions)
	metrics.CachePruned("assignments", assignments)
	m.updateGaugesLocked()

	m.log.Info("pruned cache",
		"positions_removed", positions,
		"assignments_removed", assignments,
	)
	return positions + assignments, true
}

func quarter(n int) int {
	return int(math.Ceil(float64(n) * pruneFraction))
}

// handleStoreErrLocked applies the store failure policy and returns the reported error
func (m *Manager) handleStoreErrLocked(op string, err error) error {
	m.lastErr = err.Error()

	switch {
	case errors.Is(err, ErrQuotaExceeded):
		metrics.CachePersist(metrics.PersistQuota)
		m.log.Warn("cache storage quota exceeded, clearing cache", "key", m.key)
		m.positions.clear()
		m.assignments.clear()
		m.labels.clear()
		if delErr := m.store.Delete(context.Background(), m.key); delErr != nil && !errors.Is(delErr, ErrNotFound) {
			m.log.Warn("failed to delete cache blob", "key", m.key, "error", delErr)
		}
		m.disableWritesLocked("quota_exceeded")

	case errors.Is(err, ErrUnavailable):
		metrics.CachePersist(metrics.PersistUnavailable)
		m.log.Warn("cache storage unavailable, disabling writes", "error", err)
		m.disableWritesLocked("unavailable")

	default:
		// Keep dirty so the next mutation or flush retries.
		metrics.CachePersist(metrics.PersistError)
		m.log.Error("cache storage error", "op", op, "error", err)
	}

	appErr := apperr.Cache(op, err)
	m.report(appErr)
	return appErr
}

func (m *Manager) disableWritesLocked(reason string) {
	m.writesDisabled = true
	m.disabledReason = reason
	m.dirty = false
	m.stopTimerLocked()
	m.updateGaugesLocked()
}

func (m *Manager) report(err *apperr.Error) {
	if m.opts.Reporter != nil {
		m.opts.Reporter.Report(err)
	}
}

func (m *Manager) encodeLocked() ([]byte, error) {
	return json.Marshal(blob{
		Positions:   m.positions.snapshot(),
		Assignments: m.assignments.snapshot(),
		Labels:      m.labels.snapshot(),
	})
}

func (m *Manager) updateGaugesLocked() {
	metrics.CacheEntries(m.positions.len(), m.assignments.len(), m.labels.len())
}

// ClearAll drops every entry, deletes the persisted blob and re-enables writes
func (m *Manager) ClearAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopTimerLocked()
	m.positions.clear()
	m.assignments.clear()
	m.labels.clear()
	m.dirty = false
	m.writesDisabled = false
	m.disabledReason = ""
	m.lastErr = ""
	m.updateGaugesLocked()

	if err := m.store.Delete(ctx, m.key); err != nil && !errors.Is(err, ErrNotFound) {
		return m.handleStoreErrLocked("cache.clear", err)
	}
	return nil
}

// Stats reports entry counts and write state
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	size := 0
	if data, err := m.encodeLocked(); err == nil {
		size = len(data)
	}

	return Stats{
		Key:            m.key,
		Positions:      m.positions.len(),
		Assignments:    m.assignments.len(),
		Labels:         m.labels.len(),
		EstimatedBytes: size,
		MaxSizeBytes:   m.opts.MaxSizeBytes,
		Dirty:          m.dirty,
		WritesDisabled: m.writesDisabled,
		DisabledReason: m.disabledReason,
		LastPrune:      m.lastPrune,
		LastError:      m.lastErr,
	}
}

// Export returns the cache as a JSON blob
func (m *Manager) Export() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.encodeLocked()
}

// Import merges a blob produced by Export. Entries keyed by an invalid
// resource id are dropped. It returns the number of entries imported.
func (m *Manager) Import(data []byte) (int, error) {
	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		return 0, fmt.Errorf("decode cache blob: %w", err)
	}

	clean := blob{
		Positions:   make(map[string]domain.Position, len(b.Positions)),
		Assignments: make(map[string]string, len(b.Assignments)),
		Labels:      make(map[string]string, len(b.Labels)),
	}
	for k, v := range b.Positions {
		_, nodeID, ok := strings.Cut(k, "|")
		if !ok {
			continue
		}
		if _, valid := domain.TryParseID(nodeID); valid {
			clean.Positions[k] = v
		}
	}
	for k, v := range b.Assignments {
		if _, valid := domain.TryParseID(k); valid && v != "" {
			clean.Assignments[k] = v
		}
	}
	for k, v := range b.Labels {
		if k != "" {
			clean.Labels[k] = v
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.mergeLocked(clean)
	m.markDirtyLocked()

	return len(clean.Positions) + len(clean.Assignments) + len(clean.Labels), nil
}

// Close cancels the debounce timer and writes pending changes. Later
// mutations stay in memory only.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimerLocked()
	err := m.persistLocked(ctx)
	m.closed = true
	return err
}
