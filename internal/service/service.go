package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"resourcegraph/internal/apperr"
	"resourcegraph/internal/cache"
	"resourcegraph/internal/domain"
	"resourcegraph/internal/graph"
	"resourcegraph/internal/layout"
	"resourcegraph/internal/loader"
	"resourcegraph/internal/partition"
	"resourcegraph/internal/repository"
	"resourcegraph/internal/seed"
)

var (
	// ErrInvalidMode is returned for an unknown partition mode
	ErrInvalidMode = errors.New("invalid partition mode")
	// ErrNoCache is returned by cache operations when the service runs without a cache
	ErrNoCache = errors.New("cache not configured")
)

// Options configures a GraphService
type Options struct {
	// Namespace is the default position namespace
	Namespace string
	Layout    layout.Config
	Logger    *slog.Logger
	Reporter  *apperr.Reporter
}

// SnapshotInfo describes the snapshot currently served
type SnapshotInfo struct {
	Source   string    `json:"source,omitempty"`
	Count    int       `json:"count"`
	LoadedAt time.Time `json:"loaded_at,omitempty"`
}

// GraphService provides business logic for graph operations
type GraphService struct {
	mu        sync.RWMutex
	resources []*domain.Resource
	info      SnapshotInfo

	repo      repository.Repository
	cache     *cache.Manager
	builder   *graph.Builder
	eventBus  *EventBus
	namespace string
	logger    *slog.Logger
}

// NewGraphService creates a new graph service. repo and cacheMgr may be nil.
func NewGraphService(repo repository.Repository, cacheMgr *cache.Manager, eventBus *EventBus, opts Options) *GraphService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Layout == (layout.Config{}) {
		opts.Layout = layout.DefaultConfig()
	}
	ns := strings.TrimSpace(opts.Namespace)
	if ns == "" {
		ns = domain.DefaultCacheNamespace
	}

	s := &GraphService{
		repo:      repo,
		cache:     cacheMgr,
		eventBus:  eventBus,
		namespace: ns,
		logger:    opts.Logger.With("component", "service"),
	}

	var positions graph.PositionCache
	if cacheMgr != nil {
		positions = cacheMgr
	}
	s.builder = graph.NewBuilder(positions,
		graph.WithLayoutConfig(opts.Layout),
		graph.WithReporter(opts.Reporter),
		graph.WithLogger(opts.Logger),
	)
	return s
}

// partitionCache returns the cache as a partition.Cache, or nil
func (s *GraphService) partitionCache() partition.Cache {
	if s.cache == nil {
		return nil
	}
	return s.cache
}

// Restore loads the last persisted snapshot from the repository
func (s *GraphService) Restore(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	resources, err := s.repo.LoadResources(ctx)
	if err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	info, err := s.repo.SnapshotInfo(ctx)
	if err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}

	s.mu.Lock()
	s.resources = resources
	s.info = SnapshotInfo{Source: info.Source, Count: len(resources)}
	if info.LoadedAt != nil {
		s.info.LoadedAt = *info.LoadedAt
	}
	s.mu.Unlock()

	s.logger.Info("snapshot restored", "source", info.Source, "resources", len(resources))
	return nil
}

// Resources returns a copy of the current snapshot
func (s *GraphService) Resources() []*domain.Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*domain.Resource(nil), s.resources...)
}

// Snapshot describes the current snapshot
func (s *GraphService) Snapshot() SnapshotInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// ReplaceResources swaps in a new snapshot, persists it and publishes
// EventSnapshotReloaded. The snapshot is served even if persisting fails.
func (s *GraphService) ReplaceResources(ctx context.Context, resources []*domain.Resource, source string) error {
	info := SnapshotInfo{Source: source, Count: len(resources), LoadedAt: time.Now().UTC()}

	s.mu.Lock()
	s.resources = resources
	s.info = info
	s.mu.Unlock()

	s.logger.Info("snapshot replaced", "source", source, "resources", len(resources))
	s.eventBus.Publish(Event{Type: EventSnapshotReloaded, Payload: info})

	if s.repo == nil {
		return nil
	}
	if err := s.repo.ReplaceResources(ctx, resources, source); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	return nil
}

// ReloadFromFile reads a snapshot file and replaces the current snapshot
func (s *GraphService) ReloadFromFile(ctx context.Context, path string) error {
	resources, err := loader.LoadFile(path)
	if err != nil {
		return err
	}
	return s.ReplaceResources(ctx, resources, path)
}

// GraphOptions select the position namespace of a build
type GraphOptions struct {
	Namespace   string
	IgnoreCache bool
}

// Graph builds the graph of the current snapshot
func (s *GraphService) Graph(opts GraphOptions) *domain.Graph {
	ns := strings.TrimSpace(opts.Namespace)
	if ns == "" {
		ns = s.namespace
	}
	return s.builder.Build(s.Resources(), graph.Options{
		PositionNamespace: ns,
		IgnoreCache:       opts.IgnoreCache,
	})
}

// GroupQuery selects how to partition the snapshot
type GroupQuery struct {
	Mode   string
	Params seed.GraphParams
}

// GroupsResult is a partition of the snapshot
type GroupsResult struct {
	Mode     string           `json:"mode"`
	Params   seed.GraphParams `json:"params"`
	Groups   []*domain.Group  `json:"groups"`
	Expanded string           `json:"expanded,omitempty"`
}

// Groups partitions the current snapshot. Mode "seeds" (the default) uses the
// kind token or resources of the params; mode "metrics" ignores them.
func (s *GraphService) Groups(q GroupQuery) (*GroupsResult, error) {
	mode := strings.ToLower(strings.TrimSpace(q.Mode))
	if mode == "" {
		mode = partition.ModeSeeds
	}
	resources := s.Resources()

	res := &GroupsResult{Mode: mode, Params: q.Params}
	switch mode {
	case partition.ModeSeeds:
		seeds := seed.ExpandSeedsByKind(seed.ParamsToSeeds(q.Params), resources, nil)
		res.Groups = partition.BySeeds(resources, seeds, partition.SeedOptions{
			Cache:      s.partitionCache(),
			FilterKind: partition.FilterForToken(q.Params.Kind),
		})
	case partition.ModeMetrics:
		res.Groups = partition.ByMetrics(resources, s.partitionCache())
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, q.Mode)
	}

	if q.Params.Expanded != "" {
		expanded := seed.NormalizeSeed(q.Params.Expanded).ID()
		for _, g := range res.Groups {
			if g.ID == expanded {
				res.Expanded = g.ID
				break
			}
		}
	}
	return res, nil
}

// CacheStats reports the cache's health
func (s *GraphService) CacheStats() (cache.Stats, error) {
	if s.cache == nil {
		return cache.Stats{}, ErrNoCache
	}
	return s.cache.Stats(), nil
}

// ClearCache drops all cached positions, assignments and labels
func (s *GraphService) ClearCache(ctx context.Context) error {
	if s.cache == nil {
		return ErrNoCache
	}
	if err := s.cache.ClearAll(ctx); err != nil {
		return err
	}
	s.eventBus.Publish(Event{Type: EventCacheCleared})
	return nil
}

// ExportCache returns the cache blob
func (s *GraphService) ExportCache() ([]byte, error) {
	if s.cache == nil {
		return nil, ErrNoCache
	}
	return s.cache.Export()
}

// ImportCache merges a cache blob and persists it
func (s *GraphService) ImportCache(ctx context.Context, data []byte) (int, error) {
	if s.cache == nil {
		return 0, ErrNoCache
	}
	n, err := s.cache.Import(data)
	if err != nil {
		return 0, err
	}
	if err := s.cache.Persist(ctx); err != nil {
		s.logger.Warn("persist imported cache", "error", err)
	}
	s.eventBus.Publish(Event{Type: EventCacheImported, Payload: map[string]int{"entries": n}})
	return n, nil
}

// ErrorHandler returns an apperr handler that publishes reported errors.
// It must not call back into the cache: the cache reports while locked.
func (s *GraphService) ErrorHandler() apperr.Handler {
	return func(err *apperr.Error) {
		payload := map[string]string{
			"category": string(err.Category),
			"op":       err.Op,
			"message":  err.Message,
			"recovery": err.Recovery,
		}
		s.eventBus.Publish(Event{Type: EventGraphError, Payload: payload})
	}
}

// Close flushes pending cache writes
func (s *GraphService) Close(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Close(ctx)
}
