package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resourcegraph/internal/config"
	"resourcegraph/internal/service"
)

const snapshot = "resources:\n  - name: {kind: Model, name: orders}\n  - name: {kind: MetricsView, name: mv}\n    refs: [{kind: Model, name: orders}]\n"

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Cache.Backend = backend
	cfg.Cache.Path = ""
	if backend != config.BackendMemory {
		cfg.Cache.Path = filepath.Join(dir, "cache")
	}
	cfg.Cache.WriteDebounce = config.Duration(-1)
	cfg.Snapshot.Path = filepath.Join(dir, "project.yaml")
	cfg.Snapshot.WatchDebounce = config.Duration(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(cfg.Snapshot.Path, []byte(snapshot), 0644))
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_Backends(t *testing.T) {
	for _, backend := range []string{config.BackendMemory, config.BackendSQLite, config.BackendBadger} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			a, err := New(ctx, testConfig(t, backend), quietLogger())
			require.NoError(t, err)

			g := a.Service.Graph(service.GraphOptions{})
			assert.Len(t, g.Nodes, 2)
			assert.Len(t, g.Edges, 1)
			assert.Equal(t, 2, a.Cache.Stats().Positions)

			require.NoError(t, a.Close(ctx))
		})
	}
}

func TestNew_PersistsAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.BackendSQLite)

	first, err := New(ctx, cfg, quietLogger())
	require.NoError(t, err)
	first.Service.Graph(service.GraphOptions{})
	require.NoError(t, first.Close(ctx))

	// Without the snapshot file the persisted snapshot and positions are served
	require.NoError(t, os.Remove(cfg.Snapshot.Path))
	second, err := New(ctx, cfg, quietLogger())
	require.NoError(t, err)
	defer second.Close(ctx)

	assert.Len(t, second.Service.Resources(), 2)
	assert.Equal(t, 2, second.Cache.Stats().Positions)
}

func TestNew_BadSnapshot(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	require.NoError(t, os.WriteFile(cfg.Snapshot.Path, []byte("resources: {"), 0644))

	_, err := New(context.Background(), cfg, quietLogger())
	assert.Error(t, err)
}

func TestNew_UnknownBackend(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	cfg.Cache.Backend = "etcd"
	_, err := New(context.Background(), cfg, quietLogger())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestWatchSnapshot_Reloads(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig(t, config.BackendMemory)
	a, err := New(ctx, cfg, quietLogger())
	require.NoError(t, err)
	defer a.Close(context.Background())

	events := make(chan service.Event, 8)
	a.Bus.Subscribe(events)

	go a.WatchSnapshot(ctx)
	time.Sleep(100 * time.Millisecond)

	updated := snapshot + "  - name: {kind: Explore, name: dash}\n    refs: [{kind: MetricsView, name: mv}]\n"
	require.NoError(t, os.WriteFile(cfg.Snapshot.Path, []byte(updated), 0644))

	require.Eventually(t, func() bool { return len(a.Service.Resources()) == 3 }, 3*time.Second, 20*time.Millisecond)
	select {
	case ev := <-events:
		assert.Equal(t, service.EventSnapshotReloaded, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("no reload event")
	}

	// A broken file keeps the last good snapshot and reports an error
	require.NoError(t, os.WriteFile(cfg.Snapshot.Path, []byte("resources: {"), 0644))
	require.Eventually(t, func() bool {
		select {
		case ev := <-events:
			return ev.Type == service.EventGraphError
		default:
			return false
		}
	}, 3*time.Second, 20*time.Millisecond)
	assert.Len(t, a.Service.Resources(), 3)
}

func TestHandler_ServesAPI(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t, config.BackendMemory), quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(ctx) })

	h := a.Handler(nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/graph", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rill.runtime.v1.Model:orders")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServe_StopsOnCancel(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	a, err := New(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
