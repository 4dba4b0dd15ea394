package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resourcegraph/internal/cache"
	"resourcegraph/internal/domain"
)

// newTestRepo creates an in-memory repository for testing
func newTestRepo(t *testing.T, opts ...Option) *Repository {
	t.Helper()
	repo, err := New(":memory:", opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

func TestCacheStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, cache.ErrNotFound)

	require.NoError(t, repo.Set(ctx, "k", []byte(`{"a":1}`)))
	require.NoError(t, repo.Set(ctx, "k", []byte(`{"a":2}`)))
	got, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(got))

	require.NoError(t, repo.Set(ctx, "b", []byte(`x`)))
	keys, err := repo.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "k"}, keys)

	require.NoError(t, repo.Delete(ctx, "k"))
	require.NoError(t, repo.Delete(ctx, "k"))
	_, err = repo.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestCacheStore_QuotaExceeded(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, WithMaxPageCount(16))

	big := []byte(strings.Repeat("x", 512*1024))
	err := repo.Set(ctx, "big", big)
	require.Error(t, err)
	assert.ErrorIs(t, err, cache.ErrQuotaExceeded)

	// Small writes still fit
	assert.NoError(t, repo.Set(ctx, "small", []byte(`{}`)))
}

func TestCacheStore_ClosedIsUnavailable(t *testing.T) {
	ctx := context.Background()
	repo, err := New(":memory:")
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	err = repo.Set(ctx, "k", []byte(`{}`))
	assert.ErrorIs(t, err, cache.ErrUnavailable)
}

func TestCacheStore_WithManager(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	m, err := cache.Open(ctx, repo, cache.Options{WriteDebounce: -1})
	require.NoError(t, err)
	m.SetPosition("", "rill.runtime.v1.Model:orders", domain.Position{X: 4, Y: 2})
	require.NoError(t, m.FlushNow(ctx))

	reopened, err := cache.Open(ctx, repo, cache.Options{WriteDebounce: -1})
	require.NoError(t, err)
	pos, ok := reopened.Position("", "rill.runtime.v1.Model:orders")
	require.True(t, ok)
	assert.Equal(t, domain.Position{X: 4, Y: 2}, pos)
}

func TestResources_ReplaceAndLoad(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	resources := []*domain.Resource{
		{Name: domain.ResourceName{Kind: domain.KindSource, Name: "raw"}},
		{
			Name:  domain.ResourceName{Kind: domain.KindModel, Name: "orders"},
			Refs:  []domain.ResourceName{{Kind: domain.KindSource, Name: "raw"}},
			Model: &domain.ModelSpec{InputConnector: "duckdb", Incremental: true},
		},
		{Name: domain.ResourceName{Kind: domain.KindModel}},
		{Name: domain.ResourceName{Kind: domain.KindSource, Name: "raw"}, Hidden: true},
		nil,
	}

	require.NoError(t, repo.ReplaceResources(ctx, resources, "project.yaml"))

	loaded, err := repo.LoadResources(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "rill.runtime.v1.Source:raw", loaded[0].ID())
	assert.False(t, loaded[0].Hidden, "first duplicate wins")
	assert.Equal(t, "rill.runtime.v1.Model:orders", loaded[1].ID())
	require.NotNil(t, loaded[1].Model)
	assert.True(t, loaded[1].Model.Incremental)
	assert.Equal(t, resources[1].Refs, loaded[1].Refs)

	info, err := repo.SnapshotInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "project.yaml", info.Source)
	assert.Equal(t, 2, info.Count)
	require.NotNil(t, info.LoadedAt)

	require.NoError(t, repo.ReplaceResources(ctx, resources[:1], "other.json"))
	loaded, err = repo.LoadResources(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestSnapshotInfo_Empty(t *testing.T) {
	repo := newTestRepo(t)
	info, err := repo.SnapshotInfo(context.Background())
	require.NoError(t, err)
	assert.Zero(t, info.Count)
	assert.Nil(t, info.LoadedAt)
	assert.Empty(t, info.Source)
}

func TestNullHelpers(t *testing.T) {
	assert.Equal(t, "", nullToString(sql.NullString{}))
	assert.Equal(t, "x", nullToString(sql.NullString{String: "x", Valid: true}))

	assert.Nil(t, nullToTimePtr(sql.NullTime{}))
	now := time.Now()
	got := nullToTimePtr(sql.NullTime{Time: now, Valid: true})
	require.NotNil(t, got)
	assert.True(t, got.Equal(now))
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))
	assert.ErrorIs(t, classify(errors.New("database or disk is full")), cache.ErrQuotaExceeded)
	assert.ErrorIs(t, classify(errors.New("sql: database is closed")), cache.ErrUnavailable)

	plain := errors.New("syntax error")
	assert.Equal(t, plain, classify(plain))
}
