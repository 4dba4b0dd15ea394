package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resourcegraph/internal/app"
	"resourcegraph/internal/cache"
	"resourcegraph/internal/config"
	"resourcegraph/internal/domain"
	"resourcegraph/internal/service"
)

const testSnapshot = `resources:
  - name: {kind: Source, name: raw}
  - name: {kind: Model, name: orders}
    refs: [{kind: Source, name: raw}]
  - name: {kind: MetricsView, name: orders_mv}
    refs: [{kind: Model, name: orders}]
  - name: {kind: Explore, name: orders_dash}
    refs: [{kind: MetricsView, name: orders_mv}]
  - name: {kind: Model, name: lonely}
`

// setup writes a snapshot and a config using an SQLite cache in a temp dir
func setup(t *testing.T) (snapshotPath, configFile string) {
	t.Helper()
	dir := t.TempDir()

	snapshotPath = filepath.Join(dir, "project.yaml")
	require.NoError(t, os.WriteFile(snapshotPath, []byte(testSnapshot), 0644))

	c := config.DefaultConfig()
	c.Cache.Path = filepath.Join(dir, "cache.db")
	c.Cache.Namespace = domain.DefaultCacheNamespace
	c.Log.Level = "error"
	configFile = filepath.Join(dir, "resourcegraph.yaml")
	require.NoError(t, c.Save(configFile))
	return snapshotPath, configFile
}

// resetFlags restores every flag to its default so commands can run
// repeatedly in one process
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	outputFormat, configPath = "json", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestBuild(t *testing.T) {
	snapshot, configFile := setup(t)

	out, err := execute(t, "build", snapshot, "--config", configFile)
	require.NoError(t, err)

	var res struct {
		Nodes []domain.Node     `json:"nodes"`
		Edges []domain.Edge     `json:"edges"`
		Stats domain.GraphStats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Len(t, res.Nodes, 5)
	assert.Len(t, res.Edges, 3)
	assert.Equal(t, 5, res.Stats.Nodes)
	assert.Equal(t, 2, res.Stats.Roots)
	assert.Equal(t, 2, res.Stats.ByKind[domain.KindModel])
}

func TestBuild_YAML(t *testing.T) {
	snapshot, configFile := setup(t)

	out, err := execute(t, "build", snapshot, "--config", configFile, "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "nodes:")
	assert.Contains(t, out, "stats:")
}

func TestBuild_MissingSnapshot(t *testing.T) {
	_, configFile := setup(t)

	_, err := execute(t, "build", filepath.Join(t.TempDir(), "missing.yaml"), "--config", configFile)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestUnknownOutputFormat(t *testing.T) {
	snapshot, configFile := setup(t)

	_, err := execute(t, "build", snapshot, "--config", configFile, "-o", "xml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestGroups(t *testing.T) {
	snapshot, configFile := setup(t)

	out, err := execute(t, "groups", snapshot, "--config", configFile, "--kind", "metrics", "--expanded", "metrics:orders_mv")
	require.NoError(t, err)

	var res service.GroupsResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Groups, 1)
	assert.Equal(t, "rill.runtime.v1.MetricsView:orders_mv", res.Groups[0].ID)
	assert.Len(t, res.Groups[0].Resources, 4)
	assert.Equal(t, res.Groups[0].ID, res.Expanded)
}

func TestGroups_Resources(t *testing.T) {
	snapshot, configFile := setup(t)

	out, err := execute(t, "groups", snapshot, "--config", configFile, "--resource", "model:lonely", "--resource", "model:orders")
	require.NoError(t, err)

	var res service.GroupsResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Len(t, res.Groups, 2)
}

func TestGroups_ResourceFlagKeepsCommas(t *testing.T) {
	snapshot, configFile := setup(t)

	out, err := execute(t, "groups", snapshot, "--config", configFile, "--resource", "model:lonely,model:orders")
	require.NoError(t, err)

	var res service.GroupsResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []string{"model:lonely,model:orders"}, res.Params.Resources)
	assert.Empty(t, res.Groups, "one seed naming a resource that does not exist")
}

func TestGroups_Errors(t *testing.T) {
	snapshot, configFile := setup(t)

	_, err := execute(t, "groups", snapshot, "--config", configFile, "--mode", "bogus")
	assert.ErrorIs(t, err, service.ErrInvalidMode)

	_, err = execute(t, "groups", snapshot, "--config", configFile, "--kind", "widgets")
	assert.ErrorContains(t, err, "unknown kind")
}

func TestURL(t *testing.T) {
	_, configFile := setup(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"empty", nil, "/graph"},
		{"kind", []string{"--kind", "metrics"}, "/graph?kind=metrics"},
		{"source alias", []string{"--kind", "source"}, "/graph?kind=sources"},
		{
			"resources",
			[]string{"--resource", "model:orders", "--expanded", "model:orders"},
			"/graph?expanded=model%3Aorders&resource=model%3Aorders",
		},
		{"base", []string{"--kind", "models", "--base", "/project/graph"}, "/project/graph?kind=models"},
		{
			"comma stays in one seed",
			[]string{"--resource", "model:a,b", "--resource", "source:raw"},
			"/graph?resource=model%3Aa%2Cb&resource=source%3Araw",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append([]string{"url", "--config", configFile}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", out)
		})
	}
}

func TestCache_ExportClearImport(t *testing.T) {
	snapshot, configFile := setup(t)

	// Lay out the snapshot once so the cache holds positions
	loaded, path, err := config.LoadFromPath(configFile)
	require.NoError(t, err)
	loaded.ResolveRelative(path)
	loaded.Snapshot.Path = snapshot
	a, err := app.New(context.Background(), loaded, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	a.Service.Graph(service.GraphOptions{})
	require.NoError(t, a.Close(context.Background()))

	stats := func() cache.Stats {
		t.Helper()
		out, err := execute(t, "cache", "stats", "--config", configFile)
		require.NoError(t, err)
		var s cache.Stats
		require.NoError(t, json.Unmarshal([]byte(out), &s))
		return s
	}
	require.Equal(t, 5, stats().Positions)

	exportFile := filepath.Join(t.TempDir(), "cache.json")
	_, err = execute(t, "cache", "export", exportFile, "--config", configFile)
	require.NoError(t, err)

	_, err = execute(t, "cache", "clear", "--config", configFile)
	require.NoError(t, err)
	assert.Zero(t, stats().Positions)

	_, err = execute(t, "cache", "import", exportFile, "--config", configFile)
	require.NoError(t, err)
	assert.Equal(t, 5, stats().Positions)
}

func TestGraphParams(t *testing.T) {
	p, err := graphParams("Models", []string{" model:a ", ""}, "")
	require.NoError(t, err)
	assert.Equal(t, "models", string(p.Kind))
	assert.Equal(t, []string{"model:a"}, p.Resources)
}
