package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box(id string) Node {
	return Node{ID: id, Width: 160, Height: 56}
}

func TestLayout_ChainRanks(t *testing.T) {
	nodes := []Node{box("a"), box("b"), box("c")}
	edges := []Edge{{"a", "b"}, {"b", "c"}}

	res, err := Layout(nodes, edges, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"a": 0, "b": 1, "c": 2}, res.Ranks)
	assert.Equal(t, 28.0, res.Centers["a"].Y)
	assert.Equal(t, 156.0, res.Centers["b"].Y)
	assert.Equal(t, 284.0, res.Centers["c"].Y)
	assert.Equal(t, 80.0, res.Centers["a"].X)
	assert.Equal(t, 312.0, res.Height)
	assert.Equal(t, 160.0, res.Width)
}

func TestLayout_NodeSeparation(t *testing.T) {
	nodes := []Node{box("a"), box("b")}

	res, err := Layout(nodes, nil, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, 80.0, res.Centers["a"].X)
	assert.Equal(t, 267.0, res.Centers["b"].X)
	assert.Equal(t, 347.0, res.Width)
}

func TestLayout_PinsToLastRank(t *testing.T) {
	nodes := []Node{
		box("src"), box("model"), box("metrics"),
		{ID: "dash", Width: 160, Height: 56, PinToLastRank: true},
		{ID: "lonely", Width: 160, Height: 56, PinToLastRank: true},
	}
	edges := []Edge{{"src", "model"}, {"model", "metrics"}, {"src", "dash"}}

	res, err := Layout(nodes, edges, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Ranks["metrics"])
	assert.Equal(t, 2, res.Ranks["dash"])
	assert.Equal(t, 2, res.Ranks["lonely"])
	assert.Equal(t, res.Centers["metrics"].Y, res.Centers["dash"].Y)
}

func TestLayout_BreaksCycles(t *testing.T) {
	nodes := []Node{box("a"), box("b"), box("c")}
	edges := []Edge{{"a", "b"}, {"b", "c"}, {"c", "a"}}

	res, err := Layout(nodes, edges, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, res.Centers, 3)
	assert.Equal(t, 0, res.Ranks["a"])
	assert.Equal(t, 1, res.Ranks["b"])
	assert.Equal(t, 2, res.Ranks["c"])
}

func TestLayout_IgnoresBadEdges(t *testing.T) {
	nodes := []Node{box("a"), box("b")}
	edges := []Edge{{"a", "a"}, {"a", "missing"}, {"ghost", "b"}, {"a", "b"}, {"a", "b"}}

	res, err := Layout(nodes, edges, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Ranks["a"])
	assert.Equal(t, 1, res.Ranks["b"])
}

func TestLayout_ReducesCrossings(t *testing.T) {
	nodes := []Node{box("a"), box("b"), box("c"), box("d")}
	edges := []Edge{{"a", "d"}, {"b", "c"}}

	res, err := Layout(nodes, edges, DefaultConfig())
	require.NoError(t, err)

	assert.Less(t, res.Centers["a"].X, res.Centers["b"].X)
	assert.Less(t, res.Centers["d"].X, res.Centers["c"].X, "children follow their parents' order")
}

func TestLayout_LongEdgeUsesDummies(t *testing.T) {
	nodes := []Node{box("a"), box("b"), box("c"), box("d")}
	edges := []Edge{{"a", "b"}, {"b", "c"}, {"a", "c"}, {"a", "d"}}

	res, err := Layout(nodes, edges, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Ranks["b"])
	assert.Equal(t, 1, res.Ranks["d"])
	assert.Equal(t, 2, res.Ranks["c"])

	// Rank 1 is b, the zero-width dummy of a->c, then d. Each gap next to
	// the dummy is NodeSep/2 + EdgeSep/2.
	assert.Equal(t, 160.0*2+2*(27.0/2+4.0/2), res.Width)
	assert.Less(t, res.Centers["b"].X, res.Centers["d"].X)
}

func TestLayout_Deterministic(t *testing.T) {
	nodes := []Node{box("a"), box("b"), box("c"), box("d"), box("e")}
	edges := []Edge{{"a", "c"}, {"b", "c"}, {"c", "d"}, {"b", "e"}, {"a", "e"}}

	first, err := Layout(nodes, edges, DefaultConfig())
	require.NoError(t, err)
	second, err := Layout(nodes, edges, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLayout_Errors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NodeSep = -1
	_, err := Layout([]Node{box("a")}, nil, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.MaxNodes = 1
	_, err = Layout([]Node{box("a"), box("b")}, nil, cfg)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = Layout([]Node{box("a"), box("a")}, nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrDuplicateNode)
}

func TestLayout_Empty(t *testing.T) {
	res, err := Layout(nil, nil, DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, res.Centers)
}

func TestGrid(t *testing.T) {
	nodes := []Node{box("a"), box("b"), box("c"), box("d"), box("e")}
	res := Grid(nodes, DefaultConfig())

	require.Len(t, res.Centers, 5)
	assert.Equal(t, Point{X: 80, Y: 28}, res.Centers["a"])
	assert.Equal(t, Point{X: 80 + 2*(160+27), Y: 28}, res.Centers["c"])
	assert.Equal(t, Point{X: 80, Y: 28 + 56 + 72}, res.Centers["d"])
	assert.Equal(t, 1, res.Ranks["e"])

	assert.Empty(t, Grid(nil, DefaultConfig()).Centers)
}
