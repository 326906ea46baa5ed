package flow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peaceflow/peace/internal/item"
)

func buildLinearGraph(t *testing.T) *Graph {
	t.Helper()
	b := NewBuilder()
	require.NoError(t, b.AddItem("source"))
	require.NoError(t, b.AddItem("prepare"))
	require.NoError(t, b.AddItem("archive"))
	require.NoError(t, b.AddEdge("source", "prepare"))
	require.NoError(t, b.AddEdge("prepare", "archive"))
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func TestBuilderRejectsDuplicateItem(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddItem("source"))
	assert.Error(t, b.AddItem("source"))
}

func TestBuilderRejectsUnknownEdgeEndpoints(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddItem("source"))
	assert.Error(t, b.AddEdge("source", "ghost"))
	assert.Error(t, b.AddEdge("ghost", "source"))
}

func TestBuilderDetectsCycle(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddItem("a"))
	require.NoError(t, b.AddItem("b"))
	require.NoError(t, b.AddEdge("a", "b"))
	require.NoError(t, b.AddEdge("b", "a"))
	_, err := b.Build()
	assert.ErrorContains(t, err, "cycle detected")
}

func TestTopoForwardAndReverse(t *testing.T) {
	g := buildLinearGraph(t)
	assert.Equal(t, []item.Id{"source", "prepare", "archive"}, g.TopoForward())
	assert.Equal(t, []item.Id{"archive", "prepare", "source"}, g.TopoReverse())
}

func TestPredecessorsAndSuccessors(t *testing.T) {
	g := buildLinearGraph(t)
	assert.Equal(t, []item.Id{"source"}, g.Predecessors("prepare"))
	assert.Equal(t, []item.Id{"prepare"}, g.Successors("source"))
	assert.Empty(t, g.Predecessors("source"))
	assert.Empty(t, g.Successors("archive"))
}

func TestWalkForwardRespectsOrder(t *testing.T) {
	g := buildLinearGraph(t)
	var mu sync.Mutex
	var order []item.Id
	err := Walk(context.Background(), g, Forward, func(_ context.Context, id item.Id) error {
		mu.Lock()
		order = append(order, id)
		mu.Unlock()
		return nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []item.Id{"source", "prepare", "archive"}, order)
}

func TestWalkSkipsDescendantsOfFailure(t *testing.T) {
	g := buildLinearGraph(t)
	var mu sync.Mutex
	var ran, skipped []item.Id
	err := Walk(context.Background(), g, Forward, func(_ context.Context, id item.Id) error {
		mu.Lock()
		ran = append(ran, id)
		mu.Unlock()
		if id == "prepare" {
			return errors.New("boom")
		}
		return nil
	}, func(id item.Id) {
		mu.Lock()
		skipped = append(skipped, id)
		mu.Unlock()
	})
	assert.Error(t, err)
	assert.Equal(t, []item.Id{"source", "prepare"}, ran)
	assert.Equal(t, []item.Id{"archive"}, skipped)
}

func TestWalkReverseForClean(t *testing.T) {
	g := buildLinearGraph(t)
	var mu sync.Mutex
	var order []item.Id
	err := Walk(context.Background(), g, Reverse, func(_ context.Context, id item.Id) error {
		mu.Lock()
		order = append(order, id)
		mu.Unlock()
		return nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []item.Id{"archive", "prepare", "source"}, order)
}
