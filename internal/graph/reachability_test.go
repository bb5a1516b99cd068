package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanmcp/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, store.SymbolGraphStore) {
	t.Helper()
	s, err := store.NewSQLiteSymbolGraphStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewEngine(s, 2), s
}

func seedCallChain(t *testing.T, s store.SymbolGraphStore, workspaceID string, names ...string) {
	t.Helper()
	ctx := context.Background()
	symbols := make([]*store.SymbolRow, len(names))
	for i, n := range names {
		symbols[i] = &store.SymbolRow{ID: n, Name: n, Kind: store.KindFunction, FilePath: "a.go"}
	}
	var rels []*store.RelationshipRow
	for i := 0; i < len(names)-1; i++ {
		rels = append(rels, &store.RelationshipRow{
			ID: names[i] + "->" + names[i+1], FromSymbolID: names[i], ToSymbolID: names[i+1],
			Kind: store.RelationshipCalls, FilePath: "a.go",
		})
	}
	require.NoError(t, s.AtomicReplaceFile(ctx, workspaceID, &store.FileRow{Path: "a.go", ContentHash: "h1"}, symbols, nil, rels))
}

func TestRecompute_BuildsTransitiveClosureWithinDepth(t *testing.T) {
	ctx := context.Background()
	engine, s := newTestEngine(t)
	seedCallChain(t, s, "ws1", "a", "b", "c")

	n, err := engine.Recompute(ctx, "ws1")
	require.NoError(t, err)
	require.Greater(t, n, 0)

	ok, err := engine.CanReach(ctx, "ws1", "a", "c")
	require.NoError(t, err)
	require.True(t, ok)

	dist, found, err := engine.Distance(ctx, "ws1", "a", "c")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 2, dist)

	ok, err = engine.CanReach(ctx, "ws1", "c", "a")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRecompute_RespectsMaxDepth(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewSQLiteSymbolGraphStore("")
	require.NoError(t, err)
	defer s.Close()
	engine := NewEngine(s, 2)
	engine.maxDepth = 2

	seedCallChain(t, s, "ws1", "a", "b", "c", "d")
	_, err = engine.Recompute(ctx, "ws1")
	require.NoError(t, err)

	ok, err := engine.CanReach(ctx, "ws1", "a", "c")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = engine.CanReach(ctx, "ws1", "a", "d")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIsStale_DetectsMissingReachability(t *testing.T) {
	ctx := context.Background()
	engine, s := newTestEngine(t)
	seedCallChain(t, s, "ws1", "a", "b")

	stale, err := engine.IsStale(ctx, "ws1")
	require.NoError(t, err)
	require.True(t, stale)

	_, err = engine.Recompute(ctx, "ws1")
	require.NoError(t, err)

	stale, err = engine.IsStale(ctx, "ws1")
	require.NoError(t, err)
	require.False(t, stale)
}

func TestDependentsAndDependencies(t *testing.T) {
	ctx := context.Background()
	engine, s := newTestEngine(t)
	seedCallChain(t, s, "ws1", "a", "b", "c")
	_, err := engine.Recompute(ctx, "ws1")
	require.NoError(t, err)

	deps, err := engine.Dependencies(ctx, "ws1", "a", 10)
	require.NoError(t, err)
	require.Len(t, deps, 2)

	dependents, err := engine.Dependents(ctx, "ws1", "c", 10)
	require.NoError(t, err)
	require.Len(t, dependents, 2)
}
