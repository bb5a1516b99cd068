package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanmcp/internal/store"
)

func seedCallChain(t *testing.T, s store.SymbolGraphStore, names ...string) {
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
	require.NoError(t, s.AtomicReplaceFile(ctx, testWorkspace, &store.FileRow{Path: "a.go", ContentHash: "h1"}, symbols, nil, rels))
}

func TestTrace_FindsExactNameMatchDownstream(t *testing.T) {
	surface, s := newTestSurface(t)
	seedCallChain(t, s, "handleRequest", "validateInput", "persistRecord")

	ctx := context.Background()
	n, err := surface.reach.Recompute(ctx, testWorkspace)
	require.NoError(t, err)
	require.Greater(t, n, 0)

	result, err := surface.Trace(ctx, testWorkspace, "handleRequest", "persistRecord", TraceOptions{})
	require.NoError(t, err)
	require.True(t, result.Found)
	require.Equal(t, "persistRecord", result.Hops[0].Symbol.Name)
	require.Equal(t, 1.0, result.Hops[0].Confidence)
}

func TestTrace_MatchesNamingVariant(t *testing.T) {
	surface, s := newTestSurface(t)
	seedCallChain(t, s, "handleRequest", "persist_record")

	ctx := context.Background()
	_, err := surface.reach.Recompute(ctx, testWorkspace)
	require.NoError(t, err)

	result, err := surface.Trace(ctx, testWorkspace, "handleRequest", "persistRecord", TraceOptions{})
	require.NoError(t, err)
	require.True(t, result.Found)
	require.Equal(t, "persist_record", result.Hops[0].Symbol.Name)
	require.Less(t, result.Hops[0].Confidence, 1.0)
}

func TestTrace_NoPathReturnsNotFound(t *testing.T) {
	surface, s := newTestSurface(t)
	seedCallChain(t, s, "isolated")

	ctx := context.Background()
	_, err := surface.reach.Recompute(ctx, testWorkspace)
	require.NoError(t, err)

	result, err := surface.Trace(ctx, testWorkspace, "isolated", "nonexistentTarget", TraceOptions{})
	require.NoError(t, err)
	require.False(t, result.Found)
}
