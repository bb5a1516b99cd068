package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanmcp/internal/store"
)

func TestExplore_DeadCodeFindsUnreferencedFunction(t *testing.T) {
	surface, s := newTestSurface(t)
	seedSymbols(t, s, "a.go",
		&store.SymbolRow{ID: "used", Name: "Used", Kind: store.KindFunction, FilePath: "a.go"},
		&store.SymbolRow{ID: "unused", Name: "Unused", Kind: store.KindFunction, FilePath: "a.go"},
		&store.SymbolRow{ID: "main", Name: "main", Kind: store.KindFunction, FilePath: "a.go"},
	)
	seedFile(t, s, "b.go", nil,
		[]*store.IdentifierRow{{ID: "i1", Kind: store.IdentifierCall, FilePath: "b.go", TargetSymbolID: "used"}}, nil)

	result, err := surface.Explore(context.Background(), testWorkspace, ExploreDeadCode, ExploreOptions{})
	require.NoError(t, err)
	names := symbolNames(result.Symbols)
	require.Contains(t, names, "Unused")
	require.NotContains(t, names, "Used")
	require.NotContains(t, names, "main")
}

func TestExplore_HotSpotsRanksByFanIn(t *testing.T) {
	surface, s := newTestSurface(t)
	seedSymbols(t, s, "a.go",
		&store.SymbolRow{ID: "popular", Name: "Popular", Kind: store.KindFunction, FilePath: "a.go"},
		&store.SymbolRow{ID: "rare", Name: "Rare", Kind: store.KindFunction, FilePath: "a.go"},
		&store.SymbolRow{ID: "caller1", Name: "Caller1", Kind: store.KindFunction, FilePath: "a.go"},
		&store.SymbolRow{ID: "caller2", Name: "Caller2", Kind: store.KindFunction, FilePath: "a.go"},
		&store.SymbolRow{ID: "caller3", Name: "Caller3", Kind: store.KindFunction, FilePath: "a.go"},
	)
	seedFile(t, s, "b.go", nil, nil, []*store.RelationshipRow{
		{ID: "r1", FromSymbolID: "caller1", ToSymbolID: "popular", Kind: store.RelationshipCalls, FilePath: "b.go"},
		{ID: "r2", FromSymbolID: "caller2", ToSymbolID: "popular", Kind: store.RelationshipCalls, FilePath: "b.go"},
		{ID: "r3", FromSymbolID: "caller3", ToSymbolID: "rare", Kind: store.RelationshipCalls, FilePath: "b.go"},
	})

	result, err := surface.Explore(context.Background(), testWorkspace, ExploreHotSpots, ExploreOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, result.Symbols)
	require.Equal(t, "Popular", result.Symbols[0].Name)
}

func TestExplore_TypesReturnsOnlyTypeKinds(t *testing.T) {
	surface, s := newTestSurface(t)
	seedSymbols(t, s, "a.go",
		&store.SymbolRow{ID: "c1", Name: "Widget", Kind: store.KindClass, FilePath: "a.go"},
		&store.SymbolRow{ID: "f1", Name: "DoThing", Kind: store.KindFunction, FilePath: "a.go"},
	)

	result, err := surface.Explore(context.Background(), testWorkspace, ExploreTypes, ExploreOptions{})
	require.NoError(t, err)
	names := symbolNames(result.Symbols)
	require.Contains(t, names, "Widget")
	require.NotContains(t, names, "DoThing")
}

func TestExplore_UnrecognizedModeErrors(t *testing.T) {
	surface, _ := newTestSurface(t)
	_, err := surface.Explore(context.Background(), testWorkspace, ExploreMode("bogus"), ExploreOptions{})
	require.Error(t, err)
}

func TestExplore_SimilarWithoutEmbedderReturnsEmpty(t *testing.T) {
	surface, s := newTestSurface(t)
	seedSymbol(t, s, &store.SymbolRow{ID: "fn1", Name: "Foo", Kind: store.KindFunction, FilePath: "a.go"})

	result, err := surface.Explore(context.Background(), testWorkspace, ExploreSimilar, ExploreOptions{Target: "fn1"})
	require.NoError(t, err)
	require.Empty(t, result.Symbols)
}

func symbolNames(symbols []*store.SymbolRow) []string {
	names := make([]string, len(symbols))
	for i, s := range symbols {
		names[i] = s.Name
	}
	return names
}
