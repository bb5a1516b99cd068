package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanmcp/internal/store"
)

func newTestSurfaceWithPattern(t *testing.T) (*Surface, store.SymbolGraphStore, *store.PatternIndex) {
	t.Helper()
	surface, s := newTestSurface(t)
	pi, err := store.NewPatternIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = pi.Close() })
	surface.patternIndex = pi
	return surface, s, pi
}

func TestSearch_TextMethodRanksByFTSScore(t *testing.T) {
	surface, s := newTestSurface(t)
	seedSymbol(t, s, &store.SymbolRow{ID: "sym1", Name: "ParseConfig", Kind: store.KindFunction, FilePath: "a.go", Signature: "func ParseConfig() error"})

	hits, err := surface.Search(context.Background(), testWorkspace, "ParseConfig", SearchOptions{Method: MethodText})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "sym1", hits[0].SymbolID)
	require.Equal(t, MethodText, hits[0].MethodUsed)
}

func TestSearch_AutoSelectsTextForBareIdentifier(t *testing.T) {
	surface, s := newTestSurface(t)
	seedSymbol(t, s, &store.SymbolRow{ID: "sym1", Name: "ParseConfig", Kind: store.KindFunction, FilePath: "a.go", Signature: "func ParseConfig() error"})

	hits, err := surface.Search(context.Background(), testWorkspace, "ParseConfig", SearchOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	require.Equal(t, MethodText, hits[0].MethodUsed)
}

func TestSearch_AutoSelectsPatternForCodeIdiom(t *testing.T) {
	surface, s, _ := newTestSurfaceWithPattern(t)
	seedSymbol(t, s, &store.SymbolRow{ID: "sym1", Name: "Worker", Kind: store.KindClass, FilePath: "a.go", Signature: "class Worker : BaseService"})

	hits, err := surface.Search(context.Background(), testWorkspace, ": BaseService", SearchOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	require.Equal(t, MethodPattern, hits[0].MethodUsed)
	require.Equal(t, "sym1", hits[0].SymbolID)
}

func TestSearch_PatternMethodWithoutIndexReturnsEmpty(t *testing.T) {
	surface, s := newTestSurface(t)
	seedSymbol(t, s, &store.SymbolRow{ID: "sym1", Name: "Worker", Kind: store.KindClass, FilePath: "a.go"})

	hits, err := surface.Search(context.Background(), testWorkspace, ": BaseService", SearchOptions{Method: MethodPattern})
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestSearch_TextMethodFallsBackToSemanticOnZeroResults(t *testing.T) {
	surface, s := newTestSurface(t)
	seedSymbol(t, s, &store.SymbolRow{ID: "sym1", Name: "ParseConfig", Kind: store.KindFunction, FilePath: "a.go"})

	hits, err := surface.Search(context.Background(), testWorkspace, "zzz_not_present", SearchOptions{Method: MethodText})
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestSearch_FiltersByLanguage(t *testing.T) {
	surface, s := newTestSurface(t)
	seedFile(t, s, "a.go", []*store.SymbolRow{
		{ID: "sym1", Name: "Handle", Kind: store.KindFunction, Language: "go", FilePath: "a.go"},
	}, nil, nil)
	seedFile(t, s, "b.py", []*store.SymbolRow{
		{ID: "sym2", Name: "Handle", Kind: store.KindFunction, Language: "python", FilePath: "b.py"},
	}, nil, nil)

	hits, err := surface.Search(context.Background(), testWorkspace, "Handle", SearchOptions{
		Method:  MethodText,
		Filters: SearchFilters{Language: "python"},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "sym2", hits[0].SymbolID)
}

func TestSearch_ExpandAttachesCallersAndCallees(t *testing.T) {
	surface, s := newTestSurface(t)
	seedSymbols(t, s, "a.go",
		&store.SymbolRow{ID: "caller", Name: "Caller", Kind: store.KindFunction, FilePath: "a.go"},
		&store.SymbolRow{ID: "target", Name: "Target", Kind: store.KindFunction, FilePath: "a.go"},
		&store.SymbolRow{ID: "callee", Name: "Callee", Kind: store.KindFunction, FilePath: "a.go"},
	)
	seedFile(t, s, "a.go",
		[]*store.SymbolRow{
			{ID: "caller", Name: "Caller", Kind: store.KindFunction, FilePath: "a.go"},
			{ID: "target", Name: "Target", Kind: store.KindFunction, FilePath: "a.go"},
			{ID: "callee", Name: "Callee", Kind: store.KindFunction, FilePath: "a.go"},
		},
		nil,
		[]*store.RelationshipRow{
			{ID: "r1", FromSymbolID: "caller", ToSymbolID: "target", Kind: store.RelationshipCalls, FilePath: "a.go"},
			{ID: "r2", FromSymbolID: "target", ToSymbolID: "callee", Kind: store.RelationshipCalls, FilePath: "a.go"},
		},
	)
	require.NoError(t, surface.reach.Recompute(context.Background(), testWorkspace))

	hits, err := surface.Search(context.Background(), testWorkspace, "Target", SearchOptions{
		Method: MethodText,
		Expand: true,
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.NotEmpty(t, hits[0].Callers)
	require.NotEmpty(t, hits[0].Callees)
	require.Equal(t, "caller", hits[0].Callers[0].ID)
	require.Equal(t, "callee", hits[0].Callees[0].ID)
}

func TestSearch_TieBreakOrdersByFilePathThenLine(t *testing.T) {
	surface, s := newTestSurface(t)
	seedFile(t, s, "b.go", []*store.SymbolRow{
		{ID: "sym-b", Name: "Run", Kind: store.KindFunction, FilePath: "b.go", StartLine: 5},
	}, nil, nil)
	seedFile(t, s, "a.go", []*store.SymbolRow{
		{ID: "sym-a", Name: "Run", Kind: store.KindFunction, FilePath: "a.go", StartLine: 10},
	}, nil, nil)

	hits, err := surface.Search(context.Background(), testWorkspace, "Run", SearchOptions{Method: MethodText})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "a.go", hits[0].FilePath)
	require.Equal(t, "b.go", hits[1].FilePath)
}

func TestSearch_EmptyQueryReturnsNil(t *testing.T) {
	surface, _ := newTestSurface(t)
	hits, err := surface.Search(context.Background(), testWorkspace, "   ", SearchOptions{})
	require.NoError(t, err)
	require.Nil(t, hits)
}
