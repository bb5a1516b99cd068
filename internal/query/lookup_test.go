package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanmcp/internal/store"
)

func TestLookup_ExactMatch(t *testing.T) {
	surface, s := newTestSurface(t)
	seedSymbol(t, s, &store.SymbolRow{ID: "sym1", Name: "ParseConfig", Kind: store.KindFunction, FilePath: "a.go"})

	hits, err := surface.Lookup(context.Background(), testWorkspace, "ParseConfig")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, StrategyExact, hits[0].Strategy)
	require.Equal(t, "sym1", hits[0].Symbol.ID)
}

func TestLookup_QualifiedNameFallsBackToTail(t *testing.T) {
	surface, s := newTestSurface(t)
	seedSymbol(t, s, &store.SymbolRow{ID: "sym1", Name: "Parse", Kind: store.KindMethod, FilePath: "a.go"})

	hits, err := surface.Lookup(context.Background(), testWorkspace, "Config.Parse")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, StrategyQualified, hits[0].Strategy)
}

func TestLookup_CaseInsensitiveFallback(t *testing.T) {
	surface, s := newTestSurface(t)
	seedSymbol(t, s, &store.SymbolRow{ID: "sym1", Name: "ParseConfig", Kind: store.KindFunction, FilePath: "a.go"})

	hits, err := surface.Lookup(context.Background(), testWorkspace, "parseconfig")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, StrategyCaseInsensitive, hits[0].Strategy)
}

func TestLookup_WordPartFallback(t *testing.T) {
	surface, s := newTestSurface(t)
	seedSymbol(t, s, &store.SymbolRow{ID: "sym1", Name: "ParseConfigFile", Kind: store.KindFunction, FilePath: "a.go"})

	hits, err := surface.Lookup(context.Background(), testWorkspace, "ConfigFile")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, StrategyWordPart, hits[0].Strategy)
}

func TestLookup_FuzzyFallback(t *testing.T) {
	surface, s := newTestSurface(t)
	seedSymbol(t, s, &store.SymbolRow{ID: "sym1", Name: "ParseConfig", Kind: store.KindFunction, FilePath: "a.go"})

	hits, err := surface.Lookup(context.Background(), testWorkspace, "ParsConfig")
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	require.Equal(t, StrategyFuzzy, hits[0].Strategy)
}

func TestLookup_NoMatchReturnsEmpty(t *testing.T) {
	surface, _ := newTestSurface(t)
	hits, err := surface.Lookup(context.Background(), testWorkspace, "CompletelyUnrelatedName")
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestDamerauLevenshtein_TranspositionCountsAsOne(t *testing.T) {
	require.Equal(t, 1, damerauLevenshtein("ab", "ba"))
	require.Equal(t, 0, damerauLevenshtein("same", "same"))
	require.Equal(t, 3, damerauLevenshtein("kitten", "sitting"))
}
