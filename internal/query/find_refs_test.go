package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanmcp/internal/store"
)

func TestFindRefs_GroupsByFileAndSortsByCount(t *testing.T) {
	surface, s := newTestSurface(t)

	seedFile(t, s, "busy.go",
		[]*store.SymbolRow{{ID: "caller1", Name: "Caller1", Kind: store.KindFunction, FilePath: "busy.go"}},
		[]*store.IdentifierRow{
			{ID: "i1", Name: "Target", Kind: store.IdentifierCall, FilePath: "busy.go", Line: 10, TargetSymbolID: "target"},
			{ID: "i2", Name: "Target", Kind: store.IdentifierCall, FilePath: "busy.go", Line: 5, TargetSymbolID: "target"},
		}, nil)
	seedFile(t, s, "quiet.go",
		[]*store.SymbolRow{{ID: "caller2", Name: "Caller2", Kind: store.KindFunction, FilePath: "quiet.go"}},
		[]*store.IdentifierRow{
			{ID: "i3", Name: "Target", Kind: store.IdentifierCall, FilePath: "quiet.go", Line: 1, TargetSymbolID: "target"},
		}, nil)

	groups, err := surface.FindRefs(context.Background(), testWorkspace, "target", FindRefsOptions{})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Equal(t, "busy.go", groups[0].FilePath)
	require.Len(t, groups[0].Identifiers, 2)
	require.Equal(t, 5, groups[0].Identifiers[0].Line)
	require.Equal(t, "quiet.go", groups[1].FilePath)
}

func TestFindRefs_KindFilter(t *testing.T) {
	surface, s := newTestSurface(t)
	seedFile(t, s, "a.go", nil,
		[]*store.IdentifierRow{
			{ID: "i1", Kind: store.IdentifierCall, FilePath: "a.go", TargetSymbolID: "target"},
			{ID: "i2", Kind: store.IdentifierTypeUsage, FilePath: "a.go", TargetSymbolID: "target"},
		}, nil)

	groups, err := surface.FindRefs(context.Background(), testWorkspace, "target", FindRefsOptions{KindFilter: store.IdentifierTypeUsage})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Identifiers, 1)
	require.Equal(t, store.IdentifierTypeUsage, groups[0].Identifiers[0].Kind)
}

func TestFindRefs_NoReferencesReturnsEmpty(t *testing.T) {
	surface, _ := newTestSurface(t)
	groups, err := surface.FindRefs(context.Background(), testWorkspace, "nothing", FindRefsOptions{})
	require.NoError(t, err)
	require.Empty(t, groups)
}
