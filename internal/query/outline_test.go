package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanmcp/internal/store"
)

func TestGetSymbols_NestsByParent(t *testing.T) {
	surface, s := newTestSurface(t)
	seedSymbols(t, s, "a.go",
		&store.SymbolRow{ID: "class1", Name: "Widget", Kind: store.KindClass, FilePath: "a.go", StartLine: 1},
		&store.SymbolRow{ID: "method1", Name: "Render", Kind: store.KindMethod, FilePath: "a.go", StartLine: 2, ParentSymbolID: "class1"},
	)

	tree, err := surface.GetSymbols(context.Background(), testWorkspace, "a.go", OutlineOptions{Mode: OutlineFull})
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Equal(t, "Widget", tree[0].Symbol.Name)
	require.Len(t, tree[0].Children, 1)
	require.Equal(t, "Render", tree[0].Children[0].Symbol.Name)
}

func TestGetSymbols_StructureModeStripsSignature(t *testing.T) {
	surface, s := newTestSurface(t)
	seedSymbol(t, s, &store.SymbolRow{ID: "fn1", Name: "Foo", Kind: store.KindFunction, FilePath: "a.go", Signature: "func Foo()", DocComment: "does stuff"})

	tree, err := surface.GetSymbols(context.Background(), testWorkspace, "a.go", OutlineOptions{Mode: OutlineStructure})
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Empty(t, tree[0].Symbol.Signature)
	require.Empty(t, tree[0].Symbol.DocComment)
}

func TestGetSymbols_MinimalModeKeepsSignatureDropsDoc(t *testing.T) {
	surface, s := newTestSurface(t)
	seedSymbol(t, s, &store.SymbolRow{ID: "fn1", Name: "Foo", Kind: store.KindFunction, FilePath: "a.go", Signature: "func Foo()", DocComment: "does stuff"})

	tree, err := surface.GetSymbols(context.Background(), testWorkspace, "a.go", OutlineOptions{Mode: OutlineMinimal})
	require.NoError(t, err)
	require.Equal(t, "func Foo()", tree[0].Symbol.Signature)
	require.Empty(t, tree[0].Symbol.DocComment)
}

func TestGetSymbols_TargetFiltersByName(t *testing.T) {
	surface, s := newTestSurface(t)
	seedSymbols(t, s, "a.go",
		&store.SymbolRow{ID: "fn1", Name: "ParseConfig", Kind: store.KindFunction, FilePath: "a.go"},
		&store.SymbolRow{ID: "fn2", Name: "WriteOutput", Kind: store.KindFunction, FilePath: "a.go"},
	)

	tree, err := surface.GetSymbols(context.Background(), testWorkspace, "a.go", OutlineOptions{Mode: OutlineFull, Target: "Config"})
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Equal(t, "ParseConfig", tree[0].Symbol.Name)
}

func TestGetSymbols_MaxDepthTruncates(t *testing.T) {
	surface, s := newTestSurface(t)
	seedSymbols(t, s, "a.go",
		&store.SymbolRow{ID: "class1", Name: "Outer", Kind: store.KindClass, FilePath: "a.go", StartLine: 1},
		&store.SymbolRow{ID: "method1", Name: "Middle", Kind: store.KindMethod, FilePath: "a.go", StartLine: 2, ParentSymbolID: "class1"},
		&store.SymbolRow{ID: "inner1", Name: "Innermost", Kind: store.KindField, FilePath: "a.go", StartLine: 3, ParentSymbolID: "method1"},
	)

	tree, err := surface.GetSymbols(context.Background(), testWorkspace, "a.go", OutlineOptions{Mode: OutlineFull, MaxDepth: 1})
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)
	require.Empty(t, tree[0].Children[0].Children)

	unlimited, err := surface.GetSymbols(context.Background(), testWorkspace, "a.go", OutlineOptions{Mode: OutlineFull})
	require.NoError(t, err)
	require.Len(t, unlimited[0].Children[0].Children, 1)
}
