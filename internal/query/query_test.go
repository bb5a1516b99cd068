package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanmcp/internal/graph"
	"github.com/Aman-CERP/amanmcp/internal/store"
)

const testWorkspace = "ws1"

func newTestSurface(t *testing.T) (*Surface, store.SymbolGraphStore) {
	t.Helper()
	s, err := store.NewSQLiteSymbolGraphStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	engine := graph.NewEngine(s, 2)
	return NewSurface(s, engine), s
}

func seedSymbol(t *testing.T, s store.SymbolGraphStore, sym *store.SymbolRow) {
	t.Helper()
	seedFile(t, s, sym.FilePath, []*store.SymbolRow{sym}, nil, nil)
}

func seedSymbols(t *testing.T, s store.SymbolGraphStore, path string, syms ...*store.SymbolRow) {
	t.Helper()
	seedFile(t, s, path, syms, nil, nil)
}

// seedFile replaces all rows for path in one call, since AtomicReplaceFile
// deletes-then-inserts per file: symbols, identifiers, and relationships
// for the same path must be seeded together or earlier rows are wiped.
func seedFile(t *testing.T, s store.SymbolGraphStore, path string, syms []*store.SymbolRow, idents []*store.IdentifierRow, rels []*store.RelationshipRow) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.AtomicReplaceFile(ctx, testWorkspace, &store.FileRow{Path: path, ContentHash: "h-" + path}, syms, idents, rels))
}
