package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSymbolGraphStore(t *testing.T) *SQLiteSymbolGraphStore {
	t.Helper()
	s, err := NewSQLiteSymbolGraphStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleFile(path, hash string) *FileRow {
	return &FileRow{Path: path, Language: "go", ContentHash: hash, Size: 100, ModTime: 1, LastIndexed: 1}
}

func TestAtomicReplaceFile_InsertsAllRows(t *testing.T) {
	ctx := context.Background()
	s := newTestSymbolGraphStore(t)

	sym := &SymbolRow{ID: "sym1", Name: "Foo", Kind: KindFunction, Language: "go", FilePath: "a.go", Signature: "func Foo()"}
	ident := &IdentifierRow{ID: "id1", Name: "Bar", Kind: IdentifierCall, FilePath: "a.go", ContainingSymbolID: "sym1", TargetSymbolID: "sym2", Confidence: 1.0}
	rel := &RelationshipRow{ID: "rel1", FromSymbolID: "sym1", ToSymbolID: "sym2", Kind: RelationshipCalls, FilePath: "a.go", Confidence: 1.0}

	err := s.AtomicReplaceFile(ctx, "ws1", sampleFile("a.go", "h1"), []*SymbolRow{sym}, []*IdentifierRow{ident}, []*RelationshipRow{rel})
	require.NoError(t, err)

	file, err := s.GetFileRow(ctx, "ws1", "a.go")
	require.NoError(t, err)
	require.NotNil(t, file)
	require.Equal(t, "h1", file.ContentHash)

	symbols, err := s.GetSymbolsByFile(ctx, "ws1", "a.go")
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	require.Equal(t, "Foo", symbols[0].Name)

	rels, err := s.GetRelationshipsFrom(ctx, "ws1", "sym1", RelationshipCalls)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	require.Equal(t, "sym2", rels[0].ToSymbolID)

	idents, err := s.GetIdentifiersByTarget(ctx, "ws1", "sym2")
	require.NoError(t, err)
	require.Len(t, idents, 1)
}

func TestAtomicReplaceFile_ReplacesPriorRows(t *testing.T) {
	ctx := context.Background()
	s := newTestSymbolGraphStore(t)

	sym1 := &SymbolRow{ID: "sym1", Name: "Old", Kind: KindFunction, FilePath: "a.go"}
	require.NoError(t, s.AtomicReplaceFile(ctx, "ws1", sampleFile("a.go", "h1"), []*SymbolRow{sym1}, nil, nil))

	sym2 := &SymbolRow{ID: "sym2", Name: "New", Kind: KindFunction, FilePath: "a.go"}
	require.NoError(t, s.AtomicReplaceFile(ctx, "ws1", sampleFile("a.go", "h2"), []*SymbolRow{sym2}, nil, nil))

	symbols, err := s.GetSymbolsByFile(ctx, "ws1", "a.go")
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	require.Equal(t, "New", symbols[0].Name)

	file, err := s.GetFileRow(ctx, "ws1", "a.go")
	require.NoError(t, err)
	require.Equal(t, "h2", file.ContentHash)
}

func TestAtomicReplaceFile_RejectsMissingParent(t *testing.T) {
	ctx := context.Background()
	s := newTestSymbolGraphStore(t)

	sym := &SymbolRow{ID: "sym1", Name: "Foo", Kind: KindMethod, FilePath: "a.go", ParentSymbolID: "does-not-exist"}
	err := s.AtomicReplaceFile(ctx, "ws1", sampleFile("a.go", "h1"), []*SymbolRow{sym}, nil, nil)
	require.Error(t, err)

	file, err := s.GetFileRow(ctx, "ws1", "a.go")
	require.NoError(t, err)
	require.Nil(t, file)
}

func TestDeleteFilesBatch_CascadesRelationships(t *testing.T) {
	ctx := context.Background()
	s := newTestSymbolGraphStore(t)

	sym1 := &SymbolRow{ID: "sym1", Name: "Foo", Kind: KindFunction, FilePath: "a.go"}
	rel := &RelationshipRow{ID: "rel1", FromSymbolID: "sym1", ToSymbolID: "sym2", Kind: RelationshipCalls, FilePath: "a.go"}
	require.NoError(t, s.AtomicReplaceFile(ctx, "ws1", sampleFile("a.go", "h1"), []*SymbolRow{sym1}, nil, []*RelationshipRow{rel}))

	require.NoError(t, s.DeleteFilesBatch(ctx, "ws1", []string{"a.go"}))

	file, err := s.GetFileRow(ctx, "ws1", "a.go")
	require.NoError(t, err)
	require.Nil(t, file)

	rels, err := s.GetRelationshipsFrom(ctx, "ws1", "sym1", "")
	require.NoError(t, err)
	require.Empty(t, rels)
}

func TestSearchSymbolsFTS_MatchesNameAndRanks(t *testing.T) {
	ctx := context.Background()
	s := newTestSymbolGraphStore(t)

	sym1 := &SymbolRow{ID: "sym1", Name: "ParseConfig", Kind: KindFunction, FilePath: "a.go", Signature: "func ParseConfig() error"}
	sym2 := &SymbolRow{ID: "sym2", Name: "ParseQuery", Kind: KindFunction, FilePath: "b.go", Signature: "func ParseQuery(s string) error"}
	require.NoError(t, s.AtomicReplaceFile(ctx, "ws1", sampleFile("a.go", "h1"), []*SymbolRow{sym1}, nil, nil))
	require.NoError(t, s.AtomicReplaceFile(ctx, "ws1", sampleFile("b.go", "h2"), []*SymbolRow{sym2}, nil, nil))

	hits, err := s.SearchSymbolsFTS(ctx, "ws1", "ParseConfig", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "sym1", hits[0].ID)
}

func TestSearchSymbolsFTS_EmptyQueryReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	s := newTestSymbolGraphStore(t)
	hits, err := s.SearchSymbolsFTS(ctx, "ws1", "   ", 10)
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestReachability_ReplaceAndQuery(t *testing.T) {
	ctx := context.Background()
	s := newTestSymbolGraphStore(t)

	rows := []*ReachabilityRow{
		{SourceID: "a", TargetID: "b", MinDistance: 1},
		{SourceID: "a", TargetID: "c", MinDistance: 2},
	}
	require.NoError(t, s.ReplaceReachability(ctx, "ws1", rows))

	ok, err := s.CanReach(ctx, "ws1", "a", "c")
	require.NoError(t, err)
	require.True(t, ok)

	d, found, err := s.Distance(ctx, "ws1", "a", "c")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 2, d)

	from, err := s.ReachFrom(ctx, "ws1", "a", 1)
	require.NoError(t, err)
	require.Len(t, from, 1)
	require.Equal(t, "b", from[0].TargetID)

	count, err := s.CountReachability(ctx, "ws1")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	require.NoError(t, s.ReplaceReachability(ctx, "ws1", []*ReachabilityRow{{SourceID: "a", TargetID: "b", MinDistance: 1}}))
	count, err = s.CountReachability(ctx, "ws1")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
