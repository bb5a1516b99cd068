package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanmcp/internal/idhash"
	"github.com/Aman-CERP/amanmcp/internal/store"
)

// setupQueryProject creates a project directory with a seeded symbols.db
// (one lookup-able symbol plus a caller/target/callee chain) and chdirs
// into it for the duration of the test.
func setupQueryProject(t *testing.T) {
	t.Helper()
	root := t.TempDir()
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	dataDir := filepath.Join(root, ".amanmcp")
	require.NoError(t, os.MkdirAll(dataDir, 0755))

	symbolsPath := filepath.Join(dataDir, "symbols.db")
	symbolStore, err := store.NewSQLiteSymbolGraphStore(symbolsPath)
	require.NoError(t, err)

	workspaceID := idhash.WorkspaceID(root)
	ctx := context.Background()
	require.NoError(t, symbolStore.AtomicReplaceFile(ctx, workspaceID,
		&store.FileRow{Path: "a.go", ContentHash: "h1"},
		[]*store.SymbolRow{
			{ID: "caller", Name: "Caller", Kind: store.KindFunction, FilePath: "a.go", StartLine: 1, Signature: "func Caller()"},
			{ID: "target", Name: "ParseConfig", Kind: store.KindFunction, FilePath: "a.go", StartLine: 5, Signature: "func ParseConfig() error"},
			{ID: "callee", Name: "Callee", Kind: store.KindFunction, FilePath: "a.go", StartLine: 10, Signature: "func Callee()"},
		},
		nil,
		[]*store.RelationshipRow{
			{ID: "r1", FromSymbolID: "caller", ToSymbolID: "target", Kind: store.RelationshipCalls, FilePath: "a.go"},
			{ID: "r2", FromSymbolID: "target", ToSymbolID: "callee", Kind: store.RelationshipCalls, FilePath: "a.go"},
		},
	))
	require.NoError(t, symbolStore.Close())

	oldDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	t.Cleanup(func() { _ = os.Chdir(oldDir) })
}

func TestQueryLookup(t *testing.T) {
	// Given: a seeded symbol graph
	setupQueryProject(t)

	// When: looking up an exact name
	cmd := newQueryCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--offline", "lookup", "ParseConfig"})
	require.NoError(t, cmd.Execute())

	// Then: the symbol is found
	assert.Contains(t, buf.String(), "ParseConfig")
	assert.Contains(t, buf.String(), "a.go")
}

func TestQueryGetSymbols(t *testing.T) {
	// Given: a seeded symbol graph
	setupQueryProject(t)

	// When: requesting the outline for the file
	cmd := newQueryCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--offline", "get-symbols", "a.go"})
	require.NoError(t, cmd.Execute())

	// Then: all three symbols appear
	out := buf.String()
	assert.Contains(t, out, "Caller")
	assert.Contains(t, out, "ParseConfig")
	assert.Contains(t, out, "Callee")
}

func TestQueryFindRefs(t *testing.T) {
	// Given: a seeded symbol graph with no recorded identifiers
	setupQueryProject(t)

	// When: finding references to a symbol with none recorded
	cmd := newQueryCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--offline", "find-refs", "target"})
	require.NoError(t, cmd.Execute())

	// Then: it reports no references rather than erroring
	assert.Contains(t, buf.String(), "No references")
}

func TestQuerySearchText(t *testing.T) {
	// Given: a seeded symbol graph with reachability computed (needed for --expand)
	setupQueryProject(t)
	recomputeCmd := newGraphCmd()
	recomputeCmd.SetOut(&bytes.Buffer{})
	recomputeCmd.SetArgs([]string{"recompute"})
	require.NoError(t, recomputeCmd.Execute())

	// When: searching by exact method with --expand
	cmd := newQueryCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--offline", "search", "--method", "text", "--expand", "ParseConfig"})
	require.NoError(t, cmd.Execute())

	// Then: the hit and its caller/callee show up
	out := buf.String()
	assert.Contains(t, out, "ParseConfig")
	assert.Contains(t, out, "caller: Caller")
	assert.Contains(t, out, "callee: Callee")
}

func TestQuerySearch_JSON(t *testing.T) {
	// Given: a seeded symbol graph
	setupQueryProject(t)

	// When: searching with --json
	cmd := newQueryCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--offline", "--json", "search", "--method", "text", "ParseConfig"})
	require.NoError(t, cmd.Execute())

	// Then: output is JSON containing the symbol id
	assert.Contains(t, buf.String(), `"SymbolID"`)
}

func TestQueryExploreDeadCode(t *testing.T) {
	// Given: a seeded symbol graph where Caller has no inbound references
	setupQueryProject(t)

	// When: exploring dead code
	cmd := newQueryCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--offline", "explore", "dead_code"})
	require.NoError(t, cmd.Execute())

	// Then: it runs without error (result content depends on the explore
	// algorithm's own semantics, already covered by internal/query's tests)
	_ = buf.String()
}
