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

// setupGraphProject creates a project directory with a seeded symbols.db
// (caller -> target -> callee, all Calls edges) and chdirs into it for the
// duration of the test.
func setupGraphProject(t *testing.T) (root, workspaceID string) {
	t.Helper()
	root = t.TempDir()
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	dataDir := filepath.Join(root, ".amanmcp")
	require.NoError(t, os.MkdirAll(dataDir, 0755))

	symbolsPath := filepath.Join(dataDir, "symbols.db")
	symbolStore, err := store.NewSQLiteSymbolGraphStore(symbolsPath)
	require.NoError(t, err)

	workspaceID = idhash.WorkspaceID(root)
	ctx := context.Background()
	require.NoError(t, symbolStore.AtomicReplaceFile(ctx, workspaceID,
		&store.FileRow{Path: "a.go", ContentHash: "h1"},
		[]*store.SymbolRow{
			{ID: "caller", Name: "Caller", Kind: store.KindFunction, FilePath: "a.go", StartLine: 1},
			{ID: "target", Name: "Target", Kind: store.KindFunction, FilePath: "a.go", StartLine: 5},
			{ID: "callee", Name: "Callee", Kind: store.KindFunction, FilePath: "a.go", StartLine: 10},
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

	return root, workspaceID
}

func TestGraphRecomputeAndStale(t *testing.T) {
	// Given: a seeded symbol graph with no reachability computed yet
	setupGraphProject(t)

	// When: checking staleness before recompute
	staleCmd := newGraphCmd()
	staleBuf := &bytes.Buffer{}
	staleCmd.SetOut(staleBuf)
	staleCmd.SetArgs([]string{"stale"})
	require.NoError(t, staleCmd.Execute())
	assert.Contains(t, staleBuf.String(), "stale")

	// And: recomputing
	recomputeCmd := newGraphCmd()
	recomputeBuf := &bytes.Buffer{}
	recomputeCmd.SetOut(recomputeBuf)
	recomputeCmd.SetArgs([]string{"recompute"})
	require.NoError(t, recomputeCmd.Execute())
	assert.Contains(t, recomputeBuf.String(), "Recomputed")

	// Then: it reports fresh afterward
	freshCmd := newGraphCmd()
	freshBuf := &bytes.Buffer{}
	freshCmd.SetOut(freshBuf)
	freshCmd.SetArgs([]string{"stale"})
	require.NoError(t, freshCmd.Execute())
	assert.Contains(t, freshBuf.String(), "fresh")
}

func TestGraphDependentsAndDependencies(t *testing.T) {
	// Given: a recomputed reachability graph
	setupGraphProject(t)
	recomputeCmd := newGraphCmd()
	recomputeCmd.SetOut(&bytes.Buffer{})
	recomputeCmd.SetArgs([]string{"recompute"})
	require.NoError(t, recomputeCmd.Execute())

	// When: listing dependents of target
	depsCmd := newGraphCmd()
	depsBuf := &bytes.Buffer{}
	depsCmd.SetOut(depsBuf)
	depsCmd.SetArgs([]string{"dependents", "target"})
	require.NoError(t, depsCmd.Execute())
	assert.Contains(t, depsBuf.String(), "Caller")

	// Then: listing dependencies of target shows callee
	depcyCmd := newGraphCmd()
	depcyBuf := &bytes.Buffer{}
	depcyCmd.SetOut(depcyBuf)
	depcyCmd.SetArgs([]string{"dependencies", "target"})
	require.NoError(t, depcyCmd.Execute())
	assert.Contains(t, depcyBuf.String(), "Callee")
}

func TestGraphDistance(t *testing.T) {
	// Given: a recomputed reachability graph
	setupGraphProject(t)
	recomputeCmd := newGraphCmd()
	recomputeCmd.SetOut(&bytes.Buffer{})
	recomputeCmd.SetArgs([]string{"recompute"})
	require.NoError(t, recomputeCmd.Execute())

	// When: asking the distance from caller to callee
	cmd := newGraphCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"distance", "caller", "callee"})
	require.NoError(t, cmd.Execute())

	// Then: it reports two hops
	assert.Contains(t, buf.String(), "distance: 2")
}
