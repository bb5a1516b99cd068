package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateRegistry points the workspace registry at a fresh temp directory
// so tests never touch the real user's ~/.config/amanmcp/registry.json.
func isolateRegistry(t *testing.T) {
	t.Helper()
	xdg := t.TempDir()
	oldXDG, hadXDG := os.LookupEnv("XDG_CONFIG_HOME")
	require.NoError(t, os.Setenv("XDG_CONFIG_HOME", xdg))
	t.Cleanup(func() {
		if hadXDG {
			_ = os.Setenv("XDG_CONFIG_HOME", oldXDG)
		} else {
			_ = os.Unsetenv("XDG_CONFIG_HOME")
		}
	})
}

func TestWorkspaceAddAndList(t *testing.T) {
	// Given: an isolated registry and a project directory to register
	isolateRegistry(t)
	projectDir := t.TempDir()

	// When: adding the workspace
	addCmd := newWorkspaceAddCmd()
	addBuf := &bytes.Buffer{}
	addCmd.SetOut(addBuf)
	addCmd.SetArgs([]string{projectDir})
	require.NoError(t, addCmd.Execute())

	// Then: it shows up in the list
	listCmd := newWorkspaceListCmd()
	listBuf := &bytes.Buffer{}
	listCmd.SetOut(listBuf)
	require.NoError(t, listCmd.Execute())
	assert.Contains(t, listBuf.String(), filepath.Base(projectDir))
}

func TestWorkspaceAdd_JSON(t *testing.T) {
	// Given: an isolated registry
	isolateRegistry(t)
	projectDir := t.TempDir()

	// When: adding with --json
	cmd := newWorkspaceAddCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--json", projectDir})
	require.NoError(t, cmd.Execute())

	// Then: output is JSON containing the root path
	assert.Contains(t, buf.String(), `"root_path"`)
}

func TestWorkspaceRemove(t *testing.T) {
	// Given: a registered workspace
	isolateRegistry(t)
	projectDir := t.TempDir()

	registry, err := openRegistry()
	require.NoError(t, err)
	entry, err := registry.Add(projectDir)
	require.NoError(t, err)

	// When: removing it
	cmd := newWorkspaceRemoveCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{entry.ID})
	require.NoError(t, cmd.Execute())

	// Then: it's gone from a freshly loaded registry
	reloaded, err := openRegistry()
	require.NoError(t, err)
	_, found := reloaded.Get(entry.ID)
	assert.False(t, found)
}

func TestWorkspaceHealth_Missing(t *testing.T) {
	// Given: a workspace whose root path has since been removed
	isolateRegistry(t)
	projectDir := filepath.Join(t.TempDir(), "gone")
	require.NoError(t, os.Mkdir(projectDir, 0755))

	registry, err := openRegistry()
	require.NoError(t, err)
	entry, err := registry.Add(projectDir)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(projectDir))

	// When: checking health
	cmd := newWorkspaceHealthCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{entry.ID})
	require.NoError(t, cmd.Execute())

	// Then: reports missing
	assert.Contains(t, buf.String(), "missing")
}

func TestWorkspaceClean(t *testing.T) {
	// Given: one healthy and one missing workspace
	isolateRegistry(t)
	keepDir := t.TempDir()
	goneDir := filepath.Join(t.TempDir(), "gone")
	require.NoError(t, os.Mkdir(goneDir, 0755))

	registry, err := openRegistry()
	require.NoError(t, err)
	_, err = registry.Add(keepDir)
	require.NoError(t, err)
	_, err = registry.Add(goneDir)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(goneDir))

	// When: cleaning
	cmd := newWorkspaceCleanCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	require.NoError(t, cmd.Execute())

	// Then: only the healthy workspace remains
	reloaded, err := openRegistry()
	require.NoError(t, err)
	assert.Len(t, reloaded.List(), 1)
	assert.Equal(t, keepDir, reloaded.List()[0].RootPath)
}
