package workspace

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAdd_IsIdempotentForSameRoot(t *testing.T) {
	dir := t.TempDir()
	regPath := filepath.Join(dir, "registry.json")
	r, err := Load(regPath)
	require.NoError(t, err)

	projectDir := t.TempDir()
	e1, err := r.Add(projectDir)
	require.NoError(t, err)
	e2, err := r.Add(projectDir)
	require.NoError(t, err)
	require.Equal(t, e1.ID, e2.ID)

	require.Len(t, r.List(), 1)
}

func TestLoad_PersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	regPath := filepath.Join(dir, "registry.json")
	r1, err := Load(regPath)
	require.NoError(t, err)

	projectDir := t.TempDir()
	entry, err := r1.Add(projectDir)
	require.NoError(t, err)

	r2, err := Load(regPath)
	require.NoError(t, err)
	got, ok := r2.Get(entry.ID)
	require.True(t, ok)
	require.Equal(t, entry.RootPath, got.RootPath)
}

func TestHealth_ReportsMissingWhenRootDeleted(t *testing.T) {
	dir := t.TempDir()
	regPath := filepath.Join(dir, "registry.json")
	r, err := Load(regPath)
	require.NoError(t, err)

	projectDir := t.TempDir()
	entry, err := r.Add(projectDir)
	require.NoError(t, err)

	status, err := r.Health(entry.ID)
	require.NoError(t, err)
	require.Equal(t, StatusUnindexed, status)

	require.NoError(t, r.Refresh(entry.ID, 10, 20))
	status, err = r.Health(entry.ID)
	require.NoError(t, err)
	require.Equal(t, StatusHealthy, status)
}

func TestClean_RemovesEntriesWithMissingRoot(t *testing.T) {
	dir := t.TempDir()
	regPath := filepath.Join(dir, "registry.json")
	r, err := Load(regPath)
	require.NoError(t, err)

	ghostDir := filepath.Join(dir, "ghost-project")
	entry, err := r.Add(ghostDir)
	require.NoError(t, err)

	removed, err := r.Clean()
	require.NoError(t, err)
	require.Contains(t, removed, entry.ID)
	_, ok := r.Get(entry.ID)
	require.False(t, ok)
}

func TestRemove_UnknownWorkspaceErrors(t *testing.T) {
	dir := t.TempDir()
	r, err := Load(filepath.Join(dir, "registry.json"))
	require.NoError(t, err)
	require.Error(t, r.Remove("does-not-exist"))
}

func TestRefresh_UpdatesLastIndexedTimestamp(t *testing.T) {
	dir := t.TempDir()
	r, err := Load(filepath.Join(dir, "registry.json"))
	require.NoError(t, err)

	entry, err := r.Add(t.TempDir())
	require.NoError(t, err)
	require.True(t, entry.LastIndexed.IsZero())

	before := time.Now()
	require.NoError(t, r.Refresh(entry.ID, 5, 9))
	got, _ := r.Get(entry.ID)
	require.False(t, got.LastIndexed.Before(before.Add(-time.Second)))
	require.Equal(t, 5, got.FileCount)
	require.Equal(t, 9, got.SymbolCount)
}
