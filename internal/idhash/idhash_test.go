package idhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbolID_Stable(t *testing.T) {
	id1 := SymbolID("a/b.go", "Hello", "Function", 12)
	id2 := SymbolID("a/b.go", "Hello", "Function", 12)
	assert.Equal(t, id1, id2)
	require.Len(t, id1, SymbolIDLength)
}

func TestSymbolID_Distinguishes(t *testing.T) {
	base := SymbolID("a/b.go", "Hello", "Function", 12)
	cases := []string{
		SymbolID("a/c.go", "Hello", "Function", 12),
		SymbolID("a/b.go", "World", "Function", 12),
		SymbolID("a/b.go", "Hello", "Method", 12),
		SymbolID("a/b.go", "Hello", "Function", 13),
	}
	for _, c := range cases {
		assert.NotEqual(t, base, c)
	}
}

func TestContentHash_Deterministic(t *testing.T) {
	h1 := ContentHash([]byte("package main\n"))
	h2 := ContentHash([]byte("package main\n"))
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, ContentHash([]byte("package other\n")), h1)
}

func TestWorkspaceID_PathNormalization(t *testing.T) {
	a := WorkspaceID("/tmp/project/")
	b := WorkspaceID("/tmp/project")
	assert.Equal(t, a, b)
}
