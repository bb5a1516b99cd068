package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPatternIndex_PhraseMatch(t *testing.T) {
	ctx := context.Background()
	idx, err := NewPatternIndex("")
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Index(ctx, "sym1", "class UserService : BaseService { }"))
	require.NoError(t, idx.Index(ctx, "sym2", "class OrderService { }"))

	hits, err := idx.Search(ctx, ": BaseService", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "sym1", hits[0].ID)
}

func TestPatternIndex_InvalidQueryDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	idx, err := NewPatternIndex("")
	require.NoError(t, err)
	defer idx.Close()

	hits, err := idx.Search(ctx, "   ", 10)
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestPatternIndex_Delete(t *testing.T) {
	ctx := context.Background()
	idx, err := NewPatternIndex("")
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Index(ctx, "sym1", "ILogger< T >"))
	require.NoError(t, idx.Delete([]string{"sym1"}))

	hits, err := idx.Search(ctx, "ILogger<", 10)
	require.NoError(t, err)
	require.Empty(t, hits)
}
