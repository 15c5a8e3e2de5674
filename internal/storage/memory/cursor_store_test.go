package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorStoreRoundTrip(t *testing.T) {
	s := NewCursorStore()
	ctx := context.Background()

	_, found, err := s.Get(ctx, poolA, "pool_manager")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, poolA, "pool_manager", 100))

	block, found, err := s.Get(ctx, poolA, "pool_manager")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(100), block)

	// Re-setting the same value is idempotent; a later value overwrites.
	require.NoError(t, s.Set(ctx, poolA, "pool_manager", 100))
	require.NoError(t, s.Set(ctx, poolA, "pool_manager", 250))

	block, found, err = s.Get(ctx, poolA, "pool_manager")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(250), block)
}

func TestCursorStoreKeysAreIndependent(t *testing.T) {
	s := NewCursorStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, poolA, "pool_manager", 10))
	require.NoError(t, s.Set(ctx, poolA, "hooks", 20))
	require.NoError(t, s.Set(ctx, poolB, "pool_manager", 30))

	block, _, err := s.Get(ctx, poolA, "pool_manager")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), block)

	block, _, err = s.Get(ctx, poolA, "hooks")
	require.NoError(t, err)
	assert.Equal(t, uint64(20), block)

	block, _, err = s.Get(ctx, poolB, "pool_manager")
	require.NoError(t, err)
	assert.Equal(t, uint64(30), block)
}
