package fixedwindow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore_CountsWithinWindow(t *testing.T) {
	store := NewMemStore()

	for i := 1; i <= 3; i++ {
		step, err := store.Incr(context.Background(), "k", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(i), step.Count)
	}
}

func TestAllowed_RejectsOverLimit(t *testing.T) {
	store := NewMemStore()
	var last Step
	for i := 0; i < 5; i++ {
		step, err := store.Incr(context.Background(), "k", time.Minute)
		require.NoError(t, err)
		last = step
	}
	assert.True(t, Allowed(last, 5))

	over, err := store.Incr(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, Allowed(over, 5))
}

func TestMemStore_ResetsAfterWindowExpires(t *testing.T) {
	store := NewMemStore()
	_, err := store.Incr(context.Background(), "k", 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	step, err := store.Incr(context.Background(), "k", 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), step.Count)
}
