package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryExpires(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2016, 10, 10, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return clock }

	require.NoError(t, m.SetJSON(ctx, "k", []string{"a", "b"}, time.Minute))

	var got []string
	found, err := m.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"a", "b"}, got)

	clock = clock.Add(time.Minute)
	found, err = m.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.SetJSON(ctx, "k", 1, time.Hour))
	require.NoError(t, m.Delete(ctx, "k", "missing"))

	var n int
	found, err := m.GetJSON(ctx, "k", &n)
	require.NoError(t, err)
	assert.False(t, found)
}
