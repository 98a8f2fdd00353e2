package lru

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	c := New[int](2, WithEvictHook(func(key string, _ int) {
		evicted = append(evicted, key)
	}))

	c.Set("a", 1)
	c.Set("b", 2)
	_, ok := c.Get("a")
	require.True(t, ok)

	require.True(t, c.Set("c", 3))
	require.Equal(t, []string{"b"}, evicted)
	require.False(t, c.Contains("b"))
	require.Equal(t, []string{"c", "a"}, c.Keys())

	stats := c.Stats()
	require.Equal(t, 2, stats.Size)
	require.Equal(t, int64(1), stats.Evictions)
	require.Equal(t, int64(1), stats.Hits)
}

func TestCacheUpdateDoesNotEvict(t *testing.T) {
	c := New[string](1)
	c.Set("a", "x")
	require.False(t, c.Set("a", "y"))
	got, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, "y", got)
}

func TestCacheDeleteAndPurge(t *testing.T) {
	c := New[int](0)
	require.Equal(t, DefaultCapacity, c.Stats().Capacity)

	c.Set("a", 1)
	c.Set("b", 2)
	require.True(t, c.Delete("a"))
	require.False(t, c.Delete("a"))

	_, ok := c.Get("a")
	require.False(t, ok)
	require.Equal(t, int64(1), c.Stats().Misses)

	c.Purge()
	require.Equal(t, 0, c.Len())
	_, ok = c.Peek("b")
	require.False(t, ok)
}
