package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int, string](2)
	c.Put(1, "one")
	c.Put(2, "two")
	c.Put(3, "three") // evicts 1

	_, ok := c.Get(1)
	require.False(t, ok, "expected key 1 to be evicted")

	v, ok := c.Get(2)
	require.True(t, ok)
	require.Equal(t, "two", v)

	v, ok = c.Get(3)
	require.True(t, ok)
	require.Equal(t, "three", v)
}

func TestLRUGetPromotesToMostRecentlyUsed(t *testing.T) {
	c := New[int, string](2)
	c.Put(1, "one")
	c.Put(2, "two")
	c.Get(1)          // promote 1
	c.Put(3, "three") // should evict 2, not 1

	_, ok := c.Get(2)
	require.False(t, ok, "expected key 2 to be evicted")

	_, ok = c.Get(1)
	require.True(t, ok, "expected key 1 to survive after being touched")
}

func TestLRURemove(t *testing.T) {
	c := New[int, string](4)
	c.Put(1, "one")
	c.Remove(1)

	_, ok := c.Get(1)
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestLRUPutUpdatesExistingKeyWithoutEvicting(t *testing.T) {
	c := New[int, string](1)
	c.Put(1, "one")
	c.Put(1, "uno")

	v, ok := c.Get(1)
	require.True(t, ok)
	require.Equal(t, "uno", v)
	require.Equal(t, 1, c.Len())
}
