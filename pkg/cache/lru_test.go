package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMissing(t *testing.T) {
	c := New[int](4, time.Minute)
	_, ok := c.Get("x")
	assert.False(t, ok)
}

func TestSetAndGet(t *testing.T) {
	c := New[string](4, time.Minute)
	c.Set("a", "value-a")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "value-a", v)
}

func TestZeroTTLNeverExpires(t *testing.T) {
	c := New[int](4, 0)
	c.Set("a", 1)
	time.Sleep(5 * time.Millisecond)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestEvictsOldestAtCapacity(t *testing.T) {
	c := New[int](2, time.Minute)
	c.Set("a", 1)
	time.Sleep(time.Millisecond)
	c.Set("b", 2)
	time.Sleep(time.Millisecond)
	c.Set("c", 3)

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry should have been evicted")
	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestInvalidateAndInvalidateAll(t *testing.T) {
	c := New[int](4, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Invalidate("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.InvalidateAll()
	_, ok = c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}
