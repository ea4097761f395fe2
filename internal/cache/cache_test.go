package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGet(t *testing.T) {
	c := New[string]()
	c.Set("k", "v", time.Minute)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestCache_Miss(t *testing.T) {
	c := New[string]()
	_, ok := c.Get("absent")
	assert.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	now := time.Now()
	c := New[int]().WithNow(func() time.Time { return now })
	c.Set("k", 42, 5*time.Minute)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, got)

	now = now.Add(5*time.Minute + time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestCache_SweepDropsExpiredOnly(t *testing.T) {
	now := time.Now()
	c := New[int]().WithNow(func() time.Time { return now })
	c.Set("old", 1, time.Minute)
	c.Set("fresh", 2, time.Hour)

	now = now.Add(2 * time.Minute)
	dropped := c.Sweep()

	assert.Equal(t, 1, dropped)
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("fresh")
	assert.True(t, ok)
}

func TestCache_OverwriteExtendsTTL(t *testing.T) {
	now := time.Now()
	c := New[int]().WithNow(func() time.Time { return now })
	c.Set("k", 1, time.Minute)

	now = now.Add(30 * time.Second)
	c.Set("k", 2, time.Minute)

	now = now.Add(45 * time.Second)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, got)
}
