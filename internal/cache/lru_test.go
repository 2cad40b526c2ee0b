package cache

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", 1)
	c.Set("a", 2)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.len())

	c.DeleteFunc(func(key string) bool { return key == "a" })
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)
	c.Set("a", "A")
	c.Set("b", "B")
	_, _ = c.Get("a")
	c.Set("c", "C")

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestLRUCache_TTL(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	c.Set("b", 2)
	now = now.Add(2 * time.Minute)

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 0, c.len())
}

func TestLRUCache_DeleteFunc(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("u:1|monthly", 1)
	c.Set("u:1|trend", 2)
	c.Set("u:2|monthly", 3)

	assert.Equal(t, 2, c.DeleteFunc(func(key string) bool { return strings.HasPrefix(key, "u:1|") }))
	assert.Equal(t, 1, c.len())
	_, ok := c.Get("u:2|monthly")
	assert.True(t, ok)
}

func TestLRUCache_Concurrent(t *testing.T) {
	c := NewLRUCache[int](50, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", j%20)
				c.Set(key, i)
				c.Get(key)
				if j%10 == 0 {
					c.DeleteFunc(func(key string) bool { return strings.HasPrefix(key, "k1") })
				}
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.len(), 50)
}

func TestManager_Sweep(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Second)
	c.now = func() time.Time { return now }
	c.Set("a", 1)

	m := NewManager(nil)
	m.Register(c)
	assert.Equal(t, 0, m.Sweep())
	now = now.Add(time.Hour)
	assert.Equal(t, 1, m.Sweep())

	m.StartCleanup(time.Hour)
	m.Stop()
}
