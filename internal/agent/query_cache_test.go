package agent

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryCacheGetSet(t *testing.T) {
	cache := NewQueryCache(10)

	assert.Nil(t, cache.Get("how many users"))

	result := &QueryResult{Success: true, Explanation: "two users"}
	cache.Set("how many users", result)

	cached := cache.Get("how many users")
	require.NotNil(t, cached)
	assert.Equal(t, "two users", cached.Explanation)
	assert.Equal(t, 1, cache.Len())
}

func TestQueryCacheUpdateExisting(t *testing.T) {
	cache := NewQueryCache(10)

	cache.Set("q", &QueryResult{Explanation: "first"})
	cache.Set("q", &QueryResult{Explanation: "second"})

	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, "second", cache.Get("q").Explanation)
}

func TestQueryCacheEviction(t *testing.T) {
	cache := NewQueryCache(3)

	for i := 0; i < 3; i++ {
		cache.Set(fmt.Sprintf("q%d", i), &QueryResult{Explanation: fmt.Sprintf("r%d", i)})
	}
	assert.Equal(t, 3, cache.Len())

	// q0 is the least recently used entry
	cache.Set("q3", &QueryResult{Explanation: "r3"})

	assert.Equal(t, 3, cache.Len())
	assert.Nil(t, cache.Get("q0"))
	assert.NotNil(t, cache.Get("q3"))
}

func TestQueryCacheGetRefreshesOrder(t *testing.T) {
	cache := NewQueryCache(2)

	cache.Set("a", &QueryResult{})
	cache.Set("b", &QueryResult{})

	// Touch a so that b becomes the eviction candidate
	cache.Get("a")
	cache.Set("c", &QueryResult{})

	assert.NotNil(t, cache.Get("a"))
	assert.Nil(t, cache.Get("b"))
	assert.NotNil(t, cache.Get("c"))
}
