package cache

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesift/rule-compiler/internal/rule"
	"github.com/codesift/rule-compiler/internal/storage"
)

// compiledRule builds a minimal compiled rule for cache entries
func compiledRule(t *testing.T, id string) *rule.Rule {
	t.Helper()
	doc := fmt.Sprintf("id: %s\nmessage: test message\nseverity: WARNING\nlanguages: [go]\npattern: f($X)\n", id)
	r, err := rule.FromYAML([]byte(doc))
	require.NoError(t, err)
	return r
}

func TestNewLRUCache(t *testing.T) {
	cache := NewLRUCache(100)
	assert.Equal(t, 100, cache.maxSize)
	assert.Equal(t, 0, cache.size)
	assert.NotNil(t, cache.cache)
	assert.NotNil(t, cache.head)
	assert.NotNil(t, cache.tail)
	assert.Equal(t, cache.tail, cache.head.next)
	assert.Equal(t, cache.head, cache.tail.prev)
}

func TestNewLRUCache_DefaultSize(t *testing.T) {
	cache := NewLRUCache(0)
	assert.Equal(t, 10000, cache.maxSize)
}

func TestKey_Deterministic(t *testing.T) {
	doc := []byte("id: r\npattern: f($X)\n")

	assert.Equal(t, Key(doc), Key(doc))
	assert.NotEqual(t, Key(doc), Key([]byte("id: r\npattern: g($X)\n")))
	assert.Len(t, Key(doc), 64) // hex-encoded SHA-256
}

func TestLRUCache_SetAndGet(t *testing.T) {
	cache := NewLRUCache(2)

	r1 := compiledRule(t, "rule-1")

	// Cache miss
	value, found := cache.Get("key1")
	assert.False(t, found)
	assert.Nil(t, value)

	// Set and get returns the same compiled rule
	cache.Set("key1", r1)
	value, found = cache.Get("key1")
	assert.True(t, found)
	assert.Same(t, r1, value)
}

func TestLRUCache_Eviction(t *testing.T) {
	cache := NewLRUCache(2)

	cache.Set("key1", compiledRule(t, "rule-1"))
	cache.Set("key2", compiledRule(t, "rule-2"))

	_, found1 := cache.Get("key1")
	_, found2 := cache.Get("key2")
	assert.True(t, found1)
	assert.True(t, found2)

	// Third insert evicts the least recently used entry (key1)
	cache.Set("key3", compiledRule(t, "rule-3"))

	_, found1 = cache.Get("key1")
	_, found2 = cache.Get("key2")
	_, found3 := cache.Get("key3")

	assert.False(t, found1) // Evicted
	assert.True(t, found2)
	assert.True(t, found3)
}

func TestLRUCache_LRUOrdering(t *testing.T) {
	cache := NewLRUCache(2)

	cache.Set("key1", compiledRule(t, "rule-1"))
	cache.Set("key2", compiledRule(t, "rule-2"))

	// Access key1 to make it most recently used
	cache.Get("key1")

	cache.Set("key3", compiledRule(t, "rule-3"))

	_, found1 := cache.Get("key1")
	_, found2 := cache.Get("key2")
	_, found3 := cache.Get("key3")

	assert.True(t, found1)
	assert.False(t, found2) // Least recently used, evicted
	assert.True(t, found3)
}

func TestLRUCache_Update(t *testing.T) {
	cache := NewLRUCache(2)

	r1 := compiledRule(t, "rule-1")
	r2 := compiledRule(t, "rule-2")

	cache.Set("key1", r1)
	value, found := cache.Get("key1")
	require.True(t, found)
	assert.Equal(t, "rule-1", value.ID())

	cache.Set("key1", r2)
	value, found = cache.Get("key1")
	require.True(t, found)
	assert.Equal(t, "rule-2", value.ID())

	stats := cache.Stats()
	assert.Equal(t, 1, stats.Size)
}

func TestLRUCache_Invalidate(t *testing.T) {
	cache := NewLRUCache(2)

	cache.Set("key1", compiledRule(t, "rule-1"))
	_, found := cache.Get("key1")
	assert.True(t, found)

	cache.Invalidate("key1")
	_, found = cache.Get("key1")
	assert.False(t, found)

	stats := cache.Stats()
	assert.Equal(t, 0, stats.Size)
}

func TestLRUCache_Clear(t *testing.T) {
	cache := NewLRUCache(2)

	cache.Set("key1", compiledRule(t, "rule-1"))
	cache.Set("key2", compiledRule(t, "rule-2"))

	stats := cache.Stats()
	assert.Equal(t, 2, stats.Size)

	cache.Clear()

	stats = cache.Stats()
	assert.Equal(t, 0, stats.Size)

	_, found1 := cache.Get("key1")
	_, found2 := cache.Get("key2")
	assert.False(t, found1)
	assert.False(t, found2)
}

func TestLRUCache_Stats(t *testing.T) {
	cache := NewLRUCache(2)

	stats := cache.Stats()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(0), stats.Misses)
	assert.Equal(t, 0, stats.Size)
	assert.Equal(t, 2, stats.MaxSize)
	assert.Equal(t, float64(0), stats.HitRatio)

	// Cache miss
	cache.Get("key1")
	stats = cache.Stats()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, float64(0), stats.HitRatio)

	// Cache set and hit
	cache.Set("key1", compiledRule(t, "rule-1"))
	cache.Get("key1")
	stats = cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, float64(0.5), stats.HitRatio)
}

func TestLRUCache_HealthCheck(t *testing.T) {
	cache := NewLRUCache(10)
	cache.Set("key1", compiledRule(t, "rule-1"))

	status := cache.HealthCheck(context.Background())
	assert.Equal(t, storage.HealthStatusHealthy, status.Status)
	assert.Equal(t, 1, status.Details["size"])
}

func TestProperty_LRUCacheSizeLimits(t *testing.T) {
	r := compiledRule(t, "shared-rule")

	properties := gopter.NewProperties(nil)

	properties.Property("cache never exceeds maximum size", prop.ForAll(
		func(maxSize int, numOperations int) bool {
			cache := NewLRUCache(maxSize)

			for i := 0; i < numOperations; i++ {
				cache.Set(fmt.Sprintf("key%d", i), r)

				stats := cache.Stats()
				if stats.Size > maxSize {
					return false
				}
			}

			return true
		},
		gen.IntRange(1, 100), // maxSize
		gen.IntRange(0, 200), // numOperations
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_CacheHitConsistency(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("cached rules are returned unchanged until invalidation", prop.ForAll(
		func(cacheSize int, keys []string) bool {
			cache := NewLRUCache(cacheSize)

			stored := make(map[string]*rule.Rule)
			for i, key := range keys {
				r := compiledRule(t, fmt.Sprintf("rule-%d", i))
				cache.Set(key, r)
				stored[key] = r
			}

			for _, key := range keys {
				cached, found := cache.Get(key)
				if !found {
					// Key may have been evicted by the size limit
					continue
				}
				if cached.ID() != stored[key].ID() {
					return false
				}
			}

			return true
		},
		gen.IntRange(1, 50), // cacheSize
		gen.SliceOfN(10, gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 })),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
