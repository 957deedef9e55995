// Package cache provides an LRU cache for compile results, keyed by a hash
// of the submitted raw document. Compiled rules are immutable, so cached
// entries are shared rather than copied.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"

	"github.com/codesift/rule-compiler/internal/rule"
	"github.com/codesift/rule-compiler/internal/storage"
)

// node represents a node in the doubly-linked list
type node struct {
	key   string
	value *rule.Rule
	prev  *node
	next  *node
}

// Stats represents cache performance metrics
type Stats struct {
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	Size     int     `json:"size"`
	MaxSize  int     `json:"max_size"`
	HitRatio float64 `json:"hit_ratio"`
}

// LRUCache is a compile-result cache with LRU eviction
type LRUCache struct {
	maxSize int
	size    int

	// Doubly-linked list for LRU ordering
	head *node
	tail *node

	// HashMap for O(1) lookups
	cache map[string]*node

	mutex sync.Mutex

	// Atomic counters for metrics
	hits   int64
	misses int64
}

// Key derives the cache key for a raw rule document
func Key(document []byte) string {
	sum := sha256.Sum256(document)
	return hex.EncodeToString(sum[:])
}

// NewLRUCache creates a new LRU cache with the specified maximum size
func NewLRUCache(maxSize int) *LRUCache {
	if maxSize <= 0 {
		maxSize = 10000
	}

	// Dummy head and tail nodes for easier list manipulation
	head := &node{}
	tail := &node{}
	head.next = tail
	tail.prev = head

	return &LRUCache{
		maxSize: maxSize,
		head:    head,
		tail:    tail,
		cache:   make(map[string]*node),
	}
}

// Get retrieves a compiled rule from the cache and marks it as recently used
func (c *LRUCache) Get(key string) (*rule.Rule, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	foundNode, exists := c.cache[key]
	if !exists {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	c.moveToFront(foundNode)
	atomic.AddInt64(&c.hits, 1)

	return foundNode.value, true
}

// Set adds or updates a compiled rule in the cache
func (c *LRUCache) Set(key string, compiled *rule.Rule) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if existing, exists := c.cache[key]; exists {
		existing.value = compiled
		c.moveToFront(existing)
		return
	}

	newNode := &node{key: key, value: compiled}
	c.cache[key] = newNode
	c.addToFront(newNode)
	c.size++

	if c.size > c.maxSize {
		c.evictLRU()
	}
}

// Invalidate removes a specific key from the cache
func (c *LRUCache) Invalidate(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if n, exists := c.cache[key]; exists {
		c.removeNode(n)
		delete(c.cache, key)
		c.size--
	}
}

// Clear removes all entries from the cache
func (c *LRUCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache = make(map[string]*node)
	c.head.next = c.tail
	c.tail.prev = c.head
	c.size = 0
}

// Stats returns cache performance metrics
func (c *LRUCache) Stats() Stats {
	c.mutex.Lock()
	size := c.size
	c.mutex.Unlock()

	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)

	var hitRatio float64
	if total := hits + misses; total > 0 {
		hitRatio = float64(hits) / float64(total)
	}

	return Stats{
		Hits:     hits,
		Misses:   misses,
		Size:     size,
		MaxSize:  c.maxSize,
		HitRatio: hitRatio,
	}
}

// HealthCheck performs a health check on the cache
func (c *LRUCache) HealthCheck(ctx context.Context) storage.HealthStatus {
	stats := c.Stats()

	status := storage.HealthStatusHealthy
	message := "Cache is operating normally"
	if stats.Size > stats.MaxSize {
		status = storage.HealthStatusUnhealthy
		message = "Cache size exceeds configured maximum"
	}

	return storage.HealthStatus{
		Status:  status,
		Message: message,
		Details: map[string]any{
			"size":      stats.Size,
			"max_size":  stats.MaxSize,
			"hit_ratio": stats.HitRatio,
		},
		Timestamp: time.Now(),
	}
}

// moveToFront moves a node to the front of the LRU list
func (c *LRUCache) moveToFront(n *node) {
	c.removeNode(n)
	c.addToFront(n)
}

// addToFront inserts a node right after the dummy head
func (c *LRUCache) addToFront(n *node) {
	n.prev = c.head
	n.next = c.head.next
	c.head.next.prev = n
	c.head.next = n
}

// removeNode unlinks a node from the list
func (c *LRUCache) removeNode(n *node) {
	n.prev.next = n.next
	n.next.prev = n.prev
}

// evictLRU removes the least recently used entry
func (c *LRUCache) evictLRU() {
	lru := c.tail.prev
	if lru == c.head {
		return
	}
	c.removeNode(lru)
	delete(c.cache, lru.key)
	c.size--
}
