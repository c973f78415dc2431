// Package cache provides a generic sharded LRU cache.
//
// It backs caches of re-derivable values, like rasterized builtin glyph
// pixels, where eviction is always safe because a miss just recomputes.
// State that cannot be recomputed, like atlas placements, must not live
// here.
package cache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

const (
	// shardCount must be a power of 2 for fast modulo via bitwise AND.
	shardCount = 16
	shardMask  = shardCount - 1

	// DefaultCapacity is the default maximum entries per shard.
	DefaultCapacity = 256
)

// Hasher computes a hash for a key, used for shard selection.
type Hasher[K any] func(K) uint64

// StringHasher computes FNV-1a hash of a string key.
func StringHasher(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s)) // fnv.Write never returns an error
	return h.Sum64()
}

// Uint64Hasher returns the key itself as the hash (identity hash).
func Uint64Hasher(u uint64) uint64 {
	return u
}

// Stats is a snapshot of cache behavior counters.
type Stats struct {
	Len       int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Cache is a thread-safe sharded LRU cache. Each shard has its own lock,
// so concurrent access from different goroutines rarely contends.
type Cache[K comparable, V any] struct {
	shards   [shardCount]*shard[K, V]
	hasher   Hasher[K]
	capacity int // per shard

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type shard[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]*entry[K, V]
	lru     lruList[K]
}

type entry[K comparable, V any] struct {
	value V
	node  *lruNode[K]
}

// New creates a cache holding up to capacity entries per shard. If
// capacity <= 0, DefaultCapacity is used.
func New[K comparable, V any](capacity int, hasher Hasher[K]) *Cache[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache[K, V]{
		hasher:   hasher,
		capacity: capacity,
	}
	for i := range c.shards {
		c.shards[i] = &shard[K, V]{entries: make(map[K]*entry[K, V])}
		c.shards[i].lru.init()
	}
	return c
}

func (c *Cache[K, V]) getShard(key K) *shard[K, V] {
	return c.shards[c.hasher(key)&shardMask]
}

// Get retrieves a cached value by key. On a hit the entry moves to the
// front of its shard's LRU list.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	s := c.getShard(key)

	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	s.lru.moveToFront(e.node)
	value := e.value
	s.mu.Unlock()

	c.hits.Add(1)
	return value, true
}

// Set stores a value. When the shard is at capacity the oldest entries
// are evicted. The value is stored as-is, not copied.
func (c *Cache[K, V]) Set(key K, value V) {
	s := c.getShard(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		e.value = value
		s.lru.moveToFront(e.node)
		return
	}
	for len(s.entries) >= c.capacity {
		oldest, ok := s.lru.removeOldest()
		if !ok {
			break
		}
		delete(s.entries, oldest)
		c.evictions.Add(1)
	}
	s.entries[key] = &entry[K, V]{value: value, node: s.lru.pushFront(key)}
}

// GetOrCreate returns the cached value, calling create on a miss. The
// create function runs with the shard lock held so concurrent misses on
// the same key compute once; keep it fast.
func (c *Cache[K, V]) GetOrCreate(key K, create func() V) V {
	s := c.getShard(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		s.lru.moveToFront(e.node)
		c.hits.Add(1)
		return e.value
	}
	c.misses.Add(1)

	value := create()
	for len(s.entries) >= c.capacity {
		oldest, ok := s.lru.removeOldest()
		if !ok {
			break
		}
		delete(s.entries, oldest)
		c.evictions.Add(1)
	}
	s.entries[key] = &entry[K, V]{value: value, node: s.lru.pushFront(key)}
	return value
}

// Delete removes an entry, reporting whether it existed.
func (c *Cache[K, V]) Delete(key K) bool {
	s := c.getShard(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return false
	}
	s.lru.remove(e.node)
	delete(s.entries, key)
	return true
}

// Clear removes all entries.
func (c *Cache[K, V]) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.entries = make(map[K]*entry[K, V])
		s.lru.init()
		s.mu.Unlock()
	}
}

// Len returns the total number of entries across all shards.
func (c *Cache[K, V]) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.RLock()
		total += len(s.entries)
		s.mu.RUnlock()
	}
	return total
}

// Capacity returns the per-shard capacity.
func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}

// Stats returns a snapshot of the behavior counters.
func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Len:       c.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
