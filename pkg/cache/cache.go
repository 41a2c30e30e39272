// Package cache provides the bounded, concurrency-safe memo cache used for
// field validation results.
package cache

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 1024

// Counters is a snapshot of cache activity.
type Counters struct {
	Entries   int    `json:"entries"`
	Capacity  int    `json:"capacity"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// LRU is a typed least-recently-used cache keyed by a 64-bit content hash.
type LRU[V any] struct {
	inner    *lru.Cache
	capacity int

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New builds an LRU holding at most capacity entries.
func New[V any](capacity int) (*LRU[V], error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &LRU[V]{capacity: capacity}
	inner, err := lru.NewWithEvict(capacity, func(_, _ interface{}) {
		c.evictions.Add(1)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "cache: create lru with capacity %d", capacity)
	}
	c.inner = inner
	return c, nil
}

// MustNew is New that panics on error.
func MustNew[V any](capacity int) *LRU[V] {
	c, err := New[V](capacity)
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the cached value and marks it recently used.
func (c *LRU[V]) Get(key uint64) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	raw, ok := c.inner.Get(key)
	if !ok {
		c.misses.Add(1)
		return zero, false
	}
	value, ok := raw.(V)
	if !ok {
		c.misses.Add(1)
		return zero, false
	}
	c.hits.Add(1)
	return value, true
}

// Add stores value under key and reports whether an entry was evicted.
func (c *LRU[V]) Add(key uint64, value V) bool {
	if c == nil {
		return false
	}
	return c.inner.Add(key, value)
}

// Values returns the cached values from oldest to newest without touching
// recency.
func (c *LRU[V]) Values() []V {
	if c == nil {
		return nil
	}
	keys := c.inner.Keys()
	out := make([]V, 0, len(keys))
	for _, key := range keys {
		raw, ok := c.inner.Peek(key)
		if !ok {
			continue
		}
		if value, ok := raw.(V); ok {
			out = append(out, value)
		}
	}
	return out
}

// Len reports the number of entries.
func (c *LRU[V]) Len() int {
	if c == nil {
		return 0
	}
	return c.inner.Len()
}

// Purge drops every entry and resets the counters.
func (c *LRU[V]) Purge() {
	if c == nil {
		return
	}
	c.inner.Purge()
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
}

// Counters returns a snapshot of the cache counters.
func (c *LRU[V]) Counters() Counters {
	if c == nil {
		return Counters{}
	}
	return Counters{
		Entries:   c.inner.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
