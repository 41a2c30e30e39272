package cache_test

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formguard/pkg/cache"
)

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := cache.MustNew[string](2)
	c.Add(1, "one")
	c.Add(2, "two")
	if _, ok := c.Get(1); !ok {
		t.Fatalf("expected key 1 present")
	}
	if evicted := c.Add(3, "three"); !evicted {
		t.Fatalf("expected an eviction when exceeding capacity")
	}
	if _, ok := c.Get(2); ok {
		t.Fatalf("key 2 should have been evicted")
	}

	want := cache.Counters{Entries: 2, Capacity: 2, Hits: 1, Misses: 1, Evictions: 1}
	if diff := cmp.Diff(want, c.Counters()); diff != "" {
		t.Fatalf("counters mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"one", "three"}, c.Values()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestLRU_PurgeResets(t *testing.T) {
	c := cache.MustNew[int](0)
	c.Add(7, 7)
	c.Get(7)
	c.Purge()
	if diff := cmp.Diff(cache.Counters{Capacity: cache.DefaultCapacity}, c.Counters()); diff != "" {
		t.Fatalf("counters mismatch (-want +got):\n%s", diff)
	}
}

func TestLRU_ConcurrentAccess(t *testing.T) {
	c := cache.MustNew[int](64)
	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := uint64((offset + i) % 100)
				if _, ok := c.Get(key); !ok {
					c.Add(key, int(key))
				}
			}
		}(worker)
	}
	wg.Wait()
	if c.Len() > 64 {
		t.Fatalf("cache exceeded capacity: %d", c.Len())
	}
}

func TestLRU_NilIsSafe(t *testing.T) {
	var c *cache.LRU[string]
	if _, ok := c.Get(1); ok {
		t.Fatalf("nil cache must miss")
	}
	c.Add(1, "x")
	c.Purge()
	if c.Len() != 0 {
		t.Fatalf("nil cache must be empty")
	}
}
