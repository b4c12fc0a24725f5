package strategy

import (
	"sync"

	"github.com/lox/vpstrat/internal/hold"
)

// DefaultCacheSize bounds the result cache when no size is configured.
const DefaultCacheSize = 100

// entry is the hand-independent part of a decision. The permutation is not
// cached because hands sharing a key can be dealt in different orders.
type entry struct {
	bestHold hold.Mask
	bestEV   float64
	evs      [hold.NumMasks]float64
}

// resultCache is a bounded map that, when full, drops the oldest-inserted
// half of its entries in one pass.
type resultCache struct {
	mu      sync.Mutex
	size    int
	entries map[string]entry
	order   []string

	hits, misses, evictions uint64
}

func newResultCache(size int) *resultCache {
	if size < 2 {
		size = 2
	}
	return &resultCache{
		size:    size,
		entries: make(map[string]entry, size),
		order:   make([]string, 0, size),
	}
}

func cacheKey(paytableID, key string) string {
	return paytableID + ":" + key
}

func (c *resultCache) get(k string) (entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return e, ok
}

func (c *resultCache) put(k string, e entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[k]; ok {
		c.entries[k] = e
		return
	}
	if len(c.entries) >= c.size {
		half := len(c.order) / 2
		for _, old := range c.order[:half] {
			delete(c.entries, old)
		}
		c.order = append(c.order[:0], c.order[half:]...)
		c.evictions += uint64(half)
	}
	c.entries[k] = e
	c.order = append(c.order, k)
}

func (c *resultCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	c.order = c.order[:0]
}

func (c *resultCache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Entries:   len(c.entries),
		Capacity:  c.size,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// CacheStats is a snapshot of result cache counters.
type CacheStats struct {
	Entries   int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}
