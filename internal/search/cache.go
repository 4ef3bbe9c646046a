package search

import (
	"sync"
	"time"

	"github.com/mj1618/onboard-cli/internal/platform"
)

type cacheEntry struct {
	elements  []VisibleElement
	timestamp time.Time
}

// VisibleCache is a TTL cache of recognized targets keyed by band id.
// Empty results are never cached.
type VisibleCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	clock   platform.Clock
}

// NewVisibleCache creates a cache. A ttl of 0 disables caching.
func NewVisibleCache(ttl time.Duration, clock platform.Clock) *VisibleCache {
	return &VisibleCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		clock:   clock,
	}
}

// Get returns the entry for key if it is younger than the TTL.
func (c *VisibleCache) Get(key string) ([]VisibleElement, bool) {
	if c.ttl == 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || c.clock.Now().Sub(entry.timestamp) >= c.ttl {
		return nil, false
	}
	return entry.elements, true
}

// Put stores elements under key.
func (c *VisibleCache) Put(key string, elements []VisibleElement) {
	if c.ttl == 0 || len(elements) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{elements: elements, timestamp: c.clock.Now()}
}

// Invalidate removes the entry for key.
func (c *VisibleCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateAll clears the entire cache.
func (c *VisibleCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
