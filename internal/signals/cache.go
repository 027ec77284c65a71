// Package signals fetches and serves macroeconomic reference series: Brent
// crude (FRED), PPP conversion factors (World Bank) and the open-market
// USD to Toman rate (Bonbast). Series are cached in-process and persisted to
// Postgres so restarts and upstream outages do not blank the API.
package signals

import (
	"sync"
	"time"
)

// DefaultTTL is how long a fetched series is served from memory before the
// read path goes back to the database and upstream.
const DefaultTTL = 6 * time.Hour

// TTLCache is a small process-wide expiring map. Values are whole series, so
// the entry count stays tiny and eviction on read is enough.
type TTLCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	value   any
	expires time.Time
}

// NewTTLCache builds an empty cache.
func NewTTLCache() *TTLCache {
	return &TTLCache{entries: map[string]cacheEntry{}, now: time.Now}
}

// Get returns the cached value, or nil when absent or expired.
func (c *TTLCache) Get(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if c.now().After(e.expires) {
		delete(c.entries, key)
		return nil
	}
	return e.value
}

// Set stores a value for ttl.
func (c *TTLCache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, expires: c.now().Add(ttl)}
}

// Delete removes a key.
func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
