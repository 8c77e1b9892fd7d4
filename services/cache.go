// In-memory TTL cache for enrichment lookups.
// Key: normalised URL → cached result
package services

import (
	"strings"
	"sync"
	"time"
)

type cacheEntry[V any] struct {
	Value    V
	CachedAt time.Time
}

// MemoCache remembers lookups so a company shared by many leads is fetched
// once per run. A zero TTL never expires.
type MemoCache[V any] struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry[V]
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoCache[V any](ttl time.Duration) *MemoCache[V] {
	return &MemoCache[V]{entries: map[string]cacheEntry[V]{}, ttl: ttl, now: time.Now}
}

func cacheKey(raw string) string {
	k := strings.ToLower(strings.TrimSpace(raw))
	k = strings.TrimPrefix(k, "https://")
	k = strings.TrimPrefix(k, "http://")
	k = strings.TrimPrefix(k, "www.")
	return strings.TrimRight(k, "/")
}

// Get returns a cached value if still fresh, plus a found boolean.
func (c *MemoCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[cacheKey(key)]
	if !ok || (c.ttl > 0 && c.now().Sub(e.CachedAt) > c.ttl) {
		var zero V
		return zero, false
	}
	return e.Value, true
}

// Set stores the value for future calls.
func (c *MemoCache[V]) Set(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(key)] = cacheEntry[V]{Value: v, CachedAt: c.now()}
}

func (c *MemoCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
