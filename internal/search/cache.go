package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"scry/internal/logging"
)

// cacheEntry holds cached results for one query.
type cacheEntry struct {
	results   []Result
	expiresAt time.Time
}

// Cached wraps a Provider with an in-memory TTL cache so repeated queries
// within a session don't re-hit the network.
type Cached struct {
	provider Provider

	mu      sync.RWMutex
	entries map[string]cacheEntry
	maxSize int
	ttl     time.Duration
}

// NewCached wraps the provider with a cache of at most maxSize entries.
func NewCached(provider Provider, maxSize int, ttl time.Duration) *Cached {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Cached{
		provider: provider,
		entries:  make(map[string]cacheEntry),
		maxSize:  maxSize,
		ttl:      ttl,
	}
}

// Name implements Provider.
func (c *Cached) Name() string { return c.provider.Name() }

// Search implements Provider.
func (c *Cached) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	key := cacheKey(query, maxResults)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		logging.SearchDebug("cache hit for %q", query)
		return entry.results, nil
	}

	results, err := c.provider.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if len(c.entries) >= c.maxSize {
		c.evictExpiredLocked()
	}
	if len(c.entries) < c.maxSize {
		c.entries[key] = cacheEntry{results: results, expiresAt: time.Now().Add(c.ttl)}
	}
	c.mu.Unlock()

	return results, nil
}

// evictExpiredLocked drops expired entries. Caller holds the write lock.
func (c *Cached) evictExpiredLocked() {
	now := time.Now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}

// Len reports the number of cached entries, expired or not.
func (c *Cached) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func cacheKey(query string, maxResults int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", query, maxResults)))
	return hex.EncodeToString(sum[:])
}
