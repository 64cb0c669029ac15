package catalogue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Veraticus/smartspend/internal/common"
	"github.com/Veraticus/smartspend/internal/model"
	"github.com/Veraticus/smartspend/internal/service"
)

// cacheEntry represents a cached lookup result. A miss is cached too.
type cacheEntry struct {
	expiry  time.Time
	product model.Product
	found   bool
}

// productCache provides thread-safe caching for product lookups.
type productCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
}

// newProductCache creates a new cache with the specified TTL.
func newProductCache(ttl time.Duration) *productCache {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	cache := &productCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

// get retrieves an entry if it exists and hasn't expired.
func (c *productCache) get(key string) (cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || time.Now().After(entry.expiry) {
		return cacheEntry{}, false
	}
	return entry, true
}

func (c *productCache) set(key string, product model.Product, found bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		product: product,
		found:   found,
		expiry:  time.Now().Add(c.ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *productCache) cleanup() {
	interval := c.ttl
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

func (c *productCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *productCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Cached memoizes an underlying lookup for a fixed TTL. Useful in front of a
// remote lookup such as the LLM product lookup.
type Cached struct {
	next  service.ProductLookup
	cache *productCache
	once  sync.Once
}

// NewCached wraps next with a TTL cache. A zero ttl means 15 minutes.
func NewCached(next service.ProductLookup, ttl time.Duration) *Cached {
	return &Cached{next: next, cache: newProductCache(ttl)}
}

// LookupProduct implements service.ProductLookup. Transient errors are not cached.
func (c *Cached) LookupProduct(ctx context.Context, name string) (model.Product, error) {
	if entry, ok := c.cache.get(name); ok {
		if entry.found {
			return entry.product, nil
		}
		return model.Product{}, common.ErrNotFound
	}

	product, err := c.next.LookupProduct(ctx, name)
	switch {
	case err == nil:
		c.cache.set(name, product, true)
	case errors.Is(err, common.ErrNotFound):
		c.cache.set(name, model.Product{}, false)
	}
	return product, err
}

// Clear drops all cached entries.
func (c *Cached) Clear() {
	c.cache.clear()
}

// Close stops the cleanup goroutine.
func (c *Cached) Close() error {
	c.once.Do(func() { close(c.cache.stopCh) })
	return nil
}
