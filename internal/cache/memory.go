package cache

import (
	"time"

	"github.com/maypok86/otter"

	"surveypulse/internal/model"
)

// MemoryCache is the L1 criteria-set cache, an S3-FIFO cache from otter.
type MemoryCache struct {
	store otter.Cache[string, *model.CriteriaSet]
}

// NewMemoryCache initializes the in-memory cache.
// capacity caps the number of sets; ttl bounds staleness after an admin edit.
func NewMemoryCache(capacity int, ttl time.Duration) (*MemoryCache, error) {
	cache, err := otter.MustBuilder[string, *model.CriteriaSet](capacity).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, err
	}

	return &MemoryCache{store: cache}, nil
}

// Get retrieves a set from memory.
func (c *MemoryCache) Get(key string) (*model.CriteriaSet, bool) {
	return c.store.Get(key)
}

// Set adds or updates a set.
func (c *MemoryCache) Set(key string, set *model.CriteriaSet) {
	c.store.Set(key, set)
}

// Del removes a set.
func (c *MemoryCache) Del(key string) {
	c.store.Delete(key)
}

// Close stops the cache's background goroutines.
func (c *MemoryCache) Close() {
	c.store.Close()
}
