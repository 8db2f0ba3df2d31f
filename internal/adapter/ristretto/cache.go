// Package ristretto implements the cache port using dgraph-io/ristretto as
// the pool's shared in-process cache for upstream API responses.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache wraps a ristretto cache shared by all hosted agents.
type Cache struct {
	c *ristretto.Cache[string, []byte]
}

// Cached entries are small JSON blobs (rate tables, forecasts), so size
// the admission counters for roughly 1 KiB per entry.
const avgEntryBytes = 1024

// New creates a ristretto-backed cache bounded at maxCostBytes of stored
// values.
func New(maxCostBytes int64) (*Cache, error) {
	counters := maxCostBytes / avgEntryBytes * 10
	if counters < 1000 {
		counters = 1000
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: counters,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

// Get retrieves a value from the cache.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if val, found := c.c.Get(key); found {
		return val, true, nil
	}
	return nil, false, nil
}

// Set stores a value with the given TTL. Admission is asynchronous, a
// rejected write simply stays a cache miss.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.c.SetWithTTL(key, value, int64(len(value)), ttl)
	return nil
}

// Delete removes a value from the cache.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Del(key)
	return nil
}

// Close shuts down the cache and releases resources.
func (c *Cache) Close() {
	c.c.Close()
}
