package dedup

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"
)

// MemoryCache is an in-process Cache backed by a concurrent map.
type MemoryCache struct {
	seen *xsync.MapOf[string, struct{}]
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{seen: xsync.NewMapOf[string, struct{}]()}
}

// TestAndSet implements Cache.
func (c *MemoryCache) TestAndSet(_ context.Context, id string) (bool, error) {
	_, loaded := c.seen.LoadOrStore(id, struct{}{})
	return loaded, nil
}

// Contains implements Cache.
func (c *MemoryCache) Contains(_ context.Context, id string) (bool, error) {
	_, ok := c.seen.Load(id)
	return ok, nil
}

// Clear implements Cache.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.seen.Clear()
	return nil
}

// Len implements Cache.
func (c *MemoryCache) Len(_ context.Context) (int, error) {
	return c.seen.Size(), nil
}

// Close implements Cache.
func (c *MemoryCache) Close() error {
	return nil
}
