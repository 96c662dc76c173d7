package dedup

import (
	"context"

	"github.com/nao1215/artistscan/internal/database"
)

// SQLiteCache is a persistent Cache stored in the crawl database.
// The database handle is owned by the caller; Close does not close it.
type SQLiteCache struct {
	db *database.CrawlDB
}

// NewSQLiteCache wraps an open CrawlDB.
func NewSQLiteCache(db *database.CrawlDB) *SQLiteCache {
	return &SQLiteCache{db: db}
}

// TestAndSet implements Cache.
func (c *SQLiteCache) TestAndSet(ctx context.Context, id string) (bool, error) {
	inserted, err := c.db.MarkVisited(ctx, id)
	if err != nil {
		return false, err
	}
	return !inserted, nil
}

// Contains implements Cache.
func (c *SQLiteCache) Contains(ctx context.Context, id string) (bool, error) {
	return c.db.IsVisited(ctx, id)
}

// Clear implements Cache.
func (c *SQLiteCache) Clear(ctx context.Context) error {
	return c.db.ClearVisited(ctx)
}

// Len implements Cache.
func (c *SQLiteCache) Len(ctx context.Context) (int, error) {
	return c.db.CountVisited(ctx)
}

// Close implements Cache.
func (c *SQLiteCache) Close() error {
	return nil
}
