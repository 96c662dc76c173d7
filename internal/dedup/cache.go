package dedup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nao1215/artistscan/internal/database"
)

// ErrCacheUnavailable is returned when the backing store cannot be reached.
// The crawl cannot guarantee duplicate-free output without it, so callers
// treat this error as fatal at startup.
var ErrCacheUnavailable = errors.New("dedup cache unavailable")

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown dedup backend")

// Cache is a concurrency-safe set of visited resource identifiers.
type Cache interface {
	// TestAndSet reports whether id was already present. If it was not,
	// id is inserted and false is returned; the caller should proceed.
	TestAndSet(ctx context.Context, id string) (bool, error)

	// Contains reports whether id is present without inserting it.
	Contains(ctx context.Context, id string) (bool, error)

	// Clear removes every identifier.
	Clear(ctx context.Context) error

	// Len returns the number of identifiers stored.
	Len(ctx context.Context) (int, error)

	// Close releases resources held by the cache.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Backends returns the supported backend names.
func Backends() []string {
	return []string{BackendMemory, BackendSQLite, BackendRedis}
}

// Options selects and configures a backend.
type Options struct {
	// Backend is one of BackendMemory, BackendSQLite or BackendRedis.
	Backend string

	// DB is the crawl database used by the sqlite backend.
	DB *database.CrawlDB

	// Redis configures the redis backend.
	Redis RedisOptions
}

// Open returns the configured Cache. Any failure to reach the backing store
// is wrapped with ErrCacheUnavailable.
func Open(ctx context.Context, opts Options) (Cache, error) {
	switch strings.ToLower(opts.Backend) {
	case BackendMemory:
		return NewMemoryCache(), nil
	case BackendSQLite, "":
		if opts.DB == nil {
			return nil, fmt.Errorf("%w: sqlite backend requires an open database", ErrCacheUnavailable)
		}
		return NewSQLiteCache(opts.DB), nil
	case BackendRedis:
		return NewRedisCache(ctx, opts.Redis)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
