package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// DefaultRedisAddr is the address of a local Redis server.
	DefaultRedisAddr = "localhost:6379"

	// DefaultRedisKey is the set holding visited identifiers.
	DefaultRedisKey = "artistscan:visited"

	// redisPingTimeout bounds the startup connectivity check.
	redisPingTimeout = 5 * time.Second
)

// RedisOptions configures the redis backend.
type RedisOptions struct {
	// Addr is the server address in "host:port" format.
	Addr string `yaml:"addr,omitempty"`

	// Password is the AUTH password, if any.
	Password string `yaml:"password,omitempty"`

	// DB is the logical database number.
	DB int `yaml:"db,omitempty"`

	// Key is the name of the Redis set used for visited identifiers.
	Key string `yaml:"key,omitempty"`
}

// RedisCache is a Cache stored in a single Redis set. SADD reports whether a
// member was added, which gives an atomic test-and-set in one round trip.
type RedisCache struct {
	client *redis.Client
	key    string
}

// NewRedisCache connects to Redis and verifies the connection with PING.
func NewRedisCache(ctx context.Context, opts RedisOptions) (*RedisCache, error) {
	if opts.Addr == "" {
		opts.Addr = DefaultRedisAddr
	}
	if opts.Key == "" {
		opts.Key = DefaultRedisKey
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis at %s: %v", ErrCacheUnavailable, opts.Addr, err)
	}

	return &RedisCache{client: client, key: opts.Key}, nil
}

// TestAndSet implements Cache.
func (c *RedisCache) TestAndSet(ctx context.Context, id string) (bool, error) {
	added, err := c.client.SAdd(ctx, c.key, id).Result()
	if err != nil {
		return false, fmt.Errorf("redis SADD: %w", err)
	}
	return added == 0, nil
}

// Contains implements Cache.
func (c *RedisCache) Contains(ctx context.Context, id string) (bool, error) {
	ok, err := c.client.SIsMember(ctx, c.key, id).Result()
	if err != nil {
		return false, fmt.Errorf("redis SISMEMBER: %w", err)
	}
	return ok, nil
}

// Clear implements Cache.
func (c *RedisCache) Clear(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("redis DEL: %w", err)
	}
	return nil
}

// Len implements Cache.
func (c *RedisCache) Len(ctx context.Context) (int, error) {
	n, err := c.client.SCard(ctx, c.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis SCARD: %w", err)
	}
	return int(n), nil
}

// Close implements Cache.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
