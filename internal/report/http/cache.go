package http

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/finconsol/finconsol/internal/report"
)

const (
	cacheTTL        = 5 * time.Minute
	cacheVersionKey = "report:grid:ver"
)

// Cache stores rendered grid payloads in redis under a versioned key.
// Busting bumps the version counter so stale entries simply expire;
// no scan over the keyspace is ever needed.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache wraps a redis client. A nil client disables caching.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client, ttl: cacheTTL}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

func (c *Cache) versioned(ctx context.Context, key string) (string, error) {
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return fmt.Sprintf("report:grid:%d:%s", ver, key), nil
}

// Get returns a cached payload, if present.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.enabled() {
		return nil, false
	}
	full, err := c.versioned(ctx, key)
	if err != nil {
		return nil, false
	}
	payload, err := c.client.Get(ctx, full).Bytes()
	if err != nil {
		return nil, false
	}
	return payload, true
}

// Set stores a payload under the current version.
func (c *Cache) Set(ctx context.Context, key string, payload []byte) {
	if !c.enabled() {
		return
	}
	full, err := c.versioned(ctx, key)
	if err != nil {
		return
	}
	c.client.Set(ctx, full, payload, c.ttl)
}

// Bust invalidates every cached payload by bumping the version.
func (c *Cache) Bust(ctx context.Context) {
	if !c.enabled() {
		return
	}
	c.client.Incr(ctx, cacheVersionKey)
}

func buildCacheKey(f report.Filters) string {
	return fmt.Sprintf("%s|%s|%02d-%04d|%02d-%04d",
		f.Statement, f.DataType, f.FromMonth, f.FromYear, f.ToMonth, f.ToYear)
}
