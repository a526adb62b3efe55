// Package cache holds short-lived copies of subscription rows in Redis so
// request paths avoid a database round trip per entitlement check.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "clubdesk:subscription:"

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(url string, ttl time.Duration) (*Cache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewWithClient(redis.NewClient(opt), ttl), nil
}

func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get returns the cached payload for orgID. A miss is (nil, false, nil).
func (c *Cache) Get(ctx context.Context, orgID string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key(orgID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set stores payload for the configured TTL. A zero TTL disables caching.
func (c *Cache) Set(ctx context.Context, orgID string, payload []byte) error {
	if c.ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, key(orgID), payload, c.ttl).Err()
}

func (c *Cache) Invalidate(ctx context.Context, orgID string) error {
	return c.client.Del(ctx, key(orgID)).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func key(orgID string) string {
	return keyPrefix + orgID
}
