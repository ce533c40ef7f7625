// Package cache provides the Redis client and the resolver cache.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"oilmill/internal/core/id"
	"oilmill/internal/domain/resolver"
)

// NewClient connects to Redis and pings it.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	return client, nil
}

const resolverVersionKey = "oilmill:resolver:version"

// ResolverCache implements resolver.Cache. Keys embed a version counter;
// Invalidate bumps the counter so every process stops seeing old entries
// at once, and the old keys expire on their own.
type ResolverCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ resolver.Cache = (*ResolverCache)(nil)

// NewResolverCache creates a resolver cache.
func NewResolverCache(client *redis.Client, ttl time.Duration) *ResolverCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ResolverCache{client: client, ttl: ttl}
}

func (c *ResolverCache) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, resolverVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		// SETNX so two processes starting together agree on the version.
		if err := c.client.SetNX(ctx, resolverVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, resolverVersionKey).Int64()
	}
	return ver, err
}

func (c *ResolverCache) key(ctx context.Context, key string) (string, error) {
	ver, err := c.version(ctx)
	if err != nil {
		return "", fmt.Errorf("cache version: %w", err)
	}
	return fmt.Sprintf("oilmill:resolver:%d:%s", ver, strings.ToLower(key)), nil
}

// Get implements resolver.Cache.
func (c *ResolverCache) Get(ctx context.Context, key string) (id.ID, bool, error) {
	k, err := c.key(ctx, key)
	if err != nil {
		return id.Nil(), false, err
	}
	raw, err := c.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		return id.Nil(), false, nil
	}
	if err != nil {
		return id.Nil(), false, err
	}
	itemID, err := id.Parse(raw)
	if err != nil {
		_ = c.client.Del(ctx, k).Err()
		return id.Nil(), false, nil
	}
	return itemID, true, nil
}

// Set implements resolver.Cache.
func (c *ResolverCache) Set(ctx context.Context, key string, itemID id.ID) error {
	k, err := c.key(ctx, key)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, k, itemID.String(), c.ttl).Err()
}

// Invalidate implements resolver.Cache.
func (c *ResolverCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, resolverVersionKey).Err()
}
