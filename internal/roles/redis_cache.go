// Package roles resolves a user's role codes, with an optional Redis cache
// in front of the store so hot principals do not hit Postgres per request.
package roles

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Source is the authoritative role lookup, backed by the store.
type Source interface {
	GetUserRoles(ctx context.Context, userID string) ([]string, error)
}

type cacheEntry struct {
	Codes    []string  `json:"codes"`
	CachedAt time.Time `json:"cached_at"`
}

// RedisCache caches role sets per user with a TTL. Grants and revocations
// must call Invalidate so the next resolve reads fresh from the source.
type RedisCache struct {
	client *redis.Client
	source Source
	ttl    time.Duration
	prefix string
}

func NewRedisCache(redisURL string, source Source, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisCache{
		client: client,
		source: source,
		ttl:    ttl,
		prefix: "roles:",
	}, nil
}

// NewRedisCacheWithClient builds a cache from an existing client.
func NewRedisCacheWithClient(client *redis.Client, source Source, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, source: source, ttl: ttl, prefix: "roles:"}
}

func (c *RedisCache) key(userID string) string {
	return c.prefix + userID
}

// Resolve returns the user's role codes, serving from cache when possible.
// A cache read failure falls through to the source; the cache is an
// optimization, never an authority.
func (c *RedisCache) Resolve(ctx context.Context, userID string) ([]string, error) {
	raw, err := c.client.Get(ctx, c.key(userID)).Result()
	if err == nil {
		var entry cacheEntry
		if err := json.Unmarshal([]byte(raw), &entry); err == nil {
			return entry.Codes, nil
		}
	}

	codes, err := c.source.GetUserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(cacheEntry{Codes: codes, CachedAt: time.Now()})
	if err != nil {
		return codes, nil
	}
	_ = c.client.Set(ctx, c.key(userID), payload, c.ttl).Err()
	return codes, nil
}

// Invalidate drops the cached role set for a user.
func (c *RedisCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, c.key(userID)).Err(); err != nil {
		return fmt.Errorf("invalidate roles: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// DirectResolver skips caching entirely, reading the source per call. Used
// when Redis is not configured.
type DirectResolver struct {
	source Source
}

func NewDirectResolver(source Source) *DirectResolver {
	return &DirectResolver{source: source}
}

func (r *DirectResolver) Resolve(ctx context.Context, userID string) ([]string, error) {
	return r.source.GetUserRoles(ctx, userID)
}

func (r *DirectResolver) Invalidate(ctx context.Context, userID string) error {
	return nil
}
