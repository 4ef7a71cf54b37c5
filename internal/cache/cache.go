// Package cache keeps resolved track metadata in Redis so that popular urls
// are not scraped again every time somebody queues them.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glizzus/sound-on/internal/audiosource"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "soundon:track:"

type RedisTrackCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTrackCache(client *redis.Client, ttl time.Duration) *RedisTrackCache {
	return &RedisTrackCache{client: client, ttl: ttl}
}

var _ audiosource.Cache = (*RedisTrackCache)(nil)

func key(url string) string {
	return keyPrefix + url
}

func (c *RedisTrackCache) Get(ctx context.Context, url string) (*audiosource.Exported, error) {
	raw, err := c.client.Get(ctx, key(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached track %s: %w", url, err)
	}

	var exported audiosource.Exported
	if err := json.Unmarshal(raw, &exported); err != nil {
		// Corrupt entries are treated as misses.
		_ = c.client.Del(ctx, key(url)).Err()
		return nil, nil
	}
	return &exported, nil
}

func (c *RedisTrackCache) Put(ctx context.Context, exported audiosource.Exported) error {
	raw, err := json.Marshal(exported)
	if err != nil {
		return fmt.Errorf("failed to encode track %s: %w", exported.URL, err)
	}
	if err := c.client.Set(ctx, key(exported.URL), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache track %s: %w", exported.URL, err)
	}
	return nil
}

// Forget removes the cached metadata of url.
func (c *RedisTrackCache) Forget(ctx context.Context, url string) error {
	if err := c.client.Del(ctx, key(url)).Err(); err != nil {
		return fmt.Errorf("failed to forget track %s: %w", url, err)
	}
	return nil
}
