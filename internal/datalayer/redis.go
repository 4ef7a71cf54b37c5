package datalayer

import (
	"context"
	"fmt"

	"github.com/glizzus/sound-on/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the redis described by cfg and checks the connection.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}
