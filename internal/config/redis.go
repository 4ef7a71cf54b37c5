package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, required"`
	Password string `env:"REDIS_PASSWORD"`
	// CacheTTL is how long resolved track metadata is kept.
	CacheTTL time.Duration `env:"REDIS_CACHE_TTL, default=6h"`
}

func NewRedisConfigFromEnv() (*RedisConfig, error) {
	var cfg RedisConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is required")
	}
	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("REDIS_CACHE_TTL must be positive")
	}
	return &cfg, nil
}
