package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// NiconicoConfig limits how hard the bot hits nicovideo.jp.
type NiconicoConfig struct {
	RequestsPerSecond float64 `env:"NICONICO_RPS, default=2"`
	Burst             int     `env:"NICONICO_BURST, default=4"`
}

func NewNiconicoConfigFromEnv() (*NiconicoConfig, error) {
	var cfg NiconicoConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if cfg.RequestsPerSecond <= 0 || cfg.Burst <= 0 {
		return nil, fmt.Errorf("NICONICO_RPS and NICONICO_BURST must be positive")
	}
	return &cfg, nil
}
