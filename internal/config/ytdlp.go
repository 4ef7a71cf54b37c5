package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// YtDlpConfig controls where the yt-dlp binary is fetched from and cached.
type YtDlpConfig struct {
	Dir              string        `env:"YTDLP_DIR, default=bin"`
	Repo             string        `env:"YTDLP_REPO, default=yt-dlp/yt-dlp"`
	CheckImmediately bool          `env:"YTDLP_CHECK_IMMEDIATELY"`
	UpdateInterval   time.Duration `env:"YTDLP_UPDATE_INTERVAL, default=24h"`
}

func NewYtDlpConfigFromEnv() (*YtDlpConfig, error) {
	var cfg YtDlpConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if cfg.UpdateInterval < time.Minute {
		return nil, fmt.Errorf("YTDLP_UPDATE_INTERVAL must be at least a minute, got %s", cfg.UpdateInterval)
	}
	return &cfg, nil
}
