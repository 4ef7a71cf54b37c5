package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// AudioConfig controls encoding and related-track lookups.
type AudioConfig struct {
	FFmpegPath     string        `env:"FFMPEG_PATH, default=ffmpeg"`
	Bitrate        int           `env:"OPUS_BITRATE, default=64000"`
	RelatedTimeout time.Duration `env:"RELATED_TIMEOUT, default=30s"`
	// IdleTimeout disconnects from voice once the queue has been empty this long.
	IdleTimeout time.Duration `env:"IDLE_TIMEOUT, default=5m"`
}

func NewAudioConfigFromEnv() (*AudioConfig, error) {
	var cfg AudioConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if cfg.Bitrate < 8000 || cfg.Bitrate > 512000 {
		return nil, fmt.Errorf("OPUS_BITRATE must be between 8000 and 512000, got %d", cfg.Bitrate)
	}
	return &cfg, nil
}
