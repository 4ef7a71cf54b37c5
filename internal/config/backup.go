package config

import (
	"context"

	"github.com/glizzus/sound-on/internal/schedule"
	"github.com/sethvargo/go-envconfig"
)

type BackupConfig struct {
	Cron   string `env:"BACKUP_CRON, default=*/5 * * * *"`
	Prefix string `env:"BACKUP_PREFIX, default=queues"`
}

func NewBackupConfigFromEnv() (*BackupConfig, error) {
	var cfg BackupConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if err := schedule.ValidateCron(cfg.Cron); err != nil {
		return nil, err
	}
	return &cfg, nil
}
