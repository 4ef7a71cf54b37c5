package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/glizzus/sound-on/internal/audiosource"
	"github.com/glizzus/sound-on/internal/backup"
	"github.com/glizzus/sound-on/internal/binary"
	"github.com/glizzus/sound-on/internal/cache"
	"github.com/glizzus/sound-on/internal/command"
	"github.com/glizzus/sound-on/internal/config"
	"github.com/glizzus/sound-on/internal/datalayer"
	"github.com/glizzus/sound-on/internal/handler"
	"github.com/glizzus/sound-on/internal/opus"
	"github.com/glizzus/sound-on/internal/player"
	"github.com/glizzus/sound-on/internal/repository"
	"github.com/glizzus/sound-on/internal/server"
	"github.com/glizzus/sound-on/internal/voice"
	"github.com/kkdai/youtube/v2"
	"golang.org/x/time/rate"
)

func runBotForever() error {
	if err := config.LoadEnv(); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No .env file found, continuing without it")
		} else {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	discordConfig, err := config.NewDiscordConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load discord config: %w", err)
	}
	ytdlpConfig, err := config.NewYtDlpConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load yt-dlp config: %w", err)
	}
	niconicoConfig, err := config.NewNiconicoConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load niconico config: %w", err)
	}
	audioConfig, err := config.NewAudioConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load audio config: %w", err)
	}
	backupConfig, err := config.NewBackupConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load backup config: %w", err)
	}
	redisConfig, err := config.NewRedisConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load redis config: %w", err)
	}

	pool, err := datalayer.NewPostgresPoolFromEnv(ctx)
	if err != nil {
		return fmt.Errorf("failed to create postgres pool: %w", err)
	}
	defer pool.Close()

	if err := datalayer.MigratePostgres(pool); err != nil {
		return fmt.Errorf("failed to migrate postgres: %w", err)
	}

	minioStorage, err := datalayer.NewMinioStorageFromEnv()
	if err != nil {
		return fmt.Errorf("failed to create minio storage: %w", err)
	}
	if err := minioStorage.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to ensure minio bucket: %w", err)
	}

	redisClient, err := datalayer.NewRedisClient(ctx, redisConfig)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err)
		}
	}()

	ytdlp := binary.NewManager(binary.Options{
		Repo:             ytdlpConfig.Repo,
		LocalName:        "yt-dlp",
		Select:           binary.YtDlpSelector(runtime.GOOS, runtime.GOARCH),
		Dir:              ytdlpConfig.Dir,
		CheckImmediately: ytdlpConfig.CheckImmediately,
		UpdateInterval:   ytdlpConfig.UpdateInterval,
	})
	extractor := audiosource.NewYtDlp(ytdlp)

	resolver := audiosource.NewResolver(audiosource.Deps{
		HTTPClient:      http.DefaultClient,
		Extractor:       extractor,
		YouTube:         &youtube.Client{},
		NiconicoLimiter: rate.NewLimiter(rate.Limit(niconicoConfig.RequestsPerSecond), niconicoConfig.Burst),
	}, cache.NewRedisTrackCache(redisClient, redisConfig.CacheTTL))

	session, err := handler.NewSession(discordConfig.Token)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	joiner := voice.NewJoinerFromSession(session)
	servers := server.NewManager(server.Deps{
		Resolver:  resolver,
		Related:   audiosource.NewRelatedFinder(extractor),
		Joiner:    joiner,
		Messenger: session,
		Encoder: player.FFmpegEncoder(opus.EncodeOptions{
			FFmpegPath: audioConfig.FFmpegPath,
			Bitrate:    audioConfig.Bitrate,
		}),
		Prefix:         discordConfig.Prefix,
		RelatedTimeout: audioConfig.RelatedTimeout,
		IdleTimeout:    audioConfig.IdleTimeout,
	})

	backups := backup.New(
		servers,
		repository.NewPostgresGuildStatusRepository(pool),
		minioStorage,
		backupConfig.Prefix,
	)
	if err := backups.Restore(ctx); err != nil {
		slog.Error("failed to restore backups", "error", err)
	}

	registry := command.Default(command.Deps{Searcher: extractor})
	dispatcher := handler.NewDispatcher(registry, servers, command.NewChecker(session.State, joiner))
	handler.AddHandlers(session, handler.Handlers{
		Ready:             handler.ReadyLog,
		MessageCreate:     handler.MakeMessageCreateHandler(dispatcher),
		InteractionCreate: handler.MakeInteractionCreateHandler(dispatcher),
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("failed to close session", "error", err)
		}
	}()

	guildID := discordConfig.GuildID
	if discordConfig.RunBotGlobally {
		guildID = ""
	}
	if err := handler.EstablishCommands(session, guildID, registry); err != nil {
		return fmt.Errorf("failed to establish commands: %w", err)
	}

	backupDone := make(chan error, 1)
	go func() {
		backupDone <- backups.Run(ctx, backupConfig.Cron)
	}()

	<-ctx.Done()
	slog.Info("Shutting down")
	for _, srv := range servers.All() {
		if err := srv.Player().Disconnect(); err != nil {
			slog.Warn("failed to disconnect", "guildID", srv.GuildID, "error", err)
		}
	}
	if err := <-backupDone; err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("backup loop failed: %w", err)
	}
	return nil
}

func main() {
	if err := runBotForever(); err != nil {
		log.Fatalf("failed to run bot: %v", err)
	}
}
