package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/glizzus/sound-on/internal/audiosource"
	"github.com/glizzus/sound-on/internal/backup"
	"github.com/glizzus/sound-on/internal/binary"
	"github.com/glizzus/sound-on/internal/config"
	"github.com/glizzus/sound-on/internal/datalayer"
	"github.com/glizzus/sound-on/internal/presenters"
	"github.com/glizzus/sound-on/internal/repository"
	"github.com/glizzus/sound-on/internal/schedule"
	"github.com/glizzus/sound-on/internal/server"
	"github.com/kkdai/youtube/v2"
	"github.com/urfave/cli/v2"
)

func ytdlpManager(checkImmediately bool) (*binary.Manager, error) {
	cfg, err := config.NewYtDlpConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return binary.NewManager(binary.Options{
		Repo:             cfg.Repo,
		LocalName:        "yt-dlp",
		Select:           binary.YtDlpSelector(runtime.GOOS, runtime.GOARCH),
		Dir:              cfg.Dir,
		CheckImmediately: checkImmediately || cfg.CheckImmediately,
		UpdateInterval:   cfg.UpdateInterval,
	}), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve a url the way the play command does and print its metadata",
		ArgsUsage: "<url>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "fetch",
				Usage: "Also fetch the stream and print where the audio comes from",
			},
		},
		Action: func(c *cli.Context) error {
			url := c.Args().First()
			if url == "" {
				return cli.Exit("Please provide a url", 1)
			}

			manager, err := ytdlpManager(false)
			if err != nil {
				return cli.Exit("Failed to load yt-dlp config: "+err.Error(), 1)
			}
			resolver := audiosource.NewResolver(audiosource.Deps{
				HTTPClient: http.DefaultClient,
				Extractor:  audiosource.NewYtDlp(manager),
				YouTube:    &youtube.Client{},
			}, nil)

			source, err := resolver.Resolve(c.Context, url)
			if err != nil {
				return cli.Exit("Failed to resolve: "+err.Error(), 1)
			}
			if err := printJSON(c.App.Writer, source.Export()); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "length: %s\n", presenters.FormatLength(source.LengthSeconds()))
			if extra := source.NowPlayingExtra(); extra != "" {
				fmt.Fprintln(c.App.Writer, extra)
			}

			if !c.Bool("fetch") {
				return nil
			}
			info, err := source.Fetch(c.Context)
			if err != nil {
				return cli.Exit("Failed to fetch: "+err.Error(), 1)
			}
			if info.Stream != nil {
				defer info.Stream.Close()
				fmt.Fprintln(c.App.Writer, "stream: readable")
				return nil
			}
			fmt.Fprintf(c.App.Writer, "stream: %s (%s)\n", info.URL, info.Format)
			if info.Cookie != "" {
				fmt.Fprintf(c.App.Writer, "cookie: %s\n", info.Cookie)
			}
			return nil
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search YouTube the way the play command does",
		ArgsUsage: "<keywords>",
		Action: func(c *cli.Context) error {
			query := c.Args().Slice()
			if len(query) == 0 {
				return cli.Exit("Please provide keywords", 1)
			}
			manager, err := ytdlpManager(false)
			if err != nil {
				return cli.Exit("Failed to load yt-dlp config: "+err.Error(), 1)
			}

			results, err := audiosource.NewYtDlp(manager).Search(c.Context, strings.Join(query, " "))
			if err != nil {
				return cli.Exit("Failed to search: "+err.Error(), 1)
			}
			if len(results) == 0 {
				log.Println("No results.")
				return nil
			}
			for _, r := range results {
				fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\t%s\n", r.URL, presenters.FormatLength(r.Duration), r.Channel, r.Title)
			}
			return nil
		},
	}
}

func ytdlpCommand() *cli.Command {
	return &cli.Command{
		Name:  "ytdlp",
		Usage: "Manage the yt-dlp binary",
		Subcommands: []*cli.Command{
			{
				Name:  "update",
				Usage: "Install or update yt-dlp from its latest release",
				Action: func(c *cli.Context) error {
					manager, err := ytdlpManager(true)
					if err != nil {
						return cli.Exit("Failed to load yt-dlp config: "+err.Error(), 1)
					}
					path, err := manager.Ensure(c.Context)
					if err != nil {
						return cli.Exit("Failed to install yt-dlp: "+err.Error(), 1)
					}
					fmt.Fprintf(c.App.Writer, "%s %s\n", path, manager.InstalledVersion())
					return nil
				},
			},
			{
				Name:  "version",
				Usage: "Print the installed yt-dlp version",
				Action: func(c *cli.Context) error {
					manager, err := ytdlpManager(false)
					if err != nil {
						return cli.Exit("Failed to load yt-dlp config: "+err.Error(), 1)
					}
					version := manager.InstalledVersion()
					if version == "" {
						return cli.Exit("yt-dlp is not installed", 1)
					}
					fmt.Fprintln(c.App.Writer, version)
					return nil
				},
			},
		},
	}
}

func openBackup(c *cli.Context) (*backup.Backup, repository.GuildStatusRepository, func(), error) {
	backupConfig, err := config.NewBackupConfigFromEnv()
	if err != nil {
		return nil, nil, nil, err
	}
	pool, err := datalayer.NewPostgresPoolFromEnv(c.Context)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := datalayer.MigratePostgres(pool); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	storage, err := datalayer.NewMinioStorageFromEnv()
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	statuses := repository.NewPostgresGuildStatusRepository(pool)
	// Inspecting needs no playback, so the servers are never used.
	b := backup.New(server.NewManager(server.Deps{}), statuses, storage, backupConfig.Prefix)
	return b, statuses, pool.Close, nil
}

func backupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Inspect guild backups",
		Subcommands: []*cli.Command{
			{
				Name:  "schedule",
				Usage: "Print when the next backups will run",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "count", Value: 5, Usage: "Number of runs to print"},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.NewBackupConfigFromEnv()
					if err != nil {
						return cli.Exit("Failed to load backup config: "+err.Error(), 1)
					}
					runs, err := schedule.NextRunTimes(cfg.Cron, c.Int("count"))
					if err != nil {
						return cli.Exit("Failed to compute run times: "+err.Error(), 1)
					}
					for _, run := range runs {
						fmt.Fprintln(c.App.Writer, run.Format(time.RFC3339))
					}
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List the saved guild settings",
				Action: func(c *cli.Context) error {
					_, statuses, closeFn, err := openBackup(c)
					if err != nil {
						return cli.Exit("Failed to open backups: "+err.Error(), 1)
					}
					defer closeFn()

					all, err := statuses.List(c.Context)
					if err != nil {
						return cli.Exit("Failed to list backups: "+err.Error(), 1)
					}
					if len(all) == 0 {
						log.Println("No backups found.")
						return nil
					}
					for _, s := range all {
						log.Printf("%+v", s)
					}
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "Print the saved queue of a guild",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "guild-id",
						Usage:    "ID of the guild to show the queue of",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					b, _, closeFn, err := openBackup(c)
					if err != nil {
						return cli.Exit("Failed to open backups: "+err.Error(), 1)
					}
					defer closeFn()

					items, err := b.LoadQueue(c.Context, c.String("guild-id"))
					if err != nil {
						return cli.Exit("Failed to load queue: "+err.Error(), 1)
					}
					return printJSON(c.App.Writer, items)
				},
			},
		},
	}
}

func main() {
	if err := config.LoadEnv(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to load .env file: %v", err)
	}
	slog.SetLogLoggerLevel(slog.LevelWarn)

	app := &cli.App{
		Name:        "sound-on-cli",
		Description: "A development CLI tool for testing Sound On without Discord",
		Commands: []*cli.Command{
			resolveCommand(),
			searchCommand(),
			ytdlpCommand(),
			backupCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Error running CLI: %v", err)
	}
}
