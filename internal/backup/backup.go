// Package backup periodically saves the state of every guild so that a
// restarted bot picks up where it left off. Settings go to postgres and
// queues go to blob storage as JSON.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"

	"github.com/glizzus/sound-on/internal/datalayer"
	"github.com/glizzus/sound-on/internal/queue"
	"github.com/glizzus/sound-on/internal/repository"
	"github.com/glizzus/sound-on/internal/schedule"
	"github.com/glizzus/sound-on/internal/server"
)

type Backup struct {
	servers  *server.Manager
	statuses repository.GuildStatusRepository
	blobs    datalayer.BlobStorage
	prefix   string
}

func New(
	servers *server.Manager,
	statuses repository.GuildStatusRepository,
	blobs datalayer.BlobStorage,
	prefix string,
) *Backup {
	return &Backup{servers: servers, statuses: statuses, blobs: blobs, prefix: prefix}
}

// Key is where the queue of guildID is stored.
func Key(prefix, guildID string) string {
	return path.Join(prefix, guildID+".json")
}

// Save backs up every guild the bot has seen since it started.
func (b *Backup) Save(ctx context.Context) error {
	servers := b.servers.All()
	if len(servers) == 0 {
		return nil
	}

	statuses := make([]repository.GuildStatus, 0, len(servers))
	var errs []error
	for _, srv := range servers {
		statuses = append(statuses, toRow(srv.Status()))
		if err := b.saveQueue(ctx, srv.GuildID, srv.Queue().Export()); err != nil {
			errs = append(errs, err)
		}
	}
	if err := b.statuses.Save(ctx, statuses...); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (b *Backup) saveQueue(ctx context.Context, guildID string, items []queue.ExportedItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode queue of guild %s: %w", guildID, err)
	}
	err = b.blobs.Put(ctx, Key(b.prefix, guildID), bytes.NewReader(data), datalayer.PutOptions{
		Size:        int64(len(data)),
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to store queue of guild %s: %w", guildID, err)
	}
	return nil
}

// LoadQueue reads the backed up queue of guildID. A guild without a backup has an empty queue.
func (b *Backup) LoadQueue(ctx context.Context, guildID string) ([]queue.ExportedItem, error) {
	body, err := b.blobs.Get(ctx, Key(b.prefix, guildID))
	if errors.Is(err, datalayer.ErrBlobNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read queue of guild %s: %w", guildID, err)
	}
	defer body.Close()

	var items []queue.ExportedItem
	if err := json.NewDecoder(body).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode queue of guild %s: %w", guildID, err)
	}
	return items, nil
}

// Restore recreates the server of every saved guild. Playback is not resumed.
func (b *Backup) Restore(ctx context.Context) error {
	statuses, err := b.statuses.List(ctx)
	if err != nil {
		return err
	}

	for _, status := range statuses {
		srv := b.servers.Get(status.GuildID)
		srv.ApplyStatus(fromRow(status))

		items, err := b.LoadQueue(ctx, status.GuildID)
		if err != nil {
			slog.Warn("Failed to restore queue", "guildID", status.GuildID, "error", err)
			continue
		}
		if err := srv.Restore(ctx, items); err != nil {
			slog.Warn("Failed to restore queue", "guildID", status.GuildID, "error", err)
			continue
		}
		slog.Info("Restored guild", "guildID", status.GuildID, "tracks", srv.Queue().Len())
	}
	return nil
}

// Run saves on every tick of cron until ctx is done, and once more on the way out.
func (b *Backup) Run(ctx context.Context, cron string) error {
	err := schedule.Loop(ctx, cron, func(ctx context.Context) {
		if err := b.Save(ctx); err != nil {
			slog.Error("Backup failed", "error", err)
			return
		}
		slog.Debug("Backup saved")
	})
	if errors.Is(err, context.Canceled) {
		if err := b.Save(context.WithoutCancel(ctx)); err != nil {
			slog.Error("Final backup failed", "error", err)
		}
		return nil
	}
	return err
}

func toRow(s server.Status) repository.GuildStatus {
	return repository.GuildStatus{
		GuildID:        s.GuildID,
		BoundChannelID: s.BoundChannelID,
		Prefix:         s.Prefix,
		AddRelated:     s.AddRelated,
		Loop:           s.Loop,
		QueueLoop:      s.QueueLoop,
	}
}

func fromRow(s repository.GuildStatus) server.Status {
	return server.Status{
		GuildID:        s.GuildID,
		BoundChannelID: s.BoundChannelID,
		Prefix:         s.Prefix,
		AddRelated:     s.AddRelated,
		Loop:           s.Loop,
		QueueLoop:      s.QueueLoop,
	}
}
