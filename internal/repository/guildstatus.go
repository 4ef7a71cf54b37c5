package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrGuildStatusNotFound is returned by Load for guilds that were never saved.
var ErrGuildStatusNotFound = errors.New("guild status not found")

type GuildStatus struct {
	GuildID        string
	BoundChannelID string
	Prefix         string
	AddRelated     bool
	Loop           bool
	QueueLoop      bool
	UpdatedAt      time.Time
}

type GuildStatusRepository interface {
	Save(ctx context.Context, statuses ...GuildStatus) error
	Load(ctx context.Context, guildID string) (GuildStatus, error)
	List(ctx context.Context) ([]GuildStatus, error)
}

type PostgresGuildStatusRepository struct {
	db *pgxpool.Pool
}

func NewPostgresGuildStatusRepository(db *pgxpool.Pool) *PostgresGuildStatusRepository {
	return &PostgresGuildStatusRepository{db: db}
}

var _ GuildStatusRepository = (*PostgresGuildStatusRepository)(nil)

func GuildStatusToRowParams(status GuildStatus) []any {
	return []any{
		status.GuildID,
		status.BoundChannelID,
		status.Prefix,
		status.AddRelated,
		status.Loop,
		status.QueueLoop,
	}
}

// Save upserts every status in one transaction.
func (r *PostgresGuildStatusRepository) Save(ctx context.Context, statuses ...GuildStatus) error {
	const guildStatusQuery = `
	INSERT INTO guild_status (guild_id, bound_channel_id, prefix, add_related, track_loop, queue_loop, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, now())
	ON CONFLICT (guild_id) DO UPDATE SET
		bound_channel_id = EXCLUDED.bound_channel_id,
		prefix = EXCLUDED.prefix,
		add_related = EXCLUDED.add_related,
		track_loop = EXCLUDED.track_loop,
		queue_loop = EXCLUDED.queue_loop,
		updated_at = EXCLUDED.updated_at
	`

	if len(statuses) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Warn("failed to rollback transaction", "error", err)
		}
	}()

	for _, status := range statuses {
		if _, err := tx.Exec(ctx, guildStatusQuery, GuildStatusToRowParams(status)...); err != nil {
			return fmt.Errorf("failed to save status of guild %s: %w", status.GuildID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const selectGuildStatus = `
	SELECT guild_id, bound_channel_id, prefix, add_related, track_loop, queue_loop, updated_at
	FROM guild_status
	`

func scanGuildStatus(row pgx.Row) (GuildStatus, error) {
	var s GuildStatus
	err := row.Scan(&s.GuildID, &s.BoundChannelID, &s.Prefix, &s.AddRelated, &s.Loop, &s.QueueLoop, &s.UpdatedAt)
	return s, err
}

func (r *PostgresGuildStatusRepository) Load(ctx context.Context, guildID string) (GuildStatus, error) {
	status, err := scanGuildStatus(r.db.QueryRow(ctx, selectGuildStatus+"WHERE guild_id = $1", guildID))
	if errors.Is(err, pgx.ErrNoRows) {
		return GuildStatus{}, fmt.Errorf("guild %s: %w", guildID, ErrGuildStatusNotFound)
	}
	if err != nil {
		return GuildStatus{}, fmt.Errorf("failed to load status of guild %s: %w", guildID, err)
	}
	return status, nil
}

// List returns every saved status, ordered by guild id.
func (r *PostgresGuildStatusRepository) List(ctx context.Context) ([]GuildStatus, error) {
	rows, err := r.db.Query(ctx, selectGuildStatus+"ORDER BY guild_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list guild statuses: %w", err)
	}
	defer rows.Close()

	var statuses []GuildStatus
	for rows.Next() {
		status, err := scanGuildStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guild status: %w", err)
		}
		statuses = append(statuses, status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list guild statuses: %w", err)
	}
	return statuses, nil
}
