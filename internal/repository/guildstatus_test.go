package repository_test

import (
	"errors"
	"testing"

	"github.com/glizzus/sound-on/internal/datalayer"
	"github.com/glizzus/sound-on/internal/repository"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestGuildStatusRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := t.Context()
	postgresContainer, err := postgres.Run(
		ctx,
		"postgres",
		postgres.WithDatabase("soundon"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	defer func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate postgres container: %v", err)
		}
	}()

	connStr, err := postgresContainer.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create postgres pool: %v", err)
	}
	defer pool.Close()

	if err := datalayer.MigratePostgres(pool); err != nil {
		t.Fatalf("failed to migrate postgres: %v", err)
	}
	// Migrating again is a no-op.
	if err := datalayer.MigratePostgres(pool); err != nil {
		t.Fatalf("failed to migrate postgres twice: %v", err)
	}

	repo := repository.NewPostgresGuildStatusRepository(pool)
	ignoreTime := cmpopts.IgnoreFields(repository.GuildStatus{}, "UpdatedAt")

	first := repository.GuildStatus{GuildID: "2", BoundChannelID: "c2", Prefix: ">", AddRelated: true}
	second := repository.GuildStatus{GuildID: "1", Prefix: "!", QueueLoop: true}
	if err := repo.Save(ctx, first, second); err != nil {
		t.Fatalf("failed to save statuses: %v", err)
	}

	t.Run("Load returns a saved status", func(t *testing.T) {
		got, err := repo.Load(ctx, "2")
		if err != nil {
			t.Fatalf("failed to load status: %v", err)
		}
		if diff := cmp.Diff(first, got, ignoreTime); diff != "" {
			t.Errorf("status mismatch (-want +got):\n%s", diff)
		}
		if got.UpdatedAt.IsZero() {
			t.Error("UpdatedAt was not set")
		}
	})

	t.Run("Load of an unknown guild is not found", func(t *testing.T) {
		_, err := repo.Load(ctx, "404")
		if !errors.Is(err, repository.ErrGuildStatusNotFound) {
			t.Errorf("Load error = %v, want ErrGuildStatusNotFound", err)
		}
	})

	t.Run("Save overwrites an existing status", func(t *testing.T) {
		updated := first
		updated.AddRelated = false
		updated.Loop = true
		if err := repo.Save(ctx, updated); err != nil {
			t.Fatalf("failed to save status: %v", err)
		}

		got, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("failed to list statuses: %v", err)
		}
		want := []repository.GuildStatus{second, updated}
		if diff := cmp.Diff(want, got, ignoreTime); diff != "" {
			t.Errorf("statuses mismatch (-want +got):\n%s", diff)
		}
	})
}
