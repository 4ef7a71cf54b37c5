package e2e

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/glizzus/sound-on/internal/datalayer"
	"github.com/glizzus/sound-on/internal/generator"
	"github.com/glizzus/sound-on/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

var seedOnce sync.Once

type RandomSnowFlakeGenerator struct {
	counter uint64
}

func (g *RandomSnowFlakeGenerator) Next() (string, error) {
	const min = 1e17
	if g.counter < min {
		g.counter = min
	}
	id := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%d", id), nil
}

var _ generator.Generator[string] = (*RandomSnowFlakeGenerator)(nil)

// SeedGlobalNoise saves unrelated guilds so tests do not pass only on an empty table.
func SeedGlobalNoise(t *testing.T, repo repository.GuildStatusRepository) {
	t.Helper()
	seedOnce.Do(func() {
		guildIDGen := RandomSnowFlakeGenerator{}
		statuses := make([]repository.GuildStatus, 0, 100)
		for i := range 100 {
			guildID, _ := guildIDGen.Next()
			statuses = append(statuses, repository.GuildStatus{
				GuildID:    guildID,
				Prefix:     fmt.Sprintf("noise%d>", i),
				AddRelated: i%2 == 0,
			})
		}
		if err := repo.Save(t.Context(), statuses...); err != nil {
			t.Fatalf("failed to save noise: %v", err)
		}
	})
}

var (
	once              sync.Once
	postgresContainer *postgres.PostgresContainer
	connStr           string
	startErr          error
	pool              *pgxpool.Pool
	wg                sync.WaitGroup

	redisOnce      sync.Once
	redisContainer *tcredis.RedisContainer
	redisURL       string
	redisErr       error
)

// UsePostgres signals that the test is using Postgres as its database.
// This will either provision or reuse a Postgres container for the test.
// Do not expect a clean state in the database; it is shared across tests
// to simulate real-world usage.
func UsePostgres(t *testing.T) string {
	t.Helper()

	once.Do(func() {
		ctx := context.Background()
		postgresContainer, startErr = postgres.Run(
			ctx,
			"postgres",
			postgres.WithDatabase("soundon"),
			postgres.WithUsername("user"),
			postgres.WithPassword("password"),
			postgres.BasicWaitStrategies(),
		)
		if startErr != nil {
			return
		}
		connStr, startErr = postgresContainer.ConnectionString(ctx)
		if startErr != nil {
			return
		}

		pool, startErr = pgxpool.New(ctx, connStr)
		if startErr != nil {
			return
		}
		defer pool.Close()

		startErr = datalayer.MigratePostgres(pool)
	})

	if startErr != nil {
		t.Fatalf("failed to start postgres container: %v", startErr)
	}
	wg.Add(1)
	t.Cleanup(wg.Done)

	return connStr
}

// GetRepository creates a new PostgresGuildStatusRepository for testing.
// It uses the provided connection string to connect to the database.
// It performs no modifications or migrations on the database schema.
func GetRepository(t *testing.T, connStr string) *repository.PostgresGuildStatusRepository {
	t.Helper()
	pool, err := pgxpool.New(t.Context(), connStr)
	if err != nil {
		t.Fatalf("failed to create postgres pool: %v", err)
	}

	t.Cleanup(pool.Close)
	return repository.NewPostgresGuildStatusRepository(pool)
}

// UseRedis provisions or reuses a Redis container and returns a client for it.
// Keys written by other tests may be present.
func UseRedis(t *testing.T) *redis.Client {
	t.Helper()

	redisOnce.Do(func() {
		ctx := context.Background()
		redisContainer, redisErr = tcredis.Run(ctx, "redis:7")
		if redisErr != nil {
			return
		}
		redisURL, redisErr = redisContainer.ConnectionString(ctx)
	})
	if redisErr != nil {
		t.Fatalf("failed to start redis container: %v", redisErr)
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("failed to parse redis url: %v", err)
	}
	client := redis.NewClient(opts)
	wg.Add(1)
	t.Cleanup(func() {
		_ = client.Close()
		wg.Done()
	})
	return client
}

func TerminatePostgresForE2E() {
	wg.Wait()
	if postgresContainer != nil {
		err := postgresContainer.Terminate(context.Background())
		if err != nil {
			fmt.Printf("failed to terminate postgres container: %v", err)
		}
	}
}

func TerminateRedisForE2E() {
	wg.Wait()
	if redisContainer != nil {
		err := redisContainer.Terminate(context.Background())
		if err != nil {
			fmt.Printf("failed to terminate redis container: %v", err)
		}
	}
}
