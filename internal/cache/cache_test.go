package cache_test

import (
	"testing"
	"time"

	"github.com/glizzus/sound-on/internal/audiosource"
	"github.com/glizzus/sound-on/internal/cache"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	ctx := t.Context()

	redisContainer, err := tcredis.Run(ctx, "redis:7")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := redisContainer.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate redis container: %v", err)
		}
	})

	connStr, err := redisContainer.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}
	opts, err := redis.ParseURL(connStr)
	if err != nil {
		t.Fatalf("failed to parse redis url: %v", err)
	}

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisTrackCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	client := newRedisClient(t)
	c := cache.NewRedisTrackCache(client, time.Hour)

	exported := audiosource.Exported{
		Kind:   audiosource.KindNiconico,
		URL:    "https://www.nicovideo.jp/watch/sm9",
		Title:  "Test Video",
		Author: "uploader",
		Length: 320,
		Views:  1234,
	}

	t.Run("a miss returns nil", func(t *testing.T) {
		got, err := c.Get(t.Context(), exported.URL)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got != nil {
			t.Errorf("expected a miss, got %+v", got)
		}
	})

	t.Run("a stored track is returned", func(t *testing.T) {
		if err := c.Put(t.Context(), exported); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		got, err := c.Get(t.Context(), exported.URL)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if diff := cmp.Diff(&exported, got); diff != "" {
			t.Errorf("Get() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("entries expire", func(t *testing.T) {
		ttl, err := client.TTL(t.Context(), "soundon:track:"+exported.URL).Result()
		if err != nil {
			t.Fatalf("TTL() error = %v", err)
		}
		if ttl <= 0 || ttl > time.Hour {
			t.Errorf("unexpected ttl %v", ttl)
		}
	})

	t.Run("a forgotten track is a miss", func(t *testing.T) {
		if err := c.Forget(t.Context(), exported.URL); err != nil {
			t.Fatalf("Forget() error = %v", err)
		}
		got, err := c.Get(t.Context(), exported.URL)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got != nil {
			t.Errorf("expected a miss, got %+v", got)
		}
	})

	t.Run("a corrupt entry is a miss", func(t *testing.T) {
		url := "https://example.com/corrupt"
		if err := client.Set(t.Context(), "soundon:track:"+url, "{not json", time.Minute).Err(); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		got, err := c.Get(t.Context(), url)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got != nil {
			t.Errorf("expected a miss, got %+v", got)
		}
	})
}
