package command_test

import (
	"context"
	"testing"
	"time"

	"github.com/glizzus/sound-on/internal/audiosource"
	"github.com/glizzus/sound-on/internal/server"
	"github.com/glizzus/sound-on/internal/server/servertest"
)

type fixture struct {
	server    *server.Server
	resolver  *servertest.Resolver
	joiner    *servertest.Joiner
	messenger *servertest.Messenger
	encoder   *servertest.BlockingEncoder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		resolver:  &servertest.Resolver{},
		joiner:    &servertest.Joiner{},
		messenger: &servertest.Messenger{},
		encoder:   &servertest.BlockingEncoder{},
	}
	f.server = server.New("g1", server.Deps{
		Resolver:  f.resolver,
		Joiner:    f.joiner,
		Messenger: f.messenger,
		Encoder:   f.encoder.Encode,
		Prefix:    ">",
	})
	t.Cleanup(func() { _ = f.server.Leave() })
	return f
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type fakeSearcher struct {
	results []audiosource.SearchResult
	err     error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]audiosource.SearchResult, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}
