package audiosource_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"

	"github.com/glizzus/sound-on/internal/audiosource"
)

type fakeExtractor struct {
	info      *audiosource.YtDlpInfo
	infoErr   error
	stream    string
	infoCalls atomic.Int32
	streams   atomic.Int32
}

func (f *fakeExtractor) Info(_ context.Context, _ string) (*audiosource.YtDlpInfo, error) {
	f.infoCalls.Add(1)
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	if f.info == nil {
		return nil, errors.New("no info")
	}
	info := *f.info
	return &info, nil
}

func (f *fakeExtractor) Stream(_ context.Context, _ string) (io.ReadCloser, error) {
	f.streams.Add(1)
	return io.NopCloser(strings.NewReader(f.stream)), nil
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

type memoryCache struct {
	entries map[string]audiosource.Exported
	puts    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]audiosource.Exported{}}
}

func (c *memoryCache) Get(_ context.Context, url string) (*audiosource.Exported, error) {
	e, ok := c.entries[url]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (c *memoryCache) Put(_ context.Context, e audiosource.Exported) error {
	c.puts++
	c.entries[e.URL] = e
	return nil
}
