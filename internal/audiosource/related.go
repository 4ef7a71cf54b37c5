package audiosource

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrNoRelated is returned when no related video could be found.
var ErrNoRelated = errors.New("no related video found")

// RelatedFinder picks a video to play after a YouTube track has finished.
type RelatedFinder struct {
	searcher Searcher
}

func NewRelatedFinder(searcher Searcher) *RelatedFinder {
	return &RelatedFinder{searcher: searcher}
}

// Find searches for videos like source and returns the url of the first one
// that is neither source itself nor listed in exclude.
func (f *RelatedFinder) Find(ctx context.Context, source AudioSource, exclude []string) (string, error) {
	query := source.Title()
	if y, ok := source.(*YouTube); ok && y.Author() != "" {
		query += " " + y.Author()
	}

	results, err := f.searcher.Search(ctx, query)
	if err != nil {
		return "", fmt.Errorf("related search failed: %w", err)
	}

	current := videoKey(source.URL())
	for _, r := range results {
		if !r.Video {
			continue
		}
		key := videoKey(r.URL)
		if key == current || slices.ContainsFunc(exclude, func(u string) bool { return videoKey(u) == key }) {
			continue
		}
		return r.URL, nil
	}
	return "", ErrNoRelated
}

// videoKey normalizes the different url shapes of a YouTube video to its id.
func videoKey(rawURL string) string {
	if i := strings.Index(rawURL, "v="); i >= 0 {
		id := rawURL[i+2:]
		if j := strings.IndexAny(id, "&#"); j >= 0 {
			id = id[:j]
		}
		return id
	}
	for _, prefix := range []string{"youtu.be/", "/shorts/", "/live/"} {
		if i := strings.Index(rawURL, prefix); i >= 0 {
			id := rawURL[i+len(prefix):]
			if j := strings.IndexAny(id, "?&#/"); j >= 0 {
				id = id[:j]
			}
			return id
		}
	}
	return rawURL
}
