package audiosource

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Cache stores exported metadata so a url is only scraped once in a while.
type Cache interface {
	// Get returns nil and no error on a miss.
	Get(ctx context.Context, url string) (*Exported, error)
	Put(ctx context.Context, exported Exported) error
}

// DetectKind chooses the source implementation for url.
func DetectKind(url string) Kind {
	switch {
	case ValidateNiconicoURL(url):
		return KindNiconico
	case ValidateYouTubeURL(url):
		return KindYouTube
	case IsAttachmentURL(url):
		return KindAttachment
	default:
		return KindGeneric
	}
}

// Resolver turns urls into sources.
type Resolver struct {
	deps  Deps
	cache Cache
}

// NewResolver creates a Resolver. cache may be nil.
func NewResolver(deps Deps, cache Cache) *Resolver {
	return &Resolver{deps: deps, cache: cache}
}

// Resolve builds the source for url, using cached metadata when there is some.
func (r *Resolver) Resolve(ctx context.Context, url string) (AudioSource, error) {
	url = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(url), "<"), ">")

	var prefetched *Exported
	if r.cache != nil {
		cached, err := r.cache.Get(ctx, url)
		if err != nil {
			slog.Warn("failed to read metadata cache", "url", url, "error", err)
		} else if cached != nil {
			slog.Debug("metadata cache hit", "url", url)
			prefetched = cached
		}
	}

	kind := DetectKind(url)
	if prefetched != nil && prefetched.Kind != "" {
		kind = prefetched.Kind
	}

	source, err := r.build(ctx, kind, url, prefetched)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", url, err)
	}

	if prefetched == nil && r.cache != nil {
		if err := r.cache.Put(ctx, source.Export()); err != nil {
			slog.Warn("failed to write metadata cache", "url", url, "error", err)
		}
	}
	return source, nil
}

// Restore rebuilds a source from its export without touching the network.
func (r *Resolver) Restore(ctx context.Context, exported Exported) (AudioSource, error) {
	kind := exported.Kind
	if kind == "" {
		kind = DetectKind(exported.URL)
	}
	return r.build(ctx, kind, exported.URL, &exported)
}

// FromAttachment builds a source for a file attached to a Discord message.
func (r *Resolver) FromAttachment(attachment *discordgo.MessageAttachment) AudioSource {
	return NewAttachment(attachment.URL, attachment.Filename, 0)
}

func (r *Resolver) build(ctx context.Context, kind Kind, url string, prefetched *Exported) (AudioSource, error) {
	switch kind {
	case KindNiconico:
		return NewNiconico(ctx, url, prefetched, r.deps)
	case KindYouTube:
		return NewYouTube(ctx, url, prefetched, r.deps)
	case KindAttachment:
		if prefetched != nil {
			return NewAttachment(url, prefetched.Title, prefetched.Length), nil
		}
		return NewAttachment(url, "", 0), nil
	case KindGeneric:
		return NewGeneric(ctx, url, prefetched, r.deps)
	default:
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
}
