package audiosource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Niconico is a niconico video.
// Metadata and stream urls come from the site itself, with yt-dlp taking over
// for the rest of the track's life as soon as the site route fails once.
type Niconico struct {
	base
	author    string
	views     int
	client    *niconicoClient
	extractor Extractor

	mu          sync.Mutex
	useFallback bool
}

var _ AudioSource = (*Niconico)(nil)

// NewNiconico builds a niconico source for url.
// A source built from prefetched data never talks to the site and streams
// through yt-dlp.
func NewNiconico(ctx context.Context, url string, prefetched *Exported, deps Deps) (*Niconico, error) {
	n := &Niconico{
		base:      base{url: url},
		extractor: deps.Extractor,
	}

	if prefetched != nil {
		n.title = prefetched.Title
		n.description = prefetched.Description
		n.lengthSeconds = prefetched.Length
		n.author = prefetched.Author
		n.thumbnail = prefetched.Thumbnail
		n.views = prefetched.Views
		return n, nil
	}

	client, err := newNiconicoClient(url, deps.httpClient(), deps.NiconicoLimiter, deps.niconicoEndpoints())
	if err == nil {
		n.client = client
	}

	slog.Debug("fetching niconico info from the watch page", "url", url)
	if err == nil {
		err = n.initFromSite(ctx)
	}
	if err == nil {
		slog.Info("fetched niconico info from the watch page", "url", url)
		return n, nil
	}

	slog.Warn("niconico watch page failed, falling back to yt-dlp", "url", url, "error", err)
	n.useFallback = true
	if ferr := n.initFromExtractor(ctx); ferr != nil {
		return nil, fmt.Errorf("failed to fetch niconico info: %w", errors.Join(err, ferr))
	}
	return n, nil
}

func (n *Niconico) initFromSite(ctx context.Context) error {
	info, err := n.client.getInfo(ctx)
	if err != nil {
		return err
	}
	video := info.Data.Response.Video
	n.title = video.Title
	n.description = HTMLToText(video.Description)
	n.lengthSeconds = video.Duration
	n.author = info.Data.Response.Owner.Nickname
	n.thumbnail = video.Thumbnail.URL
	n.views = video.Count.View
	return nil
}

func (n *Niconico) initFromExtractor(ctx context.Context) error {
	if n.extractor == nil {
		return errors.New("no fallback extractor configured")
	}
	info, err := n.extractor.Info(ctx, n.url)
	if err != nil {
		return err
	}
	n.title = info.Title
	n.description = info.Description
	n.lengthSeconds = int(info.Duration)
	n.thumbnail = info.Thumbnail
	n.author = info.Uploader
	n.views = info.ViewCount
	return nil
}

// IsFallbacked reports whether the source has switched to yt-dlp.
func (n *Niconico) IsFallbacked() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.useFallback
}

func (n *Niconico) activateFallback() {
	n.mu.Lock()
	n.useFallback = true
	n.mu.Unlock()
}

func (n *Niconico) Fetch(ctx context.Context) (StreamInfo, error) {
	if n.IsFallbacked() {
		return n.fetchFallback(ctx)
	}

	if n.client == nil {
		slog.Warn("niconico client not available, forcing fallback for fetch", "url", n.url)
		n.activateFallback()
		return n.fetchFallback(ctx)
	}

	slog.Debug("fetching niconico stream from the access rights api", "url", n.url)
	contentURL, cookie, err := n.client.fetch(ctx)
	if err != nil {
		slog.Warn("niconico stream fetch failed, activating fallback", "url", n.url, "error", err)
		n.activateFallback()
		return n.fetchFallback(ctx)
	}

	return StreamInfo{
		Type:   StreamURL,
		URL:    contentURL,
		Format: "m3u8",
		Cookie: cookie,
	}, nil
}

func (n *Niconico) fetchFallback(ctx context.Context) (StreamInfo, error) {
	if n.extractor == nil {
		return StreamInfo{}, errors.New("no fallback extractor configured")
	}
	slog.Info("fetching niconico stream with yt-dlp", "url", n.url)
	stream, err := n.extractor.Stream(ctx, n.url)
	if err != nil {
		return StreamInfo{}, err
	}
	return StreamInfo{
		Type:   StreamReadable,
		Stream: stream,
		Format: "unknown",
	}, nil
}

func (n *Niconico) Kind() Kind     { return KindNiconico }
func (n *Niconico) Seekable() bool { return false }
func (n *Niconico) Author() string { return n.author }
func (n *Niconico) Views() int     { return n.views }

func (n *Niconico) Fields(verbose bool) []*discordgo.MessageEmbedField {
	return uploaderFields(n.author, n.views, n.description, verbose)
}

func (n *Niconico) NowPlayingExtra() string {
	return "Uploader: " + n.author
}

func (n *Niconico) Export() Exported {
	return Exported{
		Kind:        KindNiconico,
		URL:         n.url,
		Title:       n.title,
		Description: n.description,
		Author:      n.author,
		Thumbnail:   n.thumbnail,
		Length:      n.lengthSeconds,
		Views:       n.views,
	}
}
