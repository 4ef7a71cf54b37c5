package audiosource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/kkdai/youtube/v2"
)

var youtubeHosts = []string{
	"youtube.com",
	"www.youtube.com",
	"m.youtube.com",
	"music.youtube.com",
	"youtu.be",
}

// ValidateYouTubeURL reports whether rawURL points at a YouTube video.
func ValidateYouTubeURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if !slices.Contains(youtubeHosts, host) {
		return false
	}
	if host == "youtu.be" {
		return strings.Trim(u.Path, "/") != ""
	}
	return (u.Path == "/watch" && u.Query().Get("v") != "") ||
		strings.HasPrefix(u.Path, "/shorts/") ||
		strings.HasPrefix(u.Path, "/live/")
}

// YouTube is a YouTube video read through the innertube client, with yt-dlp as fallback.
type YouTube struct {
	base
	author    string
	views     int
	client    *youtube.Client
	video     *youtube.Video
	extractor Extractor

	mu          sync.Mutex
	useFallback bool
}

var _ AudioSource = (*YouTube)(nil)

func NewYouTube(ctx context.Context, rawURL string, prefetched *Exported, deps Deps) (*YouTube, error) {
	y := &YouTube{
		base:      base{url: rawURL},
		client:    deps.YouTube,
		extractor: deps.Extractor,
	}

	if prefetched != nil {
		y.title = prefetched.Title
		y.description = prefetched.Description
		y.lengthSeconds = prefetched.Length
		y.author = prefetched.Author
		y.thumbnail = prefetched.Thumbnail
		y.views = prefetched.Views
		return y, nil
	}

	err := y.initFromClient(ctx)
	if err == nil {
		return y, nil
	}

	slog.Warn("youtube client failed, falling back to yt-dlp", "url", rawURL, "error", err)
	y.useFallback = true
	if y.extractor == nil {
		return nil, fmt.Errorf("failed to fetch youtube info: %w", err)
	}
	info, ferr := y.extractor.Info(ctx, rawURL)
	if ferr != nil {
		return nil, fmt.Errorf("failed to fetch youtube info: %w", errors.Join(err, ferr))
	}
	y.title = info.Title
	y.description = info.Description
	y.lengthSeconds = int(info.Duration)
	y.thumbnail = info.Thumbnail
	y.author = info.Uploader
	y.views = info.ViewCount
	return y, nil
}

func (y *YouTube) initFromClient(ctx context.Context) error {
	if y.client == nil {
		return errors.New("no youtube client configured")
	}
	video, err := y.client.GetVideoContext(ctx, y.url)
	if err != nil {
		return err
	}
	y.video = video
	y.title = video.Title
	y.description = video.Description
	y.lengthSeconds = int(video.Duration.Seconds())
	y.author = video.Author
	y.views = video.Views
	if n := len(video.Thumbnails); n > 0 {
		y.thumbnail = video.Thumbnails[n-1].URL
	}
	return nil
}

func (y *YouTube) IsFallbacked() bool {
	y.mu.Lock()
	defer y.mu.Unlock()
	return y.useFallback
}

func (y *YouTube) Fetch(ctx context.Context) (StreamInfo, error) {
	if !y.IsFallbacked() {
		info, err := y.fetchFromClient(ctx)
		if err == nil {
			return info, nil
		}
		slog.Warn("youtube stream fetch failed, activating fallback", "url", y.url, "error", err)
		y.mu.Lock()
		y.useFallback = true
		y.mu.Unlock()
	}

	if y.extractor == nil {
		return StreamInfo{}, errors.New("no fallback extractor configured")
	}
	stream, err := y.extractor.Stream(ctx, y.url)
	if err != nil {
		return StreamInfo{}, err
	}
	return StreamInfo{Type: StreamReadable, Stream: stream, Format: "unknown"}, nil
}

func (y *YouTube) fetchFromClient(ctx context.Context) (StreamInfo, error) {
	if y.client == nil {
		return StreamInfo{}, errors.New("no youtube client configured")
	}
	if y.video == nil {
		video, err := y.client.GetVideoContext(ctx, y.url)
		if err != nil {
			return StreamInfo{}, err
		}
		y.video = video
	}

	if y.video.HLSManifestURL != "" {
		return StreamInfo{Type: StreamURL, URL: y.video.HLSManifestURL, Format: "m3u8"}, nil
	}

	format, ok := bestAudioFormat(y.video.Formats)
	if !ok {
		return StreamInfo{}, errors.New("no audio format available")
	}
	streamURL, err := y.client.GetStreamURLContext(ctx, y.video, format)
	if err != nil {
		return StreamInfo{}, err
	}
	return StreamInfo{Type: StreamURL, URL: streamURL, Format: "unknown"}, nil
}

// bestAudioFormat prefers audio only formats and picks the highest bitrate.
func bestAudioFormat(formats youtube.FormatList) (*youtube.Format, bool) {
	candidates := formats.Type("audio")
	if len(candidates) == 0 {
		candidates = formats.WithAudioChannels()
	}
	if len(candidates) == 0 {
		return nil, false
	}
	candidates = slices.Clone(candidates)
	slices.SortStableFunc(candidates, func(a, b youtube.Format) int {
		return b.Bitrate - a.Bitrate
	})
	return &candidates[0], true
}

func (y *YouTube) Kind() Kind     { return KindYouTube }
func (y *YouTube) Seekable() bool { return false }
func (y *YouTube) Author() string { return y.author }

func (y *YouTube) Fields(verbose bool) []*discordgo.MessageEmbedField {
	return uploaderFields(y.author, y.views, y.description, verbose)
}

func (y *YouTube) NowPlayingExtra() string {
	return "Channel: " + y.author
}

func (y *YouTube) Export() Exported {
	return Exported{
		Kind:        KindYouTube,
		URL:         y.url,
		Title:       y.title,
		Description: y.description,
		Author:      y.author,
		Thumbnail:   y.thumbnail,
		Length:      y.lengthSeconds,
		Views:       y.views,
	}
}
