package audiosource

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Generic is any page yt-dlp knows how to extract audio from.
type Generic struct {
	base
	author    string
	extractor Extractor
}

var _ AudioSource = (*Generic)(nil)

func NewGeneric(ctx context.Context, url string, prefetched *Exported, deps Deps) (*Generic, error) {
	g := &Generic{
		base:      base{url: url},
		extractor: deps.Extractor,
	}

	if prefetched != nil {
		g.title = prefetched.Title
		g.description = prefetched.Description
		g.lengthSeconds = prefetched.Length
		g.author = prefetched.Author
		g.thumbnail = prefetched.Thumbnail
		return g, nil
	}

	if g.extractor == nil {
		return nil, errors.New("no extractor configured")
	}
	info, err := g.extractor.Info(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch info: %w", err)
	}
	g.title = info.Title
	if g.title == "" {
		g.title = url
	}
	g.description = info.Description
	g.lengthSeconds = int(info.Duration)
	g.thumbnail = info.Thumbnail
	g.author = info.Uploader
	return g, nil
}

func (g *Generic) Fetch(ctx context.Context) (StreamInfo, error) {
	if g.extractor == nil {
		return StreamInfo{}, errors.New("no extractor configured")
	}
	stream, err := g.extractor.Stream(ctx, g.url)
	if err != nil {
		return StreamInfo{}, err
	}
	return StreamInfo{Type: StreamReadable, Stream: stream, Format: "unknown"}, nil
}

func (g *Generic) Kind() Kind     { return KindGeneric }
func (g *Generic) Seekable() bool { return false }

func (g *Generic) Fields(verbose bool) []*discordgo.MessageEmbedField {
	if g.description == "" {
		return nil
	}
	return []*discordgo.MessageEmbedField{{
		Name:  ":asterisk: Summary",
		Value: fieldValue(Summarize(g.description, verbose)),
	}}
}

func (g *Generic) NowPlayingExtra() string {
	if g.author == "" {
		return ""
	}
	return "Uploader: " + g.author
}

func (g *Generic) Export() Exported {
	return Exported{
		Kind:        KindGeneric,
		URL:         g.url,
		Title:       g.title,
		Description: g.description,
		Author:      g.author,
		Thumbnail:   g.thumbnail,
		Length:      g.lengthSeconds,
	}
}
