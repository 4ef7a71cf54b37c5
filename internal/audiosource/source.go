package audiosource

import (
	"context"
	"io"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

type Kind string

const (
	KindNiconico   Kind = "niconico"
	KindYouTube    Kind = "youtube"
	KindGeneric    Kind = "generic"
	KindAttachment Kind = "attachment"
)

type StreamType int

const (
	// StreamURL streams are opened by the encoder itself.
	StreamURL StreamType = iota
	// StreamReadable streams are already open and must be closed by the consumer.
	StreamReadable
)

// StreamInfo describes where the audio of a track can be read from.
type StreamInfo struct {
	Type StreamType
	// URL is set for StreamURL streams.
	URL string
	// Format is a hint for the decoder, such as "m3u8", or "unknown".
	Format string
	// Cookie is sent as the Cookie header when opening URL.
	Cookie string
	// Stream is set for StreamReadable streams.
	Stream io.ReadCloser
}

// Exported is the serializable form of a track.
// It is what the cache and queue backups store, and what sources accept as prefetched data.
type Exported struct {
	Kind        Kind   `json:"kind"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Length      int    `json:"length"`
	Views       int    `json:"views,omitempty"`
}

type AudioSource interface {
	Kind() Kind
	URL() string
	Title() string
	// LengthSeconds is 0 when the length is unknown.
	LengthSeconds() int
	Thumbnail() string
	Seekable() bool
	Fetch(ctx context.Context) (StreamInfo, error)
	// Fields renders source specific details for embeds.
	Fields(verbose bool) []*discordgo.MessageEmbedField
	// NowPlayingExtra is a one line addition to the now playing message.
	NowPlayingExtra() string
	Export() Exported
}

// HTTPClient is an abstraction for making HTTP requests.
// The implementation is usually Go's stdlib http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// base holds the fields every source has.
type base struct {
	url           string
	title         string
	description   string
	lengthSeconds int
	thumbnail     string
}

func (b *base) URL() string        { return b.url }
func (b *base) Title() string      { return b.title }
func (b *base) LengthSeconds() int { return b.lengthSeconds }
func (b *base) Thumbnail() string  { return b.thumbnail }
