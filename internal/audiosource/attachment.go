package audiosource

import (
	"context"
	"net/url"
	"path"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"
)

var attachmentExtensions = []string{
	".mp3", ".wav", ".ogg", ".opus", ".flac", ".m4a", ".aac", ".webm", ".mp4", ".mov", ".mkv",
}

// IsAttachmentURL reports whether rawURL points directly at an audio or video file.
func IsAttachmentURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() {
		return false
	}
	return slices.Contains(attachmentExtensions, strings.ToLower(path.Ext(u.Path)))
}

// Attachment is a plain media file, usually uploaded to Discord.
type Attachment struct {
	base
}

var _ AudioSource = (*Attachment)(nil)

// NewAttachment never touches the network. title may be empty, in which case the file name is used.
func NewAttachment(rawURL, title string, lengthSeconds int) *Attachment {
	if title == "" {
		title = fileName(rawURL)
	}
	return &Attachment{base: base{url: rawURL, title: title, lengthSeconds: lengthSeconds}}
}

func fileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return rawURL
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}

func (a *Attachment) Fetch(_ context.Context) (StreamInfo, error) {
	return StreamInfo{Type: StreamURL, URL: a.url, Format: "unknown"}, nil
}

func (a *Attachment) Kind() Kind                                 { return KindAttachment }
func (a *Attachment) Seekable() bool                             { return true }
func (a *Attachment) Fields(bool) []*discordgo.MessageEmbedField { return nil }
func (a *Attachment) NowPlayingExtra() string                    { return "" }

func (a *Attachment) Export() Exported {
	return Exported{
		Kind:   KindAttachment,
		URL:    a.url,
		Title:  a.title,
		Length: a.lengthSeconds,
	}
}
