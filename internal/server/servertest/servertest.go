// Package servertest provides in-memory collaborators for testing code that
// drives a server.Server.
package servertest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-on/internal/audiosource"
	"github.com/glizzus/sound-on/internal/chat"
	"github.com/glizzus/sound-on/internal/opus"
	"github.com/glizzus/sound-on/internal/player"
	"github.com/glizzus/sound-on/internal/server"
	"github.com/glizzus/sound-on/internal/voice"
)

// Message is a chat.CommandMessage that records what was sent.
type Message struct {
	Guild      string
	Channel    string
	Author     *discordgo.Member
	Files      []*discordgo.MessageAttachment
	Referenced *discordgo.Message

	mu      sync.Mutex
	Replies []*discordgo.MessageSend
	Sent    []*discordgo.MessageSend
	Deleted []string
}

var _ chat.CommandMessage = (*Message)(nil)

// NewMessage creates a message by user u1 in channel c1 of guild g1.
func NewMessage() *Message {
	return &Message{
		Guild:   "g1",
		Channel: "c1",
		Author:  &discordgo.Member{User: &discordgo.User{ID: "u1", Username: "listener"}},
	}
}

func (m *Message) GuildID() string                             { return m.Guild }
func (m *Message) ChannelID() string                           { return m.Channel }
func (m *Message) Member() *discordgo.Member                   { return m.Author }
func (m *Message) Attachments() []*discordgo.MessageAttachment { return m.Files }
func (m *Message) ReferencedMessage() *discordgo.Message       { return m.Referenced }

func (m *Message) Reply(data *discordgo.MessageSend) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Replies = append(m.Replies, data)
	return &discordgo.Message{ID: fmt.Sprintf("reply-%d", len(m.Replies)), ChannelID: m.Channel}, nil
}

func (m *Message) Send(data *discordgo.MessageSend) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, data)
	return &discordgo.Message{ID: fmt.Sprintf("sent-%d", len(m.Sent)), ChannelID: m.Channel}, nil
}

func (m *Message) Delete(message *discordgo.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, message.ID)
	return nil
}

// ReplyContents lists the text of every reply.
func (m *Message) ReplyContents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, r := range m.Replies {
		out = append(out, r.Content)
	}
	return out
}

// Resolver resolves every url to an attachment source, unless it is listed in Fail.
type Resolver struct {
	mu       sync.Mutex
	Fail     map[string]bool
	Kinds    map[string]audiosource.Kind
	Resolved []string
}

var _ server.Resolver = (*Resolver)(nil)

func (r *Resolver) Resolve(_ context.Context, url string) (audiosource.AudioSource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Resolved = append(r.Resolved, url)
	if r.Fail[url] {
		return nil, errors.New("unresolvable")
	}
	return &Source{Attachment: audiosource.NewAttachment(url, url, 60), kind: r.Kinds[url]}, nil
}

func (r *Resolver) Restore(_ context.Context, exported audiosource.Exported) (audiosource.AudioSource, error) {
	return &Source{Attachment: audiosource.NewAttachment(exported.URL, exported.Title, exported.Length), kind: exported.Kind}, nil
}

// ResolvedURLs returns a copy of every url passed to Resolve.
func (r *Resolver) ResolvedURLs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.Resolved...)
}

// Source is an attachment that can pretend to be of another kind.
type Source struct {
	*audiosource.Attachment
	kind audiosource.Kind
}

func (s *Source) Kind() audiosource.Kind {
	if s.kind != "" {
		return s.kind
	}
	return s.Attachment.Kind()
}

// Joiner pretends every member is in voice channel v1 unless listed in Absent.
type Joiner struct {
	mu      sync.Mutex
	Absent  map[string]bool
	FailErr error
	Joins   int
	Conn    *Conn
}

var _ server.VoiceJoiner = (*Joiner)(nil)

func (j *Joiner) UserChannel(_, userID string) (string, error) {
	if j.Absent[userID] {
		return "", voice.ErrNotInVoiceChannel
	}
	return "v1", nil
}

func (j *Joiner) Join(_ context.Context, _, channelID string) (player.Connection, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Joins++
	if j.FailErr != nil {
		return nil, j.FailErr
	}
	j.Conn = NewConn(channelID)
	return j.Conn, nil
}

// Conn is a voice connection that swallows frames.
type Conn struct {
	channelID string
	send      chan []byte
}

func NewConn(channelID string) *Conn {
	c := &Conn{channelID: channelID, send: make(chan []byte)}
	go func() {
		for range c.send {
		}
	}()
	return c
}

func (c *Conn) ChannelID() string   { return c.channelID }
func (c *Conn) Speaking(bool) error { return nil }
func (c *Conn) Send() chan<- []byte { return c.send }
func (c *Conn) Disconnect() error   { return nil }

// Messenger records announcements.
type Messenger struct {
	mu   sync.Mutex
	Sent []*discordgo.MessageSend
}

func (m *Messenger) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, data)
	return &discordgo.Message{ID: "announcement", ChannelID: channelID}, nil
}

// Messages returns a copy of the recorded announcements.
func (m *Messenger) Messages() []*discordgo.MessageSend {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*discordgo.MessageSend(nil), m.Sent...)
}

// BlockingEncoder produces tracks that play until Finish is called.
type BlockingEncoder struct {
	mu      sync.Mutex
	writers []*io.PipeWriter
}

func (e *BlockingEncoder) Encode(_ context.Context, _ opus.Input) (io.ReadCloser, error) {
	pr, pw := io.Pipe()
	e.mu.Lock()
	e.writers = append(e.writers, pw)
	e.mu.Unlock()
	return pr, nil
}

// Finish ends the most recently started track.
func (e *BlockingEncoder) Finish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n := len(e.writers); n > 0 {
		_ = e.writers[n-1].Close()
	}
}

// Started is the number of tracks encoded so far.
func (e *BlockingEncoder) Started() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.writers)
}

// ShortEncoder produces tracks of a single silent frame.
func ShortEncoder(_ context.Context, _ opus.Input) (io.ReadCloser, error) {
	var buf bytes.Buffer
	_ = opus.WriteFrame(&buf, []byte{0xf8, 0xff, 0xfe})
	return io.NopCloser(&buf), nil
}

// Related always suggests URL.
type Related struct {
	URL      string
	Err      error
	mu       sync.Mutex
	Excluded [][]string
}

func (r *Related) Find(_ context.Context, _ audiosource.AudioSource, exclude []string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Excluded = append(r.Excluded, exclude)
	return r.URL, r.Err
}
