// Package server holds the playback state of each guild and the operations
// commands run against it.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-on/internal/audiosource"
	"github.com/glizzus/sound-on/internal/chat"
	"github.com/glizzus/sound-on/internal/generator"
	"github.com/glizzus/sound-on/internal/player"
	"github.com/glizzus/sound-on/internal/presenters"
	"github.com/glizzus/sound-on/internal/queue"
	"github.com/glizzus/sound-on/internal/schedule"
	"github.com/glizzus/sound-on/internal/voice"
)

// Resolver turns urls and attachments into sources.
type Resolver interface {
	Resolve(ctx context.Context, url string) (audiosource.AudioSource, error)
	Restore(ctx context.Context, exported audiosource.Exported) (audiosource.AudioSource, error)
}

// RelatedFinder picks a track to follow a finished one.
type RelatedFinder interface {
	Find(ctx context.Context, source audiosource.AudioSource, exclude []string) (string, error)
}

// VoiceJoiner connects to voice channels.
type VoiceJoiner interface {
	UserChannel(guildID, userID string) (string, error)
	Join(ctx context.Context, guildID, channelID string) (player.Connection, error)
}

// Messenger posts to text channels.
type Messenger interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Deps are shared by every server.
type Deps struct {
	Resolver  Resolver
	Related   RelatedFinder
	Joiner    VoiceJoiner
	Messenger Messenger
	Encoder   player.Encoder
	// Queue item ids. Nil uses random UUIDs.
	IDs generator.Generator[string]
	// Prefix is the default command prefix.
	Prefix string
	// RelatedTimeout bounds the search for a related track.
	RelatedTimeout time.Duration
	// IdleTimeout is how long the bot stays in voice after the queue ends. Zero stays forever.
	IdleTimeout time.Duration
}

// Status is the persisted part of a server's state.
type Status struct {
	GuildID        string
	BoundChannelID string
	Prefix         string
	AddRelated     bool
	Loop           bool
	QueueLoop      bool
}

type Server struct {
	GuildID string

	deps   Deps
	queue  *queue.Queue
	player *player.Player

	mu             sync.Mutex
	boundChannelID string
	prefix         string
	addRelated     bool
}

func New(guildID string, deps Deps) *Server {
	if deps.RelatedTimeout <= 0 {
		deps.RelatedTimeout = 30 * time.Second
	}
	s := &Server{
		GuildID: guildID,
		deps:    deps,
		queue:   queue.New(deps.IDs),
		player:  player.New(deps.Encoder),
		prefix:  deps.Prefix,
	}
	s.player.OnEnd(s.onTrackEnd)
	return s
}

func (s *Server) Queue() *queue.Queue    { return s.queue }
func (s *Server) Player() *player.Player { return s.player }

func (s *Server) Prefix() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefix
}

func (s *Server) SetPrefix(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefix = prefix
}

func (s *Server) BoundChannelID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundChannelID
}

func (s *Server) AddRelated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addRelated
}

func (s *Server) SetAddRelated(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addRelated = on
}

// ToggleAddRelated flips related-track autoplay and returns the new setting.
func (s *Server) ToggleAddRelated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addRelated = !s.addRelated
	return s.addRelated
}

func (s *Server) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		GuildID:        s.GuildID,
		BoundChannelID: s.boundChannelID,
		Prefix:         s.prefix,
		AddRelated:     s.addRelated,
		Loop:           s.queue.Loop(),
		QueueLoop:      s.queue.QueueLoop(),
	}
}

// ApplyStatus restores persisted settings.
func (s *Server) ApplyStatus(status Status) {
	s.mu.Lock()
	s.boundChannelID = status.BoundChannelID
	if status.Prefix != "" {
		s.prefix = status.Prefix
	}
	s.addRelated = status.AddRelated
	s.mu.Unlock()

	s.queue.SetLoop(status.Loop)
	s.queue.SetQueueLoop(status.QueueLoop)
}

// UpdateBoundChannel moves announcements to the channel of msg, unless the bot
// is busy in a voice channel the author is not part of.
func (s *Server) UpdateBoundChannel(msg chat.CommandMessage) {
	if s.player.IsConnecting() {
		conn := s.player.Connection()
		channelID, err := s.deps.Joiner.UserChannel(s.GuildID, chat.UserID(msg))
		if conn == nil || err != nil || channelID != conn.ChannelID() {
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.boundChannelID = msg.ChannelID()
}

// JoinVoiceChannel connects to the voice channel of the author of msg.
// It reports whether the bot is connected afterwards.
func (s *Server) JoinVoiceChannel(ctx context.Context, msg chat.CommandMessage, reply, replyOnFail bool) bool {
	if conn := s.player.Connection(); conn != nil {
		if reply {
			s.reply(msg, ":information_source: Already connected to a voice channel.")
		}
		return true
	}

	channelID, err := s.deps.Joiner.UserChannel(s.GuildID, chat.UserID(msg))
	if err != nil {
		if replyOnFail {
			s.reply(msg, ":warning: Join a voice channel first.")
		}
		if !errors.Is(err, voice.ErrNotInVoiceChannel) {
			slog.Error("failed to look up voice channel", "guildID", s.GuildID, "error", err)
		}
		return false
	}

	s.player.SetConnecting(true)
	conn, err := s.deps.Joiner.Join(ctx, s.GuildID, channelID)
	if err != nil {
		s.player.SetConnecting(false)
		slog.Error("failed to join voice channel", "guildID", s.GuildID, "channelID", channelID, "error", err)
		if replyOnFail {
			s.reply(msg, ":sob: Failed to join the voice channel.")
		}
		return false
	}
	s.player.SetConnection(conn)

	if reply {
		s.reply(msg, fmt.Sprintf(":postbox: Connected to <#%s>.", channelID))
	}
	return true
}

// PlayFromURL queues every url in urls. With first set the first track goes to
// the front of the queue and starts playing right away. Failures are reported
// to msg, and the number of queued tracks is returned.
func (s *Server) PlayFromURL(ctx context.Context, msg chat.CommandMessage, urls []string, first bool) int {
	added := 0
	for i, url := range urls {
		url = strings.Trim(strings.TrimSpace(url), "<>")
		if url == "" {
			continue
		}
		front := first && i == 0

		source, err := s.deps.Resolver.Resolve(ctx, url)
		if err != nil {
			slog.Warn("failed to resolve track", "guildID", s.GuildID, "url", url, "error", err)
			s.reply(msg, fmt.Sprintf(":cry: Could not add <%s>.", url))
			continue
		}

		item, position, err := s.enqueue(source, chat.DisplayName(msg), front)
		if err != nil {
			slog.Error("failed to queue track", "guildID", s.GuildID, "url", url, "error", err)
			s.reply(msg, fmt.Sprintf(":cry: Could not add <%s>.", url))
			continue
		}
		added++

		if front {
			if err := s.Play(ctx); err != nil {
				slog.Error("failed to start playback", "guildID", s.GuildID, "error", err)
				s.reply(msg, ":tired_face: Failed to start playback.")
			}
			continue
		}
		if _, err := msg.Reply(&discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{presenters.SongAdded(item, position)},
		}); err != nil {
			slog.Warn("failed to announce queued track", "guildID", s.GuildID, "error", err)
		}
	}
	return added
}

func (s *Server) enqueue(source audiosource.AudioSource, addedBy string, front bool) (queue.Item, int, error) {
	if front && !s.player.IsPlaying() {
		item, err := s.queue.Insert(source, addedBy, 0)
		return item, 0, err
	}
	item, err := s.queue.Add(source, addedBy, front)
	if err != nil {
		return queue.Item{}, 0, err
	}
	if front {
		return item, 1, nil
	}
	return item, s.queue.Len() - 1, nil
}

// Play starts the head of the queue and announces it.
func (s *Server) Play(ctx context.Context) error {
	return s.play(ctx, false)
}

func (s *Server) play(ctx context.Context, auto bool) error {
	head, err := s.queue.Current()
	if err != nil {
		return err
	}
	if err := s.player.Play(ctx, head.Source); err != nil {
		slog.Error("failed to play track", "guildID", s.GuildID, "url", head.Source.URL(), "error", err)
		s.announce(&discordgo.MessageSend{
			Content: fmt.Sprintf(":tired_face: Could not play %s.", presenters.TrackLink(head.Source)),
		})
		return err
	}
	s.announce(&discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{presenters.NowPlaying(head, 0, auto)},
	})
	return nil
}

// Skip ends the current track; the next one starts as if it had finished.
func (s *Server) Skip() error {
	return s.player.Skip()
}

// Leave stops playback, leaves the voice channel and empties the queue.
func (s *Server) Leave() error {
	err := s.player.Disconnect()
	s.queue.Clear()
	return err
}

func (s *Server) onTrackEnd(finished audiosource.AudioSource, err error) {
	ctx := context.Background()
	if err != nil {
		s.announce(&discordgo.MessageSend{
			Content: fmt.Sprintf(":tired_face: Playback of %s stopped: %v", presenters.TrackLink(finished), err),
		})
	}

	if s.AddRelated() && finished.Kind() == audiosource.KindYouTube && !s.queue.Looping() {
		s.addRelatedTrack(ctx, finished)
	}

	if _, err := s.queue.Next(); errors.Is(err, queue.ErrQueueEmpty) {
		s.announce(&discordgo.MessageSend{Content: ":upside_down: Reached the end of the queue."})
		s.scheduleIdleLeave(ctx)
		return
	}
	if s.player.Connection() == nil {
		return
	}
	_ = s.play(ctx, true)
}

func (s *Server) scheduleIdleLeave(ctx context.Context) {
	if s.deps.IdleTimeout <= 0 {
		return
	}
	schedule.RunAt(ctx, time.Now().Add(s.deps.IdleTimeout), func(context.Context) {
		p := s.player
		if p.Connection() == nil || p.IsPlaying() || p.Preparing() || s.queue.Len() > 0 {
			return
		}
		if err := p.Disconnect(); err != nil {
			slog.Warn("failed to leave idle voice channel", "guildID", s.GuildID, "error", err)
			return
		}
		slog.Info("left idle voice channel", "guildID", s.GuildID)
		s.announce(&discordgo.MessageSend{Content: ":wave: Left the voice channel after being idle."})
	})
}

func (s *Server) addRelatedTrack(ctx context.Context, finished audiosource.AudioSource) {
	if s.deps.Related == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.deps.RelatedTimeout)
	defer cancel()

	url, err := s.deps.Related.Find(ctx, finished, s.queue.URLs())
	if err != nil {
		slog.Warn("failed to find a related track", "guildID", s.GuildID, "url", finished.URL(), "error", err)
		return
	}
	source, err := s.deps.Resolver.Resolve(ctx, url)
	if err != nil {
		slog.Warn("failed to resolve related track", "guildID", s.GuildID, "url", url, "error", err)
		return
	}
	if _, err := s.queue.Add(source, "related", false); err != nil {
		slog.Warn("failed to queue related track", "guildID", s.GuildID, "error", err)
		return
	}
	slog.Info("queued related track", "guildID", s.GuildID, "url", url)
}

// Restore refills the queue from a backup.
func (s *Server) Restore(ctx context.Context, items []queue.ExportedItem) error {
	restored := make([]queue.Item, 0, len(items))
	for _, exported := range items {
		source, err := s.deps.Resolver.Restore(ctx, exported.Source)
		if err != nil {
			slog.Warn("failed to restore track", "guildID", s.GuildID, "url", exported.Source.URL, "error", err)
			continue
		}
		restored = append(restored, queue.Item{ID: exported.ID, Source: source, AddedBy: exported.AddedBy})
	}
	s.queue.Replace(restored)
	return nil
}

func (s *Server) reply(msg chat.CommandMessage, content string) {
	if err := chat.ReplyText(msg, content); err != nil {
		slog.Warn("failed to reply", "guildID", s.GuildID, "error", err)
	}
}

func (s *Server) announce(data *discordgo.MessageSend) {
	channelID := s.BoundChannelID()
	if channelID == "" || s.deps.Messenger == nil {
		return
	}
	if _, err := s.deps.Messenger.ChannelMessageSendComplex(channelID, data); err != nil {
		slog.Warn("failed to announce", "guildID", s.GuildID, "channelID", channelID, "error", err)
	}
}
