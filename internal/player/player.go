// Package player streams one track at a time into a guild's voice connection.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-on/internal/audiosource"
	"github.com/glizzus/sound-on/internal/opus"
)

var (
	ErrNotConnected = errors.New("not connected to a voice channel")
	ErrNotPlaying   = errors.New("nothing is playing")
	errSkipped      = errors.New("skipped")
)

// Connection is the part of a voice connection the player needs.
type Connection interface {
	ChannelID() string
	Speaking(bool) error
	Send() chan<- []byte
	Disconnect() error
}

type discordConnection struct {
	vc *discordgo.VoiceConnection
}

// FromVoiceConnection adapts a discordgo voice connection.
func FromVoiceConnection(vc *discordgo.VoiceConnection) Connection {
	return &discordConnection{vc: vc}
}

func (c *discordConnection) ChannelID() string      { return c.vc.ChannelID }
func (c *discordConnection) Speaking(on bool) error { return c.vc.Speaking(on) }
func (c *discordConnection) Send() chan<- []byte    { return c.vc.OpusSend }
func (c *discordConnection) Disconnect() error      { return c.vc.Disconnect() }

// Encoder turns a stream into length-prefixed Opus frames.
type Encoder func(ctx context.Context, in opus.Input) (io.ReadCloser, error)

// FFmpegEncoder encodes with opus.Encode.
func FFmpegEncoder(opts opus.EncodeOptions) Encoder {
	return func(ctx context.Context, in opus.Input) (io.ReadCloser, error) {
		return opus.Encode(ctx, in, opts)
	}
}

// EndFunc is called when a track stops on its own or is skipped.
// err is nil when the track played to the end.
type EndFunc func(source audiosource.AudioSource, err error)

type Player struct {
	encode Encoder

	mu         sync.Mutex
	conn       Connection
	connecting bool
	preparing  bool
	current    audiosource.AudioSource
	cancel     context.CancelCauseFunc
	gate       *opus.Gate
	generation int
	onEnd      EndFunc

	startedAt   time.Time
	pausedAt    time.Time
	pausedTotal time.Duration
}

func New(encode Encoder) *Player {
	return &Player{encode: encode}
}

// OnEnd sets the callback for finished tracks.
func (p *Player) OnEnd(fn EndFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onEnd = fn
}

func (p *Player) SetConnection(conn Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conn = conn
	p.connecting = false
}

// SetConnecting marks that a voice connection is being established.
func (p *Player) SetConnecting(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connecting = on
}

// IsConnecting reports whether the player has, or is about to have, a voice connection.
func (p *Player) IsConnecting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn != nil || p.connecting
}

func (p *Player) Connection() Connection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn
}

// IsPlaying is true while a track is streaming, paused or not.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Player) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil && p.gate.Paused()
}

// Preparing is true while the stream of the next track is being fetched.
func (p *Player) Preparing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.preparing
}

func (p *Player) Current() audiosource.AudioSource {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Elapsed is how much of the current track has been played.
func (p *Player) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel == nil {
		return 0
	}
	end := time.Now()
	if p.gate.Paused() {
		end = p.pausedAt
	}
	return end.Sub(p.startedAt) - p.pausedTotal
}

// Play stops whatever is playing and starts source.
// It returns once the stream is open; playback continues in the background.
func (p *Player) Play(ctx context.Context, source audiosource.AudioSource) error {
	p.mu.Lock()
	if p.conn == nil {
		p.mu.Unlock()
		return ErrNotConnected
	}
	p.stopLocked()
	p.preparing = true
	p.generation++
	generation := p.generation
	conn := p.conn
	p.mu.Unlock()

	frames, err := p.open(ctx, source)

	p.mu.Lock()
	p.preparing = false
	if err != nil {
		p.mu.Unlock()
		return err
	}
	if p.generation != generation || p.conn != conn {
		// Stopped while preparing.
		p.mu.Unlock()
		_ = frames.Close()
		return nil
	}

	streamCtx, cancel := context.WithCancelCause(context.Background())
	gate := opus.NewGate()
	p.current = source
	p.cancel = cancel
	p.gate = gate
	p.startedAt = time.Now()
	p.pausedTotal = 0
	p.mu.Unlock()

	slog.Info("starting playback", "title", source.Title(), "url", source.URL(), "channelID", conn.ChannelID())
	go p.stream(streamCtx, generation, conn, source, frames, gate)
	return nil
}

func (p *Player) open(ctx context.Context, source audiosource.AudioSource) (io.ReadCloser, error) {
	info, err := source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stream of %s: %w", source.URL(), err)
	}

	in := opus.Input{URL: info.URL, Cookie: info.Cookie}
	if info.Type == audiosource.StreamReadable {
		in = opus.Input{Reader: info.Stream}
	}

	// The encoder outlives ctx, which only covers preparation.
	frames, err := p.encode(context.WithoutCancel(ctx), in)
	if err != nil {
		if info.Stream != nil {
			_ = info.Stream.Close()
		}
		return nil, fmt.Errorf("failed to start encoder: %w", err)
	}
	if info.Stream == nil {
		return frames, nil
	}
	return &streamCloser{ReadCloser: frames, source: info.Stream}, nil
}

// streamCloser closes the source stream along with the encoder output.
type streamCloser struct {
	io.ReadCloser
	source io.Closer
}

func (s *streamCloser) Close() error {
	return errors.Join(s.ReadCloser.Close(), s.source.Close())
}

type onceCloser struct {
	io.ReadCloser
	once sync.Once
	err  error
}

func (c *onceCloser) Close() error {
	c.once.Do(func() { c.err = c.ReadCloser.Close() })
	return c.err
}

func (p *Player) stream(
	ctx context.Context,
	generation int,
	conn Connection,
	source audiosource.AudioSource,
	frames io.ReadCloser,
	gate *opus.Gate,
) {
	if err := conn.Speaking(true); err != nil {
		slog.Warn("failed to set speaking state", "error", err)
	}

	frames = &onceCloser{ReadCloser: frames}
	// Unblock a pending read when the track is stopped or skipped.
	stop := context.AfterFunc(ctx, func() { _ = frames.Close() })
	err := opus.StreamToVoice(ctx, opus.NewFrameReader(frames), conn.Send(), gate)
	stop()
	if cerr := frames.Close(); cerr != nil {
		slog.Debug("failed to close stream", "url", source.URL(), "error", cerr)
	}

	if serr := conn.Speaking(false); serr != nil {
		slog.Debug("failed to unset speaking state", "error", serr)
	}

	p.mu.Lock()
	if p.generation != generation {
		p.mu.Unlock()
		return
	}
	p.cancel = nil
	p.current = nil
	onEnd := p.onEnd
	p.mu.Unlock()

	if errors.Is(context.Cause(ctx), errSkipped) {
		err = nil
	}
	if err != nil {
		slog.Error("playback failed", "url", source.URL(), "error", err)
	}
	if onEnd != nil {
		onEnd(source, err)
	}
}

// Pause reports false if nothing was playing or it was already paused.
func (p *Player) Pause() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel == nil || !p.gate.Pause() {
		return false
	}
	p.pausedAt = time.Now()
	return true
}

// Resume reports false if nothing was paused.
func (p *Player) Resume() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel == nil || !p.gate.Resume() {
		return false
	}
	p.pausedTotal += time.Since(p.pausedAt)
	return true
}

// Stop ends the current track without calling the end callback.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	p.generation++
	if p.cancel != nil {
		p.cancel(context.Canceled)
		p.cancel = nil
	}
	p.current = nil
	p.preparing = false
}

// Skip ends the current track as if it had finished.
func (p *Player) Skip() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel == nil {
		return ErrNotPlaying
	}
	p.cancel(errSkipped)
	return nil
}

// Disconnect stops playback and leaves the voice channel.
func (p *Player) Disconnect() error {
	p.mu.Lock()
	p.stopLocked()
	conn := p.conn
	p.conn = nil
	p.connecting = false
	p.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}
	return nil
}
