package player_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/glizzus/sound-on/internal/audiosource"
	"github.com/glizzus/sound-on/internal/opus"
	"github.com/glizzus/sound-on/internal/player"
)

type fakeConn struct {
	send         chan []byte
	mu           sync.Mutex
	disconnected bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{send: make(chan []byte, 64)}
}

func (c *fakeConn) ChannelID() string   { return "voice-1" }
func (c *fakeConn) Speaking(bool) error { return nil }
func (c *fakeConn) Send() chan<- []byte { return c.send }
func (c *fakeConn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	return nil
}

func framesEncoder(t *testing.T, n int) player.Encoder {
	t.Helper()
	return func(_ context.Context, _ opus.Input) (io.ReadCloser, error) {
		var buf bytes.Buffer
		for i := range n {
			if err := opus.WriteFrame(&buf, []byte{byte(i)}); err != nil {
				t.Fatalf("WriteFrame() error = %v", err)
			}
		}
		return io.NopCloser(&buf), nil
	}
}

// pipeEncoder keeps the track open until the test closes the writer.
func pipeEncoder(w **io.PipeWriter) player.Encoder {
	return func(_ context.Context, _ opus.Input) (io.ReadCloser, error) {
		pr, pw := io.Pipe()
		*w = pw
		return pr, nil
	}
}

type endRecorder struct {
	ended chan error
}

func newEndRecorder(p *player.Player) *endRecorder {
	r := &endRecorder{ended: make(chan error, 4)}
	p.OnEnd(func(_ audiosource.AudioSource, err error) {
		r.ended <- err
	})
	return r
}

func (r *endRecorder) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-r.ended:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the track to end")
		return nil
	}
}

func track() audiosource.AudioSource {
	return audiosource.NewAttachment("https://example.com/a.mp3", "", 0)
}

func TestPlayRequiresConnection(t *testing.T) {
	p := player.New(framesEncoder(t, 1))
	if err := p.Play(t.Context(), track()); !errors.Is(err, player.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestPlayStreamsToTheEnd(t *testing.T) {
	conn := newFakeConn()
	p := player.New(framesEncoder(t, 3))
	p.SetConnection(conn)
	ended := newEndRecorder(p)

	if err := p.Play(t.Context(), track()); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if err := ended.wait(t); err != nil {
		t.Errorf("expected a clean end, got %v", err)
	}

	if len(conn.send) != 3 {
		t.Errorf("expected 3 frames, got %d", len(conn.send))
	}
	if p.IsPlaying() {
		t.Error("expected the player to be idle")
	}
}

func TestPauseAndResume(t *testing.T) {
	var w *io.PipeWriter
	p := player.New(pipeEncoder(&w))
	p.SetConnection(newFakeConn())
	ended := newEndRecorder(p)

	if p.Pause() {
		t.Error("Pause() with nothing playing should report false")
	}
	if err := p.Play(t.Context(), track()); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	if !p.Pause() {
		t.Fatal("Pause() should report true")
	}
	if !p.IsPaused() || !p.IsPlaying() {
		t.Error("a paused player is still playing")
	}
	if !p.Resume() {
		t.Fatal("Resume() should report true")
	}
	if p.IsPaused() {
		t.Error("expected the player to be resumed")
	}

	_ = w.Close()
	if err := ended.wait(t); err != nil {
		t.Errorf("expected a clean end, got %v", err)
	}
}

func TestSkipEndsTheTrack(t *testing.T) {
	var w *io.PipeWriter
	p := player.New(pipeEncoder(&w))
	p.SetConnection(newFakeConn())
	ended := newEndRecorder(p)

	if err := p.Skip(); !errors.Is(err, player.ErrNotPlaying) {
		t.Errorf("expected ErrNotPlaying, got %v", err)
	}
	if err := p.Play(t.Context(), track()); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	p.Pause()
	if err := p.Skip(); err != nil {
		t.Fatalf("Skip() error = %v", err)
	}
	if err := ended.wait(t); err != nil {
		t.Errorf("a skipped track ends cleanly, got %v", err)
	}
}

func TestStopAndDisconnect(t *testing.T) {
	var w *io.PipeWriter
	conn := newFakeConn()
	p := player.New(pipeEncoder(&w))
	p.SetConnection(conn)
	ended := newEndRecorder(p)

	if err := p.Play(t.Context(), track()); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if err := p.Disconnect(); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}

	select {
	case err := <-ended.ended:
		t.Errorf("a stopped track must not report its end, got %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	if p.IsPlaying() || p.IsConnecting() {
		t.Error("expected an idle, disconnected player")
	}
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if !conn.disconnected {
		t.Error("expected the connection to be closed")
	}
}
