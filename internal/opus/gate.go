package opus

import (
	"context"
	"sync"
)

// Gate holds back a stream while paused.
type Gate struct {
	mu     sync.Mutex
	paused bool
	resume chan struct{}
}

func NewGate() *Gate {
	return &Gate{}
}

// Pause reports false if the gate was already paused.
func (g *Gate) Pause() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.paused {
		return false
	}
	g.paused = true
	g.resume = make(chan struct{})
	return true
}

// Resume reports false if the gate was not paused.
func (g *Gate) Resume() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.paused {
		return false
	}
	g.paused = false
	close(g.resume)
	return true
}

func (g *Gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// Wait blocks while the gate is paused.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	if !g.paused {
		g.mu.Unlock()
		return nil
	}
	resume := g.resume
	g.mu.Unlock()

	select {
	case <-resume:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
