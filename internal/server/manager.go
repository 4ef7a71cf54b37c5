package server

import (
	"sync"
)

// Manager owns one Server per guild.
type Manager struct {
	deps Deps

	mu      sync.Mutex
	servers map[string]*Server
}

func NewManager(deps Deps) *Manager {
	return &Manager{deps: deps, servers: make(map[string]*Server)}
}

// Get returns the server of guildID, creating it on first use.
func (m *Manager) Get(guildID string) *Server {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.servers[guildID]
	if !ok {
		s = New(guildID, m.deps)
		m.servers[guildID] = s
	}
	return s
}

// Lookup returns the server of guildID if it exists.
func (m *Manager) Lookup(guildID string) (*Server, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.servers[guildID]
	return s, ok
}

func (m *Manager) All() []*Server {
	m.mu.Lock()
	defer m.mu.Unlock()

	servers := make([]*Server, 0, len(m.servers))
	for _, s := range m.servers {
		servers = append(servers, s)
	}
	return servers
}
