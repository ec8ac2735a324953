package manager

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fastllamad/internal/command"
	"fastllamad/internal/native"
	"fastllamad/internal/registry"
	"fastllamad/internal/store"
	"fastllamad/pkg/types"
)

var now = time.Now

// Manager owns the open sessions of the process. Each session has its own
// engine context; the saved-session store is shared.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	draining bool
	err      string
	total    uint64

	engine         native.Engine
	store          *store.Store
	modelsDir      string
	workspaceDir   string
	engineDefaults native.EngineConfig
	params         command.Params
	maxSessions    int
	log            zerolog.Logger
	pub            EventPublisher
	startTime      time.Time
}

// SetEventPublisher sets the publisher for lifecycle events.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p == nil {
		p = noopPublisher{}
	}
	m.pub = p
}

func (m *Manager) publish(e Event) {
	m.mu.RLock()
	p := m.pub
	m.mu.RUnlock()
	p.Publish(e)
}

func (m *Manager) setErr(err error) {
	m.mu.Lock()
	m.err = err.Error()
	m.mu.Unlock()
}

// Ready reports whether new sessions can be served.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.draining && m.engine != nil
}

// Open starts a session delivering to t. The caller must Close it.
func (m *Manager) Open(t Transport) (*Session, error) {
	m.mu.Lock()
	if m.draining {
		m.mu.Unlock()
		return nil, drainingError{}
	}
	if len(m.sessions) >= m.maxSessions {
		m.mu.Unlock()
		sessionRejections.Inc()
		return nil, tooBusyError{limit: m.maxSessions}
	}
	s := newSession(m, t)
	m.sessions[s.id] = s
	m.total++
	m.mu.Unlock()

	sessionsOpened.Inc()
	sessionsActive.Inc()
	s.log.Info().Msg("session opened")
	m.publish(Event{Name: EventSessionOpen, SessionID: s.id})
	return s, nil
}

func (m *Manager) remove(s *Session) {
	m.mu.Lock()
	_, ok := m.sessions[s.id]
	delete(m.sessions, s.id)
	m.mu.Unlock()
	if ok {
		sessionsActive.Dec()
		m.publish(Event{Name: EventSessionClose, SessionID: s.id})
	}
}

// Session returns the open session with id.
func (m *Manager) Session(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Sessions returns the open sessions ordered by connection time.
func (m *Manager) Sessions() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].connected.Equal(out[j].connected) {
			return out[i].id < out[j].id
		}
		return out[i].connected.Before(out[j].connected)
	})
	return out
}

// ListModels scans the models directory.
func (m *Manager) ListModels() ([]types.Model, error) {
	if m.modelsDir == "" {
		return []types.Model{}, nil
	}
	return registry.LoadDir(m.modelsDir)
}

// ListSaves returns the valid saved sessions.
func (m *Manager) ListSaves() ([]store.Descriptor, error) {
	if m.store == nil {
		return []store.Descriptor{}, nil
	}
	return m.store.List()
}

// Close stops accepting sessions and closes every open one, interrupting
// running generations and waiting for their workers.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.draining = true
	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range open {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Close()
		}(s)
	}
	wg.Wait()
	return nil
}
