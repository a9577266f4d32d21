// internal/workflow/manager.go
package workflow

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Factory builds a session for a new id.
type Factory func(id string) *Session

// Manager keeps the console's sessions in memory, keyed by session id.
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
	factory  Factory
	onChange func(active int)
}

// NewManager creates a session registry. onChange, if set, is called with
// the session count after every create or sweep.
func NewManager(factory Factory, onChange func(active int)) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		factory:  factory,
		onChange: onChange,
	}
}

// Get returns the session for id, if any.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// GetOrCreate returns the session for id, creating one (with a fresh id when
// id is empty or unknown). created reports whether a new session was made.
func (m *Manager) GetOrCreate(id string) (s *Session, created bool) {
	if id != "" {
		if existing, ok := m.Get(id); ok {
			existing.Touch()
			return existing, false
		}
	}

	m.mutex.Lock()
	// double check under the write lock
	if existing, ok := m.sessions[id]; ok && id != "" {
		m.mutex.Unlock()
		return existing, false
	}
	newID := uuid.NewString()
	s = m.factory(newID)
	m.sessions[newID] = s
	count := len(m.sessions)
	m.mutex.Unlock()

	if m.onChange != nil {
		m.onChange(count)
	}
	return s, true
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// Cleanup drops sessions idle for longer than maxAge and returns how many were removed.
func (m *Manager) Cleanup(maxAge time.Duration) int {
	m.mutex.Lock()
	now := time.Now()
	removed := 0
	for id, s := range m.sessions {
		if now.Sub(s.LastSeen()) > maxAge {
			delete(m.sessions, id)
			removed++
		}
	}
	count := len(m.sessions)
	m.mutex.Unlock()

	if removed > 0 && m.onChange != nil {
		m.onChange(count)
	}
	return removed
}

// StartCleanup sweeps every interval until stop is closed.
func (m *Manager) StartCleanup(interval, maxAge time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Cleanup(maxAge)
			case <-stop:
				return
			}
		}
	}()
}
