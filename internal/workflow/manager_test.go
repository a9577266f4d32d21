package workflow

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(active *int64) *Manager {
	return NewManager(func(id string) *Session {
		return NewSession(Options{ID: id, Backend: newFakeBackend()})
	}, func(n int) { atomic.StoreInt64(active, int64(n)) })
}

func TestGetOrCreate(t *testing.T) {
	var active int64
	m := newTestManager(&active)

	s, created := m.GetOrCreate("")
	require.True(t, created)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, int64(1), atomic.LoadInt64(&active))

	again, created := m.GetOrCreate(s.ID())
	assert.False(t, created)
	assert.Same(t, s, again)

	// unknown ids are never adopted
	other, created := m.GetOrCreate("forged-id")
	assert.True(t, created)
	assert.NotEqual(t, "forged-id", other.ID())
	assert.Equal(t, 2, m.Len())
}

func TestCleanupRemovesIdleSessions(t *testing.T) {
	var active int64
	m := newTestManager(&active)

	idle, _ := m.GetOrCreate("")
	fresh, _ := m.GetOrCreate("")
	idle.mu.Lock()
	idle.lastSeen = time.Now().Add(-time.Hour)
	idle.mu.Unlock()

	assert.Equal(t, 1, m.Cleanup(time.Minute))
	_, ok := m.Get(idle.ID())
	assert.False(t, ok)
	_, ok = m.Get(fresh.ID())
	assert.True(t, ok)
	assert.Equal(t, int64(1), atomic.LoadInt64(&active))
}

func TestStartCleanupStops(t *testing.T) {
	var active int64
	m := newTestManager(&active)
	s, _ := m.GetOrCreate("")
	s.mu.Lock()
	s.lastSeen = time.Now().Add(-time.Hour)
	s.mu.Unlock()

	stop := make(chan struct{})
	m.StartCleanup(5*time.Millisecond, time.Minute, stop)
	defer close(stop)

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
}
