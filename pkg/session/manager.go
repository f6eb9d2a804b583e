package session

import (
	"log/slog"
	"sync"
	"time"
)

// Manager owns delayed per-connection work (camera resets) and cancels it
// when the connection goes away.
type Manager struct {
	mu      sync.Mutex
	nextID  uint64
	pending map[string]map[uint64]*time.Timer
	logger  *slog.Logger
	stopped bool
}

// NewManager creates a new session manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		pending: make(map[string]map[uint64]*time.Timer),
		logger:  logger,
	}
}

// Schedule runs fn after delay unless the connection is cancelled first.
// Overlapping schedules for one connection are independent. It returns
// an id for the scheduled task, or 0 once the manager has been stopped.
func (m *Manager) Schedule(connID string, delay time.Duration, fn func()) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		m.logger.Warn("Session: schedule after stop ignored", "connection", connID)
		return 0
	}

	m.nextID++
	id := m.nextID

	timers, ok := m.pending[connID]
	if !ok {
		timers = make(map[uint64]*time.Timer)
		m.pending[connID] = timers
	}
	// The callback blocks on mu until the timer is recorded below.
	timers[id] = time.AfterFunc(delay, func() { m.fire(connID, id, fn) })

	m.logger.Debug("Session: scheduled", "connection", connID, "id", id, "delay", delay)
	return id
}

func (m *Manager) fire(connID string, id uint64, fn func()) {
	if !m.take(connID, id) {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Session: scheduled task panicked", "connection", connID, "id", id, "panic", r)
		}
	}()
	fn()
}

// take removes a pending timer and reports whether it was still pending.
func (m *Manager) take(connID string, id uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	timers, ok := m.pending[connID]
	if !ok {
		return false
	}
	if _, ok := timers[id]; !ok {
		return false
	}
	delete(timers, id)
	if len(timers) == 0 {
		delete(m.pending, connID)
	}
	return true
}

// Cancel stops every pending task for the connection and returns how many were stopped.
func (m *Manager) Cancel(connID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancelLocked(connID)
}

func (m *Manager) cancelLocked(connID string) int {
	timers := m.pending[connID]
	for _, t := range timers {
		t.Stop()
	}
	delete(m.pending, connID)
	if len(timers) > 0 {
		m.logger.Info("Session: cancelled pending tasks", "connection", connID, "count", len(timers))
	}
	return len(timers)
}

// Pending returns the number of tasks waiting for the connection.
func (m *Manager) Pending(connID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending[connID])
}

// PendingAll returns the pending task count per connection.
func (m *Manager) PendingAll() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.pending))
	for id, timers := range m.pending {
		out[id] = len(timers)
	}
	return out
}

// Stop cancels everything and refuses further schedules.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.pending {
		m.cancelLocked(id)
	}
	m.stopped = true
}
