// Package notify holds the transient messages shown at the top of every page.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/knowpilot/internal/model"
)

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 5 * time.Second

// Timer is the subset of *time.Timer the manager needs.
type Timer interface {
	Stop() bool
}

// Clock schedules removals. The real clock is time.AfterFunc.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

type entry struct {
	n     model.Notification
	timer Timer
}

// Manager is an ordered, mutex-guarded collection of notifications.
// Each entry expires on its own timer.
type Manager struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   Clock
	entries []entry
	closed  bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.ttl = d
		}
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(c Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// New creates an empty Manager.
func New(opts ...Option) *Manager {
	m := &Manager{ttl: DefaultTTL, clock: realClock{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add appends a notification and schedules its removal. It returns the new id.
func (m *Manager) Add(typ model.NotificationType, message string) string {
	n := model.Notification{
		ID:        uuid.NewString(),
		Type:      typ,
		Message:   message,
		CreatedAt: m.clock.Now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		slog.Debug("notification dropped after close", "type", typ, "message", message)
		return n.ID
	}
	id := n.ID
	m.entries = append(m.entries, entry{
		n:     n,
		timer: m.clock.AfterFunc(m.ttl, func() { m.remove(id) }),
	})
	return id
}

// Info, Success and Error are shorthands for Add.
func (m *Manager) Info(message string) string { return m.Add(model.NotifyInfo, message) }

func (m *Manager) Success(message string) string { return m.Add(model.NotifySuccess, message) }

func (m *Manager) Error(message string) string { return m.Add(model.NotifyError, message) }

// Dismiss removes a notification now and cancels its timer.
// It reports whether the notification was still present.
func (m *Manager) Dismiss(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries {
		if e.n.ID == id {
			e.timer.Stop()
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return true
		}
	}
	return false
}

// remove is the timer callback; it is a no-op once the entry is gone.
func (m *Manager) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries {
		if e.n.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return
		}
	}
}

// List returns the current notifications, oldest first.
func (m *Manager) List() []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Notification, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.n
	}
	return out
}

// Len returns the number of visible notifications.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close stops every pending timer and drops all entries. Later Adds are ignored.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		e.timer.Stop()
	}
	m.entries = nil
	m.closed = true
}
