package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/pavelanni/knowpilot/internal/model"
)

// fakeClock fires timers only when advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func TestNotificationExpiresAfterTTL(t *testing.T) {
	clock := newFakeClock()
	m := New(WithClock(clock))

	id := m.Add(model.NotifySuccess, "Generated Q&A for item #1")

	clock.Advance(4999 * time.Millisecond)
	if m.Len() != 1 {
		t.Fatalf("expected notification present at T+4999ms, got %d", m.Len())
	}
	if got := m.List()[0]; got.ID != id || got.Type != model.NotifySuccess {
		t.Errorf("unexpected notification %+v", got)
	}

	clock.Advance(2 * time.Millisecond)
	if m.Len() != 0 {
		t.Fatalf("expected notification gone at T+5001ms, got %d", m.Len())
	}
}

func TestIndependentTimers(t *testing.T) {
	clock := newFakeClock()
	m := New(WithClock(clock))

	first := m.Info("first")
	clock.Advance(3 * time.Second)
	second := m.Info("second")

	clock.Advance(2500 * time.Millisecond)
	list := m.List()
	if len(list) != 1 || list[0].ID != second {
		t.Fatalf("expected only second notification, got %+v", list)
	}

	clock.Advance(3 * time.Second)
	if m.Len() != 0 {
		t.Fatalf("expected empty list, got %d", m.Len())
	}
	if m.Dismiss(first) {
		t.Error("Dismiss of expired notification should report false")
	}
}

func TestDismissCancelsTimer(t *testing.T) {
	clock := newFakeClock()
	m := New(WithClock(clock))

	id := m.Error("boom")
	if !m.Dismiss(id) {
		t.Fatal("Dismiss should report true for a present notification")
	}
	if m.Len() != 0 {
		t.Fatalf("expected empty list after dismiss, got %d", m.Len())
	}
	if !clock.timers[0].stopped {
		t.Error("expected removal timer to be stopped")
	}

	// A late timer firing must not disturb newer entries.
	keep := m.Info("keep")
	clock.timers[0].f()
	if list := m.List(); len(list) != 1 || list[0].ID != keep {
		t.Fatalf("late removal mutated state: %+v", list)
	}
}

func TestOrderAndUniqueIDs(t *testing.T) {
	m := New(WithClock(newFakeClock()))

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := m.Info("same message")
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}

	list := m.List()
	if len(list) != 100 {
		t.Fatalf("expected 100 notifications without dedup, got %d", len(list))
	}
	m.Success("last")
	list = m.List()
	if list[len(list)-1].Message != "last" {
		t.Errorf("expected newest notification last, got %q", list[len(list)-1].Message)
	}
}

func TestCloseStopsTimers(t *testing.T) {
	clock := newFakeClock()
	m := New(WithClock(clock), WithTTL(time.Second))

	m.Info("a")
	m.Info("b")
	m.Close()

	for i, tm := range clock.timers {
		if !tm.stopped {
			t.Errorf("timer %d not stopped", i)
		}
	}
	m.Info("after close")
	if m.Len() != 0 {
		t.Errorf("expected no notifications after close, got %d", m.Len())
	}
}

func TestWithTTL(t *testing.T) {
	clock := newFakeClock()
	m := New(WithClock(clock), WithTTL(time.Second), WithTTL(0))

	m.Info("short")
	clock.Advance(999 * time.Millisecond)
	if m.Len() != 1 {
		t.Fatal("expected notification before TTL")
	}
	clock.Advance(time.Millisecond)
	if m.Len() != 0 {
		t.Fatal("expected notification removed at TTL")
	}
}
