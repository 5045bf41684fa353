// Package action runs the remote generate and clear operations triggered from
// the pages, tracks which of them are in flight, reports their outcome as
// notifications and reloads the affected store afterwards.
package action

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	appI18n "github.com/pavelanni/knowpilot/internal/i18n"
	"github.com/pavelanni/knowpilot/internal/model"
)

// DefaultTimeout bounds one background operation, refresh included.
const DefaultTimeout = 10 * time.Minute

// ErrInFlight is returned when the same operation is already running.
var ErrInFlight = errors.New("operation already in progress")

// Kind is the family of a per-item operation.
type Kind string

const (
	KindQA        Kind = "qa"
	KindKnowledge Kind = "kp"
	KindQuestion  Kind = "question"
)

// Key identifies one per-item operation.
type Key struct {
	Kind Kind
	ID   int64
}

// Notifier posts a user-visible message.
type Notifier interface {
	Add(typ model.NotificationType, message string) string
}

// RefreshFunc reloads the data shown by the page after a successful operation.
type RefreshFunc func(ctx context.Context) error

// Action describes one operation. Bulk actions use the tracker-wide
// processing flag instead of Key.
type Action struct {
	Key      Key
	Bulk     bool
	InfoID   string         // optional info message posted before the call
	InfoData map[string]any // template data for InfoID and FailID
	FailID   string         // message posted on failure, receives {{.Error}}
	Do       func(ctx context.Context) (success string, err error)
}

// Tracker runs actions for one page.
type Tracker struct {
	name    string
	refresh RefreshFunc
	notify  Notifier
	timeout time.Duration

	mu         sync.Mutex
	generating map[Key]bool
	bulk       int

	wg sync.WaitGroup
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithTimeout overrides DefaultTimeout for background operations.
func WithTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// NewTracker creates a Tracker that reloads through refresh and reports through n.
func NewTracker(name string, refresh RefreshFunc, n Notifier, opts ...Option) *Tracker {
	t := &Tracker{
		name:       name,
		refresh:    refresh,
		notify:     n,
		timeout:    DefaultTimeout,
		generating: make(map[Key]bool),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Generating reports whether the per-item operation key is in flight.
func (t *Tracker) Generating(kind Kind, id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generating[Key{Kind: kind, ID: id}]
}

// ProcessingAll reports whether any bulk operation is in flight.
func (t *Tracker) ProcessingAll() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bulk > 0
}

// Busy reports whether anything at all is in flight.
func (t *Tracker) Busy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bulk > 0 || len(t.generating) > 0
}

// Run executes a synchronously. It returns ErrInFlight without calling the
// backend if the same operation is already running.
func (t *Tracker) Run(ctx context.Context, a Action) error {
	if !t.begin(a) {
		return ErrInFlight
	}
	defer t.end(a)
	return t.execute(ctx, a)
}

// Start marks a as in flight and executes it in the background on a context
// detached from ctx's cancellation. It returns false if a is already running.
func (t *Tracker) Start(ctx context.Context, a Action) bool {
	if !t.begin(a) {
		return false
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.end(a)
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
		defer cancel()
		_ = t.execute(ctx, a)
	}()
	return true
}

// Wait blocks until every started operation has settled.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

func (t *Tracker) begin(a Action) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if a.Bulk {
		if t.bulk > 0 {
			return false
		}
		t.bulk++
		return true
	}
	if t.generating[a.Key] {
		return false
	}
	t.generating[a.Key] = true
	return true
}

func (t *Tracker) end(a Action) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if a.Bulk {
		t.bulk--
		return
	}
	delete(t.generating, a.Key)
}

func (t *Tracker) execute(ctx context.Context, a Action) error {
	if a.InfoID != "" {
		t.notify.Add(model.NotifyInfo, appI18n.Td(ctx, a.InfoID, a.InfoData))
	}

	slog.Info("starting action", "tracker", t.name, "kind", a.Key.Kind, "id", a.Key.ID, "bulk", a.Bulk)
	msg, err := a.Do(ctx)
	if err != nil {
		slog.Error("action failed", "tracker", t.name, "kind", a.Key.Kind, "id", a.Key.ID, "bulk", a.Bulk, "error", err)
		data := map[string]any{"Error": err.Error()}
		for k, v := range a.InfoData {
			data[k] = v
		}
		t.notify.Add(model.NotifyError, appI18n.Td(ctx, a.FailID, data))
		return err
	}
	t.notify.Add(model.NotifySuccess, msg)

	// The action itself succeeded; a failed reload is only logged.
	if t.refresh != nil {
		if err := t.refresh(ctx); err != nil {
			slog.Warn("refresh after action failed", "tracker", t.name, "error", err)
		}
	}
	return nil
}
