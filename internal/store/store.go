package store

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// Status is the view state of a Store.
type Status int

const (
	StatusLoading Status = iota
	StatusError
	StatusEmpty
	StatusLoaded
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	case StatusEmpty:
		return "empty"
	case StatusLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// State is the tagged view of a Store: exactly one of loading, error,
// empty or loaded. Err is set only for StatusError and Data only for
// StatusLoaded.
type State[E any] struct {
	Status Status
	Err    string
	Data   []E
}

// Snapshot is the raw state of a Store. Stale data may coexist with an error.
type Snapshot[E any] struct {
	Data    []E
	Loading bool
	Err     string
}

// FetchFunc loads the full collection from the backend.
type FetchFunc[E any] func(ctx context.Context) ([]E, error)

// Store keeps the last successfully fetched collection of one backend resource.
// Every Fetch is a full reload. When fetches overlap, only the most recently
// started one may update the store.
type Store[E any] struct {
	name  string
	fetch FetchFunc[E]

	mu      sync.Mutex
	seq     uint64
	data    []E
	loading bool
	err     string
}

// New creates a Store in the loading state; it holds no data until the first Fetch.
func New[E any](name string, fetch FetchFunc[E]) *Store[E] {
	return &Store[E]{name: name, fetch: fetch, loading: true}
}

// Name returns the resource name used in logs.
func (s *Store[E]) Name() string { return s.name }

// Fetch reloads the collection. On failure the previous data is kept and the
// error message is recorded. The error is returned to the caller as well.
func (s *Store[E]) Fetch(ctx context.Context) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.loading = true
	s.err = ""
	s.mu.Unlock()

	data, err := s.fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		slog.Debug("discarding stale response", "store", s.name, "seq", seq, "latest", s.seq)
		return err
	}
	s.loading = false
	if err != nil {
		slog.Error("error fetching data", "store", s.name, "error", err)
		s.err = err.Error()
		return err
	}
	s.data = data
	return nil
}

// Snapshot returns a copy of the current raw state.
func (s *Store[E]) Snapshot() Snapshot[E] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot[E]{Data: slices.Clone(s.data), Loading: s.loading, Err: s.err}
}

// State returns the view state. Loading wins over error, error over data.
func (s *Store[E]) State() State[E] {
	snap := s.Snapshot()
	switch {
	case snap.Loading:
		return State[E]{Status: StatusLoading}
	case snap.Err != "":
		return State[E]{Status: StatusError, Err: snap.Err}
	case len(snap.Data) == 0:
		return State[E]{Status: StatusEmpty}
	default:
		return State[E]{Status: StatusLoaded, Data: snap.Data}
	}
}

// Data returns a copy of the last fetched collection.
func (s *Store[E]) Data() []E {
	return s.Snapshot().Data
}
