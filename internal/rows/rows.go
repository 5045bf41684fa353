// Package rows tracks which table rows are expanded.
package rows

import "sync"

// State maps record ids to their expanded flag.
type State struct {
	mu       sync.Mutex
	expanded map[int64]bool
}

// New creates a State with every row collapsed.
func New() *State {
	return &State{expanded: make(map[int64]bool)}
}

// Toggle flips the flag of id and returns the new value.
func (s *State) Toggle(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expanded[id] = !s.expanded[id]
	return s.expanded[id]
}

// Expanded reports whether id is expanded.
func (s *State) Expanded(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expanded[id]
}

// ExpandAll marks every visible id as expanded. Other flags are left alone.
func (s *State) ExpandAll(visible []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range visible {
		s.expanded[id] = true
	}
}

// CollapseAll clears every flag.
func (s *State) CollapseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.expanded)
}

// AllExpanded compares the number of expanded rows with visibleCount.
// Rows that were expanded and then filtered out of view still count.
func (s *State) AllExpanded(visibleCount int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.expanded {
		if v {
			n++
		}
	}
	return visibleCount > 0 && n >= visibleCount
}

// Snapshot returns a copy of the expanded ids.
func (s *State) Snapshot() map[int64]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]bool, len(s.expanded))
	for id, v := range s.expanded {
		if v {
			out[id] = true
		}
	}
	return out
}
