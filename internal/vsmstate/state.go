// Package vsmstate holds the mutable signal-name-to-value mapping that the
// scheduler's single goroutine owns. A mutex guards every
// access so a dashboard or digest goroutine can read Snapshot concurrently
// with the scheduler's own Get/Set calls without racing.
package vsmstate

import (
	"sort"
	"sync"

	"github.com/collabora/vsm/internal/vsmvalue"
)

// State maps signal name to its last-observed value. A name never seen
// reads back as vsmvalue.Unset (the zero Value).
type State struct {
	mu     sync.Mutex
	values map[string]vsmvalue.Value
}

// New returns an empty State.
func New() *State {
	return &State{values: make(map[string]vsmvalue.Value)}
}

// Get returns the current value of name, or vsmvalue.Unset if unobserved.
func (s *State) Get(name string) vsmvalue.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[name]; ok {
		return v
	}
	return vsmvalue.Unset
}

// Set records a new value for name, overwriting any previous value
// (last-writer-wins).
func (s *State) Set(name string, v vsmvalue.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = v
}

// Names returns every observed signal name in lexicographic order, the
// order state dumps require.
func (s *State) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.values))
	for n := range s.values {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a defensive copy of the current state, used by the
// dashboard and the digest scheduler so they never race with the scheduler's
// next mutation.
func (s *State) Snapshot() map[string]vsmvalue.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]vsmvalue.Value, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
