// Package app is the reactive core of World Connector: identity resolution,
// profile and chat mirrors over live backend views, and screen routing. All
// shared state lives in owned slices with a single writer each; everything
// else observes through explicit watches.
package app

import (
	"sync"

	"github.com/google/uuid"
)

// State is one observable state slice. One component writes it; any number of
// watchers read it. Watchers run on the writer's goroutine in registration
// order, and once immediately at registration with the value current at that
// moment.
type State[T any] struct {
	mu       sync.Mutex
	value    T
	watchers []watcher[T]
}

type watcher[T any] struct {
	id string
	fn func(T)
}

// NewState creates a slice holding initial.
func NewState[T any](initial T) *State[T] {
	return &State[T]{value: initial}
}

// Get returns the current value.
func (s *State[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set stores a new value and notifies every watcher.
func (s *State[T]) Set(value T) {
	s.mu.Lock()
	s.value = value
	watchers := make([]watcher[T], len(s.watchers))
	copy(watchers, s.watchers)
	s.mu.Unlock()

	for _, w := range watchers {
		w.fn(value)
	}
}

// Watch registers fn and replays the current value to it. The returned cancel
// removes the registration; a notification already snapshotted by a concurrent
// Set may still be delivered while cancel runs, but none after that.
func (s *State[T]) Watch(fn func(T)) func() {
	id := uuid.NewString()

	s.mu.Lock()
	s.watchers = append(s.watchers, watcher[T]{id: id, fn: fn})
	value := s.value
	s.mu.Unlock()

	fn(value)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, w := range s.watchers {
			if w.id == id {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				return
			}
		}
	}
}
