// ABOUTME: Process-wide drain flag coordinating graceful shutdown
// ABOUTME: Set once by the signal path, read by every request handler

package lifecycle

import "sync/atomic"

// State is a one-shot drain flag shared by all request handlers in a
// process. It transitions Running -> Draining exactly once and is never
// reset; handlers check it before doing any other work.
type State struct {
	draining atomic.Bool
}

// NewState returns a State in the Running phase.
func NewState() *State {
	return &State{}
}

// Begin marks the process as draining. Safe to call more than once; only
// the first call has an effect.
func (s *State) Begin() {
	s.draining.Store(true)
}

// Draining reports whether the process has begun draining.
func (s *State) Draining() bool {
	return s.draining.Load()
}
