package session

import "sync/atomic"

var current atomic.Pointer[Session]

// Register exposes s as the process-wide session so tooling can reach it
// without a reference being passed around. The returned function removes
// the registration if s is still the registered session.
func Register(s *Session) (unregister func()) {
	current.Store(s)
	return func() { current.CompareAndSwap(s, nil) }
}

// Current returns the registered session, or nil.
func Current() *Session {
	return current.Load()
}
