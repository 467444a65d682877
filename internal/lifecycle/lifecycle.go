// Package lifecycle tracks process start time and the shutdown flag read by
// the health endpoint.
package lifecycle

import (
	"sync/atomic"
	"time"
)

// State is shared between main (which flips it on SIGTERM) and /health.
type State struct {
	started      time.Time
	shuttingDown atomic.Bool
}

// New returns a State started now.
func New() *State {
	return &State{started: time.Now()}
}

// SetShuttingDown sets the draining flag. Health returns 503 shutting-down
// while true.
func (s *State) SetShuttingDown(v bool) {
	s.shuttingDown.Store(v)
}

// IsShuttingDown reports whether the process is draining.
func (s *State) IsShuttingDown() bool {
	return s.shuttingDown.Load()
}

// Uptime returns time since New.
func (s *State) Uptime() time.Duration {
	return time.Since(s.started)
}
