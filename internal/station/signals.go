package station

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Signal is a sticky condition flag set by the event-emitting side and
// consumed by a blocking waiter.
type Signal uint32

const (
	SignalConnected Signal = 1 << iota
	SignalFailed
	SignalScanDone
)

// signalSet holds the sticky flags. Flags are set by event callbacks
// without the manager's state lock (one writer per flag, so no torn
// update is possible) and stay set until a waiter clears them before
// issuing its own wait. A flag set immediately after a waiter's check is
// therefore never lost: the regenerated broadcast channel wakes the
// waiter, which re-checks.
type signalSet struct {
	mu      sync.Mutex
	flags   Signal
	changed chan struct{}
}

func newSignalSet() *signalSet {
	return &signalSet{changed: make(chan struct{})}
}

// Set raises flags and wakes all current waiters.
func (s *signalSet) Set(f Signal) {
	s.mu.Lock()
	s.flags |= f
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()
}

// Clear lowers flags. Only waiters call this, immediately before a wait.
func (s *signalSet) Clear(f Signal) {
	s.mu.Lock()
	s.flags &^= f
	s.mu.Unlock()
}

// Peek returns the currently raised subset of mask without blocking.
func (s *signalSet) Peek(mask Signal) Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags & mask
}

// Wait blocks until any flag in mask is raised or the timeout elapses.
// It returns the raised subset, or ErrTimeout. Raised flags are left set;
// clearing is the caller's decision.
func (s *signalSet) Wait(clk clock.Clock, mask Signal, timeout time.Duration) (Signal, error) {
	t := clk.Timer(timeout)
	defer t.Stop()
	for {
		s.mu.Lock()
		got := s.flags & mask
		ch := s.changed
		s.mu.Unlock()
		if got != 0 {
			return got, nil
		}
		select {
		case <-ch:
		case <-t.C:
			return 0, ErrTimeout
		}
	}
}
