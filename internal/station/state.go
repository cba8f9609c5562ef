package station

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/gridlight/stationd/internal/driver"
)

// State is the manager lifecycle phase. Transitions are monotonic except
// the Connecting/Connected/Disconnected cycle, which may repeat.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateStarted
	StateConnecting
	StateConnected
	StateDisconnected
	StateStopped
	StateReleased
)

// String returns the lifecycle phase name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateStarted:
		return "started"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateStopped:
		return "stopped"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}

// Ownership tags the interface handle. The tag is immutable for the
// handle's lifetime: an Owned handle is destroyed by the releasing
// teardown, a Borrowed one never is.
type Ownership int

const (
	OwnershipNone Ownership = iota
	OwnershipBorrowed
	OwnershipOwned
)

// String returns the ownership tag name.
func (o Ownership) String() string {
	switch o {
	case OwnershipBorrowed:
		return "borrowed"
	case OwnershipOwned:
		return "owned"
	default:
		return "none"
	}
}

// ConnectionAttempt is the bookkeeping of one ConnectSta run. It is reset
// at the start of every call and read-only afterward until the next call.
type ConnectionAttempt struct {
	Used     int
	Deadline time.Time
}

// sharedState is the lock-protected record of interface ownership and
// lifecycle facts. Connectivity facts that event callbacks write live as
// atomics on the Manager instead, so callbacks never take this lock.
type sharedState struct {
	state            State
	netif            driver.Netif
	ownership        Ownership
	wifiToken        driver.Token
	ipToken          driver.Token
	startedByManager bool
	attempt          ConnectionAttempt
}

func (s *sharedState) startedLocked() bool {
	switch s.state {
	case StateStarted, StateConnecting, StateConnected, StateDisconnected:
		return true
	default:
		return false
	}
}

// timedLock is a mutual-exclusion lock with a bounded acquisition. A
// channel of capacity one keeps release non-blocking on every exit path.
type timedLock struct {
	ch  chan struct{}
	clk clock.Clock
}

func newTimedLock(clk clock.Clock) *timedLock {
	return &timedLock{ch: make(chan struct{}, 1), clk: clk}
}

// Acquire takes the lock or fails with ErrTimeout after the bound.
func (l *timedLock) Acquire(timeout time.Duration) error {
	select {
	case l.ch <- struct{}{}:
		return nil
	default:
	}
	t := l.clk.Timer(timeout)
	defer t.Stop()
	select {
	case l.ch <- struct{}{}:
		return nil
	case <-t.C:
		return ErrTimeout
	}
}

// Release frees the lock. It must only be called by the holder.
func (l *timedLock) Release() {
	<-l.ch
}
