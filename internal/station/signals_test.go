package station

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalSetIsSticky(t *testing.T) {
	s := newSignalSet()
	s.Set(SignalConnected)

	assert.Equal(t, SignalConnected, s.Peek(SignalConnected))
	// Still set: only Clear lowers a flag.
	assert.Equal(t, SignalConnected, s.Peek(SignalConnected))

	s.Clear(SignalConnected)
	assert.Equal(t, Signal(0), s.Peek(SignalConnected))
}

func TestSignalClearLowersOnlyGivenFlags(t *testing.T) {
	s := newSignalSet()
	s.Set(SignalConnected | SignalScanDone)
	s.Clear(SignalConnected)

	assert.Equal(t, Signal(0), s.Peek(SignalConnected))
	assert.Equal(t, SignalScanDone, s.Peek(SignalScanDone))
}

func TestSignalWaitReturnsImmediatelyWhenSet(t *testing.T) {
	s := newSignalSet()
	s.Set(SignalFailed)

	got, err := s.Wait(clock.New(), SignalConnected|SignalFailed, time.Second)
	require.NoError(t, err)
	assert.Equal(t, SignalFailed, got)
}

func TestSignalWaitWakesOnSet(t *testing.T) {
	s := newSignalSet()
	go func() {
		time.Sleep(20 * time.Millisecond)
		s.Set(SignalScanDone)
	}()

	got, err := s.Wait(clock.New(), SignalScanDone, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, SignalScanDone, got)
}

func TestSignalWaitIgnoresFlagsOutsideMask(t *testing.T) {
	s := newSignalSet()
	s.Set(SignalScanDone)

	_, err := s.Wait(clock.New(), SignalConnected|SignalFailed, 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestSignalWaitTimeout(t *testing.T) {
	s := newSignalSet()
	start := time.Now()
	_, err := s.Wait(clock.New(), SignalConnected, 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestSignalSetAfterCheckIsNotLost(t *testing.T) {
	s := newSignalSet()
	// Repeated set/wait pairs exercise the channel regeneration: a set
	// concurrent with the waiter's check must still wake it.
	for i := 0; i < 100; i++ {
		go s.Set(SignalConnected)
		got, err := s.Wait(clock.New(), SignalConnected, time.Second)
		require.NoError(t, err)
		assert.Equal(t, SignalConnected, got)
		s.Clear(SignalConnected)
	}
}

func TestTimedLockBoundsAcquisition(t *testing.T) {
	l := newTimedLock(clock.New())
	require.NoError(t, l.Acquire(time.Second))

	err := l.Acquire(30 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)

	l.Release()
	require.NoError(t, l.Acquire(time.Second))
	l.Release()
}

func TestTimedLockHandsOffToWaiter(t *testing.T) {
	l := newTimedLock(clock.New())
	require.NoError(t, l.Acquire(time.Second))

	acquired := make(chan error, 1)
	go func() {
		acquired <- l.Acquire(2 * time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	l.Release()

	select {
	case err := <-acquired:
		require.NoError(t, err)
		l.Release()
	case <-time.After(time.Second):
		t.Fatal("waiter was not handed the lock")
	}
}
