package station

import (
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/gridlight/stationd/internal/driver/fake"
)

// testTimings keeps every wait in the tens of milliseconds so the wait
// and drain paths run against the real clock without slowing the suite.
func testTimings() Timings {
	return Timings{
		LockTimeout:        500 * time.Millisecond,
		ReadLockTimeout:    200 * time.Millisecond,
		ScanWait:           60 * time.Millisecond,
		ScanDrain:          100 * time.Millisecond,
		ConnectWaitFloor:   40 * time.Millisecond,
		MaxConnectAttempts: 3,
	}
}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *fake.Driver) {
	t.Helper()
	drv := fake.New()
	base := []Option{
		WithTimings(testTimings()),
		WithLogger(zaptest.NewLogger(t)),
	}
	return NewManager(drv, append(base, opts...)...), drv
}
