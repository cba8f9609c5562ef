package station

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gridlight/stationd/internal/driver"
)

// Scan runs a blocking scan and copies up to len(out) records into out.
// The returned count is the total number of records found and may exceed
// len(out). On a wait timeout the scan is stopped best-effort and a
// possibly-late completion signal is drained so it cannot corrupt a
// subsequent wait.
func (m *Manager) Scan(out []driver.ScanResult) (int, error) {
	if err := m.lock.Acquire(m.timings.LockTimeout); err != nil {
		return 0, fmt.Errorf("scan: acquire lock: %w", err)
	}
	defer m.lock.Release()

	if !m.shared.startedLocked() {
		return 0, fmt.Errorf("scan: not started: %w", ErrInvalidState)
	}
	sig := m.signalsRef()

	sig.Clear(SignalScanDone)
	if err := m.drv.ScanStart(); err != nil {
		return 0, fmt.Errorf("scan: start: %w", driver.Normalize(err))
	}

	if _, err := sig.Wait(m.clk, SignalScanDone, m.timings.ScanWait); err != nil {
		if stopErr := m.drv.ScanStop(); stopErr != nil {
			m.log.Debug("scan stop after timeout", zap.Error(stopErr))
		}
		// Drain a late completion so it cannot leak into the next wait.
		_, _ = sig.Wait(m.clk, SignalScanDone, m.timings.ScanDrain)
		sig.Clear(SignalScanDone)
		return 0, fmt.Errorf("scan: wait for completion: %w", ErrTimeout)
	}

	results, err := m.drv.ScanResults()
	if err != nil {
		return 0, fmt.Errorf("scan: fetch results: %w", driver.Normalize(err))
	}
	copy(out, results)
	m.publish("scan-done", map[string]any{"count": len(results)})
	return len(results), nil
}

// ConnectSta connects to the given network. It retries on definite
// driver failures, bounded both by the absolute deadline computed at
// entry and by the attempt cap; the terminal outcome is ErrConnectFailed
// if a failure signal was ever observed during the run, ErrTimeout
// otherwise. The last wait never overruns the deadline by more than the
// per-wait floor.
func (m *Manager) ConnectSta(ssid, password string, timeout time.Duration) error {
	if ssid == "" {
		return fmt.Errorf("connect: empty ssid: %w", ErrInvalidArgument)
	}

	if err := m.lock.Acquire(m.timings.LockTimeout); err != nil {
		return fmt.Errorf("connect: acquire lock: %w", err)
	}
	defer m.lock.Release()

	if err := m.ensureStartedLocked(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	sig := m.signalsRef()

	if err := m.drv.SetConfig(driver.Config{SSID: ssid, Password: password}); err != nil {
		return fmt.Errorf("connect: set config: %w", driver.Normalize(err))
	}

	deadline := m.clk.Now().Add(timeout)
	m.shared.state = StateConnecting
	m.shared.attempt = ConnectionAttempt{Deadline: deadline}
	sawFailed := false

	for m.clk.Now().Before(deadline) && m.shared.attempt.Used < m.timings.MaxConnectAttempts {
		m.shared.attempt.Used++
		sig.Clear(SignalConnected | SignalFailed | SignalScanDone)

		if err := m.drv.Disconnect(); err != nil {
			norm := driver.Normalize(err)
			if !errors.Is(norm, driver.ErrNotConnected) {
				m.shared.state = StateDisconnected
				return fmt.Errorf("connect: reset association: %w", norm)
			}
		}
		if err := m.drv.Connect(); err != nil {
			m.shared.state = StateDisconnected
			return fmt.Errorf("connect: submit: %w", driver.Normalize(err))
		}

		wait := deadline.Sub(m.clk.Now())
		if wait < m.timings.ConnectWaitFloor {
			wait = m.timings.ConnectWaitFloor
		}
		got, err := sig.Wait(m.clk, SignalConnected|SignalFailed, wait)
		if err != nil {
			// Neither signal before the bound; the driver may still be
			// associating, but the caller gets control back now.
			break
		}
		if got&SignalConnected != 0 {
			m.shared.state = StateConnected
			m.log.Info("station connected",
				zap.String("ssid", ssid),
				zap.Int("attempts", m.shared.attempt.Used))
			m.publish("connected", map[string]any{
				"ssid":     ssid,
				"attempts": m.shared.attempt.Used,
			})
			return nil
		}
		sawFailed = true
	}

	m.shared.state = StateDisconnected
	m.log.Warn("station connect gave up",
		zap.String("ssid", ssid),
		zap.Int("attempts", m.shared.attempt.Used),
		zap.Bool("sawFailed", sawFailed),
		zap.String("lastReason", driver.Reason(m.lastReason.Load()).String()))
	if sawFailed {
		return fmt.Errorf("connect: driver reported failure: %w", ErrConnectFailed)
	}
	return fmt.Errorf("connect: no response before deadline: %w", ErrTimeout)
}

// ensureStartedLocked restarts the interface after a resource-keeping
// teardown: the handle and the handler registrations are still valid, so
// a connect without a fresh Init is expected to work.
func (m *Manager) ensureStartedLocked() error {
	if m.shared.startedLocked() {
		return nil
	}
	if m.shared.state != StateStopped || m.shared.netif == nil {
		return fmt.Errorf("not started: %w", ErrInvalidState)
	}
	if err := m.drv.Start(); err != nil {
		norm := driver.Normalize(err)
		if !errors.Is(norm, driver.ErrAlreadyStarted) {
			return fmt.Errorf("restart interface: %w", norm)
		}
	} else {
		m.shared.startedByManager = true
	}
	m.shared.state = StateStarted
	m.started.Store(true)
	return nil
}

// DisconnectSta drops the current association. It is a no-op success
// when the manager is not started, and normalizes already-disconnected
// driver conditions to success.
func (m *Manager) DisconnectSta() error {
	if err := m.lock.Acquire(m.timings.LockTimeout); err != nil {
		return fmt.Errorf("disconnect: acquire lock: %w", err)
	}
	defer m.lock.Release()

	if !m.shared.startedLocked() {
		return nil
	}

	m.connected.Store(false)
	m.ipInfo.Store(nil)
	if s := m.signalsRef(); s != nil {
		s.Clear(SignalConnected)
	}
	m.shared.state = StateDisconnected

	if err := m.drv.Disconnect(); err != nil {
		norm := driver.Normalize(err)
		if !errors.Is(norm, driver.ErrNotConnected) && !errors.Is(norm, driver.ErrNotStarted) {
			return fmt.Errorf("disconnect: %w", norm)
		}
	}
	m.publish("disconnect-requested", nil)
	return nil
}
