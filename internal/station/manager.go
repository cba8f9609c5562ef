package station

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/gridlight/stationd/internal/driver"
	"github.com/gridlight/stationd/internal/telemetry"
)

// Timings bounds every lock acquisition and signal wait the manager
// performs. No operation blocks indefinitely.
type Timings struct {
	// LockTimeout bounds lock acquisition for mutating operations.
	LockTimeout time.Duration
	// ReadLockTimeout bounds lock acquisition for status queries.
	ReadLockTimeout time.Duration
	// ScanWait bounds the wait for scan completion.
	ScanWait time.Duration
	// ScanDrain bounds the wait for a late scan-complete signal after a
	// scan wait timed out, so it cannot corrupt a subsequent wait.
	ScanDrain time.Duration
	// ConnectWaitFloor is the minimum per-attempt wait inside ConnectSta,
	// applied even when the remaining deadline budget is smaller.
	ConnectWaitFloor time.Duration
	// MaxConnectAttempts caps the underlying connect attempts per
	// ConnectSta call regardless of the caller's timeout.
	MaxConnectAttempts int
}

// DefaultTimings returns the production bounds.
func DefaultTimings() Timings {
	return Timings{
		LockTimeout:        5 * time.Second,
		ReadLockTimeout:    1 * time.Second,
		ScanWait:           15 * time.Second,
		ScanDrain:          1 * time.Second,
		ConnectWaitFloor:   1 * time.Second,
		MaxConnectAttempts: 3,
	}
}

// StatusSnapshot is a consistent view of the manager taken under the lock.
type StatusSnapshot struct {
	State              string `json:"state"`
	NetifPresent       bool   `json:"netifPresent"`
	OwnsNetif          bool   `json:"ownsNetif"`
	Initialized        bool   `json:"initialized"`
	HandlersRegistered bool   `json:"handlersRegistered"`
	Started            bool   `json:"started"`
	StartedByManager   bool   `json:"startedByManager"`
	Connected          bool   `json:"connected"`
}

// Manager owns the station-mode interface lifecycle and connection
// coordination. All mutating operations serialize through one
// acquisition-bounded lock; event callbacks write only the atomic
// connectivity facts and the signal flags.
type Manager struct {
	drv     driver.Driver
	clk     clock.Clock
	log     *zap.Logger
	hub     *telemetry.Hub
	timings Timings

	lock   *timedLock
	shared sharedState

	// signals is replaced only under the lock but read by event
	// callbacks, which never take the lock.
	signals atomic.Pointer[signalSet]

	// Connectivity facts written by event callbacks without the lock.
	started    atomic.Bool
	connected  atomic.Bool
	lastReason atomic.Int32
	ipInfo     atomic.Pointer[driver.IPInfo]
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock substitutes the clock used for deadlines and waits.
func WithClock(clk clock.Clock) Option {
	return func(m *Manager) { m.clk = clk }
}

// WithLogger sets the manager's logger.
func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithTimings overrides the production timing bounds.
func WithTimings(t Timings) Option {
	return func(m *Manager) { m.timings = t }
}

// WithTelemetry attaches an event hub receiving lifecycle events.
func WithTelemetry(hub *telemetry.Hub) Option {
	return func(m *Manager) { m.hub = hub }
}

// NewManager creates an uninitialized manager bound to a driver.
func NewManager(drv driver.Driver, opts ...Option) *Manager {
	m := &Manager{
		drv:     drv,
		clk:     clock.New(),
		log:     zap.NewNop(),
		timings: DefaultTimings(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lock = newTimedLock(m.clk)
	return m
}

// Init brings the manager to Started. It is idempotent: a second call
// without intervening teardown succeeds without side effects.
//
// Init prefers borrowing an interface handle created by a co-resident
// subsystem over creating its own; a borrowed handle is never destroyed
// here. On any mid-sequence failure everything acquired so far is rolled
// back with the resource-releasing teardown before the error propagates.
func (m *Manager) Init() error {
	if err := m.lock.Acquire(m.timings.LockTimeout); err != nil {
		return fmt.Errorf("init: acquire lock: %w", err)
	}
	defer m.lock.Release()

	if m.shared.startedLocked() {
		return nil
	}

	m.shared.state = StateInitializing

	if m.signals.Load() == nil {
		m.signals.Store(newSignalSet())
	}

	if err := m.acquireNetifLocked(); err != nil {
		m.rollbackLocked()
		return err
	}

	if err := m.registerHandlersLocked(); err != nil {
		m.rollbackLocked()
		return fmt.Errorf("init: register handlers: %w", err)
	}

	if err := m.drv.SetMode(driver.ModeStation); err != nil {
		m.rollbackLocked()
		return fmt.Errorf("init: set station mode: %w", driver.Normalize(err))
	}

	if err := m.drv.Start(); err != nil {
		norm := driver.Normalize(err)
		if !errors.Is(norm, driver.ErrAlreadyStarted) {
			m.rollbackLocked()
			return fmt.Errorf("init: start interface: %w", norm)
		}
		// Another subsystem started the interface; do not stop it on our
		// resource-keeping teardown.
		m.shared.startedByManager = false
	} else {
		m.shared.startedByManager = true
	}

	m.shared.state = StateStarted
	m.started.Store(true)
	m.log.Info("station manager started",
		zap.String("netif", string(m.shared.netif.Key())),
		zap.String("ownership", m.shared.ownership.String()),
		zap.Bool("startedByManager", m.shared.startedByManager))
	m.publish("started", map[string]any{"ownership": m.shared.ownership.String()})
	return nil
}

// acquireNetifLocked attaches the interface handle, preferring one that
// already exists in the stack.
func (m *Manager) acquireNetifLocked() error {
	if m.shared.netif != nil {
		return nil
	}
	if n, ok := m.drv.LookupNetif(driver.NetifKeySta); ok {
		m.shared.netif = n
		m.shared.ownership = OwnershipBorrowed
		return nil
	}
	n, err := m.drv.CreateNetif(driver.NetifKeySta)
	if err != nil {
		return fmt.Errorf("init: create netif: %w: %v", ErrResourceExhausted, err)
	}
	m.shared.netif = n
	m.shared.ownership = OwnershipOwned
	return nil
}

// Deinit performs the resource-keeping teardown: connectivity is stopped
// but the handler registrations and the interface handle stay valid for a
// co-resident subsystem, and for a later Init.
func (m *Manager) Deinit() error {
	if err := m.lock.Acquire(m.timings.LockTimeout); err != nil {
		return fmt.Errorf("deinit: acquire lock: %w", err)
	}
	defer m.lock.Release()
	return m.teardownLocked(true)
}

// Stop is the resource-keeping teardown under its conventional name.
func (m *Manager) Stop() error {
	return m.Deinit()
}

// Release performs the resource-releasing teardown: in addition to the
// resource-keeping steps it unregisters both event handlers and destroys
// the interface handle if this manager created it.
func (m *Manager) Release() error {
	if err := m.lock.Acquire(m.timings.LockTimeout); err != nil {
		return fmt.Errorf("release: acquire lock: %w", err)
	}
	defer m.lock.Release()
	return m.teardownLocked(false)
}

// rollbackLocked undoes a partial Init. The original error wins; rollback
// failures are only logged.
func (m *Manager) rollbackLocked() {
	if err := m.teardownLocked(false); err != nil {
		m.log.Warn("init rollback incomplete", zap.Error(err))
	}
}

// teardownLocked runs every cleanup step regardless of individual
// failures and reports the first failure.
func (m *Manager) teardownLocked(keepResources bool) error {
	var errs error

	if m.shared.state == StateUninitialized || m.shared.state == StateReleased {
		if keepResources {
			return nil
		}
	}

	// Stop any in-flight scan first so a late scan-complete signal cannot
	// arrive during or after teardown.
	if s := m.signals.Load(); s != nil {
		if err := m.drv.ScanStop(); err != nil {
			norm := driver.Normalize(err)
			if !errors.Is(norm, driver.ErrNotStarted) {
				errs = multierr.Append(errs, fmt.Errorf("scan stop: %w", norm))
			}
		}
		s.Clear(SignalScanDone)
	}

	if m.shared.startedByManager {
		if err := m.drv.Disconnect(); err != nil {
			norm := driver.Normalize(err)
			if !errors.Is(norm, driver.ErrNotConnected) && !errors.Is(norm, driver.ErrNotStarted) {
				errs = multierr.Append(errs, fmt.Errorf("disconnect: %w", norm))
			}
		}
		if err := m.drv.Stop(); err != nil {
			norm := driver.Normalize(err)
			if !errors.Is(norm, driver.ErrNotStarted) {
				errs = multierr.Append(errs, fmt.Errorf("stop interface: %w", norm))
			}
		}
		m.shared.startedByManager = false
	}

	m.connected.Store(false)
	m.started.Store(false)
	m.ipInfo.Store(nil)
	if s := m.signals.Load(); s != nil {
		s.Clear(SignalConnected | SignalFailed)
	}
	m.shared.state = StateStopped

	if !keepResources {
		errs = multierr.Append(errs, m.unregisterHandlersLocked())
		if m.shared.ownership == OwnershipOwned && m.shared.netif != nil {
			if err := m.drv.DestroyNetif(m.shared.netif); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("destroy netif: %w", err))
			}
		}
		m.shared.netif = nil
		m.shared.ownership = OwnershipNone
		m.signals.Store(nil)
		m.shared.state = StateReleased
	}

	if all := multierr.Errors(errs); len(all) > 0 {
		for _, e := range all[1:] {
			m.log.Warn("teardown step failed", zap.Error(e))
		}
		return all[0]
	}
	m.publish("stopped", map[string]any{"keepResources": keepResources})
	return nil
}

// GetStatus returns a consistent snapshot taken under the read lock.
func (m *Manager) GetStatus() (StatusSnapshot, error) {
	if err := m.lock.Acquire(m.timings.ReadLockTimeout); err != nil {
		return StatusSnapshot{}, fmt.Errorf("status: acquire lock: %w", err)
	}
	defer m.lock.Release()

	started := m.shared.startedLocked()
	return StatusSnapshot{
		State:              m.shared.state.String(),
		NetifPresent:       m.shared.netif != nil,
		OwnsNetif:          m.shared.ownership == OwnershipOwned,
		Initialized:        m.shared.state != StateUninitialized && m.shared.state != StateReleased,
		HandlersRegistered: m.shared.wifiToken != 0 && m.shared.ipToken != 0,
		Started:            started,
		StartedByManager:   m.shared.startedByManager,
		Connected:          started && m.connected.Load(),
	}, nil
}

// IsStarted reports whether the manager is started. Best-effort
// unsynchronized fast read.
func (m *Manager) IsStarted() bool {
	return m.started.Load()
}

// IsConnected reports whether the station is connected. Best-effort
// unsynchronized fast read.
func (m *Manager) IsConnected() bool {
	return m.connected.Load()
}

// GetIpInfo returns the acquired address configuration. It fails with
// ErrInvalidState unless connected.
func (m *Manager) GetIpInfo() (driver.IPInfo, error) {
	if err := m.lock.Acquire(m.timings.ReadLockTimeout); err != nil {
		return driver.IPInfo{}, fmt.Errorf("ip info: acquire lock: %w", err)
	}
	defer m.lock.Release()

	if !m.shared.startedLocked() || !m.connected.Load() {
		return driver.IPInfo{}, fmt.Errorf("ip info: not connected: %w", ErrInvalidState)
	}
	if info := m.ipInfo.Load(); info != nil {
		return *info, nil
	}
	return m.drv.IPInfo(m.shared.netif)
}

// LastDisconnectReason returns the reason code of the most recent
// disconnect event.
func (m *Manager) LastDisconnectReason() driver.Reason {
	if err := m.lock.Acquire(m.timings.ReadLockTimeout); err != nil {
		return driver.Reason(m.lastReason.Load())
	}
	defer m.lock.Release()
	return driver.Reason(m.lastReason.Load())
}

// LastConnectAttempts returns the attempt count of the most recent
// ConnectSta run.
func (m *Manager) LastConnectAttempts() int {
	if err := m.lock.Acquire(m.timings.ReadLockTimeout); err != nil {
		return 0
	}
	defer m.lock.Release()
	return m.shared.attempt.Used
}

func (m *Manager) signalsRef() *signalSet {
	return m.signals.Load()
}

func (m *Manager) publish(typ string, data map[string]any) {
	if m.hub == nil {
		return
	}
	m.hub.Publish(typ, data)
}
