package station

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/gridlight/stationd/internal/driver"
)

// Event bridge. The two callbacks below run on the driver's context,
// concurrently with any caller. They must not block and must not acquire
// the manager's state lock: they only write the atomic connectivity
// facts and set signal flags. Consumers act on a flag only after
// re-confirming state under the lock.

// registerHandlersLocked subscribes to both event classes. Idempotent: a
// token already held is kept.
func (m *Manager) registerHandlersLocked() error {
	if m.shared.wifiToken == 0 {
		tok, err := m.drv.RegisterHandler(driver.EventClassWiFi, m.onWiFiEvent)
		if err != nil {
			return err
		}
		m.shared.wifiToken = tok
	}
	if m.shared.ipToken == 0 {
		tok, err := m.drv.RegisterHandler(driver.EventClassIP, m.onIPEvent)
		if err != nil {
			return err
		}
		m.shared.ipToken = tok
	}
	return nil
}

// unregisterHandlersLocked removes both subscriptions. Idempotent and
// symmetric with registration; both removals are attempted even if the
// first fails.
func (m *Manager) unregisterHandlersLocked() error {
	var errs error
	if m.shared.wifiToken != 0 {
		errs = multierr.Append(errs,
			m.drv.UnregisterHandler(driver.EventClassWiFi, m.shared.wifiToken))
		m.shared.wifiToken = 0
	}
	if m.shared.ipToken != 0 {
		errs = multierr.Append(errs,
			m.drv.UnregisterHandler(driver.EventClassIP, m.shared.ipToken))
		m.shared.ipToken = 0
	}
	return errs
}

func (m *Manager) onWiFiEvent(ev driver.Event) {
	switch ev.Kind {
	case driver.EventStaStart:
		m.connected.Store(false)
		if s := m.signalsRef(); s != nil {
			s.Clear(SignalConnected | SignalFailed)
		}
	case driver.EventStaStop:
		m.connected.Store(false)
	case driver.EventStaDisconnected:
		m.lastReason.Store(int32(ev.Reason))
		m.connected.Store(false)
		if s := m.signalsRef(); s != nil {
			s.Clear(SignalConnected)
			s.Set(SignalFailed)
		}
		m.log.Debug("station disconnected", zap.String("reason", ev.Reason.String()))
		m.publish("disconnected", map[string]any{"reason": ev.Reason.String()})
	case driver.EventScanDone:
		if s := m.signalsRef(); s != nil {
			s.Set(SignalScanDone)
		}
	}
}

func (m *Manager) onIPEvent(ev driver.Event) {
	switch ev.Kind {
	case driver.EventGotIP:
		info := ev.IP
		m.ipInfo.Store(&info)
		m.connected.Store(true)
		if s := m.signalsRef(); s != nil {
			s.Clear(SignalFailed)
			s.Set(SignalConnected)
		}
		m.log.Debug("ip acquired", zap.String("addr", info.Addr.String()))
		m.publish("got-ip", map[string]any{"addr": info.Addr.String()})
	case driver.EventLostIP:
		m.connected.Store(false)
		m.ipInfo.Store(nil)
	}
}
