// Package fake provides a scriptable in-memory driver implementation.
// It backs the station manager tests and the host build of cmd/stationd,
// where no vendor wireless stack is present.
package fake

import (
	"errors"
	"fmt"
	"net/netip"
	"sync"

	"github.com/gridlight/stationd/internal/driver"
)

type netif struct {
	key driver.NetifKey
}

func (n *netif) Key() driver.NetifKey { return n.key }

type handler struct {
	class driver.EventClass
	fn    func(driver.Event)
}

// Driver implements driver.Driver with scriptable behavior.
//
// Hooks (OnConnect, OnScanStart, ...) run synchronously inside the
// corresponding call, which mirrors the real stack's command submission;
// event emission from a hook is indistinguishable from a fast driver.
// Tests may also call the Emit* methods from their own goroutines.
type Driver struct {
	mu       sync.Mutex
	netifs   map[driver.NetifKey]*netif
	handlers map[driver.Token]*handler
	nextTok  driver.Token

	mode    driver.Mode
	cfg     driver.Config
	started bool

	scanResults []driver.ScanResult
	ipInfo      driver.IPInfo

	// Call counters for assertions.
	ConnectCalls int
	ScanStarts   int
	ScanStops    int
	CreateCalls  int
	DestroyCalls int
	StartCalls   int
	StopCalls    int

	// Error injection per operation name ("connect", "scan-start", ...).
	Errs map[string]error

	// Behavior hooks, called with the driver's mutex released.
	OnConnect   func()
	OnScanStart func()
}

// New creates an idle fake driver with no interfaces and no handlers.
func New() *Driver {
	return &Driver{
		netifs:   make(map[driver.NetifKey]*netif),
		handlers: make(map[driver.Token]*handler),
		Errs:     make(map[string]error),
	}
}

func (d *Driver) injected(op string) error {
	if err, ok := d.Errs[op]; ok {
		return err
	}
	return nil
}

// LookupNetif returns an existing interface for key.
func (d *Driver) LookupNetif(key driver.NetifKey) (driver.Netif, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.netifs[key]
	if !ok {
		return nil, false
	}
	return n, true
}

// CreateNetif creates the interface for key.
func (d *Driver) CreateNetif(key driver.NetifKey) (driver.Netif, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("create-netif"); err != nil {
		return nil, err
	}
	if _, ok := d.netifs[key]; ok {
		return nil, fmt.Errorf("netif %s already exists", key)
	}
	d.CreateCalls++
	n := &netif{key: key}
	d.netifs[key] = n
	return n, nil
}

// DestroyNetif destroys a previously created interface.
func (d *Driver) DestroyNetif(n driver.Netif) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("destroy-netif"); err != nil {
		return err
	}
	if _, ok := d.netifs[n.Key()]; !ok {
		return fmt.Errorf("netif %s not found", n.Key())
	}
	d.DestroyCalls++
	delete(d.netifs, n.Key())
	return nil
}

// NetifCount reports how many interfaces currently exist.
func (d *Driver) NetifCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.netifs)
}

// RegisterHandler subscribes fn to a class.
func (d *Driver) RegisterHandler(class driver.EventClass, fn func(driver.Event)) (driver.Token, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("register"); err != nil {
		return 0, err
	}
	d.nextTok++
	tok := d.nextTok
	d.handlers[tok] = &handler{class: class, fn: fn}
	return tok, nil
}

// UnregisterHandler removes a handler by token.
func (d *Driver) UnregisterHandler(class driver.EventClass, tok driver.Token) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.handlers[tok]
	if !ok || h.class != class {
		return errors.New("handler not registered")
	}
	delete(d.handlers, tok)
	return nil
}

// HandlerCount reports how many handlers are currently registered.
func (d *Driver) HandlerCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.handlers)
}

// SetMode records the operating mode.
func (d *Driver) SetMode(m driver.Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("set-mode"); err != nil {
		return err
	}
	d.mode = m
	return nil
}

// SetConfig records station credentials.
func (d *Driver) SetConfig(cfg driver.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("set-config"); err != nil {
		return err
	}
	d.cfg = cfg
	return nil
}

// Config returns the last credentials passed to SetConfig.
func (d *Driver) Config() driver.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Start starts the interface and emits the sta-start event.
func (d *Driver) Start() error {
	d.mu.Lock()
	if err := d.injected("start"); err != nil {
		d.mu.Unlock()
		return err
	}
	if d.started {
		d.mu.Unlock()
		return errors.New("WIFI_ALREADY_STARTED")
	}
	d.started = true
	d.StartCalls++
	d.mu.Unlock()
	d.dispatch(driver.EventClassWiFi, driver.Event{Kind: driver.EventStaStart})
	return nil
}

// Stop stops the interface.
func (d *Driver) Stop() error {
	d.mu.Lock()
	if err := d.injected("stop"); err != nil {
		d.mu.Unlock()
		return err
	}
	if !d.started {
		d.mu.Unlock()
		return errors.New("WIFI_NOT_STARTED")
	}
	d.started = false
	d.StopCalls++
	d.mu.Unlock()
	d.dispatch(driver.EventClassWiFi, driver.Event{Kind: driver.EventStaStop})
	return nil
}

// Connect submits a connect command. Completion is scripted via the
// OnConnect hook or an explicit Emit* call.
func (d *Driver) Connect() error {
	d.mu.Lock()
	if err := d.injected("connect"); err != nil {
		d.mu.Unlock()
		return err
	}
	if !d.started {
		d.mu.Unlock()
		return errors.New("WIFI_NOT_STARTED")
	}
	d.ConnectCalls++
	hook := d.OnConnect
	d.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

// Disconnect submits a disconnect command.
func (d *Driver) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("disconnect"); err != nil {
		return err
	}
	if !d.started {
		return errors.New("WIFI_NOT_STARTED")
	}
	return nil
}

// ScanStart submits a scan command.
func (d *Driver) ScanStart() error {
	d.mu.Lock()
	if err := d.injected("scan-start"); err != nil {
		d.mu.Unlock()
		return err
	}
	if !d.started {
		d.mu.Unlock()
		return errors.New("WIFI_NOT_STARTED")
	}
	d.ScanStarts++
	hook := d.OnScanStart
	d.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

// ScanStop aborts an in-flight scan.
func (d *Driver) ScanStop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("scan-stop"); err != nil {
		return err
	}
	d.ScanStops++
	return nil
}

// ScanResults returns the records of the last completed scan.
func (d *Driver) ScanResults() ([]driver.ScanResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("scan-results"); err != nil {
		return nil, err
	}
	out := make([]driver.ScanResult, len(d.scanResults))
	copy(out, d.scanResults)
	return out, nil
}

// IPInfo returns the acquired address configuration.
func (d *Driver) IPInfo(n driver.Netif) (driver.IPInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("ip-info"); err != nil {
		return driver.IPInfo{}, err
	}
	return d.ipInfo, nil
}

func (d *Driver) dispatch(class driver.EventClass, ev driver.Event) {
	d.mu.Lock()
	fns := make([]func(driver.Event), 0, len(d.handlers))
	for _, h := range d.handlers {
		if h.class == class {
			fns = append(fns, h.fn)
		}
	}
	d.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// EmitGotIP emits the IP-acquired event with a canned address.
func (d *Driver) EmitGotIP() {
	info := driver.IPInfo{
		Addr:    netip.MustParseAddr("192.168.4.17"),
		Gateway: netip.MustParseAddr("192.168.4.1"),
		Netmask: netip.MustParseAddr("255.255.255.0"),
	}
	d.mu.Lock()
	d.ipInfo = info
	d.mu.Unlock()
	d.dispatch(driver.EventClassIP, driver.Event{Kind: driver.EventGotIP, IP: info})
}

// EmitDisconnected emits the disconnect event with a reason code.
func (d *Driver) EmitDisconnected(reason driver.Reason) {
	d.dispatch(driver.EventClassWiFi, driver.Event{Kind: driver.EventStaDisconnected, Reason: reason})
}

// EmitScanDone installs results and emits the scan-complete event.
func (d *Driver) EmitScanDone(results []driver.ScanResult) {
	d.mu.Lock()
	d.scanResults = results
	d.mu.Unlock()
	d.dispatch(driver.EventClassWiFi, driver.Event{Kind: driver.EventScanDone})
}
