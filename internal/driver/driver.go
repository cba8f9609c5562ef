package driver

import (
	"net/netip"
)

// NetifKey identifies a logical network interface in the vendor stack.
type NetifKey string

// NetifKeySta is the well-known key of the station-mode interface. A
// co-resident subsystem (e.g. the mesh component) may create it first.
const NetifKeySta NetifKey = "WIFI_STA_DEF"

// Netif is an opaque handle to a network interface created by the vendor
// stack. Handles are comparable; at most one handle exists per key.
type Netif interface {
	Key() NetifKey
}

// Netifs is the interface-creation primitive of the vendor stack.
type Netifs interface {
	// LookupNetif returns an existing interface for key, if any.
	LookupNetif(key NetifKey) (Netif, bool)

	// CreateNetif creates the interface for key. Fails if the stack is
	// out of memory or the key already exists.
	CreateNetif(key NetifKey) (Netif, error)

	// DestroyNetif destroys an interface previously created with
	// CreateNetif. All event handlers for it must be unregistered first.
	DestroyNetif(n Netif) error
}

// EventClass names an asynchronous event source of the vendor stack.
type EventClass string

const (
	// EventClassWiFi carries driver state-change events (start, stop,
	// disconnect, scan completion).
	EventClassWiFi EventClass = "wifi"

	// EventClassIP carries IP-acquisition events.
	EventClassIP EventClass = "ip"
)

// EventKind discriminates events within a class.
type EventKind int

const (
	EventStaStart EventKind = iota + 1
	EventStaStop
	EventStaConnected
	EventStaDisconnected
	EventScanDone
	EventGotIP
	EventLostIP
)

// Event is delivered to registered callbacks. Callbacks run on the
// driver's own context, concurrently with any caller, and must not block.
type Event struct {
	Kind   EventKind
	Reason Reason // set for EventStaDisconnected
	IP     IPInfo // set for EventGotIP
}

// Token identifies a registered event handler. The zero Token means
// "unregistered".
type Token uint64

// Bus is the event-registration primitive of the vendor stack.
type Bus interface {
	// RegisterHandler subscribes fn to all events of a class.
	RegisterHandler(class EventClass, fn func(Event)) (Token, error)

	// UnregisterHandler removes a previously registered handler.
	// Unregistering an unknown token is an error.
	UnregisterHandler(class EventClass, tok Token) error
}

// Mode is the WiFi operating mode.
type Mode int

const (
	ModeNone Mode = iota
	ModeStation
	ModeAP
)

// Config carries station credentials for the next connect.
type Config struct {
	SSID     string
	Password string
}

// AuthMode is the advertised security of a scanned access point.
type AuthMode int

const (
	AuthOpen AuthMode = iota
	AuthWEP
	AuthWPAPSK
	AuthWPA2PSK
	AuthWPA3PSK
)

// ScanResult is one access point record from the last completed scan.
type ScanResult struct {
	SSID    string
	BSSID   [6]byte
	Channel uint8
	RSSI    int8
	Auth    AuthMode
}

// IPInfo is the address configuration acquired for the station interface.
type IPInfo struct {
	Addr    netip.Addr
	Gateway netip.Addr
	Netmask netip.Addr
}

// Reason is the vendor disconnect reason code.
type Reason int

const (
	ReasonNone          Reason = 0
	ReasonUnspecified   Reason = 1
	ReasonAuthExpire    Reason = 2
	ReasonAuthFailed    Reason = 15
	ReasonAssocExpired  Reason = 16
	ReasonBeaconTimeout Reason = 200
	ReasonNoAPFound     Reason = 201
)

// String returns the vendor token for the reason code.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "NONE"
	case ReasonUnspecified:
		return "UNSPECIFIED"
	case ReasonAuthExpire:
		return "AUTH_EXPIRE"
	case ReasonAuthFailed:
		return "AUTH_FAILED"
	case ReasonAssocExpired:
		return "ASSOC_EXPIRED"
	case ReasonBeaconTimeout:
		return "BEACON_TIMEOUT"
	case ReasonNoAPFound:
		return "NO_AP_FOUND"
	default:
		return "UNKNOWN"
	}
}

// WiFi is the driver control primitive set used by the station manager.
// All calls are synchronous command submissions; completion is reported
// through the event bus.
type WiFi interface {
	SetMode(m Mode) error
	SetConfig(cfg Config) error
	Start() error
	Stop() error
	Connect() error
	Disconnect() error
	ScanStart() error
	ScanStop() error
	ScanResults() ([]ScanResult, error)
	IPInfo(n Netif) (IPInfo, error)
}

// Driver is the full southbound surface consumed by the station manager.
type Driver interface {
	Netifs
	Bus
	WiFi
}
