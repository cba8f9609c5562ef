// Vendor error normalization. The vendor stack reports errors as opaque
// token strings; this table maps them deterministically to the stable
// classes the manager branches on, without heuristics. Unknown tokens
// map to INTERNAL.
package driver

import (
	"errors"
	"fmt"
	"strings"
)

// Normalized driver error classes.
var (
	ErrNotStarted     = errors.New("NOT_STARTED")
	ErrNotConnected   = errors.New("NOT_CONNECTED")
	ErrAlreadyStarted = errors.New("ALREADY_STARTED")
	ErrNoMemory       = errors.New("NO_MEM")
	ErrInternal       = errors.New("INTERNAL")
)

// VendorMap defines the error token mapping for a specific vendor stack.
type VendorMap struct {
	NotStarted     []string
	NotConnected   []string
	AlreadyStarted []string
	NoMemory       []string
}

// VendorErrorMappings contains the deterministic mapping tables per
// vendor. Extend by adding a vendor entry and a test per token; unknown
// vendors fall back to "generic".
var VendorErrorMappings = map[string]VendorMap{
	"espressif": {
		NotStarted: []string{
			"WIFI_NOT_STARTED",
			"WIFI_NOT_INIT",
			"WIFI_STOP_STATE",
		},
		NotConnected: []string{
			"WIFI_NOT_CONNECT",
			"WIFI_NOT_ASSOC",
			"STA_DISCONNECTED",
		},
		AlreadyStarted: []string{
			"WIFI_ALREADY_STARTED",
			"WIFI_START_STATE",
		},
		NoMemory: []string{
			"ESP_ERR_NO_MEM",
			"OUT_OF_MEMORY",
		},
	},
	"generic": {
		NotStarted:     []string{"NOT_STARTED", "NOT_INITIALIZED", "STOPPED"},
		NotConnected:   []string{"NOT_CONNECTED", "DISCONNECTED", "NO_ASSOC"},
		AlreadyStarted: []string{"ALREADY_STARTED", "ALREADY_RUNNING"},
		NoMemory:       []string{"NO_MEM", "OUT_OF_MEMORY", "ALLOC_FAILED"},
	},
}

// VendorError wraps a vendor error with its normalized class so callers
// can branch with errors.Is while keeping the original diagnostic.
type VendorError struct {
	Code     error // normalized class
	Original error // vendor error
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("%v (vendor: %v)", e.Code, e.Original)
}

func (e *VendorError) Unwrap() error {
	return e.Code
}

// Normalize maps a vendor error to a normalized class using the generic
// mapping table.
func Normalize(vendorErr error) error {
	return NormalizeWithVendor(vendorErr, "generic")
}

// NormalizeWithVendor maps a vendor error using a specific vendor table.
func NormalizeWithVendor(vendorErr error, vendorID string) error {
	if vendorErr == nil {
		return nil
	}

	// Already normalized errors pass through unchanged.
	var ve *VendorError
	if errors.As(vendorErr, &ve) {
		return vendorErr
	}

	return &VendorError{
		Code:     mapVendorErrorToClass(vendorErr.Error(), vendorID),
		Original: vendorErr,
	}
}

func mapVendorErrorToClass(msg string, vendorID string) error {
	vendorMap, exists := VendorErrorMappings[vendorID]
	if !exists {
		vendorMap = VendorErrorMappings["generic"]
	}

	upperMsg := strings.ToUpper(msg)

	for _, token := range vendorMap.NotStarted {
		if strings.Contains(upperMsg, token) {
			return ErrNotStarted
		}
	}
	for _, token := range vendorMap.AlreadyStarted {
		if strings.Contains(upperMsg, token) {
			return ErrAlreadyStarted
		}
	}
	for _, token := range vendorMap.NotConnected {
		if strings.Contains(upperMsg, token) {
			return ErrNotConnected
		}
	}
	for _, token := range vendorMap.NoMemory {
		if strings.Contains(upperMsg, token) {
			return ErrNoMemory
		}
	}

	return ErrInternal
}
