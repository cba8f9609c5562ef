package station

import "errors"

// Normalized manager errors. Driver errors the manager cannot interpret
// pass through wrapped, with the vendor diagnostic preserved.
var (
	// ErrInvalidState reports an operation whose Started/Connected
	// precondition is unmet.
	ErrInvalidState = errors.New("INVALID_STATE")

	// ErrInvalidArgument reports a rejected caller argument (empty ssid).
	ErrInvalidArgument = errors.New("INVALID_ARGUMENT")

	// ErrTimeout reports an exceeded lock, signal-wait or drain bound.
	// It is surfaced immediately, never retried internally.
	ErrTimeout = errors.New("TIMEOUT")

	// ErrResourceExhausted reports an allocation failure while creating
	// the interface handle or the signaling primitive.
	ErrResourceExhausted = errors.New("RESOURCE_EXHAUSTED")

	// ErrConnectFailed reports a definite driver-side connection failure,
	// distinct from ErrTimeout.
	ErrConnectFailed = errors.New("CONNECT_FAILED")
)
