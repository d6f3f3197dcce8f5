package aero9

import "errors"

// Device entry points return a tri-state outcome: nil on success,
// ErrInvalidParameter when an argument is malformed on its own, and
// ErrInvalidDeviceState when the arguments are fine but the accumulated
// device state cannot support the operation. State errors leave the
// tracked state untouched; the caller may fix the state and retry.
var (
	ErrInvalidParameter   = errors.New("aero9: invalid parameter")
	ErrInvalidDeviceState = errors.New("aero9: invalid device state")
)
