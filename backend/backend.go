package backend

import (
	"errors"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when Submit is called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")
)

// Backend name constants.
const (
	// BackendCapture is the name of the stream-capturing backend.
	BackendCapture = "capture"
	// BackendNative is the name of the WebGPU replay backend (gogpu/wgpu).
	BackendNative = "native"
)

// Backend consumes finalized command streams. It satisfies aero9.Submitter,
// so a backend can be handed directly to aero9.NewDevice.
//
// Backends must be registered via Register() and are selected via Get() or
// Default().
type Backend interface {
	// Name returns the backend identifier (e.g., "capture", "native").
	Name() string

	// Init initializes the backend. It must be called before Submit.
	Init() error

	// Submit consumes one finalized command stream. The backend must not
	// retain the slice past the call unless it copies it.
	Submit(stream []byte) error

	// Close releases all backend resources. The backend should not be
	// used after Close is called.
	Close()
}
