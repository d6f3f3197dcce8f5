package native

import "errors"

// Package errors for the replay backend.
var (
	// ErrNotInitialized is returned when Submit is called before Init.
	ErrNotInitialized = errors.New("native: backend not initialized")

	// ErrNoGPU is returned when no GPU adapter is available.
	ErrNoGPU = errors.New("native: no GPU adapter available")

	// ErrUnknownHandle is returned when a packet references a handle that
	// was never created or was already destroyed.
	ErrUnknownHandle = errors.New("native: unknown handle")

	// ErrIncompleteDraw is returned when a draw arrives with required
	// state unbound (layout, shaders, vertex or index buffer).
	ErrIncompleteDraw = errors.New("native: draw with incomplete state")

	// ErrUploadOutOfBounds is returned when an upload writes past the end
	// of the target resource.
	ErrUploadOutOfBounds = errors.New("native: upload out of bounds")

	// ErrShaderCompile is returned when a fixed-function program's WGSL
	// mirror fails to compile.
	ErrShaderCompile = errors.New("native: shader compile failed")
)
