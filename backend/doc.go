// Package backend provides a pluggable consumer abstraction for finalized
// AeroGPU command streams.
//
// A Device encodes draws into a command stream; a Backend is whatever sits
// on the other end of Submit: the WebGPU replay executor, a capture sink
// for tests and tooling, or (in a real guest) the kernel-mode submission
// channel.
//
// # Backend Registration
//
// Backends are registered via init() functions and selected at runtime.
// The capture backend is automatically registered on import:
//
//	import _ "github.com/aerogpu/aero9/backend"
//
// # Backend Selection
//
// Use Default() to get the best available backend, or Get() to request a
// specific backend by name:
//
//	// Get the default (best available) backend
//	b := backend.Default()
//
//	// Or request a specific backend
//	b := backend.Get("capture")
//
// # Usage with Device
//
// A backend satisfies aero9.Submitter, so it plugs straight into device
// creation:
//
//	b, err := backend.InitDefault()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//
//	dev := aero9.NewDevice(aero9.WithSubmitter(b))
//
// # Available Backends
//
// - "capture": validates and retains submitted streams (always available)
// - "native": WebGPU replay via gogpu/wgpu (import backend/native)
package backend
