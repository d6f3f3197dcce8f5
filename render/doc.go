// Package render is the integration layer between the aero9 driver core
// and host GPU frameworks.
//
// The replay backend can either bring up its own WebGPU device or receive
// one from a host application. This package defines the handle interface
// for the second case and the translation between AeroGPU wire formats
// and gputypes texture formats.
//
// # Key Principle
//
// The driver core RECEIVES a GPU device from the host, it does not demand
// to create one. A host that already owns a device (a compositor, a test
// harness, a gogpu.App) implements DeviceHandle and shares it; headless
// consumers use NullDeviceHandle.
package render
