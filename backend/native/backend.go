// Package native executes AeroGPU command streams on a GPU device via
// gogpu/wgpu/hal. It registers itself as the "native" backend; importing
// the package is enough to make it selectable:
//
//	import _ "github.com/aerogpu/aero9/backend/native"
//
//	b, err := backend.InitDefault()
//
// Submit validates the stream, then replays it packet by packet: resource
// packets create GPU buffers and textures and mirror their handles, upload
// packets issue queue writes, shader packets resolve fixed-function
// bytecode back to its WGSL mirror and compile it to a shader module,
// state packets update a replay state block, and draws check that the
// bound state is complete.
package native

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/aerogpu/aero9"
	"github.com/aerogpu/aero9/backend"
)

// init registers the native backend on package import.
func init() {
	backend.Register(backend.BackendNative, func() backend.Backend {
		return New()
	})
}

// Backend replays command streams on a GPU device.
type Backend struct {
	mu sync.Mutex

	// GPU resources
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	gpuInfo *GPUInfo

	rep         *replayer
	initialized bool
}

// New creates a replay backend. It must be initialized with Init() before
// use.
func New() *Backend {
	return &Backend{}
}

// Name returns the backend identifier.
func (b *Backend) Name() string {
	return backend.BackendNative
}

// Init opens the GPU: backend, instance, adapter, device, queue.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}

	hb, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("%w: vulkan backend not available", ErrNoGPU)
	}
	instance, err := hb.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("%w: create instance: %w", ErrNoGPU, err)
	}
	b.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		b.instance = nil
		return fmt.Errorf("%w: no adapters found", ErrNoGPU)
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		b.instance = nil
		return fmt.Errorf("open device: %w", err)
	}
	b.device = openDev.Device
	b.queue = openDev.Queue
	b.gpuInfo = &GPUInfo{
		Name:       selected.Info.Name,
		DeviceType: selected.Info.DeviceType,
	}

	b.rep = newReplayer(b.device, b.queue)
	b.initialized = true
	aero9.Logger().Info("native: backend initialized", "gpu", b.gpuInfo.String())
	return nil
}

// Submit validates and replays one finalized command stream.
func (b *Backend) Submit(stream []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return ErrNotInitialized
	}
	return b.rep.process(stream)
}

// Stats returns counters accumulated over every submitted stream.
func (b *Backend) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rep == nil {
		return Stats{}
	}
	return b.rep.stats
}

// Close releases all GPU resources. The backend should not be used after
// Close is called.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return
	}
	b.rep.release()
	b.rep = nil
	b.device = nil
	b.queue = nil
	b.instance = nil
	b.gpuInfo = nil
	b.initialized = false
	aero9.Logger().Info("native: backend closed")
}

// IsInitialized reports whether Init has completed.
func (b *Backend) IsInitialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized
}

// Device returns the GPU device, or nil before Init.
func (b *Backend) Device() hal.Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.device
}

// Queue returns the GPU queue, or nil before Init.
func (b *Backend) Queue() hal.Queue {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue
}

// GPUInfo contains information about the selected GPU.
type GPUInfo struct {
	Name       string
	DeviceType gputypes.DeviceType
}

// String returns a human-readable description of the GPU.
func (g *GPUInfo) String() string {
	return fmt.Sprintf("%s (%v)", g.Name, g.DeviceType)
}
