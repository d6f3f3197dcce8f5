// Package aero9 implements the fixed-function core of a D3D9 user-mode
// driver for the AeroGPU paravirtual adapter. A Device tracks the D3D9
// state a title sets between draws, classifies the vertex layout, selects
// synthesized shaders, and encodes everything as an AeroGPU command stream.
package aero9

import (
	"sync"
	"sync/atomic"

	"github.com/aerogpu/aero9/cmdstream"
	"github.com/aerogpu/aero9/fixedfunc"
	"github.com/aerogpu/aero9/fvf"
	"github.com/aerogpu/aero9/internal/cache"
)

// Transform slots (D3DTRANSFORMSTATETYPE subset).
const (
	TransformView       uint32 = 2
	TransformProjection uint32 = 3
	TransformWorld      uint32 = 256
)

// RenderStateTextureFactor is D3DRS_TEXTUREFACTOR. The device does not
// echo it to the host; it materializes as a pixel constant upload when a
// factor-reading shader is selected.
const RenderStateTextureFactor uint32 = 60

const maxTextureStages = 8

const defaultTextureFactor = 0xFFFFFFFF

// handleCounter allocates wire handles. The host treats handles as one
// global namespace, so allocation is process-wide rather than per device.
var handleCounter atomic.Uint32

func allocHandle() cmdstream.Handle {
	return cmdstream.Handle(handleCounter.Add(1))
}

// vertexStream is the stream-0 vertex buffer binding.
type vertexStream struct {
	buffer cmdstream.Handle
	stride uint32
	offset uint32
}

// Device is one D3D9 device context. All entry points are safe for
// concurrent use; a single mutex serializes state access the way the
// runtime serializes calls into the driver.
type Device struct {
	mu   sync.Mutex
	w    *cmdstream.Writer
	opts deviceOptions

	// Vertex layout source: either an FVF code or a bound declaration
	// blob, whichever the title set last.
	currentFVF uint32
	declBlob   []byte
	usingDecl  bool

	// User shaders. Zero means the stage is synthesized.
	userVS, userPS cmdstream.Handle
	userShaders    map[cmdstream.Handle]cmdstream.ShaderStage

	// Stage-0 sampler bindings and combiner state.
	textures [maxTextureStages]cmdstream.Handle
	combiner fixedfunc.Combiner
	tss      map[uint64]uint32

	// TEXTUREFACTOR and the value last uploaded to pixel c0.
	tfactor         uint32
	tfactorUploaded uint32
	tfactorValid    bool

	transforms  map[uint32]Matrix
	wvpUploaded Matrix
	wvpValid    bool

	renderStates map[uint32]uint32

	topology    cmdstream.Topology
	stream0     vertexStream
	boundStream vertexStream
	indexBuffer cmdstream.Handle
	indexFormat cmdstream.IndexFormat
	boundIndex  cmdstream.Handle

	// Deduplication tables. Every distinct key emits its creation packet
	// exactly once for the life of the device.
	layoutsByFVF  *cache.Cache[uint32, cmdstream.Handle]
	layoutsByBlob *cache.Cache[string, cmdstream.Handle]
	shaders       *cache.Cache[string, cmdstream.Handle]

	boundLayout cmdstream.Handle
	boundVS     cmdstream.Handle
	boundPS     cmdstream.Handle

	// CPU shadows of vertex buffer contents, kept for the pre-transform
	// draw path.
	resources map[cmdstream.Handle]uint32 // handle -> usage flags
	shadows   map[cmdstream.Handle][]byte

	// Scratch buffer reused by the UP and pre-transform paths.
	scratch     cmdstream.Handle
	scratchSize uint64
}

// NewDevice creates a device with a fresh command stream.
func NewDevice(opts ...DeviceOption) *Device {
	o := defaultDeviceOptions()
	for _, opt := range opts {
		opt(&o)
	}

	d := &Device{
		w:            cmdstream.NewWriter(o.streamCapacity),
		opts:         o,
		userShaders:  make(map[cmdstream.Handle]cmdstream.ShaderStage),
		combiner:     fixedfunc.DefaultCombiner(),
		tss:          make(map[uint64]uint32),
		tfactor:      defaultTextureFactor,
		transforms:   make(map[uint32]Matrix),
		renderStates: make(map[uint32]uint32),
		resources:    make(map[cmdstream.Handle]uint32),
		shadows:      make(map[cmdstream.Handle][]byte),

		layoutsByFVF:  cache.New[uint32, cmdstream.Handle](o.layoutCacheLimit),
		layoutsByBlob: cache.New[string, cmdstream.Handle](o.layoutCacheLimit),
		shaders:       cache.New[string, cmdstream.Handle](o.shaderCacheLimit),
	}
	d.transforms[TransformWorld] = Identity()
	d.transforms[TransformView] = Identity()
	d.transforms[TransformProjection] = Identity()

	// Eviction must tell the host the handle is gone. Callbacks run under
	// the cache lock inside a device entry point, so d.w is safe.
	d.layoutsByFVF.OnEvict(func(_ uint32, h cmdstream.Handle) {
		d.w.DestroyInputLayout(h)
	})
	d.layoutsByBlob.OnEvict(func(_ string, h cmdstream.Handle) {
		d.w.DestroyInputLayout(h)
	})
	d.shaders.OnEvict(func(_ string, h cmdstream.Handle) {
		d.w.DestroyShader(h)
	})

	Logger().Info("aero9: device created",
		"streamCapacity", o.streamCapacity)
	return d
}

// SetFVF selects the flexible vertex format for subsequent draws and
// leaves declaration mode. FVF 0 is not a layout.
func (d *Device) SetFVF(code uint32) error {
	if code == 0 {
		return ErrInvalidParameter
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.currentFVF = code
	d.usingDecl = false
	return nil
}

// FVF returns the current FVF code, or 0 when a declaration is bound.
func (d *Device) FVF() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.usingDecl {
		return 0
	}
	return d.currentFVF
}

// SetVertexDeclaration binds a packed vertex declaration blob, leaving
// FVF mode. The blob must decode into elements ending in the terminator;
// whether the layout is usable is decided at draw time.
func (d *Device) SetVertexDeclaration(blob []byte) error {
	if !validDeclBlob(blob) {
		return ErrInvalidParameter
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.declBlob = append([]byte(nil), blob...)
	d.usingDecl = true
	return nil
}

func validDeclBlob(blob []byte) bool {
	if len(blob) == 0 || len(blob)%fvf.ElementSize != 0 {
		return false
	}
	for _, e := range fvf.DecodeElements(blob) {
		if e.IsTerminator() {
			return true
		}
	}
	return false
}

// SetTexture binds a texture to a sampler stage. Handle 0 unbinds. The
// binding is encoded immediately; shader reselection happens on the next
// draw, so swapping textures between draws is cheap.
func (d *Device) SetTexture(stage uint32, texture cmdstream.Handle) error {
	if stage >= maxTextureStages {
		return ErrInvalidParameter
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.textures[stage] == texture {
		return nil
	}
	d.textures[stage] = texture
	d.w.SetTexture(cmdstream.StagePixel, stage, texture)
	return d.w.Err()
}

// SetTextureStageState records one stage state value. Stage 0's combiner
// subset feeds pixel shader selection; everything else is tracked for
// readback only.
func (d *Device) SetTextureStageState(stage, state, value uint32) error {
	if stage >= maxTextureStages {
		return ErrInvalidParameter
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.tss[tssKey(stage, state)] = value
	if stage == 0 {
		d.combiner.Set(state, value)
	}
	return nil
}

// GetTextureStageState reads a stage state value back. Values never set
// return the D3D9 stage defaults for the combiner subset and 0 otherwise.
func (d *Device) GetTextureStageState(stage, state uint32) (uint32, error) {
	if stage >= maxTextureStages {
		return 0, ErrInvalidParameter
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if v, ok := d.tss[tssKey(stage, state)]; ok {
		return v, nil
	}
	if stage == 0 {
		if v, ok := d.combiner.Get(state); ok {
			return v, nil
		}
	} else {
		def := fixedfunc.DefaultCombiner()
		if v, ok := def.Get(state); ok {
			return v, nil
		}
	}
	return 0, nil
}

func tssKey(stage, state uint32) uint64 {
	return uint64(stage)<<32 | uint64(state)
}

// SetTransform stores a transform matrix. World, view, and projection
// feed the WVP constants of transforming vertex shaders; other slots are
// tracked for readback.
func (d *Device) SetTransform(slot uint32, m Matrix) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.transforms[slot] = m
	return nil
}

// GetTransform reads a transform back; unset slots return identity.
func (d *Device) GetTransform(slot uint32) Matrix {
	d.mu.Lock()
	defer d.mu.Unlock()

	if m, ok := d.transforms[slot]; ok {
		return m
	}
	return Identity()
}

// CreateShader uploads user shader bytecode and returns its handle. Only
// vertex and pixel stages exist on this device.
func (d *Device) CreateShader(stage cmdstream.ShaderStage, bytecode []byte) (cmdstream.Handle, error) {
	if len(bytecode) == 0 {
		return 0, ErrInvalidParameter
	}
	if stage != cmdstream.StageVertex && stage != cmdstream.StagePixel {
		return 0, ErrInvalidParameter
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	h := allocHandle()
	d.w.CreateShaderDXBC(h, stage, bytecode)
	if err := d.w.Err(); err != nil {
		return 0, err
	}
	d.userShaders[h] = stage
	return h, nil
}

// DestroyShader releases a user shader. A bound shader is unbound first;
// the following draw falls back to synthesis for that stage.
func (d *Device) DestroyShader(h cmdstream.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.userShaders[h]; !ok {
		return ErrInvalidParameter
	}
	delete(d.userShaders, h)
	if d.userVS == h {
		d.userVS = 0
	}
	if d.userPS == h {
		d.userPS = 0
	}
	d.w.DestroyShader(h)
	return d.w.Err()
}

// SetVertexShader binds a user vertex shader; 0 restores synthesis.
func (d *Device) SetVertexShader(h cmdstream.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if h != 0 {
		if stage, ok := d.userShaders[h]; !ok || stage != cmdstream.StageVertex {
			return ErrInvalidParameter
		}
	}
	d.userVS = h
	return nil
}

// SetPixelShader binds a user pixel shader; 0 restores synthesis.
func (d *Device) SetPixelShader(h cmdstream.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if h != 0 {
		if stage, ok := d.userShaders[h]; !ok || stage != cmdstream.StagePixel {
			return ErrInvalidParameter
		}
	}
	d.userPS = h
	return nil
}

// SetRenderState records a render state. TEXTUREFACTOR is interpreted by
// shader synthesis; every other state, known to the device or not, is
// echoed to the host, which skips what it does not implement.
func (d *Device) SetRenderState(state, value uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.renderStates[state] = value
	if state == RenderStateTextureFactor {
		d.tfactor = value
		return nil
	}
	d.w.SetRenderState(state, value)
	return d.w.Err()
}

// GetRenderState reads a render state back.
func (d *Device) GetRenderState(state uint32) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if v, ok := d.renderStates[state]; ok {
		return v
	}
	if state == RenderStateTextureFactor {
		return defaultTextureFactor
	}
	return 0
}

// SetStreamSource binds the stream-0 vertex buffer. Only stream 0 exists
// on this device. Handle 0 unbinds.
func (d *Device) SetStreamSource(slot uint32, buffer cmdstream.Handle, offset, stride uint32) error {
	if slot != 0 {
		return ErrInvalidParameter
	}
	if buffer != 0 && stride == 0 {
		return ErrInvalidParameter
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stream0 = vertexStream{buffer: buffer, stride: stride, offset: offset}
	return nil
}

// SetIndices binds the index buffer. Handle 0 unbinds.
func (d *Device) SetIndices(buffer cmdstream.Handle, format cmdstream.IndexFormat) error {
	if format != cmdstream.IndexUint16 && format != cmdstream.IndexUint32 {
		return ErrInvalidParameter
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.indexBuffer = buffer
	d.indexFormat = format
	return nil
}

// Clear clears the bound render target and/or depth-stencil.
func (d *Device) Clear(flags uint32, color [4]float32, depth float32, stencil uint32) error {
	if flags == 0 {
		return ErrInvalidParameter
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.w.Clear(flags, color, depth, stencil)
	return d.w.Err()
}

// DebugMarker appends a UTF-8 marker into the stream.
func (d *Device) DebugMarker(msg string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.w.DebugMarker(msg)
	return d.w.Err()
}

// DebugMarkerUTF16 appends a marker from the UTF-16LE strings the D3DPERF
// API delivers.
func (d *Device) DebugMarkerUTF16(raw []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.w.DebugMarkerUTF16(raw)
	return d.w.Err()
}

// Flush appends a FLUSH packet, finalizes the stream, hands it to the
// submitter if one is configured, and starts a fresh stream. The returned
// bytes are the caller's copy.
func (d *Device) Flush() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.w.Flush()
	return d.finishLocked()
}

// Present appends a PRESENT packet for the scanout and flushes like
// Flush.
func (d *Device) Present(scanoutID, flags uint32) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.w.Present(scanoutID, flags)
	return d.finishLocked()
}

func (d *Device) finishLocked() ([]byte, error) {
	data, err := d.w.Finalize()
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), data...)
	if d.opts.submitter != nil {
		if err := d.opts.submitter.Submit(out); err != nil {
			return nil, err
		}
	}
	d.w.Reset()
	return out, nil
}
