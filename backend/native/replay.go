package native

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/aerogpu/aero9"
	"github.com/aerogpu/aero9/cmdstream"
	"github.com/aerogpu/aero9/fixedfunc"
	"github.com/aerogpu/aero9/fvf"
	"github.com/aerogpu/aero9/render"
)

// Stats counts replayed work across submissions.
type Stats struct {
	Streams  int
	Packets  int
	Draws    int
	Clears   int
	Presents int
	// Skipped counts packets with opcodes this replayer does not know.
	// The ABI requires walking them by size_bytes.
	Skipped int
}

// resource is one live buffer or texture.
type resource struct {
	isTexture bool
	usage     uint32
	size      uint64
	format    cmdstream.Format
	width     uint32
	height    uint32
	mipLevels uint32
	// data mirrors buffer uploads so draws can be checked against real
	// content sizes.
	data []byte

	gpuBuf hal.Buffer
	gpuTex hal.Texture
}

// shaderObj is one live shader. program is non-nil when the bytecode came
// from the fixed-function catalog; spirv is its compiled WGSL mirror and
// module the device object built from it.
type shaderObj struct {
	stage   cmdstream.ShaderStage
	program *fixedfunc.Shader
	spirv   []byte
	module  hal.ShaderModule
}

// vertexBinding mirrors one SET_VERTEX_BUFFERS entry.
type vertexBinding struct {
	buffer cmdstream.Handle
	stride uint32
	offset uint32
}

// replayState is the bound-state block draws are validated against.
type replayState struct {
	layout      cmdstream.Handle
	vs, ps, cs  cmdstream.Handle
	topology    cmdstream.Topology
	vertex      map[uint32]vertexBinding
	index       cmdstream.Handle
	indexFormat cmdstream.IndexFormat
	textures    map[uint32]cmdstream.Handle
}

// replayer walks validated streams and maintains the handle tables. With
// a nil device it tracks and checks only, keeping mirrors up to date; with
// a device it also creates GPU objects and issues queue writes.
type replayer struct {
	dev   hal.Device
	queue hal.Queue

	resources map[cmdstream.Handle]*resource
	shaders   map[cmdstream.Handle]*shaderObj
	layouts   map[cmdstream.Handle][]fvf.Element
	state     replayState
	stats     Stats
}

func newReplayer(dev hal.Device, queue hal.Queue) *replayer {
	return &replayer{
		dev:       dev,
		queue:     queue,
		resources: make(map[cmdstream.Handle]*resource),
		shaders:   make(map[cmdstream.Handle]*shaderObj),
		layouts:   make(map[cmdstream.Handle][]fvf.Element),
		state: replayState{
			vertex:   make(map[uint32]vertexBinding),
			textures: make(map[uint32]cmdstream.Handle),
		},
	}
}

// release destroys every GPU object still tracked.
func (r *replayer) release() {
	if r.dev == nil {
		return
	}
	for _, res := range r.resources {
		if res.gpuBuf != nil {
			r.dev.DestroyBuffer(res.gpuBuf)
		}
		if res.gpuTex != nil {
			r.dev.DestroyTexture(res.gpuTex)
		}
	}
	for _, sh := range r.shaders {
		if sh.module != nil {
			r.dev.DestroyShaderModule(sh.module)
		}
	}
}

// process validates one stream and replays every packet. State survives
// across streams, matching the host executor: a stream may draw with
// resources created by an earlier submission.
func (r *replayer) process(stream []byte) error {
	s, err := cmdstream.Validate(stream)
	if err != nil {
		return err
	}
	r.stats.Streams++
	for _, p := range s.Packets() {
		r.stats.Packets++
		if err := r.packet(p); err != nil {
			return fmt.Errorf("packet %v at offset %d: %w", p.Opcode, p.Offset, err)
		}
	}
	return nil
}

func (r *replayer) packet(p cmdstream.Packet) error {
	switch p.Opcode {
	case cmdstream.OpNop, cmdstream.OpDebugMarker:
		return nil

	case cmdstream.OpCreateBuffer:
		h := handleAt(p.Body, 0)
		size := binary.LittleEndian.Uint64(p.Body[8:])
		res := &resource{
			usage: binary.LittleEndian.Uint32(p.Body[4:]),
			size:  size,
			data:  make([]byte, size),
		}
		if r.dev != nil {
			buf, err := r.dev.CreateBuffer(&hal.BufferDescriptor{
				Label: "aero9_buffer",
				Size:  size,
				Usage: bufferUsage(res.usage),
			})
			if err != nil {
				return fmt.Errorf("create buffer: %w", err)
			}
			res.gpuBuf = buf
		}
		r.resources[h] = res
		return nil

	case cmdstream.OpCreateTexture2D:
		h := handleAt(p.Body, 0)
		res := &resource{
			isTexture: true,
			usage:     binary.LittleEndian.Uint32(p.Body[4:]),
			format:    cmdstream.Format(binary.LittleEndian.Uint32(p.Body[8:])),
			width:     binary.LittleEndian.Uint32(p.Body[12:]),
			height:    binary.LittleEndian.Uint32(p.Body[16:]),
			mipLevels: binary.LittleEndian.Uint32(p.Body[20:]),
		}
		if r.dev != nil {
			if gf, ok := render.ToTextureFormat(res.format); ok {
				tex, err := r.dev.CreateTexture(&hal.TextureDescriptor{
					Label:         "aero9_texture",
					Size:          hal.Extent3D{Width: res.width, Height: res.height, DepthOrArrayLayers: 1},
					MipLevelCount: res.mipLevels,
					SampleCount:   1,
					Dimension:     gputypes.TextureDimension2D,
					Format:        gf,
					Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
				})
				if err != nil {
					return fmt.Errorf("create texture: %w", err)
				}
				res.gpuTex = tex
			}
		}
		r.resources[h] = res
		return nil

	case cmdstream.OpDestroyResource:
		h := handleAt(p.Body, 0)
		res, ok := r.resources[h]
		if !ok {
			return fmt.Errorf("%w: resource %d", ErrUnknownHandle, h)
		}
		if res.gpuBuf != nil {
			r.dev.DestroyBuffer(res.gpuBuf)
		}
		if res.gpuTex != nil {
			r.dev.DestroyTexture(res.gpuTex)
		}
		delete(r.resources, h)
		// The host unbinds on destroy.
		for slot, vb := range r.state.vertex {
			if vb.buffer == h {
				delete(r.state.vertex, slot)
			}
		}
		if r.state.index == h {
			r.state.index = 0
		}
		for slot, tex := range r.state.textures {
			if tex == h {
				delete(r.state.textures, slot)
			}
		}
		return nil

	case cmdstream.OpUploadResource:
		up, err := cmdstream.DecodeUploadResource(p)
		if err != nil {
			return err
		}
		res, ok := r.resources[up.Handle]
		if !ok {
			return fmt.Errorf("%w: resource %d", ErrUnknownHandle, up.Handle)
		}
		if res.isTexture {
			// Texture payloads address the packed linear mip chain;
			// buffers are the only write-through path.
			return nil
		}
		if up.Offset+uint64(len(up.Data)) > res.size {
			return fmt.Errorf("%w: %d+%d > %d", ErrUploadOutOfBounds,
				up.Offset, len(up.Data), res.size)
		}
		copy(res.data[up.Offset:], up.Data)
		if res.gpuBuf != nil && len(up.Data) > 0 {
			r.queue.WriteBuffer(res.gpuBuf, up.Offset, up.Data)
		}
		return nil

	case cmdstream.OpCreateShaderDXBC:
		sh, err := cmdstream.DecodeCreateShaderDXBC(p)
		if err != nil {
			return err
		}
		obj := &shaderObj{stage: sh.Stage}
		if prog := fixedfunc.ByBytecode(sh.Bytecode); prog != nil {
			spirv, err := prog.SPIRV()
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrShaderCompile, prog.Name, err)
			}
			obj.program = prog
			obj.spirv = spirv
			if r.dev != nil {
				module, err := r.dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
					Label:  prog.Name,
					Source: hal.ShaderSource{SPIRV: spirvWords(spirv)},
				})
				if err != nil {
					return fmt.Errorf("%w: %s: %w", ErrShaderCompile, prog.Name, err)
				}
				obj.module = module
			}
			aero9.Logger().Debug("native: fixed-function shader compiled",
				"name", prog.Name, "spirvBytes", len(spirv))
		}
		r.shaders[sh.Handle] = obj
		return nil

	case cmdstream.OpDestroyShader:
		h := handleAt(p.Body, 0)
		sh, ok := r.shaders[h]
		if !ok {
			return fmt.Errorf("%w: shader %d", ErrUnknownHandle, h)
		}
		if sh.module != nil {
			r.dev.DestroyShaderModule(sh.module)
		}
		delete(r.shaders, h)
		return nil

	case cmdstream.OpBindShaders:
		bind, err := cmdstream.DecodeBindShaders(p)
		if err != nil {
			return err
		}
		r.state.vs, r.state.ps, r.state.cs = bind.VS, bind.PS, bind.CS
		return nil

	case cmdstream.OpSetShaderConstsF:
		_, err := cmdstream.DecodeShaderConstantsF(p)
		return err

	case cmdstream.OpCreateInputLayout:
		il, err := cmdstream.DecodeCreateInputLayout(p)
		if err != nil {
			return err
		}
		r.layouts[il.Handle] = fvf.DecodeElements(il.Blob)
		return nil

	case cmdstream.OpDestroyInputLayout:
		h := handleAt(p.Body, 0)
		if _, ok := r.layouts[h]; !ok {
			return fmt.Errorf("%w: input layout %d", ErrUnknownHandle, h)
		}
		delete(r.layouts, h)
		return nil

	case cmdstream.OpSetInputLayout:
		r.state.layout = handleAt(p.Body, 0)
		return nil

	case cmdstream.OpSetVertexBuffers:
		start := binary.LittleEndian.Uint32(p.Body[0:])
		count := binary.LittleEndian.Uint32(p.Body[4:])
		for i := uint32(0); i < count; i++ {
			e := p.Body[8+i*16:]
			vb := vertexBinding{
				buffer: handleAt(e, 0),
				stride: binary.LittleEndian.Uint32(e[4:]),
				offset: binary.LittleEndian.Uint32(e[8:]),
			}
			if vb.buffer == 0 {
				delete(r.state.vertex, start+i)
				continue
			}
			r.state.vertex[start+i] = vb
		}
		return nil

	case cmdstream.OpSetIndexBuffer:
		r.state.index = handleAt(p.Body, 0)
		r.state.indexFormat = cmdstream.IndexFormat(binary.LittleEndian.Uint32(p.Body[4:]))
		return nil

	case cmdstream.OpSetPrimitiveTopology:
		r.state.topology = cmdstream.Topology(binary.LittleEndian.Uint32(p.Body[0:]))
		return nil

	case cmdstream.OpSetTexture:
		st, err := cmdstream.DecodeSetTexture(p)
		if err != nil {
			return err
		}
		if st.Texture == 0 {
			delete(r.state.textures, st.Slot)
			return nil
		}
		r.state.textures[st.Slot] = st.Texture
		return nil

	case cmdstream.OpSetSamplerState, cmdstream.OpSetRenderState:
		// Pipeline-level state; applied when pipelines are built.
		return nil

	case cmdstream.OpClear:
		r.stats.Clears++
		return nil

	case cmdstream.OpDraw:
		if _, err := cmdstream.DecodeDraw(p); err != nil {
			return err
		}
		if err := r.checkDrawState(false); err != nil {
			return err
		}
		r.stats.Draws++
		return nil

	case cmdstream.OpDrawIndexed:
		if _, err := cmdstream.DecodeDrawIndexed(p); err != nil {
			return err
		}
		if err := r.checkDrawState(true); err != nil {
			return err
		}
		r.stats.Draws++
		return nil

	case cmdstream.OpPresent:
		r.stats.Presents++
		return nil

	case cmdstream.OpFlush:
		return nil
	}

	// Unknown opcode within a known ABI: skip by size_bytes.
	r.stats.Skipped++
	return nil
}

// checkDrawState verifies the bound-state block is complete and every
// referenced handle is live.
func (r *replayer) checkDrawState(indexed bool) error {
	if r.state.layout == 0 || r.state.vs == 0 || r.state.ps == 0 {
		return ErrIncompleteDraw
	}
	if _, ok := r.layouts[r.state.layout]; !ok {
		return fmt.Errorf("%w: input layout %d", ErrUnknownHandle, r.state.layout)
	}
	for _, h := range []cmdstream.Handle{r.state.vs, r.state.ps} {
		if _, ok := r.shaders[h]; !ok {
			return fmt.Errorf("%w: shader %d", ErrUnknownHandle, h)
		}
	}
	vb, ok := r.state.vertex[0]
	if !ok {
		return ErrIncompleteDraw
	}
	res, ok := r.resources[vb.buffer]
	if !ok || res.isTexture {
		return fmt.Errorf("%w: vertex buffer %d", ErrUnknownHandle, vb.buffer)
	}
	if indexed {
		if r.state.index == 0 {
			return ErrIncompleteDraw
		}
		ires, ok := r.resources[r.state.index]
		if !ok || ires.isTexture {
			return fmt.Errorf("%w: index buffer %d", ErrUnknownHandle, r.state.index)
		}
	}
	for slot, tex := range r.state.textures {
		res, ok := r.resources[tex]
		if !ok || !res.isTexture {
			return fmt.Errorf("%w: texture %d at slot %d", ErrUnknownHandle, tex, slot)
		}
	}
	return nil
}

func handleAt(b []byte, off int) cmdstream.Handle {
	return cmdstream.Handle(binary.LittleEndian.Uint32(b[off:]))
}

// bufferUsage maps wire usage flags onto WebGPU buffer usages. gputypes
// has no index usage; index data rides as storage.
func bufferUsage(usage uint32) gputypes.BufferUsage {
	u := gputypes.BufferUsageCopyDst
	if usage&cmdstream.UsageVertexBuffer != 0 {
		u |= gputypes.BufferUsageVertex
	}
	if usage&cmdstream.UsageConstantBuffer != 0 {
		u |= gputypes.BufferUsageUniform
	}
	if usage&(cmdstream.UsageIndexBuffer|cmdstream.UsageStorage) != 0 {
		u |= gputypes.BufferUsageStorage
	}
	return u
}

// spirvWords converts SPIR-V bytes to the little-endian 32-bit words a
// shader source takes.
func spirvWords(b []byte) []uint32 {
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return words
}
