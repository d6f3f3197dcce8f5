package cmdstream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrStreamOverflow is returned when appending a packet would exceed the
// writer's fixed capacity. The stream is poisoned: every later append and
// Finalize return the same error, and no partial packet is ever emitted.
var ErrStreamOverflow = errors.New("cmdstream: stream capacity exceeded")

// ErrNotFinalized is returned by Data before Finalize has run.
var ErrNotFinalized = errors.New("cmdstream: stream not finalized")

// Writer accumulates packets into a command stream. The zero value is not
// usable; call NewWriter. A Writer is not safe for concurrent use.
//
// Lifecycle: Reset (implicit in NewWriter), any number of appends, then
// Finalize to stamp size_bytes into the stream header. Reset recycles the
// buffer for the next frame without reallocating.
type Writer struct {
	buf       []byte
	capacity  int // 0 = grow without bound
	err       error
	finalized bool
}

// NewWriter returns a Writer with the given capacity in bytes. A capacity
// of 0 means the stream grows as needed; otherwise appends that would
// exceed it fail with ErrStreamOverflow rather than truncating.
func NewWriter(capacity int) *Writer {
	w := &Writer{capacity: capacity}
	w.Reset()
	return w
}

// Reset discards all packets and rewrites the stream header, keeping the
// allocated buffer. Any sticky error is cleared.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.err = nil
	w.finalized = false

	h := w.grow(StreamHeaderSize)
	binary.LittleEndian.PutUint32(h[0:], StreamMagic)
	binary.LittleEndian.PutUint32(h[4:], ABIVersion)
	binary.LittleEndian.PutUint32(h[8:], 0) // size_bytes, stamped by Finalize
	binary.LittleEndian.PutUint32(h[12:], 0)
	binary.LittleEndian.PutUint32(h[16:], 0)
	binary.LittleEndian.PutUint32(h[20:], 0)
}

// Err returns the sticky error, if any.
func (w *Writer) Err() error { return w.err }

// BytesUsed returns the current stream length in bytes, header included.
func (w *Writer) BytesUsed() int { return len(w.buf) }

// Finalize stamps size_bytes into the stream header and returns the
// completed stream. The returned slice aliases the writer's buffer and is
// valid until the next Reset.
func (w *Writer) Finalize() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	binary.LittleEndian.PutUint32(w.buf[8:], uint32(len(w.buf)))
	w.finalized = true
	return w.buf, nil
}

// Data returns the finalized stream. It fails if Finalize has not run or
// the stream is poisoned.
func (w *Writer) Data() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	if !w.finalized {
		return nil, ErrNotFinalized
	}
	return w.buf, nil
}

// grow extends the buffer by n bytes and returns the new region. It
// enforces the capacity limit; on overflow it poisons the writer and
// returns nil.
func (w *Writer) grow(n int) []byte {
	if w.err != nil {
		return nil
	}
	if w.capacity > 0 && len(w.buf)+n > w.capacity {
		w.err = fmt.Errorf("%w: need %d bytes, capacity %d",
			ErrStreamOverflow, len(w.buf)+n, w.capacity)
		return nil
	}
	off := len(w.buf)
	if cap(w.buf) < off+n {
		next := make([]byte, off, max(off+n, 2*cap(w.buf)))
		copy(next, w.buf)
		w.buf = next
	}
	w.buf = w.buf[:off+n]
	return w.buf[off:]
}

// beginPacket reserves size bytes (header included, already 4-aligned by
// every caller) and writes the packet header. Returns the packet body after
// the header, or nil if the writer is poisoned.
func (w *Writer) beginPacket(op Opcode, size int) []byte {
	p := w.grow(size)
	if p == nil {
		return nil
	}
	w.finalized = false
	binary.LittleEndian.PutUint32(p[0:], uint32(op))
	binary.LittleEndian.PutUint32(p[4:], uint32(size))
	return p[PacketHeaderSize:]
}

// Nop appends a NOP packet.
func (w *Writer) Nop() {
	w.beginPacket(OpNop, PacketHeaderSize)
}

// DebugMarker appends a UTF-8 marker string, padded to 4 bytes.
func (w *Writer) DebugMarker(msg string) {
	size := align4(PacketHeaderSize + len(msg))
	b := w.beginPacket(OpDebugMarker, size)
	if b == nil {
		return
	}
	copy(b, msg)
	for i := len(msg); i < len(b); i++ {
		b[i] = 0
	}
}

// CreateBuffer appends a CREATE_BUFFER packet.
func (w *Writer) CreateBuffer(handle Handle, usage uint32, sizeBytes uint64) {
	b := w.beginPacket(OpCreateBuffer, sizeCreateBuffer)
	if b == nil {
		return
	}
	binary.LittleEndian.PutUint32(b[0:], uint32(handle))
	binary.LittleEndian.PutUint32(b[4:], usage)
	binary.LittleEndian.PutUint64(b[8:], sizeBytes)
	binary.LittleEndian.PutUint32(b[16:], 0) // backing_alloc_id: host allocated
	binary.LittleEndian.PutUint32(b[20:], 0) // backing_offset_bytes
	binary.LittleEndian.PutUint64(b[24:], 0)
}

// CreateTexture2D appends a CREATE_TEXTURE2D packet.
func (w *Writer) CreateTexture2D(handle Handle, usage uint32, format Format,
	width, height, mipLevels, arrayLayers, rowPitch uint32) {
	b := w.beginPacket(OpCreateTexture2D, sizeCreateTexture2D)
	if b == nil {
		return
	}
	binary.LittleEndian.PutUint32(b[0:], uint32(handle))
	binary.LittleEndian.PutUint32(b[4:], usage)
	binary.LittleEndian.PutUint32(b[8:], uint32(format))
	binary.LittleEndian.PutUint32(b[12:], width)
	binary.LittleEndian.PutUint32(b[16:], height)
	binary.LittleEndian.PutUint32(b[20:], mipLevels)
	binary.LittleEndian.PutUint32(b[24:], arrayLayers)
	binary.LittleEndian.PutUint32(b[28:], rowPitch)
	binary.LittleEndian.PutUint32(b[32:], 0)
	binary.LittleEndian.PutUint32(b[36:], 0)
	binary.LittleEndian.PutUint64(b[40:], 0)
}

// DestroyResource appends a DESTROY_RESOURCE packet.
func (w *Writer) DestroyResource(handle Handle) {
	b := w.beginPacket(OpDestroyResource, sizeDestroyResource)
	if b == nil {
		return
	}
	binary.LittleEndian.PutUint32(b[0:], uint32(handle))
	binary.LittleEndian.PutUint32(b[4:], 0)
}

// UploadResource appends an UPLOAD_RESOURCE packet with inline data, padded
// to 4 bytes.
func (w *Writer) UploadResource(handle Handle, offset uint64, data []byte) {
	size := align4(sizeUploadResource + len(data))
	b := w.beginPacket(OpUploadResource, size)
	if b == nil {
		return
	}
	binary.LittleEndian.PutUint32(b[0:], uint32(handle))
	binary.LittleEndian.PutUint32(b[4:], 0)
	binary.LittleEndian.PutUint64(b[8:], offset)
	binary.LittleEndian.PutUint64(b[16:], uint64(len(data)))
	n := copy(b[24:], data)
	for i := 24 + n; i < len(b); i++ {
		b[i] = 0
	}
}

// CreateShaderDXBC appends a CREATE_SHADER_DXBC packet with inline
// bytecode, padded to 4 bytes.
func (w *Writer) CreateShaderDXBC(handle Handle, stage ShaderStage, bytecode []byte) {
	size := align4(sizeCreateShaderDXBC + len(bytecode))
	b := w.beginPacket(OpCreateShaderDXBC, size)
	if b == nil {
		return
	}
	binary.LittleEndian.PutUint32(b[0:], uint32(handle))
	binary.LittleEndian.PutUint32(b[4:], uint32(stage))
	binary.LittleEndian.PutUint32(b[8:], uint32(len(bytecode)))
	binary.LittleEndian.PutUint32(b[12:], 0)
	n := copy(b[16:], bytecode)
	for i := 16 + n; i < len(b); i++ {
		b[i] = 0
	}
}

// DestroyShader appends a DESTROY_SHADER packet.
func (w *Writer) DestroyShader(handle Handle) {
	b := w.beginPacket(OpDestroyShader, sizeDestroyShader)
	if b == nil {
		return
	}
	binary.LittleEndian.PutUint32(b[0:], uint32(handle))
	binary.LittleEndian.PutUint32(b[4:], 0)
}

// BindShaders appends a BIND_SHADERS packet. A zero handle unbinds the
// stage.
func (w *Writer) BindShaders(vs, ps, cs Handle) {
	b := w.beginPacket(OpBindShaders, sizeBindShaders)
	if b == nil {
		return
	}
	binary.LittleEndian.PutUint32(b[0:], uint32(vs))
	binary.LittleEndian.PutUint32(b[4:], uint32(ps))
	binary.LittleEndian.PutUint32(b[8:], uint32(cs))
	binary.LittleEndian.PutUint32(b[12:], 0)
}

// SetShaderConstantsF appends a SET_SHADER_CONSTANTS_F packet uploading
// len(values)/4 float4 registers starting at startRegister. len(values)
// must be a multiple of 4.
func (w *Writer) SetShaderConstantsF(stage ShaderStage, startRegister uint32, values []float32) {
	if len(values)%4 != 0 {
		if w.err == nil {
			w.err = fmt.Errorf("cmdstream: constant upload of %d floats is not a whole number of float4 registers", len(values))
		}
		return
	}
	size := sizeSetShaderConstsF + 4*len(values)
	b := w.beginPacket(OpSetShaderConstsF, size)
	if b == nil {
		return
	}
	binary.LittleEndian.PutUint32(b[0:], uint32(stage))
	binary.LittleEndian.PutUint32(b[4:], startRegister)
	binary.LittleEndian.PutUint32(b[8:], uint32(len(values)/4))
	binary.LittleEndian.PutUint32(b[12:], 0)
	for i, v := range values {
		binary.LittleEndian.PutUint32(b[16+4*i:], math.Float32bits(v))
	}
}

// CreateInputLayout appends a CREATE_INPUT_LAYOUT packet with the packed
// declaration blob, padded to 4 bytes.
func (w *Writer) CreateInputLayout(handle Handle, blob []byte) {
	size := align4(sizeCreateInputLayout + len(blob))
	b := w.beginPacket(OpCreateInputLayout, size)
	if b == nil {
		return
	}
	binary.LittleEndian.PutUint32(b[0:], uint32(handle))
	binary.LittleEndian.PutUint32(b[4:], uint32(len(blob)))
	binary.LittleEndian.PutUint32(b[8:], 0)
	n := copy(b[12:], blob)
	for i := 12 + n; i < len(b); i++ {
		b[i] = 0
	}
}

// DestroyInputLayout appends a DESTROY_INPUT_LAYOUT packet.
func (w *Writer) DestroyInputLayout(handle Handle) {
	b := w.beginPacket(OpDestroyInputLayout, sizeDestroyInputLayout)
	if b == nil {
		return
	}
	binary.LittleEndian.PutUint32(b[0:], uint32(handle))
	binary.LittleEndian.PutUint32(b[4:], 0)
}

// SetInputLayout appends a SET_INPUT_LAYOUT packet. Handle 0 unbinds.
func (w *Writer) SetInputLayout(handle Handle) {
	b := w.beginPacket(OpSetInputLayout, sizeSetInputLayout)
	if b == nil {
		return
	}
	binary.LittleEndian.PutUint32(b[0:], uint32(handle))
	binary.LittleEndian.PutUint32(b[4:], 0)
}

// VertexBinding describes one slot for SetVertexBuffers.
type VertexBinding struct {
	Buffer Handle
	Stride uint32
	Offset uint32
}

// SetVertexBuffers appends a SET_VERTEX_BUFFERS packet binding consecutive
// slots starting at startSlot.
func (w *Writer) SetVertexBuffers(startSlot uint32, bindings []VertexBinding) {
	size := sizeSetVertexBuffers + sizeVertexBinding*len(bindings)
	b := w.beginPacket(OpSetVertexBuffers, size)
	if b == nil {
		return
	}
	binary.LittleEndian.PutUint32(b[0:], startSlot)
	binary.LittleEndian.PutUint32(b[4:], uint32(len(bindings)))
	for i, bind := range bindings {
		off := 8 + sizeVertexBinding*i
		binary.LittleEndian.PutUint32(b[off+0:], uint32(bind.Buffer))
		binary.LittleEndian.PutUint32(b[off+4:], bind.Stride)
		binary.LittleEndian.PutUint32(b[off+8:], bind.Offset)
		binary.LittleEndian.PutUint32(b[off+12:], 0)
	}
}

// SetIndexBuffer appends a SET_INDEX_BUFFER packet. Handle 0 unbinds.
func (w *Writer) SetIndexBuffer(buffer Handle, format IndexFormat, offset uint32) {
	b := w.beginPacket(OpSetIndexBuffer, sizeSetIndexBuffer)
	if b == nil {
		return
	}
	binary.LittleEndian.PutUint32(b[0:], uint32(buffer))
	binary.LittleEndian.PutUint32(b[4:], uint32(format))
	binary.LittleEndian.PutUint32(b[8:], offset)
	binary.LittleEndian.PutUint32(b[12:], 0)
}

// SetPrimitiveTopology appends a SET_PRIMITIVE_TOPOLOGY packet.
func (w *Writer) SetPrimitiveTopology(topology Topology) {
	b := w.beginPacket(OpSetPrimitiveTopology, sizeSetTopology)
	if b == nil {
		return
	}
	binary.LittleEndian.PutUint32(b[0:], uint32(topology))
	binary.LittleEndian.PutUint32(b[4:], 0)
}

// SetTexture appends a SET_TEXTURE packet. Handle 0 unbinds the slot.
func (w *Writer) SetTexture(stage ShaderStage, slot uint32, texture Handle) {
	b := w.beginPacket(OpSetTexture, sizeSetTexture)
	if b == nil {
		return
	}
	binary.LittleEndian.PutUint32(b[0:], uint32(stage))
	binary.LittleEndian.PutUint32(b[4:], slot)
	binary.LittleEndian.PutUint32(b[8:], uint32(texture))
	binary.LittleEndian.PutUint32(b[12:], 0)
}

// SetSamplerState appends a SET_SAMPLER_STATE packet.
func (w *Writer) SetSamplerState(stage ShaderStage, slot, state, value uint32) {
	b := w.beginPacket(OpSetSamplerState, sizeSetSamplerState)
	if b == nil {
		return
	}
	binary.LittleEndian.PutUint32(b[0:], uint32(stage))
	binary.LittleEndian.PutUint32(b[4:], slot)
	binary.LittleEndian.PutUint32(b[8:], state)
	binary.LittleEndian.PutUint32(b[12:], value)
}

// SetRenderState appends a SET_RENDER_STATE packet. Unknown states are
// passed through; the host skips what it does not implement.
func (w *Writer) SetRenderState(state, value uint32) {
	b := w.beginPacket(OpSetRenderState, sizeSetRenderState)
	if b == nil {
		return
	}
	binary.LittleEndian.PutUint32(b[0:], state)
	binary.LittleEndian.PutUint32(b[4:], value)
}

// Clear appends a CLEAR packet.
func (w *Writer) Clear(flags uint32, color [4]float32, depth float32, stencil uint32) {
	b := w.beginPacket(OpClear, sizeClear)
	if b == nil {
		return
	}
	binary.LittleEndian.PutUint32(b[0:], flags)
	for i, c := range color {
		binary.LittleEndian.PutUint32(b[4+4*i:], math.Float32bits(c))
	}
	binary.LittleEndian.PutUint32(b[20:], math.Float32bits(depth))
	binary.LittleEndian.PutUint32(b[24:], stencil)
}

// Draw appends a DRAW packet.
func (w *Writer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	b := w.beginPacket(OpDraw, sizeDraw)
	if b == nil {
		return
	}
	binary.LittleEndian.PutUint32(b[0:], vertexCount)
	binary.LittleEndian.PutUint32(b[4:], instanceCount)
	binary.LittleEndian.PutUint32(b[8:], firstVertex)
	binary.LittleEndian.PutUint32(b[12:], firstInstance)
}

// DrawIndexed appends a DRAW_INDEXED packet.
func (w *Writer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	b := w.beginPacket(OpDrawIndexed, sizeDrawIndexed)
	if b == nil {
		return
	}
	binary.LittleEndian.PutUint32(b[0:], indexCount)
	binary.LittleEndian.PutUint32(b[4:], instanceCount)
	binary.LittleEndian.PutUint32(b[8:], firstIndex)
	binary.LittleEndian.PutUint32(b[12:], uint32(baseVertex))
	binary.LittleEndian.PutUint32(b[16:], firstInstance)
}

// Present appends a PRESENT packet.
func (w *Writer) Present(scanoutID, flags uint32) {
	b := w.beginPacket(OpPresent, sizePresent)
	if b == nil {
		return
	}
	binary.LittleEndian.PutUint32(b[0:], scanoutID)
	binary.LittleEndian.PutUint32(b[4:], flags)
}

// Flush appends a FLUSH packet.
func (w *Writer) Flush() {
	b := w.beginPacket(OpFlush, sizeFlush)
	if b == nil {
		return
	}
	binary.LittleEndian.PutUint32(b[0:], 0)
	binary.LittleEndian.PutUint32(b[4:], 0)
}
