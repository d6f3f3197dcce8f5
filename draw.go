package aero9

import (
	"encoding/binary"
	"math"

	"github.com/aerogpu/aero9/cmdstream"
	"github.com/aerogpu/aero9/fixedfunc"
	"github.com/aerogpu/aero9/fvf"
)

// vertexCountFor converts a D3D primitive count to the vertex (or index)
// count the wire format carries.
func vertexCountFor(top cmdstream.Topology, primCount uint32) (uint32, bool) {
	if primCount == 0 {
		return 0, false
	}
	switch top {
	case cmdstream.TopologyPointList:
		return primCount, true
	case cmdstream.TopologyLineList:
		return primCount * 2, true
	case cmdstream.TopologyLineStrip:
		return primCount + 1, true
	case cmdstream.TopologyTriangleList:
		return primCount * 3, true
	case cmdstream.TopologyTriangleStrip, cmdstream.TopologyTriangleFan:
		return primCount + 2, true
	}
	return 0, false
}

// resolveVariantLocked classifies the current vertex layout source. The
// effective FVF is the set code or the one inferred from the bound
// declaration; it is 0 when a declaration defies inference.
func (d *Device) resolveVariantLocked() (fvf.Variant, uint32, error) {
	if d.usingDecl {
		implied, ok := fvf.InferFVF(d.declBlob)
		if !ok {
			return fvf.VariantNone, 0, nil
		}
		return fvf.Classify(implied), implied, nil
	}
	if d.currentFVF == 0 {
		return fvf.VariantNone, 0, ErrInvalidDeviceState
	}
	return fvf.Classify(d.currentFVF), d.currentFVF, nil
}

// ensureLayoutLocked returns the input layout handle for the current
// layout source, creating it on the wire at most once per distinct key.
func (d *Device) ensureLayoutLocked() (cmdstream.Handle, error) {
	if d.usingDecl {
		return d.ensureLayoutBlobLocked(d.declBlob)
	}
	return d.ensureLayoutFVFLocked(d.currentFVF)
}

func (d *Device) ensureLayoutFVFLocked(code uint32) (cmdstream.Handle, error) {
	return d.layoutsByFVF.GetOrCreate(code, func() (cmdstream.Handle, error) {
		elems := fvf.Translate(code)
		if elems == nil {
			return 0, ErrInvalidDeviceState
		}
		h := allocHandle()
		d.w.CreateInputLayout(h, fvf.EncodeElements(elems))
		if err := d.w.Err(); err != nil {
			return 0, err
		}
		Logger().Debug("aero9: input layout created", "fvf", code, "handle", h)
		return h, nil
	})
}

func (d *Device) ensureLayoutBlobLocked(blob []byte) (cmdstream.Handle, error) {
	return d.layoutsByBlob.GetOrCreate(string(blob), func() (cmdstream.Handle, error) {
		h := allocHandle()
		d.w.CreateInputLayout(h, blob)
		if err := d.w.Err(); err != nil {
			return 0, err
		}
		Logger().Debug("aero9: input layout created from declaration", "handle", h)
		return h, nil
	})
}

// ensureShaderLocked creates the wire object for a synthesized program,
// keyed by bytecode identity: byte-identical programs share one handle
// and one CREATE_SHADER_DXBC for the life of the device.
func (d *Device) ensureShaderLocked(s *fixedfunc.Shader) (cmdstream.Handle, error) {
	return d.shaders.GetOrCreate(string(s.Bytecode), func() (cmdstream.Handle, error) {
		h := allocHandle()
		d.w.CreateShaderDXBC(h, s.Stage, s.Bytecode)
		if err := d.w.Err(); err != nil {
			return 0, err
		}
		Logger().Debug("aero9: shader created", "name", s.Name, "handle", h)
		return h, nil
	})
}

// setupDrawLocked binds the layout, resolves and binds the shader pair,
// uploads whatever constants the selected programs read, and sets the
// topology. pretransformed selects the passthrough vertex family.
func (d *Device) setupDrawLocked(variant fvf.Variant, layout cmdstream.Handle,
	pretransformed bool, top cmdstream.Topology) error {

	if d.boundLayout != layout {
		d.w.SetInputLayout(layout)
		d.boundLayout = layout
	}

	var vsProg, psProg *fixedfunc.Shader
	vsH, psH := d.userVS, d.userPS
	if vsH == 0 {
		var err error
		vsProg, err = fixedfunc.SelectVS(variant, pretransformed)
		if err != nil {
			return ErrInvalidDeviceState
		}
		if vsH, err = d.ensureShaderLocked(vsProg); err != nil {
			return err
		}
	}
	if psH == 0 {
		psProg = fixedfunc.SelectPS(d.combiner, d.textures[0] != 0)
		var err error
		if psH, err = d.ensureShaderLocked(psProg); err != nil {
			return err
		}
	}
	if vsH != d.boundVS || psH != d.boundPS {
		d.w.BindShaders(vsH, psH, 0)
		d.boundVS, d.boundPS = vsH, psH
	}

	if vsProg != nil && !pretransformed {
		wvp := d.wvpLocked()
		if !d.wvpValid || wvp != d.wvpUploaded {
			d.w.SetShaderConstantsF(cmdstream.StageVertex, fixedfunc.WVPRegister, wvp.constants())
			d.wvpUploaded = wvp
			d.wvpValid = true
		}
	}
	if psProg == fixedfunc.PsStage0TextureFactor {
		if !d.tfactorValid || d.tfactor != d.tfactorUploaded {
			rgba := fixedfunc.TFactorToRGBA(d.tfactor)
			d.w.SetShaderConstantsF(cmdstream.StagePixel, fixedfunc.TFactorRegister, rgba[:])
			d.tfactorUploaded = d.tfactor
			d.tfactorValid = true
		}
	}

	if d.topology != top {
		d.w.SetPrimitiveTopology(top)
		d.topology = top
	}
	return d.w.Err()
}

func (d *Device) bindVertexStreamLocked(s vertexStream) error {
	if d.boundStream == s {
		return nil
	}
	d.w.SetVertexBuffers(0, []cmdstream.VertexBinding{{
		Buffer: s.buffer,
		Stride: s.stride,
		Offset: s.offset,
	}})
	d.boundStream = s
	return d.w.Err()
}

func (d *Device) bindIndexBufferLocked() error {
	if d.boundIndex == d.indexBuffer {
		return nil
	}
	d.w.SetIndexBuffer(d.indexBuffer, d.indexFormat, 0)
	d.boundIndex = d.indexBuffer
	return d.w.Err()
}

// wvpLocked composes world*view*projection in row-vector order.
func (d *Device) wvpLocked() Matrix {
	return d.transforms[TransformWorld].
		Mul(d.transforms[TransformView]).
		Mul(d.transforms[TransformProjection])
}

// rhwFVF rewrites an XYZ layout code as its pre-transformed equivalent.
func rhwFVF(code uint32) uint32 {
	return (code &^ fvf.PositionMask) | fvf.XYZRHW
}

// pretransform runs the vertex transform on the CPU: each float3 position
// becomes the float4 clip-space result, trailing attributes are copied.
func pretransform(src []byte, stride, count uint32, m Matrix) ([]byte, uint32) {
	newStride := stride + 4
	out := make([]byte, int(newStride)*int(count))
	for i := uint32(0); i < count; i++ {
		v := src[i*stride : (i+1)*stride]
		o := out[i*newStride : (i+1)*newStride]
		x := math.Float32frombits(binary.LittleEndian.Uint32(v[0:]))
		y := math.Float32frombits(binary.LittleEndian.Uint32(v[4:]))
		z := math.Float32frombits(binary.LittleEndian.Uint32(v[8:]))
		cx, cy, cz, cw := m.transformPoint(x, y, z)
		binary.LittleEndian.PutUint32(o[0:], math.Float32bits(cx))
		binary.LittleEndian.PutUint32(o[4:], math.Float32bits(cy))
		binary.LittleEndian.PutUint32(o[8:], math.Float32bits(cz))
		binary.LittleEndian.PutUint32(o[12:], math.Float32bits(cw))
		copy(o[16:], v[12:])
	}
	return out, newStride
}

// uploadScratchLocked puts data into the device-owned scratch vertex
// buffer, growing it when needed.
func (d *Device) uploadScratchLocked(data []byte) error {
	need := uint64(len(data))
	if d.scratch == 0 || d.scratchSize < need {
		if d.scratch != 0 {
			d.w.DestroyResource(d.scratch)
		}
		size := uint64(4096)
		for size < need {
			size *= 2
		}
		d.scratch = allocHandle()
		d.scratchSize = size
		d.w.CreateBuffer(d.scratch, cmdstream.UsageVertexBuffer, size)
	}
	d.w.UploadResource(d.scratch, 0, data)
	return d.w.Err()
}

// DrawPrimitive draws primCount primitives from the stream-0 vertex
// buffer starting at startVertex.
//
// Pre-transformed layouts draw directly. Untransformed (XYZ) layouts with
// a synthesized vertex stage are transformed on the CPU from the buffer's
// shadow copy into the scratch buffer, so the GPU always consumes
// clip-space positions on this path.
func (d *Device) DrawPrimitive(top cmdstream.Topology, startVertex, primCount uint32) error {
	vcount, ok := vertexCountFor(top, primCount)
	if !ok {
		return ErrInvalidParameter
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream0.buffer == 0 {
		return ErrInvalidDeviceState
	}
	variant, eff, err := d.resolveVariantLocked()
	if err != nil {
		return err
	}
	userPair := d.userVS != 0 && d.userPS != 0
	if variant == fvf.VariantNone && !userPair {
		return ErrInvalidDeviceState
	}

	// A user vertex shader owns the transform and was authored against the
	// app-declared layout, so it always draws directly from the app buffer.
	if d.userVS != 0 || variant.UsesRHW() {
		layout, err := d.ensureLayoutLocked()
		if err != nil {
			return err
		}
		if err := d.bindVertexStreamLocked(d.stream0); err != nil {
			return err
		}
		if err := d.setupDrawLocked(variant, layout, true, top); err != nil {
			return err
		}
		d.w.Draw(vcount, 1, startVertex, 0)
		return d.w.Err()
	}

	// CPU pre-transform path.
	shadow, ok := d.shadows[d.stream0.buffer]
	if !ok {
		return ErrInvalidDeviceState
	}
	stride := d.stream0.stride
	end := uint64(d.stream0.offset) + uint64(startVertex+vcount)*uint64(stride)
	if end > uint64(len(shadow)) {
		return ErrInvalidDeviceState
	}
	src := shadow[d.stream0.offset+startVertex*stride:]
	data, newStride := pretransform(src, stride, vcount, d.wvpLocked())

	layout, err := d.ensureLayoutFVFLocked(rhwFVF(eff))
	if err != nil {
		return err
	}
	if err := d.uploadScratchLocked(data); err != nil {
		return err
	}
	if err := d.bindVertexStreamLocked(vertexStream{buffer: d.scratch, stride: newStride}); err != nil {
		return err
	}
	if err := d.setupDrawLocked(variant, layout, true, top); err != nil {
		return err
	}
	d.w.Draw(vcount, 1, 0, 0)
	return d.w.Err()
}

// DrawIndexedPrimitive draws primCount indexed primitives. baseVertex is
// added to every index; startIndex selects where reading begins in the
// bound index buffer.
func (d *Device) DrawIndexedPrimitive(top cmdstream.Topology, baseVertex int32,
	startIndex, primCount uint32) error {
	icount, ok := vertexCountFor(top, primCount)
	if !ok {
		return ErrInvalidParameter
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream0.buffer == 0 || d.indexBuffer == 0 {
		return ErrInvalidDeviceState
	}
	variant, eff, err := d.resolveVariantLocked()
	if err != nil {
		return err
	}
	userPair := d.userVS != 0 && d.userPS != 0
	if variant == fvf.VariantNone && !userPair {
		return ErrInvalidDeviceState
	}

	if d.userVS != 0 || variant.UsesRHW() {
		layout, err := d.ensureLayoutLocked()
		if err != nil {
			return err
		}
		if err := d.bindVertexStreamLocked(d.stream0); err != nil {
			return err
		}
		if err := d.bindIndexBufferLocked(); err != nil {
			return err
		}
		if err := d.setupDrawLocked(variant, layout, true, top); err != nil {
			return err
		}
		d.w.DrawIndexed(icount, 1, startIndex, baseVertex, 0)
		return d.w.Err()
	}

	// Indices address arbitrary vertices, so the CPU path transforms the
	// whole shadowed range once and draws with the indices unchanged.
	shadow, ok := d.shadows[d.stream0.buffer]
	if !ok {
		return ErrInvalidDeviceState
	}
	stride := d.stream0.stride
	if uint64(d.stream0.offset) >= uint64(len(shadow)) {
		return ErrInvalidDeviceState
	}
	avail := uint32(uint64(len(shadow))-uint64(d.stream0.offset)) / stride
	if avail == 0 {
		return ErrInvalidDeviceState
	}
	src := shadow[d.stream0.offset:]
	data, newStride := pretransform(src, stride, avail, d.wvpLocked())

	layout, err := d.ensureLayoutFVFLocked(rhwFVF(eff))
	if err != nil {
		return err
	}
	if err := d.uploadScratchLocked(data); err != nil {
		return err
	}
	if err := d.bindVertexStreamLocked(vertexStream{buffer: d.scratch, stride: newStride}); err != nil {
		return err
	}
	if err := d.bindIndexBufferLocked(); err != nil {
		return err
	}
	if err := d.setupDrawLocked(variant, layout, true, top); err != nil {
		return err
	}
	d.w.DrawIndexed(icount, 1, startIndex, baseVertex, 0)
	return d.w.Err()
}

// DrawPrimitiveUP draws from caller-supplied vertex memory. The data goes
// to the scratch buffer; untransformed layouts keep their positions and
// draw with the transforming vertex shader and a WVP constant upload.
// Like D3D9, a UP draw leaves stream 0 unbound.
func (d *Device) DrawPrimitiveUP(top cmdstream.Topology, primCount uint32,
	vertexData []byte, stride uint32) error {
	vcount, ok := vertexCountFor(top, primCount)
	if !ok {
		return ErrInvalidParameter
	}
	if stride == 0 || uint64(len(vertexData)) < uint64(vcount)*uint64(stride) {
		return ErrInvalidParameter
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	variant, _, err := d.resolveVariantLocked()
	if err != nil {
		return err
	}
	userPair := d.userVS != 0 && d.userPS != 0
	if variant == fvf.VariantNone && !userPair {
		return ErrInvalidDeviceState
	}

	layout, err := d.ensureLayoutLocked()
	if err != nil {
		return err
	}
	if err := d.uploadScratchLocked(vertexData[:uint64(vcount)*uint64(stride)]); err != nil {
		return err
	}
	if err := d.bindVertexStreamLocked(vertexStream{buffer: d.scratch, stride: stride}); err != nil {
		return err
	}
	pretransformed := d.userVS != 0 || variant.UsesRHW()
	if err := d.setupDrawLocked(variant, layout, pretransformed, top); err != nil {
		return err
	}
	d.w.Draw(vcount, 1, 0, 0)
	if err := d.w.Err(); err != nil {
		return err
	}
	d.stream0 = vertexStream{}
	return nil
}
