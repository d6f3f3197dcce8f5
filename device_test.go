package aero9

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/aerogpu/aero9/cmdstream"
	"github.com/aerogpu/aero9/fixedfunc"
	"github.com/aerogpu/aero9/fvf"
)

// rhwColorVertices packs n XYZRHW|DIFFUSE vertices (stride 20).
func rhwColorVertices(n int) []byte {
	out := make([]byte, n*20)
	for i := 0; i < n; i++ {
		v := out[i*20:]
		binary.LittleEndian.PutUint32(v[0:], math.Float32bits(float32(i)*10))
		binary.LittleEndian.PutUint32(v[4:], math.Float32bits(float32(i)*20))
		binary.LittleEndian.PutUint32(v[8:], math.Float32bits(0.5))
		binary.LittleEndian.PutUint32(v[12:], math.Float32bits(1.0))
		binary.LittleEndian.PutUint32(v[16:], 0xFFFF0000) // opaque red
	}
	return out
}

// xyzColorVertices packs n XYZ|DIFFUSE vertices (stride 16).
func xyzColorVertices(n int) []byte {
	out := make([]byte, n*16)
	for i := 0; i < n; i++ {
		v := out[i*16:]
		binary.LittleEndian.PutUint32(v[0:], math.Float32bits(float32(i)))
		binary.LittleEndian.PutUint32(v[4:], math.Float32bits(float32(i)+1))
		binary.LittleEndian.PutUint32(v[8:], math.Float32bits(0))
		binary.LittleEndian.PutUint32(v[12:], 0xFF00FF00)
	}
	return out
}

// bindRhwTriangle does the minimal setup for one RHW_COLOR triangle.
func bindRhwTriangle(t *testing.T, d *Device) {
	t.Helper()
	vb, err := d.CreateVertexBuffer(64)
	if err != nil {
		t.Fatalf("CreateVertexBuffer: %v", err)
	}
	if err := d.UploadBuffer(vb, 0, rhwColorVertices(3)); err != nil {
		t.Fatalf("UploadBuffer: %v", err)
	}
	if err := d.SetFVF(fvf.XYZRHW | fvf.Diffuse); err != nil {
		t.Fatalf("SetFVF: %v", err)
	}
	if err := d.SetStreamSource(0, vb, 0, 20); err != nil {
		t.Fatalf("SetStreamSource: %v", err)
	}
}

func flushStream(t *testing.T, d *Device) *cmdstream.Stream {
	t.Helper()
	data, err := d.Flush()
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	s, err := cmdstream.Validate(data)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return s
}

func TestDrawRhwColorEmitsSaneCommands(t *testing.T) {
	d := NewDevice()
	bindRhwTriangle(t, d)
	if err := d.DrawPrimitive(cmdstream.TopologyTriangleList, 0, 1); err != nil {
		t.Fatalf("DrawPrimitive: %v", err)
	}
	s := flushStream(t, d)

	layouts := s.CollectOpcode(cmdstream.OpCreateInputLayout)
	if len(layouts) != 1 {
		t.Fatalf("CREATE_INPUT_LAYOUT count = %d, want 1", len(layouts))
	}
	il, err := cmdstream.DecodeCreateInputLayout(layouts[0])
	if err != nil {
		t.Fatalf("DecodeCreateInputLayout: %v", err)
	}
	wantBlob := fvf.EncodeElements(fvf.Translate(fvf.XYZRHW | fvf.Diffuse))
	if !bytes.Equal(il.Blob, wantBlob) {
		t.Errorf("layout blob mismatch:\n got %x\nwant %x", il.Blob, wantBlob)
	}

	if n := s.CountOpcode(cmdstream.OpSetInputLayout); n != 1 {
		t.Errorf("SET_INPUT_LAYOUT count = %d, want 1", n)
	}

	// One synthesized VS, one synthesized PS; nothing textured, so the
	// pixel side is the color passthrough.
	shaders := s.CollectOpcode(cmdstream.OpCreateShaderDXBC)
	if len(shaders) != 2 {
		t.Fatalf("CREATE_SHADER_DXBC count = %d, want 2", len(shaders))
	}
	var sawVS, sawPS bool
	for _, p := range shaders {
		sh, err := cmdstream.DecodeCreateShaderDXBC(p)
		if err != nil {
			t.Fatalf("DecodeCreateShaderDXBC: %v", err)
		}
		switch sh.Stage {
		case cmdstream.StageVertex:
			sawVS = true
			if !bytes.Equal(sh.Bytecode, fixedfunc.VsPassthroughPosColor.Bytecode) {
				t.Error("vertex shader is not the color passthrough")
			}
		case cmdstream.StagePixel:
			sawPS = true
			if !bytes.Equal(sh.Bytecode, fixedfunc.PsPassthroughColor.Bytecode) {
				t.Error("pixel shader is not the color passthrough")
			}
		}
	}
	if !sawVS || !sawPS {
		t.Errorf("missing shader stage: vs=%v ps=%v", sawVS, sawPS)
	}

	binds := s.CollectOpcode(cmdstream.OpBindShaders)
	if len(binds) != 1 {
		t.Fatalf("BIND_SHADERS count = %d, want 1", len(binds))
	}
	bind, _ := cmdstream.DecodeBindShaders(binds[0])
	if bind.VS == 0 || bind.PS == 0 || bind.CS != 0 {
		t.Errorf("bind = %+v", bind)
	}

	vbs := s.CollectOpcode(cmdstream.OpSetVertexBuffers)
	if len(vbs) != 1 {
		t.Fatalf("SET_VERTEX_BUFFERS count = %d, want 1", len(vbs))
	}
	if stride := binary.LittleEndian.Uint32(vbs[0].Body[12:]); stride != 20 {
		t.Errorf("stream 0 stride = %d, want 20", stride)
	}

	draws := s.CollectOpcode(cmdstream.OpDraw)
	if len(draws) != 1 {
		t.Fatalf("DRAW count = %d, want 1", len(draws))
	}
	dr, _ := cmdstream.DecodeDraw(draws[0])
	if dr.VertexCount != 3 || dr.InstanceCount != 1 || dr.FirstVertex != 0 {
		t.Errorf("draw = %+v", dr)
	}

	// Creation and binding precede the draw.
	drawOff := draws[0].Offset
	for _, p := range shaders {
		if p.Offset > drawOff {
			t.Error("shader created after the draw")
		}
	}
	if layouts[0].Offset > drawOff || binds[0].Offset > drawOff {
		t.Error("pipeline bound after the draw")
	}

	// No transform constants on the pre-transformed path.
	if n := s.CountOpcode(cmdstream.OpSetShaderConstsF); n != 0 {
		t.Errorf("constant uploads = %d, want 0", n)
	}
}

func TestLayoutCreatedOncePerKey(t *testing.T) {
	d := NewDevice()
	bindRhwTriangle(t, d)
	for i := 0; i < 3; i++ {
		if err := d.DrawPrimitive(cmdstream.TopologyTriangleList, 0, 1); err != nil {
			t.Fatalf("draw %d: %v", i, err)
		}
	}
	s := flushStream(t, d)
	if n := s.CountOpcode(cmdstream.OpCreateInputLayout); n != 1 {
		t.Errorf("CREATE_INPUT_LAYOUT count = %d, want 1", n)
	}
	if n := s.CountOpcode(cmdstream.OpSetInputLayout); n != 1 {
		t.Errorf("SET_INPUT_LAYOUT count = %d, want 1", n)
	}

	// A second FVF keys a second layout; returning to the first re-uses
	// both handle and binding from the cache across a flush.
	if err := d.SetFVF(fvf.XYZRHW | fvf.Diffuse | fvf.Tex1); err != nil {
		t.Fatal(err)
	}
	vb, _ := d.CreateVertexBuffer(256)
	if err := d.UploadBuffer(vb, 0, make([]byte, 84)); err != nil {
		t.Fatal(err)
	}
	if err := d.SetStreamSource(0, vb, 0, 28); err != nil {
		t.Fatal(err)
	}
	if err := d.DrawPrimitive(cmdstream.TopologyTriangleList, 0, 1); err != nil {
		t.Fatalf("draw tex1: %v", err)
	}
	s = flushStream(t, d)
	if n := s.CountOpcode(cmdstream.OpCreateInputLayout); n != 1 {
		t.Errorf("second key CREATE_INPUT_LAYOUT count = %d, want 1", n)
	}

	if err := d.SetFVF(fvf.XYZRHW | fvf.Diffuse); err != nil {
		t.Fatal(err)
	}
	if err := d.SetStreamSource(0, vb, 0, 20); err != nil {
		t.Fatal(err)
	}
	if err := d.DrawPrimitive(cmdstream.TopologyTriangleList, 0, 1); err != nil {
		t.Fatalf("draw back: %v", err)
	}
	s = flushStream(t, d)
	if n := s.CountOpcode(cmdstream.OpCreateInputLayout); n != 0 {
		t.Errorf("cached key re-created %d layouts", n)
	}
}

func TestDeclarationPathAgreesWithFVFPath(t *testing.T) {
	// The same layout reached through SetVertexDeclaration must select
	// the same shader pair as the FVF path.
	collectShaders := func(d *Device) [][]byte {
		var out [][]byte
		s := flushStream(t, d)
		for _, p := range s.CollectOpcode(cmdstream.OpCreateShaderDXBC) {
			sh, err := cmdstream.DecodeCreateShaderDXBC(p)
			if err != nil {
				t.Fatalf("DecodeCreateShaderDXBC: %v", err)
			}
			out = append(out, append([]byte(nil), sh.Bytecode...))
		}
		return out
	}

	viaFVF := NewDevice()
	bindRhwTriangle(t, viaFVF)
	if err := viaFVF.DrawPrimitive(cmdstream.TopologyTriangleList, 0, 1); err != nil {
		t.Fatalf("fvf draw: %v", err)
	}

	viaDecl := NewDevice()
	bindRhwTriangle(t, viaDecl)
	blob := fvf.EncodeElements(fvf.Translate(fvf.XYZRHW | fvf.Diffuse))
	if err := viaDecl.SetVertexDeclaration(blob); err != nil {
		t.Fatalf("SetVertexDeclaration: %v", err)
	}
	if err := viaDecl.DrawPrimitive(cmdstream.TopologyTriangleList, 0, 1); err != nil {
		t.Fatalf("decl draw: %v", err)
	}

	a := collectShaders(viaFVF)
	b := collectShaders(viaDecl)
	if len(a) != len(b) {
		t.Fatalf("shader counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			t.Errorf("shader %d differs between paths", i)
		}
	}
}

func TestTriStateErrors(t *testing.T) {
	d := NewDevice()

	if err := d.SetFVF(0); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("SetFVF(0) = %v", err)
	}
	if err := d.SetVertexDeclaration(nil); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("SetVertexDeclaration(nil) = %v", err)
	}
	if err := d.SetTexture(maxTextureStages, 1); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("SetTexture(8) = %v", err)
	}
	if err := d.SetStreamSource(1, 1, 0, 20); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("SetStreamSource(slot 1) = %v", err)
	}
	if err := d.SetStreamSource(0, 1, 0, 0); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("SetStreamSource(stride 0) = %v", err)
	}
	if err := d.DrawPrimitive(cmdstream.TopologyTriangleList, 0, 0); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("DrawPrimitive(0 prims) = %v", err)
	}

	// No layout source and no vertex buffer: state errors, not parameter
	// errors.
	vb, err := d.CreateVertexBuffer(64)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SetFVF(fvf.XYZRHW | fvf.Diffuse); err != nil {
		t.Fatal(err)
	}
	if err := d.DrawPrimitive(cmdstream.TopologyTriangleList, 0, 1); !errors.Is(err, ErrInvalidDeviceState) {
		t.Errorf("draw without stream source = %v", err)
	}

	// Unsupported layout with synthesized shaders is a state error, and
	// fixing the state afterwards lets the same draw succeed.
	if err := d.UploadBuffer(vb, 0, rhwColorVertices(3)); err != nil {
		t.Fatal(err)
	}
	if err := d.SetStreamSource(0, vb, 0, 20); err != nil {
		t.Fatal(err)
	}
	if err := d.SetFVF(fvf.XYZW | fvf.Diffuse); err != nil {
		t.Fatal(err)
	}
	if err := d.DrawPrimitive(cmdstream.TopologyTriangleList, 0, 1); !errors.Is(err, ErrInvalidDeviceState) {
		t.Errorf("unsupported FVF draw = %v", err)
	}
	if err := d.SetFVF(fvf.XYZRHW | fvf.Diffuse); err != nil {
		t.Fatal(err)
	}
	if err := d.DrawPrimitive(cmdstream.TopologyTriangleList, 0, 1); err != nil {
		t.Errorf("recovered draw = %v", err)
	}
}

func TestStatePersistsAcrossFlush(t *testing.T) {
	d := NewDevice()
	bindRhwTriangle(t, d)
	if err := d.DrawPrimitive(cmdstream.TopologyTriangleList, 0, 1); err != nil {
		t.Fatal(err)
	}
	flushStream(t, d)

	// Same state, new stream: the host retains bindings between
	// submissions, so only the draw goes out again.
	if err := d.DrawPrimitive(cmdstream.TopologyTriangleList, 0, 1); err != nil {
		t.Fatal(err)
	}
	s := flushStream(t, d)
	for _, op := range []cmdstream.Opcode{
		cmdstream.OpCreateInputLayout, cmdstream.OpSetInputLayout,
		cmdstream.OpCreateShaderDXBC, cmdstream.OpBindShaders,
		cmdstream.OpSetVertexBuffers, cmdstream.OpSetPrimitiveTopology,
	} {
		if n := s.CountOpcode(op); n != 0 {
			t.Errorf("%v re-emitted %d times after flush", op, n)
		}
	}
	if n := s.CountOpcode(cmdstream.OpDraw); n != 1 {
		t.Errorf("DRAW count = %d, want 1", n)
	}
}

func TestPresentFinalizesStream(t *testing.T) {
	d := NewDevice()
	data, err := d.Present(0, cmdstream.PresentVSync)
	if err != nil {
		t.Fatalf("Present: %v", err)
	}
	s, err := cmdstream.Validate(data)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if n := s.CountOpcode(cmdstream.OpPresent); n != 1 {
		t.Errorf("PRESENT count = %d, want 1", n)
	}
}

type captureSubmitter struct {
	streams [][]byte
}

func (c *captureSubmitter) Submit(stream []byte) error {
	c.streams = append(c.streams, stream)
	return nil
}

func TestSubmitterReceivesStreams(t *testing.T) {
	sub := &captureSubmitter{}
	d := NewDevice(WithSubmitter(sub))
	if err := d.Clear(cmdstream.ClearColor, [4]float32{0, 0, 0, 1}, 1, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Flush(); err != nil {
		t.Fatal(err)
	}
	if len(sub.streams) != 1 {
		t.Fatalf("submitter got %d streams, want 1", len(sub.streams))
	}
	if _, err := cmdstream.Validate(sub.streams[0]); err != nil {
		t.Errorf("submitted stream invalid: %v", err)
	}
}

func TestStreamOverflowIsSticky(t *testing.T) {
	d := NewDevice(WithStreamCapacity(cmdstream.StreamHeaderSize + 36))
	if err := d.Clear(cmdstream.ClearColor, [4]float32{0, 0, 0, 1}, 1, 0); err != nil {
		t.Fatalf("first clear: %v", err)
	}
	if err := d.Clear(cmdstream.ClearColor, [4]float32{0, 0, 0, 1}, 1, 0); !errors.Is(err, cmdstream.ErrStreamOverflow) {
		t.Fatalf("overflowing clear = %v", err)
	}
	if _, err := d.Flush(); !errors.Is(err, cmdstream.ErrStreamOverflow) {
		t.Errorf("Flush after overflow = %v", err)
	}
}

func TestRenderStateEchoAndReadback(t *testing.T) {
	d := NewDevice()
	// An arbitrary unknown state is passed through to the host.
	if err := d.SetRenderState(4242, 7); err != nil {
		t.Fatal(err)
	}
	if got := d.GetRenderState(4242); got != 7 {
		t.Errorf("GetRenderState = %d, want 7", got)
	}
	s := flushStream(t, d)
	if n := s.CountOpcode(cmdstream.OpSetRenderState); n != 1 {
		t.Fatalf("SET_RENDER_STATE count = %d, want 1", n)
	}

	// TEXTUREFACTOR never goes out as a render state; it becomes a
	// constant upload when a factor shader is selected.
	if err := d.SetRenderState(RenderStateTextureFactor, 0x11223344); err != nil {
		t.Fatal(err)
	}
	if got := d.GetRenderState(RenderStateTextureFactor); got != 0x11223344 {
		t.Errorf("TEXTUREFACTOR readback = %#x", got)
	}
	s = flushStream(t, d)
	if n := s.CountOpcode(cmdstream.OpSetRenderState); n != 0 {
		t.Errorf("TEXTUREFACTOR echoed as render state")
	}
}

func TestTextureStageStateReadback(t *testing.T) {
	d := NewDevice()
	if _, err := d.GetTextureStageState(maxTextureStages, fixedfunc.TSSColorOp); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("stage 8 = %v", err)
	}

	// Defaults before any set.
	v, err := d.GetTextureStageState(0, fixedfunc.TSSColorOp)
	if err != nil || v != fixedfunc.TOpModulate {
		t.Errorf("default COLOROP = %d, %v", v, err)
	}
	if err := d.SetTextureStageState(0, fixedfunc.TSSColorOp, fixedfunc.TOpAdd); err != nil {
		t.Fatal(err)
	}
	if v, _ := d.GetTextureStageState(0, fixedfunc.TSSColorOp); v != fixedfunc.TOpAdd {
		t.Errorf("COLOROP readback = %d, want ADD", v)
	}

	// Non-zero stages track values without feeding selection.
	if err := d.SetTextureStageState(3, fixedfunc.TSSAlphaOp, fixedfunc.TOpModulate); err != nil {
		t.Fatal(err)
	}
	if v, _ := d.GetTextureStageState(3, fixedfunc.TSSAlphaOp); v != fixedfunc.TOpModulate {
		t.Errorf("stage 3 ALPHAOP readback = %d", v)
	}
}

func TestDebugMarkers(t *testing.T) {
	d := NewDevice()
	if err := d.DebugMarker("frame start"); err != nil {
		t.Fatal(err)
	}
	raw := []byte{'u', 0, 'p', 0} // "up" in UTF-16LE
	if err := d.DebugMarkerUTF16(raw); err != nil {
		t.Fatal(err)
	}
	s := flushStream(t, d)
	markers := s.CollectOpcode(cmdstream.OpDebugMarker)
	if len(markers) != 2 {
		t.Fatalf("marker count = %d, want 2", len(markers))
	}
	if got := cmdstream.MarkerText(markers[0]); got != "frame start" {
		t.Errorf("marker 0 = %q", got)
	}
	if got := cmdstream.MarkerText(markers[1]); got != "up" {
		t.Errorf("marker 1 = %q", got)
	}
}

func TestConcurrentStateAccess(t *testing.T) {
	d := NewDevice()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 64; i++ {
				_ = d.SetRenderState(uint32(1000+g), uint32(i))
				_ = d.SetTextureStageState(0, fixedfunc.TSSColorOp, fixedfunc.TOpModulate)
				_, _ = d.GetTextureStageState(0, fixedfunc.TSSColorOp)
			}
		}(g)
	}
	wg.Wait()
	if _, err := d.Flush(); err != nil {
		t.Fatalf("Flush after concurrent access: %v", err)
	}
}
