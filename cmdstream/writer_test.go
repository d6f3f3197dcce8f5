package cmdstream

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestWriterHeaderAndFinalize(t *testing.T) {
	w := NewWriter(0)
	w.Flush()

	data, err := w.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(data) != StreamHeaderSize+sizeFlush {
		t.Fatalf("stream length = %d, want %d", len(data), StreamHeaderSize+sizeFlush)
	}
	if got := binary.LittleEndian.Uint32(data[0:]); got != StreamMagic {
		t.Errorf("magic = %#x, want %#x", got, StreamMagic)
	}
	if got := binary.LittleEndian.Uint32(data[4:]); got != ABIVersion {
		t.Errorf("abi_version = %#x, want %#x", got, ABIVersion)
	}
	if got := binary.LittleEndian.Uint32(data[8:]); got != uint32(len(data)) {
		t.Errorf("size_bytes = %d, want %d", got, len(data))
	}
}

func TestWriterDataBeforeFinalize(t *testing.T) {
	w := NewWriter(0)
	if _, err := w.Data(); !errors.Is(err, ErrNotFinalized) {
		t.Errorf("Data before Finalize: err = %v, want ErrNotFinalized", err)
	}
	if _, err := w.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if _, err := w.Data(); err != nil {
		t.Errorf("Data after Finalize: %v", err)
	}

	// Appending after Finalize invalidates the snapshot until the next
	// Finalize.
	w.Flush()
	if _, err := w.Data(); !errors.Is(err, ErrNotFinalized) {
		t.Errorf("Data after post-Finalize append: err = %v, want ErrNotFinalized", err)
	}
}

func TestWriterResetRecyclesBuffer(t *testing.T) {
	w := NewWriter(0)
	for i := 0; i < 16; i++ {
		w.Draw(3, 1, 0, 0)
	}
	first, err := w.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	firstLen := len(first)

	w.Reset()
	if w.BytesUsed() != StreamHeaderSize {
		t.Fatalf("BytesUsed after Reset = %d, want %d", w.BytesUsed(), StreamHeaderSize)
	}
	w.Draw(3, 1, 0, 0)
	second, err := w.Finalize()
	if err != nil {
		t.Fatalf("Finalize after Reset: %v", err)
	}
	if len(second) >= firstLen {
		t.Errorf("second stream length = %d, want < %d", len(second), firstLen)
	}
	if got := binary.LittleEndian.Uint32(second[8:]); got != uint32(len(second)) {
		t.Errorf("size_bytes after Reset = %d, want %d", got, len(second))
	}
}

func TestWriterOverflowPoisonsStream(t *testing.T) {
	// Room for the header and one 16-byte packet, nothing more.
	w := NewWriter(StreamHeaderSize + sizeFlush)
	w.Flush()
	if w.Err() != nil {
		t.Fatalf("unexpected error before overflow: %v", w.Err())
	}

	w.Flush()
	if !errors.Is(w.Err(), ErrStreamOverflow) {
		t.Fatalf("Err after overflow = %v, want ErrStreamOverflow", w.Err())
	}

	// Poisoned: later appends and Finalize keep failing, nothing is
	// truncated or partially written.
	w.Draw(3, 1, 0, 0)
	if _, err := w.Finalize(); !errors.Is(err, ErrStreamOverflow) {
		t.Errorf("Finalize after overflow: err = %v, want ErrStreamOverflow", err)
	}

	// Reset clears the poison.
	w.Reset()
	w.Flush()
	if _, err := w.Finalize(); err != nil {
		t.Errorf("Finalize after Reset: %v", err)
	}
}

func TestWriterPacketAlignment(t *testing.T) {
	// Odd-length payloads must be padded so every packet offset stays
	// 4-aligned.
	w := NewWriter(0)
	w.DebugMarker("abc")
	w.CreateShaderDXBC(7, StagePixel, []byte{1, 2, 3, 4, 5})
	w.CreateInputLayout(9, bytes.Repeat([]byte{0xAA}, 10))
	w.UploadResource(3, 0, []byte{1, 2, 3})
	w.Draw(3, 1, 0, 0)

	data, err := w.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	s, err := Validate(data)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	for _, p := range s.Packets() {
		if p.Offset%4 != 0 {
			t.Errorf("packet %v at unaligned offset %d", p.Opcode, p.Offset)
		}
	}
	if got := len(s.Packets()); got != 5 {
		t.Errorf("packet count = %d, want 5", got)
	}
}

func TestWriterConstantUpload(t *testing.T) {
	w := NewWriter(0)
	vals := []float32{1, 0.5, 0.25, 1}
	w.SetShaderConstantsF(StagePixel, 0, vals)
	data, err := w.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	s, err := Validate(data)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	packets := s.CollectOpcode(OpSetShaderConstsF)
	if len(packets) != 1 {
		t.Fatalf("constant packet count = %d, want 1", len(packets))
	}
	c, err := DecodeShaderConstantsF(packets[0])
	if err != nil {
		t.Fatalf("DecodeShaderConstantsF: %v", err)
	}
	if c.Stage != StagePixel || c.StartRegister != 0 || c.Vec4Count != 1 {
		t.Errorf("decoded header = %+v", c)
	}
	for i, want := range vals {
		got := math.Float32frombits(binary.LittleEndian.Uint32(c.Data[4*i:]))
		if got != want {
			t.Errorf("constant[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestWriterConstantUploadRejectsPartialRegister(t *testing.T) {
	w := NewWriter(0)
	w.SetShaderConstantsF(StageVertex, 0, []float32{1, 2, 3})
	if w.Err() == nil {
		t.Fatal("partial float4 register accepted")
	}
}

func TestWriterVertexBuffers(t *testing.T) {
	w := NewWriter(0)
	w.SetVertexBuffers(0, []VertexBinding{
		{Buffer: 5, Stride: 28, Offset: 0},
		{Buffer: 6, Stride: 16, Offset: 64},
	})
	data, err := w.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	s, err := Validate(data)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	p := s.Packets()[0]
	if p.Opcode != OpSetVertexBuffers {
		t.Fatalf("opcode = %v", p.Opcode)
	}
	if got := binary.LittleEndian.Uint32(p.Body[4:]); got != 2 {
		t.Errorf("buffer_count = %d, want 2", got)
	}
	if got := binary.LittleEndian.Uint32(p.Body[8+16+4:]); got != 16 {
		t.Errorf("second binding stride = %d, want 16", got)
	}
}

func TestDebugMarkerUTF16(t *testing.T) {
	// "begin" in UTF-16LE with trailing NUL.
	raw := []byte{'b', 0, 'e', 0, 'g', 0, 'i', 0, 'n', 0, 0, 0}
	w := NewWriter(0)
	w.DebugMarkerUTF16(raw)
	data, err := w.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	s, err := Validate(data)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	markers := s.CollectOpcode(OpDebugMarker)
	if len(markers) != 1 {
		t.Fatalf("marker count = %d, want 1", len(markers))
	}
	if got := MarkerText(markers[0]); got != "begin" {
		t.Errorf("marker text = %q, want %q", got, "begin")
	}
}
