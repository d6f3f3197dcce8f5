package cmdstream

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Validation errors. Callers match with errors.Is; the wrapped message
// carries the byte offset of the fault.
var (
	ErrBadMagic       = errors.New("cmdstream: bad stream magic")
	ErrBadABIVersion  = errors.New("cmdstream: unsupported ABI major version")
	ErrStreamTooShort = errors.New("cmdstream: buffer shorter than stream header")
	ErrBadStreamSize  = errors.New("cmdstream: stream size_bytes out of bounds")
	ErrBadPacket      = errors.New("cmdstream: malformed packet")
)

// Packet is a decoded view into a validated stream. Body excludes the
// 8-byte packet header; it aliases the stream buffer.
type Packet struct {
	Opcode Opcode
	Offset int // byte offset of the packet header within the stream
	Body   []byte
}

// Stream is a validated command stream ready for iteration.
type Stream struct {
	buf     []byte
	packets []Packet
}

// Validate checks the stream framing and walks every packet. It fails if:
//
//   - the buffer is shorter than the stream header, the magic is wrong, or
//     the ABI major version differs
//   - size_bytes is not 4-aligned, smaller than the header, or larger than
//     the buffer
//   - any packet size is smaller than the packet header, not 4-aligned, or
//     runs past size_bytes
//
// The walk must land exactly on size_bytes; a partial trailing packet is an
// error. Bytes past size_bytes are ignored.
func Validate(buf []byte) (*Stream, error) {
	if len(buf) < StreamHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrStreamTooShort, len(buf))
	}
	if magic := binary.LittleEndian.Uint32(buf[0:]); magic != StreamMagic {
		return nil, fmt.Errorf("%w: %#x", ErrBadMagic, magic)
	}
	abi := binary.LittleEndian.Uint32(buf[4:])
	if abi>>16 != ABIMajor {
		return nil, fmt.Errorf("%w: %d.%d", ErrBadABIVersion, abi>>16, abi&0xFFFF)
	}
	size := int(binary.LittleEndian.Uint32(buf[8:]))
	if size < StreamHeaderSize || size > len(buf) || size%4 != 0 {
		return nil, fmt.Errorf("%w: size_bytes=%d, buffer=%d", ErrBadStreamSize, size, len(buf))
	}

	s := &Stream{buf: buf[:size]}
	off := StreamHeaderSize
	for off < size {
		if size-off < PacketHeaderSize {
			return nil, fmt.Errorf("%w: truncated header at offset %d", ErrBadPacket, off)
		}
		op := Opcode(binary.LittleEndian.Uint32(buf[off:]))
		psize := int(binary.LittleEndian.Uint32(buf[off+4:]))
		if psize < PacketHeaderSize || psize%4 != 0 {
			return nil, fmt.Errorf("%w: opcode %v at offset %d has size_bytes=%d", ErrBadPacket, op, off, psize)
		}
		if psize > size-off {
			return nil, fmt.Errorf("%w: opcode %v at offset %d overruns stream by %d bytes", ErrBadPacket, op, off, psize-(size-off))
		}
		s.packets = append(s.packets, Packet{
			Opcode: op,
			Offset: off,
			Body:   buf[off+PacketHeaderSize : off+psize],
		})
		off += psize
	}
	return s, nil
}

// ABIVersion returns the stream header's abi_version field.
func (s *Stream) ABIVersion() uint32 {
	return binary.LittleEndian.Uint32(s.buf[4:])
}

// Packets returns every packet in stream order.
func (s *Stream) Packets() []Packet { return s.packets }

// CollectOpcode returns every packet with the given opcode, in order.
func (s *Stream) CollectOpcode(op Opcode) []Packet {
	var out []Packet
	for _, p := range s.packets {
		if p.Opcode == op {
			out = append(out, p)
		}
	}
	return out
}

// CountOpcode returns the number of packets with the given opcode.
func (s *Stream) CountOpcode(op Opcode) int {
	n := 0
	for _, p := range s.packets {
		if p.Opcode == op {
			n++
		}
	}
	return n
}

// CreateShaderDXBC is the decoded CREATE_SHADER_DXBC payload.
type CreateShaderDXBC struct {
	Handle   Handle
	Stage    ShaderStage
	Bytecode []byte
}

// DecodeCreateShaderDXBC decodes a CREATE_SHADER_DXBC packet body.
func DecodeCreateShaderDXBC(p Packet) (CreateShaderDXBC, error) {
	if p.Opcode != OpCreateShaderDXBC || len(p.Body) < sizeCreateShaderDXBC-PacketHeaderSize {
		return CreateShaderDXBC{}, fmt.Errorf("%w: not a CREATE_SHADER_DXBC packet", ErrBadPacket)
	}
	n := int(binary.LittleEndian.Uint32(p.Body[8:]))
	if n > len(p.Body)-16 {
		return CreateShaderDXBC{}, fmt.Errorf("%w: dxbc_size_bytes=%d exceeds packet body", ErrBadPacket, n)
	}
	return CreateShaderDXBC{
		Handle:   Handle(binary.LittleEndian.Uint32(p.Body[0:])),
		Stage:    ShaderStage(binary.LittleEndian.Uint32(p.Body[4:])),
		Bytecode: p.Body[16 : 16+n],
	}, nil
}

// CreateInputLayout is the decoded CREATE_INPUT_LAYOUT payload.
type CreateInputLayout struct {
	Handle Handle
	Blob   []byte
}

// DecodeCreateInputLayout decodes a CREATE_INPUT_LAYOUT packet body.
func DecodeCreateInputLayout(p Packet) (CreateInputLayout, error) {
	if p.Opcode != OpCreateInputLayout || len(p.Body) < sizeCreateInputLayout-PacketHeaderSize {
		return CreateInputLayout{}, fmt.Errorf("%w: not a CREATE_INPUT_LAYOUT packet", ErrBadPacket)
	}
	n := int(binary.LittleEndian.Uint32(p.Body[4:]))
	if n > len(p.Body)-12 {
		return CreateInputLayout{}, fmt.Errorf("%w: blob_size_bytes=%d exceeds packet body", ErrBadPacket, n)
	}
	return CreateInputLayout{
		Handle: Handle(binary.LittleEndian.Uint32(p.Body[0:])),
		Blob:   p.Body[12 : 12+n],
	}, nil
}

// BindShaders is the decoded BIND_SHADERS payload.
type BindShaders struct {
	VS, PS, CS Handle
}

// DecodeBindShaders decodes a BIND_SHADERS packet body.
func DecodeBindShaders(p Packet) (BindShaders, error) {
	if p.Opcode != OpBindShaders || len(p.Body) < sizeBindShaders-PacketHeaderSize {
		return BindShaders{}, fmt.Errorf("%w: not a BIND_SHADERS packet", ErrBadPacket)
	}
	return BindShaders{
		VS: Handle(binary.LittleEndian.Uint32(p.Body[0:])),
		PS: Handle(binary.LittleEndian.Uint32(p.Body[4:])),
		CS: Handle(binary.LittleEndian.Uint32(p.Body[8:])),
	}, nil
}

// ShaderConstantsF is the decoded SET_SHADER_CONSTANTS_F payload. Data is
// the raw float bytes, 16 per register.
type ShaderConstantsF struct {
	Stage         ShaderStage
	StartRegister uint32
	Vec4Count     uint32
	Data          []byte
}

// DecodeShaderConstantsF decodes a SET_SHADER_CONSTANTS_F packet body.
func DecodeShaderConstantsF(p Packet) (ShaderConstantsF, error) {
	if p.Opcode != OpSetShaderConstsF || len(p.Body) < sizeSetShaderConstsF-PacketHeaderSize {
		return ShaderConstantsF{}, fmt.Errorf("%w: not a SET_SHADER_CONSTANTS_F packet", ErrBadPacket)
	}
	count := binary.LittleEndian.Uint32(p.Body[8:])
	if int(count)*16 > len(p.Body)-16 {
		return ShaderConstantsF{}, fmt.Errorf("%w: vec4_count=%d exceeds packet body", ErrBadPacket, count)
	}
	return ShaderConstantsF{
		Stage:         ShaderStage(binary.LittleEndian.Uint32(p.Body[0:])),
		StartRegister: binary.LittleEndian.Uint32(p.Body[4:]),
		Vec4Count:     count,
		Data:          p.Body[16 : 16+int(count)*16],
	}, nil
}

// SetTexture is the decoded SET_TEXTURE payload.
type SetTexture struct {
	Stage   ShaderStage
	Slot    uint32
	Texture Handle
}

// DecodeSetTexture decodes a SET_TEXTURE packet body.
func DecodeSetTexture(p Packet) (SetTexture, error) {
	if p.Opcode != OpSetTexture || len(p.Body) < sizeSetTexture-PacketHeaderSize {
		return SetTexture{}, fmt.Errorf("%w: not a SET_TEXTURE packet", ErrBadPacket)
	}
	return SetTexture{
		Stage:   ShaderStage(binary.LittleEndian.Uint32(p.Body[0:])),
		Slot:    binary.LittleEndian.Uint32(p.Body[4:]),
		Texture: Handle(binary.LittleEndian.Uint32(p.Body[8:])),
	}, nil
}

// Draw is the decoded DRAW payload.
type Draw struct {
	VertexCount   uint32
	InstanceCount uint32
	FirstVertex   uint32
	FirstInstance uint32
}

// DecodeDraw decodes a DRAW packet body.
func DecodeDraw(p Packet) (Draw, error) {
	if p.Opcode != OpDraw || len(p.Body) < sizeDraw-PacketHeaderSize {
		return Draw{}, fmt.Errorf("%w: not a DRAW packet", ErrBadPacket)
	}
	return Draw{
		VertexCount:   binary.LittleEndian.Uint32(p.Body[0:]),
		InstanceCount: binary.LittleEndian.Uint32(p.Body[4:]),
		FirstVertex:   binary.LittleEndian.Uint32(p.Body[8:]),
		FirstInstance: binary.LittleEndian.Uint32(p.Body[12:]),
	}, nil
}

// DrawIndexed is the decoded DRAW_INDEXED payload.
type DrawIndexed struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	FirstInstance uint32
}

// DecodeDrawIndexed decodes a DRAW_INDEXED packet body.
func DecodeDrawIndexed(p Packet) (DrawIndexed, error) {
	if p.Opcode != OpDrawIndexed || len(p.Body) < sizeDrawIndexed-PacketHeaderSize {
		return DrawIndexed{}, fmt.Errorf("%w: not a DRAW_INDEXED packet", ErrBadPacket)
	}
	return DrawIndexed{
		IndexCount:    binary.LittleEndian.Uint32(p.Body[0:]),
		InstanceCount: binary.LittleEndian.Uint32(p.Body[4:]),
		FirstIndex:    binary.LittleEndian.Uint32(p.Body[8:]),
		BaseVertex:    int32(binary.LittleEndian.Uint32(p.Body[12:])),
		FirstInstance: binary.LittleEndian.Uint32(p.Body[16:]),
	}, nil
}

// UploadResource is the decoded UPLOAD_RESOURCE payload.
type UploadResource struct {
	Handle Handle
	Offset uint64
	Data   []byte
}

// DecodeUploadResource decodes an UPLOAD_RESOURCE packet body.
func DecodeUploadResource(p Packet) (UploadResource, error) {
	if p.Opcode != OpUploadResource || len(p.Body) < sizeUploadResource-PacketHeaderSize {
		return UploadResource{}, fmt.Errorf("%w: not an UPLOAD_RESOURCE packet", ErrBadPacket)
	}
	n := binary.LittleEndian.Uint64(p.Body[16:])
	if n > uint64(len(p.Body)-24) {
		return UploadResource{}, fmt.Errorf("%w: upload size_bytes=%d exceeds packet body", ErrBadPacket, n)
	}
	return UploadResource{
		Handle: Handle(binary.LittleEndian.Uint32(p.Body[0:])),
		Offset: binary.LittleEndian.Uint64(p.Body[8:]),
		Data:   p.Body[24 : 24+int(n)],
	}, nil
}
