package fvf

import "encoding/binary"

// DeclType is the data type of one vertex declaration element
// (D3DDECLTYPE).
type DeclType uint8

const (
	TypeFloat1   DeclType = 0
	TypeFloat2   DeclType = 1
	TypeFloat3   DeclType = 2
	TypeFloat4   DeclType = 3
	TypeD3DColor DeclType = 4
	TypeUByte4   DeclType = 5
	TypeUnused   DeclType = 17
)

// Size returns the packed byte size of the type, or 0 for TypeUnused and
// anything outside the supported subset.
func (t DeclType) Size() uint16 {
	switch t {
	case TypeFloat1:
		return 4
	case TypeFloat2:
		return 8
	case TypeFloat3:
		return 12
	case TypeFloat4:
		return 16
	case TypeD3DColor, TypeUByte4:
		return 4
	}
	return 0
}

func (t DeclType) String() string {
	switch t {
	case TypeFloat1:
		return "FLOAT1"
	case TypeFloat2:
		return "FLOAT2"
	case TypeFloat3:
		return "FLOAT3"
	case TypeFloat4:
		return "FLOAT4"
	case TypeD3DColor:
		return "D3DCOLOR"
	case TypeUByte4:
		return "UBYTE4"
	case TypeUnused:
		return "UNUSED"
	}
	return "DeclType(?)"
}

// DeclMethod is the tessellation method of an element (D3DDECLMETHOD).
// The fixed-function path only ever emits or accepts MethodDefault.
type DeclMethod uint8

const MethodDefault DeclMethod = 0

// DeclUsage is the semantic attached to an element (D3DDECLUSAGE).
type DeclUsage uint8

const (
	UsagePosition     DeclUsage = 0
	UsageBlendWeight  DeclUsage = 1
	UsageBlendIndices DeclUsage = 2
	UsageNormal       DeclUsage = 3
	UsagePSize        DeclUsage = 4
	UsageTexCoord     DeclUsage = 5
	UsagePositionT    DeclUsage = 9
	UsageColor        DeclUsage = 10
)

func (u DeclUsage) String() string {
	switch u {
	case UsagePosition:
		return "POSITION"
	case UsageBlendWeight:
		return "BLENDWEIGHT"
	case UsageBlendIndices:
		return "BLENDINDICES"
	case UsageNormal:
		return "NORMAL"
	case UsagePSize:
		return "PSIZE"
	case UsageTexCoord:
		return "TEXCOORD"
	case UsagePositionT:
		return "POSITIONT"
	case UsageColor:
		return "COLOR"
	}
	return "DeclUsage(?)"
}

// Element is one vertex declaration entry (D3DVERTEXELEMENT9). The wire
// encoding is 8 bytes, little-endian, packed:
//
//	Stream u16, Offset u16, Type u8, Method u8, Usage u8, UsageIndex u8
type Element struct {
	Stream     uint16
	Offset     uint16
	Type       DeclType
	Method     DeclMethod
	Usage      DeclUsage
	UsageIndex uint8
}

// ElementSize is the encoded size of one Element.
const ElementSize = 8

// Terminator is the D3DDECL_END sentinel that closes every declaration.
var Terminator = Element{Stream: 0xFF, Type: TypeUnused}

// IsTerminator reports whether e is the declaration-closing sentinel.
func (e Element) IsTerminator() bool {
	return e.Stream == 0xFF && e.Type == TypeUnused
}

// EncodeElements serializes elems (which should already include the
// terminator) into the packed wire blob.
func EncodeElements(elems []Element) []byte {
	blob := make([]byte, 0, len(elems)*ElementSize)
	var buf [ElementSize]byte
	for _, e := range elems {
		binary.LittleEndian.PutUint16(buf[0:2], e.Stream)
		binary.LittleEndian.PutUint16(buf[2:4], e.Offset)
		buf[4] = byte(e.Type)
		buf[5] = byte(e.Method)
		buf[6] = byte(e.Usage)
		buf[7] = e.UsageIndex
		blob = append(blob, buf[:]...)
	}
	return blob
}

// DecodeElements parses a packed declaration blob. Trailing bytes that do
// not form a whole element are ignored; the caller decides whether a
// missing terminator matters.
func DecodeElements(blob []byte) []Element {
	n := len(blob) / ElementSize
	elems := make([]Element, 0, n)
	for i := 0; i < n; i++ {
		b := blob[i*ElementSize:]
		elems = append(elems, Element{
			Stream:     binary.LittleEndian.Uint16(b[0:2]),
			Offset:     binary.LittleEndian.Uint16(b[2:4]),
			Type:       DeclType(b[4]),
			Method:     DeclMethod(b[5]),
			Usage:      DeclUsage(b[6]),
			UsageIndex: b[7],
		})
	}
	return elems
}
