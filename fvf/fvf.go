// Package fvf models legacy Direct3D9 flexible vertex formats (FVF) and
// vertex declarations, and classifies them into the small set of
// fixed-function variants supported by the AeroGPU bring-up path.
//
// The package has three jobs:
//
//   - Translate an FVF bitmask into the canonical vertex declaration the
//     D3D9 runtime would synthesize for it (byte-exact, since downstream
//     consumers compare declaration blobs byte-for-byte).
//   - Infer an FVF back from a declaration blob, accepting the layout
//     variance real runtimes produce (element reordering, UNUSED padding,
//     POSITION/POSITIONT conflation).
//   - Classify either form into a Variant for shader selection.
//
// Everything here is pure computation over immutable inputs; there is no
// hidden state and no allocation beyond the returned slices.
package fvf

// FVF bit layout (from d3d9types.h). Only the subset consumed by the
// fixed-function path is named; everything else classifies as VariantNone.
const (
	XYZ    uint32 = 0x0002
	XYZRHW uint32 = 0x0004
	XYZB1  uint32 = 0x0006
	XYZB2  uint32 = 0x0008
	XYZB3  uint32 = 0x000A
	XYZB4  uint32 = 0x000C
	XYZB5  uint32 = 0x000E
	// XYZW combines the 0x4000 high bit with XYZ.
	XYZW uint32 = 0x4002

	Normal   uint32 = 0x0010
	PSize    uint32 = 0x0020
	Diffuse  uint32 = 0x0040
	Specular uint32 = 0x0080

	Tex1 uint32 = 0x0100
	Tex2 uint32 = 0x0200
	Tex3 uint32 = 0x0300
	Tex4 uint32 = 0x0400

	// LastBetaUByte4 / LastBetaD3DColor encode the type of the last blend
	// weight for the XYZBn position formats.
	LastBetaUByte4   uint32 = 0x1000
	LastBetaD3DColor uint32 = 0x8000

	TexCountMask  uint32 = 0x0F00
	TexCountShift        = 8

	// PositionMask includes the XYZW high bit (0x4000).
	PositionMask uint32 = 0x400E

	// TexCoordSizeMask covers the 2-bit-per-set texcoord size field that
	// starts at bit 16.
	TexCoordSizeMask uint32 = 0xFFFF0000
)

// MaxTexCoordSets is the number of texture coordinate sets addressable by
// the FVF texcoord-count field.
const MaxTexCoordSets = 8

// TexCount returns the number of texture coordinate sets requested by fvf.
func TexCount(fvf uint32) uint32 {
	return (fvf & TexCountMask) >> TexCountShift
}

// TexCoordDim returns the component count (1..4) of texcoord set `set`.
// The FVF size field encodes two bits per set starting at bit 16:
// 0 -> float2 (the default), 1 -> float3, 2 -> float4, 3 -> float1.
func TexCoordDim(fvf uint32, set uint32) uint32 {
	code := (fvf >> (16 + set*2)) & 0x3
	switch code {
	case 1:
		return 3
	case 2:
		return 4
	case 3:
		return 1
	default:
		return 2
	}
}

// TexCoordSizeBits returns the FVF size bits encoding a texcoord set of
// `dim` components at slot `set`, or 0 for an unsupported dimension.
// The zero return doubles as "default float2" since that is code 0.
func TexCoordSizeBits(dim, set uint32) uint32 {
	var code uint32
	switch dim {
	case 1:
		code = 3
	case 2:
		code = 0
	case 3:
		code = 1
	case 4:
		code = 2
	default:
		return 0
	}
	return code << (16 + set*2)
}

// positionFormat describes the position encoding selected by the FVF
// position bits.
type positionFormat struct {
	declType   DeclType
	usage      DeclUsage
	sizeBytes  uint16
	blendCount int  // trailing blend weights for XYZBn
	valid      bool
}

func positionFromFVF(fvf uint32) positionFormat {
	switch fvf & PositionMask {
	case XYZ:
		return positionFormat{TypeFloat3, UsagePosition, 12, 0, true}
	case XYZRHW:
		return positionFormat{TypeFloat4, UsagePositionT, 16, 0, true}
	case XYZW:
		return positionFormat{TypeFloat4, UsagePosition, 16, 0, true}
	case XYZB1:
		return positionFormat{TypeFloat3, UsagePosition, 12, 1, true}
	case XYZB2:
		return positionFormat{TypeFloat3, UsagePosition, 12, 2, true}
	case XYZB3:
		return positionFormat{TypeFloat3, UsagePosition, 12, 3, true}
	case XYZB4:
		return positionFormat{TypeFloat3, UsagePosition, 12, 4, true}
	case XYZB5:
		return positionFormat{TypeFloat3, UsagePosition, 12, 5, true}
	}
	return positionFormat{}
}
