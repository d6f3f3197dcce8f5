// Package cmdstream builds and validates AeroGPU command streams.
//
// A command stream is a little-endian byte buffer: a 24-byte stream header
// followed by a sequence of packets. Every packet starts with an 8-byte
// header {opcode, size_bytes}; size_bytes includes the header, is a multiple
// of 4, and is the only thing a consumer needs to skip unknown opcodes.
package cmdstream

// StreamMagic identifies a command stream ("ACMD" little-endian).
const StreamMagic uint32 = 0x444D4341

// ABI version carried in every stream header, encoded (major<<16)|minor.
// Consumers reject a major mismatch and accept any minor.
const (
	ABIMajor   uint32 = 1
	ABIMinor   uint32 = 3
	ABIVersion uint32 = ABIMajor<<16 | ABIMinor
)

// Fixed sizes shared by writer and reader.
const (
	StreamHeaderSize = 24
	PacketHeaderSize = 8
)

// Opcode identifies a packet type.
type Opcode uint32

const (
	OpNop         Opcode = 0x000
	OpDebugMarker Opcode = 0x001 // UTF-8 bytes follow the header

	// Resource / memory
	OpCreateBuffer    Opcode = 0x100
	OpCreateTexture2D Opcode = 0x101
	OpDestroyResource Opcode = 0x102
	OpUploadResource  Opcode = 0x104

	// Shaders / pipeline
	OpCreateShaderDXBC   Opcode = 0x200
	OpDestroyShader      Opcode = 0x201
	OpBindShaders        Opcode = 0x202
	OpSetShaderConstsF   Opcode = 0x203
	OpCreateInputLayout  Opcode = 0x204
	OpDestroyInputLayout Opcode = 0x205
	OpSetInputLayout     Opcode = 0x206

	// Fixed state
	OpSetVertexBuffers     Opcode = 0x500
	OpSetIndexBuffer       Opcode = 0x501
	OpSetPrimitiveTopology Opcode = 0x502
	OpSetTexture           Opcode = 0x510
	OpSetSamplerState      Opcode = 0x511
	OpSetRenderState       Opcode = 0x512

	// Draw / clear
	OpClear       Opcode = 0x600
	OpDraw        Opcode = 0x601
	OpDrawIndexed Opcode = 0x602

	// Presentation
	OpPresent Opcode = 0x700
	OpFlush   Opcode = 0x720
)

var opcodeNames = map[Opcode]string{
	OpNop:                  "NOP",
	OpDebugMarker:          "DEBUG_MARKER",
	OpCreateBuffer:         "CREATE_BUFFER",
	OpCreateTexture2D:      "CREATE_TEXTURE2D",
	OpDestroyResource:      "DESTROY_RESOURCE",
	OpUploadResource:       "UPLOAD_RESOURCE",
	OpCreateShaderDXBC:     "CREATE_SHADER_DXBC",
	OpDestroyShader:        "DESTROY_SHADER",
	OpBindShaders:          "BIND_SHADERS",
	OpSetShaderConstsF:     "SET_SHADER_CONSTANTS_F",
	OpCreateInputLayout:    "CREATE_INPUT_LAYOUT",
	OpDestroyInputLayout:   "DESTROY_INPUT_LAYOUT",
	OpSetInputLayout:       "SET_INPUT_LAYOUT",
	OpSetVertexBuffers:     "SET_VERTEX_BUFFERS",
	OpSetIndexBuffer:       "SET_INDEX_BUFFER",
	OpSetPrimitiveTopology: "SET_PRIMITIVE_TOPOLOGY",
	OpSetTexture:           "SET_TEXTURE",
	OpSetSamplerState:      "SET_SAMPLER_STATE",
	OpSetRenderState:       "SET_RENDER_STATE",
	OpClear:                "CLEAR",
	OpDraw:                 "DRAW",
	OpDrawIndexed:          "DRAW_INDEXED",
	OpPresent:              "PRESENT",
	OpFlush:                "FLUSH",
}

func (op Opcode) String() string {
	if s, ok := opcodeNames[op]; ok {
		return s
	}
	return "Opcode(?)"
}

// Handle is a driver-allocated resource/shader/layout identifier. Handles
// live in one global namespace; 0 is never a valid handle and means
// "none"/"unbind" wherever a packet accepts it.
type Handle uint32

// ShaderStage selects the pipeline stage a shader or constant upload
// targets.
type ShaderStage uint32

const (
	StageVertex  ShaderStage = 0
	StagePixel   ShaderStage = 1
	StageCompute ShaderStage = 2
)

// Topology is the primitive topology for subsequent draws.
type Topology uint32

const (
	TopologyPointList     Topology = 1
	TopologyLineList      Topology = 2
	TopologyLineStrip     Topology = 3
	TopologyTriangleList  Topology = 4
	TopologyTriangleStrip Topology = 5
	TopologyTriangleFan   Topology = 6
)

// IndexFormat selects the element width of a bound index buffer.
type IndexFormat uint32

const (
	IndexUint16 IndexFormat = 0
	IndexUint32 IndexFormat = 1
)

// Buffer/texture usage flags for resource creation.
const (
	UsageVertexBuffer   uint32 = 1 << 0
	UsageIndexBuffer    uint32 = 1 << 1
	UsageConstantBuffer uint32 = 1 << 2
	UsageTexture        uint32 = 1 << 3
	UsageRenderTarget   uint32 = 1 << 4
	UsageDepthStencil   uint32 = 1 << 5
	UsageScanout        uint32 = 1 << 6
	UsageStorage        uint32 = 1 << 7
)

// Clear flags.
const (
	ClearColor   uint32 = 1 << 0
	ClearDepth   uint32 = 1 << 1
	ClearStencil uint32 = 1 << 2
)

// Present flags.
const PresentVSync uint32 = 1 << 0

// Format is the texture/surface pixel format.
type Format uint32

const (
	FormatInvalid           Format = 0
	FormatB8G8R8A8Unorm     Format = 1
	FormatB8G8R8X8Unorm     Format = 2
	FormatR8G8B8A8Unorm     Format = 3
	FormatR8G8B8X8Unorm     Format = 4
	FormatB5G6R5Unorm       Format = 5
	FormatB5G5R5A1Unorm     Format = 6
	FormatB8G8R8A8UnormSRGB Format = 7
	FormatB8G8R8X8UnormSRGB Format = 8
	FormatR8G8B8A8UnormSRGB Format = 9
	FormatR8G8B8X8UnormSRGB Format = 10
	FormatD24UnormS8Uint    Format = 11
	FormatD32Float          Format = 12
	FormatBC1RgbaUnorm      Format = 13
	FormatBC1RgbaUnormSRGB  Format = 14
	FormatBC2RgbaUnorm      Format = 15
	FormatBC2RgbaUnormSRGB  Format = 16
	FormatBC3RgbaUnorm      Format = 17
	FormatBC3RgbaUnormSRGB  Format = 18
	FormatBC7RgbaUnorm      Format = 19
	FormatBC7RgbaUnormSRGB  Format = 20
)

// Sampler state IDs and values for SET_SAMPLER_STATE.
const (
	SamplerStateMinFilter uint32 = 0
	SamplerStateMagFilter uint32 = 1
	SamplerStateMipFilter uint32 = 2
	SamplerStateAddressU  uint32 = 3
	SamplerStateAddressV  uint32 = 4
)

const (
	FilterNearest uint32 = 0
	FilterLinear  uint32 = 1
)

const (
	AddressClamp  uint32 = 0
	AddressRepeat uint32 = 1
	AddressMirror uint32 = 2
)

// Fixed packet sizes (header included). Variable-size packets list their
// fixed prefix only; the payload is padded to 4 bytes.
const (
	sizeCreateBuffer       = 40
	sizeCreateTexture2D    = 56
	sizeDestroyResource    = 16
	sizeUploadResource     = 32 // + data
	sizeCreateShaderDXBC   = 24 // + bytecode
	sizeDestroyShader      = 16
	sizeBindShaders        = 24
	sizeSetShaderConstsF   = 24 // + floats
	sizeCreateInputLayout  = 20 // + blob
	sizeDestroyInputLayout = 16
	sizeSetInputLayout     = 16
	sizeSetVertexBuffers   = 16 // + bindings
	sizeVertexBinding      = 16
	sizeSetIndexBuffer     = 24
	sizeSetTopology        = 16
	sizeSetTexture         = 24
	sizeSetSamplerState    = 24
	sizeSetRenderState     = 16
	sizeClear              = 36
	sizeDraw               = 24
	sizeDrawIndexed        = 28
	sizePresent            = 16
	sizeFlush              = 16
)

func align4(n int) int {
	return (n + 3) &^ 3
}
