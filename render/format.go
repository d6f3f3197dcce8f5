package render

import (
	"github.com/gogpu/gputypes"

	"github.com/aerogpu/aero9/cmdstream"
)

// ToTextureFormat maps an AeroGPU wire format to the gputypes texture
// format the replay device uses. The X-channel formats map to their alpha
// equivalents; shaders force alpha to one where it matters. Formats the
// WebGPU device cannot represent (16-bit packed, sRGB BC variants on
// devices without BC) return ok = false.
func ToTextureFormat(f cmdstream.Format) (gputypes.TextureFormat, bool) {
	switch f {
	case cmdstream.FormatB8G8R8A8Unorm, cmdstream.FormatB8G8R8X8Unorm:
		return gputypes.TextureFormatBGRA8Unorm, true
	case cmdstream.FormatR8G8B8A8Unorm, cmdstream.FormatR8G8B8X8Unorm:
		return gputypes.TextureFormatRGBA8Unorm, true
	case cmdstream.FormatD24UnormS8Uint:
		return gputypes.TextureFormatDepth24PlusStencil8, true
	}
	return gputypes.TextureFormatUndefined, false
}

// FromTextureFormat maps a gputypes texture format back to the AeroGPU
// wire format, for surface-format negotiation with a host DeviceHandle.
func FromTextureFormat(f gputypes.TextureFormat) (cmdstream.Format, bool) {
	switch f {
	case gputypes.TextureFormatBGRA8Unorm:
		return cmdstream.FormatB8G8R8A8Unorm, true
	case gputypes.TextureFormatRGBA8Unorm:
		return cmdstream.FormatR8G8B8A8Unorm, true
	case gputypes.TextureFormatDepth24PlusStencil8:
		return cmdstream.FormatD24UnormS8Uint, true
	}
	return cmdstream.FormatInvalid, false
}
