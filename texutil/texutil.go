// Package texutil provides texture layout math for the packed linear
// subresource layout the host expects, plus D3D9 format translation and
// CPU mip generation for full-chain uploads.
package texutil

import (
	"image"
	"math/bits"

	xdraw "golang.org/x/image/draw"

	"github.com/aerogpu/aero9/cmdstream"
)

// D3D9 format codes (D3DFORMAT subset) and the DXT FourCC values.
const (
	D3DFmtA8R8G8B8 uint32 = 21
	D3DFmtX8R8G8B8 uint32 = 22
	D3DFmtR5G6B5   uint32 = 23
	D3DFmtX1R5G5B5 uint32 = 24
	D3DFmtA1R5G5B5 uint32 = 25
	D3DFmtA8B8G8R8 uint32 = 32
	D3DFmtD24S8    uint32 = 75

	FourCCDXT1 uint32 = 0x31545844
	FourCCDXT2 uint32 = 0x32545844
	FourCCDXT3 uint32 = 0x33545844
	FourCCDXT4 uint32 = 0x34545844
	FourCCDXT5 uint32 = 0x35545844
)

// FromD3D9Format maps a D3DFORMAT to the wire format.
func FromD3D9Format(d3dFormat uint32) (cmdstream.Format, bool) {
	switch d3dFormat {
	case D3DFmtA8R8G8B8:
		return cmdstream.FormatB8G8R8A8Unorm, true
	case D3DFmtX8R8G8B8:
		return cmdstream.FormatB8G8R8X8Unorm, true
	case D3DFmtR5G6B5:
		return cmdstream.FormatB5G6R5Unorm, true
	case D3DFmtX1R5G5B5, D3DFmtA1R5G5B5:
		return cmdstream.FormatB5G5R5A1Unorm, true
	case D3DFmtA8B8G8R8:
		return cmdstream.FormatR8G8B8A8Unorm, true
	case D3DFmtD24S8:
		return cmdstream.FormatD24UnormS8Uint, true
	case FourCCDXT1:
		return cmdstream.FormatBC1RgbaUnorm, true
	case FourCCDXT2, FourCCDXT3:
		return cmdstream.FormatBC2RgbaUnorm, true
	case FourCCDXT4, FourCCDXT5:
		return cmdstream.FormatBC3RgbaUnorm, true
	}
	return cmdstream.FormatInvalid, false
}

// IsBlockCompressed reports whether the format stores 4x4 texel blocks.
func IsBlockCompressed(f cmdstream.Format) bool {
	switch f {
	case cmdstream.FormatBC1RgbaUnorm, cmdstream.FormatBC1RgbaUnormSRGB,
		cmdstream.FormatBC2RgbaUnorm, cmdstream.FormatBC2RgbaUnormSRGB,
		cmdstream.FormatBC3RgbaUnorm, cmdstream.FormatBC3RgbaUnormSRGB,
		cmdstream.FormatBC7RgbaUnorm, cmdstream.FormatBC7RgbaUnormSRGB:
		return true
	}
	return false
}

// blockBytes returns the byte size of one 4x4 block for compressed
// formats.
func blockBytes(f cmdstream.Format) uint32 {
	switch f {
	case cmdstream.FormatBC1RgbaUnorm, cmdstream.FormatBC1RgbaUnormSRGB:
		return 8
	default:
		return 16
	}
}

// texelBytes returns the byte size of one texel for uncompressed formats.
func texelBytes(f cmdstream.Format) uint32 {
	switch f {
	case cmdstream.FormatB5G6R5Unorm, cmdstream.FormatB5G5R5A1Unorm:
		return 2
	default:
		return 4
	}
}

// RowPitch returns the byte stride between rows (block rows for
// compressed formats) at the given width.
func RowPitch(f cmdstream.Format, width uint32) uint32 {
	if IsBlockCompressed(f) {
		return ((width + 3) / 4) * blockBytes(f)
	}
	return width * texelBytes(f)
}

// MipDimensions returns the texel size of a mip level.
func MipDimensions(width, height, level uint32) (uint32, uint32) {
	w := width >> level
	h := height >> level
	if w == 0 {
		w = 1
	}
	if h == 0 {
		h = 1
	}
	return w, h
}

// FullMipChainLevels returns the level count down to 1x1.
func FullMipChainLevels(width, height uint32) uint32 {
	m := max(width, height)
	if m == 0 {
		return 1
	}
	return uint32(bits.Len32(m))
}

// mipSizeBytes returns the byte size of one mip level.
func mipSizeBytes(f cmdstream.Format, width, height, level uint32) uint32 {
	w, h := MipDimensions(width, height, level)
	rows := h
	if IsBlockCompressed(f) {
		rows = (h + 3) / 4
	}
	return RowPitch(f, w) * rows
}

// Layout describes the packed linear placement of a texture's mip chain:
// level i starts at Offsets[i] within the upload.
type Layout struct {
	Offsets   []uint32
	TotalSize uint32
}

// LayoutFor computes the packed linear layout for a 2D texture.
func LayoutFor(f cmdstream.Format, width, height, mipLevels uint32) Layout {
	if mipLevels == 0 {
		mipLevels = FullMipChainLevels(width, height)
	}
	l := Layout{Offsets: make([]uint32, mipLevels)}
	var off uint32
	for i := uint32(0); i < mipLevels; i++ {
		l.Offsets[i] = off
		off += mipSizeBytes(f, width, height, i)
	}
	l.TotalSize = off
	return l
}

// NextMip downsamples an RGBA image to the next mip level with a
// bilinear kernel.
func NextMip(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w := b.Dx() / 2
	h := b.Dy() / 2
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

// BuildMipChain packs a full RGBA mip chain in the linear layout,
// starting from the level-0 image. The result pairs with LayoutFor on
// FormatR8G8B8A8Unorm.
func BuildMipChain(level0 *image.RGBA) []byte {
	w := uint32(level0.Bounds().Dx())
	h := uint32(level0.Bounds().Dy())
	layout := LayoutFor(cmdstream.FormatR8G8B8A8Unorm, w, h, 0)

	out := make([]byte, layout.TotalSize)
	img := level0
	for i := range layout.Offsets {
		mw, mh := MipDimensions(w, h, uint32(i))
		pitch := RowPitch(cmdstream.FormatR8G8B8A8Unorm, mw)
		dst := out[layout.Offsets[i]:]
		for y := uint32(0); y < mh; y++ {
			row := img.Pix[int(y)*img.Stride : int(y)*img.Stride+int(pitch)]
			copy(dst[y*pitch:], row)
		}
		if i+1 < len(layout.Offsets) {
			img = NextMip(img)
		}
	}
	return out
}
