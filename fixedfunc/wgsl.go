package fixedfunc

import (
	"fmt"

	"github.com/gogpu/naga"
)

// SPIRV compiles the program's WGSL source to SPIR-V bytes for the replay
// backend. Selection never compiles; only a backend that executes the
// stream pays for compilation.
func (s *Shader) SPIRV() ([]byte, error) {
	spirv, err := naga.Compile(s.WGSL)
	if err != nil {
		return nil, fmt.Errorf("fixedfunc: compile %s: %w", s.Name, err)
	}
	return spirv, nil
}

// TFactorToRGBA converts the TEXTUREFACTOR render state (D3DCOLOR, ARGB
// packed) to the normalized RGBA float4 uploaded to pixel constant c0.
func TFactorToRGBA(argb uint32) [4]float32 {
	return [4]float32{
		float32(argb>>16&0xFF) / 255,
		float32(argb>>8&0xFF) / 255,
		float32(argb&0xFF) / 255,
		float32(argb>>24&0xFF) / 255,
	}
}
