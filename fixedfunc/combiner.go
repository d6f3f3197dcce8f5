// Package fixedfunc synthesizes the shader programs that stand in for the
// D3D9 fixed-function pipeline. Draws from fixed-function titles carry no
// user shaders; the driver selects a precompiled vertex/pixel shader pair
// from the vertex layout variant and the stage-0 texture combiner state.
package fixedfunc

// Texture stage state IDs (D3DTEXTURESTAGESTATETYPE subset the stage-0
// combiner consumes).
const (
	TSSColorOp   uint32 = 1
	TSSColorArg1 uint32 = 2
	TSSColorArg2 uint32 = 3
	TSSAlphaOp   uint32 = 4
	TSSAlphaArg1 uint32 = 5
	TSSAlphaArg2 uint32 = 6
)

// Texture ops (D3DTEXTUREOP subset).
const (
	TOpDisable    uint32 = 1
	TOpSelectArg1 uint32 = 2
	TOpSelectArg2 uint32 = 3
	TOpModulate   uint32 = 4
	TOpModulate2x uint32 = 5
	TOpModulate4x uint32 = 6
	TOpAdd        uint32 = 7
	TOpSubtract   uint32 = 10
)

// Texture argument selectors (D3DTA subset).
const (
	TArgDiffuse uint32 = 0
	TArgCurrent uint32 = 1
	TArgTexture uint32 = 2
	TArgTFactor uint32 = 3
)

// Combiner is the stage-0 combiner state that feeds pixel shader
// selection. Stages past 0 are not part of the bring-up surface; a title
// that programs them gets the stage-0 result.
type Combiner struct {
	ColorOp   uint32
	ColorArg1 uint32
	ColorArg2 uint32
	AlphaOp   uint32
	AlphaArg1 uint32
	AlphaArg2 uint32
}

// DefaultCombiner returns the D3D9 stage-0 defaults: color and alpha both
// modulate TEXTURE against CURRENT, alpha via SELECTARG1.
func DefaultCombiner() Combiner {
	return Combiner{
		ColorOp:   TOpModulate,
		ColorArg1: TArgTexture,
		ColorArg2: TArgCurrent,
		AlphaOp:   TOpSelectArg1,
		AlphaArg1: TArgTexture,
		AlphaArg2: TArgCurrent,
	}
}

// Set applies one SetTextureStageState value to the combiner. Unknown
// state IDs are ignored; the driver echoes them to the host untouched.
func (c *Combiner) Set(state, value uint32) {
	switch state {
	case TSSColorOp:
		c.ColorOp = value
	case TSSColorArg1:
		c.ColorArg1 = value
	case TSSColorArg2:
		c.ColorArg2 = value
	case TSSAlphaOp:
		c.AlphaOp = value
	case TSSAlphaArg1:
		c.AlphaArg1 = value
	case TSSAlphaArg2:
		c.AlphaArg2 = value
	}
}

// Get reads one stage state value back. The second result is false for
// state IDs outside the tracked subset.
func (c *Combiner) Get(state uint32) (uint32, bool) {
	switch state {
	case TSSColorOp:
		return c.ColorOp, true
	case TSSColorArg1:
		return c.ColorArg1, true
	case TSSColorArg2:
		return c.ColorArg2, true
	case TSSAlphaOp:
		return c.AlphaOp, true
	case TSSAlphaArg1:
		return c.AlphaArg1, true
	case TSSAlphaArg2:
		return c.AlphaArg2, true
	}
	return 0, false
}

// UsesTextureFactor reports whether any combiner input reads the TFACTOR
// render state; such shaders take the factor through pixel constant c0.
func (c *Combiner) UsesTextureFactor() bool {
	if c.ColorOp != TOpDisable &&
		(c.ColorArg1 == TArgTFactor || c.ColorArg2 == TArgTFactor) {
		return true
	}
	if c.AlphaOp != TOpDisable &&
		(c.AlphaArg1 == TArgTFactor || c.AlphaArg2 == TArgTFactor) {
		return true
	}
	return false
}

// argKind folds CURRENT into DIFFUSE: with no prior stage, the current
// color entering stage 0 is the interpolated vertex diffuse.
func argKind(arg uint32) uint32 {
	if arg == TArgCurrent {
		return TArgDiffuse
	}
	return arg
}
