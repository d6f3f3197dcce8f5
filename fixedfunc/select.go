package fixedfunc

import (
	"errors"

	"github.com/aerogpu/aero9/fvf"
)

// ErrNoVariant is returned when shader selection is asked for a vertex
// layout outside the fixed-function subset.
var ErrNoVariant = errors.New("fixedfunc: vertex layout has no fixed-function variant")

// SelectVS picks the vertex program for a layout variant.
//
// pretransformed means positions reach the GPU already in clip space:
// either the layout is an RHW variant, or the draw path transformed the
// vertices on the CPU into a scratch buffer. Otherwise the program applies
// the world*view*projection matrix from constant registers 240..243.
func SelectVS(v fvf.Variant, pretransformed bool) (*Shader, error) {
	if v == fvf.VariantNone {
		return nil, ErrNoVariant
	}
	hasColor := v.HasColor()
	hasTex := v.HasTex1()

	if pretransformed {
		switch {
		case hasColor && hasTex:
			return VsPassthroughPosColorTex1, nil
		case hasColor:
			return VsPassthroughPosColor, nil
		case hasTex:
			return VsPassthroughPosWhiteTex1, nil
		default:
			return VsPassthroughPosWhite, nil
		}
	}
	switch {
	case hasColor && hasTex:
		return VsWvpPosColorTex0, nil
	case hasColor:
		return VsWvpPosColor, nil
	case hasTex:
		return VsTransformPosWhiteTex1, nil
	default:
		return VsWvpPosWhite, nil
	}
}

// colorMode folds the color side of the combiner into the outcomes the
// program table distinguishes.
type colorMode int

const (
	colorDiffuse colorMode = iota
	colorTexture
	colorModTexDiffuse
	colorModTexFactor
	colorAddTexDiffuse
	colorSubTexDiffuse
	colorSubDiffuseTex
	colorMod2xTexDiffuse
	colorMod4xTexDiffuse
)

// alphaMode is the alpha-side counterpart.
type alphaMode int

const (
	alphaDiffuse alphaMode = iota
	alphaTexture
	alphaModulate
)

func classifyColor(c Combiner) colorMode {
	a1 := argKind(c.ColorArg1)
	a2 := argKind(c.ColorArg2)
	switch c.ColorOp {
	case TOpSelectArg1:
		if a1 == TArgTexture {
			return colorTexture
		}
		return colorDiffuse
	case TOpSelectArg2:
		if a2 == TArgTexture {
			return colorTexture
		}
		return colorDiffuse
	case TOpModulate:
		if a1 == TArgTFactor || a2 == TArgTFactor {
			return colorModTexFactor
		}
		return colorModTexDiffuse
	case TOpModulate2x:
		return colorMod2xTexDiffuse
	case TOpModulate4x:
		return colorMod4xTexDiffuse
	case TOpAdd:
		return colorAddTexDiffuse
	case TOpSubtract:
		if a1 == TArgDiffuse && a2 == TArgTexture {
			return colorSubDiffuseTex
		}
		return colorSubTexDiffuse
	}
	// Ops past the bring-up subset fall back to the default modulate.
	return colorModTexDiffuse
}

func classifyAlpha(c Combiner) alphaMode {
	a1 := argKind(c.AlphaArg1)
	a2 := argKind(c.AlphaArg2)
	switch c.AlphaOp {
	case TOpDisable:
		return alphaDiffuse
	case TOpSelectArg1:
		if a1 == TArgTexture {
			return alphaTexture
		}
		return alphaDiffuse
	case TOpSelectArg2:
		if a2 == TArgTexture {
			return alphaTexture
		}
		return alphaDiffuse
	case TOpModulate, TOpModulate2x, TOpModulate4x:
		return alphaModulate
	}
	return alphaTexture
}

// SelectPS picks the pixel program for the stage-0 combiner.
//
// Combiner state alone never selects a texturing program: with no texture
// bound at stage 0 the output is the interpolated vertex color, whatever
// the ops say. The same holds when stage 0 is disabled.
func SelectPS(c Combiner, textureBound bool) *Shader {
	if !textureBound || c.ColorOp == TOpDisable {
		return PsPassthroughColor
	}

	switch classifyColor(c) {
	case colorModTexFactor:
		return PsStage0TextureFactor
	case colorAddTexDiffuse:
		return PsStage0AddTextureDiffuseAlphaTexture
	case colorSubTexDiffuse:
		return PsStage0SubtractTextureDiffuseAlphaTexture
	case colorSubDiffuseTex:
		return PsStage0SubtractDiffuseTextureAlphaTexture
	case colorMod2xTexDiffuse:
		return PsStage0Modulate2xTextureDiffuseAlphaTexture
	case colorMod4xTexDiffuse:
		return PsStage0Modulate4xTextureDiffuseAlphaTexture
	case colorModTexDiffuse:
		switch classifyAlpha(c) {
		case alphaTexture:
			return PsStage0ModulateTexture
		case alphaModulate:
			return PsTexturedModulateVertexColor
		default:
			return PsStage0ModulateDiffuse
		}
	case colorTexture:
		switch classifyAlpha(c) {
		case alphaTexture:
			return PsStage0TextureTexture
		case alphaModulate:
			return PsStage0TextureModulate
		default:
			return PsStage0TextureDiffuse
		}
	case colorDiffuse:
		switch classifyAlpha(c) {
		case alphaTexture:
			return PsStage0DiffuseTexture
		case alphaModulate:
			return PsStage0DiffuseModulate
		default:
			return PsPassthroughColor
		}
	}
	return PsTexturedModulateVertexColor
}
