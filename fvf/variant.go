package fvf

// Variant identifies which fixed-function vertex layout is in use. It is
// the key for shader selection: each variant pairs with exactly one family
// of synthesized vertex shaders.
//
// VariantNone is the sentinel for "not a recognized bring-up layout";
// classification never fails, it returns VariantNone and lets the first
// draw attempt surface the error.
type Variant uint8

const (
	VariantNone Variant = iota
	VariantRhwColor
	VariantRhwColorTex1
	VariantXyzColor
	VariantXyzColorTex1
	VariantRhwTex1
	VariantXyzTex1
	VariantXyzNormal
	VariantXyzNormalTex1
	VariantXyzNormalColor
	VariantXyzNormalColorTex1
)

var variantNames = [...]string{
	VariantNone:               "NONE",
	VariantRhwColor:           "RHW_COLOR",
	VariantRhwColorTex1:       "RHW_COLOR_TEX1",
	VariantXyzColor:           "XYZ_COLOR",
	VariantXyzColorTex1:       "XYZ_COLOR_TEX1",
	VariantRhwTex1:            "RHW_TEX1",
	VariantXyzTex1:            "XYZ_TEX1",
	VariantXyzNormal:          "XYZ_NORMAL",
	VariantXyzNormalTex1:      "XYZ_NORMAL_TEX1",
	VariantXyzNormalColor:     "XYZ_NORMAL_COLOR",
	VariantXyzNormalColorTex1: "XYZ_NORMAL_COLOR_TEX1",
}

func (v Variant) String() string {
	if int(v) < len(variantNames) {
		return variantNames[v]
	}
	return "Variant(?)"
}

// UsesRHW reports whether the variant's position is already transformed
// (clip/screen space), skipping the vertex transform stage.
func (v Variant) UsesRHW() bool {
	return (v.FVF() & XYZRHW) != 0
}

// HasColor reports whether the variant carries a per-vertex diffuse color.
func (v Variant) HasColor() bool {
	return (v.FVF() & Diffuse) != 0
}

// HasNormal reports whether the variant carries a per-vertex normal.
func (v Variant) HasNormal() bool {
	return (v.FVF() & Normal) != 0
}

// HasTex1 reports whether the variant carries one texture coordinate set.
func (v Variant) HasTex1() bool {
	return (v.FVF() & TexCountMask) == Tex1
}

// FVF returns the canonical FVF bits for the variant (texcoord size bits
// zero), or 0 for VariantNone.
func (v Variant) FVF() uint32 {
	for _, d := range variantDecls {
		if d.variant == v {
			return d.fvf
		}
	}
	return 0
}

// variantDecl binds a variant to its canonical FVF bits and the canonical
// declaration (including terminator) used for declaration-path matching.
type variantDecl struct {
	variant Variant
	fvf     uint32
	elems   []Element
}

// The canonical fixed-function declarations. Offsets are the packed running
// sums; downstream consumers compare these blobs byte-for-byte.
var variantDecls = []variantDecl{
	{VariantRhwColor, XYZRHW | Diffuse, []Element{
		{0, 0, TypeFloat4, MethodDefault, UsagePositionT, 0},
		{0, 16, TypeD3DColor, MethodDefault, UsageColor, 0},
		Terminator,
	}},
	{VariantRhwColorTex1, XYZRHW | Diffuse | Tex1, []Element{
		{0, 0, TypeFloat4, MethodDefault, UsagePositionT, 0},
		{0, 16, TypeD3DColor, MethodDefault, UsageColor, 0},
		{0, 20, TypeFloat2, MethodDefault, UsageTexCoord, 0},
		Terminator,
	}},
	{VariantRhwTex1, XYZRHW | Tex1, []Element{
		{0, 0, TypeFloat4, MethodDefault, UsagePositionT, 0},
		{0, 16, TypeFloat2, MethodDefault, UsageTexCoord, 0},
		Terminator,
	}},
	{VariantXyzColor, XYZ | Diffuse, []Element{
		{0, 0, TypeFloat3, MethodDefault, UsagePosition, 0},
		{0, 12, TypeD3DColor, MethodDefault, UsageColor, 0},
		Terminator,
	}},
	{VariantXyzColorTex1, XYZ | Diffuse | Tex1, []Element{
		{0, 0, TypeFloat3, MethodDefault, UsagePosition, 0},
		{0, 12, TypeD3DColor, MethodDefault, UsageColor, 0},
		{0, 16, TypeFloat2, MethodDefault, UsageTexCoord, 0},
		Terminator,
	}},
	{VariantXyzTex1, XYZ | Tex1, []Element{
		{0, 0, TypeFloat3, MethodDefault, UsagePosition, 0},
		{0, 12, TypeFloat2, MethodDefault, UsageTexCoord, 0},
		Terminator,
	}},
	{VariantXyzNormal, XYZ | Normal, []Element{
		{0, 0, TypeFloat3, MethodDefault, UsagePosition, 0},
		{0, 12, TypeFloat3, MethodDefault, UsageNormal, 0},
		Terminator,
	}},
	{VariantXyzNormalTex1, XYZ | Normal | Tex1, []Element{
		{0, 0, TypeFloat3, MethodDefault, UsagePosition, 0},
		{0, 12, TypeFloat3, MethodDefault, UsageNormal, 0},
		{0, 24, TypeFloat2, MethodDefault, UsageTexCoord, 0},
		Terminator,
	}},
	{VariantXyzNormalColor, XYZ | Normal | Diffuse, []Element{
		{0, 0, TypeFloat3, MethodDefault, UsagePosition, 0},
		{0, 12, TypeFloat3, MethodDefault, UsageNormal, 0},
		{0, 24, TypeD3DColor, MethodDefault, UsageColor, 0},
		Terminator,
	}},
	{VariantXyzNormalColorTex1, XYZ | Normal | Diffuse | Tex1, []Element{
		{0, 0, TypeFloat3, MethodDefault, UsagePosition, 0},
		{0, 12, TypeFloat3, MethodDefault, UsageNormal, 0},
		{0, 24, TypeD3DColor, MethodDefault, UsageColor, 0},
		{0, 28, TypeFloat2, MethodDefault, UsageTexCoord, 0},
		Terminator,
	}},
}

// Classify maps an FVF bitmask to its fixed-function variant.
//
// Texcoord size bits affect the vertex layout (stride/offsets) but never
// which variant is needed, and runtimes may leave garbage size bits set for
// unused texcoord sets. Classification therefore keys off the non-size bits
// only; anything outside the bring-up subset is VariantNone.
func Classify(fvf uint32) Variant {
	base := fvf &^ TexCoordSizeMask
	for _, d := range variantDecls {
		if d.fvf == base {
			return d.variant
		}
	}
	return VariantNone
}

// ClassifyDeclaration maps a packed declaration blob to its fixed-function
// variant by inferring the implied FVF first. Malformed, truncated, or
// unterminated blobs yield VariantNone.
func ClassifyDeclaration(blob []byte) Variant {
	implied, ok := InferFVF(blob)
	if !ok {
		return VariantNone
	}
	return Classify(implied)
}

// CanonicalDeclaration returns the canonical element list (terminator
// included) for a variant, or nil for VariantNone. Callers must not mutate
// the returned slice.
func CanonicalDeclaration(v Variant) []Element {
	for _, d := range variantDecls {
		if d.variant == v {
			return d.elems
		}
	}
	return nil
}
