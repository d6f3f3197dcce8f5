package fvf

// maxInferElements bounds the number of non-UNUSED elements considered when
// matching declaration blobs; the fixed-function patterns are all far
// smaller than this.
const maxInferElements = 16

// InferFVF derives the FVF implied by a packed declaration blob, for
// classification of SetVertexDeclaration-supplied layouts. It matches the
// canonical fixed-function patterns while tolerating the variance real
// runtimes produce:
//
//   - element order is not significant; UNUSED placeholders are skipped
//   - POSITION and POSITIONT are interchangeable for the position element
//   - TEXCOORD elements may carry usage 0 (some runtimes leave it unset)
//     and any FLOAT1..FLOAT4 type; the type sets the texcoord size bits
//
// The blob must contain a terminator; a truncated or unterminated blob
// infers nothing. Returns (0, false) when no pattern matches.
func InferFVF(blob []byte) (uint32, bool) {
	if len(blob) < 2*ElementSize {
		return 0, false
	}

	raw := DecodeElements(blob)

	var elems []Element
	sawEnd := false
	for _, e := range raw {
		if e.IsTerminator() {
			sawEnd = true
			break
		}
		if e.Type == TypeUnused {
			continue
		}
		if len(elems) >= maxInferElements {
			return 0, false
		}
		elems = append(elems, e)
	}
	if !sawEnd {
		return 0, false
	}

	for _, desc := range variantDecls {
		fvf, ok := matchPattern(elems, desc)
		if ok {
			return fvf, true
		}
	}

	// Position-only declarations (ProcessVertices bring-up).
	if len(elems) == 1 {
		e := elems[0]
		if e.Stream == 0 && e.Offset == 0 && e.Method == MethodDefault &&
			e.UsageIndex == 0 && usageOKForPosition(e.Usage) {
			switch e.Type {
			case TypeFloat4:
				return XYZRHW, true
			case TypeFloat3:
				return XYZ, true
			}
		}
	}

	return 0, false
}

// matchPattern tries to match the collected elements against one canonical
// declaration, order-insensitively and with at most one candidate per
// expected element (ambiguous matches fail).
func matchPattern(elems []Element, desc variantDecl) (uint32, bool) {
	sig := desc.elems[:len(desc.elems)-1] // exclude terminator
	if len(elems) != len(sig) {
		return 0, false
	}

	used := make([]bool, len(elems))
	var texDim uint32

	for _, exp := range sig {
		matchIdx := -1
		var matchTexDim uint32
		for k, got := range elems {
			if used[k] {
				continue
			}
			dim, ok := elemMatches(got, exp)
			if !ok {
				continue
			}
			if matchIdx != -1 {
				return 0, false
			}
			matchIdx = k
			matchTexDim = dim
		}
		if matchIdx == -1 {
			return 0, false
		}
		used[matchIdx] = true
		if exp.Usage == UsageTexCoord {
			texDim = matchTexDim
		}
	}

	fvf := desc.fvf
	if fvf&Tex1 != 0 {
		// TEX1 patterns always carry TEXCOORD0.
		if texDim == 0 {
			return 0, false
		}
		fvf |= TexCoordSizeBits(texDim, 0)
	}
	return fvf, true
}

// elemMatches reports whether got satisfies the expected canonical element.
// For TEXCOORD expectations it also returns the matched component count.
func elemMatches(got, exp Element) (texDim uint32, ok bool) {
	if got.Stream != exp.Stream || got.Offset != exp.Offset ||
		got.Method != exp.Method || got.UsageIndex != exp.UsageIndex {
		return 0, false
	}

	if exp.Usage == UsageTexCoord {
		if !usageOKForTexCoord(got.Usage) {
			return 0, false
		}
		dim := texcoordDim(got.Type)
		if dim == 0 {
			return 0, false
		}
		return dim, true
	}

	if exp.Usage == UsagePosition || exp.Usage == UsagePositionT {
		if !usageOKForPosition(got.Usage) {
			return 0, false
		}
		return 0, got.Type == exp.Type
	}

	return 0, got.Usage == exp.Usage && got.Type == exp.Type
}

func texcoordDim(t DeclType) uint32 {
	switch t {
	case TypeFloat1:
		return 1
	case TypeFloat2:
		return 2
	case TypeFloat3:
		return 3
	case TypeFloat4:
		return 4
	}
	return 0
}

// Runtimes are not consistent about POSITION vs POSITIONT when
// synthesizing declarations for SetFVF compatibility.
func usageOKForPosition(u DeclUsage) bool {
	return u == UsagePosition || u == UsagePositionT
}

// Some runtimes leave TEXCOORD usage as 0 (POSITION) when synthesizing
// fixed-function declarations. Accept either.
func usageOKForTexCoord(u DeclUsage) bool {
	return u == UsageTexCoord || u == UsagePosition
}
