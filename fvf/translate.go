package fvf

// Translate converts an FVF bitmask into the vertex declaration the D3D9
// runtime would synthesize for it, terminator included. Field order is
// fixed: position, blend weights, blend indices, normal, point size,
// diffuse, specular, then each texcoord set in ascending slot order.
// Offsets are packed running sums with no padding.
//
// Translate returns nil for FVF values it cannot represent (no position
// bits, XYZB5 without a last-beta type, more than 8 texcoord sets).
func Translate(fvf uint32) []Element {
	pos := positionFromFVF(fvf)
	if !pos.valid {
		return nil
	}

	texCount := TexCount(fvf)
	if texCount > MaxTexCoordSets {
		return nil
	}

	elems := make([]Element, 0, 8+int(texCount))
	var offset uint16

	push := func(t DeclType, usage DeclUsage, usageIndex uint8) {
		elems = append(elems, Element{
			Stream:     0,
			Offset:     offset,
			Type:       t,
			Method:     MethodDefault,
			Usage:      usage,
			UsageIndex: usageIndex,
		})
		offset += t.Size()
	}

	push(pos.declType, pos.usage, 0)

	if pos.blendCount > 0 {
		weightType, indexType, ok := blendLayout(fvf, pos.blendCount)
		if !ok {
			return nil
		}
		push(weightType, UsageBlendWeight, 0)
		if indexType != TypeUnused {
			push(indexType, UsageBlendIndices, 0)
		}
	}

	if fvf&Normal != 0 {
		push(TypeFloat3, UsageNormal, 0)
	}
	if fvf&PSize != 0 {
		push(TypeFloat1, UsagePSize, 0)
	}
	if fvf&Diffuse != 0 {
		push(TypeD3DColor, UsageColor, 0)
	}
	if fvf&Specular != 0 {
		push(TypeD3DColor, UsageColor, 1)
	}

	for set := uint32(0); set < texCount; set++ {
		var t DeclType
		switch TexCoordDim(fvf, set) {
		case 1:
			t = TypeFloat1
		case 2:
			t = TypeFloat2
		case 3:
			t = TypeFloat3
		case 4:
			t = TypeFloat4
		}
		push(t, UsageTexCoord, uint8(set))
	}

	elems = append(elems, Terminator)
	return elems
}

// blendLayout resolves the blend-weight element type and the optional
// blend-indices element type for an XYZBn position format. The weight
// element spans all n beta slots; a LASTBETA bit appends a separate
// indices element after it.
func blendLayout(fvf uint32, blendCount int) (weight, indices DeclType, ok bool) {
	switch blendCount {
	case 1:
		weight = TypeFloat1
	case 2:
		weight = TypeFloat2
	case 3:
		weight = TypeFloat3
	case 4:
		weight = TypeFloat4
	default:
		return TypeUnused, TypeUnused, false
	}
	switch {
	case fvf&LastBetaUByte4 != 0:
		indices = TypeUByte4
	case fvf&LastBetaD3DColor != 0:
		indices = TypeD3DColor
	default:
		indices = TypeUnused
	}
	return weight, indices, true
}

// Stride returns the packed byte size of one vertex described by fvf, or 0
// if the FVF cannot be translated.
func Stride(fvf uint32) uint32 {
	elems := Translate(fvf)
	if elems == nil {
		return 0
	}
	var total uint32
	for _, e := range elems {
		if e.IsTerminator() {
			break
		}
		total += uint32(e.Type.Size())
	}
	return total
}
