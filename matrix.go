package aero9

// Matrix is a 4x4 transform in D3D row-major layout with row-vector
// convention: v' = v * M, element [row*4+col].
type Matrix [16]float32

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mul returns m * n in row-vector convention: applying the result equals
// applying m first, then n.
func (m Matrix) Mul(n Matrix) Matrix {
	var out Matrix
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[row*4+k] * n[k*4+col]
			}
			out[row*4+col] = sum
		}
	}
	return out
}

// transformPoint applies the matrix to (x, y, z, 1) and returns the
// untruncated clip-space result.
func (m Matrix) transformPoint(x, y, z float32) (cx, cy, cz, cw float32) {
	cx = x*m[0] + y*m[4] + z*m[8] + m[12]
	cy = x*m[1] + y*m[5] + z*m[9] + m[13]
	cz = x*m[2] + y*m[6] + z*m[10] + m[14]
	cw = x*m[3] + y*m[7] + z*m[11] + m[15]
	return
}

// constants returns the matrix as the float stream for a constant upload.
// The synthesized shaders multiply column vectors, so the row-major D3D
// matrix goes out transposed.
func (m Matrix) constants() []float32 {
	out := make([]float32, 16)
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			out[col*4+row] = m[row*4+col]
		}
	}
	return out
}
