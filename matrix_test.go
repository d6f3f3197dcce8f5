package aero9

import "testing"

func TestMatrixMulOrder(t *testing.T) {
	translate := Identity()
	translate[12], translate[13], translate[14] = 10, 0, 0

	scale := Identity()
	scale[0], scale[5], scale[10] = 2, 2, 2

	// Row-vector convention: m.Mul(n) applies m first.
	ts := translate.Mul(scale)
	x, y, z, w := ts.transformPoint(1, 0, 0)
	if x != 22 || y != 0 || z != 0 || w != 1 {
		t.Errorf("translate then scale: got (%v, %v, %v, %v), want (22, 0, 0, 1)", x, y, z, w)
	}

	st := scale.Mul(translate)
	x, y, z, w = st.transformPoint(1, 0, 0)
	if x != 12 || w != 1 {
		t.Errorf("scale then translate: got (%v, _, _, %v), want (12, 1)", x, w)
	}
}

func TestMatrixIdentityTransform(t *testing.T) {
	m := Identity()
	x, y, z, w := m.transformPoint(1, 2, 3)
	if x != 1 || y != 2 || z != 3 || w != 1 {
		t.Errorf("identity transform = (%v, %v, %v, %v)", x, y, z, w)
	}
}

func TestMatrixConstantsTransposed(t *testing.T) {
	var m Matrix
	for i := range m {
		m[i] = float32(i)
	}
	c := m.constants()
	if len(c) != 16 {
		t.Fatalf("len = %d", len(c))
	}
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			if c[col*4+row] != m[row*4+col] {
				t.Errorf("constants[%d] = %v, want %v", col*4+row, c[col*4+row], m[row*4+col])
			}
		}
	}
	// Translation row lands in the fourth column of each output vector.
	tr := Identity()
	tr[12], tr[13], tr[14] = 5, 6, 7
	c = tr.constants()
	if c[3] != 5 || c[7] != 6 || c[11] != 7 {
		t.Errorf("translation columns = (%v, %v, %v), want (5, 6, 7)", c[3], c[7], c[11])
	}
}
