package math3d

import (
	"testing"

	"github.com/chewxy/math32"
)

const eps = 1e-5

func vec4Near(a, b Vec4, tol float32) bool {
	return math32.Abs(a.X-b.X) <= tol &&
		math32.Abs(a.Y-b.Y) <= tol &&
		math32.Abs(a.Z-b.Z) <= tol &&
		math32.Abs(a.W-b.W) <= tol
}

func matNear(a, b Mat4, tol float32) bool {
	for i := range a {
		if math32.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func TestTranslateRoundTrip(t *testing.T) {
	m := Translate(V3(5, 0, 0)).Mul(Translate(V3(-5, 0, 0)))

	tests := []Vec4{
		V4(0, 0, 0, 1),
		V4(1, 2, 3, 1),
		V4(-7.5, 4.25, 100, 1),
	}
	for _, v := range tests {
		got := m.MulVec4(v)
		if !vec4Near(got, v, eps) {
			t.Errorf("round trip of %v: got %v", v, got)
		}
	}
}

func TestTranslateColumnMajor(t *testing.T) {
	m := Translate(V3(1, 2, 3))
	if m[12] != 1 || m[13] != 2 || m[14] != 3 {
		t.Errorf("translation not in last column: %v", m)
	}
	got := m.MulVec4(V4(0, 0, 0, 1))
	if got != V4(1, 2, 3, 1) {
		t.Errorf("got %v, want (1,2,3,1)", got)
	}
	// Directions (w=0) ignore translation.
	if d := m.MulVec4(V4(1, 0, 0, 0)); d != V4(1, 0, 0, 0) {
		t.Errorf("direction moved: %v", d)
	}
}

func TestMulOrder(t *testing.T) {
	// Scale then translate: T*S applied to a point scales first.
	m := Translate(V3(10, 0, 0)).Mul(ScaleUniform(2))
	got := m.MulVec4(V4(1, 1, 1, 1))
	want := V4(12, 2, 2, 1)
	if !vec4Near(got, want, eps) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestInverse(t *testing.T) {
	m := Translate(V3(1, 2, 3)).Mul(RotateY(0.5)).Mul(Scale(V3(2, 3, 4)))
	if got := m.Mul(m.Inverse()); !matNear(got, Identity(), 1e-4) {
		t.Errorf("m * inverse(m) = %v, want identity", got)
	}
	if got := Null().Inverse(); got != Identity() {
		t.Errorf("singular inverse = %v, want identity", got)
	}
}

func TestRotateAxisMatchesRotateY(t *testing.T) {
	a := Rotate(V3(0, 1, 0), 0.7)
	b := RotateY(0.7)
	if !matNear(a, b, eps) {
		t.Errorf("Rotate(Y) = %v, want %v", a, b)
	}
}

func TestSwapYZ(t *testing.T) {
	got := SwapYZ().MulVec4(V4(1, 2, 3, 1))
	want := V4(1, 3, -2, 1)
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFrustumMatchesPerspective(t *testing.T) {
	const (
		fovy   = math32.Pi / 3
		aspect = float32(4.0 / 3.0)
		near   = float32(0.5)
		far    = float32(200)
	)
	top := near * math32.Tan(fovy/2)
	right := top * aspect

	f := Frustum(-right, right, -top, top, near, far)
	p := Perspective(fovy, aspect, near, far)
	if !matNear(f, p, 1e-4) {
		t.Errorf("Frustum = %v\nPerspective = %v", f, p)
	}
}

func TestPerspectiveDepthRange(t *testing.T) {
	p := PerspectiveDeg(90, 1, 1, 10)

	tests := []struct {
		name string
		z    float32
		ndc  float32
	}{
		{"near plane", -1, -1},
		{"far plane", -10, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clip := p.MulVec4(V4(0, 0, tc.z, 1))
			got := clip.Z / clip.W
			if math32.Abs(got-tc.ndc) > 1e-4 {
				t.Errorf("got %v, want %v", got, tc.ndc)
			}
		})
	}
}

func TestVec3Basics(t *testing.T) {
	a := V3(1, 0, 0)
	b := V3(0, 1, 0)
	if c := a.Cross(b); c != V3(0, 0, 1) {
		t.Errorf("cross = %v, want (0,0,1)", c)
	}
	if d := a.Dot(b); d != 0 {
		t.Errorf("dot = %v, want 0", d)
	}
	if l := V3(3, 4, 0).Len(); math32.Abs(l-5) > eps {
		t.Errorf("len = %v, want 5", l)
	}
	if n := Zero3().Normalize(); n != Zero3() {
		t.Errorf("normalize(0) = %v", n)
	}
}
