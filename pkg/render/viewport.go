package render

import (
	"github.com/chewxy/math32"

	"github.com/taigrr/softpoly/internal/wide"
)

// mapToViewport performs the perspective divide and maps normalized device
// coordinates to screen pixels. Afterwards W holds 1/w.
func (c *Context) mapToViewport(verts []TriVertex) {
	vx := float32(c.viewportX)
	vy := float32(c.viewportY)
	hw := float32(c.viewportWidth) * 0.5
	hh := float32(c.viewportHeight) * 0.5
	if c.accel == AccelWide {
		mapViewportWide(verts, vx, vy, hw, hh)
		return
	}
	mapViewportScalar(verts, vx, vy, hw, hh)
}

func mapViewportScalar(verts []TriVertex, vx, vy, hw, hh float32) {
	for i := range verts {
		v := &verts[i]
		v.W = 1 / v.W
		v.X *= v.W
		v.Y *= v.W
		v.Z *= v.W

		// The conversions keep both paths free of fused multiply-adds.
		v.X = vx + float32(hw*(1+v.X))
		v.Y = vy + float32(hh*(1-v.Y))
	}
}

func mapViewportWide(verts []TriVertex, vx, vy, hw, hh float32) {
	one := wide.SplatF32(1)
	mvx, mvy := wide.SplatF32(vx), wide.SplatF32(vy)
	mhw, mhh := wide.SplatF32(hw), wide.SplatF32(hh)

	for base := 0; base < len(verts); base += 8 {
		chunk := verts[base:min(base+8, len(verts))]

		// Padding lanes get w = 1 so the reciprocal stays finite.
		x, y, z, w := wide.SplatF32(0), wide.SplatF32(0), wide.SplatF32(0), one
		for i := range chunk {
			x[i], y[i], z[i], w[i] = chunk[i].X, chunk[i].Y, chunk[i].Z, chunk[i].W
		}

		w = w.Rcp()
		x = x.Mul(w)
		y = y.Mul(w)
		z = z.Mul(w)

		x = mvx.Add(mhw.Mul(one.Add(x)))
		y = mvy.Add(mhh.Mul(one.Sub(y)))

		for i := range chunk {
			chunk[i].X, chunk[i].Y, chunk[i].Z, chunk[i].W = x[i], y[i], z[i], w[i]
		}
	}
}

// rebaseVaryings shifts texture coordinates by a multiple of ten so they
// stay near zero, keeping the fixed-point fractions precise.
func rebaseVaryings(verts []TriVertex) {
	if len(verts) == 0 {
		return
	}
	var origin [NumVaryings]float32
	for n := range NumVaryings {
		origin[n] = math32.Floor(verts[0].Varying[n]*0.1) * 10
	}
	for i := range verts {
		for n := range NumVaryings {
			verts[i].Varying[n] -= origin[n]
		}
	}
}
