package models

import "github.com/taigrr/softpoly/pkg/math3d"

// cubeSides lists each cube face as outward normal, right and up axes.
// right x up == normal, so corners emitted bottom-left, bottom-right,
// top-right, top-left wind counter-clockwise from outside.
var cubeSides = [6][3]math3d.Vec3{
	{{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},
	{{X: 0, Y: 0, Z: -1}, {X: -1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},
	{{X: 1, Y: 0, Z: 0}, {X: 0, Y: 0, Z: -1}, {X: 0, Y: 1, Z: 0}},
	{{X: -1, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 1}, {X: 0, Y: 1, Z: 0}},
	{{X: 0, Y: 1, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 0, Z: -1}},
	{{X: 0, Y: -1, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 1}},
}

// NewCube builds an axis-aligned cube of the given edge length centred on
// the origin. Each side has its own four vertices with a flat normal and
// the full texture mapped onto it.
func NewCube(size float32) *Mesh {
	h := size / 2
	m := NewMesh("cube")
	m.Vertices = make([]MeshVertex, 0, 24)
	m.Faces = make([]Face, 0, 12)
	for _, side := range cubeSides {
		n, r, u := side[0], side[1].Scale(h), side[2].Scale(h)
		c := n.Scale(h)
		m.addQuad(
			[4]math3d.Vec3{
				c.Sub(r).Sub(u),
				c.Add(r).Sub(u),
				c.Add(r).Add(u),
				c.Sub(r).Add(u),
			},
			n,
		)
	}
	m.CalculateBounds()
	return m
}

// NewPlane builds a width x depth rectangle in the XZ plane facing +Y,
// split into segments x segments quads. The texture repeats once per quad.
func NewPlane(width, depth float32, segments int) *Mesh {
	segments = max(segments, 1)
	m := NewMesh("plane")
	step := math3d.V2(width/float32(segments), depth/float32(segments))
	x0, z0 := -width/2, -depth/2
	up := math3d.Up()
	for j := range segments {
		for i := range segments {
			x := x0 + float32(i)*step.X
			z := z0 + float32(j)*step.Y
			// Seen from above, +Z is toward the viewer.
			m.addQuad(
				[4]math3d.Vec3{
					math3d.V3(x, 0, z+step.Y),
					math3d.V3(x+step.X, 0, z+step.Y),
					math3d.V3(x+step.X, 0, z),
					math3d.V3(x, 0, z),
				},
				up,
			)
		}
	}
	m.CalculateBounds()
	return m
}

// addQuad appends a quad given counter-clockwise corners starting at the
// bottom left, as two triangles sharing the first corner.
func (m *Mesh) addQuad(corners [4]math3d.Vec3, normal math3d.Vec3) {
	uvs := [4]math3d.Vec2{{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0}}
	base := len(m.Vertices)
	for i, p := range corners {
		m.Vertices = append(m.Vertices, MeshVertex{Position: p, Normal: normal, UV: uvs[i]})
	}
	m.AddTriangleFan([]int{base, base + 1, base + 2, base + 3}, -1)
}
