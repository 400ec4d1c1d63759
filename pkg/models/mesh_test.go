package models

import (
	"testing"

	"github.com/chewxy/math32"

	"github.com/taigrr/softpoly/pkg/math3d"
)

func near(a, b math3d.Vec3) bool {
	return a.Sub(b).Len() < 1e-5
}

func TestAddTriangleStrip(t *testing.T) {
	m := NewMesh("strip")
	m.AddTriangleStrip([]int{0, 1, 2, 3, 4}, 2)
	want := [][3]int{{0, 1, 2}, {2, 1, 3}, {2, 3, 4}}
	if len(m.Faces) != len(want) {
		t.Fatalf("faces = %d, want %d", len(m.Faces), len(want))
	}
	for i, f := range m.Faces {
		if f.V != want[i] || f.Material != 2 {
			t.Errorf("face %d = %+v, want %v", i, f, want[i])
		}
	}
}

func TestAddTriangleFanAndList(t *testing.T) {
	m := NewMesh("fan")
	m.AddTriangleFan([]int{5, 6, 7, 8}, -1)
	m.AddTriangles([]int{0, 1, 2, 3, 4}, -1)
	want := [][3]int{{5, 6, 7}, {5, 7, 8}, {0, 1, 2}}
	if len(m.Faces) != len(want) {
		t.Fatalf("faces = %d, want %d", len(m.Faces), len(want))
	}
	for i, f := range m.Faces {
		if f.V != want[i] {
			t.Errorf("face %d = %v, want %v", i, f.V, want[i])
		}
	}
	m.AddTriangleFan([]int{1, 2}, -1)
	if len(m.Faces) != 3 {
		t.Error("two-index fan produced a face")
	}
}

func TestNewCube(t *testing.T) {
	c := NewCube(2)
	if c.VertexCount() != 24 || c.TriangleCount() != 12 {
		t.Fatalf("cube has %d vertices, %d faces", c.VertexCount(), c.TriangleCount())
	}
	if !near(c.BoundsMin, math3d.V3(-1, -1, -1)) || !near(c.BoundsMax, math3d.V3(1, 1, 1)) {
		t.Errorf("bounds = %v..%v", c.BoundsMin, c.BoundsMax)
	}
	for i, f := range c.Faces {
		n := c.faceNormal(f).Normalize()
		centroid := c.Vertices[f.V[0]].Position.Add(c.Vertices[f.V[1]].Position).Add(c.Vertices[f.V[2]].Position).Scale(1.0 / 3)
		if n.Dot(centroid) <= 0 {
			t.Errorf("face %d winds inward", i)
		}
		if !near(n, c.Vertices[f.V[0]].Normal) {
			t.Errorf("face %d normal %v, vertex normal %v", i, n, c.Vertices[f.V[0]].Normal)
		}
	}
	if _, _, uv := c.GetVertex(3); uv != math3d.V2(0, 0) {
		t.Errorf("top-left corner uv = %v, want (0,0)", uv)
	}
}

func TestNewPlane(t *testing.T) {
	p := NewPlane(4, 2, 2)
	if p.TriangleCount() != 8 {
		t.Fatalf("faces = %d, want 8", p.TriangleCount())
	}
	if !near(p.Size(), math3d.V3(4, 0, 2)) || !near(p.Center(), math3d.Zero3()) {
		t.Errorf("size %v centre %v", p.Size(), p.Center())
	}
	for i, f := range p.Faces {
		if n := p.faceNormal(f); n.Y <= 0 {
			t.Errorf("face %d faces down", i)
		}
	}
	if NewPlane(1, 1, 0).TriangleCount() != 2 {
		t.Error("zero segments not clamped to one")
	}
}

func TestCalculateNormals(t *testing.T) {
	// Two triangles sharing an edge, folded 90 degrees along it.
	m := NewMesh("fold")
	m.Vertices = []MeshVertex{
		{Position: math3d.V3(0, 0, 0)},
		{Position: math3d.V3(1, 0, 0)},
		{Position: math3d.V3(0, 1, 0)},
		{Position: math3d.V3(0, 0, 1)},
	}
	m.AddTriangles([]int{0, 1, 2, 0, 3, 1}, -1)

	m.CalculateSmoothNormals()
	want := math3d.V3(0, 1, 1).Normalize()
	if !near(m.Vertices[0].Normal, want) || !near(m.Vertices[1].Normal, want) {
		t.Errorf("shared normals = %v, %v, want %v", m.Vertices[0].Normal, m.Vertices[1].Normal, want)
	}
	if !near(m.Vertices[2].Normal, math3d.V3(0, 0, 1)) {
		t.Errorf("unshared normal = %v", m.Vertices[2].Normal)
	}

	m.CalculateNormals()
	if !near(m.Vertices[0].Normal, math3d.V3(0, 1, 0)) {
		t.Errorf("flat normal = %v, want the last face's", m.Vertices[0].Normal)
	}
}

func TestTransform(t *testing.T) {
	c := NewCube(2)
	c.Transform(math3d.Translate(math3d.V3(5, 0, 0)).Mul(math3d.Scale(math3d.V3(2, 1, 1))))
	if !near(c.BoundsMin, math3d.V3(3, -1, -1)) || !near(c.BoundsMax, math3d.V3(7, 1, 1)) {
		t.Errorf("bounds = %v..%v", c.BoundsMin, c.BoundsMax)
	}
	for i, v := range c.Vertices {
		if l := v.Normal.Len(); math32.Abs(l-1) > 1e-5 {
			t.Fatalf("normal %d length %v", i, l)
		}
	}

	// A shear keeps normals perpendicular to the surface.
	p := NewPlane(1, 1, 1)
	shear := math3d.Identity()
	shear[4] = 1 // x += y
	shear[1] = 0.5
	p.Transform(shear)
	f := p.Faces[0]
	n := p.faceNormal(f).Normalize()
	if !near(n, p.Vertices[f.V[0]].Normal) {
		t.Errorf("normal %v, face normal %v", p.Vertices[f.V[0]].Normal, n)
	}
}

func TestClone(t *testing.T) {
	c := NewCube(1)
	d := c.Clone()
	d.Vertices[0].Position = math3d.V3(9, 9, 9)
	d.Faces[0].V[0] = 7
	if c.Vertices[0].Position == d.Vertices[0].Position || c.Faces[0].V[0] == 7 {
		t.Error("clone shares geometry")
	}
	if min, max := d.GetBounds(); min != c.BoundsMin || max != c.BoundsMax {
		t.Error("clone lost bounds")
	}
}

func BenchmarkCalculateSmoothNormals(b *testing.B) {
	m := NewPlane(10, 10, 64)
	for b.Loop() {
		m.CalculateSmoothNormals()
	}
}
