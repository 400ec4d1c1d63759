// Package models holds indexed triangle meshes: loaded from glTF or built
// procedurally, and drawable by the render package.
package models

import (
	"image"

	"github.com/taigrr/softpoly/pkg/math3d"
)

// Mesh is an indexed triangle mesh. Faces wind counter-clockwise when seen
// from the side their normal points to.
type Mesh struct {
	Name      string
	Vertices  []MeshVertex
	Faces     []Face
	Materials []Material

	// Bounding box, kept current by the loaders and Transform.
	BoundsMin math3d.Vec3
	BoundsMax math3d.Vec3
}

// MeshVertex holds all vertex attributes.
type MeshVertex struct {
	Position math3d.Vec3
	Normal   math3d.Vec3
	UV       math3d.Vec2 // (0, 0) is the top-left of the texture
}

// Face is a triangle with a material reference.
type Face struct {
	V        [3]int // indices into Mesh.Vertices
	Material int    // index into Mesh.Materials, -1 for none
}

// Material is the subset of a glTF PBR material the renderer uses.
type Material struct {
	Name      string
	BaseColor [4]float32 // RGBA in 0-1 range
	Metallic  float32
	Roughness float32
	// BaseMap is the decoded base colour texture, if any.
	BaseMap    image.Image
	HasTexture bool
}

// NewMesh creates an empty mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{Name: name}
}

// AddTriangles appends faces for a triangle list. Trailing indices that do
// not make a whole triangle are ignored.
func (m *Mesh) AddTriangles(indices []int, material int) {
	for i := 0; i+3 <= len(indices); i += 3 {
		m.Faces = append(m.Faces, Face{V: [3]int{indices[i], indices[i+1], indices[i+2]}, Material: material})
	}
}

// AddTriangleStrip appends the faces of a triangle strip. Every other
// triangle is flipped so all faces keep the winding of the first.
func (m *Mesh) AddTriangleStrip(indices []int, material int) {
	for i := 2; i < len(indices); i++ {
		v := [3]int{indices[i-2], indices[i-1], indices[i]}
		if i%2 == 1 {
			v[0], v[1] = v[1], v[0]
		}
		m.Faces = append(m.Faces, Face{V: v, Material: material})
	}
}

// AddTriangleFan appends the faces of a triangle fan around indices[0].
func (m *Mesh) AddTriangleFan(indices []int, material int) {
	for i := 2; i < len(indices); i++ {
		m.Faces = append(m.Faces, Face{V: [3]int{indices[0], indices[i-1], indices[i]}, Material: material})
	}
}

// CalculateBounds recomputes the axis-aligned bounding box.
func (m *Mesh) CalculateBounds() {
	if len(m.Vertices) == 0 {
		m.BoundsMin, m.BoundsMax = math3d.Zero3(), math3d.Zero3()
		return
	}
	m.BoundsMin = m.Vertices[0].Position
	m.BoundsMax = m.Vertices[0].Position
	for _, v := range m.Vertices[1:] {
		m.BoundsMin = m.BoundsMin.Min(v.Position)
		m.BoundsMax = m.BoundsMax.Max(v.Position)
	}
}

// Center returns the center of the bounding box.
func (m *Mesh) Center() math3d.Vec3 {
	return m.BoundsMin.Add(m.BoundsMax).Scale(0.5)
}

// Size returns the dimensions of the bounding box.
func (m *Mesh) Size() math3d.Vec3 {
	return m.BoundsMax.Sub(m.BoundsMin)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Faces)
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// faceNormal returns the unnormalized normal of face f; its length is twice
// the face area.
func (m *Mesh) faceNormal(f Face) math3d.Vec3 {
	p0 := m.Vertices[f.V[0]].Position
	p1 := m.Vertices[f.V[1]].Position
	p2 := m.Vertices[f.V[2]].Position
	return p1.Sub(p0).Cross(p2.Sub(p0))
}

// CalculateNormals assigns each vertex the normal of the last face using
// it. Meshes with unshared vertices come out flat shaded.
func (m *Mesh) CalculateNormals() {
	for _, f := range m.Faces {
		n := m.faceNormal(f).Normalize()
		for _, vi := range f.V {
			m.Vertices[vi].Normal = n
		}
	}
}

// CalculateSmoothNormals assigns each vertex the area-weighted average of
// the normals of the faces sharing it.
func (m *Mesh) CalculateSmoothNormals() {
	for i := range m.Vertices {
		m.Vertices[i].Normal = math3d.Zero3()
	}
	for _, f := range m.Faces {
		n := m.faceNormal(f)
		for _, vi := range f.V {
			m.Vertices[vi].Normal = m.Vertices[vi].Normal.Add(n)
		}
	}
	for i := range m.Vertices {
		m.Vertices[i].Normal = m.Vertices[i].Normal.Normalize()
	}
}

// Transform applies mat to every vertex. Normals go through the inverse
// transpose so non-uniform scales keep them perpendicular.
func (m *Mesh) Transform(mat math3d.Mat4) {
	normalMat := mat.Inverse().Transpose()
	for i := range m.Vertices {
		v := &m.Vertices[i]
		v.Position = mat.MulVec3(v.Position)
		v.Normal = normalMat.MulVec3Dir(v.Normal).Normalize()
	}
	m.CalculateBounds()
}

// Clone creates a deep copy of the mesh. Material images are shared.
func (m *Mesh) Clone() *Mesh {
	return &Mesh{
		Name:      m.Name,
		Vertices:  append([]MeshVertex(nil), m.Vertices...),
		Faces:     append([]Face(nil), m.Faces...),
		Materials: append([]Material(nil), m.Materials...),
		BoundsMin: m.BoundsMin,
		BoundsMax: m.BoundsMax,
	}
}

// GetVertex returns the position, normal and UV of vertex i.
func (m *Mesh) GetVertex(i int) (pos, normal math3d.Vec3, uv math3d.Vec2) {
	v := m.Vertices[i]
	return v.Position, v.Normal, v.UV
}

// GetFace returns the vertex indices of face i.
func (m *Mesh) GetFace(i int) [3]int {
	return m.Faces[i].V
}

// GetFaceMaterial returns the material index of face i, or -1.
func (m *Mesh) GetFaceMaterial(i int) int {
	return m.Faces[i].Material
}

// GetMaterial returns the material at index i, or nil if there is none.
func (m *Mesh) GetMaterial(i int) *Material {
	if i < 0 || i >= len(m.Materials) {
		return nil
	}
	return &m.Materials[i]
}

// MaterialCount returns the number of materials.
func (m *Mesh) MaterialCount() int {
	return len(m.Materials)
}

// BaseTexture returns the first material image, or nil.
func (m *Mesh) BaseTexture() image.Image {
	for _, mat := range m.Materials {
		if mat.HasTexture && mat.BaseMap != nil {
			return mat.BaseMap
		}
	}
	return nil
}

// GetBounds returns the axis-aligned bounding box, for frustum culling.
func (m *Mesh) GetBounds() (min, max math3d.Vec3) {
	return m.BoundsMin, m.BoundsMax
}
