package models

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"maps"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/qmuntal/gltf"
	_ "golang.org/x/image/webp"

	"github.com/taigrr/softpoly/pkg/math3d"
)

// ErrNoGeometry is returned when a document holds no triangle primitives.
var ErrNoGeometry = errors.New("no triangle geometry")

// GLTFLoader loads glTF/GLB files into Mesh format.
type GLTFLoader struct {
	// CalculateNormals fills in normals when the file has none.
	CalculateNormals bool
	SmoothNormals    bool
	// SkipTextures leaves material images undecoded.
	SkipTextures bool
}

// NewGLTFLoader creates a loader with default options.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{
		CalculateNormals: true,
		SmoothNormals:    true,
	}
}

// LoadGLB loads a .glb or .gltf file with default options.
func LoadGLB(path string) (*Mesh, error) {
	return NewGLTFLoader().Load(path)
}

// Load reads a glTF or GLB file and merges all of its triangle primitives
// into one mesh. External buffers and images resolve relative to path.
func (l *GLTFLoader) Load(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}
	return l.FromDocument(doc, filepath.Base(path), filepath.Dir(path))
}

// FromDocument converts an already decoded document. dir is used to find
// images referenced by URI.
func (l *GLTFLoader) FromDocument(doc *gltf.Document, name, dir string) (*Mesh, error) {
	mesh := NewMesh(name)
	mesh.Materials = l.materials(doc, dir)

	for _, m := range doc.Meshes {
		if err := l.processMesh(doc, m, mesh); err != nil {
			return nil, fmt.Errorf("process mesh %q: %w", m.Name, err)
		}
	}
	if len(mesh.Faces) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoGeometry)
	}

	hasNormals := false
	for _, v := range mesh.Vertices {
		if v.Normal.LenSq() > 1e-6 {
			hasNormals = true
			break
		}
	}
	if l.CalculateNormals && !hasNormals {
		if l.SmoothNormals {
			mesh.CalculateSmoothNormals()
		} else {
			mesh.CalculateNormals()
		}
	}

	mesh.CalculateBounds()
	return mesh, nil
}

// processMesh appends the geometry of every triangle primitive of m.
// glTF front faces are counter-clockwise and UV (0, 0) is the top-left
// texel, both of which the renderer shares, so nothing is flipped.
func (l *GLTFLoader) processMesh(doc *gltf.Document, m *gltf.Mesh, mesh *Mesh) error {
	for _, prim := range m.Primitives {
		switch prim.Mode {
		case gltf.PrimitiveTriangles, gltf.PrimitiveTriangleStrip, gltf.PrimitiveTriangleFan:
		default:
			continue
		}

		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		positions, err := readVec3Accessor(doc, posIdx)
		if err != nil {
			return fmt.Errorf("read positions: %w", err)
		}

		var normals []math3d.Vec3
		if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
			if normals, err = readVec3Accessor(doc, idx); err != nil {
				return fmt.Errorf("read normals: %w", err)
			}
		}

		var uvs []math3d.Vec2
		if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
			if uvs, err = readVec2Accessor(doc, idx); err != nil {
				return fmt.Errorf("read uvs: %w", err)
			}
		}

		base := len(mesh.Vertices)
		for i, p := range positions {
			v := MeshVertex{Position: p}
			if i < len(normals) {
				v.Normal = normals[i]
			}
			if i < len(uvs) {
				v.UV = uvs[i]
			}
			mesh.Vertices = append(mesh.Vertices, v)
		}

		var indices []int
		if prim.Indices != nil {
			if indices, err = readIndices(doc, *prim.Indices); err != nil {
				return fmt.Errorf("read indices: %w", err)
			}
			for i, idx := range indices {
				if idx < 0 || idx >= len(positions) {
					return fmt.Errorf("index %d out of range: %d vertices", idx, len(positions))
				}
				indices[i] = base + idx
			}
		} else {
			indices = make([]int, len(positions))
			for i := range indices {
				indices[i] = base + i
			}
		}

		material := -1
		if prim.Material != nil && *prim.Material < len(mesh.Materials) {
			material = *prim.Material
		}

		switch prim.Mode {
		case gltf.PrimitiveTriangleStrip:
			mesh.AddTriangleStrip(indices, material)
		case gltf.PrimitiveTriangleFan:
			mesh.AddTriangleFan(indices, material)
		default:
			mesh.AddTriangles(indices, material)
		}
	}
	return nil
}

// materials converts the document materials. Base colour images that fail
// to decode are left out; the material keeps its factor colour.
func (l *GLTFLoader) materials(doc *gltf.Document, dir string) []Material {
	out := make([]Material, 0, len(doc.Materials))
	for _, gm := range doc.Materials {
		m := Material{
			Name:      gm.Name,
			BaseColor: [4]float32{1, 1, 1, 1},
			Metallic:  1,
			Roughness: 1,
		}
		pbr := gm.PBRMetallicRoughness
		if pbr == nil {
			out = append(out, m)
			continue
		}
		if pbr.BaseColorFactor != nil {
			for i, c := range pbr.BaseColorFactor {
				m.BaseColor[i] = float32(c)
			}
		}
		if pbr.MetallicFactor != nil {
			m.Metallic = float32(*pbr.MetallicFactor)
		}
		if pbr.RoughnessFactor != nil {
			m.Roughness = float32(*pbr.RoughnessFactor)
		}
		if pbr.BaseColorTexture != nil && !l.SkipTextures {
			if img, err := textureImage(doc, dir, pbr.BaseColorTexture.Index); err == nil {
				m.BaseMap = img
				m.HasTexture = true
			}
		}
		out = append(out, m)
	}
	return out
}

// textureImage decodes the image behind texture index ti.
func textureImage(doc *gltf.Document, dir string, ti int) (image.Image, error) {
	if ti < 0 || ti >= len(doc.Textures) || doc.Textures[ti].Source == nil {
		return nil, fmt.Errorf("texture %d has no source", ti)
	}
	data, err := imageData(doc, dir, *doc.Textures[ti].Source)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// imageData returns the encoded bytes of image i from a buffer view, a
// data URI or a file next to the document.
func imageData(doc *gltf.Document, dir string, i int) ([]byte, error) {
	if i < 0 || i >= len(doc.Images) {
		return nil, fmt.Errorf("image %d out of range", i)
	}
	img := doc.Images[i]
	switch {
	case img.BufferView != nil:
		bv := doc.BufferViews[*img.BufferView]
		data := doc.Buffers[bv.Buffer].Data
		if bv.ByteOffset+bv.ByteLength > len(data) {
			return nil, fmt.Errorf("image %d: buffer view past end of buffer", i)
		}
		return data[bv.ByteOffset : bv.ByteOffset+bv.ByteLength], nil
	case strings.HasPrefix(img.URI, "data:"):
		_, payload, ok := strings.Cut(img.URI, ";base64,")
		if !ok {
			return nil, fmt.Errorf("image %d: unsupported data URI", i)
		}
		return base64.StdEncoding.DecodeString(payload)
	case img.URI != "":
		return os.ReadFile(filepath.Join(dir, filepath.FromSlash(img.URI)))
	}
	return nil, fmt.Errorf("image %d has no data", i)
}

// accessorView returns the buffer bytes of an accessor along with the
// offset of its first element and the stride between elements. The whole
// range is checked against the buffer.
func accessorView(doc *gltf.Document, accessorIdx, elemSize int) (data []byte, start, stride, count int, err error) {
	if accessorIdx < 0 || accessorIdx >= len(doc.Accessors) {
		return nil, 0, 0, 0, fmt.Errorf("accessor %d out of range", accessorIdx)
	}
	acc := doc.Accessors[accessorIdx]
	if acc.BufferView == nil {
		return nil, 0, 0, 0, errors.New("accessor has no buffer view")
	}
	bv := doc.BufferViews[*acc.BufferView]
	data = doc.Buffers[bv.Buffer].Data
	if data == nil {
		return nil, 0, 0, 0, errors.New("buffer has no data")
	}

	stride = bv.ByteStride
	if stride == 0 {
		stride = elemSize
	}
	start = bv.ByteOffset + acc.ByteOffset
	count = acc.Count
	if count > 0 && start+(count-1)*stride+elemSize > len(data) {
		return nil, 0, 0, 0, fmt.Errorf("accessor %d reads past end of buffer", accessorIdx)
	}
	return data, start, stride, count, nil
}

// readFloats reads n-component float vectors from an accessor.
func readFloats(doc *gltf.Document, accessorIdx int, typ gltf.AccessorType, n int) ([]float32, error) {
	if accessorIdx < 0 || accessorIdx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", accessorIdx)
	}
	acc := doc.Accessors[accessorIdx]
	if acc.Type != typ {
		return nil, fmt.Errorf("expected %v, got %v", typ, acc.Type)
	}
	if acc.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("unsupported component type %v", acc.ComponentType)
	}
	data, start, stride, count, err := accessorView(doc, accessorIdx, 4*n)
	if err != nil {
		return nil, err
	}
	out := make([]float32, count*n)
	for i := range count {
		off := start + i*stride
		for j := range n {
			out[i*n+j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off+j*4:]))
		}
	}
	return out, nil
}

// readVec3Accessor reads VEC3 float data.
func readVec3Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec3, error) {
	f, err := readFloats(doc, accessorIdx, gltf.AccessorVec3, 3)
	if err != nil {
		return nil, err
	}
	out := make([]math3d.Vec3, len(f)/3)
	for i := range out {
		out[i] = math3d.V3(f[i*3], f[i*3+1], f[i*3+2])
	}
	return out, nil
}

// readVec2Accessor reads VEC2 float data.
func readVec2Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec2, error) {
	f, err := readFloats(doc, accessorIdx, gltf.AccessorVec2, 2)
	if err != nil {
		return nil, err
	}
	out := make([]math3d.Vec2, len(f)/2)
	for i := range out {
		out[i] = math3d.V2(f[i*2], f[i*2+1])
	}
	return out, nil
}

// readIndices reads unsigned scalar index data.
func readIndices(doc *gltf.Document, accessorIdx int) ([]int, error) {
	if accessorIdx < 0 || accessorIdx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", accessorIdx)
	}
	acc := doc.Accessors[accessorIdx]
	if acc.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("expected SCALAR indices, got %v", acc.Type)
	}

	var size int
	switch acc.ComponentType {
	case gltf.ComponentUbyte:
		size = 1
	case gltf.ComponentUshort:
		size = 2
	case gltf.ComponentUint:
		size = 4
	default:
		return nil, fmt.Errorf("unsupported index type %v", acc.ComponentType)
	}

	data, start, stride, count, err := accessorView(doc, accessorIdx, size)
	if err != nil {
		return nil, err
	}
	out := make([]int, count)
	for i := range count {
		b := data[start+i*stride:]
		switch size {
		case 1:
			out[i] = int(b[0])
		case 2:
			out[i] = int(binary.LittleEndian.Uint16(b))
		default:
			out[i] = int(binary.LittleEndian.Uint32(b))
		}
	}
	return out, nil
}

// LoadGLTFWithTextures loads a glTF file and returns the mesh plus the
// encoded bytes of every image it carries, keyed by image index.
func LoadGLTFWithTextures(path string) (*Mesh, map[int][]byte, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open gltf: %w", err)
	}
	dir := filepath.Dir(path)
	mesh, err := NewGLTFLoader().FromDocument(doc, filepath.Base(path), dir)
	if err != nil {
		return nil, nil, err
	}

	textures := make(map[int][]byte)
	for i := range doc.Images {
		if data, err := imageData(doc, dir, i); err == nil {
			textures[i] = data
		}
	}
	return mesh, textures, nil
}

// LoadGLBWithTexture loads a glTF file and returns the mesh plus its base
// colour texture. The image is nil if the file has none that decodes.
func LoadGLBWithTexture(path string) (*Mesh, image.Image, error) {
	mesh, textures, err := LoadGLTFWithTextures(path)
	if err != nil {
		return nil, nil, err
	}
	if img := mesh.BaseTexture(); img != nil {
		return mesh, img, nil
	}
	for _, i := range slices.Sorted(maps.Keys(textures)) {
		if img, _, err := image.Decode(bytes.NewReader(textures[i])); err == nil {
			return mesh, img, nil
		}
	}
	return mesh, nil, nil
}
