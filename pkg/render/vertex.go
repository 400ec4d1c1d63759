package render

import (
	"github.com/taigrr/softpoly/pkg/math3d"
)

// NumVaryings is the number of interpolated attributes per vertex (U, V).
const NumVaryings = 2

// TriVertex is a vertex as it travels through the pipeline: object space on
// input, clip space after shading and screen space after the viewport map,
// where W holds 1/w.
type TriVertex struct {
	X, Y, Z, W float32
	Varying    [NumVaryings]float32
}

// Vertex returns an object-space vertex with w = 1.
func Vertex(x, y, z, u, v float32) TriVertex {
	return TriVertex{X: x, Y: y, Z: z, W: 1, Varying: [NumVaryings]float32{u, v}}
}

// ShadedVertex is a clip-space vertex plus its distance to the user clip
// plane.
type ShadedVertex struct {
	TriVertex
	ClipDistance0 float32
}

// Flags enable the auxiliary buffer operations of a draw.
type Flags uint8

const (
	FlagDepthWrite     Flags = 1 << iota // store interpolated 1/w
	FlagDepthTest                        // reject pixels behind the stored 1/w
	FlagStencilTest                      // draw only where stencil == StencilTestValue
	FlagStencilWrite                     // store StencilWriteValue
	FlagSubsectorWrite                   // store SubsectorDepth
	FlagLightTag                         // write LightTag into the alpha byte
)

const auxFlags = FlagDepthWrite | FlagDepthTest | FlagStencilTest | FlagStencilWrite | FlagSubsectorWrite

// BlendMode selects varying handling after the viewport map.
type BlendMode uint8

const (
	BlendCopy   BlendMode = iota
	BlendSkycap           // keeps texture coordinates un-rebased
)

// Uniforms is the per-draw constant state. Workers share it read-only.
type Uniforms struct {
	ObjectToClip math3d.Mat4
	// ClipPlane is a user clip plane in object space. The zero plane never
	// clips.
	ClipPlane math3d.Vec4

	Light     uint32 // 0..256, 256 is full bright
	Flags     Flags
	BlendMode BlendMode

	SubsectorDepth    uint32
	StencilTestValue  uint8
	StencilWriteValue uint8
	// LightTag goes into the alpha byte under FlagLightTag, for DeferredLight.
	// Even tags are sector light levels, odd tags fixed light.
	LightTag uint8
	Color    uint32 // solid colour for the fill variant
}

// ShadeVertex transforms v to clip space and computes its clip distance.
func ShadeVertex(u *Uniforms, v TriVertex) ShadedVertex {
	obj := math3d.V4(v.X, v.Y, v.Z, v.W)
	clip := u.ObjectToClip.MulVec4(obj)
	return ShadedVertex{
		TriVertex: TriVertex{
			X:       clip.X,
			Y:       clip.Y,
			Z:       clip.Z,
			W:       clip.W,
			Varying: v.Varying,
		},
		ClipDistance0: obj.Dot(u.ClipPlane),
	}
}

// IsDegenerate reports whether a clip-space triangle has (almost) zero area
// in homogeneous 2D, measured with the (x, y, w) cross product.
func IsDegenerate(v *[3]ShadedVertex) bool {
	e1 := math3d.V3(v[1].X-v[0].X, v[1].Y-v[0].Y, v[1].W-v[0].W)
	e2 := math3d.V3(v[2].X-v[0].X, v[2].Y-v[0].Y, v[2].W-v[0].W)
	return e1.Cross(e2).LenSq() <= 1e-6
}
