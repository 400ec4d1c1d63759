// Package render is a software triangle pipeline: vertex shading,
// homogeneous clipping, viewport mapping and a tiled rasterizer that splits
// its work across workers by scanline.
package render

import (
	"github.com/taigrr/softpoly/pkg/math3d"
)

// Plane is the set of points p with Normal·p + D = 0.
type Plane struct {
	Normal math3d.Vec3
	D      float32
}

// Normalize scales the plane equation so the normal has unit length.
func (p *Plane) Normalize() {
	l := p.Normal.Len()
	if l == 0 {
		return
	}
	p.Normal = p.Normal.Scale(1 / l)
	p.D /= l
}

// DistanceToPoint returns the signed distance from the plane to a point.
// Positive = in front (same side as normal), negative = behind.
func (p Plane) DistanceToPoint(point math3d.Vec3) float32 {
	return p.Normal.Dot(point) + p.D
}

// ClipPlane returns the plane in the form used by Uniforms.ClipPlane.
// Geometry behind the plane is clipped away.
func (p Plane) ClipPlane() math3d.Vec4 {
	return math3d.V4(p.Normal.X, p.Normal.Y, p.Normal.Z, p.D)
}

// Frustum holds the six planes of a view volume with inward normals, in
// the order Left, Right, Bottom, Top, Near, Far.
type Frustum struct {
	Planes [6]Plane
}

const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumNear
	FrustumFar
)

// NewFrustumFromMatrix extracts the planes of a world-to-clip matrix
// (Gribb/Hartmann): plane 2k is row3 + row k, plane 2k+1 is row3 - row k.
func NewFrustumFromMatrix(m math3d.Mat4) Frustum {
	var f Frustum
	for k := range 3 {
		f.Planes[2*k] = Plane{
			Normal: math3d.V3(m[3]+m[k], m[7]+m[k+4], m[11]+m[k+8]),
			D:      m[15] + m[k+12],
		}
		f.Planes[2*k+1] = Plane{
			Normal: math3d.V3(m[3]-m[k], m[7]-m[k+4], m[11]-m[k+8]),
			D:      m[15] - m[k+12],
		}
	}
	for i := range f.Planes {
		f.Planes[i].Normalize()
	}
	return f
}

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min math3d.Vec3
	Max math3d.Vec3
}

// NewAABB creates an AABB from min and max points.
func NewAABB(min, max math3d.Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// Center returns the center of the AABB.
func (b AABB) Center() math3d.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Transform returns the box bounding all eight transformed corners.
func (b AABB) Transform(m math3d.Mat4) AABB {
	out := AABB{Min: m.MulVec3(b.Min)}
	out.Max = out.Min
	for i := 1; i < 8; i++ {
		c := b.Min
		if i&1 != 0 {
			c.X = b.Max.X
		}
		if i&2 != 0 {
			c.Y = b.Max.Y
		}
		if i&4 != 0 {
			c.Z = b.Max.Z
		}
		t := m.MulVec3(c)
		out.Min = out.Min.Min(t)
		out.Max = out.Max.Max(t)
	}
	return out
}

// ContainsPoint returns true if the point is inside the AABB.
func (b AABB) ContainsPoint(p math3d.Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Containment is the result of testing a box against a frustum.
type Containment int

const (
	Outside Containment = iota
	Intersecting
	Inside
)

// Classify tests box against every plane using the corners furthest along
// and against each plane normal.
func (f Frustum) Classify(box AABB) Containment {
	result := Inside
	for _, p := range f.Planes {
		far, near := box.Max, box.Min
		if p.Normal.X < 0 {
			far.X, near.X = box.Min.X, box.Max.X
		}
		if p.Normal.Y < 0 {
			far.Y, near.Y = box.Min.Y, box.Max.Y
		}
		if p.Normal.Z < 0 {
			far.Z, near.Z = box.Min.Z, box.Max.Z
		}
		if p.DistanceToPoint(far) < 0 {
			return Outside
		}
		if p.DistanceToPoint(near) < 0 {
			result = Intersecting
		}
	}
	return result
}

// IntersectAABB reports whether any part of box may be visible.
func (f Frustum) IntersectAABB(box AABB) bool {
	return f.Classify(box) != Outside
}

// ContainsPoint tests if a point is inside the frustum.
func (f Frustum) ContainsPoint(p math3d.Vec3) bool {
	for i := range f.Planes {
		if f.Planes[i].DistanceToPoint(p) < 0 {
			return false
		}
	}
	return true
}
