package render

import (
	"fmt"

	"github.com/taigrr/softpoly/internal/parallel"
)

// DrawMode describes how a vertex array forms triangles.
type DrawMode uint8

const (
	Triangles     DrawMode = iota // independent triangles, three vertices each
	TriangleFan                   // every vertex forms a triangle with vertex 0 and its predecessor
	TriangleStrip                 // every vertex forms a triangle with its two predecessors
)

func (m DrawMode) String() string {
	switch m {
	case Triangles:
		return "triangles"
	case TriangleFan:
		return "fan"
	case TriangleStrip:
		return "strip"
	default:
		return fmt.Sprintf("DrawMode(%d)", int(m))
	}
}

// DrawArgs is one draw call: a vertex array in object space plus the state
// to render it with.
type DrawArgs struct {
	Uniforms Uniforms
	Vertices []TriVertex
	Mode     DrawMode
	// CCW selects the winding treated as front facing; mirroring flips it.
	CCW     bool
	Variant DrawVariant
	Texture *Texture
	// SolidColor is the fill colour, 0xRRGGBB or a palette index. When zero
	// Uniforms.Color is used.
	SolidColor uint32

	// Optional per-column clipping in clip-area coordinates. When ClipTop
	// is nil every column of the viewport is open.
	ClipLeft, ClipRight int
	ClipTop, ClipBottom []int16
}

// DrawArrays shades, clips and rasterizes a vertex array into the rows
// owned by part. Calls with fewer than three vertices or an unknown mode
// draw nothing.
func (c *Context) DrawArrays(args *DrawArgs, part parallel.Partition) {
	c.drawArrays(args, args.CCW != c.mirror, part)
}

// Draw renders args immediately on the calling goroutine.
func (c *Context) Draw(args *DrawArgs) {
	c.DrawArrays(args, parallel.Single)
}

func (c *Context) drawArrays(args *DrawArgs, ccw bool, part parallel.Partition) {
	vcount := len(args.Vertices)
	if vcount < 3 {
		Logger().Debug("render: draw call needs at least 3 vertices", "count", vcount)
		return
	}
	if c.clipWidth == 0 || c.clipHeight == 0 {
		return
	}

	tri := TriDrawArgs{
		Target:     c.target,
		Offset:     c.offset,
		Pitch:      c.target.Pitch,
		ClipLeft:   0,
		ClipRight:  c.clipWidth - 1,
		ClipTop:    c.clipTop,
		ClipBottom: c.clipBottom,
		Texture:    args.Texture,
		SolidColor: args.SolidColor,
		Uniforms:   &args.Uniforms,
		Variant:    args.Variant,
		Accel:      c.accel,
	}
	if tri.SolidColor == 0 {
		tri.SolidColor = args.Uniforms.Color
	}
	if args.ClipTop != nil {
		if !c.validClip(args) {
			Logger().Debug("render: malformed clip columns",
				"left", args.ClipLeft, "right", args.ClipRight,
				"top", len(args.ClipTop), "bottom", len(args.ClipBottom))
			return
		}
		tri.ClipLeft = args.ClipLeft
		tri.ClipRight = min(args.ClipRight, c.clipWidth-1)
		tri.ClipTop = args.ClipTop
		tri.ClipBottom = args.ClipBottom
	}

	draw := resolveDrawer(&tri)
	if draw == nil {
		return
	}

	u := &args.Uniforms
	vin := args.Vertices
	var vert [3]ShadedVertex

	switch args.Mode {
	case Triangles:
		for i := 0; i+3 <= vcount; i += 3 {
			for j := range 3 {
				vert[j] = ShadeVertex(u, vin[i+j])
			}
			c.drawShadedTriangle(&vert, ccw, &tri, draw, part)
		}
	case TriangleFan:
		vert[0] = ShadeVertex(u, vin[0])
		vert[1] = ShadeVertex(u, vin[1])
		for i := 2; i < vcount; i++ {
			vert[2] = ShadeVertex(u, vin[i])
			c.drawShadedTriangle(&vert, ccw, &tri, draw, part)
			vert[1] = vert[2]
		}
	case TriangleStrip:
		vert[0] = ShadeVertex(u, vin[0])
		vert[1] = ShadeVertex(u, vin[1])
		for i := 2; i < vcount; i++ {
			vert[2] = ShadeVertex(u, vin[i])
			c.drawShadedTriangle(&vert, ccw, &tri, draw, part)
			vert[0] = vert[1]
			vert[1] = vert[2]
			ccw = !ccw
		}
	default:
		Logger().Debug("render: unknown draw mode", "mode", args.Mode)
	}
}

// validClip checks caller-supplied clip columns against the clip area.
func (c *Context) validClip(args *DrawArgs) bool {
	right := min(args.ClipRight, c.clipWidth-1)
	if args.ClipLeft < 0 || right < args.ClipLeft ||
		len(args.ClipTop) <= right || len(args.ClipBottom) <= right {
		return false
	}
	for x := args.ClipLeft; x <= right; x++ {
		if args.ClipTop[x] < 0 || int(args.ClipBottom[x]) > c.clipHeight {
			return false
		}
	}
	return true
}

func (c *Context) drawShadedTriangle(vert *[3]ShadedVertex, ccw bool, tri *TriDrawArgs, draw drawFunc, part parallel.Partition) {
	if IsDegenerate(vert) {
		return
	}

	var clipped [MaxClipVertices]TriVertex
	n := ClipTriangle(vert, &clipped)
	if n < 3 {
		return
	}
	verts := clipped[:n]

	c.mapToViewport(verts)
	if tri.Uniforms.BlendMode != BlendSkycap {
		rebaseVaryings(verts)
	}

	if ccw {
		for i := n - 1; i > 1; i-- {
			tri.V1, tri.V2, tri.V3 = &clipped[n-1], &clipped[i-1], &clipped[i-2]
			draw(tri, part)
		}
		return
	}
	for i := 2; i < n; i++ {
		tri.V1, tri.V2, tri.V3 = &clipped[0], &clipped[i-1], &clipped[i]
		draw(tri, part)
	}
}
