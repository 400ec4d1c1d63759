package render

import (
	"context"
	"image/color"
	"runtime"

	"github.com/taigrr/softpoly/internal/parallel"
	"github.com/taigrr/softpoly/pkg/math3d"
)

// MeshRenderer is the interface meshes must implement to be drawn.
// It keeps this package independent of the models package.
type MeshRenderer interface {
	VertexCount() int
	TriangleCount() int
	GetVertex(i int) (pos, normal math3d.Vec3, uv math3d.Vec2)
	GetFace(i int) [3]int
}

// BoundedMeshRenderer is a MeshRenderer that can be frustum culled.
type BoundedMeshRenderer interface {
	MeshRenderer
	GetBounds() (min, max math3d.Vec3)
}

// CullingStats tracks frustum culling per frame.
type CullingStats struct {
	MeshesTested int
	MeshesCulled int
	MeshesDrawn  int
}

// lightSteps is the number of distinct light levels a mesh is split into.
// Each level becomes one draw call.
const lightSteps = 32

// RendererConfig configures a Renderer.
type RendererConfig struct {
	// Workers is the size of the worker pool. 0 uses one worker per CPU;
	// 1 draws on the calling goroutine without a pool.
	Workers int
	// Immediate draws every call across Workers goroutines and returns
	// once it is done, instead of queueing it for a pool.
	Immediate bool
	Accel     Accel
	ArenaSize int // clip-column arena entries; 0 for DefaultArenaSize
	// Ambient is the light level of faces turned away from the light.
	Ambient float32
	// Fog tags faces for DeferredLight instead of lighting them directly.
	Fog bool
}

// Renderer draws meshes seen through a camera. It owns the render context
// and, unless configured for one worker, a pool and its draw queue.
type Renderer struct {
	camera *Camera
	fb     *Framebuffer
	ctx    *Context
	pool   *parallel.Pool
	queue   *Queue
	cfg     RendererConfig
	workers int

	frustum      Frustum
	CullingStats CullingStats

	buckets [lightSteps + 1][]TriVertex
}

// NewRenderer creates a renderer drawing into the whole of fb.
func NewRenderer(camera *Camera, fb *Framebuffer, cfg RendererConfig) *Renderer {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	r := &Renderer{
		camera:  camera,
		fb:      fb,
		ctx:     NewContext(fb, 0, 0, fb.Width, fb.Height, WithAccel(cfg.Accel)),
		cfg:     cfg,
		workers: workers,
	}
	if workers > 1 && !cfg.Immediate {
		r.pool = parallel.NewPool(workers)
		r.queue = NewQueue(r.ctx, r.pool, cfg.ArenaSize)
	}
	return r
}

// Context returns the render context, for direct DrawArrays calls.
func (r *Renderer) Context() *Context { return r.ctx }

// Framebuffer returns the render target.
func (r *Renderer) Framebuffer() *Framebuffer { return r.fb }

// Workers returns the number of workers drawing each command.
func (r *Renderer) Workers() int { return r.workers }

// BeginFrame waits for the previous frame, clears the target and picks up
// the camera's current frustum.
func (r *Renderer) BeginFrame(bg color.RGBA) {
	r.Finish()
	r.fb.Clear(bg)
	r.fb.ClearAux()
	r.frustum = r.camera.GetFrustum()
	r.CullingStats = CullingStats{}
}

// run calls fn for every partition and waits for all of them.
func (r *Renderer) run(fn func(part parallel.Partition)) {
	_ = parallel.Run(context.Background(), r.workers, func(_ context.Context, part parallel.Partition) error {
		fn(part)
		return nil
	})
}

// Submit draws args, queued when the renderer has a pool.
func (r *Renderer) Submit(args *DrawArgs) {
	if r.queue != nil {
		r.queue.DrawArrays(args)
		return
	}
	r.run(func(part parallel.Partition) {
		r.ctx.DrawArrays(args, part)
	})
}

// ApplyFog runs the deferred light pass over everything drawn so far.
// See DeferredLight for the meaning of globVis.
func (r *Renderer) ApplyFog(globVis float32) {
	if r.queue != nil {
		r.queue.DeferredLight(globVis)
		return
	}
	fb, accel := r.fb, r.ctx.accel
	r.run(func(part parallel.Partition) {
		DeferredLight(fb, globVis, accel, part)
	})
}

// DrawRect fills a rectangle in framebuffer coordinates, in order with the
// draws around it.
func (r *Renderer) DrawRect(x, y, w, h int, c Color) {
	if r.queue != nil {
		r.queue.DrawRect(x, y, w, h, c)
		return
	}
	r.run(func(part parallel.Partition) {
		r.fb.FillRect(x, y, w, h, c, part)
	})
}

// Finish blocks until every submitted draw has been rendered.
func (r *Renderer) Finish() {
	if r.queue != nil {
		r.queue.Finish()
	}
}

// Dropped returns the number of draws dropped by the queue.
func (r *Renderer) Dropped() int {
	if r.queue == nil {
		return 0
	}
	return r.queue.Dropped()
}

// Close stops the worker pool.
func (r *Renderer) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// cull reports whether a bounded mesh lies outside the frustum.
func (r *Renderer) cull(mesh MeshRenderer, transform math3d.Mat4) bool {
	bounded, ok := mesh.(BoundedMeshRenderer)
	if !ok {
		return false
	}
	r.CullingStats.MeshesTested++
	lo, hi := bounded.GetBounds()
	if r.frustum.Classify(NewAABB(lo, hi).Transform(transform)) == Outside {
		r.CullingStats.MeshesCulled++
		return true
	}
	r.CullingStats.MeshesDrawn++
	return false
}

// DrawMesh renders a mesh in a flat colour, lit per face.
// Returns false if the mesh was culled.
func (r *Renderer) DrawMesh(mesh MeshRenderer, transform math3d.Mat4, c Color, lightDir math3d.Vec3) bool {
	return r.drawMesh(mesh, transform, nil, c, lightDir)
}

// DrawMeshTextured renders a textured mesh, lit per face.
// Returns false if the mesh was culled.
func (r *Renderer) DrawMeshTextured(mesh MeshRenderer, transform math3d.Mat4, tex *Texture, lightDir math3d.Vec3) bool {
	return r.drawMesh(mesh, transform, tex, ColorWhite, lightDir)
}

// drawMesh buckets faces by quantised Lambert light and issues one
// Triangles draw per bucket, with depth testing on.
func (r *Renderer) drawMesh(mesh MeshRenderer, transform math3d.Mat4, tex *Texture, c Color, lightDir math3d.Vec3) bool {
	if r.cull(mesh, transform) {
		return false
	}

	for i := range r.buckets {
		r.buckets[i] = r.buckets[i][:0]
	}
	light := lightDir.Normalize()
	ambient := min(max(r.cfg.Ambient, 0), 1)

	for i := range mesh.TriangleCount() {
		face := mesh.GetFace(i)
		p0, _, uv0 := mesh.GetVertex(face[0])
		p1, _, uv1 := mesh.GetVertex(face[1])
		p2, _, uv2 := mesh.GetVertex(face[2])

		n := transform.MulVec3Dir(p1.Sub(p0).Cross(p2.Sub(p0))).Normalize()
		level := ambient + (1-ambient)*max(n.Dot(light), 0)
		step := int(level*lightSteps + 0.5)

		r.buckets[step] = append(r.buckets[step],
			Vertex(p0.X, p0.Y, p0.Z, uv0.X, uv0.Y),
			Vertex(p1.X, p1.Y, p1.Z, uv1.X, uv1.Y),
			Vertex(p2.X, p2.Y, p2.Z, uv2.X, uv2.Y))
	}

	objectToClip := r.camera.ViewProjectionMatrix().Mul(transform)
	for step, verts := range r.buckets {
		if len(verts) == 0 {
			continue
		}
		args := DrawArgs{
			Uniforms: Uniforms{
				ObjectToClip: objectToClip,
				Light:        uint32(step * 256 / lightSteps),
				Flags:        FlagDepthWrite | FlagDepthTest,
			},
			Vertices: verts,
			Mode:     Triangles,
			Variant:  VariantDraw,
			Texture:  tex,
		}
		if r.cfg.Fog {
			// Even tags are attenuated by distance in DeferredLight.
			args.Uniforms.Light = 256
			args.Uniforms.Flags |= FlagLightTag
			args.Uniforms.LightTag = uint8(min(step*256/lightSteps, 254)) &^ 1
		}
		if tex == nil {
			args.Variant = VariantFill
			lit := c
			if !r.cfg.Fog {
				lit = MultiplyColor(c, float32(step)/lightSteps)
			}
			args.SolidColor = r.fillColor(lit)
		}
		r.Submit(&args)
	}
	return true
}

// fillColor converts c to the fill value of the target format.
func (r *Renderer) fillColor(c Color) uint32 {
	if r.fb.Format == FormatPaletted {
		return uint32(r.fb.paletteIndex(c))
	}
	return PackColor(c) & 0xffffff
}

// DrawMeshWireframe draws the edges of a mesh on top of the finished frame.
func (r *Renderer) DrawMeshWireframe(mesh MeshRenderer, transform math3d.Mat4, c Color) {
	if r.cull(mesh, transform) {
		return
	}
	r.Finish()
	w := NewWireframe(r.camera, r.fb)
	for i := range mesh.TriangleCount() {
		face := mesh.GetFace(i)
		p0, _, _ := mesh.GetVertex(face[0])
		p1, _, _ := mesh.GetVertex(face[1])
		p2, _, _ := mesh.GetVertex(face[2])
		v0, v1, v2 := transform.MulVec3(p0), transform.MulVec3(p1), transform.MulVec3(p2)
		w.DrawLine3D(v0, v1, c)
		w.DrawLine3D(v1, v2, c)
		w.DrawLine3D(v2, v0, c)
	}
}

// DrawGuides draws a ground grid of the given size at height y, and the
// world axes, over the finished frame.
func (r *Renderer) DrawGuides(size, y float32, c Color) {
	r.Finish()
	w := NewWireframe(r.camera, r.fb)
	w.DrawGrid(size, size/8, y, c)
	w.DrawAxes(size / 2)
}
