package render

import (
	"github.com/taigrr/softpoly/pkg/math3d"
)

// Wireframe draws world-space lines straight into a framebuffer. It skips
// the triangle pipeline and the worker pool entirely, so only use it after
// queued draws have finished.
type Wireframe struct {
	camera *Camera
	fb     *Framebuffer
}

// NewWireframe creates a new wireframe renderer.
func NewWireframe(camera *Camera, fb *Framebuffer) *Wireframe {
	return &Wireframe{camera: camera, fb: fb}
}

// DrawLine3D draws a line in 3D space. Lines with either end off screen are
// skipped.
func (w *Wireframe) DrawLine3D(p1, p2 math3d.Vec3, color Color) {
	x1, y1, _, vis1 := w.camera.WorldToScreen(p1, w.fb.Width, w.fb.Height)
	x2, y2, _, vis2 := w.camera.WorldToScreen(p2, w.fb.Width, w.fb.Height)
	if !vis1 || !vis2 {
		// TODO: clip against the near plane instead of dropping lines that
		// leave the screen.
		return
	}
	w.fb.DrawLine(int(x1), int(y1), int(x2), int(y2), color)
}

// DrawAxes draws the coordinate axes at the origin.
func (w *Wireframe) DrawAxes(length float32) {
	origin := math3d.Zero3()
	w.DrawLine3D(origin, math3d.V3(length, 0, 0), ColorRed)
	w.DrawLine3D(origin, math3d.V3(0, length, 0), ColorGreen)
	w.DrawLine3D(origin, math3d.V3(0, 0, length), ColorBlue)
}

// DrawGrid draws a size x size grid centred under the origin on the XZ
// plane at height y.
func (w *Wireframe) DrawGrid(size, step, y float32, color Color) {
	if step <= 0 {
		return
	}
	half := size / 2
	lines := int(size/step + 0.5)
	for i := 0; i <= lines; i++ {
		t := -half + float32(i)*step
		w.DrawLine3D(math3d.V3(t, y, -half), math3d.V3(t, y, half), color)
		w.DrawLine3D(math3d.V3(-half, y, t), math3d.V3(half, y, t), color)
	}
}
