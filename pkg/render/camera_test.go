package render

import (
	"testing"

	"github.com/chewxy/math32"

	"github.com/taigrr/softpoly/pkg/math3d"
)

func TestCamera_WorldToScreen(t *testing.T) {
	cam := NewCamera()
	cam.SetAspectRatio(1)

	x, y, _, visible := cam.WorldToScreen(math3d.V3(0, 0, -5), 64, 32)
	if !visible || !approx(x, 32, 1e-3) || !approx(y, 16, 1e-3) {
		t.Errorf("centre projected to (%v,%v) visible=%v", x, y, visible)
	}

	// Up in the world is up on screen.
	_, yUp, _, _ := cam.WorldToScreen(math3d.V3(0, 1, -5), 64, 32)
	if yUp >= y {
		t.Errorf("point above centre projected below it: %v >= %v", yUp, y)
	}

	if _, _, _, visible := cam.WorldToScreen(math3d.V3(0, 0, 5), 64, 32); visible {
		t.Error("point behind the camera reported visible")
	}
	if _, _, _, visible := cam.WorldToScreen(math3d.V3(50, 0, -5), 64, 32); visible {
		t.Error("point far off to the side reported visible")
	}
}

func TestCamera_Movement(t *testing.T) {
	cam := NewCamera()
	cam.MoveForward(2)
	if p := cam.Position; !approx(p.Z, -2, 1e-6) || !approx(p.X, 0, 1e-6) {
		t.Errorf("after MoveForward position = %v, want (0,0,-2)", p)
	}
	cam.MoveRight(3)
	if p := cam.Position; !approx(p.X, 3, 1e-6) {
		t.Errorf("after MoveRight position = %v, want x = 3", p)
	}
}

func TestCamera_RotateClampsPitch(t *testing.T) {
	cam := NewCamera()
	cam.Rotate(10, 0, 0)
	if cam.Pitch >= math32.Pi/2 {
		t.Errorf("pitch %v not clamped below straight up", cam.Pitch)
	}
	cam.Rotate(-20, 0.5, 0)
	if cam.Pitch <= -math32.Pi/2 {
		t.Errorf("pitch %v not clamped above straight down", cam.Pitch)
	}
	if cam.Yaw != 0.5 {
		t.Errorf("yaw = %v, want 0.5", cam.Yaw)
	}
}

func TestCamera_LookAt(t *testing.T) {
	cam := NewCamera()
	cam.SetPosition(math3d.V3(0, 0, 5))
	cam.LookAt(math3d.V3(5, 0, 5))

	f := cam.Forward()
	if !approx(f.X, 1, 1e-5) || !approx(f.Y, 0, 1e-5) || !approx(f.Z, 0, 1e-5) {
		t.Errorf("forward = %v, want (1,0,0)", f)
	}
	if !cam.GetFrustum().ContainsPoint(math3d.V3(10, 0, 5)) {
		t.Error("target direction outside the frustum")
	}
}

func TestCamera_MatricesTrackChanges(t *testing.T) {
	cam := NewCamera()
	before := cam.ViewProjectionMatrix()
	cam.SetPosition(math3d.V3(1, 2, 3))
	moved := cam.ViewProjectionMatrix()
	if moved == before {
		t.Error("view-projection unchanged after SetPosition")
	}
	cam.SetFOV(math32.Pi / 2)
	if cam.ViewProjectionMatrix() == moved {
		t.Error("view-projection unchanged after SetFOV")
	}
	cam.SetClipPlanes(1, 10)
	got, want := cam.ProjectionMatrix(), math3d.Perspective(math32.Pi/2, 16.0/9.0, 1, 10)
	for i := range got {
		if !approx(got[i], want[i], 1e-5) {
			t.Fatalf("projection[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
