package render

import (
	"context"
	"image/color"
	"testing"

	"github.com/chewxy/math32"

	"github.com/taigrr/softpoly/internal/parallel"
	"github.com/taigrr/softpoly/pkg/math3d"
)

// quadFan is the whole of clip space as a counter-clockwise fan, with
// texture coordinates running left to right and top to bottom.
func quadFan() []TriVertex {
	return []TriVertex{
		Vertex(-1, -1, 0, 0, 1),
		Vertex(1, -1, 0, 1, 1),
		Vertex(1, 1, 0, 1, 0),
		Vertex(-1, 1, 0, 0, 0),
	}
}

func fillArgs(verts []TriVertex, mode DrawMode) *DrawArgs {
	return &DrawArgs{
		Uniforms:   Uniforms{ObjectToClip: math3d.Identity()},
		Vertices:   verts,
		Mode:       mode,
		Variant:    VariantFill,
		SolidColor: 0xffffff,
	}
}

func countWritten(fb *Framebuffer) int {
	n := 0
	for _, p := range fb.Pixels {
		if p != 0 {
			n++
		}
	}
	return n
}

func TestDrawArrays_Modes(t *testing.T) {
	q := quadFan()
	tests := []struct {
		name  string
		verts []TriVertex
		mode  DrawMode
		want  int
	}{
		{"fan", q, TriangleFan, 256},
		{"strip", []TriVertex{q[0], q[1], q[3], q[2]}, TriangleStrip, 256},
		{"triangles", []TriVertex{q[0], q[1], q[2], q[0], q[2], q[3]}, Triangles, 256},
		{"triangles ignores trailing vertices", []TriVertex{q[0], q[1], q[2], q[0], q[2]}, Triangles, 120},
		{"back facing", []TriVertex{q[0], q[2], q[1], q[0], q[3], q[2]}, Triangles, 0},
		{"too few vertices", q[:2], TriangleFan, 0},
		{"unknown mode", q, DrawMode(9), 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fb := NewFramebuffer(16, 16)
			NewContext(fb, 0, 0, 16, 16).Draw(fillArgs(tc.verts, tc.mode))
			if got := countWritten(fb); got != tc.want {
				t.Errorf("wrote %d pixels, want %d", got, tc.want)
			}
		})
	}
}

func TestDrawArrays_Winding(t *testing.T) {
	q := quadFan()
	reversed := []TriVertex{q[3], q[2], q[1], q[0]}

	tests := []struct {
		name   string
		ccw    bool
		mirror bool
		want   int
	}{
		{"clockwise culled", false, false, 0},
		{"ccw flag", true, false, 256},
		{"mirrored", false, true, 256},
		{"ccw and mirrored", true, true, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fb := NewFramebuffer(16, 16)
			ctx := NewContext(fb, 0, 0, 16, 16)
			if tc.mirror {
				ctx.ToggleMirror()
			}
			args := fillArgs(reversed, TriangleFan)
			args.CCW = tc.ccw
			ctx.Draw(args)
			if got := countWritten(fb); got != tc.want {
				t.Errorf("wrote %d pixels, want %d", got, tc.want)
			}
		})
	}
}

func TestDrawArrays_Viewport(t *testing.T) {
	fb := NewFramebuffer(16, 16)
	NewContext(fb, 4, 4, 8, 8).Draw(fillArgs(quadFan(), TriangleFan))
	for y := range 16 {
		for x := range 16 {
			want := x >= 4 && x < 12 && y >= 4 && y < 12
			if got := fb.Pixels[y*16+x] != 0; got != want {
				t.Fatalf("pixel (%d,%d) written=%v, want %v", x, y, got, want)
			}
		}
	}
}

func TestDrawArrays_SolidColorFallback(t *testing.T) {
	fb := NewFramebuffer(16, 16)
	args := fillArgs(quadFan(), TriangleFan)
	args.SolidColor = 0
	args.Uniforms.Color = 0x336699
	NewContext(fb, 0, 0, 16, 16).Draw(args)
	if got := fb.Pixels[0]; got != 0xff336699 {
		t.Errorf("pixel = %#x, want 0xff336699", got)
	}
}

func TestDrawArrays_ClipColumns(t *testing.T) {
	top := make([]int16, 16)
	bottom := make([]int16, 16)
	for x := range 16 {
		top[x], bottom[x] = 2, 6
	}

	t.Run("valid", func(t *testing.T) {
		fb := NewFramebuffer(16, 16)
		args := fillArgs(quadFan(), TriangleFan)
		args.ClipLeft, args.ClipRight = 3, 40
		args.ClipTop, args.ClipBottom = top, bottom
		NewContext(fb, 0, 0, 16, 16).Draw(args)
		for y := range 16 {
			for x := range 16 {
				want := x >= 3 && y >= 2 && y < 6
				if got := fb.Pixels[y*16+x] != 0; got != want {
					t.Fatalf("pixel (%d,%d) written=%v, want %v", x, y, got, want)
				}
			}
		}
	})

	t.Run("malformed", func(t *testing.T) {
		bad := append([]int16(nil), bottom...)
		bad[5] = 17
		fb := NewFramebuffer(16, 16)
		args := fillArgs(quadFan(), TriangleFan)
		args.ClipRight = 15
		args.ClipTop, args.ClipBottom = top, bad
		NewContext(fb, 0, 0, 16, 16).Draw(args)
		if n := countWritten(fb); n != 0 {
			t.Errorf("wrote %d pixels through malformed clip columns", n)
		}
	})
}

func TestDrawArrays_Textured(t *testing.T) {
	tex := NewTexture(16, 16)
	for y := range 16 {
		for x := range 16 {
			tex.SetPixel(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 7, A: 255})
		}
	}
	for _, accel := range []Accel{AccelScalar, AccelWide} {
		t.Run(accel.String(), func(t *testing.T) {
			fb := NewFramebuffer(16, 16)
			NewContext(fb, 0, 0, 16, 16, WithAccel(accel)).Draw(&DrawArgs{
				Uniforms: Uniforms{ObjectToClip: math3d.Identity(), Light: 256},
				Vertices: quadFan(),
				Mode:     TriangleFan,
				Variant:  VariantDraw,
				Texture:  tex,
			})
			for y := range 16 {
				for x := range 16 {
					if got, want := fb.Pixels[y*16+x], tex.Pixels[x*16+y]; got != want {
						t.Fatalf("pixel (%d,%d) = %#x, want %#x", x, y, got, want)
					}
				}
			}
		})
	}
}

// perspectiveArgs is a textured, depth-tested quad seen at an angle.
func perspectiveArgs() *DrawArgs {
	tex := NewCheckerTexture(32, 32, 4, ColorWhite, ColorRed)
	proj := math3d.Perspective(math32.Pi/3, 1, 0.5, 20)
	model := math3d.Translate(math3d.V3(0.3, -0.2, -3)).Mul(math3d.RotateY(0.7)).Mul(math3d.RotateX(-0.4))
	return &DrawArgs{
		Uniforms: Uniforms{
			ObjectToClip: proj.Mul(model),
			Light:        200,
			Flags:        FlagDepthWrite | FlagDepthTest,
		},
		Vertices: []TriVertex{
			Vertex(-2, -2, 0, 0, 3),
			Vertex(2, -2, 0, 3, 3),
			Vertex(2, 2, 0, 3, 0),
			Vertex(-2, 2, 0, 0, 0),
		},
		Mode:    TriangleFan,
		Variant: VariantDraw,
		Texture: tex,
	}
}

func perspectiveScene(ctx *Context, part parallel.Partition) {
	ctx.DrawArrays(perspectiveArgs(), part)
}

func TestDrawArrays_WorkersMatchSingle(t *testing.T) {
	want := NewFramebuffer(64, 48)
	perspectiveScene(NewContext(want, 0, 0, 64, 48), parallel.Single)
	if countWritten(want) == 0 {
		t.Fatal("scene drew nothing")
	}

	for _, workers := range []int{2, 3, 4} {
		got := NewFramebuffer(64, 48)
		ctx := NewContext(got, 0, 0, 64, 48)
		err := parallel.Run(context.Background(), workers, func(_ context.Context, part parallel.Partition) error {
			perspectiveScene(ctx, part)
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		for i := range want.Pixels {
			if want.Pixels[i] != got.Pixels[i] || want.Depth[i] != got.Depth[i] {
				t.Fatalf("%d workers: pixel %d = %#x/%v, want %#x/%v",
					workers, i, got.Pixels[i], got.Depth[i], want.Pixels[i], want.Depth[i])
			}
		}
	}
}

func TestDrawArrays_ScalarMatchesWide(t *testing.T) {
	scalar := NewFramebuffer(64, 48)
	perspectiveScene(NewContext(scalar, 0, 0, 64, 48, WithAccel(AccelScalar)), parallel.Single)
	wideFB := NewFramebuffer(64, 48)
	perspectiveScene(NewContext(wideFB, 0, 0, 64, 48, WithAccel(AccelWide)), parallel.Single)

	for i := range scalar.Pixels {
		if scalar.Pixels[i] != wideFB.Pixels[i] {
			t.Fatalf("pixel %d: scalar %#x, wide %#x", i, scalar.Pixels[i], wideFB.Pixels[i])
		}
	}
}

func TestDrawArrays_NearPlaneClip(t *testing.T) {
	// A floor running from behind the camera into the distance.
	fb := NewFramebuffer(32, 32)
	proj := math3d.Perspective(math32.Pi/2, 1, 0.5, 50)
	NewContext(fb, 0, 0, 32, 32).Draw(&DrawArgs{
		Uniforms: Uniforms{ObjectToClip: proj},
		Vertices: []TriVertex{
			Vertex(-10, -1, 5, 0, 0),
			Vertex(10, -1, 5, 0, 0),
			Vertex(10, -1, -40, 0, 0),
			Vertex(-10, -1, -40, 0, 0),
		},
		Mode:       TriangleFan,
		Variant:    VariantFill,
		SolidColor: 0x00ff00,
	})
	if fb.Pixels[31*32+16] == 0 {
		t.Error("floor below the camera not drawn")
	}
	if fb.Pixels[0] != 0 {
		t.Error("sky above the horizon drawn")
	}
}

func BenchmarkDrawArrays(b *testing.B) {
	for _, accel := range []Accel{AccelScalar, AccelWide} {
		b.Run(accel.String(), func(b *testing.B) {
			fb := NewFramebuffer(320, 200)
			ctx := NewContext(fb, 0, 0, 320, 200, WithAccel(accel))
			for b.Loop() {
				perspectiveScene(ctx, parallel.Single)
			}
		})
	}
}

func TestDrawShadedTriangle_BlendModeVaryings(t *testing.T) {
	tests := []struct {
		name         string
		mode         BlendMode
		uMin, vMin   float32
		uSpan, vSpan float32
	}{
		{"copy rebases", BlendCopy, 5, 1, 3, 3},
		{"skycap keeps", BlendSkycap, 25, 31, 3, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			vert := [3]ShadedVertex{
				{TriVertex: TriVertex{X: -1, Y: -1, W: 1, Varying: [NumVaryings]float32{25.25, 31.5}}},
				{TriVertex: TriVertex{X: 1, Y: -1, W: 1, Varying: [NumVaryings]float32{27.5, 31.5}}},
				{TriVertex: TriVertex{X: 1, Y: 1, W: 1, Varying: [NumVaryings]float32{27.5, 33}}},
			}
			var seen []TriVertex
			capture := func(a *TriDrawArgs, _ parallel.Partition) {
				seen = append(seen, *a.V1, *a.V2, *a.V3)
			}
			tri := TriDrawArgs{Uniforms: &Uniforms{BlendMode: tc.mode}}
			NewContext(NewFramebuffer(16, 16), 0, 0, 16, 16).drawShadedTriangle(&vert, false, &tri, capture, parallel.Single)

			if len(seen) == 0 {
				t.Fatal("triangle never reached the rasterizer")
			}
			for _, v := range seen {
				u, w := v.Varying[0], v.Varying[1]
				if u < tc.uMin || u >= tc.uMin+tc.uSpan || w < tc.vMin || w >= tc.vMin+tc.vSpan {
					t.Errorf("varyings = (%v, %v), want within [%v,%v) x [%v,%v)",
						u, w, tc.uMin, tc.uMin+tc.uSpan, tc.vMin, tc.vMin+tc.vSpan)
				}
			}
		})
	}
}
