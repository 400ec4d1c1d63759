package render

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/taigrr/softpoly/internal/parallel"
)

func TestPackColor(t *testing.T) {
	c := color.RGBA{R: 0x12, G: 0x34, B: 0x56, A: 0x78}
	p := PackColor(c)
	if p != 0x78123456 {
		t.Fatalf("PackColor = %#x, want 0x78123456", p)
	}
	if got := UnpackColor(p); got != c {
		t.Errorf("UnpackColor = %v, want %v", got, c)
	}
}

func TestFramebuffer_New(t *testing.T) {
	fb := NewFramebuffer(7, 5)
	if fb.Pitch != 7 || len(fb.Pixels) != 35 || len(fb.Depth) != 35 || len(fb.Stencil) != 35 || len(fb.Subsector) != 35 {
		t.Fatalf("unexpected plane sizes: pitch %d, %d/%d/%d/%d",
			fb.Pitch, len(fb.Pixels), len(fb.Depth), len(fb.Stencil), len(fb.Subsector))
	}
	if fb.Format != FormatTrueColor || fb.Indices != nil {
		t.Error("true-colour framebuffer has a paletted plane")
	}

	empty := NewFramebuffer(-3, 4)
	if empty.Width != 0 || len(empty.Pixels) != 0 {
		t.Errorf("negative width not clamped: %d", empty.Width)
	}
}

func TestFramebuffer_ClearAndGet(t *testing.T) {
	fb := NewFramebuffer(9, 3)
	fb.Clear(ColorSky)
	for y := range fb.Height {
		for x := range fb.Width {
			if got := fb.GetPixel(x, y); got != ColorSky {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, ColorSky)
			}
		}
	}

	// Light tags in the alpha byte read back as opaque.
	fb.Pixels[4] = 0x20102030
	if got := fb.GetPixel(4, 0); got != (color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 255}) {
		t.Errorf("tagged pixel = %v", got)
	}
	if got := fb.GetPixel(-1, 0); got != (color.RGBA{}) {
		t.Errorf("out of bounds = %v, want zero", got)
	}
}

func TestFramebuffer_ClearAux(t *testing.T) {
	fb := NewFramebuffer(4, 4)
	fill(fb.Depth, 0.5)
	fill(fb.Stencil, 7)
	fill(fb.Subsector, 99)
	fb.ClearAux()
	for i := range fb.Depth {
		if fb.Depth[i] != 0 || fb.Stencil[i] != 0 || fb.Subsector[i] != 0 {
			t.Fatalf("element %d not cleared", i)
		}
	}
}

func TestFramebuffer_Paletted(t *testing.T) {
	pal := color.Palette{ColorBlack, ColorRed, ColorBlue}
	fb := NewPalettedFramebuffer(4, 2, pal)
	fb.Clear(color.RGBA{R: 250, A: 255})
	if fb.Indices[5] != 1 {
		t.Errorf("clear picked index %d, want 1", fb.Indices[5])
	}
	fb.SetPixel(1, 1, color.RGBA{B: 200, A: 255})
	if fb.Indices[5] != 2 {
		t.Errorf("SetPixel picked index %d, want 2", fb.Indices[5])
	}
	if got := fb.GetPixel(1, 1); got != ColorBlue {
		t.Errorf("GetPixel = %v, want blue", got)
	}

	fb.Indices[0] = 200
	if got := fb.GetPixel(0, 0); got != (color.RGBA{A: 255}) {
		t.Errorf("index past the palette = %v, want opaque black", got)
	}
}

func TestFill(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 17, 64, 100} {
		s := make([]uint32, n)
		fill(s, 0xdeadbeef)
		for i, v := range s {
			if v != 0xdeadbeef {
				t.Fatalf("len %d: element %d = %#x", n, i, v)
			}
		}
	}
}

func TestFramebuffer_DrawLine(t *testing.T) {
	fb := NewFramebuffer(10, 10)
	fb.DrawLine(1, 1, 8, 5, ColorWhite)
	if fb.GetPixel(1, 1) != ColorWhite || fb.GetPixel(8, 5) != ColorWhite {
		t.Error("line endpoints not drawn")
	}

	fb.Clear(ColorBlack)
	fb.DrawLine(-5, 3, 20, 3, ColorRed)
	for x := range 10 {
		if fb.GetPixel(x, 3) != ColorRed {
			t.Fatalf("clipped horizontal line missing pixel %d", x)
		}
	}
}

func TestFramebuffer_DrawRect(t *testing.T) {
	fb := NewFramebuffer(6, 6)
	fb.DrawRect(4, 4, 5, 5, ColorGreen)
	if fb.GetPixel(5, 5) != ColorGreen || fb.GetPixel(3, 3) == ColorGreen {
		t.Error("rectangle drawn in the wrong place")
	}
}

func TestFramebuffer_SavePNG(t *testing.T) {
	fb := NewFramebuffer(3, 2)
	fb.Clear(ColorBlack)
	fb.SetPixel(2, 1, ColorYellow)
	path := filepath.Join(t.TempDir(), "frame.png")
	if err := fb.SavePNG(path); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
		t.Fatalf("image size %v", b)
	}
	if got := color.RGBAModel.Convert(img.At(2, 1)); got != ColorYellow {
		t.Errorf("pixel = %v, want yellow", got)
	}

	if err := fb.SavePNG(filepath.Join(t.TempDir(), "missing", "frame.png")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestTerminalSize(t *testing.T) {
	w, h := TerminalSize(80, 24)
	if w != 80 || h != 48 {
		t.Errorf("TerminalSize = %dx%d, want 80x48", w, h)
	}
}

func BenchmarkFramebufferClear(b *testing.B) {
	fb := NewFramebuffer(320, 200)
	for b.Loop() {
		fb.Clear(ColorSky)
		fb.ClearAux()
	}
}

func TestFramebuffer_FillRectPartitioned(t *testing.T) {
	want := NewFramebuffer(12, 9)
	want.DrawRect(-2, 1, 8, 20, ColorBlue)

	got := NewFramebuffer(12, 9)
	for core := range 4 {
		got.FillRect(-2, 1, 8, 20, ColorBlue, parallel.Partition{Core: core, NumCores: 4})
	}
	for i := range want.Pixels {
		if got.Pixels[i] != want.Pixels[i] {
			t.Fatalf("pixel %d = %#x, want %#x", i, got.Pixels[i], want.Pixels[i])
		}
	}
	if want.GetPixel(5, 8) != ColorBlue || want.GetPixel(6, 1) == ColorBlue || want.GetPixel(0, 0) == ColorBlue {
		t.Error("rectangle not clipped to the framebuffer")
	}

	part := parallel.Partition{Core: 1, NumCores: 2}
	only := NewFramebuffer(4, 4)
	only.FillRect(0, 0, 4, 4, ColorBlue, part)
	for y := range 4 {
		if got := only.GetPixel(0, y) == ColorBlue; got != (y%2 == 1) {
			t.Errorf("row %d filled=%v by worker 1 of 2", y, got)
		}
	}
}
