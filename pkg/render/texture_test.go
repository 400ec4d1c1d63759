package render

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func gradientImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 9, A: 255})
		}
	}
	return img
}

func TestTextureFromImage_ColumnMajor(t *testing.T) {
	tex := TextureFromImage(gradientImage(5, 3))
	if tex.Width != 5 || tex.Height != 3 || tex.Paletted {
		t.Fatalf("texture %dx%d paletted=%v", tex.Width, tex.Height, tex.Paletted)
	}
	for y := range 3 {
		for x := range 5 {
			want := PackColor(color.RGBA{R: uint8(x), G: uint8(y), B: 9, A: 255})
			if got := tex.Pixels[x*3+y]; got != want {
				t.Fatalf("texel (%d,%d) = %#x, want %#x", x, y, got, want)
			}
		}
	}
	if got := tex.GetPixel(4, 2); got != (color.RGBA{R: 4, G: 2, B: 9, A: 255}) {
		t.Errorf("GetPixel = %v", got)
	}
}

func TestTextureFromImage_Converts(t *testing.T) {
	img := image.NewRGBA(image.Rect(10, 10, 12, 12))
	img.SetRGBA(11, 10, color.RGBA{R: 255, A: 255})
	tex := TextureFromImage(img)
	if got := tex.GetPixel(1, 0); got != ColorRed {
		t.Errorf("converted texel = %v, want red", got)
	}
}

func TestTextureFromImage_Paletted(t *testing.T) {
	pal := color.Palette{ColorBlack, ColorWhite}
	img := image.NewPaletted(image.Rect(0, 0, 2, 2), pal)
	img.SetColorIndex(1, 0, 1)

	tex := TextureFromImage(img)
	if !tex.Paletted || len(tex.Indices) != 4 {
		t.Fatal("paletted image did not give a paletted texture")
	}
	if tex.Indices[1*2+0] != 1 || tex.Indices[0] != 0 {
		t.Errorf("indices = %v", tex.Indices)
	}

	mapped := PalettedTextureFromImage(gradientImage(4, 4), color.Palette{ColorBlack, ColorRed})
	if !mapped.Paletted || mapped.Width != 4 {
		t.Fatalf("PalettedTextureFromImage gave %+v", mapped)
	}
}

func TestFitImage(t *testing.T) {
	tests := []struct {
		name         string
		w, h, max    int
		wantW, wantH int
	}{
		{"small stays", 10, 10, 64, 10, 10},
		{"no limit", 300, 100, 0, 300, 100},
		{"wide", 200, 100, 50, 50, 25},
		{"tall", 30, 120, 60, 15, 60},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := FitImage(gradientImage(tc.w, tc.h), tc.max).Bounds()
			if b.Dx() != tc.wantW || b.Dy() != tc.wantH {
				t.Errorf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tc.wantW, tc.wantH)
			}
		})
	}
}

func TestLoadTexture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tex.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, gradientImage(16, 8)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	tex, err := LoadTexture(path, 8)
	if err != nil {
		t.Fatal(err)
	}
	if tex.Width != 8 || tex.Height != 4 {
		t.Errorf("loaded %dx%d, want 8x4", tex.Width, tex.Height)
	}

	if _, err := LoadTexture(filepath.Join(t.TempDir(), "nope.png"), 0); err == nil {
		t.Error("expected error for missing file")
	}
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTexture(path, 0); err == nil {
		t.Error("expected error for undecodable file")
	}
}

func TestTexture_Sample(t *testing.T) {
	tex := NewTexture(4, 2)
	for y := range 2 {
		for x := range 4 {
			tex.SetPixel(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}

	tests := []struct {
		u, v float32
		x, y uint8
	}{
		{0, 0, 0, 0},
		{0.5, 0.5, 2, 1},
		{0.99, 0.4, 3, 0},
		{-0.25, 0.75, 3, 1},
		{1.25, 2.1, 1, 0},
	}
	for _, tc := range tests {
		got := tex.Sample(tc.u, tc.v)
		if got.R != tc.x || got.G != tc.y {
			t.Errorf("Sample(%v,%v) = texel (%d,%d), want (%d,%d)", tc.u, tc.v, got.R, got.G, tc.x, tc.y)
		}
	}
}

func TestTexelOffset_InRange(t *testing.T) {
	for _, size := range [][2]uint32{{1, 1}, {3, 5}, {64, 64}, {100, 7}} {
		w, h := size[0], size[1]
		for _, f := range []uint32{0, 1, 1 << 31, 0xffff0000, 0xffffffff} {
			if off := texelOffset(f, f, w, h); off >= w*h {
				t.Errorf("%dx%d: offset %d for frac %#x out of range", w, h, off, f)
			}
		}
	}
}

func TestTexture_Checker(t *testing.T) {
	tex := NewCheckerTexture(8, 8, 4, ColorWhite, ColorBlack)
	if tex.GetPixel(0, 0) != ColorWhite || tex.GetPixel(4, 0) != ColorBlack || tex.GetPixel(4, 4) != ColorWhite {
		t.Error("checker pattern wrong")
	}
}

func TestTexture_ToImage(t *testing.T) {
	tex := NewCheckerTexture(4, 2, 1, ColorWhite, ColorRed)
	img := tex.ToImage()
	if img.Bounds().Dx() != 4 || img.RGBAAt(1, 0) != ColorRed || img.RGBAAt(1, 1) != ColorWhite {
		t.Error("image does not match the texels")
	}
	if TextureFromImage(img).Pixels[2] != tex.Pixels[2] {
		t.Error("round trip changed texels")
	}
	if NewPalettedTexture(2, 2).ToImage() != nil {
		t.Error("paletted texture gave an image")
	}
}

func TestTexture_SetPixelKind(t *testing.T) {
	p := NewPalettedTexture(2, 2)
	p.SetPixel(0, 0, ColorRed)
	p.SetIndex(1, 1, 5)
	if p.Indices[3] != 5 || p.GetPixel(0, 0) != (color.RGBA{}) {
		t.Error("paletted texture accepted a colour write")
	}
	c := NewTexture(2, 2)
	c.SetIndex(0, 0, 5)
	c.SetPixel(9, 9, ColorRed)
	if c.Pixels[0] != 0 {
		t.Error("true-colour texture accepted an index write")
	}
}

func TestMultiplyColor(t *testing.T) {
	got := MultiplyColor(color.RGBA{R: 100, G: 200, B: 50, A: 7}, 1.5)
	want := color.RGBA{R: 150, G: 255, B: 75, A: 7}
	if got != want {
		t.Errorf("MultiplyColor = %v, want %v", got, want)
	}
}
