package render

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"os"

	"github.com/chewxy/math32"
	_ "golang.org/x/image/bmp" // Register BMP decoder
	xdraw "golang.org/x/image/draw"
)

// Texture is the texel source of the textured drawers. Texels are stored
// column-major: texel (x, y) lives at x*Height + y, so the inner loop of a
// wall-style draw walks down a column.
type Texture struct {
	Width    int
	Height   int
	Paletted bool
	Pixels   []uint32 // 0xAARRGGBB, when !Paletted
	Indices  []uint8  // palette indices, when Paletted
}

// NewTexture creates an empty true-colour texture.
func NewTexture(width, height int) *Texture {
	return &Texture{
		Width:  width,
		Height: height,
		Pixels: make([]uint32, width*height),
	}
}

// NewPalettedTexture creates an empty paletted texture.
func NewPalettedTexture(width, height int) *Texture {
	return &Texture{
		Width:    width,
		Height:   height,
		Paletted: true,
		Indices:  make([]uint8, width*height),
	}
}

// LoadTexture loads a texture from an image file (PNG, JPEG or BMP).
// Images larger than maxSize on either side are scaled down; pass 0 to keep
// the original size.
func LoadTexture(path string, maxSize int) (*Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open texture: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return TextureFromImage(FitImage(img, maxSize)), nil
}

// FitImage scales img down so neither side exceeds maxSize, keeping the
// aspect ratio. Smaller images and maxSize <= 0 return img unchanged.
func FitImage(img image.Image, maxSize int) image.Image {
	b := img.Bounds()
	if maxSize <= 0 || (b.Dx() <= maxSize && b.Dy() <= maxSize) {
		return img
	}
	w, h := maxSize, maxSize
	if b.Dx() > b.Dy() {
		h = max(1, b.Dy()*maxSize/b.Dx())
	} else {
		w = max(1, b.Dx()*maxSize/b.Dy())
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// TextureFromImage creates a texture from an image.Image. Paletted images
// become paletted textures holding the same indices; everything else is
// converted to true colour.
func TextureFromImage(img image.Image) *Texture {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	if p, ok := img.(*image.Paletted); ok {
		tex := NewPalettedTexture(width, height)
		for y := range height {
			for x := range width {
				tex.Indices[x*height+y] = p.ColorIndexAt(b.Min.X+x, b.Min.Y+y)
			}
		}
		return tex
	}

	rgba, ok := img.(*image.NRGBA)
	if !ok {
		rgba = image.NewNRGBA(image.Rect(0, 0, width, height))
		xdraw.Draw(rgba, rgba.Bounds(), img, b.Min, xdraw.Src)
		b = rgba.Bounds()
	}

	tex := NewTexture(width, height)
	for y := range height {
		for x := range width {
			c := rgba.NRGBAAt(b.Min.X+x, b.Min.Y+y)
			tex.Pixels[x*height+y] = PackColor(color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A})
		}
	}
	return tex
}

// PalettedTextureFromImage maps img onto pal and returns a paletted
// texture for paletted framebuffers.
func PalettedTextureFromImage(img image.Image, pal color.Palette) *Texture {
	b := img.Bounds()
	p := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), pal)
	xdraw.Draw(p, p.Bounds(), img, b.Min, xdraw.Src)
	return TextureFromImage(p)
}

// NewCheckerTexture creates a procedural checkerboard texture.
func NewCheckerTexture(width, height, checkSize int, c1, c2 Color) *Texture {
	tex := NewTexture(width, height)
	for y := range height {
		for x := range width {
			if (x/checkSize+y/checkSize)%2 == 0 {
				tex.SetPixel(x, y, c1)
			} else {
				tex.SetPixel(x, y, c2)
			}
		}
	}
	return tex
}

// ToImage returns the texels of a true-colour texture as an image.
// Paletted textures carry no palette and give nil.
func (t *Texture) ToImage() *image.RGBA {
	if t.Paletted {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, t.Width, t.Height))
	for y := range t.Height {
		for x := range t.Width {
			img.SetRGBA(x, y, t.GetPixel(x, y))
		}
	}
	return img
}

// SetPixel sets a texel of a true-colour texture.
func (t *Texture) SetPixel(x, y int, c Color) {
	if t.Paletted || x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return
	}
	t.Pixels[x*t.Height+y] = PackColor(c)
}

// SetIndex sets a texel of a paletted texture.
func (t *Texture) SetIndex(x, y int, idx uint8) {
	if !t.Paletted || x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return
	}
	t.Indices[x*t.Height+y] = idx
}

// GetPixel returns the texel at (x, y) of a true-colour texture.
func (t *Texture) GetPixel(x, y int) Color {
	if t.Paletted || x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return Color{}
	}
	return UnpackColor(t.Pixels[x*t.Height+y])
}

// Sample returns the true-colour texel under (u, v) with repeat wrapping,
// using the same fixed-point lookup as the triangle drawers.
func (t *Texture) Sample(u, v float32) Color {
	if t.Paletted || t.Width == 0 || t.Height == 0 {
		return Color{}
	}
	return UnpackColor(t.Pixels[texelOffset(fracBits(u), fracBits(v), uint32(t.Width), uint32(t.Height))])
}

// fracBits returns the fractional part of f as a 0.32 fixed-point value.
func fracBits(f float32) uint32 {
	return uint32(int64((f - math32.Floor(f)) * 4294967296.0))
}

// texelOffset maps 0.32 texture fractions to a column-major texel index.
// The result is always below width*height.
func texelOffset(ufrac, vfrac, width, height uint32) uint32 {
	upos := ((ufrac >> 16) * width) >> 16
	vpos := ((vfrac >> 16) * height) >> 16
	return upos*height + vpos
}

// MultiplyColor multiplies a color by a scalar (for lighting).
func MultiplyColor(c Color, intensity float32) Color {
	return Color{
		R: uint8(min(255, float32(c.R)*intensity)),
		G: uint8(min(255, float32(c.G)*intensity)),
		B: uint8(min(255, float32(c.B)*intensity)),
		A: c.A,
	}
}
