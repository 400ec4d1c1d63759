package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/taigrr/softpoly/internal/parallel"
)

// PixelFormat selects how the colour plane of a Framebuffer is stored.
type PixelFormat int

const (
	FormatTrueColor PixelFormat = iota // 0xAARRGGBB per pixel
	FormatPaletted                     // one palette index per pixel
)

func (f PixelFormat) String() string {
	switch f {
	case FormatTrueColor:
		return "truecolor"
	case FormatPaletted:
		return "paletted"
	default:
		return fmt.Sprintf("PixelFormat(%d)", int(f))
	}
}

// Framebuffer is the render target: one colour plane plus the inverse-depth,
// stencil and subsector planes. All planes are row-major and share Pitch.
//
// For terminal output the height is twice the number of terminal rows, since
// each cell shows two pixels with a half block.
type Framebuffer struct {
	Width  int
	Height int
	Pitch  int // elements per row in every plane
	Format PixelFormat

	Pixels  []uint32 // true-colour plane; the alpha byte may carry a light tag
	Indices []uint8  // paletted plane
	Palette color.Palette

	Depth     []float32 // interpolated 1/w; 0 means infinitely far
	Stencil   []uint8
	Subsector []uint32
}

// NewFramebuffer creates a true-colour framebuffer.
func NewFramebuffer(width, height int) *Framebuffer {
	fb := newFramebuffer(width, height, FormatTrueColor)
	fb.Pixels = make([]uint32, fb.Pitch*height)
	return fb
}

// NewPalettedFramebuffer creates a framebuffer whose colour plane holds
// indices into pal.
func NewPalettedFramebuffer(width, height int, pal color.Palette) *Framebuffer {
	fb := newFramebuffer(width, height, FormatPaletted)
	fb.Indices = make([]uint8, fb.Pitch*height)
	fb.Palette = pal
	return fb
}

func newFramebuffer(width, height int, format PixelFormat) *Framebuffer {
	width = max(width, 0)
	height = max(height, 0)
	n := width * height
	return &Framebuffer{
		Width:     width,
		Height:    height,
		Pitch:     width,
		Format:    format,
		Depth:     make([]float32, n),
		Stencil:   make([]uint8, n),
		Subsector: make([]uint32, n),
	}
}

// PackColor converts c to the 0xAARRGGBB layout of the true-colour plane.
func PackColor(c color.RGBA) uint32 {
	return uint32(c.A)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// UnpackColor is the inverse of PackColor.
func UnpackColor(p uint32) color.RGBA {
	return color.RGBA{R: uint8(p >> 16), G: uint8(p >> 8), B: uint8(p), A: uint8(p >> 24)}
}

// Clear fills the colour plane with c. Paletted targets use the closest
// palette entry.
func (fb *Framebuffer) Clear(c color.RGBA) {
	switch fb.Format {
	case FormatPaletted:
		fill(fb.Indices, fb.paletteIndex(c))
	default:
		fill(fb.Pixels, PackColor(c))
	}
}

// ClearAux resets the depth, stencil and subsector planes.
func (fb *Framebuffer) ClearAux() {
	clear(fb.Depth)
	clear(fb.Stencil)
	clear(fb.Subsector)
}

// fill sets every element of s using copy-doubling.
func fill[E any](s []E, v E) {
	if len(s) == 0 {
		return
	}
	s[0] = v
	for i := 1; i < len(s); i *= 2 {
		copy(s[i:], s[:i])
	}
}

func (fb *Framebuffer) paletteIndex(c color.RGBA) uint8 {
	if len(fb.Palette) == 0 {
		return 0
	}
	return uint8(fb.Palette.Index(c))
}

func (fb *Framebuffer) inBounds(x, y int) bool {
	return x >= 0 && x < fb.Width && y >= 0 && y < fb.Height
}

// SetPixel sets a pixel at (x, y) to the given color.
// Bounds checking is performed.
func (fb *Framebuffer) SetPixel(x, y int, c color.RGBA) {
	if !fb.inBounds(x, y) {
		return
	}
	i := y*fb.Pitch + x
	switch fb.Format {
	case FormatPaletted:
		fb.Indices[i] = fb.paletteIndex(c)
	default:
		fb.Pixels[i] = PackColor(c)
	}
}

// GetPixel returns the opaque colour at (x, y).
// Returns transparent black if out of bounds.
func (fb *Framebuffer) GetPixel(x, y int) color.RGBA {
	if !fb.inBounds(x, y) {
		return color.RGBA{}
	}
	i := y*fb.Pitch + x
	if fb.Format == FormatPaletted {
		idx := int(fb.Indices[i])
		if idx >= len(fb.Palette) {
			return color.RGBA{A: 255}
		}
		r, g, b, _ := fb.Palette[idx].RGBA()
		return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255}
	}
	c := UnpackColor(fb.Pixels[i])
	c.A = 255
	return c
}

// DrawLine draws a line from (x0, y0) to (x1, y1) using Bresenham's algorithm.
func (fb *Framebuffer) DrawLine(x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		fb.SetPixel(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawRect draws a filled rectangle.
func (fb *Framebuffer) DrawRect(x, y, w, h int, c color.RGBA) {
	fb.FillRect(x, y, w, h, c, parallel.Single)
}

// FillRect draws the rows of a filled rectangle owned by part.
func (fb *Framebuffer) FillRect(x, y, w, h int, c color.RGBA, part parallel.Partition) {
	x0, x1 := max(x, 0), min(x+w, fb.Width)
	y1 := min(y+h, fb.Height)
	if x0 >= x1 {
		return
	}
	for py := part.FirstOwned(max(y, 0)); py < y1; py += part.Step() {
		for px := x0; px < x1; px++ {
			fb.SetPixel(px, py, c)
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// ToImage converts the colour plane to an opaque image.RGBA.
func (fb *Framebuffer) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	for y := range fb.Height {
		for x := range fb.Width {
			img.SetRGBA(x, y, fb.GetPixel(x, y))
		}
	}
	return img
}

// SavePNG saves the framebuffer as a PNG file.
func (fb *Framebuffer) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, fb.ToImage()); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return f.Close()
}
