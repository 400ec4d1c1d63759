package render

import "fmt"

// Accel selects the implementation of the hot per-vertex and per-pixel
// loops. Both produce the same coverage and colours.
type Accel uint8

const (
	AccelWide   Accel = iota // eight lanes at a time
	AccelScalar              // one element at a time
)

func (a Accel) String() string {
	switch a {
	case AccelWide:
		return "wide"
	case AccelScalar:
		return "scalar"
	default:
		return fmt.Sprintf("Accel(%d)", int(a))
	}
}

// ParseAccel parses the names returned by Accel.String.
func ParseAccel(s string) (Accel, error) {
	switch s {
	case "wide":
		return AccelWide, nil
	case "scalar":
		return AccelScalar, nil
	default:
		return 0, fmt.Errorf("unknown accel %q", s)
	}
}

// Option configures a Context.
type Option func(*Context)

// WithAccel selects the scalar or wide loops.
func WithAccel(a Accel) Option {
	return func(c *Context) {
		c.accel = a
	}
}

// Context is the state of one viewport on a render target: where the
// viewport sits, how much of it is visible and whether it is mirrored.
// Commands read it concurrently; configure it between frames only.
type Context struct {
	target *Framebuffer
	accel  Accel

	// Element offset of the visible area's top-left pixel in every plane.
	offset int

	// Viewport origin relative to the visible area. Negative when the
	// viewport starts left of or above the target.
	viewportX, viewportY          int
	viewportWidth, viewportHeight int

	// Size of the visible area.
	clipWidth, clipHeight int

	mirror bool

	// Default clip columns: every column open from 0 to clipHeight.
	clipTop, clipBottom []int16
}

// NewContext creates a context targeting fb with the viewport at
// (x, y, width, height) in framebuffer pixels. The viewport may extend past
// the edges of fb; only the overlapping part is drawn.
func NewContext(fb *Framebuffer, x, y, width, height int, opts ...Option) *Context {
	c := &Context{target: fb}
	for _, opt := range opts {
		opt(c)
	}
	c.SetViewport(x, y, width, height)
	return c
}

// SetViewport moves the viewport and clears the mirror flag.
func (c *Context) SetViewport(x, y, width, height int) {
	fb := c.target
	offsetX := clampInt(x, 0, fb.Width)
	offsetY := clampInt(y, 0, fb.Height)

	c.viewportX = x - offsetX
	c.viewportY = y - offsetY
	c.viewportWidth = width
	c.viewportHeight = height

	c.offset = offsetX + offsetY*fb.Pitch
	c.clipWidth = clampInt(c.viewportX+width, 0, fb.Width-offsetX)
	c.clipHeight = clampInt(c.viewportY+height, 0, fb.Height-offsetY)
	c.mirror = false

	if cap(c.clipTop) < c.clipWidth {
		c.clipTop = make([]int16, c.clipWidth)
		c.clipBottom = make([]int16, c.clipWidth)
	}
	c.clipTop = c.clipTop[:c.clipWidth]
	c.clipBottom = c.clipBottom[:c.clipWidth]
	clear(c.clipTop)
	fill(c.clipBottom, int16(c.clipHeight))
}

// Target returns the framebuffer the context draws into.
func (c *Context) Target() *Framebuffer { return c.target }

// Accel returns the selected loop implementation.
func (c *Context) Accel() Accel { return c.accel }

// ClipSize returns the size of the visible part of the viewport.
func (c *Context) ClipSize() (width, height int) { return c.clipWidth, c.clipHeight }

// ToggleMirror flips the winding order considered front facing.
func (c *Context) ToggleMirror() { c.mirror = !c.mirror }

// Mirror reports whether the winding order is flipped.
func (c *Context) Mirror() bool { return c.mirror }

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
