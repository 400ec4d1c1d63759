package render

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/taigrr/softpoly/internal/parallel"
	"github.com/taigrr/softpoly/internal/wide"
)

// blockSize is the edge length of the square blocks the rasterizer walks.
const blockSize = 8

// DrawVariant selects what a triangle writes into the colour plane.
type DrawVariant uint8

const (
	VariantDraw DrawVariant = iota // nearest-sampled texture
	VariantFill                    // solid colour
)

func (v DrawVariant) String() string {
	switch v {
	case VariantDraw:
		return "draw"
	case VariantFill:
		return "fill"
	default:
		return fmt.Sprintf("DrawVariant(%d)", int(v))
	}
}

// TriDrawArgs is one screen-space triangle plus everything needed to write
// it. Vertices carry pixel coordinates in X, Y and 1/w in W.
type TriDrawArgs struct {
	V1, V2, V3 *TriVertex

	Target *Framebuffer
	Offset int // element offset of clip-area pixel (0, 0) in every plane
	Pitch  int

	// Columns ClipLeft..ClipRight (inclusive) are drawable; column x is
	// open for rows ClipTop[x] <= y < ClipBottom[x].
	ClipLeft, ClipRight int
	ClipTop, ClipBottom []int16

	Texture    *Texture
	SolidColor uint32
	Uniforms   *Uniforms
	Variant    DrawVariant
	Accel      Accel
}

// DrawScreenTriangle rasterizes one triangle, writing only the rows part
// owns. Invalid arguments draw nothing.
func DrawScreenTriangle(a *TriDrawArgs, part parallel.Partition) {
	if draw := resolveDrawer(a); draw != nil {
		draw(a, part)
	}
}

// drawFunc rasterizes a triangle with a drawer chosen by resolveDrawer.
type drawFunc func(a *TriDrawArgs, part parallel.Partition)

// resolveDrawer picks the pixel writer for the variant and target format.
// Everything that is constant for a draw call is bound here once.
func resolveDrawer(a *TriDrawArgs) drawFunc {
	fb, u := a.Target, a.Uniforms
	if fb == nil || u == nil {
		Logger().Debug("render: triangle without target or uniforms")
		return nil
	}
	aux := newAuxWriter(fb, u)
	alpha := uint32(0xff000000)
	if u.Flags&FlagLightTag != 0 {
		alpha = uint32(u.LightTag) << 24
	}

	switch a.Variant {
	case VariantDraw:
		tex := a.Texture
		if !validTexture(tex, fb.Format == FormatPaletted) {
			Logger().Debug("render: draw variant without a usable texture", "format", fb.Format)
			return nil
		}
		if fb.Format == FormatPaletted {
			w := palDraw{dest: fb.Indices, tex: tex.Indices, aux: aux}
			return func(a *TriDrawArgs, part parallel.Partition) { rasterize(a, part, w, true) }
		}
		w := trueDraw{dest: fb.Pixels, tex: tex.Pixels, light: min(u.Light, 256), alpha: alpha, aux: aux}
		return func(a *TriDrawArgs, part parallel.Partition) { rasterize(a, part, w, true) }

	case VariantFill:
		if fb.Format == FormatPaletted {
			w := palFill{dest: fb.Indices, color: uint8(a.SolidColor), aux: aux}
			return func(a *TriDrawArgs, part parallel.Partition) { rasterize(a, part, w, false) }
		}
		w := trueFill{dest: fb.Pixels, color: alpha | a.SolidColor&0xffffff, aux: aux}
		return func(a *TriDrawArgs, part parallel.Partition) { rasterize(a, part, w, false) }

	default:
		Logger().Debug("render: unknown draw variant", "variant", a.Variant)
		return nil
	}
}

func validTexture(t *Texture, paletted bool) bool {
	if t == nil || t.Width <= 0 || t.Height <= 0 || t.Paletted != paletted {
		return false
	}
	n := t.Width * t.Height
	if paletted {
		return len(t.Indices) >= n
	}
	return len(t.Pixels) >= n
}

// pixelWriter writes one row of a block. Bit i of mask selects pixel
// base+i.
type pixelWriter interface {
	writeRow(base int, mask uint8, row *blockRow)
}

// blockRow holds the per-pixel inputs of one block row.
type blockRow struct {
	texel wide.U32x8
	depth [blockSize]float32
}

func rasterize[W pixelWriter](a *TriDrawArgs, part parallel.Partition, w W, textured bool) {
	v1, v2, v3 := a.V1, a.V2, a.V3
	if v1 == nil || v2 == nil || v3 == nil {
		return
	}
	clipLeft, clipRight := a.ClipLeft, a.ClipRight
	clipTop, clipBottom := a.ClipTop, a.ClipBottom
	if clipLeft < 0 || clipRight < clipLeft || len(clipTop) <= clipRight || len(clipBottom) <= clipRight {
		return
	}

	// Zero area in floating point: no gradients, nothing to draw.
	area := (v2.X-v3.X)*(v1.Y-v3.Y) - (v1.X-v3.X)*(v2.Y-v3.Y)
	if area == 0 {
		return
	}

	// 28.4 fixed-point coordinates
	x1, y1 := fixed4(v1.X), fixed4(v1.Y)
	x2, y2 := fixed4(v2.X), fixed4(v2.Y)
	x3, y3 := fixed4(v3.X), fixed4(v3.Y)

	clipYMin, clipYMax := int(clipTop[clipLeft]), int(clipBottom[clipLeft])
	for i := clipLeft + 1; i <= clipRight; i++ {
		clipYMin = min(clipYMin, int(clipTop[i]))
		clipYMax = max(clipYMax, int(clipBottom[i]))
	}

	// Bounding rectangle; maxx and maxy are exclusive.
	minx := max((min(x1, x2, x3)+0xF)>>4, clipLeft)
	maxx := min((max(x1, x2, x3)+0xF)>>4, clipRight+1)
	miny := max((min(y1, y2, y3)+0xF)>>4, clipYMin)
	maxy := min((max(y1, y2, y3)+0xF)>>4, clipYMax)
	if minx >= maxx || miny >= maxy {
		return
	}

	// Start in the corner of a block
	minx &^= blockSize - 1
	miny &^= blockSize - 1

	e1 := newEdge(x1, y1, x2, y2)
	e2 := newEdge(x2, y2, x3, y3)
	e3 := newEdge(x3, y3, x1, y1)

	in := interpolator{textured: textured, accel: a.Accel}
	if u := a.Uniforms; u.Flags&(FlagDepthWrite|FlagDepthTest) != 0 {
		in.depth = true
	}
	interp := in.textured || in.depth
	if interp {
		in.setup(v1, v2, v3, minx, miny)
		if textured {
			in.setTexture(a.Texture)
		}
	}

	var row blockRow
	for y := miny; y < maxy; y += blockSize {
		for x := minx; x < maxx; x += blockSize {
			bx0, bx1 := x<<4, (x+blockSize-1)<<4
			by0, by1 := y<<4, (y+blockSize-1)<<4

			ma := e1.cornerMask(bx0, bx1, by0, by1)
			mb := e2.cornerMask(bx0, bx1, by0, by1)
			mc := e3.cornerMask(bx0, bx1, by0, by1)
			if ma == 0 || mb == 0 || mc == 0 {
				continue
			}

			clipCount := 0
			for ix := x; ix < x+blockSize; ix++ {
				if clipLeft > ix || clipRight < ix || int(clipTop[ix]) > y || int(clipBottom[ix]) <= y+blockSize-1 {
					clipCount++
				}
			}
			full := ma == 0xF && mb == 0xF && mc == 0xF && clipCount == 0

			var bv blockVaryings
			if interp {
				bv = in.block(x, y)
			}

			cy1, cy2, cy3 := e1.at(bx0, by0), e2.at(bx0, by0), e3.at(bx0, by0)
			for iy := range blockSize {
				py := y + iy
				cx1, cx2, cx3 := cy1, cy2, cy3
				cy1 += e1.dx << 4
				cy2 += e2.dx << 4
				cy3 += e3.dx << 4

				if part.Skips(py) {
					continue
				}

				mask := uint8(0xFF)
				if !full {
					mask = 0
					for i := range blockSize {
						ix := x + i
						visible := ix >= clipLeft && ix <= clipRight && int(clipTop[ix]) <= py && int(clipBottom[ix]) > py
						if cx1 > 0 && cx2 > 0 && cx3 > 0 && visible {
							mask |= 1 << i
						}
						cx1 -= e1.dy << 4
						cx2 -= e2.dy << 4
						cx3 -= e3.dy << 4
					}
					if mask == 0 {
						continue
					}
				}

				if interp {
					in.expandRow(&bv, iy, &row)
				}
				w.writeRow(a.Offset+py*a.Pitch+x, mask, &row)
			}
		}
	}
}

// fixed4 rounds a pixel coordinate to 28.4 fixed point.
func fixed4(v float32) int {
	return int(math32.Round(16 * v))
}

// edge is a half-edge function in 28.4 fixed point. A point is inside when
// at returns a positive value.
type edge struct {
	c, dx, dy int
}

func newEdge(xa, ya, xb, yb int) edge {
	e := edge{dx: xa - xb, dy: ya - yb}
	e.c = e.dy*xa - e.dx*ya
	// Top-left fill convention
	if e.dy < 0 || (e.dy == 0 && e.dx > 0) {
		e.c++
	}
	return e
}

func (e edge) at(x, y int) int {
	return e.c + e.dx*y - e.dy*x
}

// cornerMask evaluates the edge at the four block corners.
func (e edge) cornerMask(x0, x1, y0, y1 int) uint8 {
	var m uint8
	if e.at(x0, y0) > 0 {
		m |= 1
	}
	if e.at(x1, y0) > 0 {
		m |= 2
	}
	if e.at(x0, y1) > 0 {
		m |= 4
	}
	if e.at(x1, y1) > 0 {
		m |= 8
	}
	return m
}

func gradX(x0, y0, x1, y1, x2, y2, c0, c1, c2 float32) float32 {
	top := (c1-c2)*(y0-y2) - (c0-c2)*(y1-y2)
	bottom := (x1-x2)*(y0-y2) - (x0-x2)*(y1-y2)
	return top / bottom
}

func gradY(x0, y0, x1, y1, x2, y2, c0, c1, c2 float32) float32 {
	top := (c1-c2)*(x0-x2) - (c0-c2)*(x1-x2)
	bottom := -((x1-x2)*(y0-y2) - (x0-x2)*(y1-y2))
	return top / bottom
}

// interpolator holds the screen-space gradients of 1/w and varying/w.
type interpolator struct {
	textured bool
	depth    bool
	accel    Accel

	minx, miny     int
	startW         float32
	gradWX, gradWY float32
	start          [NumVaryings]float32
	gradX, gradY   [NumVaryings]float32

	texW, texH   uint32
	texW8, texH8 wide.U32x8
}

func (in *interpolator) setup(v1, v2, v3 *TriVertex, minx, miny int) {
	in.minx, in.miny = minx, miny
	fx, fy := float32(minx), float32(miny)

	in.gradWX = gradX(v1.X, v1.Y, v2.X, v2.Y, v3.X, v3.Y, v1.W, v2.W, v3.W)
	in.gradWY = gradY(v1.X, v1.Y, v2.X, v2.Y, v3.X, v3.Y, v1.W, v2.W, v3.W)
	in.startW = v1.W + in.gradWX*(fx-v1.X) + in.gradWY*(fy-v1.Y)

	for i := range NumVaryings {
		c1, c2, c3 := v1.Varying[i]*v1.W, v2.Varying[i]*v2.W, v3.Varying[i]*v3.W
		in.gradX[i] = gradX(v1.X, v1.Y, v2.X, v2.Y, v3.X, v3.Y, c1, c2, c3)
		in.gradY[i] = gradY(v1.X, v1.Y, v2.X, v2.Y, v3.X, v3.Y, c1, c2, c3)
		in.start[i] = c1 + in.gradX[i]*(fx-v1.X) + in.gradY[i]*(fy-v1.Y)
	}
}

func (in *interpolator) setTexture(t *Texture) {
	in.texW, in.texH = uint32(t.Width), uint32(t.Height)
	in.texW8, in.texH8 = wide.SplatU32(in.texW), wide.SplatU32(in.texH)
}

// blockVaryings are the perspective-correct varyings at the corners of a
// block. Inside the block they are interpolated affinely.
type blockVaryings struct {
	tl, tr [NumVaryings]float32
	bl, br [NumVaryings]float32 // per-row steps of the left and right edges
	w0     float32              // 1/w at the first pixel centre
}

func (in *interpolator) block(x, y int) blockVaryings {
	offx0 := float32(x-in.minx) + 0.5
	offy0 := float32(y-in.miny) + 0.5
	offx1 := offx0 + blockSize
	offy1 := offy0 + blockSize

	var b blockVaryings
	b.w0 = in.startW + offx0*in.gradWX + offy0*in.gradWY
	if !in.textured {
		return b
	}

	rcpWTL := 1 / (in.startW + offx0*in.gradWX + offy0*in.gradWY)
	rcpWTR := 1 / (in.startW + offx1*in.gradWX + offy0*in.gradWY)
	rcpWBL := 1 / (in.startW + offx0*in.gradWX + offy1*in.gradWY)
	rcpWBR := 1 / (in.startW + offx1*in.gradWX + offy1*in.gradWY)
	for i := range NumVaryings {
		b.tl[i] = (in.start[i] + offx0*in.gradX[i] + offy0*in.gradY[i]) * rcpWTL
		b.tr[i] = (in.start[i] + offx1*in.gradX[i] + offy0*in.gradY[i]) * rcpWTR
		b.bl[i] = ((in.start[i]+offx0*in.gradX[i]+offy1*in.gradY[i])*rcpWBL - b.tl[i]) * (1.0 / blockSize)
		b.br[i] = ((in.start[i]+offx1*in.gradX[i]+offy1*in.gradY[i])*rcpWBR - b.tr[i]) * (1.0 / blockSize)
	}
	return b
}

// rowFracs returns the 0.32 fixed-point start and step of varying n along
// block row iy. Both wrap modulo 1.
func (b *blockVaryings) rowFracs(n, iy int) (start, step uint32) {
	pos := b.tl[n] + b.bl[n]*float32(iy)
	st := (b.tr[n] + b.br[n]*float32(iy) - pos) * (1.0 / blockSize)
	return uint32(int64((pos - math32.Floor(pos)) * 4294967296.0)), uint32(int64(st * 4294967296.0))
}

func (in *interpolator) expandRow(b *blockVaryings, iy int, row *blockRow) {
	if in.textured {
		us, ustep := b.rowFracs(0, iy)
		vs, vstep := b.rowFracs(1, iy)
		if in.accel == AccelWide {
			u := wide.Ramp(us, ustep)
			v := wide.Ramp(vs, vstep)
			upos := u.Shr(16).Mul(in.texW8).Shr(16)
			vpos := v.Shr(16).Mul(in.texH8).Shr(16)
			row.texel = upos.Mul(in.texH8).Add(vpos)
		} else {
			for i := range blockSize {
				row.texel[i] = texelOffset(us, vs, in.texW, in.texH)
				us += ustep
				vs += vstep
			}
		}
	}
	if in.depth {
		w := b.w0 + float32(iy)*in.gradWY
		for i := range blockSize {
			row.depth[i] = w + float32(i)*in.gradWX
		}
	}
}

// auxWriter applies the stencil, depth and subsector operations.
type auxWriter struct {
	flags          Flags
	depth          []float32
	stencil        []uint8
	subsector      []uint32
	stencilTest    uint8
	stencilWrite   uint8
	subsectorDepth uint32
}

func newAuxWriter(fb *Framebuffer, u *Uniforms) auxWriter {
	return auxWriter{
		flags:          u.Flags & auxFlags,
		depth:          fb.Depth,
		stencil:        fb.Stencil,
		subsector:      fb.Subsector,
		stencilTest:    u.StencilTestValue,
		stencilWrite:   u.StencilWriteValue,
		subsectorDepth: u.SubsectorDepth,
	}
}

// pass reports whether pixel i survives the stencil and depth tests.
// Larger 1/w is nearer.
func (x *auxWriter) pass(i int, w float32) bool {
	if x.flags&FlagStencilTest != 0 && x.stencil[i] != x.stencilTest {
		return false
	}
	if x.flags&FlagDepthTest != 0 && w < x.depth[i] {
		return false
	}
	return true
}

func (x *auxWriter) write(i int, w float32) {
	if x.flags&FlagDepthWrite != 0 {
		x.depth[i] = w
	}
	if x.flags&FlagStencilWrite != 0 {
		x.stencil[i] = x.stencilWrite
	}
	if x.flags&FlagSubsectorWrite != 0 {
		x.subsector[i] = x.subsectorDepth
	}
}

type palDraw struct {
	dest []uint8
	tex  []uint8
	aux  auxWriter
}

func (d palDraw) writeRow(base int, mask uint8, row *blockRow) {
	for i := range blockSize {
		if mask&(1<<i) == 0 {
			continue
		}
		p := base + i
		if d.aux.flags != 0 && !d.aux.pass(p, row.depth[i]) {
			continue
		}
		d.dest[p] = d.tex[row.texel[i]]
		if d.aux.flags != 0 {
			d.aux.write(p, row.depth[i])
		}
	}
}

type palFill struct {
	dest  []uint8
	color uint8
	aux   auxWriter
}

func (d palFill) writeRow(base int, mask uint8, row *blockRow) {
	for i := range blockSize {
		if mask&(1<<i) == 0 {
			continue
		}
		p := base + i
		if d.aux.flags != 0 && !d.aux.pass(p, row.depth[i]) {
			continue
		}
		d.dest[p] = d.color
		if d.aux.flags != 0 {
			d.aux.write(p, row.depth[i])
		}
	}
}

type trueDraw struct {
	dest  []uint32
	tex   []uint32
	light uint32
	alpha uint32
	aux   auxWriter
}

func (d trueDraw) writeRow(base int, mask uint8, row *blockRow) {
	for i := range blockSize {
		if mask&(1<<i) == 0 {
			continue
		}
		fg := d.tex[row.texel[i]]
		if fg>>24 <= 127 {
			continue
		}
		p := base + i
		if d.aux.flags != 0 && !d.aux.pass(p, row.depth[i]) {
			continue
		}
		r := (fg >> 16 & 0xff) * d.light >> 8
		g := (fg >> 8 & 0xff) * d.light >> 8
		b := (fg & 0xff) * d.light >> 8
		d.dest[p] = d.alpha | r<<16 | g<<8 | b
		if d.aux.flags != 0 {
			d.aux.write(p, row.depth[i])
		}
	}
}

type trueFill struct {
	dest  []uint32
	color uint32
	aux   auxWriter
}

func (d trueFill) writeRow(base int, mask uint8, row *blockRow) {
	for i := range blockSize {
		if mask&(1<<i) == 0 {
			continue
		}
		p := base + i
		if d.aux.flags != 0 && !d.aux.pass(p, row.depth[i]) {
			continue
		}
		d.dest[p] = d.color
		if d.aux.flags != 0 {
			d.aux.write(p, row.depth[i])
		}
	}
}
