package render

import (
	"github.com/taigrr/softpoly/internal/parallel"
	"github.com/taigrr/softpoly/internal/wide"
)

const fracUnit = 1 << 16

// DeferredLight shades a true-colour framebuffer from the light tags left in
// the alpha bytes by draws with FlagLightTag. Even tags are sector light
// levels attenuated by distance; odd tags are fixed light. Afterwards every
// processed pixel is opaque.
//
// globVis is the distance falloff per unit of 1/w, in the 0..32 light-level
// units of the tags divided by 32: a pixel loses globVis*invz of its light,
// at most 24/32. An engine-style global visibility value is passed as
// vis/32.
//
// Only whole 8x8 blocks are processed; partial blocks at the right and
// bottom edges are left untouched. Rows are split the way draws split them,
// row y belonging to worker y mod N.
func DeferredLight(fb *Framebuffer, globVis float32, accel Accel, part parallel.Partition) {
	if fb.Format != FormatTrueColor {
		return
	}
	rowWidth := fb.Width / blockSize * blockSize
	rows := fb.Height / blockSize * blockSize

	for y := part.FirstOwned(0); y < rows; y += part.Step() {
		i := y * fb.Pitch
		line := fb.Pixels[i : i+rowWidth]
		zline := fb.Depth[i : i+rowWidth]
		if accel == AccelWide {
			lightRowWide(line, zline, globVis)
		} else {
			lightRowScalar(line, zline, globVis)
		}
	}
}

// sectorLight converts an even light tag and 1/w to a 0..256 light scale.
func sectorLight(tag uint32, invz, globVis float32) uint32 {
	shade := 2 - (float32(tag)+12)*(1.0/128)
	vis := min(24.0/32, globVis*invz)
	v := min(max(shade-vis, 0), 31.0/32)
	return (fracUnit - uint32(v*fracUnit)) >> 8
}

func lightRowScalar(line []uint32, zline []float32, globVis float32) {
	for i, fg := range line {
		light := fg >> 24
		if light&1 == 0 {
			light = sectorLight(light, zline[i], globVis)
		} else {
			light += light >> 7
		}
		r := ((fg>>16&0xff)*light + 127) >> 8
		g := ((fg>>8&0xff)*light + 127) >> 8
		b := ((fg&0xff)*light + 127) >> 8
		line[i] = 0xff000000 | r<<16 | g<<8 | b
	}
}

func lightRowWide(line []uint32, zline []float32, globVis float32) {
	vis := wide.SplatF32(globVis)
	maxVis := wide.SplatF32(24.0 / 32)
	two := wide.SplatF32(2)
	twelve := wide.SplatF32(12)
	inv128 := wide.SplatF32(1.0 / 128)
	frac := wide.SplatF32(fracUnit)
	fracU := wide.SplatU32(fracUnit)
	one := wide.SplatU32(1)
	bytes := wide.SplatU32(0xff)
	round := wide.SplatU32(127)
	opaque := wide.SplatU32(0xff000000)

	for x := 0; x+8 <= len(line); x += 8 {
		fg := wide.U32x8(line[x : x+8])
		invz := wide.F32x8(zline[x : x+8])

		tag := fg.Shr(24)
		shade := two.Sub(tag.ToF32().Add(twelve).Mul(inv128))
		v := shade.Sub(maxVis.Min(vis.Mul(invz))).Clamp(0, 31.0/32)
		sector := fracU.Sub(v.Mul(frac).TruncU32()).Shr(8)
		fixed := tag.Add(tag.Shr(7))
		light := wide.Select(tag.And(one), fixed, sector)

		r := fg.Shr(16).And(bytes).Mul(light).Add(round).Shr(8)
		g := fg.Shr(8).And(bytes).Mul(light).Add(round).Shr(8)
		b := fg.And(bytes).Mul(light).Add(round).Shr(8)
		out := opaque.Or(r.Shl(16)).Or(g.Shl(8)).Or(b)
		copy(line[x:x+8], out[:])
	}
}
