// Package wide provides fixed-width lane types for the accelerated drawer
// paths.
//
// The types are plain fixed-size arrays operated on by simple loops so the
// Go compiler can auto-vectorise them (SSE/AVX on amd64, NEON on arm64)
// without assembly or unsafe. Every operation has the same result as the
// equivalent scalar loop; the drawers rely on that to keep the scalar and
// wide paths pixel-identical.
//
// F32x8: 8 float32 lanes (perspective divide, viewport map, fog shading).
// U32x8: 8 uint32 lanes with wrapping arithmetic (texture coordinate
// accumulators, colour channel scaling).
package wide
