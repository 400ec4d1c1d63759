package wide

// F32x8 represents 8 float32 lanes.
type F32x8 [8]float32

// SplatF32 creates F32x8 with all lanes set to n.
func SplatF32(n float32) F32x8 {
	var result F32x8
	for i := range result {
		result[i] = n
	}
	return result
}

// LoadF32 copies up to 8 values from src; missing lanes are set to fill.
func LoadF32(src []float32, fill float32) F32x8 {
	result := SplatF32(fill)
	copy(result[:], src)
	return result
}

// Add performs lane-wise addition.
func (v F32x8) Add(other F32x8) F32x8 {
	var result F32x8
	for i := range v {
		result[i] = v[i] + other[i]
	}
	return result
}

// Sub performs lane-wise subtraction.
func (v F32x8) Sub(other F32x8) F32x8 {
	var result F32x8
	for i := range v {
		result[i] = v[i] - other[i]
	}
	return result
}

// Mul performs lane-wise multiplication.
func (v F32x8) Mul(other F32x8) F32x8 {
	var result F32x8
	for i := range v {
		result[i] = v[i] * other[i]
	}
	return result
}

// Rcp returns 1/v per lane. Zero lanes yield +Inf per IEEE 754.
func (v F32x8) Rcp() F32x8 {
	var result F32x8
	for i := range v {
		result[i] = 1 / v[i]
	}
	return result
}

// Min returns the lane-wise minimum.
func (v F32x8) Min(other F32x8) F32x8 {
	var result F32x8
	for i := range v {
		result[i] = min(v[i], other[i])
	}
	return result
}

// Max returns the lane-wise maximum.
func (v F32x8) Max(other F32x8) F32x8 {
	var result F32x8
	for i := range v {
		result[i] = max(v[i], other[i])
	}
	return result
}

// Clamp clamps every lane into [lo, hi].
func (v F32x8) Clamp(lo, hi float32) F32x8 {
	var result F32x8
	for i := range v {
		result[i] = min(max(v[i], lo), hi)
	}
	return result
}

// TruncU32 converts lanes to uint32, truncating toward zero.
// Lanes must be in [0, 2^32).
func (v F32x8) TruncU32() U32x8 {
	var result U32x8
	for i := range v {
		result[i] = uint32(v[i])
	}
	return result
}
