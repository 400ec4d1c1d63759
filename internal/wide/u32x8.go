package wide

// U32x8 represents 8 uint32 lanes. Arithmetic wraps modulo 2^32.
type U32x8 [8]uint32

// SplatU32 creates U32x8 with all lanes set to n.
func SplatU32(n uint32) U32x8 {
	var result U32x8
	for i := range result {
		result[i] = n
	}
	return result
}

// Ramp returns start + i*step for lane i, with wrapping arithmetic.
// It equals accumulating step eight times from start.
func Ramp(start, step uint32) U32x8 {
	var result U32x8
	for i := range result {
		result[i] = start + uint32(i)*step
	}
	return result
}

// Add performs lane-wise wrapping addition.
func (v U32x8) Add(other U32x8) U32x8 {
	var result U32x8
	for i := range v {
		result[i] = v[i] + other[i]
	}
	return result
}

// Sub performs lane-wise wrapping subtraction.
func (v U32x8) Sub(other U32x8) U32x8 {
	var result U32x8
	for i := range v {
		result[i] = v[i] - other[i]
	}
	return result
}

// Mul performs lane-wise wrapping multiplication.
func (v U32x8) Mul(other U32x8) U32x8 {
	var result U32x8
	for i := range v {
		result[i] = v[i] * other[i]
	}
	return result
}

// And performs lane-wise bitwise AND.
func (v U32x8) And(other U32x8) U32x8 {
	var result U32x8
	for i := range v {
		result[i] = v[i] & other[i]
	}
	return result
}

// Shr shifts every lane right by n bits.
func (v U32x8) Shr(n uint) U32x8 {
	var result U32x8
	for i := range v {
		result[i] = v[i] >> n
	}
	return result
}

// Shl shifts every lane left by n bits.
func (v U32x8) Shl(n uint) U32x8 {
	var result U32x8
	for i := range v {
		result[i] = v[i] << n
	}
	return result
}

// Or performs lane-wise bitwise OR.
func (v U32x8) Or(other U32x8) U32x8 {
	var result U32x8
	for i := range v {
		result[i] = v[i] | other[i]
	}
	return result
}

// ToF32 converts every lane to float32.
func (v U32x8) ToF32() F32x8 {
	var result F32x8
	for i := range v {
		result[i] = float32(v[i])
	}
	return result
}

// Select returns a[i] where mask[i] is non-zero and b[i] elsewhere.
func Select(mask, a, b U32x8) U32x8 {
	var result U32x8
	for i := range mask {
		if mask[i] != 0 {
			result[i] = a[i]
		} else {
			result[i] = b[i]
		}
	}
	return result
}
