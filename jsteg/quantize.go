package jsteg

import "math"

// Quantize divides each frequency coefficient by its table entry, rounding to
// the nearest integer with ties away from zero
func Quantize(block *[64]float64, table *[64]uint16) [64]int32 {
	var out [64]int32
	for i := 0; i < 64; i++ {
		out[i] = int32(math.Round(block[i] / float64(table[i])))
	}
	return out
}

// Dequantize multiplies each quantized coefficient by its table entry
func Dequantize(coefs *[64]int32, table *[64]uint16) [64]float64 {
	var out [64]float64
	for i := 0; i < 64; i++ {
		out[i] = float64(coefs[i]) * float64(table[i])
	}
	return out
}

// ZigzagBlock reorders a natural-order coefficient block into zig-zag order
func ZigzagBlock(coefs *[64]int32) [64]int32 {
	var out [64]int32
	for i := 0; i < 64; i++ {
		out[RasterToZigzag[i]] = coefs[i]
	}
	return out
}

// UnzigzagBlock reorders a zig-zag-order coefficient block into natural order
func UnzigzagBlock(coefs *[64]int32) [64]int32 {
	var out [64]int32
	for i := 0; i < 64; i++ {
		out[ZigzagToRaster[i]] = coefs[i]
	}
	return out
}
