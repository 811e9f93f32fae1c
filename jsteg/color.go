package jsteg

import "math"

// BT.601 coefficients as used by JFIF

// RGBToYCbCr converts one RGB triple to YCbCr, rounded and clamped to [0,255]
func RGBToYCbCr(r, g, b uint8) (uint8, uint8, uint8) {
	rf, gf, bf := float64(r), float64(g), float64(b)
	y := 0.299*rf + 0.587*gf + 0.114*bf
	cb := -0.168736*rf - 0.331264*gf + 0.5*bf + 128
	cr := 0.5*rf - 0.418688*gf - 0.081312*bf + 128
	return clampByte(y), clampByte(cb), clampByte(cr)
}

// YCbCrToRGB converts one YCbCr triple to RGB, rounded and clamped to [0,255]
func YCbCrToRGB(y, cb, cr uint8) (uint8, uint8, uint8) {
	yf := float64(y)
	cbf := float64(cb) - 128
	crf := float64(cr) - 128
	r := yf + 1.402*crf
	g := yf - 0.344136*cbf - 0.714136*crf
	b := yf + 1.772*cbf
	return clampByte(r), clampByte(g), clampByte(b)
}

func clampByte(v float64) uint8 {
	n := math.Round(v)
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return uint8(n)
}
