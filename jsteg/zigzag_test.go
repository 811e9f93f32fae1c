package jsteg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZigzagTablesAreInverse(t *testing.T) {
	var seenRaster, seenZigzag [64]bool
	for i := 0; i < 64; i++ {
		seenRaster[ZigzagToRaster[i]] = true
		seenZigzag[RasterToZigzag[i]] = true
		assert.Equal(t, uint8(i), RasterToZigzag[ZigzagToRaster[i]], "position %d", i)
		assert.Equal(t, uint8(i), ZigzagToRaster[RasterToZigzag[i]], "index %d", i)
	}
	for i := 0; i < 64; i++ {
		require.True(t, seenRaster[i], "raster index %d never produced", i)
		require.True(t, seenZigzag[i], "zigzag position %d never produced", i)
	}
}

func TestZigzagDiagonalWalk(t *testing.T) {
	// The diagonal scan starts along the top-left corner
	assert.Equal(t, []uint8{0, 1, 8, 16, 9, 2, 3, 10, 17, 24}, ZigzagToRaster[:10])
	// And ends at the bottom-right corner
	assert.Equal(t, uint8(63), ZigzagToRaster[63])
}

func TestZigzagBlockRoundTrip(t *testing.T) {
	var coefs [64]int32
	for i := range coefs {
		coefs[i] = int32(i * 3)
	}
	zz := ZigzagBlock(&coefs)
	back := UnzigzagBlock(&zz)
	assert.Equal(t, coefs, back)

	// Low frequencies lead the scan
	assert.Equal(t, coefs[0], zz[0])
	assert.Equal(t, coefs[1], zz[1])
	assert.Equal(t, coefs[8], zz[2])
}
