package jsteg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func standardSpecs() map[string]HuffmanSpec {
	return map[string]HuffmanSpec{
		"dc-luminance":   StandardDCLuminance,
		"ac-luminance":   StandardACLuminance,
		"dc-chrominance": StandardDCChrominance,
		"ac-chrominance": StandardACChrominance,
	}
}

func TestHuffmanStandardTablesArePrefixFree(t *testing.T) {
	for name, spec := range standardSpecs() {
		t.Run(name, func(t *testing.T) {
			table, err := NewHuffmanTable(spec)
			require.NoError(t, err)

			type entry struct {
				code   uint16
				length uint8
			}
			var entries []entry
			for _, sym := range spec.Values {
				code, length := table.Code(sym)
				require.NotZero(t, length, "symbol 0x%02x has no code", sym)
				require.LessOrEqual(t, length, uint8(16))
				entries = append(entries, entry{code, length})
			}

			for i, a := range entries {
				for j, b := range entries {
					if i == j {
						continue
					}
					if a.length <= b.length && b.code>>(b.length-a.length) == a.code {
						t.Fatalf("code %0*b is a prefix of %0*b",
							int(a.length), a.code, int(b.length), b.code)
					}
				}
			}
		})
	}
}

func TestHuffmanCanonicalAssignment(t *testing.T) {
	table, err := NewHuffmanTable(StandardDCLuminance)
	require.NoError(t, err)

	// DC luminance: one 2-bit code, then five 3-bit codes
	code, length := table.Code(0)
	assert.Equal(t, uint16(0b00), code)
	assert.Equal(t, uint8(2), length)

	code, length = table.Code(1)
	assert.Equal(t, uint16(0b010), code)
	assert.Equal(t, uint8(3), length)

	code, length = table.Code(5)
	assert.Equal(t, uint16(0b110), code)
	assert.Equal(t, uint8(3), length)

	code, length = table.Code(6)
	assert.Equal(t, uint16(0b1110), code)
	assert.Equal(t, uint8(4), length)
}

func TestHuffmanEncodeDecodeAllSymbols(t *testing.T) {
	for name, spec := range standardSpecs() {
		t.Run(name, func(t *testing.T) {
			table, err := NewHuffmanTable(spec)
			require.NoError(t, err)

			w := NewBitWriter(1024)
			for _, sym := range spec.Values {
				require.NoError(t, table.WriteSymbol(w, sym))
			}
			r := NewBitReader(w.Flush())
			for _, sym := range spec.Values {
				got, err := table.DecodeSymbol(r)
				require.NoError(t, err)
				assert.Equal(t, sym, got)
			}
		})
	}
}

func TestHuffmanInvalidCode(t *testing.T) {
	table, err := NewHuffmanTable(StandardDCLuminance)
	require.NoError(t, err)

	// All-ones is not a DC luminance code; the stuffed 0xFF bytes feed the
	// reader sixteen 1-bits
	r := NewBitReader([]byte{0xFF, 0x00, 0xFF, 0x00})
	_, err = table.DecodeSymbol(r)
	require.Error(t, err)
	ce, ok := IsCodecError(err)
	require.True(t, ok)
	assert.Equal(t, KindMalformedInput, ce.Kind)
}

func TestHuffmanRejectsBadSpecs(t *testing.T) {
	t.Run("count-value-mismatch", func(t *testing.T) {
		spec := HuffmanSpec{Values: []uint8{1, 2}}
		spec.Counts[0] = 1
		_, err := NewHuffmanTable(spec)
		require.Error(t, err)
	})

	t.Run("code-overflow", func(t *testing.T) {
		// Three codes of length one cannot exist
		spec := HuffmanSpec{Values: []uint8{1, 2, 3}}
		spec.Counts[0] = 3
		_, err := NewHuffmanTable(spec)
		require.Error(t, err)
	})
}
