package jsteg

// HuffmanSpec is the wire-format definition of a Huffman table: the number of
// codes of each bit length 1..16, and the symbols assigned to those codes in
// canonical order
type HuffmanSpec struct {
	Counts [16]uint8
	Values []uint8
}

// HuffmanTable holds canonical codes derived from a HuffmanSpec, for both
// encoding (symbol -> code, length) and decoding (16-bit prefix lookup)
type HuffmanTable struct {
	spec    HuffmanSpec
	codes   [256]uint16
	lengths [256]uint8

	// lut is the 65,536-entry decode table, (length << 8) | symbol per entry,
	// 0 meaning no valid code. Built lazily on first decode.
	lut []uint16
}

// NewHuffmanTable derives the canonical code assignment from a spec.
// Starting from code 0 at length 1, each symbol of a given length takes the
// next code value; moving to the next length doubles the running code, which
// is what makes the result a prefix set.
func NewHuffmanTable(spec HuffmanSpec) (*HuffmanTable, error) {
	total := 0
	for _, c := range spec.Counts {
		total += int(c)
	}
	if total != len(spec.Values) {
		return nil, codecErrorf(KindMalformedInput,
			"huffman table declares %d codes but carries %d symbols", total, len(spec.Values))
	}
	if total > 256 {
		return nil, codecErrorf(KindMalformedInput,
			"huffman table with %d symbols exceeds 256", total)
	}

	t := &HuffmanTable{spec: spec}
	code := uint32(0)
	symbolIdx := 0
	for bits := 1; bits <= 16; bits++ {
		n := int(spec.Counts[bits-1])
		if code+uint32(n) > 1<<bits {
			return nil, codecErrorf(KindMalformedInput,
				"huffman code overflow at bit length %d", bits)
		}
		for i := 0; i < n; i++ {
			sym := spec.Values[symbolIdx]
			if t.lengths[sym] != 0 {
				return nil, codecErrorf(KindMalformedInput,
					"huffman symbol 0x%02x assigned twice", sym)
			}
			t.codes[sym] = uint16(code)
			t.lengths[sym] = uint8(bits)
			code++
			symbolIdx++
		}
		code <<= 1
	}

	return t, nil
}

// Spec returns the (counts, values) definition this table was built from
func (t *HuffmanTable) Spec() HuffmanSpec {
	return t.spec
}

// Code returns the canonical code and bit length for a symbol.
// A zero length means the symbol has no code in this table.
func (t *HuffmanTable) Code(symbol uint8) (uint16, uint8) {
	return t.codes[symbol], t.lengths[symbol]
}

// WriteSymbol emits the code for a symbol into the bit stream
func (t *HuffmanTable) WriteSymbol(w *BitWriter, symbol uint8) error {
	length := t.lengths[symbol]
	if length == 0 {
		return codecErrorf(KindMalformedInput,
			"symbol 0x%02x has no code in huffman table", symbol)
	}
	w.Write(uint32(t.codes[symbol]), uint32(length))
	return nil
}

// buildLookup fills the 65,536-entry decode table: a code of length L with
// value c owns every entry whose top L bits equal c
func (t *HuffmanTable) buildLookup() {
	lut := make([]uint16, 1<<16)
	for s := 0; s < 256; s++ {
		length := t.lengths[s]
		if length == 0 {
			continue
		}
		base := uint32(t.codes[s]) << (16 - length)
		span := uint32(1) << (16 - length)
		entry := uint16(length)<<8 | uint16(s)
		for i := uint32(0); i < span; i++ {
			lut[base+i] = entry
		}
	}
	t.lut = lut
}

// DecodeSymbol reads one Huffman code from the reader in O(1) via the
// 16-bit prefix lookup
func (t *HuffmanTable) DecodeSymbol(r *BitReader) (uint8, error) {
	if t.lut == nil {
		t.buildLookup()
	}
	entry := t.lut[r.Peek16Bits()]
	if entry == 0 {
		return 0, NewCodecErrorAt(KindMalformedInput, r.Offset(), "invalid huffman code")
	}
	r.SkipBits(uint32(entry >> 8))
	return uint8(entry & 0xFF), nil
}
