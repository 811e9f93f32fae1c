package jsteg

import (
	"bytes"
	"encoding/binary"
)

// MarkerWriter assembles a JPEG byte stream segment by segment
type MarkerWriter struct {
	buf bytes.Buffer
}

// NewMarkerWriter creates an empty MarkerWriter
func NewMarkerWriter() *MarkerWriter {
	return &MarkerWriter{}
}

// WriteMarker emits a standalone marker (SOI, EOI, RSTn)
func (w *MarkerWriter) WriteMarker(marker byte) {
	w.buf.WriteByte(0xFF)
	w.buf.WriteByte(marker)
}

// WriteSegment emits a variable-length marker segment. The 16-bit length
// covers the payload plus the length field itself.
func (w *MarkerWriter) WriteSegment(marker byte, payload []byte) {
	w.WriteMarker(marker)
	var length [2]byte
	binary.BigEndian.PutUint16(length[:], uint16(len(payload)+2))
	w.buf.Write(length[:])
	w.buf.Write(payload)
}

// WriteBytes appends raw bytes (entropy-coded scan data)
func (w *MarkerWriter) WriteBytes(data []byte) {
	w.buf.Write(data)
}

// Bytes returns the assembled stream
func (w *MarkerWriter) Bytes() []byte {
	return w.buf.Bytes()
}

// WriteAPP0JFIF emits the 16-byte JFIF v1.01 APP0 segment: no density units,
// 1x1 aspect, no thumbnail
func (w *MarkerWriter) WriteAPP0JFIF() {
	payload := []byte{
		'J', 'F', 'I', 'F', 0x00,
		0x01, 0x01, // version 1.01
		0x00,       // units: aspect ratio only
		0x00, 0x01, // X density
		0x00, 0x01, // Y density
		0x00, 0x00, // no thumbnail
	}
	w.WriteSegment(MarkerAPP0, payload)
}

// WriteDQT emits one 8-bit-precision quantization table. The table is stored
// in natural order and written in zig-zag order, as DQT requires.
func (w *MarkerWriter) WriteDQT(tableID uint8, table *[64]uint16) {
	payload := make([]byte, 1+64)
	payload[0] = tableID // precision 0 (8-bit) in the high nibble
	for i := 0; i < 64; i++ {
		payload[1+RasterToZigzag[i]] = byte(table[i])
	}
	w.WriteSegment(MarkerDQT, payload)
}

// WriteSOF0 emits the baseline frame header: 8-bit precision, three YCbCr
// components at 1x1 sampling, luma on quantization table 0 and chroma on 1
func (w *MarkerWriter) WriteSOF0(width, height int) {
	payload := make([]byte, 6+3*3)
	payload[0] = 8
	binary.BigEndian.PutUint16(payload[1:3], uint16(height))
	binary.BigEndian.PutUint16(payload[3:5], uint16(width))
	payload[5] = 3

	// component id, sampling factors (1x1), quantization table id
	payload[6], payload[7], payload[8] = 1, 0x11, 0    // Y
	payload[9], payload[10], payload[11] = 2, 0x11, 1  // Cb
	payload[12], payload[13], payload[14] = 3, 0x11, 1 // Cr

	w.WriteSegment(MarkerSOF0, payload)
}

// WriteDHT emits one Huffman table definition. class is 0 for DC, 1 for AC.
func (w *MarkerWriter) WriteDHT(class, tableID uint8, spec HuffmanSpec) {
	payload := make([]byte, 0, 1+16+len(spec.Values))
	payload = append(payload, class<<4|tableID)
	payload = append(payload, spec.Counts[:]...)
	payload = append(payload, spec.Values...)
	w.WriteSegment(MarkerDHT, payload)
}

// WriteSOS emits the scan header for the three-component interleaved scan,
// every component on DC table 0 and AC table 0, full spectral range
func (w *MarkerWriter) WriteSOS() {
	payload := []byte{
		3,       // components in scan
		1, 0x00, // Y:  DC table 0, AC table 0
		2, 0x00, // Cb
		3, 0x00, // Cr
		0, 63, 0, // spectral start, spectral end, successive approximation
	}
	w.WriteSegment(MarkerSOS, payload)
}
