package jsteg

import (
	"encoding/binary"
	"fmt"
)

// frameComponent is one colour component of the frame being decoded
type frameComponent struct {
	ID        uint8
	QuantID   uint8
	DCTableID uint8
	ACTableID uint8
}

// frame accumulates the decoder state parsed out of the header segments
type frame struct {
	Width       int
	Height      int
	Components  []frameComponent
	QuantTables [4]*[64]uint16
	DCTables    [4]*HuffmanTable
	ACTables    [4]*HuffmanTable

	// ScanOrder indexes Components in the order the scan interleaves them
	ScanOrder []int
}

// JFIFMetadata carries the fields of an APP0 "JFIF\0" segment
type JFIFMetadata struct {
	VersionMajor uint8
	VersionMinor uint8
	Units        uint8
	XDensity     uint16
	YDensity     uint16
	ThumbWidth   uint8
	ThumbHeight  uint8
}

// parseSOF0 parses the baseline frame header payload
func (f *frame) parseSOF0(seg *Segment) error {
	data := seg.Data
	if len(data) < 6 {
		return NewCodecErrorAt(KindMalformedInput, seg.Offset, "SOF0 segment too short")
	}
	if precision := data[0]; precision != 8 {
		return NewCodecErrorAt(KindUnsupportedFeature, seg.Offset,
			fmt.Sprintf("%d bit sample precision not supported", precision))
	}
	f.Height = int(binary.BigEndian.Uint16(data[1:3]))
	f.Width = int(binary.BigEndian.Uint16(data[3:5]))
	if f.Width == 0 || f.Height == 0 {
		return NewCodecErrorAt(KindMalformedInput, seg.Offset, "image dimensions cannot be zero")
	}

	count := int(data[5])
	if count != 3 {
		return NewCodecErrorAt(KindUnsupportedFeature, seg.Offset,
			fmt.Sprintf("image has %d components, only 3 supported", count))
	}
	if len(data) < 6+3*count {
		return NewCodecErrorAt(KindMalformedInput, seg.Offset, "SOF0 segment too short for components")
	}

	f.Components = make([]frameComponent, count)
	for i := 0; i < count; i++ {
		pos := 6 + 3*i
		sampling := data[pos+1]
		if sampling != 0x11 {
			return NewCodecErrorAt(KindUnsupportedFeature, seg.Offset,
				fmt.Sprintf("sampling factors 0x%02x not supported, only 1x1", sampling))
		}
		quantID := data[pos+2]
		if quantID >= 4 {
			return NewCodecErrorAt(KindMalformedInput, seg.Offset, "quantization table id out of range")
		}
		f.Components[i] = frameComponent{ID: data[pos], QuantID: quantID}
	}
	return nil
}

// parseDQT parses one or more quantization tables from a DQT payload.
// Tables arrive in zig-zag order and are stored in natural order.
func (f *frame) parseDQT(seg *Segment) error {
	data := seg.Data
	pos := 0
	for pos < len(data) {
		precision := data[pos] >> 4
		tableID := data[pos] & 0x0F
		pos++
		if tableID >= 4 {
			return NewCodecErrorAt(KindMalformedInput, seg.Offset, "quantization table id out of range")
		}

		var table [64]uint16
		switch precision {
		case 0:
			if pos+64 > len(data) {
				return NewCodecErrorAt(KindMalformedInput, seg.Offset, "DQT segment too short")
			}
			for z := 0; z < 64; z++ {
				table[ZigzagToRaster[z]] = uint16(data[pos+z])
			}
			pos += 64
		case 1:
			if pos+128 > len(data) {
				return NewCodecErrorAt(KindMalformedInput, seg.Offset, "DQT segment too short")
			}
			for z := 0; z < 64; z++ {
				table[ZigzagToRaster[z]] = binary.BigEndian.Uint16(data[pos+2*z:])
			}
			pos += 128
		default:
			return NewCodecErrorAt(KindMalformedInput, seg.Offset, "invalid DQT precision")
		}

		for i := range table {
			if table[i] == 0 {
				return NewCodecErrorAt(KindMalformedInput, seg.Offset, "zero quantization table entry")
			}
		}
		f.QuantTables[tableID] = &table
	}
	return nil
}

// parseDHT parses one or more Huffman tables from a DHT payload
func (f *frame) parseDHT(seg *Segment) error {
	data := seg.Data
	pos := 0
	for pos < len(data) {
		class := data[pos] >> 4
		tableID := data[pos] & 0x0F
		pos++
		if class > 1 || tableID >= 4 {
			return NewCodecErrorAt(KindMalformedInput, seg.Offset, "invalid huffman table id")
		}
		if pos+16 > len(data) {
			return NewCodecErrorAt(KindMalformedInput, seg.Offset, "DHT segment too short")
		}

		var spec HuffmanSpec
		total := 0
		for i := 0; i < 16; i++ {
			spec.Counts[i] = data[pos+i]
			total += int(spec.Counts[i])
		}
		pos += 16
		if pos+total > len(data) {
			return NewCodecErrorAt(KindMalformedInput, seg.Offset, "DHT segment too short for symbols")
		}
		spec.Values = append([]uint8(nil), data[pos:pos+total]...)
		pos += total

		table, err := NewHuffmanTable(spec)
		if err != nil {
			return err
		}
		if class == 0 {
			f.DCTables[tableID] = table
		} else {
			f.ACTables[tableID] = table
		}
	}
	return nil
}

// parseSOS parses the scan header, resolving component ids and table
// selections against the frame header
func (f *frame) parseSOS(seg *Segment) error {
	data := seg.Data
	if len(data) < 1 {
		return NewCodecErrorAt(KindMalformedInput, seg.Offset, "SOS segment too short")
	}
	count := int(data[0])
	if count == 0 || count > len(f.Components) {
		return NewCodecErrorAt(KindMalformedInput, seg.Offset,
			fmt.Sprintf("scan declares %d components", count))
	}
	if len(data) < 1+2*count+3 {
		return NewCodecErrorAt(KindMalformedInput, seg.Offset, "SOS segment too short for components")
	}

	f.ScanOrder = make([]int, count)
	for i := 0; i < count; i++ {
		id := data[1+2*i]
		sel := data[2+2*i]
		idx := -1
		for j := range f.Components {
			if f.Components[j].ID == id {
				idx = j
				break
			}
		}
		if idx < 0 {
			return NewCodecErrorAt(KindMalformedInput, seg.Offset,
				fmt.Sprintf("scan references unknown component id %d", id))
		}
		f.Components[idx].DCTableID = sel >> 4
		f.Components[idx].ACTableID = sel & 0x0F
		f.ScanOrder[i] = idx
	}

	ss := data[1+2*count]
	se := data[2+2*count]
	if ss != 0 || se != 63 {
		return NewCodecErrorAt(KindUnsupportedFeature, seg.Offset,
			"partial spectral selection not supported in baseline")
	}
	return nil
}

// parseJFIF extracts APP0 JFIF fields, returning nil for non-JFIF APP0s
func parseJFIF(seg *Segment) *JFIFMetadata {
	data := seg.Data
	if len(data) < 14 || string(data[:5]) != "JFIF\x00" {
		return nil
	}
	return &JFIFMetadata{
		VersionMajor: data[5],
		VersionMinor: data[6],
		Units:        data[7],
		XDensity:     binary.BigEndian.Uint16(data[8:10]),
		YDensity:     binary.BigEndian.Uint16(data[10:12]),
		ThumbWidth:   data[12],
		ThumbHeight:  data[13],
	}
}
