package jsteg

import (
	"encoding/binary"
	"fmt"
)

// SegmentKind is the marker class of a parsed segment
type SegmentKind int

const (
	// SegmentStandalone is a bare marker with no payload (SOI, EOI, RSTn, TEM)
	SegmentStandalone SegmentKind = iota
	// SegmentVariable is a marker followed by a 16-bit length and payload
	SegmentVariable
	// SegmentScan is SOS: a variable-length header followed by entropy-coded
	// scan data running to the next non-restart marker
	SegmentScan
)

// Segment is one parsed marker segment. Data is the raw payload (without the
// length field); Scan carries the entropy-coded bytes following an SOS header,
// verbatim, stuffing and restart markers included.
type Segment struct {
	Marker byte
	Kind   SegmentKind
	Offset int64
	Data   []byte
	Scan   []byte
}

// Name returns a short marker mnemonic for diagnostics
func (s *Segment) Name() string {
	switch {
	case s.Marker == MarkerSOI:
		return "SOI"
	case s.Marker == MarkerEOI:
		return "EOI"
	case s.Marker == MarkerSOS:
		return "SOS"
	case s.Marker == MarkerDQT:
		return "DQT"
	case s.Marker == MarkerDHT:
		return "DHT"
	case s.Marker == MarkerDRI:
		return "DRI"
	case s.Marker == MarkerCOM:
		return "COM"
	case s.Marker == MarkerSOF0:
		return "SOF0"
	case s.Marker == 0xCC:
		return "DAC"
	case s.Marker >= MarkerSOF1 && s.Marker <= 0xCF && s.Marker != MarkerDHT:
		return fmt.Sprintf("SOF%d", s.Marker-MarkerSOF0)
	case s.Marker >= MarkerRST0 && s.Marker <= MarkerRST7:
		return fmt.Sprintf("RST%d", s.Marker-MarkerRST0)
	case s.Marker >= MarkerAPP0 && s.Marker <= 0xEF:
		return fmt.Sprintf("APP%d", s.Marker-MarkerAPP0)
	default:
		return fmt.Sprintf("0x%02X", s.Marker)
	}
}

func isStandalone(marker byte) bool {
	if marker == MarkerSOI || marker == MarkerEOI || marker == MarkerTEM {
		return true
	}
	return marker >= MarkerRST0 && marker <= MarkerRST7
}

// ParseSegments scans a JPEG byte stream from offset 0 into marker segments.
// It surfaces raw payloads keyed by marker and never interprets them. After
// an SOS header the scanner switches to scan-data mode: 0xFF 0x00 stuffing
// and RST0-RST7 are treated as scan content, and any other 0xFF sequence ends
// the scan data and resumes marker parsing there. Parsing stops at EOI.
func ParseSegments(data []byte) ([]Segment, error) {
	var segments []Segment
	pos := int64(0)
	n := int64(len(data))

	for pos < n {
		if data[pos] != 0xFF {
			return nil, NewCodecErrorAt(KindMalformedInput, pos,
				fmt.Sprintf("expected marker, found 0x%02x", data[pos]))
		}
		start := pos
		// 0xFF bytes before a marker code are fill bytes
		for pos < n && data[pos] == 0xFF {
			pos++
		}
		if pos >= n {
			return nil, NewCodecErrorAt(KindMalformedInput, start, "truncated marker")
		}
		marker := data[pos]
		if marker == 0x00 {
			return nil, NewCodecErrorAt(KindMalformedInput, start,
				"stuffed byte outside scan data")
		}
		pos++

		if isStandalone(marker) {
			segments = append(segments, Segment{Marker: marker, Kind: SegmentStandalone, Offset: start})
			if marker == MarkerEOI {
				return segments, nil
			}
			continue
		}

		if pos+2 > n {
			return nil, NewCodecErrorAt(KindMalformedInput, start, "truncated segment length")
		}
		length := int64(binary.BigEndian.Uint16(data[pos : pos+2]))
		if length < 2 {
			return nil, NewCodecErrorAt(KindMalformedInput, pos,
				fmt.Sprintf("segment length %d too short", length))
		}
		if pos+length > n {
			return nil, NewCodecErrorAt(KindMalformedInput, pos,
				fmt.Sprintf("segment length %d exceeds remaining input", length))
		}
		payload := data[pos+2 : pos+length]
		pos += length

		if marker != MarkerSOS {
			segments = append(segments, Segment{Marker: marker, Kind: SegmentVariable, Offset: start, Data: payload})
			continue
		}

		// Scan-data mode: accumulate until a marker that is neither stuffing
		// nor a restart
		scanStart := pos
		for pos < n {
			if data[pos] != 0xFF {
				pos++
				continue
			}
			if pos+1 >= n {
				pos = n
				break
			}
			next := data[pos+1]
			if next == 0x00 || (next >= MarkerRST0 && next <= MarkerRST7) {
				pos += 2
				continue
			}
			break
		}
		segments = append(segments, Segment{
			Marker: marker,
			Kind:   SegmentScan,
			Offset: start,
			Data:   payload,
			Scan:   data[scanStart:pos],
		})
	}

	return segments, nil
}
