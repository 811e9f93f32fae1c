package jsteg

import (
	"encoding/binary"
	"fmt"
)

// DecodeResult is the output of Decode: the reconstructed RGBA pixels and any
// JFIF metadata found in the header
type DecodeResult struct {
	Width  int
	Height int
	Pixels []byte
	JFIF   *JFIFMetadata
}

// Decode reconstructs an RGBA image from a baseline sequential JPEG byte
// stream. It accepts exactly the SOF0 / 3-component / 1x1 / 8-bit subset;
// unknown APP and COM segments are skipped.
func Decode(data []byte) (*DecodeResult, error) {
	segments, err := ParseSegments(data)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 || segments[0].Marker != MarkerSOI {
		return nil, NewCodecErrorAt(KindMalformedInput, 0, "missing SOI marker")
	}

	f := &frame{}
	var jfif *JFIFMetadata
	var scan []byte
	restartInterval := 0
	sofSeen := false

	for i := range segments {
		seg := &segments[i]
		switch seg.Marker {
		case MarkerSOF0:
			if sofSeen {
				return nil, NewCodecErrorAt(KindMalformedInput, seg.Offset, "multiple frame headers")
			}
			if err := f.parseSOF0(seg); err != nil {
				return nil, err
			}
			sofSeen = true
		case MarkerSOF1, MarkerSOF2, MarkerSOF3, 0xC5, 0xC6, 0xC7, 0xC8,
			0xC9, 0xCA, 0xCB, 0xCD, 0xCE, 0xCF:
			return nil, NewCodecErrorAt(KindUnsupportedFeature, seg.Offset,
				fmt.Sprintf("%s frames not supported, only baseline SOF0", seg.Name()))
		case 0xCC: // DAC
			return nil, NewCodecErrorAt(KindUnsupportedFeature, seg.Offset,
				"arithmetic coding not supported")
		case MarkerDQT:
			if err := f.parseDQT(seg); err != nil {
				return nil, err
			}
		case MarkerDHT:
			if err := f.parseDHT(seg); err != nil {
				return nil, err
			}
		case MarkerDRI:
			if len(seg.Data) >= 2 {
				restartInterval = int(binary.BigEndian.Uint16(seg.Data))
			}
		case MarkerAPP0:
			if m := parseJFIF(seg); m != nil {
				jfif = m
			}
		case MarkerSOS:
			if !sofSeen {
				return nil, NewCodecErrorAt(KindMalformedInput, seg.Offset, "scan before frame header")
			}
			if err := f.parseSOS(seg); err != nil {
				return nil, err
			}
			scan = seg.Scan
		default:
			// Unknown APP and COM segments are skipped
		}
	}

	if !sofSeen {
		return nil, NewCodecError(KindMalformedInput, "no frame header in stream")
	}
	if scan == nil {
		return nil, NewCodecError(KindMalformedInput, "no scan in stream")
	}
	for i := range f.Components {
		if f.QuantTables[f.Components[i].QuantID] == nil {
			return nil, codecErrorf(KindMalformedInput,
				"component %d references undefined quantization table %d", i, f.Components[i].QuantID)
		}
		if f.DCTables[f.Components[i].DCTableID] == nil || f.ACTables[f.Components[i].ACTableID] == nil {
			return nil, codecErrorf(KindMalformedInput,
				"component %d references undefined huffman table", i)
		}
	}

	planes, err := decodeScan(f, scan, restartInterval)
	if err != nil {
		return nil, err
	}

	w, h := f.Width, f.Height
	pixels := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			r, g, b := YCbCrToRGB(planes[0][i], planes[1][i], planes[2][i])
			p := i * 4
			pixels[p], pixels[p+1], pixels[p+2], pixels[p+3] = r, g, b, 255
		}
	}

	return &DecodeResult{Width: w, Height: h, Pixels: pixels, JFIF: jfif}, nil
}

// decodeScan entropy-decodes the interleaved scan into three sample planes
func decodeScan(f *frame, scan []byte, restartInterval int) ([3][]uint8, error) {
	var planes [3][]uint8
	w, h := f.Width, f.Height
	for c := range planes {
		planes[c] = make([]uint8, w*h)
	}

	paddedW, paddedH := PadDimensions(w, h)
	blocksW := paddedW / blockSize
	blocksH := paddedH / blockSize

	br := NewBitReader(scan)
	var prevDC [3]int32
	mcu := 0

	for by := 0; by < blocksH; by++ {
		for bx := 0; bx < blocksW; bx++ {
			if restartInterval > 0 && mcu > 0 && mcu%restartInterval == 0 {
				if !br.ConsumeRestart() {
					return planes, NewCodecErrorAt(KindMalformedInput, br.Offset(),
						"expected restart marker")
				}
				prevDC = [3]int32{}
			} else if m, ok := br.Marker(); ok && m >= MarkerRST0 && m <= MarkerRST7 {
				// Restarts without a declared interval still reset prediction
				br.ConsumeRestart()
				prevDC = [3]int32{}
			}

			for _, ci := range f.ScanOrder {
				comp := &f.Components[ci]
				zz, err := DecodeBlock(br,
					f.DCTables[comp.DCTableID], f.ACTables[comp.ACTableID], &prevDC[ci])
				if err != nil {
					return planes, err
				}
				natural := UnzigzagBlock(&zz)
				block := Dequantize(&natural, f.QuantTables[comp.QuantID])
				InverseDCT(&block)
				for i := range block {
					block[i] += 128
				}
				EmitBlock(&block, planes[ci], w, h, bx, by)
			}
			mcu++
		}
	}

	return planes, nil
}
