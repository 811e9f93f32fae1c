package jsteg

import (
	"github.com/pkg/errors"
)

// Image is an interleaved 8-bit RGBA pixel buffer. Alpha is ignored by the
// encoder.
type Image struct {
	Width  int
	Height int
	Pixels []byte
}

// Encode compresses an RGBA image into a baseline sequential JPEG byte
// stream: three YCbCr components at 1x1 sampling, Annex K quantization
// tables, standard luminance Huffman tables. quality is validated to [1,100]
// but otherwise reserved.
func Encode(img *Image, quality int) ([]byte, error) {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return nil, NewCodecError(KindInvalidArgument, "image dimensions must be positive")
	}
	if len(img.Pixels) < img.Width*img.Height*4 {
		return nil, codecErrorf(KindInvalidArgument,
			"pixel buffer holds %d bytes, need %d", len(img.Pixels), img.Width*img.Height*4)
	}
	if quality < 1 || quality > 100 {
		return nil, codecErrorf(KindInvalidArgument, "quality %d outside [1,100]", quality)
	}

	dcTable, err := NewHuffmanTable(StandardDCLuminance)
	if err != nil {
		return nil, errors.Wrap(err, "building DC huffman table")
	}
	acTable, err := NewHuffmanTable(StandardACLuminance)
	if err != nil {
		return nil, errors.Wrap(err, "building AC huffman table")
	}

	mw := NewMarkerWriter()
	mw.WriteMarker(MarkerSOI)
	mw.WriteAPP0JFIF()
	mw.WriteDQT(0, &LuminanceQuantTable)
	mw.WriteDQT(1, &ChrominanceQuantTable)
	mw.WriteSOF0(img.Width, img.Height)
	mw.WriteDHT(0, 0, dcTable.Spec())
	mw.WriteDHT(1, 0, acTable.Spec())
	mw.WriteSOS()

	// Planar YCbCr conversion; the 8-multiple padding stays virtual, handled
	// by ExtractBlock's edge clamping
	w, h := img.Width, img.Height
	planes := [3][]uint8{
		make([]uint8, w*h),
		make([]uint8, w*h),
		make([]uint8, w*h),
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := (y*w + x) * 4
			yy, cb, cr := RGBToYCbCr(img.Pixels[p], img.Pixels[p+1], img.Pixels[p+2])
			planes[0][y*w+x] = yy
			planes[1][y*w+x] = cb
			planes[2][y*w+x] = cr
		}
	}

	quantTables := [3]*[64]uint16{
		&LuminanceQuantTable, &ChrominanceQuantTable, &ChrominanceQuantTable,
	}

	paddedW, paddedH := PadDimensions(w, h)
	blocksW := paddedW / blockSize
	blocksH := paddedH / blockSize

	bw := NewBitWriter(w * h / 2)
	var prevDC [3]int32

	for by := 0; by < blocksH; by++ {
		for bx := 0; bx < blocksW; bx++ {
			for c := 0; c < 3; c++ {
				block := ExtractBlock(planes[c], w, h, bx, by)
				for i := range block {
					block[i] -= 128
				}
				ForwardDCT(&block)
				quantized := Quantize(&block, quantTables[c])
				zz := ZigzagBlock(&quantized)
				prevDC[c], err = EncodeBlock(bw, &zz, dcTable, acTable, prevDC[c])
				if err != nil {
					return nil, err
				}
			}
		}
	}

	mw.WriteBytes(bw.Flush())
	mw.WriteMarker(MarkerEOI)
	return mw.Bytes(), nil
}
