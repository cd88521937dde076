package frame

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// DefaultJPEGQuality is the JPEG quality used by the round-trip converter
// when none is configured.
const DefaultJPEGQuality = 50

// Converter turns a camera frame into a decoded bitmap.
//
// Implementations must not mutate the frame's planes and must not close the
// frame.
type Converter interface {
	Convert(f *Frame) (image.Image, error)
}

// JPEGConverter converts frames by packing them as NV21, encoding the whole
// image as JPEG and decoding the result.
type JPEGConverter struct {
	// Quality is the JPEG quality on a 1-100 scale. Zero selects
	// DefaultJPEGQuality.
	Quality int
}

// NewJPEGConverter returns a JPEGConverter with the given quality.
func NewJPEGConverter(quality int) *JPEGConverter {
	return &JPEGConverter{Quality: quality}
}

// Convert implements Converter.
//
// The steps are:
//  1. Pack the planes as Y, V, U (see PackNV21)
//  2. Interpret the buffer as an NV21 image of the frame's size
//  3. Encode the full image rectangle as JPEG
//  4. Decode the JPEG bytes back into an NRGBA bitmap
func (c *JPEGConverter) Convert(f *Frame) (image.Image, error) {
	nv21, err := PackNV21(f)
	if err != nil {
		return nil, err
	}

	yuv, err := NV21Image(nv21, f.Width, f.Height)
	if err != nil {
		return nil, err
	}

	encoded, err := EncodeJPEG(yuv, c.quality())
	if err != nil {
		return nil, err
	}

	decoded, err := imaging.Decode(bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrEncodeDecode, err)
	}

	return imaging.Clone(decoded), nil
}

func (c *JPEGConverter) quality() int {
	if c == nil || c.Quality == 0 {
		return DefaultJPEGQuality
	}
	return c.Quality
}

// EncodeJPEG encodes img as JPEG at the given quality, clamped to 0-100.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality < 0 {
		quality = 0
	}
	if quality > 100 {
		quality = 100
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrEncodeDecode, err)
	}
	return buf.Bytes(), nil
}

// DirectConverter converts frames by sampling the Y, U and V planes
// straight into a YCbCr image, honoring each plane's row and pixel strides.
type DirectConverter struct{}

// Convert implements Converter.
func (DirectConverter) Convert(f *Frame) (image.Image, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	w, h := f.Width, f.Height
	cw, ch := chromaSize(w, h)
	ycc := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio420)

	luma := f.Planes[PlaneY]
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			v, ok := sample(luma, row, col, w)
			if !ok {
				return nil, fmt.Errorf("%w: luma plane too short for %dx%d", ErrInvalidFrame, w, h)
			}
			ycc.Y[row*ycc.YStride+col] = v
		}
	}

	u := f.Planes[PlaneU]
	v := f.Planes[PlaneV]
	for row := 0; row < ch; row++ {
		for col := 0; col < cw; col++ {
			cb, okU := sample(u, row, col, cw)
			cr, okV := sample(v, row, col, cw)
			if !okU || !okV {
				return nil, fmt.Errorf("%w: chroma planes too short for %dx%d", ErrInvalidFrame, w, h)
			}
			ycc.Cb[row*ycc.CStride+col] = cb
			ycc.Cr[row*ycc.CStride+col] = cr
		}
	}

	return imaging.Clone(ycc), nil
}

// sample reads the byte at (row, col) of a plane. packedWidth is the row
// length in samples used when the plane does not declare a row stride.
func sample(p Plane, row, col, packedWidth int) (byte, bool) {
	pixelStride := p.PixelStride
	if pixelStride <= 0 {
		pixelStride = 1
	}
	rowStride := p.RowStride
	if rowStride <= 0 {
		rowStride = packedWidth * pixelStride
	}
	idx := row*rowStride + col*pixelStride
	if idx < 0 || idx >= len(p.Data) {
		return 0, false
	}
	return p.Data[idx], true
}
