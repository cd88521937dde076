package frame

import (
	"fmt"
	"image"
)

// PackNV21 copies a frame's planes into a single NV21 buffer.
//
// The buffer is len(Y)+len(U)+len(V) bytes long and laid out as:
//
//	[0, y)       Y plane
//	[y, y+v)     V plane
//	[y+v, y+v+u) U plane
//
// U and V are written in swapped order relative to the frame's plane order;
// NV21 expects V first. The frame's planes are only read.
func PackNV21(f *Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	yPlane := f.Planes[PlaneY].Data
	uPlane := f.Planes[PlaneU].Data
	vPlane := f.Planes[PlaneV].Data

	ySize := len(yPlane)
	uSize := len(uPlane)
	vSize := len(vPlane)

	nv21 := make([]byte, ySize+uSize+vSize)
	copy(nv21[0:], yPlane)
	copy(nv21[ySize:], vPlane)
	copy(nv21[ySize+vSize:], uPlane)

	return nv21, nil
}

// NV21Size returns the minimum buffer length needed to interpret an image
// of the given size as NV21.
func NV21Size(width, height int) int {
	cw, ch := chromaSize(width, height)
	return width*height + 2*cw*ch
}

// NV21Image interprets buf as an NV21 image of the given size.
//
// The first width*height bytes are luma; the following bytes are read as
// interleaved V,U pairs at half resolution. Bytes beyond NV21Size are
// ignored. The returned image does not alias buf.
func NV21Image(buf []byte, width, height int) (*image.YCbCr, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidFrame, width, height)
	}
	need := NV21Size(width, height)
	if len(buf) < need {
		return nil, fmt.Errorf("%w: nv21 buffer has %d bytes, need %d for %dx%d",
			ErrInvalidFrame, len(buf), need, width, height)
	}

	img := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio420)
	lumaSize := width * height
	for row := 0; row < height; row++ {
		copy(img.Y[row*img.YStride:row*img.YStride+width], buf[row*width:(row+1)*width])
	}

	cw, ch := chromaSize(width, height)
	vu := buf[lumaSize:]
	for row := 0; row < ch; row++ {
		for col := 0; col < cw; col++ {
			src := 2 * (row*cw + col)
			dst := row*img.CStride + col
			img.Cr[dst] = vu[src]
			img.Cb[dst] = vu[src+1]
		}
	}

	return img, nil
}
