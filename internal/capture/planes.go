package capture

import (
	"fmt"
	"strings"

	"github.com/ironsheep/scramble-scanner/internal/frame"
)

// Layout names the byte layout of a raw YUV 4:2:0 buffer.
type Layout string

const (
	// LayoutNV21 is luma followed by interleaved V,U chroma.
	LayoutNV21 Layout = "nv21"
	// LayoutI420 is luma followed by a full U plane and a full V plane.
	LayoutI420 Layout = "i420"
)

// ParseLayout parses a layout name. The empty string selects LayoutNV21.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nv21":
		return LayoutNV21, nil
	case "i420", "yuv420p":
		return LayoutI420, nil
	default:
		return "", fmt.Errorf("unknown frame layout: %s", s)
	}
}

// MaxFrameBytes is the largest raw frame accepted from outside the process.
// It fits one 4096x4096 YUV 4:2:0 frame.
const MaxFrameBytes = 4096 * 4096 * 3 / 2

// FrameSize returns the number of bytes one frame occupies. Both layouts
// carry the same amount of chroma.
func FrameSize(width, height int) int {
	return frame.NV21Size(width, height)
}

// Split cuts a raw buffer into a three-plane frame. The planes alias buf.
func Split(layout Layout, buf []byte, width, height int, release func()) (*frame.Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", frame.ErrInvalidFrame, width, height)
	}
	if need := FrameSize(width, height); len(buf) < need {
		return nil, fmt.Errorf("%w: %s buffer has %d bytes, need %d",
			frame.ErrInvalidFrame, layout, len(buf), need)
	}

	switch layout {
	case LayoutNV21:
		return SplitNV21(buf, width, height, release), nil
	case LayoutI420:
		return SplitI420(buf, width, height, release), nil
	default:
		return nil, fmt.Errorf("unknown frame layout: %s", layout)
	}
}

// SplitNV21 exposes an NV21 buffer the way mobile camera stacks do: the U
// and V planes are overlapping views of the interleaved chroma with a pixel
// stride of 2. buf must hold at least FrameSize bytes.
func SplitNV21(buf []byte, width, height int, release func()) *frame.Frame {
	lumaSize := width * height
	cw := (width + 1) / 2
	ch := (height + 1) / 2
	n := cw * ch
	vu := buf[lumaSize : lumaSize+2*n]

	return frame.New(width, height, []frame.Plane{
		{Data: buf[:lumaSize], RowStride: width, PixelStride: 1},
		{Data: vu[1 : 2*n], RowStride: 2 * cw, PixelStride: 2},
		{Data: vu[:2*n-1], RowStride: 2 * cw, PixelStride: 2},
	}, release)
}

// SplitI420 exposes a planar I420 buffer as three tightly packed planes.
// buf must hold at least FrameSize bytes.
func SplitI420(buf []byte, width, height int, release func()) *frame.Frame {
	lumaSize := width * height
	cw := (width + 1) / 2
	ch := (height + 1) / 2
	n := cw * ch

	return frame.New(width, height, []frame.Plane{
		{Data: buf[:lumaSize], RowStride: width, PixelStride: 1},
		{Data: buf[lumaSize : lumaSize+n], RowStride: cw, PixelStride: 1},
		{Data: buf[lumaSize+n : lumaSize+2*n], RowStride: cw, PixelStride: 1},
	}, release)
}
