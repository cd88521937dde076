package frame

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrInvalidFrame is returned when a frame's planes or dimensions
	// cannot describe an image.
	ErrInvalidFrame = errors.New("invalid frame")

	// ErrEncodeDecode is returned when the JPEG round trip fails.
	ErrEncodeDecode = errors.New("frame encode/decode failed")
)

// PlaneCount is the number of planes a convertible frame must carry.
const PlaneCount = 3

// Plane indexes within Frame.Planes.
const (
	PlaneY = 0
	PlaneU = 1
	PlaneV = 2
)

// Plane is one color plane of a camera frame.
type Plane struct {
	// Data holds the plane's bytes, starting at its first sample.
	Data []byte

	// RowStride is the distance in bytes between the starts of two rows.
	// Zero means rows are tightly packed.
	RowStride int

	// PixelStride is the distance in bytes between two samples on a row.
	// Zero is treated as 1. Semi-planar chroma planes use 2.
	PixelStride int
}

// Remaining returns the number of readable bytes in the plane.
func (p Plane) Remaining() int {
	return len(p.Data)
}

// Frame is a single camera-delivered image made of Y, U and V planes.
//
// A Frame is immutable once constructed. The receiver owns it for the
// duration of processing and must call Close exactly once afterwards;
// converters never close frames.
type Frame struct {
	Width     int
	Height    int
	Planes    []Plane
	Seq       uint64
	Timestamp time.Time

	once     sync.Once
	released atomic.Bool
	release  func()
}

// New creates a frame. The release hook, which may be nil, runs exactly once
// when the frame is closed.
func New(width, height int, planes []Plane, release func()) *Frame {
	return &Frame{
		Width:     width,
		Height:    height,
		Planes:    planes,
		Timestamp: time.Now(),
		release:   release,
	}
}

// Close releases the frame back to its source. Calls after the first are
// no-ops, as is closing a nil frame.
func (f *Frame) Close() {
	if f == nil {
		return
	}
	f.once.Do(func() {
		if f.release != nil {
			f.release()
		}
		f.released.Store(true)
	})
}

// Released reports whether Close has been called.
func (f *Frame) Released() bool {
	return f != nil && f.released.Load()
}

// Validate checks the conditions every converter requires: exactly three
// non-empty planes and positive dimensions.
func (f *Frame) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: nil frame", ErrInvalidFrame)
	}
	if len(f.Planes) != PlaneCount {
		return fmt.Errorf("%w: expected %d planes, got %d", ErrInvalidFrame, PlaneCount, len(f.Planes))
	}
	for i, p := range f.Planes {
		if p.Remaining() == 0 {
			return fmt.Errorf("%w: plane %d is empty", ErrInvalidFrame, i)
		}
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidFrame, f.Width, f.Height)
	}
	return nil
}

// chromaSize returns the dimensions of a 4:2:0 chroma plane for a frame of
// the given size.
func chromaSize(width, height int) (int, int) {
	return (width + 1) / 2, (height + 1) / 2
}
