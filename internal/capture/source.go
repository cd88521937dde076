package capture

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/ironsheep/scramble-scanner/internal/frame"
)

// Source delivers camera frames to sink, one at a time, until the context
// ends or the source is exhausted. sink owns each frame it receives.
type Source interface {
	Run(ctx context.Context, sink func(*frame.Frame)) error
}

// FileSource replays raw YUV recordings as a camera. Each file holds one or
// more frames of the same size and layout stored back to back.
type FileSource struct {
	Paths    []string
	Width    int
	Height   int
	Layout   Layout
	Interval time.Duration
	Loop     bool

	seq atomic.Uint64
}

// Run implements Source. It returns nil once every file was replayed and
// Loop is false.
func (s *FileSource) Run(ctx context.Context, sink func(*frame.Frame)) error {
	if len(s.Paths) == 0 {
		return fmt.Errorf("file source has no paths")
	}
	size := FrameSize(s.Width, s.Height)
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("file source dimensions %dx%d", s.Width, s.Height)
	}

	for {
		for _, path := range s.Paths {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read frame file: %w", err)
			}
			if len(data) < size {
				return fmt.Errorf("%s: %d bytes is smaller than one %dx%d frame", path, len(data), s.Width, s.Height)
			}

			for off := 0; off+size <= len(data); off += size {
				f, err := Split(s.Layout, data[off:off+size], s.Width, s.Height, nil)
				if err != nil {
					return err
				}
				f.Seq = s.seq.Add(1)
				sink(f)

				if err := sleep(ctx, s.Interval); err != nil {
					return err
				}
			}
		}
		if !s.Loop {
			return nil
		}
	}
}

// ReadFrameFile loads the first frame of a raw YUV file.
func ReadFrameFile(path string, width, height int, layout Layout) (*frame.Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame file: %w", err)
	}
	return Split(layout, data, width, height, nil)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
