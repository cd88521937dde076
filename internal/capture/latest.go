package capture

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ironsheep/scramble-scanner/internal/frame"
)

// ErrClosed is returned by Take once the mailbox is closed and drained.
var ErrClosed = errors.New("capture mailbox closed")

// Latest is a one-slot mailbox with a keep-only-latest policy. Offering a
// frame while another is still pending drops the older frame and releases
// it; the consumer only ever sees the newest frame.
type Latest struct {
	mu      sync.Mutex
	pending *frame.Frame
	closed  bool
	ready   chan struct{}

	offered atomic.Uint64
	dropped atomic.Uint64
}

// NewLatest returns an empty mailbox.
func NewLatest() *Latest {
	return &Latest{ready: make(chan struct{}, 1)}
}

// Offer hands f to the consumer and reports whether a frame was dropped to
// make room. After Close, f is released immediately and counted as dropped.
func (l *Latest) Offer(f *frame.Frame) bool {
	l.offered.Add(1)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		f.Close()
		l.dropped.Add(1)
		return true
	}
	old := l.pending
	l.pending = f
	l.mu.Unlock()

	select {
	case l.ready <- struct{}{}:
	default:
	}

	if old != nil {
		old.Close()
		l.dropped.Add(1)
		return true
	}
	return false
}

// Take blocks until a frame is available, the context ends, or the mailbox
// is closed. The caller owns the returned frame and must Close it.
func (l *Latest) Take(ctx context.Context) (*frame.Frame, error) {
	for {
		l.mu.Lock()
		if f := l.pending; f != nil {
			l.pending = nil
			l.mu.Unlock()
			return f, nil
		}
		closed := l.closed
		l.mu.Unlock()

		if closed {
			return nil, ErrClosed
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-l.ready:
		}
	}
}

// Close stops the mailbox and releases any pending frame.
func (l *Latest) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	old := l.pending
	l.pending = nil
	l.mu.Unlock()

	select {
	case l.ready <- struct{}{}:
	default:
	}

	if old != nil {
		old.Close()
		l.dropped.Add(1)
	}
}

// Offered returns the number of frames offered so far.
func (l *Latest) Offered() uint64 {
	return l.offered.Load()
}

// Dropped returns the number of frames released without being taken.
func (l *Latest) Dropped() uint64 {
	return l.dropped.Load()
}
