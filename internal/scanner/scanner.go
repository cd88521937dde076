// Package scanner runs scan attempts: it feeds camera frames into the
// session while capturing and reads the board when the user asks for
// analysis.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ironsheep/scramble-scanner/internal/board"
	"github.com/ironsheep/scramble-scanner/internal/capture"
	"github.com/ironsheep/scramble-scanner/internal/detection"
	"github.com/ironsheep/scramble-scanner/internal/frame"
	"github.com/ironsheep/scramble-scanner/internal/imaging"
	"github.com/ironsheep/scramble-scanner/internal/ocr"
	"github.com/ironsheep/scramble-scanner/internal/permission"
	"github.com/ironsheep/scramble-scanner/internal/session"
)

// DefaultTimeout bounds one analysis.
const DefaultTimeout = 20 * time.Second

var (
	// ErrNoBitmap is reported when analysis starts before any frame was
	// converted.
	ErrNoBitmap = errors.New("no bitmap captured")

	// ErrNoRecognizer is reported when no recognizer is configured.
	ErrNoRecognizer = errors.New("no recognizer configured")
)

// Options configure a Scanner. Session and Converter default to a fresh
// session and a JPEG converter.
type Options struct {
	Session     *session.Session
	Converter   frame.Converter
	Permissions permission.Provider

	// Source produces camera frames once the camera is acquired. Nil means
	// frames only arrive through Offer and Process.
	Source capture.Source

	Recognizer ocr.Recognizer
	Language   string

	Detect  detection.Options
	Prepare imaging.PrepareOptions

	// Store receives each analyzed bitmap. Optional.
	Store *imaging.Store

	Timeout time.Duration
	Logger  *slog.Logger
}

// Scanner owns the capture pipeline around one session.
type Scanner struct {
	session    *session.Session
	converter  frame.Converter
	perms      permission.Provider
	source     capture.Source
	recognizer ocr.Recognizer
	language   string
	detect     detection.Options
	prepare    imaging.PrepareOptions
	store      *imaging.Store
	timeout    time.Duration
	logger     *slog.Logger

	latest *capture.Latest

	ctx  context.Context
	stop context.CancelFunc

	pressMu  sync.Mutex
	mu       sync.Mutex
	acquired bool
	last     *Result

	workers  sync.WaitGroup
	analyses sync.WaitGroup

	converted atomic.Uint64
	skipped   atomic.Uint64
	failed    atomic.Uint64
}

// New creates a Scanner. Call Close to stop its goroutines.
func New(opts Options) *Scanner {
	if opts.Session == nil {
		opts.Session = session.New(nil)
	}
	if opts.Converter == nil {
		opts.Converter = frame.NewJPEGConverter(frame.DefaultJPEGQuality)
	}
	if opts.Permissions == nil {
		opts.Permissions = permission.Static{Granted: true}
	}
	if opts.Language == "" {
		opts.Language = ocr.DefaultLanguage
	}
	if opts.Detect == (detection.Options{}) {
		opts.Detect = detection.DefaultOptions()
	}
	if opts.Prepare == (imaging.PrepareOptions{}) {
		opts.Prepare = imaging.DefaultPrepareOptions()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, stop := context.WithCancel(context.Background())
	return &Scanner{
		session:    opts.Session,
		converter:  opts.Converter,
		perms:      opts.Permissions,
		source:     opts.Source,
		recognizer: opts.Recognizer,
		language:   opts.Language,
		detect:     opts.Detect,
		prepare:    opts.Prepare,
		store:      opts.Store,
		timeout:    opts.Timeout,
		logger:     opts.Logger,
		latest:     capture.NewLatest(),
		ctx:        ctx,
		stop:       stop,
	}
}

// Session returns the session the scanner drives.
func (s *Scanner) Session() *session.Session {
	return s.session
}

// Start acquires the camera. Without camera permission it asks for it and
// returns session.ErrPermissionDenied; the camera is acquired later if the
// request is granted. Calling Start after the camera is acquired is a
// no-op.
func (s *Scanner) Start() error {
	if s.ctx.Err() != nil {
		return fmt.Errorf("scanner closed: %w", s.ctx.Err())
	}
	if s.cameraAcquired() {
		return nil
	}

	if s.perms.HasPermission(permission.Camera) {
		s.acquire()
		return nil
	}

	s.logger.Info("requesting camera permission")
	s.perms.RequestPermission(permission.Camera, func(granted bool) {
		if !granted {
			s.logger.Warn("camera permission denied")
			return
		}
		s.logger.Info("camera permission granted")
		s.acquire()
	})

	if s.cameraAcquired() {
		// The provider granted synchronously.
		return nil
	}
	return session.ErrPermissionDenied
}

func (s *Scanner) cameraAcquired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquired
}

// acquire starts frame delivery. It runs at most once.
func (s *Scanner) acquire() {
	s.mu.Lock()
	if s.acquired || s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.acquired = true
	s.mu.Unlock()

	s.session.MarkCameraReady()

	s.workers.Add(1)
	go s.pump()

	if s.source != nil {
		s.workers.Add(1)
		go func() {
			defer s.workers.Done()
			sink := func(f *frame.Frame) { s.Offer(f) }
			if err := s.source.Run(s.ctx, sink); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("camera source stopped", "error", err)
			}
		}()
	}

	s.logger.Info("camera acquired")
}

// pump converts frames from the keep-latest slot one at a time.
func (s *Scanner) pump() {
	defer s.workers.Done()
	for {
		f, err := s.latest.Take(s.ctx)
		if err != nil {
			return
		}
		s.Process(f)
	}
}

// Offer queues f for conversion and reports whether a frame was dropped.
// If a frame is already waiting it is released and replaced. A nil frame is
// ignored.
func (s *Scanner) Offer(f *frame.Frame) bool {
	if f == nil {
		return false
	}
	if s.latest.Offer(f) {
		s.logger.Debug("frame dropped", "seq", f.Seq)
		return true
	}
	return false
}

// Process converts f and stores the bitmap in the session if it is
// Capturing. It reports whether the bitmap was stored. f is released
// exactly once whatever the outcome; a frame that fails conversion is
// dropped.
func (s *Scanner) Process(f *frame.Frame) (bool, error) {
	if f == nil {
		s.failed.Add(1)
		return false, fmt.Errorf("process: %w: nil frame", frame.ErrInvalidFrame)
	}
	defer f.Close()

	if !s.session.Capturing() {
		s.skipped.Add(1)
		return false, nil
	}

	img, err := s.converter.Convert(f)
	if err != nil {
		s.failed.Add(1)
		s.logger.Warn("frame conversion failed", "seq", f.Seq, "error", err)
		return false, err
	}

	if !s.session.StoreBitmap(img, f.Seq) {
		// Capture ended while converting.
		s.skipped.Add(1)
		return false, nil
	}
	s.converted.Add(1)
	s.logger.Debug("frame converted", "seq", f.Seq, "width", f.Width, "height", f.Height)
	return true, nil
}

// Press applies one button press. Entering Processing starts an analysis
// of the latest bitmap in the background.
func (s *Scanner) Press() (session.State, error) {
	s.pressMu.Lock()
	defer s.pressMu.Unlock()

	before := s.session.State()
	st, err := s.session.Press()
	if err != nil {
		return st, err
	}

	s.logger.Info("button pressed", "from", before.String(), "to", st.String())

	if before == session.Capturing && st == session.Processing {
		s.analyses.Add(1)
		go func() {
			defer s.analyses.Done()
			s.analyze()
		}()
	}
	return st, nil
}

// Wait blocks until every started analysis has finished.
func (s *Scanner) Wait() {
	s.analyses.Wait()
}

// Close stops frame delivery, releases any queued frame and waits for
// running work.
func (s *Scanner) Close() {
	s.stop()
	s.latest.Close()
	s.workers.Wait()
	s.analyses.Wait()
}

// Reading is the outcome of reading a board from one bitmap.
type Reading struct {
	Region  *detection.Region `json:"region,omitempty"`
	Board   *board.Board      `json:"board,omitempty"`
	RawText string            `json:"raw_text"`
}

// ReadBoard locates the board in img, prepares it and recognizes its
// letters. Errors wrap detection.ErrNoBoard or board.ErrEmpty when there is
// nothing to read.
func (s *Scanner) ReadBoard(ctx context.Context, img image.Image) (*Reading, error) {
	if s.recognizer == nil {
		return nil, ErrNoRecognizer
	}

	region, err := detection.FindBoard(img, s.detect)
	if err != nil {
		return nil, err
	}
	reading := &Reading{Region: region}

	crop, err := imaging.Crop(img, region.Bounds.Rect(), 1.0)
	if err != nil {
		return reading, fmt.Errorf("failed to crop board: %w", err)
	}
	prepared := imaging.PrepareForOCR(crop, s.prepare)

	res, err := s.recognizer.Recognize(ctx, prepared, s.language)
	if err != nil {
		return reading, fmt.Errorf("recognition failed: %w", err)
	}
	reading.RawText = res.FullText

	b, err := board.Parse(res.FullText)
	if err != nil {
		return reading, err
	}
	reading.Board = b
	return reading, nil
}

// Result records the last finished analysis.
type Result struct {
	AttemptID  string              `json:"attempt_id"`
	FrameSeq   uint64              `json:"frame_seq"`
	ImageID    string              `json:"image_id,omitempty"`
	Reading    *Reading            `json:"reading,omitempty"`
	Stats      *imaging.ImageStats `json:"stats,omitempty"`
	Failure    string              `json:"failure,omitempty"`
	Error      string              `json:"error,omitempty"`
	DurationMS int64               `json:"duration_ms"`
	FinishedAt time.Time           `json:"finished_at"`
}

func (s *Scanner) analyze() {
	started := time.Now()
	snap := s.session.Snapshot()
	logger := s.logger.With("attempt", snap.AttemptID)

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	img, seq := s.session.Latest()
	result := &Result{AttemptID: snap.AttemptID, FrameSeq: seq}

	var (
		reading *Reading
		err     error
	)
	if img == nil {
		err = ErrNoBitmap
	} else {
		if s.store != nil {
			result.ImageID = s.store.Put(img, fmt.Sprintf("frame:%d", seq))
		}
		if stats, serr := imaging.Stats(img, nil, 3); serr == nil {
			result.Stats = stats
			logger.Debug("analyzing bitmap", "seq", seq, "luminance", stats.Luminance, "contrast", stats.Contrast)
		}
		reading, err = s.ReadBoard(ctx, img)
	}
	result.Reading = reading

	switch {
	case err == nil:
		text := reading.Board.String()
		if cerr := s.session.Complete(text); cerr != nil {
			logger.Warn("could not complete attempt", "error", cerr)
		}
		logger.Info("board recognized", "size", reading.Board.Size, "letters", reading.Board.Letters())
	case errors.Is(err, ErrNoBitmap), errors.Is(err, detection.ErrNoBoard), errors.Is(err, board.ErrEmpty):
		result.Failure = session.FailureNoBoard.String()
		result.Error = err.Error()
		if ferr := s.session.Fail(session.FailureNoBoard, err); ferr != nil {
			logger.Warn("could not fail attempt", "error", ferr)
		}
		logger.Info("no board detected", "reason", err)
	default:
		result.Failure = session.FailureError.String()
		result.Error = err.Error()
		if ferr := s.session.Fail(session.FailureError, err); ferr != nil {
			logger.Warn("could not fail attempt", "error", ferr)
		}
		logger.Error("analysis failed", "error", err)
	}

	result.DurationMS = time.Since(started).Milliseconds()
	result.FinishedAt = time.Now()

	s.mu.Lock()
	s.last = result
	s.mu.Unlock()
}

// FrameStats counts frames through the pipeline.
type FrameStats struct {
	Offered   uint64 `json:"offered"`
	Dropped   uint64 `json:"dropped"`
	Converted uint64 `json:"converted"`
	Skipped   uint64 `json:"skipped"`
	Failed    uint64 `json:"failed"`
}

// Status is a point-in-time view of the scanner.
type Status struct {
	Session        session.Snapshot `json:"session"`
	CameraAcquired bool             `json:"camera_acquired"`
	Frames         FrameStats       `json:"frames"`
	Last           *Result          `json:"last_result,omitempty"`
}

// Status reports the session with its UI panel and the frame counters.
func (s *Scanner) Status() Status {
	st := Status{
		Session:        s.session.Snapshot(),
		CameraAcquired: s.cameraAcquired(),
		Frames: FrameStats{
			Offered:   s.latest.Offered(),
			Dropped:   s.latest.Dropped(),
			Converted: s.converted.Load(),
			Skipped:   s.skipped.Load(),
			Failed:    s.failed.Load(),
		},
	}
	s.mu.Lock()
	st.Last = s.last
	s.mu.Unlock()
	return st
}
