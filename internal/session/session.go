package session

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrPermissionDenied is returned when a scan is started before the
	// camera has been granted and acquired.
	ErrPermissionDenied = errors.New("camera permission denied")

	// ErrNotProcessing is returned when an attempt is completed or failed
	// while the session is not processing.
	ErrNotProcessing = errors.New("session is not processing")
)

// Session is the single active scan session. The button handler and the
// frame delivery path share it; all methods are safe for concurrent use.
type Session struct {
	mu sync.Mutex
	ui Surface

	state        State
	attemptID    string
	attempts     int
	startedAt    time.Time
	cameraReady  bool
	previewReady bool

	latest    image.Image
	latestSeq uint64

	text        string
	failure     FailureKind
	failureText string
}

// New creates a session in the Idle state that drives ui. A nil ui gets a
// fresh Panel.
func New(ui Surface) *Session {
	if ui == nil {
		ui = NewPanel()
	}
	return &Session{ui: ui, state: Idle}
}

// Surface returns the UI the session drives.
func (s *Session) Surface() Surface {
	return s.ui
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Capturing reports whether frames should currently be converted.
func (s *Session) Capturing() bool {
	return s.State() == Capturing
}

// MarkCameraReady records that permission was granted and the camera
// acquired. Until then, presses leave the session Idle.
func (s *Session) MarkCameraReady() {
	s.mu.Lock()
	s.cameraReady = true
	s.mu.Unlock()
}

// CameraReady reports whether MarkCameraReady has been called.
func (s *Session) CameraReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cameraReady
}

// Press applies one button press and returns the resulting state.
//
// From Idle without a ready camera the session stays Idle and
// ErrPermissionDenied is returned. A press while Processing is a no-op.
func (s *Session) Press() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Idle && !s.cameraReady {
		return s.state, ErrPermissionDenied
	}

	next := s.state.next()
	if next == s.state {
		return s.state, nil
	}

	switch next {
	case Capturing:
		s.beginCapture()
	case Processing:
		s.state = Processing
	case Idle:
		s.reset()
	}
	return s.state, nil
}

// beginCapture enters Capturing. Callers hold s.mu.
func (s *Session) beginCapture() {
	s.state = Capturing
	s.attemptID = uuid.NewString()
	s.attempts++
	s.startedAt = time.Now()
	s.previewReady = false
	s.latest = nil
	s.latestSeq = 0
	s.text = ""
	s.failure = FailureNone
	s.failureText = ""

	s.ui.SetOverlayVisible(true)
	s.ui.SetButtonLabel(LabelAnalyze)
	s.ui.SetButtonEnabled(false)
	s.ui.SetText("")
	s.ui.SetStatus("")
	s.ui.SetTextVisible(true)
}

// reset returns to Idle. Callers hold s.mu.
func (s *Session) reset() {
	s.state = Idle
	s.latest = nil
	s.latestSeq = 0
	s.previewReady = false

	s.ui.SetOverlayVisible(false)
	s.ui.SetTextVisible(false)
	s.ui.SetText("")
	s.ui.SetStatus("")
	s.ui.SetButtonLabel(LabelScan)
	s.ui.SetButtonEnabled(true)
}

// StoreBitmap keeps img as the latest bitmap if the session is Capturing
// and reports whether it was kept. The first bitmap of an attempt marks the
// preview ready and enables the button.
func (s *Session) StoreBitmap(img image.Image, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Capturing {
		return false
	}
	s.latest = img
	s.latestSeq = seq
	if !s.previewReady {
		s.previewReady = true
		s.ui.SetButtonEnabled(true)
	}
	return true
}

// Latest returns the most recent bitmap of the current attempt and its
// frame sequence number. The bitmap is nil if none was stored.
func (s *Session) Latest() (image.Image, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.latestSeq
}

// Complete ends a Processing attempt with the recognized board text.
func (s *Session) Complete(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Processing {
		return fmt.Errorf("%w: state is %s", ErrNotProcessing, s.state)
	}
	s.state = Completed
	s.text = text

	s.ui.SetOverlayVisible(false)
	s.ui.SetText(text)
	s.ui.SetStatus("")
	s.ui.SetButtonLabel(LabelScan)
	s.ui.SetButtonEnabled(true)
	return nil
}

// Fail ends a Processing attempt. kind decides the status shown to the
// user; cause is kept for Snapshot.
func (s *Session) Fail(kind FailureKind, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Processing {
		return fmt.Errorf("%w: state is %s", ErrNotProcessing, s.state)
	}
	if kind == FailureNone {
		kind = FailureError
	}
	s.state = Failed
	s.text = ""
	s.failure = kind
	s.failureText = ""
	if cause != nil {
		s.failureText = cause.Error()
	}

	status := StatusFailed
	if kind == FailureNoBoard {
		status = StatusNoBoard
	}
	s.ui.SetOverlayVisible(false)
	s.ui.SetText("")
	s.ui.SetStatus(status)
	s.ui.SetButtonLabel(LabelScan)
	s.ui.SetButtonEnabled(true)
	return nil
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	State        string      `json:"state"`
	AttemptID    string      `json:"attempt_id,omitempty"`
	Attempts     int         `json:"attempts"`
	StartedAt    *time.Time  `json:"started_at,omitempty"`
	CameraReady  bool        `json:"camera_ready"`
	PreviewReady bool        `json:"preview_ready"`
	HasBitmap    bool        `json:"has_bitmap"`
	LatestSeq    uint64      `json:"latest_seq,omitempty"`
	Text         string      `json:"text,omitempty"`
	Failure      string      `json:"failure,omitempty"`
	FailureText  string      `json:"failure_text,omitempty"`
	Panel        *PanelState `json:"panel,omitempty"`
}

// Snapshot returns the session's current state. Panel is set when the
// session drives a *Panel.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:        s.state.String(),
		AttemptID:    s.attemptID,
		Attempts:     s.attempts,
		CameraReady:  s.cameraReady,
		PreviewReady: s.previewReady,
		HasBitmap:    s.latest != nil,
		LatestSeq:    s.latestSeq,
		Text:         s.text,
		Failure:      s.failure.String(),
		FailureText:  s.failureText,
	}
	if !s.startedAt.IsZero() {
		started := s.startedAt
		snap.StartedAt = &started
	}
	// Panel setters run under s.mu too, so the view matches the state.
	if p, ok := s.ui.(*Panel); ok {
		ps := p.State()
		snap.Panel = &ps
	}
	return snap
}
