package session

import (
	"encoding/json"
	"errors"
	"image"
	"sync"
	"testing"
)

func readySession() (*Session, *Panel) {
	p := NewPanel()
	s := New(p)
	s.MarkCameraReady()
	return s, p
}

func TestNew(t *testing.T) {
	s := New(nil)
	if s == nil {
		t.Fatal("New returned nil")
	}
	if s.State() != Idle {
		t.Errorf("initial state: got %s, want idle", s.State())
	}
	if s.Surface() == nil {
		t.Error("New(nil) should create a panel")
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Idle, "idle"},
		{Capturing, "capturing"},
		{Processing, "processing"},
		{Completed, "completed"},
		{Failed, "failed"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String(): got %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestPress_Sequence(t *testing.T) {
	s, _ := readySession()

	want := []State{Capturing, Processing, Processing, Processing}
	for i, w := range want {
		got, err := s.Press()
		if err != nil {
			t.Fatalf("press %d: unexpected error: %v", i+1, err)
		}
		if got != w {
			t.Errorf("press %d: got %s, want %s", i+1, got, w)
		}
	}
}

func TestPress_PermissionDenied(t *testing.T) {
	s := New(NewPanel())

	for i := 0; i < 3; i++ {
		state, err := s.Press()
		if !errors.Is(err, ErrPermissionDenied) {
			t.Fatalf("press %d: expected ErrPermissionDenied, got %v", i+1, err)
		}
		if state != Idle {
			t.Fatalf("press %d: state moved to %s", i+1, state)
		}
	}
	if s.Snapshot().Attempts != 0 {
		t.Error("denied presses must not start attempts")
	}
}

func TestPress_CaptureSideEffects(t *testing.T) {
	s, p := readySession()

	if _, err := s.Press(); err != nil {
		t.Fatalf("Press failed: %v", err)
	}

	ui := p.State()
	if !ui.OverlayVisible {
		t.Error("overlay should be visible while capturing")
	}
	if ui.ButtonEnabled {
		t.Error("button should be disabled until the preview is ready")
	}
	if ui.ButtonLabel != LabelAnalyze {
		t.Errorf("button label: got %q, want %q", ui.ButtonLabel, LabelAnalyze)
	}
	if !ui.TextVisible {
		t.Error("text area should be visible while capturing")
	}

	snap := s.Snapshot()
	if snap.AttemptID == "" {
		t.Error("capture should assign an attempt id")
	}
	if snap.Attempts != 1 {
		t.Errorf("attempts: got %d, want 1", snap.Attempts)
	}
}

// nopSurface is a Surface that is not a Panel.
type nopSurface struct{}

func (nopSurface) SetButtonLabel(string)  {}
func (nopSurface) SetButtonEnabled(bool)  {}
func (nopSurface) SetOverlayVisible(bool) {}
func (nopSurface) SetTextVisible(bool)    {}
func (nopSurface) SetText(string)         {}
func (nopSurface) SetStatus(string)       {}

func TestSnapshot_Panel(t *testing.T) {
	s, p := readySession()
	if _, err := s.Press(); err != nil {
		t.Fatalf("Press failed: %v", err)
	}

	snap := s.Snapshot()
	if snap.Panel == nil {
		t.Fatal("snapshot should carry the panel state")
	}
	if *snap.Panel != p.State() {
		t.Errorf("panel: got %+v, want %+v", *snap.Panel, p.State())
	}

	other := New(nopSurface{})
	if other.Snapshot().Panel != nil {
		t.Error("a non-panel surface should leave Panel unset")
	}
}

func TestSnapshot_StartedAt(t *testing.T) {
	s, _ := readySession()

	idle, err := json.Marshal(s.Snapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(idle, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := fields["started_at"]; ok {
		t.Errorf("idle snapshot should omit started_at: %s", idle)
	}

	if _, err := s.Press(); err != nil {
		t.Fatalf("Press failed: %v", err)
	}
	snap := s.Snapshot()
	if snap.StartedAt == nil || snap.StartedAt.IsZero() {
		t.Error("capturing snapshot should carry started_at")
	}
}

func TestStoreBitmap_OnlyWhileCapturing(t *testing.T) {
	s, p := readySession()
	img := image.NewGray(image.Rect(0, 0, 4, 4))

	if s.StoreBitmap(img, 1) {
		t.Error("Idle session should not keep bitmaps")
	}

	s.Press()
	if !s.StoreBitmap(img, 7) {
		t.Fatal("Capturing session should keep bitmaps")
	}
	if !p.State().ButtonEnabled {
		t.Error("first bitmap should enable the button")
	}
	got, seq := s.Latest()
	if got != img || seq != 7 {
		t.Errorf("Latest: got (%v, %d)", got, seq)
	}

	s.Press()
	if s.StoreBitmap(image.NewGray(image.Rect(0, 0, 1, 1)), 8) {
		t.Error("Processing session should not keep bitmaps")
	}
	if _, seq := s.Latest(); seq != 7 {
		t.Errorf("Latest seq changed during processing: %d", seq)
	}
}

func TestComplete(t *testing.T) {
	s, p := readySession()
	s.Press()
	s.Press()

	if err := s.Complete("A B\nC D"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if s.State() != Completed {
		t.Fatalf("state: got %s, want completed", s.State())
	}

	ui := p.State()
	if ui.Text != "A B\nC D" {
		t.Errorf("text: got %q", ui.Text)
	}
	if ui.OverlayVisible {
		t.Error("overlay should be hidden after completion")
	}
	if !ui.ButtonEnabled || ui.ButtonLabel != LabelScan {
		t.Errorf("button: got %+v", ui)
	}

	state, err := s.Press()
	if err != nil || state != Idle {
		t.Errorf("press after completion: got (%s, %v), want idle", state, err)
	}
	if p.State().TextVisible {
		t.Error("text should be hidden after reset")
	}
}

func TestFail_Kinds(t *testing.T) {
	tests := []struct {
		name       string
		kind       FailureKind
		wantStatus string
		wantKind   string
	}{
		{"no board", FailureNoBoard, StatusNoBoard, "no_board"},
		{"hard failure", FailureError, StatusFailed, "error"},
		{"unspecified", FailureNone, StatusFailed, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, p := readySession()
			s.Press()
			s.Press()

			if err := s.Fail(tt.kind, errors.New("boom")); err != nil {
				t.Fatalf("Fail failed: %v", err)
			}
			if s.State() != Failed {
				t.Fatalf("state: got %s, want failed", s.State())
			}
			if got := p.State().Status; got != tt.wantStatus {
				t.Errorf("status: got %q, want %q", got, tt.wantStatus)
			}
			if p.State().Text != "" {
				t.Error("text should be cleared on failure")
			}
			snap := s.Snapshot()
			if snap.Failure != tt.wantKind {
				t.Errorf("failure: got %q, want %q", snap.Failure, tt.wantKind)
			}
			if snap.FailureText != "boom" {
				t.Errorf("failure text: got %q", snap.FailureText)
			}

			if state, _ := s.Press(); state != Idle {
				t.Errorf("press after failure: got %s, want idle", state)
			}
		})
	}
}

func TestCompleteAndFail_RequireProcessing(t *testing.T) {
	s, _ := readySession()

	if err := s.Complete("x"); !errors.Is(err, ErrNotProcessing) {
		t.Errorf("Complete in idle: expected ErrNotProcessing, got %v", err)
	}
	s.Press()
	if err := s.Fail(FailureError, nil); !errors.Is(err, ErrNotProcessing) {
		t.Errorf("Fail in capturing: expected ErrNotProcessing, got %v", err)
	}
}

func TestNewAttemptClearsPrevious(t *testing.T) {
	s, _ := readySession()
	s.Press()
	s.StoreBitmap(image.NewGray(image.Rect(0, 0, 2, 2)), 3)
	first := s.Snapshot().AttemptID
	s.Press()
	s.Complete("X")
	s.Press() // back to idle
	s.Press() // new attempt

	snap := s.Snapshot()
	if snap.AttemptID == first {
		t.Error("new attempt should get a new id")
	}
	if snap.HasBitmap || snap.Text != "" {
		t.Errorf("new attempt kept previous data: %+v", snap)
	}
	if snap.Attempts != 2 {
		t.Errorf("attempts: got %d, want 2", snap.Attempts)
	}
}

func TestSession_ConcurrentAccess(t *testing.T) {
	s, _ := readySession()
	s.Press()
	img := image.NewGray(image.Rect(0, 0, 2, 2))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(seq uint64) {
			defer wg.Done()
			s.StoreBitmap(img, seq)
			_ = s.Capturing()
			_ = s.Snapshot()
		}(uint64(i))
	}
	wg.Wait()

	if !s.Snapshot().HasBitmap {
		t.Error("expected a stored bitmap")
	}
}
