package session

import "sync"

// Button labels shown by the scan surface.
const (
	LabelScan    = "Scan"
	LabelAnalyze = "Analyze"
)

// Status messages shown after a failed attempt.
const (
	StatusNoBoard = "No board detected"
	StatusFailed  = "Scan failed"
)

// Surface is the UI the session drives. Implementations must not call back
// into the session.
type Surface interface {
	SetButtonLabel(label string)
	SetButtonEnabled(enabled bool)
	SetOverlayVisible(visible bool)
	SetTextVisible(visible bool)
	SetText(text string)
	SetStatus(status string)
}

// PanelState is a snapshot of a Panel.
type PanelState struct {
	ButtonLabel    string `json:"button_label"`
	ButtonEnabled  bool   `json:"button_enabled"`
	OverlayVisible bool   `json:"overlay_visible"`
	TextVisible    bool   `json:"text_visible"`
	Text           string `json:"text"`
	Status         string `json:"status,omitempty"`
}

// Panel is an in-memory Surface. Headless deployments expose its state to
// clients instead of rendering widgets.
type Panel struct {
	mu    sync.Mutex
	state PanelState
}

// NewPanel returns a panel in its initial layout: a visible, enabled
// "Scan" button and nothing else.
func NewPanel() *Panel {
	return &Panel{state: PanelState{
		ButtonLabel:   LabelScan,
		ButtonEnabled: true,
	}}
}

func (p *Panel) SetButtonLabel(label string) {
	p.mu.Lock()
	p.state.ButtonLabel = label
	p.mu.Unlock()
}

func (p *Panel) SetButtonEnabled(enabled bool) {
	p.mu.Lock()
	p.state.ButtonEnabled = enabled
	p.mu.Unlock()
}

func (p *Panel) SetOverlayVisible(visible bool) {
	p.mu.Lock()
	p.state.OverlayVisible = visible
	p.mu.Unlock()
}

func (p *Panel) SetTextVisible(visible bool) {
	p.mu.Lock()
	p.state.TextVisible = visible
	p.mu.Unlock()
}

func (p *Panel) SetText(text string) {
	p.mu.Lock()
	p.state.Text = text
	p.mu.Unlock()
}

func (p *Panel) SetStatus(status string) {
	p.mu.Lock()
	p.state.Status = status
	p.mu.Unlock()
}

// State returns a copy of the panel's current state.
func (p *Panel) State() PanelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}
