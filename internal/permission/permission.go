// Package permission models asynchronous capability grants such as camera
// access.
package permission

import "sync"

// Capability names something the scanner must be allowed to use.
type Capability string

// Camera is the capability required to acquire frames.
const Camera Capability = "camera"

// Provider checks and requests capabilities. RequestPermission returns
// immediately; done runs exactly once with the user's answer, possibly on
// another goroutine.
type Provider interface {
	HasPermission(c Capability) bool
	RequestPermission(c Capability, done func(granted bool))
}

// Static grants or denies every capability in a fixed way. Requests are
// answered immediately with the same value.
type Static struct {
	Granted bool
}

func (s Static) HasPermission(Capability) bool {
	return s.Granted
}

func (s Static) RequestPermission(_ Capability, done func(granted bool)) {
	if done != nil {
		done(s.Granted)
	}
}

// Manual holds requests until Resolve answers them. It backs interactive
// front ends that ask a remote user for access.
type Manual struct {
	mu      sync.Mutex
	granted map[Capability]bool
	pending map[Capability][]func(bool)
}

// NewManual returns a Manual provider with no grants.
func NewManual() *Manual {
	return &Manual{
		granted: make(map[Capability]bool),
		pending: make(map[Capability][]func(bool)),
	}
}

func (m *Manual) HasPermission(c Capability) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.granted[c]
}

// RequestPermission queues done until Resolve is called for c. If c is
// already granted, done runs immediately.
func (m *Manual) RequestPermission(c Capability, done func(granted bool)) {
	if done == nil {
		return
	}
	m.mu.Lock()
	if m.granted[c] {
		m.mu.Unlock()
		done(true)
		return
	}
	m.pending[c] = append(m.pending[c], done)
	m.mu.Unlock()
}

// Pending returns the number of unanswered requests for c.
func (m *Manual) Pending(c Capability) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending[c])
}

// Resolve records the answer for c and delivers it to every pending request.
// Callbacks run after the provider's lock is released.
func (m *Manual) Resolve(c Capability, granted bool) {
	m.mu.Lock()
	m.granted[c] = granted
	waiting := m.pending[c]
	delete(m.pending, c)
	m.mu.Unlock()

	for _, done := range waiting {
		done(granted)
	}
}
