package engine

import (
	"sync"
	"time"
)

// VisibilityMonitor tracks foreground/background transitions of the host
// surface. On return to visibility it resyncs the engine through Tick, so
// there is exactly one code path for elapsed-time computation and the first
// read after a long suspension cannot race a stale periodic tick.
type VisibilityMonitor struct {
	mu       sync.Mutex
	engine   *Engine
	hidden   bool
	hiddenAt time.Time
}

// NewVisibilityMonitor attaches a monitor to an engine.
func NewVisibilityMonitor(e *Engine) *VisibilityMonitor {
	return &VisibilityMonitor{engine: e}
}

// Hidden records the surface going to the background.
func (m *VisibilityMonitor) Hidden(at time.Time) {
	m.mu.Lock()
	if !m.hidden {
		m.hidden = true
		m.hiddenAt = at
	}
	m.mu.Unlock()
}

// Visible records the surface returning to the foreground and returns the
// hidden duration in whole seconds, never negative. The engine resync runs
// before Visible returns.
func (m *VisibilityMonitor) Visible(at time.Time) int {
	m.mu.Lock()
	var hiddenSeconds int
	if m.hidden {
		hiddenSeconds = int(at.Sub(m.hiddenAt) / time.Second)
		if hiddenSeconds < 0 {
			hiddenSeconds = 0
		}
		m.hidden = false
		m.hiddenAt = time.Time{}
	}
	m.mu.Unlock()

	m.engine.Tick()
	return hiddenSeconds
}

// IsHidden reports whether the surface is currently backgrounded.
func (m *VisibilityMonitor) IsHidden() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hidden
}
