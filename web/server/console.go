package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/df07/adaptive-tracer/pkg/core"
)

// ConsoleMessage represents a console message with timestamp, tagged
// with whichever scheduling phase and quality step was active when the
// renderer logged it.
type ConsoleMessage struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // "info", "warning", "error"
	RenderID  string    `json:"renderId"`
	Phase     string    `json:"phase"`
	Q         float64   `json:"q"`
}

// WebLogger implements core.Logger by sending messages to a console
// channel. Its phase/q tag is set from outside (by the render handler's
// progress and batch callbacks) so a client watching the console stream
// can tell which part of the schedule produced each line.
type WebLogger struct {
	renderID    string
	consoleChan chan<- ConsoleMessage

	mu    sync.Mutex
	phase string
	q     float64
}

// NewWebLogger creates a new web logger for a specific render.
func NewWebLogger(renderID string, consoleChan chan<- ConsoleMessage) *WebLogger {
	return &WebLogger{
		renderID:    renderID,
		consoleChan: consoleChan,
	}
}

// SetPhase records the scheduling phase and quality step in progress;
// every ConsoleMessage sent afterward carries this tag until it changes
// again.
func (wl *WebLogger) SetPhase(phase string, q float64) {
	wl.mu.Lock()
	defer wl.mu.Unlock()
	wl.phase = phase
	wl.q = q
}

// Printf implements core.Logger.
func (wl *WebLogger) Printf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)

	// Also write to stdout for server logs
	fmt.Print(message)

	if wl.consoleChan == nil {
		return
	}

	wl.mu.Lock()
	phase, q := wl.phase, wl.q
	wl.mu.Unlock()

	// Send to web console if channel is available (non-blocking)
	select {
	case wl.consoleChan <- ConsoleMessage{
		Message:   message,
		Timestamp: time.Now(),
		Level:     "info",
		RenderID:  wl.renderID,
		Phase:     phase,
		Q:         q,
	}:
	default:
		// Channel full, skip (don't block)
	}
}

var _ core.Logger = (*WebLogger)(nil)
