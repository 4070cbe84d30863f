package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/stepcheck/internal/feedback"
)

// verifyDoneMsg is sent when a verification attempt returns.
type verifyDoneMsg struct {
	fb  feedback.Feedback
	err error
}

// feedbackShownMsg is sent when the orchestrator starts presenting feedback.
type feedbackShownMsg struct {
	fb feedback.Feedback
}

// feedbackClearedMsg is sent when the presentation window ends.
type feedbackClearedMsg struct{}

// verify returns a command that runs one verification off the UI goroutine.
func verify(ctx context.Context, ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		fb, err := ctrl.Verify(ctx)
		return verifyDoneMsg{fb: fb, err: err}
	}
}

// Display forwards feedback from the orchestrator into a running program.
// Messages sent before Attach are dropped.
type Display struct {
	mu   sync.RWMutex
	send func(tea.Msg)
}

// NewDisplay creates an unattached Display.
func NewDisplay() *Display {
	return &Display{}
}

// Attach routes messages to p.
func (d *Display) Attach(p *tea.Program) {
	d.attach(p.Send)
}

func (d *Display) attach(send func(tea.Msg)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.send = send
}

// Show implements capture.Display.
func (d *Display) Show(fb feedback.Feedback) {
	d.post(feedbackShownMsg{fb: fb})
}

// Clear implements capture.Display.
func (d *Display) Clear() {
	d.post(feedbackClearedMsg{})
}

func (d *Display) post(msg tea.Msg) {
	d.mu.RLock()
	send := d.send
	d.mu.RUnlock()
	if send != nil {
		send(msg)
	}
}
