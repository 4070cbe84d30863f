// Package tui is the terminal front end of the assembly guide. It shows the
// current step, runs verifications on demand, and presents their feedback.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/Iron-Ham/stepcheck/internal/assembly"
	"github.com/Iron-Ham/stepcheck/internal/errors"
	"github.com/Iron-Ham/stepcheck/internal/feedback"
	"github.com/Iron-Ham/stepcheck/internal/tui/styles"
)

// Controller runs verifications and moves through the sequence.
type Controller interface {
	Verify(ctx context.Context) (feedback.Feedback, error)
	Advance() error
	GoBack() error
}

// Progress is the read side of the step sequence.
type Progress interface {
	Current() (assembly.Step, bool)
	Index() int
	Len() int
	IsComplete() bool
	Steps() []assembly.Step
}

// Model is the Bubbletea model of the guide.
type Model struct {
	ctx      context.Context
	ctrl     Controller
	progress Progress
	spinner  spinner.Model

	verifying bool
	showing   *feedback.Feedback // feedback inside its display window
	last      *feedback.Feedback // most recent result, kept after the window
	status    string
	width     int
	quitting  bool
}

// NewModel creates a model driving ctrl and reading progress.
func NewModel(ctx context.Context, ctrl Controller, progress Progress) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Primary
	return Model{
		ctx:      ctx,
		ctrl:     ctrl,
		progress: progress,
		spinner:  sp,
		width:    80,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case verifyDoneMsg:
		m.verifying = false
		if msg.err != nil && msg.fb.Message == "" {
			m.status = describeError(msg.err)
			return m, nil
		}
		fb := msg.fb
		m.last = &fb
		m.status = ""
		if errors.IsRetryable(msg.err) {
			m.status = retryHint
		}
		return m, nil

	case feedbackShownMsg:
		fb := msg.fb
		m.showing = &fb
		return m, nil

	case feedbackClearedMsg:
		m.showing = nil
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "v", "enter", " ":
		if m.verifying {
			m.status = describeError(errors.ErrBusy)
			return m, nil
		}
		m.verifying = true
		m.status = ""
		m.last = nil
		return m, verify(m.ctx, m.ctrl)

	case "n", "right", "l":
		m.status = describeError(m.ctrl.Advance())
		if m.status == "" {
			m.last = nil
		}
		return m, nil

	case "b", "left", "h":
		m.status = describeError(m.ctrl.GoBack())
		if m.status == "" {
			m.last = nil
		}
		return m, nil
	}
	return m, nil
}

// retryHint is shown under feedback for failures that may pass on another try.
const retryHint = "The classifier could not be reached. Press v to try again."

func describeError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, errors.ErrBusy):
		return "A verification is already running."
	case errors.Is(err, errors.ErrSequenceComplete):
		return "The assembly is already complete."
	case errors.IsUserFacing(err):
		return err.Error()
	default:
		return "Unexpected error: " + err.Error()
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.Title.Render("stepcheck"))
	b.WriteString("\n")
	b.WriteString(m.renderProgress())
	b.WriteString("\n\n")
	b.WriteString(m.renderStep())
	b.WriteString("\n")

	switch {
	case m.verifying && m.showing == nil:
		b.WriteString("\n" + m.spinner.View() + " Checking the current piece...\n")
	case m.showing != nil:
		b.WriteString(styles.Feedback(m.showing.Severity, m.fit(m.showing.Message)))
		b.WriteString("\n")
	case m.last != nil:
		b.WriteString(styles.Muted.Render("\nLast result: " + m.fit(m.last.Message)))
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString("\n" + styles.StatusBar.Render(m.fit(m.status)) + "\n")
	}
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderProgress() string {
	steps := m.progress.Steps()
	index := m.progress.Index()
	parts := make([]string, 0, len(steps))
	for i := range steps {
		state := styles.StepPending
		switch {
		case i < index:
			state = styles.StepDone
		case i == index:
			state = styles.StepCurrent
		}
		parts = append(parts, lipgloss.NewStyle().Foreground(styles.StatusColor(state)).Render(styles.StatusIcon(state)))
	}
	return strings.Join(parts, " ")
}

func (m Model) renderStep() string {
	step, ok := m.progress.Current()
	if !ok {
		return styles.StepName.Render(fmt.Sprintf("Assembly complete (%d steps)", m.progress.Len()))
	}
	header := fmt.Sprintf("Step %d/%d: %s", step.Index+1, m.progress.Len(), step.Name)
	return styles.StepName.Render(m.fit(header)) + "\n" + styles.Muted.Render("Place the "+step.ClassLabel+" where the ghost shows it.")
}

func (m Model) renderHelp() string {
	keys := []struct{ key, desc string }{
		{"v", "verify"},
		{"n", "next step"},
		{"b", "previous step"},
		{"q", "quit"},
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = styles.HelpKey.Render(k.key) + " " + k.desc
	}
	return styles.HelpBar.Render(strings.Join(parts, "  "))
}

// fit truncates s to the usable terminal width.
func (m Model) fit(s string) string {
	width := m.width - 8
	if width <= 3 || lipgloss.Width(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "...")
}
