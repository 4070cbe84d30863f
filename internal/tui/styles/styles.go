// Package styles holds the terminal colors and lipgloss styles of the
// guidance UI.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/stepcheck/internal/feedback"
)

var (
	// Colors - all colors meet WCAG AA contrast (4.5:1) on both black and dark surfaces
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	SurfaceColor   = lipgloss.Color("#1F2937") // Dark surface
	TextColor      = lipgloss.Color("#F9FAFB") // Light text
	BorderColor    = lipgloss.Color("#6B7280") // Gray
	BlueColor      = lipgloss.Color("#60A5FA") // Blue

	Primary = lipgloss.NewStyle().Foreground(PrimaryColor)
	Muted   = lipgloss.NewStyle().Foreground(MutedColor)
	Text    = lipgloss.NewStyle().Foreground(TextColor)

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		MarginBottom(1)

	StepName = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextColor)

	// Feedback panel; the border takes the severity color.
	FeedbackBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 2).
			MarginTop(1)

	HelpBar = lipgloss.NewStyle().
		Foreground(MutedColor).
		MarginTop(1)

	HelpKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(SecondaryColor)

	StatusBar = lipgloss.NewStyle().
			Foreground(TextColor).
			Background(SurfaceColor).
			Padding(0, 1)
)

// Step states shown in the progress strip.
const (
	StepDone    = "done"
	StepCurrent = "current"
	StepPending = "pending"
)

// StatusColor returns the color for a step state.
func StatusColor(status string) lipgloss.Color {
	switch status {
	case StepDone:
		return SecondaryColor
	case StepCurrent:
		return PrimaryColor
	default:
		return MutedColor
	}
}

// StatusIcon returns the glyph for a step state.
func StatusIcon(status string) string {
	switch status {
	case StepDone:
		return "✓"
	case StepCurrent:
		return "●"
	default:
		return "○"
	}
}

// SeverityColor returns the color feedback of the given severity is drawn in.
func SeverityColor(sev feedback.Severity) lipgloss.Color {
	switch sev {
	case feedback.SeveritySuccess:
		return SecondaryColor
	case feedback.SeverityWarning:
		return WarningColor
	case feedback.SeverityError:
		return ErrorColor
	default:
		return BlueColor
	}
}

// SeverityIcon returns the glyph prefixed to feedback messages.
func SeverityIcon(sev feedback.Severity) string {
	switch sev {
	case feedback.SeveritySuccess:
		return "✓"
	case feedback.SeverityWarning:
		return "!"
	case feedback.SeverityError:
		return "✗"
	default:
		return "i"
	}
}

// Feedback renders a message inside the feedback panel.
func Feedback(sev feedback.Severity, text string) string {
	color := SeverityColor(sev)
	body := lipgloss.NewStyle().Foreground(color).Bold(true).Render(SeverityIcon(sev) + " " + text)
	return FeedbackBox.BorderForeground(color).Render(body)
}
