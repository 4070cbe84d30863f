package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// App wraps the Bubbletea program.
type App struct {
	model   Model
	display *Display
}

// New creates the guide UI. The display must be the one handed to the
// orchestrator so its feedback reaches the screen.
func New(ctx context.Context, ctrl Controller, progress Progress, display *Display) *App {
	return &App{
		model:   NewModel(ctx, ctrl, progress),
		display: display,
	}
}

// Run starts the UI and blocks until the user quits or ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	program := tea.NewProgram(
		a.model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if a.display != nil {
		a.display.Attach(program)
		defer a.display.attach(nil)
	}

	_, err := program.Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
