package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/stepcheck/internal/config"
	"github.com/Iron-Ham/stepcheck/internal/event"
	"github.com/Iron-Ham/stepcheck/internal/tui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the interactive assembly guide",
	Long: `Start the interactive assembly guide.

The guide shows the current step and verifies it on request:
  v  capture the rendered view and check the current part
  n  confirm the step and move to the next one
  b  go back one step
  q  quit

Frames are read from scene.frame_path, where the renderer writes them.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so logs only go to a configured directory.
	logger, err := newLogger(cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	display := tui.NewDisplay()
	g, err := buildGuide(cfg, logger, guideOptions{display: display})
	if err != nil {
		return err
	}
	defer g.Close()

	g.bus.Subscribe(event.TypeSequenceCompleted, func(e event.Event) {
		if done, ok := e.(event.SequenceCompletedEvent); ok {
			logger.Info("assembly complete", "steps", done.Steps)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	return tui.New(ctx, g.orch, g.seq, display).Run(ctx)
}
