package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Iron-Ham/stepcheck/internal/assembly"
	"github.com/Iron-Ham/stepcheck/internal/config"
	"github.com/Iron-Ham/stepcheck/internal/feedback"
	"github.com/Iron-Ham/stepcheck/internal/tui/styles"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify one step and print the feedback",
	Long: `Verify one step without the interactive guide.

By default the next frame written to scene.frame_path is checked against the
first step. Use --frame to check a saved screenshot instead.

Examples:
  # Check a screenshot against step 3
  stepcheck verify --frame shot.png --step 3

  # Machine-readable output
  stepcheck verify --frame shot.png --json`,
	RunE: runVerify,
}

var (
	verifyFrame     string
	verifyStep      int
	verifyJSON      bool
	verifyAnnotated string
)

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVarP(&verifyFrame, "frame", "f", "", "Image file to verify instead of waiting for a rendered frame")
	verifyCmd.Flags().IntVarP(&verifyStep, "step", "s", 1, "Step number to verify (1-based)")
	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "Print the result as JSON")
	verifyCmd.Flags().StringVar(&verifyAnnotated, "save-annotated", "", "Write the classifier's annotated image to this file")
}

// verifyResult is the --json output.
type verifyResult struct {
	Step          int      `json:"step"`
	StepName      string   `json:"step_name"`
	Category      string   `json:"category"`
	Severity      string   `json:"severity"`
	Message       string   `json:"message"`
	DetectedClass string   `json:"detected_class,omitempty"`
	Confidence    float64  `json:"confidence"`
	PercentError  *float64 `json:"percent_error,omitempty"`
	Error         string   `json:"error,omitempty"`
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// One-shot runs print the feedback instead of holding it on screen.
	cfg.Feedback.DisplaySeconds = 0

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	g, err := buildGuide(cfg, logger, guideOptions{frameFile: verifyFrame})
	if err != nil {
		return err
	}
	defer g.Close()

	if err := seekStep(g.seq, verifyStep); err != nil {
		return err
	}
	step, _ := g.seq.Current()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	fb, verr := g.orch.Verify(ctx)
	if fb.Message == "" && verr != nil {
		return verr
	}

	if verifyAnnotated != "" && len(fb.Detection.AnnotatedImage) > 0 {
		if err := os.WriteFile(verifyAnnotated, fb.Detection.AnnotatedImage, 0644); err != nil {
			return fmt.Errorf("failed to write annotated image: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if verifyJSON {
		if err := writeVerifyJSON(out, step, fb, verr); err != nil {
			return err
		}
		return verr
	}
	writeVerifyText(out, step, fb)
	return verr
}

// seekStep advances a fresh sequencer to the 1-based step number.
func seekStep(seq *assembly.Sequencer, number int) error {
	if number < 1 || number > seq.Len() {
		return fmt.Errorf("step %d out of range (1-%d)", number, seq.Len())
	}
	for seq.Index() < number-1 {
		if err := seq.Advance(); err != nil {
			return err
		}
	}
	return nil
}

func writeVerifyJSON(w io.Writer, step assembly.Step, fb feedback.Feedback, verr error) error {
	res := verifyResult{
		Step:          step.Index + 1,
		StepName:      step.Name,
		Category:      fb.Category.String(),
		Severity:      fb.Severity.String(),
		Message:       fb.Message,
		DetectedClass: fb.Detection.DetectedClass,
		Confidence:    fb.Detection.Confidence,
	}
	if fb.Alignment != nil && !fb.Alignment.Indeterminate {
		pct := fb.Alignment.PercentError
		res.PercentError = &pct
	}
	if verr != nil {
		res.Error = verr.Error()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func writeVerifyText(w io.Writer, step assembly.Step, fb feedback.Feedback) {
	header := fmt.Sprintf("Step %d: %s", step.Index+1, step.Name)

	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprintf(w, "%s\n[%s] %s\n", header, fb.Category, fb.Message)
		return
	}

	box := styles.Feedback(fb.Severity, fb.Message)
	if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 && lipgloss.Width(box) > width {
		box = styles.Feedback(fb.Severity, ansi.Truncate(fb.Message, max(4, width-8), "..."))
	}
	_, _ = fmt.Fprintln(w, styles.StepName.Render(header))
	_, _ = fmt.Fprintln(w, box)
}
