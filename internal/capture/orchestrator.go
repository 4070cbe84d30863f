// Package capture runs verification attempts against the current assembly step.
package capture

import (
	"context"
	"image"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/stepcheck/internal/alignment"
	"github.com/Iron-Ham/stepcheck/internal/assembly"
	"github.com/Iron-Ham/stepcheck/internal/classifier"
	"github.com/Iron-Ham/stepcheck/internal/errors"
	"github.com/Iron-Ham/stepcheck/internal/event"
	"github.com/Iron-Ham/stepcheck/internal/feedback"
	"github.com/Iron-Ham/stepcheck/internal/logging"
)

// DefaultDisplayDuration is how long feedback stays on screen.
const DefaultDisplayDuration = 10 * time.Second

// Orchestrator coordinates verification attempts against the current step.
// At most one attempt is in flight; navigation is refused while it runs.
type Orchestrator struct {
	seq     Sequence
	checker classifier.Checker

	overlay   Overlay
	frames    FrameSource
	scene     Scene
	display   Display
	evaluator Evaluator
	encoder   Encoder

	displayDuration time.Duration
	bus             *event.Bus
	logger          *logging.Logger

	busy atomic.Bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithOverlay sets the overlay hidden during capture.
func WithOverlay(o Overlay) Option {
	return func(orch *Orchestrator) {
		if o != nil {
			orch.overlay = o
		}
	}
}

// WithFrames sets the frame source.
func WithFrames(f FrameSource) Option {
	return func(orch *Orchestrator) { orch.frames = f }
}

// WithScene sets the scene used for alignment. Without a scene only
// classification feedback is produced.
func WithScene(s Scene) Option {
	return func(orch *Orchestrator) { orch.scene = s }
}

// WithDisplay sets where feedback is shown.
func WithDisplay(d Display) Option {
	return func(orch *Orchestrator) {
		if d != nil {
			orch.display = d
		}
	}
}

// WithEvaluator replaces the alignment evaluator.
func WithEvaluator(e Evaluator) Option {
	return func(orch *Orchestrator) {
		if e != nil {
			orch.evaluator = e
		}
	}
}

// WithEncoder sets the frame encoder.
func WithEncoder(e Encoder) Option {
	return func(orch *Orchestrator) { orch.encoder = e }
}

// WithDisplayDuration sets how long feedback is shown before it is cleared.
func WithDisplayDuration(d time.Duration) Option {
	return func(orch *Orchestrator) { orch.displayDuration = d }
}

// WithBus sets the event bus attempts are reported on.
func WithBus(b *event.Bus) Option {
	return func(orch *Orchestrator) { orch.bus = b }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(orch *Orchestrator) { orch.logger = l }
}

// New creates an Orchestrator for seq that verifies frames with checker.
func New(seq Sequence, checker classifier.Checker, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		seq:             seq,
		checker:         checker,
		overlay:         nopOverlay{},
		display:         nopDisplay{},
		evaluator:       alignment.Evaluator{Threshold: alignment.DefaultThreshold},
		encoder:         Encoder{Quality: DefaultJPEGQuality},
		displayDuration: DefaultDisplayDuration,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.OrNop(o.logger).WithComponent("capture")
	return o
}

// Busy reports whether a verification attempt is in flight.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

// Verify runs one verification attempt for the current step.
//
// It returns errors.ErrBusy immediately when another attempt is in flight.
// When the classifier fails, the returned feedback carries a failure category
// and err is the classifier error. A missing step or frame source aborts the
// attempt before any network call. The overlay is restored on every path.
func (o *Orchestrator) Verify(ctx context.Context) (fb feedback.Feedback, err error) {
	if !o.busy.CompareAndSwap(false, true) {
		o.bus.Publish(event.NewVerificationRejectedEvent("verify"))
		return feedback.Feedback{}, errors.ErrBusy
	}

	attemptID := uuid.NewString()
	start := time.Now()
	step, ok := o.seq.Current()
	stepIndex := o.seq.Index()
	log := o.logger.WithAttempt(attemptID).WithStep(stepIndex)

	defer func() {
		o.busy.Store(false)

		category, errMsg := fb.Category.String(), ""
		if err != nil {
			errMsg = err.Error()
			if !fb.Category.IsFailure() {
				category = ""
			}
			if errors.GetSeverity(err) >= errors.SeverityError {
				log.Error("verification failed", "error", err, "category", category)
			} else {
				log.Warn("verification failed", "error", err, "category", category)
			}
		} else {
			log.Info("verification finished",
				"category", fb.Category.String(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}
		o.bus.Publish(event.NewVerificationCompletedEvent(
			attemptID, stepIndex, category, err == nil && fb.Category.IsSuccess(),
			fb.Message, errMsg, time.Since(start),
		))
	}()

	if !ok {
		return feedback.Feedback{}, o.missing(attemptID, stepIndex, "no current step", errors.ErrSequenceComplete)
	}
	if o.frames == nil {
		return feedback.Feedback{}, o.missing(attemptID, stepIndex, "no frame source", nil)
	}
	if o.checker == nil {
		return feedback.Feedback{}, o.missing(attemptID, stepIndex, "no classifier", nil)
	}

	o.bus.Publish(event.NewVerificationStartedEvent(attemptID, stepIndex, step.ClassLabel))
	log.Debug("verification started", "expected_class", step.ClassLabel)

	o.overlay.SetVisible(false)
	defer o.overlay.SetVisible(true)

	if err := o.frames.WaitFrame(ctx); err != nil {
		return feedback.Feedback{}, errors.Wrap(err, "wait for frame")
	}
	frame, err := o.frames.Capture()
	if err != nil {
		return feedback.Feedback{}, errors.Wrap(err, "capture frame")
	}
	payload, sent, err := o.encoder.Encode(frame)
	if err != nil {
		return feedback.Feedback{}, err
	}

	det, checkErr := o.checker.Check(ctx, classifier.Request{
		Image:         payload,
		ExpectedClass: step.ClassLabel,
		StepIndex:     step.Index,
	})
	if checkErr != nil {
		var verr *errors.VerificationError
		if errors.As(checkErr, &verr) {
			verr.WithStep(stepIndex).WithAttempt(attemptID)
		}
		fb = feedback.FromError(checkErr)
		fb.Detection = det
		o.present(ctx, fb)
		return fb, checkErr
	}

	var align *alignment.Result
	if alignment.ShouldEvaluate(det) {
		align = o.align(step, det, sent, log)
	}

	fb = feedback.Classify(det, align, o.seq)
	o.present(ctx, fb)
	return fb, nil
}

// align scores the detection against the step's projected part. sent is the
// size of the image the classifier saw; the detected centre is scaled from it
// to the viewport. It returns nil when the scene cannot provide a camera or
// the part's geometry.
func (o *Orchestrator) align(step assembly.Step, det classifier.DetectionResult, sent image.Point, log *logging.Logger) *alignment.Result {
	if o.scene == nil {
		log.Debug("skipping alignment", "reason", "no scene")
		return nil
	}
	cam, ok := o.scene.Camera()
	if !ok {
		log.Debug("skipping alignment", "reason", "no camera")
		return nil
	}
	part, ok := o.scene.Part(step)
	if !ok {
		log.Debug("skipping alignment", "reason", "part not in scene")
		return nil
	}
	w, h := o.scene.ScreenSize()

	res := o.evaluator.Evaluate(part, cam, toScreen(det.Center, sent, w, h), w, h)
	if res.Indeterminate {
		log.Debug("alignment indeterminate", "reason", res.Reason)
	} else {
		log.Debug("alignment scored",
			"pixel_error", res.PixelError,
			"percent_error", res.PercentError,
			"aligned", res.Aligned,
		)
	}
	return &res
}

// present shows fb for the display duration and clears it. Cancelling ctx
// cuts the wait short.
func (o *Orchestrator) present(ctx context.Context, fb feedback.Feedback) {
	o.display.Show(fb)
	defer o.display.Clear()

	if o.displayDuration <= 0 {
		return
	}
	timer := time.NewTimer(o.displayDuration)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (o *Orchestrator) missing(attemptID string, stepIndex int, msg string, cause error) error {
	return errors.NewVerificationError(errors.KindMissingCollaborator, msg, cause).
		WithStep(stepIndex).
		WithAttempt(attemptID).
		WithSeverity(errors.SeverityWarning)
}

// Advance confirms the current step. It is refused with errors.ErrBusy while
// a verification is in flight.
func (o *Orchestrator) Advance() error {
	return o.navigate("advance", o.seq.Advance)
}

// GoBack returns to the previous step. It is refused with errors.ErrBusy while
// a verification is in flight.
func (o *Orchestrator) GoBack() error {
	return o.navigate("back", o.seq.GoBack)
}

func (o *Orchestrator) navigate(op string, move func() error) error {
	if !o.busy.CompareAndSwap(false, true) {
		o.bus.Publish(event.NewVerificationRejectedEvent(op))
		return errors.ErrBusy
	}
	defer o.busy.Store(false)

	from := o.seq.Index()
	if err := move(); err != nil {
		return err
	}
	to := o.seq.Index()
	if from == to {
		return nil
	}

	name := ""
	if step, ok := o.seq.Current(); ok {
		name = step.Name
	}
	o.logger.Info("step changed", "from", from, "to", to, "step", name)
	o.bus.Publish(event.NewStepChangedEvent(from, to, name))
	if o.seq.IsComplete() {
		o.bus.Publish(event.NewSequenceCompletedEvent(o.seq.Len()))
	}
	return nil
}
