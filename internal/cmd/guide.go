package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/Iron-Ham/stepcheck/internal/alignment"
	"github.com/Iron-Ham/stepcheck/internal/assembly"
	"github.com/Iron-Ham/stepcheck/internal/capture"
	"github.com/Iron-Ham/stepcheck/internal/classifier"
	"github.com/Iron-Ham/stepcheck/internal/config"
	"github.com/Iron-Ham/stepcheck/internal/event"
	"github.com/Iron-Ham/stepcheck/internal/logging"
	"github.com/Iron-Ham/stepcheck/internal/scene"
)

// newLogger opens the configured log. Without a log directory, entries go to
// fallback, or nowhere when fallback is nil.
func newLogger(cfg *config.Config, fallback io.Writer) (*logging.Logger, error) {
	if cfg.Logging.Dir != "" {
		if err := os.MkdirAll(cfg.Logging.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		return logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	}
	if fallback == nil {
		return logging.NopLogger(), nil
	}
	return logging.NewLoggerWriter(fallback, cfg.Logging.Level), nil
}

// guide is the assembled verification pipeline.
type guide struct {
	seq    *assembly.Sequencer
	orch   *capture.Orchestrator
	frames *scene.FrameSource // nil when frames come from a single file
	bus    *event.Bus
}

type guideOptions struct {
	frameFile string // verify this image instead of watching scene.frame_path
	display   capture.Display
	checker   classifier.Checker
}

// buildGuide wires the sequencer, scene, classifier client and orchestrator
// from configuration.
func buildGuide(cfg *config.Config, logger *logging.Logger, opts guideOptions) (*guide, error) {
	file, err := assembly.LoadFile(cfg.Assembly.StepsFile)
	if err != nil {
		return nil, err
	}

	parts := scene.NewPartStates(cfg.Scene.PartsFile, logger)
	seq, err := assembly.NewSequencer(file.ToSteps(), parts)
	if err != nil {
		return nil, err
	}

	g := &guide{seq: seq, bus: event.NewBus(logger)}

	var frames capture.FrameSource
	switch {
	case opts.frameFile != "":
		frames = scene.FileFrame{Path: opts.frameFile}
	case cfg.Scene.FramePath != "":
		fs, err := scene.NewFrameSource(cfg.Scene.FramePath, cfg.Scene.FramePattern, cfg.Scene.FrameTimeout(), logger)
		if err != nil {
			return nil, err
		}
		fs.Start()
		g.frames = fs
		frames = fs
	}

	checker := opts.checker
	if checker == nil {
		checker = classifier.NewClient(cfg.Classifier.URL,
			classifier.WithTimeout(cfg.Classifier.Timeout()),
			classifier.WithLogger(logger),
		)
	}

	orchOpts := []capture.Option{
		capture.WithOverlay(scene.NewOverlay(cfg.Scene.OverlayFile, logger)),
		capture.WithScene(scene.FromFile(file)),
		capture.WithEvaluator(alignment.NewEvaluator(cfg.Alignment.ThresholdPercent)),
		capture.WithEncoder(capture.Encoder{Quality: cfg.Capture.JPEGQuality, MaxDimension: cfg.Capture.MaxDimension}),
		capture.WithDisplayDuration(cfg.Feedback.DisplayDuration()),
		capture.WithBus(g.bus),
		capture.WithLogger(logger),
	}
	if frames != nil {
		orchOpts = append(orchOpts, capture.WithFrames(frames))
	}
	if opts.display != nil {
		orchOpts = append(orchOpts, capture.WithDisplay(opts.display))
	}
	g.orch = capture.New(seq, checker, orchOpts...)
	return g, nil
}

// Close stops background watchers.
func (g *guide) Close() {
	if g.frames != nil {
		g.frames.Stop()
	}
}
