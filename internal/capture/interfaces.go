package capture

import (
	"context"
	"image"

	"github.com/Iron-Ham/stepcheck/internal/alignment"
	"github.com/Iron-Ham/stepcheck/internal/assembly"
	"github.com/Iron-Ham/stepcheck/internal/feedback"
	"github.com/Iron-Ham/stepcheck/internal/geometry"
)

// Sequence is the step state the orchestrator reads and navigates.
// *assembly.Sequencer implements it.
type Sequence interface {
	Current() (assembly.Step, bool)
	Index() int
	Len() int
	IsComplete() bool
	Advance() error
	GoBack() error
	Lookup(label string) assembly.Lookup
}

// Overlay controls visibility of the virtual parts drawn over the scene.
type Overlay interface {
	SetVisible(visible bool)
}

// FrameSource yields rendered frames.
type FrameSource interface {
	// WaitFrame blocks until a new frame has been fully rendered.
	WaitFrame(ctx context.Context) error
	// Capture returns the most recent frame.
	Capture() (image.Image, error)
}

// Scene exposes the camera and viewport needed to project a step's part.
type Scene interface {
	// Camera returns the active camera, or false when none is available.
	Camera() (geometry.Camera, bool)
	// ScreenSize returns the viewport size in pixels.
	ScreenSize() (width, height int)
	// Part returns the world-space geometry for step, or false when the
	// step's part is not in the scene.
	Part(step assembly.Step) (geometry.Part, bool)
}

// Display presents feedback to the user.
type Display interface {
	Show(fb feedback.Feedback)
	Clear()
}

// Evaluator scores alignment. alignment.Evaluator implements it.
type Evaluator interface {
	Evaluate(part geometry.Part, cam geometry.Camera, detected geometry.Point2D, screenW, screenH int) alignment.Result
}

type nopOverlay struct{}

func (nopOverlay) SetVisible(bool) {}

type nopDisplay struct{}

func (nopDisplay) Show(feedback.Feedback) {}
func (nopDisplay) Clear()                 {}
