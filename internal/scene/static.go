package scene

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Iron-Ham/stepcheck/internal/assembly"
	"github.com/Iron-Ham/stepcheck/internal/geometry"
)

// DefaultFovY is the vertical field of view used when the steps file omits it.
const DefaultFovY = 60.0

// Static is a scene with a fixed camera and viewport.
type Static struct {
	camera        geometry.Camera
	width, height int
}

// NewStatic creates a scene. cam may be nil when no camera is known.
func NewStatic(cam geometry.Camera, width, height int) *Static {
	return &Static{camera: cam, width: width, height: height}
}

// FromFile builds a scene from the camera and screen blocks of a steps file.
// Missing blocks leave the scene without a camera, which disables alignment.
func FromFile(f *assembly.File) *Static {
	if f == nil || f.Screen == nil {
		return NewStatic(nil, 0, 0)
	}
	s := NewStatic(nil, f.Screen.Width, f.Screen.Height)
	if c := f.Camera; c != nil {
		fov := c.FovY
		if fov <= 0 {
			fov = DefaultFovY
		}
		s.camera = geometry.PerspectiveCamera{
			Position: vec(c.Position),
			Target:   vec(c.Target),
			Up:       vec(c.Up),
			FovY:     fov,
			Near:     c.Near,
			Far:      c.Far,
			Width:    f.Screen.Width,
			Height:   f.Screen.Height,
		}
	}
	return s
}

// Camera returns the scene camera.
func (s *Static) Camera() (geometry.Camera, bool) {
	return s.camera, s.camera != nil
}

// ScreenSize returns the viewport size in pixels.
func (s *Static) ScreenSize() (int, int) {
	return s.width, s.height
}

// Part returns the step's part when it has geometry.
func (s *Static) Part(step assembly.Step) (geometry.Part, bool) {
	return step.Part, len(step.Part.Bounds) > 0
}

func vec(v [3]float64) r3.Vec {
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}
