package geometry

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Camera projects world-space points into screen space.
//
// WorldToScreen returns X and Y in pixels with the origin at the bottom-left of
// the screen, and Z as the depth in world units along the viewing direction.
// A non-positive Z means the point is at or behind the camera.
type Camera interface {
	WorldToScreen(world r3.Vec) r3.Vec
}

// PerspectiveCamera is a pinhole camera looking from Position towards Target.
type PerspectiveCamera struct {
	Position r3.Vec
	Target   r3.Vec
	Up       r3.Vec
	FovY     float64 // vertical field of view in degrees
	Near     float64
	Far      float64
	Width    int // viewport width in pixels
	Height   int // viewport height in pixels
}

// WorldToScreen implements Camera.
func (c PerspectiveCamera) WorldToScreen(world r3.Vec) r3.Vec {
	view := c.viewMatrix()
	proj := c.projectionMatrix()

	p := mat.NewVecDense(4, []float64{world.X, world.Y, world.Z, 1})

	var eye mat.VecDense
	eye.MulVec(view, p)
	// View space looks down -Z.
	depth := -eye.AtVec(2)

	var clip mat.VecDense
	clip.MulVec(proj, &eye)
	w := clip.AtVec(3)
	if w == 0 {
		return r3.Vec{Z: depth}
	}

	ndcX := clip.AtVec(0) / w
	ndcY := clip.AtVec(1) / w
	return r3.Vec{
		X: (ndcX + 1) / 2 * float64(c.Width),
		Y: (ndcY + 1) / 2 * float64(c.Height),
		Z: depth,
	}
}

// viewMatrix builds the right-handed look-at matrix.
func (c PerspectiveCamera) viewMatrix() *mat.Dense {
	up := c.Up
	if up == (r3.Vec{}) {
		up = r3.Vec{Y: 1}
	}
	f := r3.Unit(r3.Sub(c.Target, c.Position))
	s := r3.Unit(r3.Cross(f, up))
	u := r3.Cross(s, f)

	return mat.NewDense(4, 4, []float64{
		s.X, s.Y, s.Z, -r3.Dot(s, c.Position),
		u.X, u.Y, u.Z, -r3.Dot(u, c.Position),
		-f.X, -f.Y, -f.Z, r3.Dot(f, c.Position),
		0, 0, 0, 1,
	})
}

// projectionMatrix builds an OpenGL-style perspective projection.
func (c PerspectiveCamera) projectionMatrix() *mat.Dense {
	aspect := 1.0
	if c.Height > 0 {
		aspect = float64(c.Width) / float64(c.Height)
	}
	near, far := c.Near, c.Far
	if near <= 0 {
		near = 0.01
	}
	if far <= near {
		far = near + 1000
	}
	t := 1 / math.Tan(c.FovY*math.Pi/360)

	return mat.NewDense(4, 4, []float64{
		t / aspect, 0, 0, 0,
		0, t, 0, 0,
		0, 0, (far + near) / (near - far), 2 * far * near / (near - far),
		0, 0, -1, 0,
	})
}

// CameraFunc adapts a plain function to the Camera interface.
type CameraFunc func(world r3.Vec) r3.Vec

// WorldToScreen implements Camera.
func (f CameraFunc) WorldToScreen(world r3.Vec) r3.Vec { return f(world) }
