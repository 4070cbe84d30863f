// Package geometry provides the 2D and 3D types shared by the alignment
// pipeline: image-space points, world-space part bounds and camera projection.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Point2D is a point in pixel space.
type Point2D struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// Add returns the sum of two points.
func (p Point2D) Add(other Point2D) Point2D {
	return Point2D{X: p.X + other.X, Y: p.Y + other.Y}
}

// Centroid computes the average position of a set of points.
// ok is false when points is empty.
func Centroid(points []Point2D) (c Point2D, ok bool) {
	if len(points) == 0 {
		return Point2D{}, false
	}
	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	n := float64(len(points))
	return Point2D{X: sumX / n, Y: sumY / n}, true
}

// Box is an axis-aligned world-space bounding box.
type Box = r3.Box

// NewBox returns the box spanning the two corners in any order.
func NewBox(x0, y0, z0, x1, y1, z1 float64) Box {
	return Box{
		Min: r3.Vec{X: math.Min(x0, x1), Y: math.Min(y0, y1), Z: math.Min(z0, z1)},
		Max: r3.Vec{X: math.Max(x0, x1), Y: math.Max(y0, y1), Z: math.Max(z0, z1)},
	}
}

// Union returns the smallest box containing every box in boxes.
// ok is false when boxes is empty.
func Union(boxes []Box) (u Box, ok bool) {
	if len(boxes) == 0 {
		return Box{}, false
	}
	u = boxes[0]
	for _, b := range boxes[1:] {
		u.Min = r3.Vec{X: math.Min(u.Min.X, b.Min.X), Y: math.Min(u.Min.Y, b.Min.Y), Z: math.Min(u.Min.Z, b.Min.Z)}
		u.Max = r3.Vec{X: math.Max(u.Max.X, b.Max.X), Y: math.Max(u.Max.Y, b.Max.Y), Z: math.Max(u.Max.Z, b.Max.Z)}
	}
	return u, true
}

// Center returns the midpoint of b.
func Center(b Box) r3.Vec {
	return r3.Scale(0.5, r3.Add(b.Min, b.Max))
}

// Part is a read-only view of the geometry that represents one assembly step's
// virtual part: the world-space bounds of every renderer that makes it up.
type Part struct {
	Name   string
	Bounds []Box
}

// Center aggregates the part's bounds and returns their centre.
// ok is false when the part has no geometry.
func (p Part) Center() (r3.Vec, bool) {
	u, ok := Union(p.Bounds)
	if !ok {
		return r3.Vec{}, false
	}
	return Center(u), true
}

// ToImageSpace converts a bottom-origin screen point into the top-origin pixel
// convention used by the classifier.
func ToImageSpace(screen Point2D, screenHeight int) Point2D {
	return Point2D{X: screen.X, Y: float64(screenHeight) - screen.Y}
}
