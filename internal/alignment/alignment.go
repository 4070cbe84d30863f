// Package alignment scores how closely a detected physical part matches the
// projected position of its virtual counterpart.
package alignment

import (
	"math"

	"github.com/Iron-Ham/stepcheck/internal/classifier"
	"github.com/Iron-Ham/stepcheck/internal/geometry"
)

// DefaultThreshold is the largest percent error still considered aligned.
const DefaultThreshold = 5.0

// Result is the outcome of one alignment evaluation.
type Result struct {
	PixelError   float64
	PercentError float64
	Aligned      bool
	// Indeterminate is set when the projection cannot be judged: the part is
	// behind the camera, or the camera, part geometry or screen size is missing.
	Indeterminate bool
	Reason        string

	Projected geometry.Point2D // projected part centre in image space
	Detected  geometry.Point2D
	Threshold float64
}

// Evaluator compares projected and detected part centres.
// The zero value uses DefaultThreshold.
type Evaluator struct {
	Threshold float64
}

// NewEvaluator returns an Evaluator with the given threshold in percent.
// A non-positive threshold selects DefaultThreshold.
func NewEvaluator(threshold float64) Evaluator {
	return Evaluator{Threshold: threshold}
}

func (e Evaluator) threshold() float64 {
	if e.Threshold <= 0 {
		return DefaultThreshold
	}
	return e.Threshold
}

// ShouldEvaluate reports whether a detection carries enough information for
// alignment to be meaningful.
func ShouldEvaluate(det classifier.DetectionResult) bool {
	return det.Success && det.Found && det.Matched && det.HasCenter
}

// Evaluate projects the centre of part through cam and measures its distance to
// detected. detected is in top-origin image pixels; screen space is
// bottom-origin, so the projection is flipped before comparing.
func (e Evaluator) Evaluate(part geometry.Part, cam geometry.Camera, detected geometry.Point2D, screenW, screenH int) Result {
	res := Result{Detected: detected, Threshold: e.threshold()}

	if cam == nil {
		return indeterminate(res, "no camera")
	}
	if screenW <= 0 || screenH <= 0 {
		return indeterminate(res, "no screen size")
	}
	center, ok := part.Center()
	if !ok {
		return indeterminate(res, "part has no geometry")
	}

	screen := cam.WorldToScreen(center)
	if screen.Z <= 0 {
		return indeterminate(res, "part is behind the camera")
	}

	res.Projected = geometry.ToImageSpace(geometry.Point2D{X: screen.X, Y: screen.Y}, screenH)
	res.PixelError = res.Projected.Distance(detected)
	res.PercentError = PercentError(res.PixelError, screenW, screenH)
	res.Aligned = res.PercentError <= res.Threshold
	return res
}

// PercentError normalises a pixel distance by the larger screen dimension.
func PercentError(pixelError float64, screenW, screenH int) float64 {
	maxDim := math.Max(float64(screenW), float64(screenH))
	if maxDim <= 0 {
		return 0
	}
	return pixelError / maxDim * 100
}

func indeterminate(res Result, reason string) Result {
	res.Indeterminate = true
	res.Reason = reason
	return res
}
