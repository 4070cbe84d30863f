// Package classifier talks to the external part classifier.
//
// The wire format is a JSON POST of a base64 JPEG plus the expected class,
// answered with whether the class was found, whether it matched, and where its
// centre lies in full-image pixels (top-left origin, -1 when unknown).
package classifier

import (
	"encoding/base64"
	"fmt"

	"github.com/Iron-Ham/stepcheck/internal/errors"
	"github.com/Iron-Ham/stepcheck/internal/geometry"
)

// UnknownCoordinate is the centre value sent when no centre is known.
const UnknownCoordinate = -1.0

// CheckRequest is the JSON body posted to the classifier.
type CheckRequest struct {
	Image         string `json:"image"`
	ExpectedClass string `json:"expected_class"`
	StepIndex     int    `json:"step_index"`
}

// CheckResponse is the JSON body returned by the classifier.
type CheckResponse struct {
	Success        bool    `json:"success"`
	Found          bool    `json:"found"`
	Matched        bool    `json:"matched"`
	DetectedClass  string  `json:"yolo_class"`
	ExpectedClass  string  `json:"expected_class"`
	StepIndex      int     `json:"step_index"`
	Confidence     float64 `json:"confidence"`
	AnnotatedImage string  `json:"annotated_image,omitempty"`
	Error          string  `json:"error,omitempty"`

	// A missing coordinate means the same as UnknownCoordinate.
	CenterX *float64 `json:"center_x"`
	CenterY *float64 `json:"center_y"`

	// Pose fields are produced by some classifier builds and ignored here.
	Yaw         *float64 `json:"yaw,omitempty"`
	Pitch       *float64 `json:"pitch,omitempty"`
	Roll        *float64 `json:"roll,omitempty"`
	ReprojError *float64 `json:"reproj_error,omitempty"`
}

// Request is one verification query.
type Request struct {
	Image         []byte // JPEG bytes
	ExpectedClass string
	StepIndex     int
}

// DetectionResult is the decoded classifier answer for one attempt.
type DetectionResult struct {
	Success        bool
	Found          bool
	Matched        bool
	DetectedClass  string
	ExpectedClass  string
	StepIndex      int
	Confidence     float64
	Center         geometry.Point2D
	HasCenter      bool
	AnnotatedImage []byte
	ErrorMessage   string
}

// Encode converts a request into its wire form.
func (r Request) Encode() CheckRequest {
	return CheckRequest{
		Image:         base64.StdEncoding.EncodeToString(r.Image),
		ExpectedClass: r.ExpectedClass,
		StepIndex:     r.StepIndex,
	}
}

// Decode converts a wire response into a DetectionResult. It fails with a
// parse error when the annotated image is not valid base64.
func (c CheckResponse) Decode() (DetectionResult, error) {
	res := DetectionResult{
		Success:       c.Success,
		Found:         c.Found,
		Matched:       c.Matched,
		DetectedClass: c.DetectedClass,
		ExpectedClass: c.ExpectedClass,
		StepIndex:     c.StepIndex,
		Confidence:    c.Confidence,
		ErrorMessage:  c.Error,
	}
	if knownCoordinate(c.CenterX) && knownCoordinate(c.CenterY) {
		res.Center = geometry.Point2D{X: *c.CenterX, Y: *c.CenterY}
		res.HasCenter = true
	}
	if c.AnnotatedImage != "" {
		img, err := base64.StdEncoding.DecodeString(c.AnnotatedImage)
		if err != nil {
			return DetectionResult{}, errors.NewVerificationError(errors.KindParse, "annotated image is not valid base64", err)
		}
		res.AnnotatedImage = img
	}
	return res, nil
}

// NewCheckResponse builds the wire form of a result, the inverse of Decode.
func NewCheckResponse(res DetectionResult) CheckResponse {
	c := CheckResponse{
		Success:       res.Success,
		Found:         res.Found,
		Matched:       res.Matched,
		DetectedClass: res.DetectedClass,
		ExpectedClass: res.ExpectedClass,
		StepIndex:     res.StepIndex,
		Confidence:    res.Confidence,
		Error:         res.ErrorMessage,
		CenterX:       Coordinate(UnknownCoordinate),
		CenterY:       Coordinate(UnknownCoordinate),
	}
	if res.HasCenter {
		c.CenterX, c.CenterY = Coordinate(res.Center.X), Coordinate(res.Center.Y)
	}
	if len(res.AnnotatedImage) > 0 {
		c.AnnotatedImage = base64.StdEncoding.EncodeToString(res.AnnotatedImage)
	}
	return c
}

// ErrorResponse is the body returned for a rejected request.
func ErrorResponse(format string, args ...any) CheckResponse {
	return CheckResponse{
		Error:   fmt.Sprintf(format, args...),
		CenterX: Coordinate(UnknownCoordinate),
		CenterY: Coordinate(UnknownCoordinate),
	}
}

// Coordinate returns a pointer to v for use in a CheckResponse.
func Coordinate(v float64) *float64 { return &v }

func knownCoordinate(v *float64) bool {
	return v != nil && *v != UnknownCoordinate
}
