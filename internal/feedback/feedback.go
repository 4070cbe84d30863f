// Package feedback turns a classifier answer and an alignment score into one
// of a closed set of user-facing outcomes.
package feedback

import (
	"fmt"

	"github.com/Iron-Ham/stepcheck/internal/alignment"
	"github.com/Iron-Ham/stepcheck/internal/assembly"
	"github.com/Iron-Ham/stepcheck/internal/classifier"
	"github.com/Iron-Ham/stepcheck/internal/errors"
)

// Category is the outcome of a verification attempt.
type Category int

const (
	NotFound Category = iota
	WrongPiece
	CorrectPiece
	CorrectAligned
	CorrectMisaligned

	// Failure categories are produced by the capture pipeline, never by Classify.
	TransportFailure
	ParseFailure
	InvalidResponse
)

var categoryNames = map[Category]string{
	NotFound:          "not_found",
	WrongPiece:        "wrong_piece",
	CorrectPiece:      "correct_piece",
	CorrectAligned:    "correct_aligned",
	CorrectMisaligned: "correct_misaligned",
	TransportFailure:  "transport_failure",
	ParseFailure:      "parse_failure",
	InvalidResponse:   "invalid_response",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// IsFailure reports whether the category describes a failed attempt rather
// than a classification.
func (c Category) IsFailure() bool {
	return c >= TransportFailure
}

// IsSuccess reports whether the expected part was confirmed.
func (c Category) IsSuccess() bool {
	return c == CorrectPiece || c == CorrectAligned
}

// Severity selects how feedback is presented.
type Severity int

const (
	SeverityInfo Severity = iota
	SeveritySuccess
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeveritySuccess:
		return "success"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// StepLookup resolves which step expects a class label.
type StepLookup interface {
	Lookup(label string) assembly.Lookup
}

// Feedback is the message shown to the user after an attempt.
type Feedback struct {
	Category  Category
	Message   string
	Severity  Severity
	BelongsTo assembly.Lookup // set for WrongPiece

	Detection classifier.DetectionResult
	Alignment *alignment.Result
	Err       error // set for failure categories
}

// Classify maps a detection and optional alignment result to feedback.
// Alignment counts as available only when align is non-nil and determinate.
// lookup may be nil, in which case a wrong piece belongs to no step.
func Classify(det classifier.DetectionResult, align *alignment.Result, lookup StepLookup) Feedback {
	fb := Feedback{Detection: det, Alignment: align}

	switch {
	case !det.Found:
		fb.Category = NotFound
		fb.Severity = SeverityWarning
		fb.Message = fmt.Sprintf("No %s detected. Make sure the part is in view.", det.ExpectedClass)

	case !det.Matched:
		fb.Category = WrongPiece
		fb.Severity = SeverityError
		fb.BelongsTo = assembly.Lookup{Index: -1}
		if lookup != nil {
			fb.BelongsTo = lookup.Lookup(det.DetectedClass)
		}
		if fb.BelongsTo.Found {
			fb.Message = fmt.Sprintf("Wrong piece: found %s, which belongs to %s.", det.DetectedClass, fb.BelongsTo)
		} else {
			fb.Message = fmt.Sprintf("Wrong piece: found %s, which belongs to no step.", det.DetectedClass)
		}

	case align == nil || align.Indeterminate:
		fb.Category = CorrectPiece
		fb.Severity = SeveritySuccess
		fb.Message = fmt.Sprintf("Correct piece: %s (%.0f%% confidence).", det.DetectedClass, det.Confidence*100)

	case align.Aligned:
		fb.Category = CorrectAligned
		fb.Severity = SeveritySuccess
		fb.Message = fmt.Sprintf("Correct piece, well placed (%.1f%% off).", align.PercentError)

	default:
		fb.Category = CorrectMisaligned
		fb.Severity = SeverityWarning
		fb.Message = fmt.Sprintf("Correct piece, but move it into place (%.1f%% off, limit %.1f%%).",
			align.PercentError, align.Threshold)
	}
	return fb
}

// Failure builds feedback for an attempt that produced no usable detection.
func Failure(kind errors.Kind, err error) Feedback {
	fb := Feedback{Severity: SeverityError, Err: err}
	switch kind {
	case errors.KindParse:
		fb.Category = ParseFailure
		fb.Message = "Could not read the classifier response."
	case errors.KindInvalidResponse:
		fb.Category = InvalidResponse
		fb.Message = "The classifier returned an unusable result."
	default:
		fb.Category = TransportFailure
		fb.Message = "Could not reach the classifier."
	}
	var verr *errors.VerificationError
	if errors.As(err, &verr) && verr.Kind == kind {
		fb.Message = fmt.Sprintf("%s %s", fb.Message, describe(verr))
	}
	return fb
}

// FromError builds failure feedback from a classifier error, choosing the
// category from the error's kind.
func FromError(err error) Feedback {
	return Failure(errors.KindOf(err), err)
}

func describe(verr *errors.VerificationError) string {
	if cause := verr.Unwrap(); cause != nil {
		return fmt.Sprintf("(%s: %v)", verr.Message(), cause)
	}
	return fmt.Sprintf("(%s)", verr.Message())
}
