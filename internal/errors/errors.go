// Package errors provides centralized error definitions and error handling utilities
// for stepcheck. It defines domain-specific errors, semantic error types,
// error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// Domain-specific errors represent errors from specific subsystems:
//   - VerificationError: a failed capture-and-verify attempt, tagged with a Kind
//     (transport, parse, invalid_response, missing_collaborator)
//   - SequenceError: an invalid step sequence or navigation request
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
//	err := errors.NewVerificationError(errors.KindTransport, "classifier unreachable", cause).
//		WithStep(2).WithAttempt("a1b2")
//
//	if errors.Is(err, errors.ErrTransport) { ... }
//
//	var verr *errors.VerificationError
//	if errors.As(err, &verr) && verr.Kind == errors.KindParse { ... }
//
// # Error Classification
//
// No error in this package is fatal to the process. Classification helpers tell
// callers whether a failure is retryable, safe to show to the user, and how severe it is.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Verification-related sentinel errors
var (
	// ErrBusy indicates that a verification attempt is already in flight.
	ErrBusy = New("verification already in progress")
	// ErrTransport indicates that the classifier could not be reached or answered
	// with a non-success status.
	ErrTransport = New("classifier transport failure")
	// ErrParse indicates that the classifier response could not be decoded.
	ErrParse = New("classifier response could not be parsed")
	// ErrInvalidResponse indicates a decodable but unusable classifier response.
	ErrInvalidResponse = New("classifier response is invalid")
	// ErrMissingCollaborator indicates that a camera, scene, frame source or step
	// needed by the pipeline is unavailable.
	ErrMissingCollaborator = New("missing collaborator")
)

// Sequence-related sentinel errors
var (
	// ErrSequenceComplete indicates that the sequence has no further steps.
	ErrSequenceComplete = New("assembly sequence is complete")
	// ErrEmptySequence indicates that a sequence was created without steps.
	ErrEmptySequence = New("assembly sequence has no steps")
	// ErrStepIndexMismatch indicates a step whose index differs from its position.
	ErrStepIndexMismatch = New("step index does not match its position")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// StepcheckError is the base interface for all stepcheck errors.
type StepcheckError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Message returns the error message without its cause or context.
func (e *baseError) Message() string {
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// Kind identifies which stage of a verification attempt failed.
type Kind string

const (
	KindTransport           Kind = "transport"
	KindParse               Kind = "parse"
	KindInvalidResponse     Kind = "invalid_response"
	KindMissingCollaborator Kind = "missing_collaborator"
)

// sentinel returns the sentinel error matched by errors.Is for this kind.
func (k Kind) sentinel() error {
	switch k {
	case KindTransport:
		return ErrTransport
	case KindParse:
		return ErrParse
	case KindInvalidResponse:
		return ErrInvalidResponse
	case KindMissingCollaborator:
		return ErrMissingCollaborator
	default:
		return nil
	}
}

// VerificationError represents a failed capture-and-verify attempt.
//
// Example:
//
//	err := errors.NewVerificationError(errors.KindTransport, "post frame", cause).WithStep(1)
//	fmt.Println(err) // "verification error [kind=transport, step=1]: post frame: <cause>"
type VerificationError struct {
	baseError
	Kind      Kind
	StepIndex int
	AttemptID string
	hasStep   bool
}

// NewVerificationError creates a new VerificationError. Transport failures are
// marked retryable; the others are not.
func NewVerificationError(kind Kind, message string, cause error) *VerificationError {
	return &VerificationError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  kind == KindTransport,
			userFacing: true,
		},
		Kind: kind,
	}
}

// WithStep adds the step index to the error context.
func (e *VerificationError) WithStep(index int) *VerificationError {
	e.StepIndex = index
	e.hasStep = true
	return e
}

// WithAttempt adds the attempt ID to the error context.
func (e *VerificationError) WithAttempt(id string) *VerificationError {
	e.AttemptID = id
	return e
}

// WithSeverity sets the error severity.
func (e *VerificationError) WithSeverity(s Severity) *VerificationError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *VerificationError) Error() string {
	parts := []string{fmt.Sprintf("kind=%s", e.Kind)}
	if e.hasStep {
		parts = append(parts, fmt.Sprintf("step=%d", e.StepIndex))
	}
	if e.AttemptID != "" {
		parts = append(parts, fmt.Sprintf("attempt=%s", e.AttemptID))
	}

	prefix := fmt.Sprintf("verification error [%s]", strings.Join(parts, ", "))
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target. A VerificationError matches the
// sentinel for its Kind.
func (e *VerificationError) Is(target error) bool {
	if _, ok := target.(*VerificationError); ok {
		return true
	}
	if s := e.Kind.sentinel(); s != nil && target == s {
		return true
	}
	return e.baseError.Is(target)
}

// SequenceError represents an invalid step sequence or navigation request.
type SequenceError struct {
	baseError
	StepIndex int
}

// NewSequenceError creates a new SequenceError.
func NewSequenceError(message string, cause error) *SequenceError {
	return &SequenceError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			userFacing: true,
		},
		StepIndex: -1,
	}
}

// WithStep adds the step index to the error context.
func (e *SequenceError) WithStep(index int) *SequenceError {
	e.StepIndex = index
	return e
}

// Error returns the formatted error message.
func (e *SequenceError) Error() string {
	prefix := "sequence error"
	if e.StepIndex >= 0 {
		prefix = fmt.Sprintf("sequence error [step=%d]", e.StepIndex)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *SequenceError) Is(target error) bool {
	if _, ok := target.(*SequenceError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("step", "cover")
//	fmt.Println(err) // "step 'cover' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("class label cannot be empty").WithField("steps[2].class")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("waiting for rendered frame", 5*time.Second)
//	fmt.Println(err) // "timeout error: waiting for rendered frame (timeout: 5s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var scErr StepcheckError
	if As(err, &scErr) {
		return scErr.IsRetryable()
	}

	return Is(err, ErrTimeout) || Is(err, ErrBusy)
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var scErr StepcheckError
	if As(err, &scErr) {
		return scErr.IsUserFacing()
	}

	return Is(err, ErrBusy) || Is(err, ErrSequenceComplete)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement StepcheckError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var scErr StepcheckError
	if As(err, &scErr) {
		return scErr.Severity()
	}

	return SeverityError
}

// KindOf returns the verification Kind carried by err, or "" when err is not a
// VerificationError.
func KindOf(err error) Kind {
	var verr *VerificationError
	if As(err, &verr) {
		return verr.Kind
	}
	return ""
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
