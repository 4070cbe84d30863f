// Package event defines the events published while guiding an assembly.
package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "verification.started", "step.changed")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeVerificationStarted   = "verification.started"
	TypeVerificationCompleted = "verification.completed"
	TypeVerificationRejected  = "verification.rejected"
	TypeStepChanged           = "step.changed"
	TypeSequenceCompleted     = "sequence.completed"
	TypeDetectionArchived     = "detection.archived"
)

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Verification Events
// -----------------------------------------------------------------------------

// VerificationStartedEvent is emitted once the busy guard is taken and the
// step context has been captured.
type VerificationStartedEvent struct {
	baseEvent
	AttemptID     string
	StepIndex     int
	ExpectedClass string
}

// NewVerificationStartedEvent creates a VerificationStartedEvent.
func NewVerificationStartedEvent(attemptID string, stepIndex int, expectedClass string) VerificationStartedEvent {
	return VerificationStartedEvent{
		baseEvent:     newBaseEvent(TypeVerificationStarted),
		AttemptID:     attemptID,
		StepIndex:     stepIndex,
		ExpectedClass: expectedClass,
	}
}

// VerificationCompletedEvent is emitted after every attempt, failed ones included,
// once the overlay has been restored.
type VerificationCompletedEvent struct {
	baseEvent
	AttemptID string
	StepIndex int
	Category  string // feedback category name
	Success   bool   // expected part confirmed
	Message   string
	Error     string // set when the attempt failed
	Duration  time.Duration
}

// NewVerificationCompletedEvent creates a VerificationCompletedEvent.
func NewVerificationCompletedEvent(attemptID string, stepIndex int, category string, success bool, message, errMsg string, duration time.Duration) VerificationCompletedEvent {
	return VerificationCompletedEvent{
		baseEvent: newBaseEvent(TypeVerificationCompleted),
		AttemptID: attemptID,
		StepIndex: stepIndex,
		Category:  category,
		Success:   success,
		Message:   message,
		Error:     errMsg,
		Duration:  duration,
	}
}

// VerificationRejectedEvent is emitted when a verification or navigation request
// arrives while another attempt is in flight.
type VerificationRejectedEvent struct {
	baseEvent
	Operation string // "verify", "advance" or "back"
}

// NewVerificationRejectedEvent creates a VerificationRejectedEvent.
func NewVerificationRejectedEvent(operation string) VerificationRejectedEvent {
	return VerificationRejectedEvent{
		baseEvent: newBaseEvent(TypeVerificationRejected),
		Operation: operation,
	}
}

// -----------------------------------------------------------------------------
// Sequence Events
// -----------------------------------------------------------------------------

// StepChangedEvent is emitted when the sequence cursor moves.
type StepChangedEvent struct {
	baseEvent
	From     int
	To       int
	StepName string // empty when To is the complete state
}

// NewStepChangedEvent creates a StepChangedEvent.
func NewStepChangedEvent(from, to int, stepName string) StepChangedEvent {
	return StepChangedEvent{
		baseEvent: newBaseEvent(TypeStepChanged),
		From:      from,
		To:        to,
		StepName:  stepName,
	}
}

// SequenceCompletedEvent is emitted when the last step is confirmed.
type SequenceCompletedEvent struct {
	baseEvent
	Steps int
}

// NewSequenceCompletedEvent creates a SequenceCompletedEvent.
func NewSequenceCompletedEvent(steps int) SequenceCompletedEvent {
	return SequenceCompletedEvent{
		baseEvent: newBaseEvent(TypeSequenceCompleted),
		Steps:     steps,
	}
}

// -----------------------------------------------------------------------------
// Classifier Server Events
// -----------------------------------------------------------------------------

// DetectionArchivedEvent is emitted by the check server after an annotated
// capture has been written to the archive.
type DetectionArchivedEvent struct {
	baseEvent
	RecordID      string
	ExpectedClass string
	ImagePath     string
}

// NewDetectionArchivedEvent creates a DetectionArchivedEvent.
func NewDetectionArchivedEvent(recordID, expectedClass, imagePath string) DetectionArchivedEvent {
	return DetectionArchivedEvent{
		baseEvent:     newBaseEvent(TypeDetectionArchived),
		RecordID:      recordID,
		ExpectedClass: expectedClass,
		ImagePath:     imagePath,
	}
}
