// Package event provides a pub-sub event bus for decoupled communication
// between the capture pipeline, the sequencer and front ends.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Verification:
//   - [VerificationStartedEvent]: an attempt took the busy guard
//   - [VerificationCompletedEvent]: an attempt finished and the overlay is restored
//   - [VerificationRejectedEvent]: a request arrived while an attempt was in flight
//
// Sequence:
//   - [StepChangedEvent]: the current step moved forwards or back
//   - [SequenceCompletedEvent]: every step has been confirmed
//
// Classifier server:
//   - [DetectionArchivedEvent]: an annotated capture was archived
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Handlers are called synchronously
// on the publishing goroutine and protected against panics.
//
// # Basic Usage
//
//	bus := event.NewBus(logger)
//
//	bus.Subscribe(event.TypeVerificationCompleted, func(e event.Event) {
//	    done := e.(event.VerificationCompletedEvent)
//	    fmt.Println(done.Category, done.Message)
//	})
//
//	bus.SubscribeAll(func(e event.Event) {
//	    log.Printf("event: %s at %v", e.EventType(), e.Timestamp())
//	})
package event
