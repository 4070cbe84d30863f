package assembly

import (
	"fmt"
	"sync"

	"github.com/Iron-Ham/stepcheck/internal/errors"
)

// Sequencer is the step state machine. The cursor moves strictly by one and
// stays within [0, Len()]; Len() is the Complete state.
//
// Sequencer is safe for concurrent use.
type Sequencer struct {
	mu        sync.RWMutex
	steps     []Step
	current   int
	presenter Presenter
}

// NewSequencer creates a sequencer positioned at the first step.
// A nil presenter is replaced with NopPresenter.
func NewSequencer(steps []Step, presenter Presenter) (*Sequencer, error) {
	if len(steps) == 0 {
		return nil, errors.ErrEmptySequence
	}
	for i, s := range steps {
		if s.Index != i {
			return nil, errors.NewSequenceError(
				fmt.Sprintf("step %q has index %d at position %d", s.Name, s.Index, i),
				errors.ErrStepIndexMismatch,
			).WithStep(i)
		}
	}
	if presenter == nil {
		presenter = NopPresenter{}
	}

	owned := make([]Step, len(steps))
	copy(owned, steps)

	s := &Sequencer{steps: owned, presenter: presenter}
	for i, step := range owned {
		if i == 0 {
			presenter.Ghost(step)
		} else {
			presenter.Hide(step)
		}
	}
	return s, nil
}

// Advance confirms the current step and moves to the next one.
// Returns ErrSequenceComplete, leaving the state unchanged, when already complete.
func (s *Sequencer) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current >= len(s.steps) {
		return errors.NewSequenceError("cannot advance", errors.ErrSequenceComplete).WithStep(s.current)
	}
	s.presenter.Solid(s.steps[s.current])
	s.current++
	if s.current < len(s.steps) {
		s.presenter.Ghost(s.steps[s.current])
	}
	return nil
}

// GoBack moves to the previous step and shows it as a ghost again.
// At the first step it does nothing. From Complete it returns to the last step.
func (s *Sequencer) GoBack() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == 0 {
		return nil
	}
	if s.current < len(s.steps) {
		s.presenter.Hide(s.steps[s.current])
	}
	s.current--
	s.presenter.Ghost(s.steps[s.current])
	return nil
}

// Current returns the active step. ok is false when the sequence is complete.
func (s *Sequencer) Current() (step Step, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current >= len(s.steps) {
		return Step{}, false
	}
	return s.steps[s.current], true
}

// StepForClassLabel returns the index of the first step expecting label.
// When several steps share a label only the first is ever reported.
func (s *Sequencer) StepForClassLabel(label string) (int, bool) {
	// steps is immutable after construction
	for i, step := range s.steps {
		if step.ClassLabel == label {
			return i, true
		}
	}
	return -1, false
}

// Lookup resolves a class label to the step it belongs to.
func (s *Sequencer) Lookup(label string) Lookup {
	i, ok := s.StepForClassLabel(label)
	if !ok {
		return Lookup{Index: -1}
	}
	return Lookup{Index: i, Name: s.steps[i].Name, Found: true}
}

// Index returns the cursor position. It equals Len() when complete.
func (s *Sequencer) Index() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Len returns the number of steps.
func (s *Sequencer) Len() int { return len(s.steps) }

// IsComplete reports whether every step has been confirmed.
func (s *Sequencer) IsComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current >= len(s.steps)
}

// Steps returns a copy of the step list.
func (s *Sequencer) Steps() []Step {
	out := make([]Step, len(s.steps))
	copy(out, s.steps)
	return out
}
