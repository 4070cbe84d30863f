package assembly

// Presenter renders the virtual part of a step. Implementations live outside
// the core (an AR engine, a terminal view, a test recorder).
type Presenter interface {
	// Ghost shows the step's part as the translucent expected placement.
	Ghost(step Step)
	// Solid shows the step's part as confirmed.
	Solid(step Step)
	// Hide removes the step's part from view.
	Hide(step Step)
}

// NopPresenter discards all presentation calls.
type NopPresenter struct{}

func (NopPresenter) Ghost(Step) {}
func (NopPresenter) Solid(Step) {}
func (NopPresenter) Hide(Step)  {}
