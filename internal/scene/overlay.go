package scene

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Iron-Ham/stepcheck/internal/logging"
)

// Overlay tracks whether virtual parts should be drawn. When a state file is
// configured, every change is written to it as "visible" or "hidden" so an
// external renderer can follow along.
type Overlay struct {
	mu       sync.Mutex
	visible  bool
	path     string
	onChange func(visible bool)
	logger   *logging.Logger
}

// NewOverlay creates a visible overlay. path may be empty.
func NewOverlay(path string, logger *logging.Logger) *Overlay {
	o := &Overlay{
		visible: true,
		path:    path,
		logger:  logging.OrNop(logger).WithComponent("overlay"),
	}
	o.write(true)
	return o
}

// OnChange registers a callback invoked after each visibility change.
func (o *Overlay) OnChange(cb func(visible bool)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onChange = cb
}

// SetVisible shows or hides the overlay.
func (o *Overlay) SetVisible(visible bool) {
	o.mu.Lock()
	changed := o.visible != visible
	o.visible = visible
	cb := o.onChange
	o.mu.Unlock()

	if !changed {
		return
	}
	o.write(visible)
	if cb != nil {
		cb(visible)
	}
}

// Visible reports the current state.
func (o *Overlay) Visible() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.visible
}

// write replaces the state file atomically.
func (o *Overlay) write(visible bool) {
	if o.path == "" {
		return
	}
	state := "hidden"
	if visible {
		state = "visible"
	}
	tmp := o.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(state+"\n"), 0o644); err != nil {
		o.logger.Warn("failed to write overlay state", "path", o.path, "error", err)
		return
	}
	if err := os.Rename(tmp, o.path); err != nil {
		o.logger.Warn("failed to write overlay state", "path", o.path, "error", err)
	}
}

// ReadOverlayState reads a state file written by an Overlay.
func ReadOverlayState(path string) (bool, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return false, err
	}
	switch string(data) {
	case "visible\n":
		return true, nil
	case "hidden\n":
		return false, nil
	default:
		return false, fmt.Errorf("unrecognised overlay state %q", data)
	}
}
