package scene

import (
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/stepcheck/internal/assembly"
	"github.com/Iron-Ham/stepcheck/internal/logging"
)

// Part display states.
const (
	PartGhost  = "ghost"
	PartSolid  = "solid"
	PartHidden = "hidden"
)

// PartState is one entry of the parts file.
type PartState struct {
	Index int    `yaml:"index"`
	Name  string `yaml:"name"`
	Class string `yaml:"class"`
	State string `yaml:"state"`
}

// PartStates implements assembly.Presenter by recording how each step's
// virtual part should be drawn. With a path set, the full table is rewritten
// as YAML after every change.
type PartStates struct {
	mu     sync.Mutex
	parts  map[int]PartState
	path   string
	logger *logging.Logger
}

// NewPartStates creates an empty table. path may be empty.
func NewPartStates(path string, logger *logging.Logger) *PartStates {
	return &PartStates{
		parts:  make(map[int]PartState),
		path:   path,
		logger: logging.OrNop(logger).WithComponent("parts"),
	}
}

// Ghost implements assembly.Presenter.
func (p *PartStates) Ghost(step assembly.Step) { p.set(step, PartGhost) }

// Solid implements assembly.Presenter.
func (p *PartStates) Solid(step assembly.Step) { p.set(step, PartSolid) }

// Hide implements assembly.Presenter.
func (p *PartStates) Hide(step assembly.Step) { p.set(step, PartHidden) }

// State returns the state of the step at index, or "" if it was never set.
func (p *PartStates) State(index int) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.parts[index].State
}

// Snapshot returns all entries ordered by step index.
func (p *PartStates) Snapshot() []PartState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *PartStates) snapshotLocked() []PartState {
	out := make([]PartState, 0, len(p.parts))
	for _, s := range p.parts {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func (p *PartStates) set(step assembly.Step, state string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.parts[step.Index] = PartState{Index: step.Index, Name: step.Name, Class: step.ClassLabel, State: state}
	p.writeLocked()
}

func (p *PartStates) writeLocked() {
	if p.path == "" {
		return
	}
	data, err := yaml.Marshal(struct {
		Steps []PartState `yaml:"steps"`
	}{p.snapshotLocked()})
	if err != nil {
		p.logger.Warn("failed to encode part states", "error", err)
		return
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		p.logger.Warn("failed to write part states", "path", p.path, "error", err)
		return
	}
	if err := os.Rename(tmp, p.path); err != nil {
		p.logger.Warn("failed to write part states", "path", p.path, "error", err)
	}
}
