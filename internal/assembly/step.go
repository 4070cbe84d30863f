package assembly

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/stepcheck/internal/errors"
	"github.com/Iron-Ham/stepcheck/internal/geometry"
)

// Step is one entry of the assembly sequence.
type Step struct {
	Index      int
	Name       string
	ClassLabel string // token matched against the classifier's class output
	Part       geometry.Part
}

// Lookup is the result of a reverse class-label lookup.
type Lookup struct {
	Index int
	Name  string
	Found bool
}

// String renders the lookup for feedback text.
func (l Lookup) String() string {
	if !l.Found {
		return "no step"
	}
	return fmt.Sprintf("step %d (%s)", l.Index+1, l.Name)
}

// File is the on-disk steps file.
type File struct {
	Steps  []StepSpec  `yaml:"steps"`
	Camera *CameraSpec `yaml:"camera,omitempty"`
	Screen *ScreenSpec `yaml:"screen,omitempty"`
}

// StepSpec is the YAML form of a Step.
type StepSpec struct {
	Name   string    `yaml:"name"`
	Class  string    `yaml:"class"`
	Bounds []BoxSpec `yaml:"bounds,omitempty"`
}

// BoxSpec is an axis-aligned box given by two corners.
type BoxSpec struct {
	Min [3]float64 `yaml:"min"`
	Max [3]float64 `yaml:"max"`
}

// CameraSpec describes a fixed perspective camera.
type CameraSpec struct {
	Position [3]float64 `yaml:"position"`
	Target   [3]float64 `yaml:"target"`
	Up       [3]float64 `yaml:"up,omitempty"`
	FovY     float64    `yaml:"fov"`
	Near     float64    `yaml:"near,omitempty"`
	Far      float64    `yaml:"far,omitempty"`
}

// ScreenSpec is the viewport size in pixels.
type ScreenSpec struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// LoadFile reads and validates a steps file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read steps file: %w", err)
	}
	return ParseFile(data)
}

// ParseFile decodes a steps file from YAML.
func ParseFile(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse steps file: %w", err)
	}
	if len(f.Steps) == 0 {
		return nil, errors.ErrEmptySequence
	}
	for i, s := range f.Steps {
		if strings.TrimSpace(s.Class) == "" {
			return nil, errors.NewValidationError("class label cannot be empty").
				WithField(fmt.Sprintf("steps[%d].class", i)).
				WithValue(s.Class)
		}
	}
	if f.Screen != nil && (f.Screen.Width <= 0 || f.Screen.Height <= 0) {
		return nil, errors.NewValidationError("screen size must be positive").
			WithField("screen").
			WithValue(fmt.Sprintf("%dx%d", f.Screen.Width, f.Screen.Height))
	}
	return &f, nil
}

// ToSteps converts the file entries into indexed steps.
func (f *File) ToSteps() []Step {
	steps := make([]Step, len(f.Steps))
	for i, s := range f.Steps {
		name := s.Name
		if name == "" {
			name = s.Class
		}
		bounds := make([]geometry.Box, len(s.Bounds))
		for j, b := range s.Bounds {
			bounds[j] = geometry.NewBox(b.Min[0], b.Min[1], b.Min[2], b.Max[0], b.Max[1], b.Max[2])
		}
		steps[i] = Step{
			Index:      i,
			Name:       name,
			ClassLabel: s.Class,
			Part:       geometry.Part{Name: name, Bounds: bounds},
		}
	}
	return steps
}

// LoadSteps reads a steps file and returns its steps.
func LoadSteps(path string) ([]Step, error) {
	f, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return f.ToSteps(), nil
}
