package assembly

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/stepcheck/internal/errors"
	"github.com/Iron-Ham/stepcheck/internal/geometry"
)

const sampleSteps = `
steps:
  - name: Base bolt
    class: bolt
    bounds:
      - min: [-0.05, 0, -0.55]
        max: [0.05, 0.1, -0.45]
  - class: bracket
    bounds:
      - min: [0, 0, 0]
        max: [1, 1, 1]
      - min: [2, 2, 2]
        max: [1, 1, 1]
  - name: Cover
    class: cover
camera:
  position: [0, 0.4, 0]
  target: [0, 0, -0.5]
  fov: 60
screen:
  width: 1920
  height: 1080
`

func TestLoadSteps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "steps.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSteps), 0o644))

	steps, err := LoadSteps(path)
	require.NoError(t, err)
	require.Len(t, steps, 3)

	assert.Equal(t, 0, steps[0].Index)
	assert.Equal(t, "Base bolt", steps[0].Name)
	assert.Equal(t, "bolt", steps[0].ClassLabel)

	// name falls back to the class label
	assert.Equal(t, "bracket", steps[1].Name)
	require.Len(t, steps[1].Part.Bounds, 2)
	assert.Equal(t, geometry.NewBox(1, 1, 1, 2, 2, 2), steps[1].Part.Bounds[1])

	assert.Empty(t, steps[2].Part.Bounds)

	_, err = NewSequencer(steps, nil)
	assert.NoError(t, err)
}

func TestParseFile(t *testing.T) {
	f, err := ParseFile([]byte(sampleSteps))
	require.NoError(t, err)
	require.NotNil(t, f.Camera)
	require.NotNil(t, f.Screen)
	assert.Equal(t, 60.0, f.Camera.FovY)
	assert.Equal(t, [3]float64{0, 0, -0.5}, f.Camera.Target)
	assert.Equal(t, 1920, f.Screen.Width)

	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"no steps", "steps: []\n", errors.ErrEmptySequence},
		{"empty class", "steps:\n  - name: x\n    class: \"  \"\n", errors.ErrInvalidInput},
		{"bad screen", "steps:\n  - class: bolt\nscreen:\n  width: 0\n  height: 10\n", errors.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFile([]byte(tt.data))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err = ParseFile([]byte("steps: [unterminated"))
	assert.Error(t, err)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
