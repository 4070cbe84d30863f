package cmd

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/stepcheck/internal/classifier"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

const testSteps = `steps:
  - name: Base
    class: base
    bounds:
      - min: [-0.5, -0.5, -10.5]
        max: [0.5, 0.5, -9.5]
  - name: Bracket
    class: bracket
    bounds:
      - min: [-0.5, -0.5, -10.5]
        max: [0.5, 0.5, -9.5]
camera:
  position: [0, 0, 0]
  target: [0, 0, -1]
  up: [0, 1, 0]
  fov: 60
  near: 0.1
  far: 100
screen:
  width: 1920
  height: 1080
`

// setupWorkspace writes a steps file, a frame and a config file pointing at
// classifierURL. It returns the config and frame paths.
func setupWorkspace(t *testing.T, classifierURL string) (cfgPath, framePath string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	stepsPath := filepath.Join(dir, "steps.yaml")
	require.NoError(t, os.WriteFile(stepsPath, []byte(testSteps), 0644))

	framePath = filepath.Join(dir, "frame.png")
	f, err := os.Create(framePath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 64, 48))))
	require.NoError(t, f.Close())

	cfgPath = filepath.Join(dir, "config.yaml")
	cfg := "classifier:\n  url: " + classifierURL +
		"\nassembly:\n  steps_file: " + stepsPath +
		"\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))
	return cfgPath, framePath
}

func fakeClassifier(t *testing.T, resp classifier.CheckResponse) (*httptest.Server, *classifier.CheckRequest) {
	t.Helper()
	var got classifier.CheckRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func resetVerifyFlags() {
	verifyFrame, verifyStep, verifyJSON, verifyAnnotated = "", 1, false, ""
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "stepcheck" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "stepcheck")
	}

	expectedCmds := []string{"run", "verify", "serve", "config", "archive", "steps"}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}
	for _, expected := range expectedCmds {
		if !cmdMap[expected] {
			t.Errorf("expected subcommand %q not found", expected)
		}
	}
}

func TestVerifyCommand_JSON(t *testing.T) {
	t.Cleanup(resetVerifyFlags)
	srv, got := fakeClassifier(t, classifier.CheckResponse{
		Success:       true,
		Found:         true,
		Matched:       true,
		DetectedClass: "bracket",
		ExpectedClass: "bracket",
		StepIndex:     1,
		Confidence:    0.9,
		CenterX:       classifier.Coordinate(32),
		CenterY:       classifier.Coordinate(24),
	})
	cfgPath, framePath := setupWorkspace(t, srv.URL+"/check_piece")

	out, err := executeCommand(rootCmd, "--config", cfgPath, "verify", "--frame", framePath, "--step", "2", "--json")
	require.NoError(t, err, out)

	assert.Equal(t, "bracket", got.ExpectedClass)
	assert.Equal(t, 1, got.StepIndex)
	assert.NotEmpty(t, got.Image)

	start := strings.Index(out, "{\n  \"step\"")
	require.GreaterOrEqual(t, start, 0, out)
	var res verifyResult
	require.NoError(t, json.Unmarshal([]byte(out[start:]), &res), out)
	assert.Equal(t, 2, res.Step)
	assert.Equal(t, "Bracket", res.StepName)
	assert.Equal(t, "correct_aligned", res.Category)
	assert.Equal(t, "success", res.Severity)
	require.NotNil(t, res.PercentError)
	assert.InDelta(t, 0, *res.PercentError, 1e-6)
}

func TestVerifyCommand_Text(t *testing.T) {
	t.Cleanup(resetVerifyFlags)
	srv, _ := fakeClassifier(t, classifier.CheckResponse{
		Success:       true,
		Found:         true,
		Matched:       false,
		DetectedClass: "bracket",
		ExpectedClass: "base",
		CenterX:       classifier.Coordinate(-1),
		CenterY:       classifier.Coordinate(-1),
	})
	cfgPath, framePath := setupWorkspace(t, srv.URL)

	out, err := executeCommand(rootCmd, "--config", cfgPath, "verify", "--frame", framePath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Step 1: Base")
	assert.Contains(t, out, "[wrong_piece] Wrong piece: found bracket, which belongs to step 2 (Bracket).")
}

func TestVerifyCommand_ClassifierFailure(t *testing.T) {
	t.Cleanup(resetVerifyFlags)
	srv, _ := fakeClassifier(t, classifier.CheckResponse{Success: false, Error: "model offline"})
	cfgPath, framePath := setupWorkspace(t, srv.URL)

	out, err := executeCommand(rootCmd, "--config", cfgPath, "verify", "--frame", framePath, "--json")
	require.Error(t, err)
	assert.Contains(t, out, `"category": "transport_failure"`)
	assert.Contains(t, out, "model offline")
}

func TestVerifyCommand_StepOutOfRange(t *testing.T) {
	t.Cleanup(resetVerifyFlags)
	cfgPath, framePath := setupWorkspace(t, "http://127.0.0.1:1/check_piece")

	_, err := executeCommand(rootCmd, "--config", cfgPath, "verify", "--frame", framePath, "--step", "7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 7 out of range (1-2)")
}

func TestStepsCommand(t *testing.T) {
	cfgPath, _ := setupWorkspace(t, "http://localhost/check_piece")

	out, err := executeCommand(rootCmd, "--config", cfgPath, "steps")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Bracket")
	assert.Contains(t, out, "Screen 1920x1080, alignment checks enabled.")
}

func TestConfigPathCommand(t *testing.T) {
	cfgPath, _ := setupWorkspace(t, "http://localhost/check_piece")

	out, err := executeCommand(rootCmd, "--config", cfgPath, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, "Active config: "+cfgPath)
	assert.Contains(t, out, "STEPCHECK_")
}

func TestConfigSetCommand_Validation(t *testing.T) {
	cfgPath, _ := setupWorkspace(t, "http://localhost/check_piece")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown key", []string{"nope.key", "1"}, "unknown configuration key"},
		{"bad int", []string{"feedback.display_seconds", "soon"}, "expected integer"},
		{"fails validation", []string{"capture.jpeg_quality", "500"}, "capture.jpeg_quality"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(rootCmd, append([]string{"--config", cfgPath, "config", "set"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestArchiveListCommand_Empty(t *testing.T) {
	cfgPath, _ := setupWorkspace(t, "http://localhost/check_piece")
	dir := t.TempDir()

	out, err := executeCommand(rootCmd, "--config", cfgPath, "archive", "list", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No archived detections.")
}
