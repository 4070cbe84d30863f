package config

import (
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Value:   123,
		Message: "must be greater than zero",
	}

	expected := "test.field: must be greater than zero (got: 123)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "test.field", Value: 123, Message: "is invalid"},
		}
		expected := "test.field: is invalid (got: 123)"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "field1", Value: "bad", Message: "is invalid"},
			{Field: "field2", Value: -1, Message: "must be positive"},
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
			t.Errorf("Error() should mention both fields: %s", result)
		}
	})
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	cfg := Default()
	errs := cfg.Validate()
	if len(errs) != 0 {
		t.Errorf("Default config should be valid, got %d errors: %v", len(errs), errs)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string // empty means valid
	}{
		{"https classifier", func(c *Config) { c.Classifier.URL = "https://example.com/check_piece" }, ""},
		{"empty classifier url", func(c *Config) { c.Classifier.URL = "" }, "classifier.url"},
		{"ftp classifier url", func(c *Config) { c.Classifier.URL = "ftp://example.com" }, "classifier.url"},
		{"classifier url without host", func(c *Config) { c.Classifier.URL = "http:///check_piece" }, "classifier.url"},
		{"zero timeout", func(c *Config) { c.Classifier.TimeoutSeconds = 0 }, "classifier.timeout_seconds"},

		{"threshold at 100", func(c *Config) { c.Alignment.ThresholdPercent = 100 }, ""},
		{"zero threshold", func(c *Config) { c.Alignment.ThresholdPercent = 0 }, "alignment.threshold_percent"},
		{"threshold above 100", func(c *Config) { c.Alignment.ThresholdPercent = 101 }, "alignment.threshold_percent"},

		{"zero display", func(c *Config) { c.Feedback.DisplaySeconds = 0 }, ""},
		{"negative display", func(c *Config) { c.Feedback.DisplaySeconds = -1 }, "feedback.display_seconds"},

		{"quality 1", func(c *Config) { c.Capture.JPEGQuality = 1 }, ""},
		{"quality 0", func(c *Config) { c.Capture.JPEGQuality = 0 }, "capture.jpeg_quality"},
		{"quality 101", func(c *Config) { c.Capture.JPEGQuality = 101 }, "capture.jpeg_quality"},
		{"negative max dimension", func(c *Config) { c.Capture.MaxDimension = -5 }, "capture.max_dimension"},

		{"glob alternatives", func(c *Config) { c.Scene.FramePattern = "frame_*.{png,jpg}" }, ""},
		{"broken glob", func(c *Config) { c.Scene.FramePattern = "frame_[" }, "scene.frame_pattern"},
		{"negative frame timeout", func(c *Config) { c.Scene.FrameTimeoutSeconds = -1 }, "scene.frame_timeout_seconds"},

		{"empty inference url", func(c *Config) { c.Server.InferenceURL = "" }, ""},
		{"bad inference url", func(c *Config) { c.Server.InferenceURL = "localhost:8000" }, "server.inference_url"},
		{"match threshold above 1", func(c *Config) { c.Server.MatchThreshold = 1.5 }, "server.match_threshold"},
		{"negative crop", func(c *Config) { c.Server.CropTopRatio = -0.1 }, "server.crop_top_ratio"},
		{"crops cover image", func(c *Config) { c.Server.CropTopRatio, c.Server.CropBottomRatio = 0.5, 0.5 }, "server.crop_bottom_ratio"},
		{"zero inference timeout", func(c *Config) { c.Server.InferenceTimeoutSeconds = 0 }, "server.inference_timeout_seconds"},

		{"empty log level", func(c *Config) { c.Logging.Level = "" }, ""},
		{"debug log level", func(c *Config) { c.Logging.Level = "debug" }, ""},
		{"upper case log level", func(c *Config) { c.Logging.Level = "DEBUG" }, "logging.level"},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()

			if tt.field == "" {
				if len(errs) != 0 {
					t.Errorf("expected no errors, got %v", errs)
				}
				return
			}

			found := false
			for _, e := range errs {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error for %s, got %v", tt.field, errs)
			}
		})
	}
}
