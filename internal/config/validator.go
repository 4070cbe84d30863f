package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "alignment.threshold_percent")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateClassifier()...)
	errors = append(errors, c.validateAlignment()...)
	errors = append(errors, c.validateFeedback()...)
	errors = append(errors, c.validateCapture()...)
	errors = append(errors, c.validateScene()...)
	errors = append(errors, c.validateServer()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateClassifier validates the ClassifierConfig
func (c *Config) validateClassifier() []ValidationError {
	var errors []ValidationError

	if err := validateHTTPURL(c.Classifier.URL); err != "" {
		errors = append(errors, ValidationError{
			Field:   "classifier.url",
			Value:   c.Classifier.URL,
			Message: err,
		})
	}

	if c.Classifier.TimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "classifier.timeout_seconds",
			Value:   c.Classifier.TimeoutSeconds,
			Message: "must be positive",
		})
	}

	return errors
}

// validateAlignment validates the AlignmentConfig
func (c *Config) validateAlignment() []ValidationError {
	var errors []ValidationError

	if c.Alignment.ThresholdPercent <= 0 || c.Alignment.ThresholdPercent > 100 {
		errors = append(errors, ValidationError{
			Field:   "alignment.threshold_percent",
			Value:   c.Alignment.ThresholdPercent,
			Message: "must be greater than 0 and at most 100",
		})
	}

	return errors
}

// validateFeedback validates the FeedbackConfig
func (c *Config) validateFeedback() []ValidationError {
	var errors []ValidationError

	if c.Feedback.DisplaySeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "feedback.display_seconds",
			Value:   c.Feedback.DisplaySeconds,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateCapture validates the CaptureConfig
func (c *Config) validateCapture() []ValidationError {
	var errors []ValidationError

	if c.Capture.JPEGQuality < 1 || c.Capture.JPEGQuality > 100 {
		errors = append(errors, ValidationError{
			Field:   "capture.jpeg_quality",
			Value:   c.Capture.JPEGQuality,
			Message: "must be between 1 and 100",
		})
	}

	if c.Capture.MaxDimension < 0 {
		errors = append(errors, ValidationError{
			Field:   "capture.max_dimension",
			Value:   c.Capture.MaxDimension,
			Message: "must be non-negative (0 disables scaling)",
		})
	}

	return errors
}

// validateScene validates the SceneConfig
func (c *Config) validateScene() []ValidationError {
	var errors []ValidationError

	if c.Scene.FramePattern != "" {
		if _, err := glob.Compile(c.Scene.FramePattern); err != nil {
			errors = append(errors, ValidationError{
				Field:   "scene.frame_pattern",
				Value:   c.Scene.FramePattern,
				Message: fmt.Sprintf("invalid glob pattern: %v", err),
			})
		}
	}

	if c.Scene.FrameTimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "scene.frame_timeout_seconds",
			Value:   c.Scene.FrameTimeoutSeconds,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateServer validates the ServerConfig
func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if c.Server.InferenceURL != "" {
		if err := validateHTTPURL(c.Server.InferenceURL); err != "" {
			errors = append(errors, ValidationError{
				Field:   "server.inference_url",
				Value:   c.Server.InferenceURL,
				Message: err,
			})
		}
	}

	if c.Server.MatchThreshold < 0 || c.Server.MatchThreshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "server.match_threshold",
			Value:   c.Server.MatchThreshold,
			Message: "must be between 0 and 1",
		})
	}

	ratios := []struct {
		field string
		value float64
	}{
		{"server.crop_top_ratio", c.Server.CropTopRatio},
		{"server.crop_bottom_ratio", c.Server.CropBottomRatio},
	}
	for _, r := range ratios {
		if r.value < 0 || r.value >= 1 {
			errors = append(errors, ValidationError{
				Field:   r.field,
				Value:   r.value,
				Message: "must be in [0, 1)",
			})
		}
	}

	// Together the crops must leave some of the image
	if c.Server.CropTopRatio+c.Server.CropBottomRatio >= 1 {
		errors = append(errors, ValidationError{
			Field:   "server.crop_bottom_ratio",
			Value:   c.Server.CropBottomRatio,
			Message: fmt.Sprintf("crop ratios sum to %.2f, leaving no play area", c.Server.CropTopRatio+c.Server.CropBottomRatio),
		})
	}

	if c.Server.InferenceTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "server.inference_timeout_seconds",
			Value:   c.Server.InferenceTimeoutSeconds,
			Message: "must be positive",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}

// validateHTTPURL returns a message describing why raw is not an http(s) URL,
// or "" when it is.
func validateHTTPURL(raw string) string {
	if raw == "" {
		return "must not be empty"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "scheme must be http or https"
	}
	if u.Host == "" {
		return "must include a host"
	}
	return ""
}
