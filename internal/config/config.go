package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete stepcheck configuration
type Config struct {
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Alignment  AlignmentConfig  `mapstructure:"alignment"`
	Feedback   FeedbackConfig   `mapstructure:"feedback"`
	Capture    CaptureConfig    `mapstructure:"capture"`
	Assembly   AssemblyConfig   `mapstructure:"assembly"`
	Scene      SceneConfig      `mapstructure:"scene"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ClassifierConfig controls how frames are submitted for verification
type ClassifierConfig struct {
	// URL is the /check_piece endpoint of the classifier
	URL string `mapstructure:"url"`
	// TimeoutSeconds bounds a single classifier round trip
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// AlignmentConfig controls alignment scoring
type AlignmentConfig struct {
	// ThresholdPercent is the largest center offset, as a percentage of the
	// longest screen side, still counted as aligned (default: 5)
	ThresholdPercent float64 `mapstructure:"threshold_percent"`
}

// FeedbackConfig controls how results are presented
type FeedbackConfig struct {
	// DisplaySeconds is how long feedback stays on screen (default: 10)
	DisplaySeconds int `mapstructure:"display_seconds"`
}

// CaptureConfig controls frame encoding
type CaptureConfig struct {
	// JPEGQuality is the encoder quality, 1-100 (default: 90)
	JPEGQuality int `mapstructure:"jpeg_quality"`
	// MaxDimension caps the longest side of the uploaded frame (0 = no scaling)
	MaxDimension int `mapstructure:"max_dimension"`
}

// AssemblyConfig locates the assembly definition
type AssemblyConfig struct {
	// StepsFile is the YAML file listing the assembly steps
	StepsFile string `mapstructure:"steps_file"`
}

// SceneConfig controls where rendered frames are read from
type SceneConfig struct {
	// FramePath is the directory the renderer writes frames into
	FramePath string `mapstructure:"frame_path"`
	// FramePattern selects frame files inside FramePath (glob, default: "*.{png,jpg,jpeg}")
	FramePattern string `mapstructure:"frame_pattern"`
	// FrameTimeoutSeconds bounds the wait for a fresh frame (default: 5)
	FrameTimeoutSeconds int `mapstructure:"frame_timeout_seconds"`
	// OverlayFile receives the overlay visibility for the renderer (empty = disabled)
	OverlayFile string `mapstructure:"overlay_file"`
	// PartsFile receives the ghost/solid/hidden state of every step (empty = disabled)
	PartsFile string `mapstructure:"parts_file"`
}

// ServerConfig controls the built-in /check_piece server
type ServerConfig struct {
	// Addr is the listen address (default: ":5000")
	Addr string `mapstructure:"addr"`
	// InferenceURL is the object-detection service the server delegates to
	InferenceURL string `mapstructure:"inference_url"`
	// InferenceTimeoutSeconds bounds a single detection request (default: 30)
	InferenceTimeoutSeconds int `mapstructure:"inference_timeout_seconds"`
	// MatchThreshold is the minimum confidence for a detection to count as matched (default: 0.45)
	MatchThreshold float64 `mapstructure:"match_threshold"`
	// CropTopRatio is the fraction of the image height removed from the top before detection
	CropTopRatio float64 `mapstructure:"crop_top_ratio"`
	// CropBottomRatio is the fraction of the image height removed from the bottom
	CropBottomRatio float64 `mapstructure:"crop_bottom_ratio"`
	// ArchiveDir stores annotated detections and their index (empty = disabled)
	ArchiveDir string `mapstructure:"archive_dir"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is the directory for stepcheck.log (empty = stderr)
	Dir string `mapstructure:"dir"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Classifier: ClassifierConfig{
			URL:            "http://localhost:5000/check_piece",
			TimeoutSeconds: 30,
		},
		Alignment: AlignmentConfig{
			ThresholdPercent: 5,
		},
		Feedback: FeedbackConfig{
			DisplaySeconds: 10,
		},
		Capture: CaptureConfig{
			JPEGQuality:  90,
			MaxDimension: 0,
		},
		Assembly: AssemblyConfig{
			StepsFile: "steps.yaml",
		},
		Scene: SceneConfig{
			FramePath:           "",
			FramePattern:        "*.{png,jpg,jpeg}",
			FrameTimeoutSeconds: 5,
			OverlayFile:         "",
			PartsFile:           "",
		},
		Server: ServerConfig{
			Addr:                    ":5000",
			InferenceURL:            "http://localhost:8000/predict",
			InferenceTimeoutSeconds: 30,
			MatchThreshold:          0.45,
			CropTopRatio:            0.18,
			CropBottomRatio:         0.15,
			ArchiveDir:              "", // Empty disables the archive
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "",
		},
	}
}

// Timeout returns the classifier timeout as a time.Duration
func (c *ClassifierConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DisplayDuration returns how long feedback is shown as a time.Duration
func (c *FeedbackConfig) DisplayDuration() time.Duration {
	return time.Duration(c.DisplaySeconds) * time.Second
}

// FrameTimeout returns the frame wait bound as a time.Duration
func (c *SceneConfig) FrameTimeout() time.Duration {
	return time.Duration(c.FrameTimeoutSeconds) * time.Second
}

// InferenceTimeout returns the detection request bound as a time.Duration
func (c *ServerConfig) InferenceTimeout() time.Duration {
	return time.Duration(c.InferenceTimeoutSeconds) * time.Second
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Classifier defaults
	viper.SetDefault("classifier.url", defaults.Classifier.URL)
	viper.SetDefault("classifier.timeout_seconds", defaults.Classifier.TimeoutSeconds)

	// Alignment and feedback defaults
	viper.SetDefault("alignment.threshold_percent", defaults.Alignment.ThresholdPercent)
	viper.SetDefault("feedback.display_seconds", defaults.Feedback.DisplaySeconds)

	// Capture defaults
	viper.SetDefault("capture.jpeg_quality", defaults.Capture.JPEGQuality)
	viper.SetDefault("capture.max_dimension", defaults.Capture.MaxDimension)

	// Assembly and scene defaults
	viper.SetDefault("assembly.steps_file", defaults.Assembly.StepsFile)
	viper.SetDefault("scene.frame_path", defaults.Scene.FramePath)
	viper.SetDefault("scene.frame_pattern", defaults.Scene.FramePattern)
	viper.SetDefault("scene.frame_timeout_seconds", defaults.Scene.FrameTimeoutSeconds)
	viper.SetDefault("scene.overlay_file", defaults.Scene.OverlayFile)
	viper.SetDefault("scene.parts_file", defaults.Scene.PartsFile)

	// Server defaults
	viper.SetDefault("server.addr", defaults.Server.Addr)
	viper.SetDefault("server.inference_url", defaults.Server.InferenceURL)
	viper.SetDefault("server.inference_timeout_seconds", defaults.Server.InferenceTimeoutSeconds)
	viper.SetDefault("server.match_threshold", defaults.Server.MatchThreshold)
	viper.SetDefault("server.crop_top_ratio", defaults.Server.CropTopRatio)
	viper.SetDefault("server.crop_bottom_ratio", defaults.Server.CropBottomRatio)
	viper.SetDefault("server.archive_dir", defaults.Server.ArchiveDir)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "stepcheck")
	}
	// Fall back to ~/.config/stepcheck
	home, err := os.UserHomeDir()
	if err != nil {
		return ".stepcheck"
	}
	return filepath.Join(home, ".config", "stepcheck")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
