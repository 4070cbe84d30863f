package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/stepcheck/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify stepcheck configuration",
	Long: `View or modify stepcheck configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  stepcheck config set classifier.url http://10.0.0.5:5000/check_piece
  stepcheck config set alignment.threshold_percent 3.5
  stepcheck config set feedback.display_seconds 6

Run 'stepcheck config show' to list every key.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/stepcheck/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		_, _ = fmt.Fprintf(out, "# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		_, _ = fmt.Fprintln(out, "# Config file: (none - using defaults)")
	}

	settings := viper.AllSettings()
	delete(settings, "config")
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	_, _ = out.Write(data)

	if _, err := config.Load(); err != nil {
		_, _ = fmt.Fprintf(out, "\n# Warning: %v\n", err)
	}
	return nil
}

// keyType reports how a value for key is parsed, going by the type of its
// registered default.
func keyType(key string) (string, bool) {
	if !viper.IsSet(key) {
		return "", false
	}
	switch viper.Get(key).(type) {
	case int:
		return "int", true
	case float64:
		return "float", true
	case bool:
		return "bool", true
	case string:
		return "string", true
	default:
		return "", false
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	kind, ok := keyType(key)
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'stepcheck config show' to see valid keys", key)
	}

	// Validate the value based on type
	var typedValue any
	switch kind {
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = b
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		typedValue = intVal
	case "float":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected number", key)
		}
		typedValue = f
	default:
		typedValue = value
	}

	previous := viper.Get(key)
	viper.Set(key, typedValue)
	if _, err := config.Load(); err != nil {
		viper.Set(key, previous)
		return err
	}

	// Ensure config directory exists
	configFile := configTarget()
	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write to config file
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\nConfig saved to %s\n", key, typedValue, configFile)
	return nil
}

// configTarget is the file config set writes to: the active file if any,
// otherwise the default location.
func configTarget() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return config.ConfigFile()
}

const defaultConfigContent = `# stepcheck configuration

# Classifier that answers "is this the expected part, and where is it?"
classifier:
  url: http://localhost:5000/check_piece
  timeout_seconds: 30

# Largest centre offset, in percent of the longest screen side, still aligned
alignment:
  threshold_percent: 5

# How long feedback stays on screen
feedback:
  display_seconds: 10

# Frame encoding before upload
capture:
  jpeg_quality: 90
  # Longest side of the uploaded frame in pixels (0 = no scaling)
  max_dimension: 0

# YAML file listing the assembly steps, camera and screen
assembly:
  steps_file: steps.yaml

# Where the renderer writes frames and reads overlay/part state
scene:
  frame_path: ""
  frame_pattern: "*.{png,jpg,jpeg}"
  frame_timeout_seconds: 5
  overlay_file: ""
  parts_file: ""

# Built-in /check_piece server (stepcheck serve)
server:
  addr: ":5000"
  inference_url: http://localhost:8000/predict
  inference_timeout_seconds: 30
  match_threshold: 0.45
  crop_top_ratio: 0.18
  crop_bottom_ratio: 0.15
  # Directory for annotated detections and their index (empty = disabled)
  archive_dir: ""

logging:
  # debug, info, warn, error
  level: info
  # Directory for stepcheck.log (empty = stderr, discarded under the TUI)
  dir: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'stepcheck config set' to modify values", configFile)
	}

	// Create config directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configFile, []byte(defaultConfigContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\nEdit this file to customize stepcheck's behavior.\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if viper.ConfigFileUsed() != "" {
		_, _ = fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		_, _ = fmt.Fprintf(out, "Default path: %s (not created)\n", config.ConfigFile())
	}

	// Also show config search paths
	_, _ = fmt.Fprintln(out, "\nSearch paths:")
	_, _ = fmt.Fprintf(out, "  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	_, _ = fmt.Fprintln(out, "  2. ./config.yaml (current directory)")
	_, _ = fmt.Fprintln(out, "\nEnvironment variables: STEPCHECK_* (e.g., STEPCHECK_CLASSIFIER_URL)")
	return nil
}
