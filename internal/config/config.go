// Package config loads and validates the dirprocess YAML configuration.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	dpcerrors "git.home.luguber.info/inful/dirprocess/internal/errors"
)

// Config represents the application configuration
type Config struct {
	InputRoot       string                `yaml:"input_root"`   // Absolute base stripped from source paths
	ProcessRoot     string                `yaml:"process_root"` // Absolute base for outputs
	Workers         int                   `yaml:"workers,omitempty"`
	TemplateHandler TemplateHandlerConfig `yaml:"template_handler"`
	Logging         LoggingConfig         `yaml:"logging,omitempty"`
	Metrics         MetricsConfig         `yaml:"metrics,omitempty"`
	Watch           WatchConfig           `yaml:"watch,omitempty"`
}

// TemplateHandlerConfig holds the keys read by the template render handler.
type TemplateHandlerConfig struct {
	TemplateRoot    string         `yaml:"template_root"`
	RenderData      map[string]any `yaml:"render_data,omitempty"`
	InputExtension  string         `yaml:"input_extension,omitempty"`
	OutputExtension string         `yaml:"output_extension,omitempty"` // "none" strips the source extension only
	Filters         []string       `yaml:"filters,omitempty"`          // Optional filters enabled on top of md
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level,omitempty"`
	Format LogFormat `yaml:"format,omitempty"`
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	ResyncInterval time.Duration `yaml:"resync_interval,omitempty"`
	Debounce       time.Duration `yaml:"debounce,omitempty"`
}

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	// .env files are optional; process environment wins over file values.
	if err := loadEnvFiles(filepath.Dir(configPath)); err != nil {
		fmt.Fprintf(os.Stderr, "Note: .env file couldn't be loaded: %v\n", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, dpcerrors.ConfigNotFound(configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, dpcerrors.ConfigInvalid(fmt.Errorf("failed to read config file: %w", err))
	}

	// Expand environment variables in the YAML content
	expandedData := expandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expandedData)))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, dpcerrors.ConfigInvalid(fmt.Errorf("failed to unmarshal config: %w", err))
	}

	baseDir, err := filepath.Abs(filepath.Dir(configPath))
	if err != nil {
		return nil, dpcerrors.ConfigInvalid(err)
	}
	config.resolvePaths(baseDir)
	ApplyDefaults(&config)

	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// expandEnv substitutes $VAR and ${VAR} from the environment. "$$" yields a
// literal "$", so render_data can hold values such as "$$5".
func expandEnv(s string) string {
	return os.Expand(s, func(name string) string {
		if name == "$" {
			return "$"
		}
		return os.Getenv(name)
	})
}

// resolvePaths makes relative paths relative to the configuration file's directory.
func (c *Config) resolvePaths(baseDir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}
	c.InputRoot = abs(c.InputRoot)
	c.ProcessRoot = abs(c.ProcessRoot)
	c.TemplateHandler.TemplateRoot = abs(c.TemplateHandler.TemplateRoot)
	c.Metrics.Textfile = abs(c.Metrics.Textfile)
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool, example *Config) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	if example == nil {
		example = Example()
	}

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Example returns the configuration written by Init.
func Example() *Config {
	return &Config{
		InputRoot:   "./src",
		ProcessRoot: "./build",
		Workers:     DefaultWorkers,
		TemplateHandler: TemplateHandlerConfig{
			TemplateRoot:    "./src",
			InputExtension:  DefaultInputExtension,
			OutputExtension: DefaultOutputExtension,
			RenderData: map[string]any{
				"site_name": "Example",
			},
		},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
	}
}
