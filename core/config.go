package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the injector configuration
type Config struct {
	// Injection settings
	Injection InjectionConfig `json:"injection" yaml:"injection"`

	// Logging settings
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// InjectionConfig holds injection engine settings
type InjectionConfig struct {
	// Timeout bounds the wait on the remote thread. The attempt is
	// abandoned as timed out once it elapses.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// PollInterval is the slice used while waiting on the remote
	// thread so caller cancellation is noticed between waits.
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"` // debug, info, warn, error
	File  string `json:"file" yaml:"file"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Injection: InjectionConfig{
			Timeout:      10 * time.Second,
			PollInterval: 100 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from a JSON or YAML file, selected
// by extension. An empty path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if cfg.Injection.Timeout <= 0 {
		return nil, fmt.Errorf("injection timeout must be positive")
	}
	if cfg.Injection.PollInterval <= 0 {
		cfg.Injection.PollInterval = 100 * time.Millisecond
	}

	return cfg, nil
}

// SaveConfig saves configuration to file
func SaveConfig(cfg *Config, path string) error {
	var (
		data []byte
		err  error
	)
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	default:
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
