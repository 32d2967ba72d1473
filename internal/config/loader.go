package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvInterval = "QUICKPULSE_INTERVAL"
	EnvStreamID = "QUICKPULSE_STREAM_ID"
)

// Environment looks up environment variables.
type Environment interface {
	TryGetEnvironmentVariable(name string) (string, bool)
}

// LoadConfig loads a configuration from a file.
//
// The file format is determined by extension:
//   - .yaml, .yml -> YAML
//   - .json -> JSON
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data, path)
}

// ParseConfig parses configuration data.
//
// The format is determined by the file extension in path, or defaults to YAML
// if the path is empty or has an unknown extension.
func ParseConfig(data []byte, path string) (*Config, error) {
	var config Config

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config (unknown format %s): %w", ext, err)
		}
	}

	return &config, nil
}

// ApplyEnvironment overrides settings from environment variables.
func (c *Config) ApplyEnvironment(env Environment) error {
	if env == nil {
		return nil
	}

	if value, ok := env.TryGetEnvironmentVariable(EnvInterval); ok {
		d, err := ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvInterval, err)
		}
		c.Interval = Duration(d)
	}

	if value, ok := env.TryGetEnvironmentVariable(EnvStreamID); ok {
		c.StreamID = value
	}

	return nil
}

// ParseDuration parses a duration string.
//
// Supported formats:
//   - Standard Go duration: "1s", "250ms", "1m30s"
//   - Seconds as integer: "5" (treated as 5 seconds)
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(s)
	if err == nil {
		return d, nil
	}

	var seconds int
	var rest string
	if n, _ := fmt.Sscanf(s, "%d%s", &seconds, &rest); n == 1 {
		return time.Duration(seconds) * time.Second, nil
	}

	return 0, fmt.Errorf("invalid duration format: %s", s)
}
