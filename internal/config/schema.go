// Package config provides configuration loading and validation for quickpulse.
package config

import (
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultInterval is the default window length.
	DefaultInterval = time.Second

	// DefaultHistorySize is the default number of retained samples.
	DefaultHistorySize = 60

	// MaxInterval is the longest window whose cumulative duration budget
	// (2^32-1 ticks of 100ns) can hold one fully busy worker.
	MaxInterval = 429496729500 * time.Nanosecond
)

// Config is the root configuration.
//
// Example YAML:
//
//	interval: 1s
//	historySize: 120
//	streamId: "2b1c..."
//	counters:
//	  file: /var/run/quickpulse/counters.json
//	  root: counters
//	  static:
//	    PerfIisQueueSize: 0
//	debug:
//	  noColor: true
type Config struct {
	// Interval is the window length
	Interval Duration `json:"interval,omitempty" yaml:"interval,omitempty"`

	// HistorySize is the number of samples kept in memory
	HistorySize int `json:"historySize,omitempty" yaml:"historySize,omitempty"`

	// StreamID identifies the sample stream (default: random UUID)
	StreamID string `json:"streamId,omitempty" yaml:"streamId,omitempty"`

	// Counters configures the performance-counter source
	Counters CountersConfig `json:"counters,omitempty" yaml:"counters,omitempty"`

	// Debug configures diagnostic output
	Debug DebugConfig `json:"debug,omitempty" yaml:"debug,omitempty"`
}

// CountersConfig selects where performance-counter readings come from.
// File takes precedence over Static.
type CountersConfig struct {
	// File is a JSON counter snapshot re-read every window
	File string `json:"file,omitempty" yaml:"file,omitempty"`

	// Root is a gjson path to the snapshot object inside File
	Root string `json:"root,omitempty" yaml:"root,omitempty"`

	// Static are fixed counter values used when File is empty
	Static map[string]float64 `json:"static,omitempty" yaml:"static,omitempty"`
}

// DebugConfig configures diagnostic output.
type DebugConfig struct {
	// NoColor disables colored output
	NoColor bool `json:"noColor,omitempty" yaml:"noColor,omitempty"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Interval == 0 {
		c.Interval = Duration(DefaultInterval)
	}
	if c.HistorySize == 0 {
		c.HistorySize = DefaultHistorySize
	}
	if c.StreamID == "" {
		c.StreamID = uuid.NewString()
	}
}

// Duration is a time.Duration that can be unmarshaled from JSON/YAML strings.
type Duration time.Duration

// GetDuration returns the duration or a default if empty.
func (d Duration) GetDuration(defaultValue time.Duration) time.Duration {
	if d == 0 {
		return defaultValue
	}
	return time.Duration(d)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	if s == "" || s == "null" {
		*d = 0
		return nil
	}

	dur, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	if s == "" {
		*d = 0
		return nil
	}

	dur, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// String returns the duration as a string.
func (d Duration) String() string {
	return time.Duration(d).String()
}
