package config

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/wesleyorama2/quickpulse/internal/perfcounter"
)

// ValidationError is one problem found in a Config. Field is the dotted
// yaml path of the offending key, or "" for problems that span keys.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "config: " + e.Message
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors reports every problem Validate found, in the order the
// checks ran, so a bad file can be fixed in one edit.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	switch len(e.Errors) {
	case 0:
		return "config: ok"
	case 1:
		return e.Errors[0].Error()
	}

	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d config problems: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Add records a problem with field.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors reports whether any problem was recorded.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Validate checks the configuration.
//
// Returns nil if valid, or a ValidationErrors containing all validation errors.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	interval := c.Interval.GetDuration(DefaultInterval)
	if c.Interval < 0 {
		errs.Add("interval", "must not be negative")
	} else if interval > MaxInterval {
		errs.Add("interval", fmt.Sprintf("must not exceed %s (per-window duration budget)", MaxInterval))
	}

	if c.HistorySize < 0 {
		errs.Add("historySize", "must not be negative")
	}

	if c.Counters.File != "" && len(c.Counters.Static) > 0 {
		errs.Add("counters", "file and static are mutually exclusive")
	}
	if c.Counters.Root != "" && c.Counters.File == "" {
		errs.Add("counters.root", "requires counters.file")
	}
	names := make([]string, 0, len(c.Counters.Static))
	for name := range c.Counters.Static {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !perfcounter.Known(name) {
			errs.Add("counters.static."+name, "unknown performance counter")
			continue
		}
		if v := c.Counters.Static[name]; math.IsNaN(v) || math.IsInf(v, 0) {
			errs.Add("counters.static."+name, "must be a finite number")
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
