package perfcounter

import (
	"context"
	"sync"
)

// Source produces the counter readings for one window.
type Source interface {
	Collect(ctx context.Context) (Readings, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (Readings, error)

// Collect calls f(ctx).
func (f SourceFunc) Collect(ctx context.Context) (Readings, error) {
	return f(ctx)
}

// StaticSource returns the same readings on every collection.
// Values may be replaced between windows with Update.
type StaticSource struct {
	mu       sync.RWMutex
	readings Readings
}

// NewStaticSource creates a source serving a copy of readings.
func NewStaticSource(readings Readings) *StaticSource {
	return &StaticSource{readings: readings.clone()}
}

// Update replaces the served readings.
func (s *StaticSource) Update(readings Readings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = readings.clone()
}

// Collect returns a copy of the current readings.
func (s *StaticSource) Collect(ctx context.Context) (Readings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readings.clone(), nil
}

func (r Readings) clone() Readings {
	out := make(Readings, len(r))
	for name, values := range r {
		out[name] = append([]float64(nil), values...)
	}
	return out
}
