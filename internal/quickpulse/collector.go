package quickpulse

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wesleyorama2/quickpulse/internal/perfcounter"
)

// ErrCollectorRunning is returned by Start when the collector is already running.
var ErrCollectorRunning = errors.New("collector already running")

// Sink receives every sample the collector produces. A Submit error marks
// the window as failed.
type Sink interface {
	Submit(s *Sample) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(s *Sample) error

// Submit calls f(s).
func (f SinkFunc) Submit(s *Sample) error { return f(s) }

// Logger receives collector diagnostics.
type Logger interface {
	Warnf(format string, args ...interface{})
}

// CollectorConfig contains configuration for a Collector.
type CollectorConfig struct {
	// Interval is the window length (default: 1s)
	Interval time.Duration

	// HistorySize is the number of samples retained (default: 60)
	HistorySize int

	// StreamID identifies this collector's sample stream
	StreamID string

	// Clock stamps window boundaries (default: time.Now)
	Clock func() time.Time

	// Source supplies performance-counter readings per window (optional)
	Source perfcounter.Source

	// Sink receives finished samples (optional)
	Sink Sink

	// Logger receives collection warnings (optional)
	Logger Logger
}

// DefaultCollectorConfig returns the default configuration.
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		Interval:    time.Second,
		HistorySize: DefaultHistorySize,
		Clock:       time.Now,
	}
}

// Collector runs consecutive windows and turns each into a Sample.
//
// Writers call RecordRequest and RecordDependencyCall at any time; they always
// land in the current window. Flush ends the current window, opens the next one
// at the same instant, and builds the sample. Start runs Flush once per
// Interval until Stop.
//
// # Thread Safety
//
// Collector is safe for concurrent use. The current accumulator is swapped
// atomically; flushes are serialized.
type Collector struct {
	config CollectorConfig

	current atomic.Pointer[Accumulator]
	history *History

	flushMu sync.Mutex

	lifecycleMu sync.Mutex
	running     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	windows  atomic.Uint64
	failures atomic.Uint64
}

// NewCollector creates a collector with the default configuration.
func NewCollector() *Collector {
	return NewCollectorWithConfig(DefaultCollectorConfig())
}

// NewCollectorWithConfig creates a collector and opens its first window.
func NewCollectorWithConfig(config CollectorConfig) *Collector {
	defaults := DefaultCollectorConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.HistorySize <= 0 {
		config.HistorySize = defaults.HistorySize
	}
	if config.Clock == nil {
		config.Clock = defaults.Clock
	}

	c := &Collector{
		config:  config,
		history: NewHistory(config.HistorySize),
	}

	acc := NewAccumulator()
	acc.Open(config.Clock())
	c.current.Store(acc)

	return c
}

// RecordRequest records a request into the current window.
func (c *Collector) RecordRequest(duration time.Duration, success bool) {
	c.current.Load().RecordRequest(DurationToTicks(duration), success)
}

// RecordDependencyCall records a dependency call into the current window.
func (c *Collector) RecordDependencyCall(duration time.Duration, success bool) {
	c.current.Load().RecordDependencyCall(DurationToTicks(duration), success)
}

// Flush closes the current window and returns its sample.
//
// Counter collection failures do not fail the window: the error is logged and
// the sample carries zero counter values. A window whose end precedes its
// start (a clock step backwards) is reported as an error and discarded. When
// the Sink rejects a sample, Flush returns the sample together with the error;
// the sample is still kept in History.
func (c *Collector) Flush(ctx context.Context) (*Sample, error) {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	now := c.config.Clock()

	next := NewAccumulator()
	next.Open(now)
	closed := c.current.Swap(next)
	closed.Close(now)

	readings := c.collectReadings(ctx)

	sample, err := NewSample(closed, readings)
	c.windows.Add(1)
	if err != nil {
		c.failures.Add(1)
		return nil, fmt.Errorf("failed to build sample: %w", err)
	}

	if dropped := closed.Dropped(); dropped > 0 {
		c.warnf("%d events arrived after window close and were dropped", dropped)
	}

	c.history.Add(sample)
	if c.config.Sink != nil {
		if err := c.config.Sink.Submit(sample); err != nil {
			c.failures.Add(1)
			return sample, fmt.Errorf("failed to submit sample: %w", err)
		}
	}

	return sample, nil
}

func (c *Collector) collectReadings(ctx context.Context) perfcounter.Readings {
	if c.config.Source == nil {
		return perfcounter.NewReadings()
	}

	readings, err := c.config.Source.Collect(ctx)
	if err != nil {
		c.warnf("performance counter collection failed: %v", err)
		return perfcounter.NewReadings()
	}
	return readings
}

// Start runs the window loop in the background until ctx is done or Stop is called.
func (c *Collector) Start(ctx context.Context) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.running {
		return ErrCollectorRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true

	c.wg.Add(1)
	go c.run(loopCtx)

	return nil
}

// run flushes once per interval.
func (c *Collector) run(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Flush(ctx); err != nil {
				c.warnf("%v", err)
			}
		}
	}
}

// Stop ends the window loop and flushes the final window.
func (c *Collector) Stop() (*Sample, error) {
	c.lifecycleMu.Lock()
	if c.running {
		c.cancel()
		c.running = false
	}
	c.lifecycleMu.Unlock()

	c.wg.Wait()

	return c.Flush(context.Background())
}

// IsRunning reports whether the window loop is active.
func (c *Collector) IsRunning() bool {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	return c.running
}

// StreamID returns the configured stream identifier.
func (c *Collector) StreamID() string {
	return c.config.StreamID
}

// History returns the retained samples.
func (c *Collector) History() *History {
	return c.history
}

// Windows returns the number of windows flushed, including failed ones.
func (c *Collector) Windows() uint64 {
	return c.windows.Load()
}

// Failures returns the number of windows that could not be turned into a
// sample or that the Sink rejected.
func (c *Collector) Failures() uint64 {
	return c.failures.Load()
}

func (c *Collector) warnf(format string, args ...interface{}) {
	if c.config.Logger != nil {
		c.config.Logger.Warnf(format, args...)
	}
}
