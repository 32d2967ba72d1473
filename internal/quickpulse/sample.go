package quickpulse

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/wesleyorama2/quickpulse/internal/perfcounter"
)

var (
	// ErrInvalidAccumulatorState is returned when the accumulator is missing a
	// start or end timestamp.
	ErrInvalidAccumulatorState = errors.New("invalid accumulator state")

	// ErrNegativeWindowDuration is returned when the window ends before it starts.
	ErrNegativeWindowDuration = errors.New("negative window duration")

	// ErrInvalidDerivedValue is returned when a derived field is negative, NaN
	// or infinite.
	ErrInvalidDerivedValue = errors.New("invalid derived value")
)

// Sample is the per-window summary of rates, averages and performance-counter
// values. A Sample is never modified after NewSample returns it.
type Sample struct {
	StartTimestamp time.Time `json:"startTimestamp"`
	EndTimestamp   time.Time `json:"endTimestamp"`

	// Application telemetry, derived from the accumulator.
	RequestsPerSecond                 float64 `json:"requestsPerSecond"`
	RequestDurationAveTicks           float64 `json:"requestDurationAveTicks"`
	RequestsFailedPerSecond           float64 `json:"requestsFailedPerSecond"`
	RequestsSucceededPerSecond        float64 `json:"requestsSucceededPerSecond"`
	DependencyCallsPerSecond          float64 `json:"dependencyCallsPerSecond"`
	DependencyCallDurationAveTicks    float64 `json:"dependencyCallDurationAveTicks"`
	DependencyCallsFailedPerSecond    float64 `json:"dependencyCallsFailedPerSecond"`
	DependencyCallsSucceededPerSecond float64 `json:"dependencyCallsSucceededPerSecond"`

	// Performance counters, copied from the lookup.
	PerfIISRequestsPerSecond       float64 `json:"perfIisRequestsPerSecond"`
	PerfIISRequestDurationAveTicks float64 `json:"perfIisRequestDurationAveTicks"`
	PerfIISRequestsFailedTotal     float64 `json:"perfIisRequestsFailedTotal"`
	PerfIISRequestsSucceededTotal  float64 `json:"perfIisRequestsSucceededTotal"`
	PerfIISQueueSize               float64 `json:"perfIisQueueSize"`
	PerfCPUUtilization             float64 `json:"perfCpuUtilization"`
	PerfMemoryInBytes              float64 `json:"perfMemoryInBytes"`
}

// NewSample builds the Sample for a closed accumulator and the counter
// readings gathered for the same window. It reads the accumulator without
// modifying it, so repeated calls give identical results.
//
// A zero-length window yields zero rates and a kind with no events yields a
// zero average. Missing counters read as 0; for a counter with several values
// the first is used.
func NewSample(acc *Accumulator, lookup perfcounter.Lookup) (*Sample, error) {
	if acc == nil {
		return nil, fmt.Errorf("%w: nil accumulator", ErrInvalidAccumulatorState)
	}

	start, ok := acc.StartTimestamp()
	if !ok {
		return nil, fmt.Errorf("%w: start timestamp not set", ErrInvalidAccumulatorState)
	}
	end, ok := acc.EndTimestamp()
	if !ok {
		return nil, fmt.Errorf("%w: end timestamp not set", ErrInvalidAccumulatorState)
	}

	window := end.Sub(start)
	if window < 0 {
		return nil, fmt.Errorf("%w: end %s precedes start %s",
			ErrNegativeWindowDuration, end.Format(time.RFC3339Nano), start.Format(time.RFC3339Nano))
	}
	seconds := window.Seconds()

	requestCount, requestTicks := DecodeCountAndDuration(acc.RequestCountAndDuration())
	dependencyCount, dependencyTicks := DecodeCountAndDuration(acc.DependencyCallCountAndDuration())

	s := &Sample{
		StartTimestamp: start,
		EndTimestamp:   end,

		RequestsPerSecond:          perSecond(uint64(requestCount), seconds),
		RequestDurationAveTicks:    average(requestTicks, requestCount),
		RequestsFailedPerSecond:    perSecond(acc.RequestFailureCount(), seconds),
		RequestsSucceededPerSecond: perSecond(acc.RequestSuccessCount(), seconds),

		DependencyCallsPerSecond:          perSecond(uint64(dependencyCount), seconds),
		DependencyCallDurationAveTicks:    average(dependencyTicks, dependencyCount),
		DependencyCallsFailedPerSecond:    perSecond(acc.DependencyCallFailureCount(), seconds),
		DependencyCallsSucceededPerSecond: perSecond(acc.DependencyCallSuccessCount(), seconds),

		PerfIISRequestsPerSecond:       perfcounter.First(lookup, perfcounter.IISRequestsPerSecond),
		PerfIISRequestDurationAveTicks: perfcounter.First(lookup, perfcounter.IISRequestDurationAverage),
		PerfIISRequestsFailedTotal:     perfcounter.First(lookup, perfcounter.IISRequestsFailedTotal),
		PerfIISRequestsSucceededTotal:  perfcounter.First(lookup, perfcounter.IISRequestsSucceededTotal),
		PerfIISQueueSize:               perfcounter.First(lookup, perfcounter.IISQueueSize),
		PerfCPUUtilization:             perfcounter.First(lookup, perfcounter.CPUUtilization),
		PerfMemoryInBytes:              perfcounter.First(lookup, perfcounter.MemoryInBytes),
	}

	if err := s.checkDerived(); err != nil {
		return nil, err
	}
	return s, nil
}

// WindowDuration returns the length of the sampled window.
func (s *Sample) WindowDuration() time.Duration {
	return s.EndTimestamp.Sub(s.StartTimestamp)
}

// RequestDurationAverage returns the average request duration.
func (s *Sample) RequestDurationAverage() time.Duration {
	return TicksToDuration(s.RequestDurationAveTicks)
}

// DependencyCallDurationAverage returns the average dependency-call duration.
func (s *Sample) DependencyCallDurationAverage() time.Duration {
	return TicksToDuration(s.DependencyCallDurationAveTicks)
}

// checkDerived is an invariant check: perSecond and average only divide
// non-negative counts by positive divisors, so a failure here means one of
// them has regressed.
func (s *Sample) checkDerived() error {
	derived := []struct {
		name  string
		value float64
	}{
		{"requestsPerSecond", s.RequestsPerSecond},
		{"requestDurationAveTicks", s.RequestDurationAveTicks},
		{"requestsFailedPerSecond", s.RequestsFailedPerSecond},
		{"requestsSucceededPerSecond", s.RequestsSucceededPerSecond},
		{"dependencyCallsPerSecond", s.DependencyCallsPerSecond},
		{"dependencyCallDurationAveTicks", s.DependencyCallDurationAveTicks},
		{"dependencyCallsFailedPerSecond", s.DependencyCallsFailedPerSecond},
		{"dependencyCallsSucceededPerSecond", s.DependencyCallsSucceededPerSecond},
	}
	for _, d := range derived {
		if math.IsNaN(d.value) || math.IsInf(d.value, 0) || d.value < 0 {
			return fmt.Errorf("%w: %s = %v", ErrInvalidDerivedValue, d.name, d.value)
		}
	}
	return nil
}

func perSecond(count uint64, seconds float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return float64(count) / seconds
}

func average(ticks, count uint32) float64 {
	if count == 0 {
		return 0
	}
	return float64(ticks) / float64(count)
}
