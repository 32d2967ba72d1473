package quickpulse

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

const (
	// MaxEventsPerWindow is the largest event count a combined counter holds.
	MaxEventsPerWindow = math.MaxUint32

	// MaxTicksPerWindow is the largest cumulative duration a combined counter holds.
	MaxTicksPerWindow = math.MaxUint32

	durationShift = 32
	countMask     = 1<<durationShift - 1
)

// WindowState is the lifecycle position of an Accumulator.
type WindowState int32

const (
	// StatePending is a created accumulator whose window has not been opened.
	StatePending WindowState = iota

	// StateCollecting is an opened window accepting events.
	StateCollecting

	// StateClosed is a finished window; further events are dropped.
	StateClosed
)

// String returns the state name.
func (s WindowState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCollecting:
		return "collecting"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("WindowState(%d)", int32(s))
	}
}

// Accumulator collects request and dependency-call counters for one window.
//
// # Thread Safety
//
// RecordRequest and RecordDependencyCall are safe for any number of
// concurrent callers. Open and Close belong to the window owner. Events that
// observe a closed window are dropped and counted in Dropped; events racing
// with Close may or may not land in the window. Readers should decode only
// after Close once in-flight writers have drained.
type Accumulator struct {
	state atomic.Int32

	startTimestamp *time.Time
	endTimestamp   *time.Time

	// Combined counters: count in the low 32 bits, duration ticks in the high 32.
	requestCountAndDuration    atomic.Uint64
	dependencyCountAndDuration atomic.Uint64

	requestSuccessCount    atomic.Uint64
	requestFailureCount    atomic.Uint64
	dependencySuccessCount atomic.Uint64
	dependencyFailureCount atomic.Uint64

	dropped atomic.Uint64
}

// NewAccumulator creates an accumulator in StatePending with all counters zero.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Open stamps the window start. It panics if the window was already opened.
func (a *Accumulator) Open(now time.Time) {
	if !a.state.CompareAndSwap(int32(StatePending), int32(StateCollecting)) {
		panic(fmt.Sprintf("quickpulse: Open called on %s accumulator", a.State()))
	}
	start := now
	a.startTimestamp = &start
}

// Close stamps the window end. It panics unless the window is collecting.
//
// Close does not compare now with the start timestamp; an inverted window is
// reported by NewSample.
func (a *Accumulator) Close(now time.Time) {
	if !a.state.CompareAndSwap(int32(StateCollecting), int32(StateClosed)) {
		panic(fmt.Sprintf("quickpulse: Close called on %s accumulator", a.State()))
	}
	end := now
	a.endTimestamp = &end
}

// State returns the current lifecycle state.
func (a *Accumulator) State() WindowState {
	return WindowState(a.state.Load())
}

// RecordRequest registers one request of the given duration.
func (a *Accumulator) RecordRequest(durationTicks int64, success bool) {
	a.record(&a.requestCountAndDuration, &a.requestSuccessCount, &a.requestFailureCount, durationTicks, success)
}

// RecordDependencyCall registers one dependency call of the given duration.
func (a *Accumulator) RecordDependencyCall(durationTicks int64, success bool) {
	a.record(&a.dependencyCountAndDuration, &a.dependencySuccessCount, &a.dependencyFailureCount, durationTicks, success)
}

func (a *Accumulator) record(combined, succeeded, failed *atomic.Uint64, durationTicks int64, success bool) {
	if WindowState(a.state.Load()) == StateClosed {
		a.dropped.Add(1)
		return
	}

	if durationTicks < 0 {
		durationTicks = 0
	}
	combined.Add(1 | uint64(durationTicks)<<durationShift)

	if success {
		succeeded.Add(1)
	} else {
		failed.Add(1)
	}
}

// StartTimestamp returns the window start, if opened.
func (a *Accumulator) StartTimestamp() (time.Time, bool) {
	if a.startTimestamp == nil {
		return time.Time{}, false
	}
	return *a.startTimestamp, true
}

// EndTimestamp returns the window end, if closed.
func (a *Accumulator) EndTimestamp() (time.Time, bool) {
	if a.endTimestamp == nil {
		return time.Time{}, false
	}
	return *a.endTimestamp, true
}

// RequestCountAndDuration returns the encoded request counter.
func (a *Accumulator) RequestCountAndDuration() uint64 {
	return a.requestCountAndDuration.Load()
}

// DependencyCallCountAndDuration returns the encoded dependency-call counter.
func (a *Accumulator) DependencyCallCountAndDuration() uint64 {
	return a.dependencyCountAndDuration.Load()
}

// RequestSuccessCount returns the number of successful requests.
func (a *Accumulator) RequestSuccessCount() uint64 { return a.requestSuccessCount.Load() }

// RequestFailureCount returns the number of failed requests.
func (a *Accumulator) RequestFailureCount() uint64 { return a.requestFailureCount.Load() }

// DependencyCallSuccessCount returns the number of successful dependency calls.
func (a *Accumulator) DependencyCallSuccessCount() uint64 { return a.dependencySuccessCount.Load() }

// DependencyCallFailureCount returns the number of failed dependency calls.
func (a *Accumulator) DependencyCallFailureCount() uint64 { return a.dependencyFailureCount.Load() }

// Dropped returns the number of events rejected because the window was closed.
func (a *Accumulator) Dropped() uint64 { return a.dropped.Load() }

// EncodeCountAndDuration packs a count and a duration into one combined counter value.
func EncodeCountAndDuration(count, durationTicks uint32) uint64 {
	return uint64(count) | uint64(durationTicks)<<durationShift
}

// DecodeCountAndDuration splits a combined counter value into its count
// (low 32 bits) and duration ticks (high 32 bits). Every input is valid.
func DecodeCountAndDuration(encoded uint64) (count, durationTicks uint32) {
	return uint32(encoded & countMask), uint32(encoded >> durationShift)
}
