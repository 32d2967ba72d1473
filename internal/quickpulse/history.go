package quickpulse

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	// DefaultHistorySize is the number of samples retained when no size is given.
	DefaultHistorySize = 60

	// Average durations are tracked in microseconds from 1us to 1 hour.
	historyHistMin     = 1
	historyHistMax     = 3600000000
	historyHistSigFigs = 3
)

// DurationPercentiles summarizes the per-window average durations seen
// across the retained samples.
type DurationPercentiles struct {
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P90   time.Duration `json:"p90"`
	P99   time.Duration `json:"p99"`
	Count int64         `json:"count"`
}

// History keeps the most recent samples in a ring buffer.
//
// Alongside the samples it keeps HDR histograms of each window's average
// request and dependency-call duration. Windows without events of a kind do
// not contribute to that kind's histogram. Histograms cover every sample
// added since the last Reset, not only the retained ones.
//
// History is safe for concurrent use.
type History struct {
	mu      sync.RWMutex
	samples []*Sample
	head    int // next write position
	count   int

	requestHist    *hdrhistogram.Histogram
	dependencyHist *hdrhistogram.Histogram
}

// NewHistory creates a history retaining up to size samples.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}

	return &History{
		samples:        make([]*Sample, size),
		requestHist:    hdrhistogram.New(historyHistMin, historyHistMax, historyHistSigFigs),
		dependencyHist: hdrhistogram.New(historyHistMin, historyHistMax, historyHistSigFigs),
	}
}

// Add appends a sample, evicting the oldest when full.
func (h *History) Add(s *Sample) {
	if s == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.samples[h.head] = s
	h.head = (h.head + 1) % len(h.samples)
	if h.count < len(h.samples) {
		h.count++
	}

	if s.RequestsPerSecond > 0 || s.RequestDurationAveTicks > 0 {
		recordAverage(h.requestHist, s.RequestDurationAverage())
	}
	if s.DependencyCallsPerSecond > 0 || s.DependencyCallDurationAveTicks > 0 {
		recordAverage(h.dependencyHist, s.DependencyCallDurationAverage())
	}
}

// recordAverage clamps the value into the histogram range.
func recordAverage(hist *hdrhistogram.Histogram, d time.Duration) {
	micros := d.Microseconds()
	if micros < historyHistMin {
		micros = historyHistMin
	}
	if micros > historyHistMax {
		micros = historyHistMax
	}
	_ = hist.RecordValue(micros)
}

// Samples returns the retained samples, oldest first.
func (h *History) Samples() []*Sample {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*Sample, 0, h.count)
	start := (h.head - h.count + len(h.samples)) % len(h.samples)
	for i := 0; i < h.count; i++ {
		out = append(out, h.samples[(start+i)%len(h.samples)])
	}
	return out
}

// Latest returns the most recent sample, or nil.
func (h *History) Latest() *Sample {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		return nil
	}
	return h.samples[(h.head-1+len(h.samples))%len(h.samples)]
}

// Len returns the number of retained samples.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// RequestDurationPercentiles summarizes per-window average request durations.
func (h *History) RequestDurationPercentiles() DurationPercentiles {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return percentilesOf(h.requestHist)
}

// DependencyDurationPercentiles summarizes per-window average dependency-call durations.
func (h *History) DependencyDurationPercentiles() DurationPercentiles {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return percentilesOf(h.dependencyHist)
}

func percentilesOf(hist *hdrhistogram.Histogram) DurationPercentiles {
	if hist.TotalCount() == 0 {
		return DurationPercentiles{}
	}
	return DurationPercentiles{
		Min:   time.Duration(hist.Min()) * time.Microsecond,
		Max:   time.Duration(hist.Max()) * time.Microsecond,
		Mean:  time.Duration(hist.Mean()) * time.Microsecond,
		P50:   time.Duration(hist.ValueAtQuantile(50)) * time.Microsecond,
		P90:   time.Duration(hist.ValueAtQuantile(90)) * time.Microsecond,
		P99:   time.Duration(hist.ValueAtQuantile(99)) * time.Microsecond,
		Count: hist.TotalCount(),
	}
}

// Reset discards all samples and histogram data.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.samples {
		h.samples[i] = nil
	}
	h.head = 0
	h.count = 0
	h.requestHist.Reset()
	h.dependencyHist.Reset()
}
