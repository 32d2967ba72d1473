package quickpulse

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/quickpulse/internal/perfcounter"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock(start time.Time) *manualClock {
	return &manualClock{now: start}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) Warnf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages...)
}

func TestCollector_Flush(t *testing.T) {
	clock := newManualClock(windowStart)
	var submitted []*Sample

	c := NewCollectorWithConfig(CollectorConfig{
		Clock:  clock.Now,
		Source: perfcounter.NewStaticSource(perfcounter.Readings{"PerfCpuUtilization": {25}}),
		Sink: SinkFunc(func(s *Sample) error {
			submitted = append(submitted, s)
			return nil
		}),
	})

	for i := 0; i < 20; i++ {
		c.RecordRequest(5*time.Millisecond, i%4 != 0)
	}
	c.RecordDependencyCall(2*time.Millisecond, true)
	clock.Advance(2 * time.Second)

	sample, err := c.Flush(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10.0, sample.RequestsPerSecond)
	assert.Equal(t, 7.5, sample.RequestsSucceededPerSecond)
	assert.Equal(t, 2.5, sample.RequestsFailedPerSecond)
	assert.Equal(t, 5*time.Millisecond, sample.RequestDurationAverage())
	assert.Equal(t, 0.5, sample.DependencyCallsPerSecond)
	assert.Equal(t, 25.0, sample.PerfCPUUtilization)
	assert.Equal(t, 2*time.Second, sample.WindowDuration())

	require.Len(t, submitted, 1)
	assert.Same(t, sample, submitted[0])
	assert.Same(t, sample, c.History().Latest())
	assert.Equal(t, uint64(1), c.Windows())
}

func TestCollector_ConsecutiveWindows(t *testing.T) {
	clock := newManualClock(windowStart)
	c := NewCollectorWithConfig(CollectorConfig{Clock: clock.Now})

	c.RecordRequest(time.Millisecond, true)
	clock.Advance(time.Second)
	first, err := c.Flush(context.Background())
	require.NoError(t, err)

	clock.Advance(time.Second)
	second, err := c.Flush(context.Background())
	require.NoError(t, err)

	// The next window starts where the previous one ended.
	assert.True(t, second.StartTimestamp.Equal(first.EndTimestamp))
	assert.Equal(t, 1.0, first.RequestsPerSecond)
	assert.Zero(t, second.RequestsPerSecond)
	assert.Equal(t, 2, c.History().Len())
}

func TestCollector_SourceFailureKeepsWindow(t *testing.T) {
	clock := newManualClock(windowStart)
	logger := &recordingLogger{}

	c := NewCollectorWithConfig(CollectorConfig{
		Clock: clock.Now,
		Source: perfcounter.SourceFunc(func(ctx context.Context) (perfcounter.Readings, error) {
			return nil, errors.New("counter backend unavailable")
		}),
		Logger: logger,
	})

	c.RecordRequest(time.Millisecond, true)
	clock.Advance(time.Second)

	sample, err := c.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, sample.RequestsPerSecond)
	assert.Zero(t, sample.PerfCPUUtilization)

	messages := logger.Messages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "counter backend unavailable")
}

func TestCollector_ClockStepBack(t *testing.T) {
	clock := newManualClock(windowStart)
	c := NewCollectorWithConfig(CollectorConfig{Clock: clock.Now})

	clock.Set(windowStart.Add(-time.Second))
	_, err := c.Flush(context.Background())
	assert.ErrorIs(t, err, ErrNegativeWindowDuration)
	assert.Equal(t, uint64(1), c.Failures())

	// Later windows recover.
	clock.Advance(time.Second)
	_, err = c.Flush(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, uint64(2), c.Windows())
}

func TestCollector_ConcurrentRecordAndFlush(t *testing.T) {
	clock := newManualClock(windowStart)
	var mu sync.Mutex
	var total float64
	c := NewCollectorWithConfig(CollectorConfig{
		Clock: clock.Now,
		Sink: SinkFunc(func(s *Sample) error {
			mu.Lock()
			total += s.RequestsPerSecond * s.WindowDuration().Seconds()
			mu.Unlock()
			return nil
		}),
	})

	const (
		writers   = 4
		perWriter = 5000
	)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				c.RecordRequest(time.Microsecond, true)
			}
		}()
	}

	stop := make(chan struct{})
	flushed := make(chan struct{})
	go func() {
		defer close(flushed)
		for {
			select {
			case <-stop:
				return
			default:
				clock.Advance(time.Second)
				_, _ = c.Flush(context.Background())
			}
		}
	}()

	wg.Wait()
	close(stop)
	<-flushed

	clock.Advance(time.Second)
	_, err := c.Flush(context.Background())
	require.NoError(t, err)

	// Events racing a window close may be dropped, never double counted.
	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, total, float64(writers*perWriter))
	assert.Greater(t, total, 0.0)
}

func TestCollector_StartStop(t *testing.T) {
	var mu sync.Mutex
	var submitted int

	c := NewCollectorWithConfig(CollectorConfig{
		Interval: 10 * time.Millisecond,
		Sink: SinkFunc(func(s *Sample) error {
			mu.Lock()
			submitted++
			mu.Unlock()
			return nil
		}),
	})

	require.NoError(t, c.Start(context.Background()))
	assert.True(t, c.IsRunning())
	assert.ErrorIs(t, c.Start(context.Background()), ErrCollectorRunning)

	c.RecordRequest(time.Millisecond, true)
	time.Sleep(55 * time.Millisecond)

	final, err := c.Stop()
	require.NoError(t, err)
	require.NotNil(t, final)
	assert.False(t, c.IsRunning())

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, submitted, 2)
	assert.Equal(t, uint64(submitted), c.Windows())
}

func TestCollector_Defaults(t *testing.T) {
	c := NewCollector()
	assert.Equal(t, time.Second, c.config.Interval)
	assert.Equal(t, DefaultHistorySize, c.config.HistorySize)
	assert.NotNil(t, c.config.Clock)
	assert.Empty(t, c.StreamID())

	c = NewCollectorWithConfig(CollectorConfig{StreamID: "stream-1"})
	assert.Equal(t, "stream-1", c.StreamID())
}

func TestCollector_SinkErrorCountsAsFailure(t *testing.T) {
	clock := newManualClock(windowStart)
	errWrite := errors.New("write failed")

	c := NewCollectorWithConfig(CollectorConfig{
		Clock: clock.Now,
		Sink:  SinkFunc(func(s *Sample) error { return errWrite }),
	})

	c.RecordRequest(time.Millisecond, true)
	clock.Advance(time.Second)

	sample, err := c.Flush(context.Background())
	require.ErrorIs(t, err, errWrite)
	require.NotNil(t, sample)
	assert.Equal(t, 1.0, sample.RequestsPerSecond)

	assert.Equal(t, uint64(1), c.Windows())
	assert.Equal(t, uint64(1), c.Failures())
	assert.Equal(t, 1, c.History().Len())
}
