package quickpulse

import "time"

// TicksPerSecond is the duration resolution of the combined counters.
// One tick is 100ns.
const TicksPerSecond = 10_000_000

const nanosPerTick = int64(time.Second) / TicksPerSecond

// DurationToTicks converts d to ticks, truncating. Negative durations give 0.
func DurationToTicks(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(d) / nanosPerTick
}

// TicksToDuration converts ticks back to a duration.
func TicksToDuration(ticks float64) time.Duration {
	return time.Duration(ticks * float64(nanosPerTick))
}
