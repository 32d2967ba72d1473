// Package quickpulse aggregates high-frequency request and dependency-call
// telemetry into per-second samples.
//
// # Windows
//
// An Accumulator collects one window. Writers on hot paths call
// RecordRequest and RecordDependencyCall concurrently; neither call blocks,
// allocates or fails. At the end of the window the owner closes it and builds
// a Sample:
//
//	acc := quickpulse.NewAccumulator()
//	acc.Open(time.Now())
//	acc.RecordRequest(quickpulse.DurationToTicks(12*time.Millisecond), true)
//	acc.Close(time.Now())
//	sample, err := quickpulse.NewSample(acc, readings)
//
// # Combined counters
//
// Event count and cumulative duration for a kind share one 64-bit word so a
// single atomic add registers both. The low 32 bits hold the count and the high
// 32 bits hold the duration in ticks. Per window and per kind this allows at
// most MaxEventsPerWindow events and MaxTicksPerWindow ticks (about 429.5s of
// cumulative duration at 100ns per tick). Exceeding either ceiling corrupts the
// decoded pair; callers size the window accordingly.
//
// # Collector
//
// Collector runs the window lifecycle on a ticker, swapping in a fresh
// Accumulator at every boundary and handing finished samples to a Sink.
package quickpulse
