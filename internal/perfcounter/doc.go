// Package perfcounter defines the performance-counter readings that accompany
// each quickpulse window.
//
// Readings are keyed by counter name and may hold more than one value per name.
// Only the seven names returned by AllNames are recognized by the sample
// builder; anything else is carried but ignored.
//
// Sources produce readings once per window:
//
//	src := perfcounter.NewStaticSource(perfcounter.Readings{
//		perfcounter.CPUUtilization.String(): {12.5},
//	})
//	readings, err := src.Collect(ctx)
//
// How the values are physically read from the operating system is not the
// concern of this package.
package perfcounter
