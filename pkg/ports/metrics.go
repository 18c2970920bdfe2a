package ports

import "time"

// MetricsRecorder receives counters and timings from a compilation.
type MetricsRecorder interface {
	// Expansion counts one compound instance inlined during flatten.
	Expansion(class string)

	// Diagnostic counts one reported diagnostic.
	Diagnostic(kind, severity string)

	// PassDuration observes how long one pass took.
	PassDuration(pass string, d time.Duration)
}
