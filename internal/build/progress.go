package build

import "time"

// ProgressReporter receives wheel injection progress.
type ProgressReporter interface {
	// OnInjectStart is called once before the first wheel.
	OnInjectStart(total int)

	// OnWheelInjected is called after each wheel is rewritten.
	OnWheelInjected(path string)

	// OnInjectComplete is called when every wheel succeeded.
	OnInjectComplete(duration time.Duration)
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnInjectStart(total int)                  {}
func (n *NoOpProgressReporter) OnWheelInjected(path string)              {}
func (n *NoOpProgressReporter) OnInjectComplete(duration time.Duration) {}
