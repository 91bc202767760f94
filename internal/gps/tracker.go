// Package gps defines the sprint measurement capability the orchestrator
// calls into at unit boundaries, plus a simulated implementation for
// development and off-track use. A real implementation wraps the platform
// location service; the contract stays the same.
package gps

import "errors"

// ErrUnavailable reports that the tracking capability is absent or was
// denied. The orchestrator degrades to wall-clock timing for the affected
// unit; this error is never fatal.
var ErrUnavailable = errors.New("gps: tracking unavailable")

// SprintResult is one measured interval, immutable once returned.
// Time is in seconds, Distance in yards, MaxSpeed in mph.
type SprintResult struct {
	Time     float64
	Distance float64
	MaxSpeed float64
}

// Tracker measures one sprint interval at a time.
//
// StartSprint opens a measurement window; EndSprint closes it and returns
// the result, or ok=false when no window was open. Callers must not open a
// second window before closing the first; that precondition is enforced by
// the orchestrator, not here.
type Tracker interface {
	StartSprint() error
	EndSprint() (result SprintResult, ok bool)
}

// ProgressReader is an optional extension: trackers that can report the
// distance covered so far inside an open window support the
// distance-threshold sprint completion strategy. Trackers without it fall
// back to the timeout strategy.
type ProgressReader interface {
	LiveDistance() float64
}
