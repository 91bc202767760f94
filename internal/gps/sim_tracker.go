package gps

import (
	"math"
	"sync"
	"time"
)

// yardsPerSecondPerMPH converts mph to yd/s (1 mph = 1.46667 ft/s).
const yardsPerSecondPerMPH = 0.488889

// SimTracker synthesizes sprint kinematics from a first-order acceleration
// model: the athlete approaches a top speed with time constant accelTau.
// Good enough to exercise every GPS code path without a track.
type SimTracker struct {
	mu          sync.Mutex
	open        bool
	startedAt   time.Time
	topSpeedMPH float64
	accelTau    float64 // seconds to reach ~63% of top speed
}

// NewSimTracker creates a simulated tracker. topSpeedMPH <= 0 defaults to a
// club-athlete 18 mph.
func NewSimTracker(topSpeedMPH float64) *SimTracker {
	if topSpeedMPH <= 0 {
		topSpeedMPH = 18
	}
	return &SimTracker{
		topSpeedMPH: topSpeedMPH,
		accelTau:    1.2,
	}
}

// StartSprint opens a measurement window.
func (s *SimTracker) StartSprint() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = true
	s.startedAt = time.Now()
	return nil
}

// EndSprint closes the window and returns the synthesized result, or
// ok=false when no window was open.
func (s *SimTracker) EndSprint() (SprintResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return SprintResult{}, false
	}
	s.open = false

	elapsed := time.Since(s.startedAt).Seconds()
	return SprintResult{
		Time:     elapsed,
		Distance: s.distanceAt(elapsed),
		MaxSpeed: s.speedAt(elapsed),
	}, true
}

// LiveDistance reports yards covered in the open window, zero when closed.
func (s *SimTracker) LiveDistance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0
	}
	return s.distanceAt(time.Since(s.startedAt).Seconds())
}

// distanceAt integrates v(t) = vmax*(1 - e^(-t/tau)).
func (s *SimTracker) distanceAt(t float64) float64 {
	vmax := s.topSpeedMPH * yardsPerSecondPerMPH
	return vmax * (t - s.accelTau*(1-math.Exp(-t/s.accelTau)))
}

func (s *SimTracker) speedAt(t float64) float64 {
	return s.topSpeedMPH * (1 - math.Exp(-t/s.accelTau))
}
