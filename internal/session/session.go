// Package session is the read-only session source: training session records
// and the derivation of the per-phase unit lists the orchestrator executes.
package session

import "fmt"

// SprintSet is one prescribed block of sprint reps.
type SprintSet struct {
	DistanceYards int    `yaml:"distance_yards"`
	Reps          int    `yaml:"reps"`
	Intensity     int    `yaml:"intensity"` // percent of max effort
	RestSeconds   int    `yaml:"rest_seconds,omitempty"`
	Notes         string `yaml:"notes,omitempty"`
}

// TrainingSession is one day's prescription from the program library.
type TrainingSession struct {
	Week   int       `yaml:"week"`
	Day    int       `yaml:"day"`
	Type   string    `yaml:"type"`  // "Acceleration", "Max Velocity", ...
	Focus  string    `yaml:"focus"` // "Block Starts", "Top Speed Mechanics", ...
	Sprint SprintSet `yaml:"sprint"`
}

// Unit is one repetition inside a compound phase: a single drill, stride or
// sprint rep. ActiveSeconds zero means the active duration is measured (GPS
// or wall clock), not fixed.
type Unit struct {
	Index            int
	DistanceYards    int
	ActiveSeconds    float64
	RestAfterSeconds float64
	Label            string
}

// Measured reports whether the unit's active duration comes from
// measurement rather than a fixed timer.
func (u Unit) Measured() bool { return u.ActiveSeconds <= 0 }

// Plan is the fully resolved execution plan for one session: fixed phase
// durations plus the ordered unit lists for the compound phases.
type Plan struct {
	Session         TrainingSession
	WarmupSeconds   float64
	StretchSeconds  float64
	CooldownSeconds float64
	Drills          []Unit
	Strides         []Unit
	Sprints         []Unit
}

// Fixed phase durations, from the program's standard session structure.
const (
	warmupSeconds   = 300 // easy jog
	stretchSeconds  = 420 // dynamic stretching
	cooldownSeconds = 300 // walk + static stretch
)

// Default drill circuit: 30s work / 60s rest per movement.
var drillLabels = []string{"A-skips", "High knees", "Butt kicks"}

const (
	drillActiveSeconds = 30
	drillRestSeconds   = 60

	strideCount         = 3
	strideDistanceYards = 20
	strideActiveSeconds = 8
	strideRestSeconds   = 45
)

// BuildPlan derives the execution plan from a session record.
func BuildPlan(ts TrainingSession) (Plan, error) {
	if ts.Sprint.Reps <= 0 {
		return Plan{}, fmt.Errorf("session week %d day %d: sprint reps must be positive, got %d", ts.Week, ts.Day, ts.Sprint.Reps)
	}
	if ts.Sprint.DistanceYards <= 0 {
		return Plan{}, fmt.Errorf("session week %d day %d: sprint distance must be positive, got %d", ts.Week, ts.Day, ts.Sprint.DistanceYards)
	}

	p := Plan{
		Session:         ts,
		WarmupSeconds:   warmupSeconds,
		StretchSeconds:  stretchSeconds,
		CooldownSeconds: cooldownSeconds,
	}

	for i, label := range drillLabels {
		p.Drills = append(p.Drills, Unit{
			Index:            i,
			ActiveSeconds:    drillActiveSeconds,
			RestAfterSeconds: drillRestSeconds,
			Label:            label,
		})
	}

	for i := 0; i < strideCount; i++ {
		p.Strides = append(p.Strides, Unit{
			Index:            i,
			DistanceYards:    strideDistanceYards,
			ActiveSeconds:    strideActiveSeconds,
			RestAfterSeconds: strideRestSeconds,
			Label:            fmt.Sprintf("Build-up stride %d", i+1),
		})
	}

	rest := float64(ts.Sprint.RestSeconds)
	if rest <= 0 {
		rest = float64(RestForDistance(ts.Sprint.DistanceYards))
	}
	for i := 0; i < ts.Sprint.Reps; i++ {
		p.Sprints = append(p.Sprints, Unit{
			Index:            i,
			DistanceYards:    ts.Sprint.DistanceYards,
			RestAfterSeconds: rest,
			Label:            fmt.Sprintf("%d yd sprint %d/%d @ %d%%", ts.Sprint.DistanceYards, i+1, ts.Sprint.Reps, ts.Sprint.Intensity),
		})
	}

	return p, nil
}

// RestForDistance estimates full-recovery rest from sprint distance,
// matching the program's prescription: 5 min for 60+ yd, 4 min for 40+,
// 3 min below that.
func RestForDistance(distanceYards int) int {
	switch {
	case distanceYards >= 60:
		return 300
	case distanceYards >= 40:
		return 240
	default:
		return 180
	}
}
