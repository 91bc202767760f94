package session

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Library is an ordered collection of training sessions, usually one
// program cycle. Sessions are resolved once at workout start; the
// orchestrator never reaches back into the library mid-session.
type Library struct {
	Sessions []TrainingSession `yaml:"sessions"`
}

// LoadLibrary reads a YAML session library from path.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading session library: %w", err)
	}
	return ParseLibrary(data)
}

// ParseLibrary decodes a YAML session library.
func ParseLibrary(data []byte) (*Library, error) {
	lib := &Library{}
	if err := yaml.Unmarshal(data, lib); err != nil {
		return nil, fmt.Errorf("parsing session library: %w", err)
	}
	if len(lib.Sessions) == 0 {
		return nil, fmt.Errorf("session library is empty")
	}
	return lib, nil
}

// Find returns the session for a given week and day.
func (l *Library) Find(week, day int) (TrainingSession, bool) {
	for _, s := range l.Sessions {
		if s.Week == week && s.Day == day {
			return s, true
		}
	}
	return TrainingSession{}, false
}

// DefaultLibrary returns the built-in starter program, used when no library
// file is configured.
func DefaultLibrary() *Library {
	return &Library{Sessions: []TrainingSession{
		{Week: 1, Day: 1, Type: "Acceleration", Focus: "Block Starts",
			Sprint: SprintSet{DistanceYards: 20, Reps: 6, Intensity: 85}},
		{Week: 1, Day: 2, Type: "Max Velocity", Focus: "Top Speed Mechanics",
			Sprint: SprintSet{DistanceYards: 40, Reps: 4, Intensity: 95}},
		{Week: 1, Day: 3, Type: "Speed Endurance", Focus: "Repeat Sprint Ability",
			Sprint: SprintSet{DistanceYards: 60, Reps: 3, Intensity: 90}},
		{Week: 2, Day: 1, Type: "Acceleration", Focus: "Drive Phase",
			Sprint: SprintSet{DistanceYards: 30, Reps: 5, Intensity: 90}},
		{Week: 2, Day: 2, Type: "Max Velocity", Focus: "Flying Sprints",
			Sprint: SprintSet{DistanceYards: 40, Reps: 5, Intensity: 100}},
		{Week: 2, Day: 3, Type: "Speed Endurance", Focus: "Tempo Control",
			Sprint: SprintSet{DistanceYards: 60, Reps: 4, Intensity: 85}},
	}}
}
