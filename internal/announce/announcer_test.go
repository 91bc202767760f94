package announce

import (
	"io"
	"log"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sprintcoach/sprintcoach/internal/gps"
	"github.com/sprintcoach/sprintcoach/internal/session"
	"github.com/sprintcoach/sprintcoach/internal/workout"
)

type memSink struct {
	mu   sync.Mutex
	cues []Cue
	last string
}

func (s *memSink) Announce(cue Cue, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cues = append(s.cues, cue)
	s.last = detail
}

func TestAnnouncerForwardsCues(t *testing.T) {
	bus := workout.NewEvents()
	sink := &memSink{}
	a := New(log.New(io.Discard, "", 0), sink, bus)
	defer a.Close()

	bus.PhaseStarted.Publish(workout.PhaseSprints)
	bus.RestCountdown.Publish(30)
	bus.PhaseCompleted.Publish(workout.PhaseSprints)
	bus.PhaseStarted.Publish(workout.PhaseComplete)

	assert.Equal(t, []Cue{CuePhaseStart, CueRestCountdown, CuePhaseComplete, CueSessionDone}, sink.cues)
}

func TestAnnouncerUnitDetail(t *testing.T) {
	bus := workout.NewEvents()
	sink := &memSink{}
	a := New(log.New(io.Discard, "", 0), sink, bus)
	defer a.Close()

	bus.UnitCompleted.Publish(workout.UnitResult{
		Phase:  workout.PhaseSprints,
		Unit:   session.Unit{DistanceYards: 40, Label: "40 yd sprint 1/4 @ 95%"},
		Result: gps.SprintResult{Time: 4.9, Distance: 40.2, MaxSpeed: 19.1},
	})
	assert.Contains(t, sink.last, "4.90s")
	assert.Contains(t, sink.last, "19.1 mph")

	// Synthetic results carry no distance worth speaking.
	bus.UnitCompleted.Publish(workout.UnitResult{
		Phase:     workout.PhaseSprints,
		Unit:      session.Unit{DistanceYards: 40, Label: "40 yd sprint 2/4 @ 95%"},
		Result:    gps.SprintResult{Time: 5.0},
		Synthetic: true,
	})
	assert.Equal(t, "40 yd sprint 2/4 @ 95%", sink.last)
}

func TestAnnouncerCloseDetaches(t *testing.T) {
	bus := workout.NewEvents()
	sink := &memSink{}
	a := New(log.New(io.Discard, "", 0), sink, bus)
	a.Close()

	bus.PhaseStarted.Publish(workout.PhaseWarmup)
	assert.Empty(t, sink.cues)
}
