// Package announce turns workout events into athlete-facing cues. The
// announcer only names cues; the sink decides whether a cue becomes speech,
// a tone or a wrist tap.
package announce

import (
	"fmt"
	"log"

	"github.com/sprintcoach/sprintcoach/internal/workout"
)

// Cue identifies one athlete-facing signal.
type Cue string

const (
	CuePhaseStart    Cue = "phase_start"
	CuePhaseComplete Cue = "phase_complete"
	CueUnitDone      Cue = "unit_done"
	CueRestCountdown Cue = "rest_countdown"
	CueSessionDone   Cue = "session_done"
)

// Sink renders cues. Detail is a short human-readable qualifier ("Sprints",
// "30s", "40 yd in 4.9s").
type Sink interface {
	Announce(cue Cue, detail string)
}

// Announcer subscribes to a workout event bus and forwards cues to a sink.
type Announcer struct {
	logger *log.Logger
	sink   Sink
	cancel []func()
}

// New wires an announcer to the bus. Both logger and sink are required.
func New(logger *log.Logger, sink Sink, bus *workout.Events) *Announcer {
	if logger == nil {
		panic("Announcer: logger cannot be nil")
	}
	if sink == nil {
		panic("Announcer: sink cannot be nil")
	}

	a := &Announcer{logger: logger, sink: sink}
	a.cancel = append(a.cancel,
		bus.PhaseStarted.Subscribe(a.onPhaseStarted),
		bus.PhaseCompleted.Subscribe(a.onPhaseCompleted),
		bus.RestCountdown.Subscribe(a.onRestCountdown),
		bus.UnitCompleted.Subscribe(a.onUnitCompleted),
	)
	return a
}

// Close detaches the announcer from the bus.
func (a *Announcer) Close() {
	for _, c := range a.cancel {
		c()
	}
	a.cancel = nil
}

func (a *Announcer) onPhaseStarted(p workout.Phase) {
	if p.Terminal() {
		a.sink.Announce(CueSessionDone, "Workout complete")
		return
	}
	a.sink.Announce(CuePhaseStart, p.String())
}

func (a *Announcer) onPhaseCompleted(p workout.Phase) {
	a.sink.Announce(CuePhaseComplete, p.String())
}

func (a *Announcer) onRestCountdown(seconds int) {
	a.sink.Announce(CueRestCountdown, fmt.Sprintf("%ds", seconds))
}

func (a *Announcer) onUnitCompleted(u workout.UnitResult) {
	if u.Unit.Measured() && !u.Synthetic {
		a.sink.Announce(CueUnitDone,
			fmt.Sprintf("%s: %.1f yd in %.2fs, max %.1f mph",
				u.Unit.Label, u.Result.Distance, u.Result.Time, u.Result.MaxSpeed))
		return
	}
	a.sink.Announce(CueUnitDone, u.Unit.Label)
}

// LogSink writes cues to the session log. The in-repo rendering; watch and
// phone builds swap in haptics and TTS.
type LogSink struct {
	Logger *log.Logger
}

func (s *LogSink) Announce(cue Cue, detail string) {
	s.Logger.Printf("Announce: [%s] %s", cue, detail)
}
