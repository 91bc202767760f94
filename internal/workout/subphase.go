package workout

import (
	"time"

	"github.com/sprintcoach/sprintcoach/internal/gps"
	"github.com/sprintcoach/sprintcoach/internal/session"
	"github.com/sprintcoach/sprintcoach/internal/timer"
)

// subPhaseRunner is the inner state machine of one compound phase: an
// ordered unit list walked as Active -> Resting -> Active..., with a GPS
// window per unit. All methods run on the orchestrator's loop; timer
// callbacks re-enter through o.do with staleness guards, so a torn-down
// runner can never act.
type subPhaseRunner struct {
	o     *Orchestrator
	phase Phase
	units []session.Unit

	idx     int
	resting bool
	torn    bool
	gpsOpen bool

	activeStartedAt time.Time
	announced       map[int]bool

	activeTimer *timer.IntervalTimer // fixed active duration or sprint fallback
	restTimer   *timer.IntervalTimer
	watchTimer  *timer.IntervalTimer // polls live distance for the distance strategy
}

func newSubPhaseRunner(o *Orchestrator, phase Phase, units []session.Unit) *subPhaseRunner {
	return &subPhaseRunner{
		o:           o,
		phase:       phase,
		units:       units,
		activeTimer: timer.New(),
		restTimer:   timer.New(),
		watchTimer:  timer.New(),
	}
}

// CompoundDuration is the nominal length of a unit list: active plus rest
// for every unit except that the final unit carries no trailing rest (phase
// completion fires immediately).
func CompoundDuration(units []session.Unit) float64 {
	var total float64
	for i, u := range units {
		total += u.ActiveSeconds
		if i < len(units)-1 {
			total += u.RestAfterSeconds
		}
	}
	return total
}

func (r *subPhaseRunner) begin(startIdx int) {
	if len(r.units) == 0 {
		r.o.logger.Printf("Orchestrator: %s has no units, completing immediately", r.phase)
		r.o.phaseComplete()
		return
	}
	if startIdx < 0 || startIdx >= len(r.units) {
		startIdx = 0
	}
	r.idx = startIdx
	r.startUnit()
}

func (r *subPhaseRunner) startUnit() {
	unit := r.units[r.idx]
	r.resting = false
	r.o.mutate(func(s *Snapshot) {
		s.UnitIndex = r.idx
		s.Resting = false
		s.RestRemaining = 0
	})

	r.gpsOpen = r.o.openWindow()
	r.activeStartedAt = time.Now()
	r.o.logger.Printf("Orchestrator: %s unit %d/%d: %s", r.phase, r.idx+1, len(r.units), unit.Label)

	if !unit.Measured() {
		r.activeTimer.Start(secondsToDuration(unit.ActiveSeconds), r.o.cfg.TickEvery, nil, r.guardActive(r.idx))
		return
	}
	r.armMeasured(unit)
}

// armMeasured installs the configured completion detector for a
// measured-duration (sprint) unit.
func (r *subPhaseRunner) armMeasured(unit session.Unit) {
	switch r.o.cfg.Completion {
	case CompleteManual:
		// Athlete (or watch button) calls FinishSprint.
	case CompleteDistance:
		pr, ok := r.o.deps.Tracker.(gps.ProgressReader)
		if ok && r.gpsOpen {
			target := float64(unit.DistanceYards)
			idx := r.idx
			r.watchTimer.Start(0, r.o.cfg.TickEvery, func(_, _ time.Duration) {
				if pr.LiveDistance() >= target {
					r.o.do(func() {
						if r.current(idx) && !r.resting {
							r.completeActive()
						}
					})
				}
			}, nil)
			return
		}
		// No live progress available; behave like the timeout strategy.
		r.activeTimer.Start(r.o.cfg.SprintTimeout, r.o.cfg.TickEvery, nil, r.guardActive(r.idx))
	default: // CompleteTimeout
		r.activeTimer.Start(r.o.cfg.SprintTimeout, r.o.cfg.TickEvery, nil, r.guardActive(r.idx))
	}
}

// guardActive wraps completeActive for delivery from a timer goroutine:
// the closure re-enters the loop and re-validates that the runner, unit and
// sub-state it was armed for are still current.
func (r *subPhaseRunner) guardActive(idx int) func() {
	return func() {
		r.o.do(func() {
			if r.current(idx) && !r.resting {
				r.completeActive()
			}
		})
	}
}

func (r *subPhaseRunner) current(idx int) bool {
	return r.o.runner == r && !r.torn && r.idx == idx
}

// finishMeasured is the external "sprint finished" signal.
func (r *subPhaseRunner) finishMeasured() {
	if r.torn || r.resting {
		return
	}
	if !r.units[r.idx].Measured() {
		return
	}
	r.completeActive()
}

// completeActive closes out the current unit: end the GPS window (or
// synthesize a wall-clock result), record it, then rest or complete the
// phase. The final unit carries no trailing rest.
func (r *subPhaseRunner) completeActive() {
	r.activeTimer.Cancel()
	r.watchTimer.Cancel()

	unit := r.units[r.idx]
	res, ok := r.o.closeWindow(r.gpsOpen, false)
	r.gpsOpen = false
	if !ok {
		res = gps.SprintResult{Time: time.Since(r.activeStartedAt).Seconds()}
	}

	r.o.recordUnit(UnitResult{
		Phase:     r.phase,
		Unit:      unit,
		Result:    res,
		HeartRate: r.o.sampleHeartRate(),
		Synthetic: !ok,
	})

	if r.idx == len(r.units)-1 {
		r.o.phaseComplete()
		return
	}
	r.startRest(unit)
}

func (r *subPhaseRunner) startRest(unit session.Unit) {
	r.resting = true
	r.announced = make(map[int]bool)
	r.o.mutate(func(s *Snapshot) {
		s.Resting = true
		s.RestRemaining = unit.RestAfterSeconds
	})

	idx := r.idx
	r.restTimer.Start(secondsToDuration(unit.RestAfterSeconds), r.o.cfg.TickEvery,
		func(_, remaining time.Duration) {
			r.o.do(func() {
				if r.current(idx) && r.resting {
					r.restTick(remaining)
				}
			})
		},
		func() {
			r.o.do(func() {
				if r.current(idx) && r.resting {
					r.restDone()
				}
			})
		})
}

func (r *subPhaseRunner) restTick(remaining time.Duration) {
	secs := remaining.Seconds()
	r.o.mutate(func(s *Snapshot) { s.RestRemaining = secs })

	for _, mark := range r.o.cfg.CountdownMarks {
		if !r.announced[mark] && secs <= float64(mark) {
			r.announced[mark] = true
			r.o.events.RestCountdown.Publish(mark)
		}
	}
}

func (r *subPhaseRunner) restDone() {
	r.resting = false
	next := r.idx + 1
	if next >= len(r.units) {
		// The final unit completes the phase without resting, so this is a
		// contract violation; complete the phase rather than stall.
		r.o.logger.Printf("Orchestrator: %v: rest past final unit", ErrInvalidTransition)
		r.o.phaseComplete()
		return
	}
	r.idx = next
	r.startUnit()
}

func (r *subPhaseRunner) pause() {
	r.activeTimer.Pause()
	r.restTimer.Pause()
	r.watchTimer.Pause()
}

func (r *subPhaseRunner) resume() {
	r.activeTimer.Resume()
	r.restTimer.Resume()
	r.watchTimer.Resume()
}

// teardown cancels the unit timers and discards any open measurement
// window. An interrupted unit is never recorded.
func (r *subPhaseRunner) teardown() {
	r.torn = true
	r.activeTimer.Cancel()
	r.restTimer.Cancel()
	r.watchTimer.Cancel()
	r.o.closeWindow(r.gpsOpen, true)
	r.gpsOpen = false
}
