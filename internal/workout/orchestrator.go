package workout

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sprintcoach/sprintcoach/internal/gps"
	"github.com/sprintcoach/sprintcoach/internal/safego"
	"github.com/sprintcoach/sprintcoach/internal/session"
	"github.com/sprintcoach/sprintcoach/internal/timer"
)

// ErrInvalidTransition reports a contract violation: advancing out of
// Complete or indexing a unit past the phase total. At runtime these are
// logged and ignored; they must never unwind the run loop.
var ErrInvalidTransition = errors.New("workout: invalid transition")

// CompletionMode selects how a sprint unit's completion is detected. The
// product intent (GPS distance crossing vs. manual button) varies by
// athlete setup, so it is configuration, not code.
type CompletionMode string

const (
	// CompleteManual waits for an explicit FinishSprint call.
	CompleteManual CompletionMode = "manual"
	// CompleteDistance finishes when live GPS distance reaches the target;
	// falls back to the timeout when the tracker has no live progress.
	CompleteDistance CompletionMode = "distance"
	// CompleteTimeout finishes after a fixed fallback duration.
	CompleteTimeout CompletionMode = "timeout"
)

// Config tunes one orchestrator instance.
type Config struct {
	Device         DeviceID
	Completion     CompletionMode
	SprintTimeout  time.Duration // fallback active duration for sprint units
	TickEvery      time.Duration // timer tick granularity, also the sync cadence
	CountdownMarks []int         // rest thresholds announced, seconds remaining
}

func (c Config) withDefaults() Config {
	if c.Device == "" {
		c.Device = DeviceWrist
	}
	if c.Completion == "" {
		c.Completion = CompleteTimeout
	}
	if c.SprintTimeout <= 0 {
		c.SprintTimeout = 15 * time.Second
	}
	if c.TickEvery <= 0 {
		c.TickEvery = time.Second
	}
	if c.CountdownMarks == nil {
		c.CountdownMarks = []int{60, 30, 10}
	}
	return c
}

// Deps are the injected collaborators. Tracker, Publisher, Recorder and
// HeartRate are all optional; a missing capability degrades the workout, it
// never stops it.
type Deps struct {
	Tracker   gps.Tracker
	Publisher Publisher
	Recorder  Recorder
	HeartRate func() int
}

// Orchestrator drives one athlete through the full phase sequence
// Warmup → Stretch → Drills → Strides → Sprints → Cooldown → Complete.
//
// Every mutation funnels through a single run-loop goroutine: timer
// expirations, GPS completions, user commands and inbound sync snapshots
// are enqueued as closures and executed one at a time, so the session state
// has exactly one writer.
type Orchestrator struct {
	logger *log.Logger
	cfg    Config
	plan   session.Plan
	deps   Deps
	events *Events

	mu    sync.RWMutex
	state Snapshot

	// Run-loop-owned fields; touched only from the loop goroutine.
	phaseTimer *timer.IntervalTimer // fixed-duration phase countdown
	phaseClock *timer.IntervalTimer // unbounded elapsed clock for compound phases
	runner     *subPhaseRunner
	startedAt  time.Time
	results    []UnitResult
	saved      bool
	gpsWarned  bool

	calls        chan func()
	done         chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// New creates an orchestrator for one session plan. The logger is required;
// all Deps fields are optional.
func New(logger *log.Logger, plan session.Plan, cfg Config, deps Deps) *Orchestrator {
	if logger == nil {
		panic("Orchestrator: logger cannot be nil")
	}

	o := &Orchestrator{
		logger:     logger,
		cfg:        cfg.withDefaults(),
		plan:       plan,
		deps:       deps,
		events:     NewEvents(),
		phaseTimer: timer.New(),
		phaseClock: timer.New(),
		calls:      make(chan func(), 256),
		done:       make(chan struct{}),
	}
	o.state = Snapshot{
		SessionID:   uuid.New(),
		Phase:       PhaseWarmup,
		LastUpdated: time.Now(),
		Origin:      o.cfg.Device,
	}

	o.wg.Add(1)
	safego.Go(o.logger, o.runLoop)

	return o
}

// Events exposes the typed event bus for subscribers.
func (o *Orchestrator) Events() *Events { return o.events }

// GetState returns a copy of the current session state.
func (o *Orchestrator) GetState() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Start begins (or restarts after Stop) the workout at the current phase.
func (o *Orchestrator) Start() {
	o.do(func() {
		if o.state.Running {
			o.logger.Printf("Orchestrator: already running")
			return
		}
		if o.state.Phase.Terminal() {
			o.logger.Printf("Orchestrator: session already complete")
			return
		}
		o.startedAt = time.Now()
		o.mutate(func(s *Snapshot) {
			s.Running = true
			s.Paused = false
		})
		o.logger.Printf("Orchestrator: workout started, session %s", o.state.SessionID)
		o.enterPhase(o.state.Phase)
	})
}

// Pause freezes every active timer. The GPS window, if open, stays open;
// sprint measurement is wall-clock truth and pausing mid-sprint is an
// athlete error the coach surfaces, not something the engine hides.
func (o *Orchestrator) Pause() {
	o.do(func() {
		if !o.state.Running || o.state.Paused {
			return
		}
		o.phaseTimer.Pause()
		o.phaseClock.Pause()
		if o.runner != nil {
			o.runner.pause()
		}
		o.mutate(func(s *Snapshot) { s.Paused = true })
		o.logger.Printf("Orchestrator: paused")
	})
}

// Resume continues a paused workout.
func (o *Orchestrator) Resume() {
	o.do(func() {
		if !o.state.Running || !o.state.Paused {
			return
		}
		o.phaseTimer.Resume()
		o.phaseClock.Resume()
		if o.runner != nil {
			o.runner.resume()
		}
		o.mutate(func(s *Snapshot) { s.Paused = false })
		o.logger.Printf("Orchestrator: resumed")
	})
}

// Advance forces the transition to the next phase. An in-progress unit's
// GPS window is discarded, not recorded: manual advance wins over
// in-progress measurement.
func (o *Orchestrator) Advance() {
	o.do(func() { o.advance() })
}

// FinishSprint signals that the current measured unit is done (athlete
// crossed the line). Ignored outside a measured active unit.
func (o *Orchestrator) FinishSprint() {
	o.do(func() {
		if o.runner == nil || !o.state.Running {
			return
		}
		o.runner.finishMeasured()
	})
}

// Stop halts the workout: every timer is canceled, any open GPS window is
// closed and discarded, and the session can be restarted with Start.
func (o *Orchestrator) Stop() {
	o.do(func() {
		if !o.state.Running {
			o.logger.Printf("Orchestrator: nothing to stop")
			return
		}
		o.quiesce()
		o.mutate(func(s *Snapshot) {
			s.Running = false
			s.Paused = false
		})
		o.logger.Printf("Orchestrator: stopped")
	})
}

// ApplyRemote merges an inbound peer snapshot using last-writer-wins. A
// superseding snapshot is adopted; when it names a different phase the
// local execution is re-seated there so both devices drive the same
// workout. Stale snapshots are dropped.
func (o *Orchestrator) ApplyRemote(in Snapshot) {
	o.do(func() {
		local := o.state
		if !in.Supersedes(local) {
			return
		}

		samePosition := in.Phase == local.Phase && in.UnitIndex == local.UnitIndex &&
			in.Running == local.Running && in.Paused == local.Paused
		o.mu.Lock()
		o.state = in
		o.mu.Unlock()
		o.events.State.Publish(in)

		if samePosition {
			return // display-only drift (elapsed seconds), nothing to re-seat
		}
		if !in.Running {
			o.quiesce()
			return
		}
		o.logger.Printf("Orchestrator: adopting peer position %s unit %d", in.Phase, in.UnitIndex)
		o.reseat(in)
	})
}

// Shutdown stops the run loop. Safe to call more than once.
func (o *Orchestrator) Shutdown() {
	o.shutdownOnce.Do(func() {
		o.doWait(func() { o.quiesce() })
		close(o.done)
		o.wg.Wait()
		o.logger.Printf("Orchestrator: shutdown complete")
	})
}

// --- run loop ---

func (o *Orchestrator) runLoop() {
	defer o.wg.Done()

	publish := time.NewTicker(o.cfg.TickEvery)
	defer publish.Stop()

	for {
		select {
		case <-o.done:
			return
		case fn := <-o.calls:
			fn()
		case <-publish.C:
			// Coarse cadence keeps peer displays loosely synchronized even
			// between state mutations.
			if o.state.Running {
				o.publish(o.GetState())
			}
		}
	}
}

// do enqueues fn onto the run loop. After shutdown the call is dropped.
func (o *Orchestrator) do(fn func()) {
	select {
	case o.calls <- fn:
	case <-o.done:
	}
}

func (o *Orchestrator) doWait(fn func()) {
	ch := make(chan struct{})
	o.do(func() {
		fn()
		close(ch)
	})
	select {
	case <-ch:
	case <-o.done:
	}
}

// mutate applies one atomic state change: fields, LastUpdated and Origin
// move together so the sync channel never observes a partial write.
func (o *Orchestrator) mutate(apply func(*Snapshot)) {
	o.mu.Lock()
	apply(&o.state)
	o.state.LastUpdated = time.Now()
	o.state.Origin = o.cfg.Device
	snap := o.state
	o.mu.Unlock()

	o.events.State.Publish(snap)
	o.publish(snap)
}

func (o *Orchestrator) publish(snap Snapshot) {
	if o.deps.Publisher == nil {
		return
	}
	if err := o.deps.Publisher.Publish(snap); err != nil {
		// Best effort: the peer catches up from the next snapshot.
		o.logger.Printf("Orchestrator: publish dropped: %v", err)
	}
}

// --- phase machine (run loop only) ---

func (o *Orchestrator) advance() {
	from := o.state.Phase
	if from.Terminal() {
		o.logger.Printf("Orchestrator: %v: advance from Complete ignored", ErrInvalidTransition)
		return
	}
	if !o.state.Running {
		o.logger.Printf("Orchestrator: advance ignored while stopped")
		return
	}

	// Phase-exit effects: stop the clocks, tear down the sub-runner and
	// discard any open measurement window.
	o.quiesceTimers()

	o.events.PhaseCompleted.Publish(from)
	next, _ := from.Next()
	o.logger.Printf("Orchestrator: phase %s -> %s", from, next)
	o.enterPhase(next)
}

func (o *Orchestrator) enterPhase(p Phase) {
	total := len(o.unitsFor(p))
	o.mutate(func(s *Snapshot) {
		s.Phase = p
		s.PhaseElapsed = 0
		s.UnitIndex = 0
		s.TotalUnits = total
		s.Resting = false
		s.RestRemaining = 0
		if p.Terminal() {
			s.Running = false
		}
	})
	o.events.PhaseStarted.Publish(p)

	switch {
	case p.Terminal():
		o.finalize()
	case p.Compound():
		o.phaseClock.Start(0, o.cfg.TickEvery, o.onPhaseTick(p), nil)
		o.runner = newSubPhaseRunner(o, p, o.unitsFor(p))
		o.runner.begin(0)
	default:
		d := secondsToDuration(o.fixedSeconds(p))
		o.phaseTimer.Start(d, o.cfg.TickEvery, o.onPhaseTick(p), func() {
			o.do(func() {
				if o.state.Phase == p && o.state.Running {
					o.advance()
				}
			})
		})
	}
}

// onPhaseTick updates phase elapsed time; the closure checks it still
// belongs to the current phase so a stale timer can't scribble on a newer
// one.
func (o *Orchestrator) onPhaseTick(p Phase) timer.TickFunc {
	return func(elapsed, _ time.Duration) {
		o.do(func() {
			if o.state.Phase != p || !o.state.Running {
				return
			}
			o.mutate(func(s *Snapshot) { s.PhaseElapsed = elapsed.Seconds() })
		})
	}
}

// reseat tears down local execution and re-enters the phase and unit named
// by an adopted peer snapshot.
func (o *Orchestrator) reseat(in Snapshot) {
	o.quiesceTimers()
	if o.startedAt.IsZero() {
		o.startedAt = time.Now()
	}
	p := in.Phase
	if p.Terminal() {
		o.finalize()
		return
	}
	o.events.PhaseStarted.Publish(p)
	if p.Compound() {
		units := o.unitsFor(p)
		idx := in.UnitIndex
		if idx >= len(units) {
			o.logger.Printf("Orchestrator: %v: peer unit %d of %d clamped", ErrInvalidTransition, idx, len(units))
			idx = len(units) - 1
		}
		o.phaseClock.Start(0, o.cfg.TickEvery, o.onPhaseTick(p), nil)
		o.runner = newSubPhaseRunner(o, p, units)
		o.runner.begin(idx)
		if in.Paused {
			o.phaseClock.Pause()
			if o.runner != nil {
				o.runner.pause()
			}
		}
		return
	}
	d := secondsToDuration(o.fixedSeconds(p) - in.PhaseElapsed)
	if d <= 0 {
		d = secondsToDuration(o.fixedSeconds(p))
	}
	o.phaseTimer.Start(d, o.cfg.TickEvery, o.onPhaseTick(p), func() {
		o.do(func() {
			if o.state.Phase == p && o.state.Running {
				o.advance()
			}
		})
	})
	if in.Paused {
		o.phaseTimer.Pause()
	}
}

// phaseComplete is the sub-runner's "all units done" signal.
func (o *Orchestrator) phaseComplete() {
	o.advance()
}

func (o *Orchestrator) recordUnit(res UnitResult) {
	o.results = append(o.results, res)
	o.events.UnitCompleted.Publish(res)
}

// finalize builds the summary and hands it to the recorder, once.
func (o *Orchestrator) finalize() {
	o.quiesceTimers()
	if o.saved {
		return
	}
	o.saved = true

	summary := Summary{
		SessionID:      o.state.SessionID,
		StartedAt:      o.startedAt,
		Duration:       time.Since(o.startedAt),
		TotalUnits:     len(o.results),
		CompletedUnits: o.results,
	}
	for _, r := range o.results {
		if r.Result.MaxSpeed > summary.MaxSpeed {
			summary.MaxSpeed = r.Result.MaxSpeed
		}
	}

	o.logger.Printf("Orchestrator: session %s complete, %d units, max %.1f mph",
		summary.SessionID, summary.TotalUnits, summary.MaxSpeed)

	if o.deps.Recorder == nil {
		return
	}
	if err := o.deps.Recorder.Save(summary); err != nil {
		o.logger.Printf("Orchestrator: saving summary: %v", err)
	}
}

// quiesceTimers cancels the phase clocks and tears down the sub-runner
// (which closes any open GPS window), in that order.
func (o *Orchestrator) quiesceTimers() {
	o.phaseTimer.Cancel()
	o.phaseClock.Cancel()
	if o.runner != nil {
		o.runner.teardown()
		o.runner = nil
	}
}

func (o *Orchestrator) quiesce() {
	o.quiesceTimers()
}

// --- capability access for the sub-runner ---

// openWindow starts a GPS measurement window; a failure degrades the unit
// to wall-clock timing and is logged, never fatal.
func (o *Orchestrator) openWindow() bool {
	if o.deps.Tracker == nil {
		if !o.gpsWarned {
			o.gpsWarned = true
			o.logger.Printf("Orchestrator: no GPS tracker wired, timing on wall clock only")
		}
		return false
	}
	if err := o.deps.Tracker.StartSprint(); err != nil {
		o.logger.Printf("Orchestrator: GPS start failed, wall clock for this unit: %v", err)
		return false
	}
	return true
}

// closeWindow ends an open GPS window. discard drops the measurement.
func (o *Orchestrator) closeWindow(open bool, discard bool) (gps.SprintResult, bool) {
	if !open || o.deps.Tracker == nil {
		return gps.SprintResult{}, false
	}
	res, ok := o.deps.Tracker.EndSprint()
	if discard {
		return gps.SprintResult{}, false
	}
	return res, ok
}

func (o *Orchestrator) sampleHeartRate() int {
	if o.deps.HeartRate == nil {
		return 0
	}
	return o.deps.HeartRate()
}

func (o *Orchestrator) unitsFor(p Phase) []session.Unit {
	switch p {
	case PhaseDrills:
		return o.plan.Drills
	case PhaseStrides:
		return o.plan.Strides
	case PhaseSprints:
		return o.plan.Sprints
	default:
		return nil
	}
}

func (o *Orchestrator) fixedSeconds(p Phase) float64 {
	switch p {
	case PhaseWarmup:
		return o.plan.WarmupSeconds
	case PhaseStretch:
		return o.plan.StretchSeconds
	case PhaseCooldown:
		return o.plan.CooldownSeconds
	default:
		return 0
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
