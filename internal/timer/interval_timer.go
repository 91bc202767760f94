package timer

import (
	"sync"
	"time"
)

// TickFunc receives progress on every tick. For unbounded runs remaining is
// negative.
type TickFunc func(elapsed, remaining time.Duration)

// IntervalTimer is a restartable countdown/count-up clock. One instance backs
// every phase, rest and fallback timer in a workout, replacing the
// per-screen timer fields the watch app grew.
//
// Guarantees:
//   - at most one underlying run per instance; Start while running cancels
//     the previous run first, so only the latest Start's callbacks fire
//   - OnExpire fires at most once per run, after which the timer is inert
//     until the next Start
//   - after Cancel returns no further callback is invoked, even when
//     cancellation races an in-flight tick
//
// Elapsed time is measured from the captured start time minus accumulated
// pause time, never from tick counts, so delayed scheduling does not
// compound into drift.
//
// Callbacks are invoked from the timer's run goroutine and must return
// promptly; they must not call methods on the same timer (hand off to a
// serialized queue instead, as the orchestrator does).
type IntervalTimer struct {
	mu   sync.Mutex
	cur  *timerRun // armed run, nil once expired or canceled
	last *timerRun // most recent run, kept so Cancel can drain an expiring one
}

type timerRun struct {
	duration    time.Duration // <= 0 means unbounded count-up
	tickEvery   time.Duration
	onTick      TickFunc
	onExpire    func()
	startedAt   time.Time
	pausedAt    time.Time
	pausedTotal time.Duration
	paused      bool
	canceled    bool

	stop chan struct{}
	done chan struct{}
}

// New creates an idle IntervalTimer.
func New() *IntervalTimer {
	return &IntervalTimer{}
}

// Start arms the timer. A duration <= 0 runs unbounded (count-up, no
// expiry). tickEvery must be positive. onTick and onExpire may be nil.
// If the timer is already running the previous run is canceled first and
// fully drained before the new run begins.
func (t *IntervalTimer) Start(duration, tickEvery time.Duration, onTick TickFunc, onExpire func()) {
	if tickEvery <= 0 {
		panic("timer: tickEvery must be > 0")
	}

	t.Cancel()

	r := &timerRun{
		duration:  duration,
		tickEvery: tickEvery,
		onTick:    onTick,
		onExpire:  onExpire,
		startedAt: time.Now(),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	t.mu.Lock()
	t.cur = r
	t.last = r
	t.mu.Unlock()

	go t.loop(r)
}

// Pause freezes the clock. Ticks are suppressed and the expiry deadline is
// pushed out by the paused duration. No-op when idle or already paused.
func (t *IntervalTimer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.cur
	if r == nil || r.paused {
		return
	}
	r.paused = true
	r.pausedAt = time.Now()
}

// Resume continues a paused run. No-op when idle or not paused.
func (t *IntervalTimer) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.cur
	if r == nil || !r.paused {
		return
	}
	r.paused = false
	r.pausedTotal += time.Since(r.pausedAt)
}

// Cancel stops the current run and waits for any in-flight callback to
// complete, so that when Cancel returns no further callback can fire.
// Canceling an idle timer is a no-op.
func (t *IntervalTimer) Cancel() {
	t.mu.Lock()
	r := t.last
	if r == nil {
		t.mu.Unlock()
		return
	}
	armed := t.cur == r
	t.cur = nil
	alreadyStopped := r.canceled
	r.canceled = true
	t.mu.Unlock()

	if armed && !alreadyStopped {
		close(r.stop)
	}
	// Wait out the run goroutine: covers both an in-flight tick and an
	// expiry that detached just before Cancel was called.
	<-r.done
}

// IsRunning reports whether a run is armed (paused counts as running).
func (t *IntervalTimer) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cur != nil
}

// Elapsed returns the running time of the current run, excluding paused
// spans, or zero when idle.
func (t *IntervalTimer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.cur
	if r == nil {
		return 0
	}
	return r.elapsedLocked(time.Now())
}

func (r *timerRun) elapsedLocked(now time.Time) time.Duration {
	if r.paused {
		return r.pausedAt.Sub(r.startedAt) - r.pausedTotal
	}
	return now.Sub(r.startedAt) - r.pausedTotal
}

func (t *IntervalTimer) loop(r *timerRun) {
	defer close(r.done)

	ticker := time.NewTicker(r.tickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			if expired := t.deliver(r, now); expired {
				return
			}
		}
	}
}

// deliver fires onTick or onExpire for one ticker beat. The canceled check
// and the elapsed computation happen under the mutex; the callback itself
// runs outside it. Returns true when the run has expired and the loop
// should exit.
func (t *IntervalTimer) deliver(r *timerRun, now time.Time) bool {
	t.mu.Lock()
	if r.canceled {
		t.mu.Unlock()
		return true
	}
	if r.paused {
		t.mu.Unlock()
		return false
	}

	elapsed := r.elapsedLocked(now)
	if r.duration > 0 && elapsed >= r.duration {
		// Detach before firing so the instance is restartable from the
		// caller's perspective the moment expiry is observed.
		if t.cur == r {
			t.cur = nil
		}
		onExpire := r.onExpire
		t.mu.Unlock()

		if onExpire != nil {
			onExpire()
		}
		return true
	}

	onTick := r.onTick
	remaining := r.duration - elapsed
	if r.duration <= 0 {
		remaining = -1
	}
	t.mu.Unlock()

	if onTick != nil {
		onTick(elapsed, remaining)
	}
	return false
}
