// Package devicesync moves workout snapshots between the wrist and the
// handheld device. The channel is best effort: snapshots that cannot be
// delivered are dropped and the peer catches up from the next one, so the
// workout never blocks on connectivity.
package devicesync

import (
	"sync"

	"github.com/sprintcoach/sprintcoach/internal/workout"
)

// Link is one end of a snapshot channel. Publish ships a snapshot toward
// the peer; OnReceive registers a handler for inbound snapshots and returns
// its unsubscribe function. A Link satisfies workout.Publisher.
type Link interface {
	Publish(workout.Snapshot) error
	OnReceive(fn func(workout.Snapshot)) (unsubscribe func())
	Close() error
}

// Attach wires a link's inbound side into an orchestrator's merge path.
// The outbound side is wired by handing the link to the orchestrator as its
// Publisher. Returns the unsubscribe function.
func Attach(o *workout.Orchestrator, link Link) func() {
	return link.OnReceive(o.ApplyRemote)
}

// Replica is a passive snapshot holder with the same last-writer-wins merge
// rule the orchestrator uses. Display-only surfaces (a dashboard pane, a
// companion screen) hold a Replica instead of a full orchestrator.
type Replica struct {
	mu  sync.RWMutex
	cur workout.Snapshot
	has bool
}

// Apply merges an inbound snapshot, reporting whether it was adopted.
func (r *Replica) Apply(in workout.Snapshot) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.has && !in.Supersedes(r.cur) {
		return false
	}
	r.cur = in
	r.has = true
	return true
}

// Current returns the latest adopted snapshot, ok=false before the first
// Apply.
func (r *Replica) Current() (workout.Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cur, r.has
}
