package devicesync

import (
	"errors"
	"sync"

	"github.com/sprintcoach/sprintcoach/internal/events"
	"github.com/sprintcoach/sprintcoach/internal/workout"
)

// ErrClosed reports a publish on a closed link.
var ErrClosed = errors.New("devicesync: link closed")

// pairEnd is one side of an in-process link pair. Used in tests and in
// single-binary demo mode where both "devices" run in one process.
type pairEnd struct {
	recv *events.CallbackEvent[workout.Snapshot]

	mu     sync.Mutex
	peer   *pairEnd
	closed bool
}

// NewPair creates two directly connected links: whatever one publishes, the
// other receives.
func NewPair() (Link, Link) {
	a := &pairEnd{recv: events.NewCallbackEvent[workout.Snapshot](false)}
	b := &pairEnd{recv: events.NewCallbackEvent[workout.Snapshot](false)}
	a.peer = b
	b.peer = a
	return a, b
}

func (e *pairEnd) Publish(s workout.Snapshot) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	peer := e.peer
	e.mu.Unlock()

	peer.deliver(s)
	return nil
}

func (e *pairEnd) deliver(s workout.Snapshot) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return
	}
	e.recv.Publish(s)
}

func (e *pairEnd) OnReceive(fn func(workout.Snapshot)) func() {
	return e.recv.Subscribe(fn)
}

func (e *pairEnd) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
