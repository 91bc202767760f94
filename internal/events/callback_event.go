package events

import "sync"

// CallbackEvent is a typed publish/subscribe point delivering values to
// registered callback functions. It replaces stringly-typed notification
// names with one event object per event kind.
//
// T is the value delivered to subscribers.
type CallbackEvent[T any] struct {
	mu         sync.RWMutex
	nextID     uint64
	callbacks  map[uint64]func(T)
	replayLast bool
	last       T
	hasLast    bool
}

// NewCallbackEvent creates a CallbackEvent. When replayLast is set, a new
// subscriber is immediately called with the most recently published value,
// if any; state-style events use this so late subscribers see the current
// value without waiting for the next change.
func NewCallbackEvent[T any](replayLast bool) *CallbackEvent[T] {
	return &CallbackEvent[T]{
		callbacks:  make(map[uint64]func(T)),
		replayLast: replayLast,
	}
}

// Subscribe registers fn and returns a cancel function that removes it.
// Cancel is safe to call more than once.
func (e *CallbackEvent[T]) Subscribe(fn func(T)) func() {
	if fn == nil {
		panic("events: nil callback")
	}

	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.callbacks[id] = fn
	replay := e.replayLast && e.hasLast
	last := e.last
	e.mu.Unlock()

	// Replay outside the lock; fn may publish or subscribe again.
	if replay {
		fn(last)
	}

	return func() {
		e.mu.Lock()
		delete(e.callbacks, id)
		e.mu.Unlock()
	}
}

// Publish delivers value to every subscriber. Callbacks run on the
// publisher's goroutine, outside the event's lock.
func (e *CallbackEvent[T]) Publish(value T) {
	e.mu.Lock()
	if e.replayLast {
		e.last = value
		e.hasLast = true
	}
	fns := make([]func(T), 0, len(e.callbacks))
	for _, fn := range e.callbacks {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}

// SubscriberCount reports the number of registered callbacks.
func (e *CallbackEvent[T]) SubscriberCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.callbacks)
}
