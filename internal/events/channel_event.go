package events

import "sync"

// ChannelEvent is the channel-based sibling of CallbackEvent, for
// subscribers that drain events from a select loop (the dashboard, the sync
// publisher). Sends are non-blocking: a subscriber whose channel is full
// misses that value, which is acceptable because every event carries a full
// snapshot rather than a delta.
type ChannelEvent[T any] struct {
	mu         sync.RWMutex
	nextID     uint64
	sinks      map[uint64]chan<- T
	replayLast bool
	last       T
	hasLast    bool
}

// NewChannelEvent creates a ChannelEvent; replayLast behaves as in
// NewCallbackEvent.
func NewChannelEvent[T any](replayLast bool) *ChannelEvent[T] {
	return &ChannelEvent[T]{
		sinks:      make(map[uint64]chan<- T),
		replayLast: replayLast,
	}
}

// Subscribe registers ch to receive published values and returns a cancel
// function. The caller keeps ownership of ch and decides its buffering.
func (e *ChannelEvent[T]) Subscribe(ch chan<- T) func() {
	if ch == nil {
		panic("events: nil channel")
	}

	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.sinks[id] = ch
	replay := e.replayLast && e.hasLast
	last := e.last
	e.mu.Unlock()

	if replay {
		select {
		case ch <- last:
		default:
		}
	}

	return func() {
		e.mu.Lock()
		delete(e.sinks, id)
		e.mu.Unlock()
	}
}

// Publish sends value to every subscribed channel without blocking.
func (e *ChannelEvent[T]) Publish(value T) {
	e.mu.Lock()
	if e.replayLast {
		e.last = value
		e.hasLast = true
	}
	sinks := make([]chan<- T, 0, len(e.sinks))
	for _, ch := range e.sinks {
		sinks = append(sinks, ch)
	}
	e.mu.Unlock()

	for _, ch := range sinks {
		select {
		case ch <- value:
		default:
		}
	}
}

// SubscriberCount reports the number of registered channels.
func (e *ChannelEvent[T]) SubscriberCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.sinks)
}
