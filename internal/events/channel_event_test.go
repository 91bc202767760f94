package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelEvent_SubscribePublish(t *testing.T) {
	ev := NewChannelEvent[string](false)

	ch := make(chan string, 4)
	cancel := ev.Subscribe(ch)
	assert.Equal(t, 1, ev.SubscriberCount())

	ev.Publish("a")
	ev.Publish("b")

	assert.Equal(t, "a", <-ch)
	assert.Equal(t, "b", <-ch)

	cancel()
	ev.Publish("c")
	select {
	case v := <-ch:
		t.Fatalf("received %q after cancel", v)
	default:
	}
}

func TestChannelEvent_FullChannelDropped(t *testing.T) {
	ev := NewChannelEvent[int](false)

	ch := make(chan int, 1)
	ev.Subscribe(ch)

	ev.Publish(1)
	ev.Publish(2) // dropped, buffer full

	assert.Equal(t, 1, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected value %d", v)
	default:
	}
}

func TestChannelEvent_ReplayLast(t *testing.T) {
	ev := NewChannelEvent[int](true)
	ev.Publish(42)

	ch := make(chan int, 1)
	ev.Subscribe(ch)
	require.Equal(t, 42, <-ch)
}

func TestChannelEvent_NilChannelPanics(t *testing.T) {
	ev := NewChannelEvent[int](false)
	assert.Panics(t, func() { ev.Subscribe(nil) })
}
