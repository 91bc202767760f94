package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackEvent_SubscribePublish(t *testing.T) {
	ev := NewCallbackEvent[string](false)
	require.NotNil(t, ev)

	var mu sync.Mutex
	var got []string
	cancel := ev.Subscribe(func(v string) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	})
	assert.Equal(t, 1, ev.SubscriberCount())

	ev.Publish("a")
	ev.Publish("b")

	mu.Lock()
	assert.Equal(t, []string{"a", "b"}, got)
	mu.Unlock()

	cancel()
	assert.Equal(t, 0, ev.SubscriberCount())

	ev.Publish("c")
	mu.Lock()
	assert.Equal(t, 2, len(got))
	mu.Unlock()
}

func TestCallbackEvent_CancelTwice(t *testing.T) {
	ev := NewCallbackEvent[int](false)
	cancel := ev.Subscribe(func(int) {})
	cancel()
	cancel() // second cancel is a no-op
	assert.Equal(t, 0, ev.SubscriberCount())
}

func TestCallbackEvent_ReplayLast(t *testing.T) {
	ev := NewCallbackEvent[int](true)
	ev.Publish(7)

	var got []int
	ev.Subscribe(func(v int) { got = append(got, v) })
	require.Equal(t, []int{7}, got, "late subscriber should see the last value")

	ev.Publish(8)
	assert.Equal(t, []int{7, 8}, got)
}

func TestCallbackEvent_NoReplayWithoutPublish(t *testing.T) {
	ev := NewCallbackEvent[int](true)

	called := false
	ev.Subscribe(func(int) { called = true })
	assert.False(t, called)
}

func TestCallbackEvent_MultipleSubscribers(t *testing.T) {
	ev := NewCallbackEvent[int](false)

	var a, b []int
	ev.Subscribe(func(v int) { a = append(a, v) })
	cancelB := ev.Subscribe(func(v int) { b = append(b, v) })
	assert.Equal(t, 2, ev.SubscriberCount())

	ev.Publish(1)
	cancelB()
	ev.Publish(2)

	assert.Equal(t, []int{1, 2}, a)
	assert.Equal(t, []int{1}, b)
}

func TestCallbackEvent_NilCallbackPanics(t *testing.T) {
	ev := NewCallbackEvent[int](false)
	assert.Panics(t, func() { ev.Subscribe(nil) })
}

func TestCallbackEvent_ConcurrentPublish(t *testing.T) {
	ev := NewCallbackEvent[int](false)

	var mu sync.Mutex
	count := 0
	ev.Subscribe(func(int) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ev.Publish(j)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	assert.Equal(t, 1000, count)
	mu.Unlock()
}
