package fabric

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"matchfabric/domain"
)

func TestEventQueueFIFOOrder(t *testing.T) {
	q := NewEventQueue(8)

	for i := uint64(1); i <= 5; i++ {
		require.True(t, q.TryPush(domain.Event{OrderID: i}))
	}
	require.Equal(t, 5, q.Len())

	for i := uint64(1); i <= 5; i++ {
		ev, ok := q.TryPop()
		require.True(t, ok)
		require.Equal(t, i, ev.OrderID)
	}

	_, ok := q.TryPop()
	require.False(t, ok)
	require.Equal(t, 0, q.Len())
}

func TestEventQueueRejectsWhenFull(t *testing.T) {
	q := NewEventQueue(4)

	for i := uint64(1); i <= 4; i++ {
		require.True(t, q.TryPush(domain.Event{OrderID: i}))
	}
	require.False(t, q.TryPush(domain.Event{OrderID: 5}))

	// Draining one slot re-admits one push.
	_, ok := q.TryPop()
	require.True(t, ok)
	require.True(t, q.TryPush(domain.Event{OrderID: 5}))
}

func TestEventQueueWrapsAround(t *testing.T) {
	q := NewEventQueue(4)

	next := uint64(1)
	for round := 0; round < 10; round++ {
		for i := 0; i < 3; i++ {
			require.True(t, q.TryPush(domain.Event{OrderID: next}))
			next++
		}
		for i := 0; i < 3; i++ {
			_, ok := q.TryPop()
			require.True(t, ok)
		}
	}
	require.Equal(t, 0, q.Len())
}

func TestEventQueuePowerOfTwoRequired(t *testing.T) {
	require.Panics(t, func() { NewEventQueue(3) })
	require.Panics(t, func() { NewEventQueue(0) })
}

func TestEventQueueConcurrentProducersSingleConsumer(t *testing.T) {
	const (
		producers  = 4
		perProducer = 10000
	)

	q := NewEventQueue(1024)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				ev := domain.Event{OrderID: uint64(p*perProducer + i + 1)}
				for !q.TryPush(ev) {
					// Full: spin until the consumer catches up.
				}
			}
		}()
	}

	received := make(map[uint64]bool, producers*perProducer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for len(received) < producers*perProducer {
			ev, ok := q.TryPop()
			if !ok {
				continue
			}
			if received[ev.OrderID] {
				t.Errorf("event %d delivered twice", ev.OrderID)
				return
			}
			received[ev.OrderID] = true
		}
	}()

	wg.Wait()
	<-done
	require.Len(t, received, producers*perProducer)
}
