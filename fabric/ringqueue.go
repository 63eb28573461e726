package fabric

import (
	"sync/atomic"

	"matchfabric/domain"
)

// EventQueue is a bounded lock-free queue of events, the hand-off point
// between the ingress workers and one shard. Multiple workers TryPush;
// exactly one shard TryPops.
//
// Slot-sequence design: every slot carries a sequence number that
// encodes whether it is free for the current producer lap or holds data
// for the current consumer lap. Producers claim a slot with a single
// CAS on the enqueue cursor, then publish the payload by bumping the
// slot sequence - the sequence store is the release edge the consumer
// acquires, so a TryPop never observes a half-written event. Both
// operations are wait-free in the uncontended case and never block:
// TryPush reports false on a full queue (the fabric's drop policy),
// TryPop reports false on an empty one (the shard goes back to its
// wakeup channel).
type EventQueue struct {
	buf  []eventSlot
	mask uint64
	enq  atomic.Uint64
	deq  atomic.Uint64
}

type eventSlot struct {
	seq atomic.Uint64
	ev  domain.Event
}

// NewEventQueue creates a queue with the given capacity.
func NewEventQueue(capacity int) *EventQueue {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("EventQueue capacity must be a power of 2")
	}

	q := &EventQueue{
		buf:  make([]eventSlot, capacity),
		mask: uint64(capacity - 1),
	}
	for i := range q.buf {
		q.buf[i].seq.Store(uint64(i))
	}
	return q
}

// Cap returns the queue capacity.
func (q *EventQueue) Cap() int {
	return len(q.buf)
}

// Len estimates the number of queued events. Exact only when quiescent.
func (q *EventQueue) Len() int {
	n := int64(q.enq.Load()) - int64(q.deq.Load())
	if n < 0 {
		return 0
	}
	return int(n)
}

// TryPush enqueues ev, reporting false when the queue is full.
func (q *EventQueue) TryPush(ev domain.Event) bool {
	pos := q.enq.Load()
	for {
		slot := &q.buf[pos&q.mask]
		seq := slot.seq.Load()
		diff := int64(seq) - int64(pos)

		switch {
		case diff == 0:
			if q.enq.CompareAndSwap(pos, pos+1) {
				slot.ev = ev
				slot.seq.Store(pos + 1)
				return true
			}
			pos = q.enq.Load()
		case diff < 0:
			// Slot still holds last lap's data: full.
			return false
		default:
			pos = q.enq.Load()
		}
	}
}

// TryPop dequeues one event, reporting false when the queue is empty.
func (q *EventQueue) TryPop() (domain.Event, bool) {
	pos := q.deq.Load()
	for {
		slot := &q.buf[pos&q.mask]
		seq := slot.seq.Load()
		diff := int64(seq) - int64(pos+1)

		switch {
		case diff == 0:
			if q.deq.CompareAndSwap(pos, pos+1) {
				ev := slot.ev
				slot.seq.Store(pos + q.mask + 1)
				return ev, true
			}
			pos = q.deq.Load()
		case diff < 0:
			return domain.Event{}, false
		default:
			pos = q.deq.Load()
		}
	}
}
