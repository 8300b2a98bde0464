package queue

import (
	"context"
	"sync/atomic"
	"time"

	"k8s.io/utils/clock"

	"github.com/G-Research/logship/internal/logship/model"
)

// Queue is a bounded FIFO of events between any number of producers and a single consumer.
// Offer never blocks: an event that does not fit is dropped. Queued events are never evicted.
type Queue struct {
	events  chan model.Event
	clock   clock.Clock
	dropped atomic.Uint64
}

func New(capacity int, clk clock.Clock) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		events: make(chan model.Event, capacity),
		clock:  clk,
	}
}

// Offer enqueues e if there is room and reports whether it did. Safe for concurrent use.
func (q *Queue) Offer(e model.Event) bool {
	select {
	case q.events <- e:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Take waits up to timeout for an event. It returns false if the timeout expires or ctx is done first.
func (q *Queue) Take(ctx context.Context, timeout time.Duration) (model.Event, bool) {
	if e, ok := q.TryTake(); ok {
		return e, true
	}
	timer := q.clock.NewTimer(timeout)
	defer timer.Stop()
	select {
	case e := <-q.events:
		return e, true
	case <-timer.C():
		return model.Event{}, false
	case <-ctx.Done():
		return model.Event{}, false
	}
}

// TryTake returns the next event without waiting
func (q *Queue) TryTake() (model.Event, bool) {
	select {
	case e := <-q.events:
		return e, true
	default:
		return model.Event{}, false
	}
}

// Len is the number of events currently queued
func (q *Queue) Len() int {
	return len(q.events)
}

func (q *Queue) Cap() int {
	return cap(q.events)
}

// Dropped is the number of events rejected by Offer since the queue was created
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
