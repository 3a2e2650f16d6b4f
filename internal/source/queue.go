package source

import (
	"context"
	"errors"
	"sync/atomic"
)

// QueueCapacity is the number of events the dispatcher may lag behind its
// producers before pulses and ticks start being dropped.
const QueueCapacity = 8

// ErrQueueFull is returned by a DropWhenFull enqueue that discarded its event.
var ErrQueueFull = errors.New("source: event queue full")

// Policy selects what an enqueue does when the queue is full.
type Policy uint8

const (
	// DropWhenFull discards the event and returns immediately.
	DropWhenFull Policy = iota
	// BlockWhenFull waits until the event is accepted or ctx ends.
	BlockWhenFull
)

func (p Policy) String() string {
	if p == BlockWhenFull {
		return "block"
	}
	return "drop"
}

// Queue is the single delivery channel between all producers and the
// dispatcher. Events are delivered in the order they were accepted.
type Queue struct {
	ch      chan Event
	dropped [kindCount]atomic.Uint64
}

// NewQueue creates a Queue holding up to capacity events.
func NewQueue(capacity int) *Queue {
	return &Queue{ch: make(chan Event, capacity)}
}

// Enqueue offers ev under policy p. ctx is only consulted by BlockWhenFull.
func (q *Queue) Enqueue(ctx context.Context, ev Event, p Policy) error {
	if p == BlockWhenFull {
		select {
		case q.ch <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	select {
	case q.ch <- ev:
		return nil
	default:
		if int(ev.Kind) < len(q.dropped) {
			q.dropped[ev.Kind].Add(1)
		}
		return ErrQueueFull
	}
}

// Events is the receive side, read only by the dispatcher.
func (q *Queue) Events() <-chan Event {
	return q.ch
}

// Dropped returns how many events of kind k were discarded so far.
func (q *Queue) Dropped(k Kind) uint64 {
	if int(k) >= len(q.dropped) {
		return 0
	}
	return q.dropped[k].Load()
}

// Len returns the number of events waiting.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the capacity of the queue.
func (q *Queue) Cap() int {
	return cap(q.ch)
}
