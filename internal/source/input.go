package source

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrInputClosed is returned by Press after the input source is stopped.
var ErrInputClosed = errors.New("source: input closed")

// InputSource delivers user button presses. Presses are never dropped: a
// press waits for queue space until its context ends.
type InputSource struct {
	q      *Queue
	policy Policy
	closed atomic.Bool
}

// NewInputSource builds an input producer with the BlockWhenFull policy.
func NewInputSource(q *Queue) *InputSource {
	return &InputSource{q: q, policy: BlockWhenFull}
}

// Press enqueues a Button event, blocking while the queue is full.
func (in *InputSource) Press(ctx context.Context, k Key, p Press) error {
	if in.closed.Load() {
		return ErrInputClosed
	}
	return in.q.Enqueue(ctx, Button(k, p), in.policy)
}

// Stop rejects further presses. Once the dispatcher has stopped reading,
// a blocking press would otherwise wait for its full context.
func (in *InputSource) Stop() {
	in.closed.Store(true)
}
