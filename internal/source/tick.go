package source

import (
	"context"
	"time"

	"github.com/obsidianstack/geiger/internal/actuate"
)

// TickPeriod is the sampling period: one history slot per tick.
const TickPeriod = 1000 * time.Millisecond

// Periodic invokes a callback at a fixed period until Deregister.
type Periodic interface {
	Register(period time.Duration, fn func()) error
	Deregister()
}

// TickSource emits one Tick event per TickPeriod.
//
// A tick that cannot be enqueued is dropped and never retried; the next
// delivered tick then folds more than one second of pulses into its sample.
type TickSource struct {
	q      *Queue
	timer  Periodic
	act    actuate.Actuator
	policy Policy
}

// NewTickSource builds a tick producer with the DropWhenFull policy.
func NewTickSource(q *Queue, timer Periodic, act actuate.Actuator) *TickSource {
	return &TickSource{q: q, timer: timer, act: act, policy: DropWhenFull}
}

// Start registers with the periodic timer at TickPeriod.
func (t *TickSource) Start() error {
	return t.timer.Register(TickPeriod, t.onTick)
}

// Stop stops the periodic timer.
func (t *TickSource) Stop() {
	t.timer.Deregister()
}

func (t *TickSource) onTick() {
	t.act.Drive(actuate.RandomIntensity(), actuate.ClickDuration)
	t.q.Enqueue(context.Background(), Tick(), t.policy) //nolint:errcheck
}
