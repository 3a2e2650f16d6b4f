package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/obsidianstack/geiger/internal/compute"
	"github.com/obsidianstack/geiger/internal/ratestate"
	"github.com/obsidianstack/geiger/internal/source"
)

// ErrTerminated is returned by Run on a dispatcher that already stopped.
var ErrTerminated = errors.New("dispatch: already terminated")

// Phase is the dispatcher lifecycle state.
type Phase int32

const (
	Running Phase = iota
	Terminated
)

func (p Phase) String() string {
	if p == Terminated {
		return "terminated"
	}
	return "running"
}

// Stopper is anything torn down when the dispatcher terminates.
type Stopper interface {
	Stop()
}

// StopFunc adapts a plain function to Stopper.
type StopFunc func()

func (f StopFunc) Stop() { f() }

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTeardown appends stoppers run in order on termination.
func WithTeardown(s ...Stopper) Option {
	return func(d *Dispatcher) { d.teardown = append(d.teardown, s...) }
}

// WithTickObserver registers fn to receive the state as it was right after
// each tick. fn runs on the dispatcher goroutine without the state lock
// held and must not block.
func WithTickObserver(fn func(ratestate.Snapshot)) Option {
	return func(d *Dispatcher) { d.observers = append(d.observers, fn) }
}

// WithResetObserver registers fn to receive the state right after an Ok
// press clears it. The same rules as WithTickObserver apply.
func WithResetObserver(fn func(ratestate.Snapshot)) Option {
	return func(d *Dispatcher) { d.resets = append(d.resets, fn) }
}

// WithEventHook registers fn to see every event taken off the queue.
func WithEventHook(fn func(source.Event)) Option {
	return func(d *Dispatcher) { d.hooks = append(d.hooks, fn) }
}

// Dispatcher is the only reader of the event queue.
type Dispatcher struct {
	guard  *ratestate.Guard
	q      *source.Queue
	redraw func()

	teardown  []Stopper
	observers []func(ratestate.Snapshot)
	resets    []func(ratestate.Snapshot)
	hooks     []func(source.Event)

	phase atomic.Int32
	once  sync.Once
}

// New builds a dispatcher. redraw is called after every handled event
// except the one that terminates; it must not block.
func New(guard *ratestate.Guard, q *source.Queue, redraw func(), opts ...Option) *Dispatcher {
	if redraw == nil {
		redraw = func() {}
	}
	d := &Dispatcher{guard: guard, q: q, redraw: redraw}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Phase reports the current lifecycle state.
func (d *Dispatcher) Phase() Phase {
	return Phase(d.phase.Load())
}

// Run consumes events until a Back press or ctx ends, then tears down.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.Phase() == Terminated {
		return ErrTerminated
	}
	defer d.Shutdown()

	slog.Info("dispatch: running")
	for {
		select {
		case <-ctx.Done():
			d.terminate("context done")
			return nil
		case ev := <-d.q.Events():
			if !d.Handle(ev) {
				return nil
			}
			d.redraw()
		}
	}
}

// Handle applies one event. It returns false once the dispatcher has
// terminated, in which case no redraw is due.
func (d *Dispatcher) Handle(ev source.Event) bool {
	if d.Phase() == Terminated {
		return false
	}
	for _, h := range d.hooks {
		h(ev)
	}

	switch ev.Kind {
	case source.KindPulse:
		d.guard.With(func(st *ratestate.State) { st.Accumulator++ })

	case source.KindTick:
		var snap ratestate.Snapshot
		d.guard.With(func(st *ratestate.State) {
			compute.Aggregate(st)
			snap = st.Snapshot()
		})
		for _, fn := range d.observers {
			fn(snap)
		}

	case source.KindButton:
		switch {
		case ev.Key == source.KeyBack:
			d.terminate("back pressed")
			return false
		case ev.Key == source.KeyOk && ev.Press == source.PressShort:
			var snap ratestate.Snapshot
			d.guard.With(func(st *ratestate.State) {
				st.Reset()
				snap = st.Snapshot()
			})
			slog.Info("dispatch: counters reset")
			for _, fn := range d.resets {
				fn(snap)
			}
		}

	default:
		slog.Debug("dispatch: ignoring event", "event", ev.String())
	}
	return true
}

func (d *Dispatcher) terminate(reason string) {
	if d.phase.CompareAndSwap(int32(Running), int32(Terminated)) {
		slog.Info("dispatch: terminated", "reason", reason)
	}
}

// Shutdown marks the dispatcher terminated and runs the teardown list.
// Only the first call does anything.
func (d *Dispatcher) Shutdown() {
	d.terminate("shutdown")
	d.once.Do(func() {
		for _, s := range d.teardown {
			s.Stop()
		}
	})
}
