package source

import (
	"context"

	"github.com/obsidianstack/geiger/internal/actuate"
)

// EdgeNotifier delivers hardware edges. Register arranges for onEdge to be
// called once per detected edge until Deregister. onEdge may be called from
// any goroutine, never concurrently with itself for a single notifier.
type EdgeNotifier interface {
	Register(onEdge func()) error
	Deregister()
}

// PulseSource turns each edge into one Pulse event and one click.
type PulseSource struct {
	q      *Queue
	edge   EdgeNotifier
	act    actuate.Actuator
	policy Policy
}

// NewPulseSource builds a pulse producer. Pulses are dropped, not queued,
// when the dispatcher is backlogged.
func NewPulseSource(q *Queue, edge EdgeNotifier, act actuate.Actuator) *PulseSource {
	return &PulseSource{q: q, edge: edge, act: act, policy: DropWhenFull}
}

// Start registers with the edge notifier.
func (p *PulseSource) Start() error {
	return p.edge.Register(p.onEdge)
}

// Stop deregisters from the edge notifier. No edges are delivered after
// Stop returns.
func (p *PulseSource) Stop() {
	p.edge.Deregister()
}

// onEdge runs in the notifier's delivery context and must stay cheap.
func (p *PulseSource) onEdge() {
	p.q.Enqueue(context.Background(), Pulse(), p.policy) //nolint:errcheck
	p.act.Drive(actuate.RandomIntensity(), actuate.ClickDuration)
}
