package render

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/obsidianstack/geiger/internal/ratestate"
)

// Renderer redraws every surface from the shared state on request.
// Requests made while a frame is pending collapse into one.
type Renderer struct {
	guard    *ratestate.Guard
	surfaces []Surface
	req      chan struct{}
	frames   atomic.Uint64
}

// New returns a Renderer drawing to surfaces.
func New(guard *ratestate.Guard, surfaces ...Surface) *Renderer {
	return &Renderer{
		guard:    guard,
		surfaces: surfaces,
		req:      make(chan struct{}, 1),
	}
}

// Request asks for a redraw. It never blocks.
func (r *Renderer) Request() {
	select {
	case r.req <- struct{}{}:
	default:
	}
}

// Run draws a frame per request until ctx ends.
func (r *Renderer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.req:
			r.RenderOnce()
		}
	}
}

// RenderOnce takes a snapshot and draws it on every surface. A failing
// surface is logged and skipped.
func (r *Renderer) RenderOnce() {
	snap := r.guard.Snapshot()
	for _, s := range r.surfaces {
		if err := Draw(s, snap); err != nil {
			slog.Warn("render: flush failed", "err", err)
		}
	}
	r.frames.Add(1)
}

// Frames returns how many frames were drawn.
func (r *Renderer) Frames() uint64 {
	return r.frames.Load()
}
