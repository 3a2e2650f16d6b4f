// Package dispatch owns the single consumer of the event queue. It applies
// each event to the shared rate state, asks for a redraw and tears the
// producers down when the user backs out.
package dispatch
