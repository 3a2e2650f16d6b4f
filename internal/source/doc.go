// Package source provides the asynchronous producers that feed the event
// dispatcher and the queue they share.
//
// event.go defines the Event tagged value (Pulse, Tick, Button).
//
// queue.go is the bounded delivery channel. Every producer is built with an
// explicit Policy: the time-critical pulse and tick producers use
// DropWhenFull and never stall their caller; the input producer uses
// BlockWhenFull because a reset or exit must not be lost.
//
// pulse.go, tick.go and input.go are the three producers. Pulse registers
// with an EdgeNotifier (sim.go, serial.go, scrape.go), Tick with a Periodic
// timer (periodic.go), and Input is fed by the terminal keyboard
// (keyboard.go) and the HTTP API.
package source
