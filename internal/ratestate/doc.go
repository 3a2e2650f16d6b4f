// Package ratestate holds the single shared record the counter is built
// around: the pulse accumulator, the per-second history ring, the derived
// cps/cpm rates and the display scale.
//
// history.go implements the fixed 64-slot ring. Pushes are O(1) through a
// write cursor; reads are addressed newest-first so At(0) is always the most
// recently completed second.
//
// state.go wraps the record in a Guard. The dispatcher (sole writer) and the
// renderer (sole reader) reach it only through Guard.With and
// Guard.Snapshot, which hold a mutex for the duration of one closure or one
// copy and release it on every exit path.
package ratestate
