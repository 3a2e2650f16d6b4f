// Package actuate drives the cosmetic feedback output: the audible click a
// counter makes on every pulse and on every tick. Nothing it does feeds back
// into the rate computation.
//
// Kinds: bell (terminal BEL, rate limited), log (slog debug line), none.
package actuate
