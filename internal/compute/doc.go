// Package compute derives the displayed rates from the raw pulse
// accumulator.
//
// engine.go provides Aggregate, the once-per-tick fold applied to the shared
// rate state while the dispatcher holds it: the accumulator becomes the
// newest history sample, cps and cpm are recomputed, and the display scale is
// refitted so the tallest bar fills the plot height.
//
// scale.go holds the isolated scale rule. A history with no counts keeps the
// previous scale instead of dividing by zero.
package compute
