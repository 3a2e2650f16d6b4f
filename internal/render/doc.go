// Package render draws the rate histogram and readout. Drawing works on a
// snapshot so the shared state lock is never held while pixels are pushed.
package render
