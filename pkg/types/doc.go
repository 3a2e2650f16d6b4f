// Package types defines shared Go types used by the counter core and its
// outer surfaces (REST API, WebSocket stream). It carries the fixed screen
// geometry the histogram is scaled against and the JSON shape of a reading,
// separate from the in-memory rate state.
package types
