package types

import "time"

// Screen geometry of the histogram display. These are fixed for the life of
// the process; the history depth is one slot per pair of pixel columns.
const (
	ScreenWidth  = 128
	ScreenHeight = 64

	// TextMargin is the band at the top of the screen reserved for the
	// numeric readout. Bars are scaled to fit below it.
	TextMargin = 15

	// PlotHeight is the vertical space available to the tallest bar.
	PlotHeight = ScreenHeight - TextMargin
)

// Reading is the wire representation of one rate snapshot.
type Reading struct {
	CPS         uint32   `json:"cps"`
	CPM         uint64   `json:"cpm"`
	Pending     uint32   `json:"pending"` // pulses since the last tick
	Scale       float64  `json:"scale"`
	History     []uint32 `json:"history"` // newest first
	GeneratedAt string   `json:"generated_at"`
}

// FormatTime renders t the way every Reading timestamp is rendered.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
