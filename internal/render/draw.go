package render

import (
	"fmt"

	"github.com/obsidianstack/geiger/internal/compute"
	"github.com/obsidianstack/geiger/internal/ratestate"
	"github.com/obsidianstack/geiger/pkg/types"
)

// Readout anchor: centered horizontally, baseline on this row.
const (
	textX = types.ScreenWidth / 2
	textY = 10
)

// Surface is a monochrome drawing target of ScreenWidth x ScreenHeight.
type Surface interface {
	// Clear blanks the pending frame.
	Clear()
	// VLine lights column x from row y0 to row y1 inclusive. Pixels
	// outside the screen are ignored.
	VLine(x, y0, y1 int)
	// TextCentered draws s centered on x with its baseline on y.
	TextCentered(x, y int, s string)
	// Flush presents the pending frame.
	Flush() error
}

// Readout is the numeric line shown above the histogram.
func Readout(snap ratestate.Snapshot) string {
	return fmt.Sprintf("%d cps - %d cpm", snap.CPS, snap.CPM)
}

// BarTop is the row the bar of slot i starts at. Bars grow up from the
// bottom edge and never start above row 0. The top row is truncated after
// subtracting, so a fractional height rounds the bar up.
func BarTop(snap ratestate.Snapshot, i int) int {
	return int(types.ScreenHeight - compute.BarHeight(snap.History[i], snap.Scale))
}

// Draw renders one full frame of snap onto s. Slot i (0 is the newest
// second) covers columns 2i and 2i+1.
func Draw(s Surface, snap ratestate.Snapshot) error {
	s.Clear()
	for i := 0; i < ratestate.HistoryLen; i++ {
		top := BarTop(snap, i)
		s.VLine(2*i, top, types.ScreenHeight)
		s.VLine(2*i+1, top, types.ScreenHeight)
	}
	s.TextCentered(textX, textY, Readout(snap))
	return s.Flush()
}
