package compute

import (
	"math"

	"github.com/obsidianstack/geiger/pkg/types"
)

// ScaleFor returns the pixels-per-count factor that fits max into the plot
// height. When max is zero there is nothing to fit and prev is returned.
// A non-positive or non-finite prev is replaced by 1.
func ScaleFor(max uint32, prev float64) float64 {
	if max == 0 {
		if prev <= 0 || math.IsInf(prev, 0) || math.IsNaN(prev) {
			return 1
		}
		return prev
	}
	return float64(types.PlotHeight) / float64(max)
}

// BarHeight is the on-screen height in pixels of a sample drawn at scale,
// clamped to the screen height.
func BarHeight(sample uint32, scale float64) float64 {
	return clamp(float64(sample)*scale, 0, types.ScreenHeight)
}

// clamp restricts v to the range [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
