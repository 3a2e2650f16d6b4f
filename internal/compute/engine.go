package compute

import (
	"github.com/obsidianstack/geiger/internal/ratestate"
)

// Aggregate folds the accumulated pulses into the history and recomputes
// every derived field. It must be called with exclusive access to st.
//
// The oldest sample is discarded, the accumulator is reset, cps becomes the
// newest sample and cpm the sum of the newest MinuteWindow samples. Samples
// outside the minute window still count towards the scale.
func Aggregate(st *ratestate.State) {
	st.History.Push(st.Accumulator)
	st.Accumulator = 0

	st.CPS = st.History.At(0)
	st.CPM = st.History.Sum(ratestate.MinuteWindow)
	st.Scale = ScaleFor(st.History.Max(), st.Scale)
}
