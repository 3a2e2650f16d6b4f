package compute

import (
	"math"
	"math/rand"
	"testing"

	"github.com/obsidianstack/geiger/internal/ratestate"
	"github.com/obsidianstack/geiger/pkg/types"
)

// freshState returns a state as the dispatcher first sees it.
func freshState() *ratestate.State {
	return &ratestate.State{Scale: ratestate.DefaultScale}
}

// second simulates one second of n pulses followed by a tick.
func second(st *ratestate.State, n uint32) {
	for i := uint32(0); i < n; i++ {
		st.Accumulator++
	}
	Aggregate(st)
}

// sumNewest is the reference cpm computation.
func sumNewest(st *ratestate.State) uint64 {
	var total uint64
	for i := 0; i < ratestate.MinuteWindow; i++ {
		total += uint64(st.History.At(i))
	}
	return total
}

// --- single tick ------------------------------------------------------------

func TestAggregate_ThreePulsesOneTick(t *testing.T) {
	st := freshState()
	second(st, 3)

	if st.CPS != 3 {
		t.Errorf("CPS = %d, want 3", st.CPS)
	}
	if st.CPM != 3 {
		t.Errorf("CPM = %d, want 3", st.CPM)
	}
	if st.History.At(0) != 3 {
		t.Errorf("History[0] = %d, want 3", st.History.At(0))
	}
	for i := 1; i < ratestate.HistoryLen; i++ {
		if st.History.At(i) != 0 {
			t.Fatalf("History[%d] = %d, want 0", i, st.History.At(i))
		}
	}
	if st.Accumulator != 0 {
		t.Errorf("Accumulator = %d after tick, want 0", st.Accumulator)
	}
}

func TestAggregate_NPulsesBecomeNewestSample(t *testing.T) {
	for _, n := range []uint32{0, 1, 7, 8, 250} {
		st := freshState()
		second(st, n)
		if st.History.At(0) != n {
			t.Errorf("n=%d: History[0] = %d", n, st.History.At(0))
		}
		if st.Accumulator != 0 {
			t.Errorf("n=%d: Accumulator = %d, want 0", n, st.Accumulator)
		}
	}
}

// --- sliding minute window --------------------------------------------------

func TestAggregate_SixtySecondsOfOnePulse(t *testing.T) {
	st := freshState()
	for i := 0; i < 60; i++ {
		second(st, 1)
	}
	if st.CPM != 60 {
		t.Fatalf("CPM after 60 ticks = %d, want 60", st.CPM)
	}

	// 61st second with no pulses: the value rotated out of the window is 1
	// and the value rotated in is 0, so cpm drops by exactly 1.
	second(st, 0)
	if st.CPM != 59 {
		t.Errorf("CPM after empty 61st tick = %d, want 59", st.CPM)
	}

	// A 62nd second with 1 pulse rotates out a 1 and in a 1: unchanged.
	second(st, 1)
	if st.CPM != 59 {
		t.Errorf("CPM after 62nd tick = %d, want 59", st.CPM)
	}
}

func TestAggregate_CPMAlwaysSumOfNewestSixty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	st := freshState()
	for i := 0; i < 500; i++ {
		second(st, uint32(rng.Intn(20)))
		if want := sumNewest(st); st.CPM != want {
			t.Fatalf("tick %d: CPM = %d, want %d", i, st.CPM, want)
		}
		if st.CPS != st.History.At(0) {
			t.Fatalf("tick %d: CPS = %d, History[0] = %d", i, st.CPS, st.History.At(0))
		}
	}
}

func TestAggregate_OldSlotsExcludedFromCPM(t *testing.T) {
	st := freshState()
	second(st, 50)
	for i := 0; i < ratestate.MinuteWindow; i++ {
		second(st, 0)
	}
	// 50 now sits at index 60: outside the window, still in history.
	if st.History.At(60) != 50 {
		t.Fatalf("History[60] = %d, want 50", st.History.At(60))
	}
	if st.CPM != 0 {
		t.Errorf("CPM = %d, want 0", st.CPM)
	}
}

// --- idempotent empty tick --------------------------------------------------

func TestAggregate_EmptyTickOnlyRotates(t *testing.T) {
	st := freshState()
	for _, n := range []uint32{4, 2, 9, 1} {
		second(st, n)
	}
	before := st.History.Samples()
	prevCPM := st.CPM

	Aggregate(st)

	if st.CPS != 0 {
		t.Errorf("CPS = %d, want 0", st.CPS)
	}
	for i := 1; i < ratestate.HistoryLen; i++ {
		if st.History.At(i) != before[i-1] {
			t.Fatalf("History[%d] = %d, want %d (rotated)", i, st.History.At(i), before[i-1])
		}
	}
	want := prevCPM - uint64(before[ratestate.MinuteWindow-1])
	if st.CPM != want {
		t.Errorf("CPM = %d, want %d", st.CPM, want)
	}
}

// --- scale ------------------------------------------------------------------

func TestAggregate_AllZeroKeepsDefaultScale(t *testing.T) {
	st := freshState()
	Aggregate(st)
	if st.Scale != ratestate.DefaultScale {
		t.Errorf("Scale = %v, want default %v", st.Scale, ratestate.DefaultScale)
	}
}

func TestAggregate_AllZeroKeepsPriorScale(t *testing.T) {
	st := freshState()
	st.Scale = 3.5
	Aggregate(st)
	if st.Scale != 3.5 {
		t.Errorf("Scale = %v, want 3.5 unchanged", st.Scale)
	}
}

func TestAggregate_ScaleFitsTallestBar(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	st := freshState()
	for i := 0; i < 300; i++ {
		second(st, uint32(rng.Intn(400)))
		max := st.History.Max()
		if st.Scale <= 0 || math.IsInf(st.Scale, 0) || math.IsNaN(st.Scale) {
			t.Fatalf("tick %d: Scale = %v, want positive finite", i, st.Scale)
		}
		if max > 0 && st.Scale*float64(max) > float64(types.PlotHeight)+1e-9 {
			t.Fatalf("tick %d: Scale*max = %v exceeds plot height %d",
				i, st.Scale*float64(max), types.PlotHeight)
		}
	}
}

func TestAggregate_ScaleUsesSlotsBeyondMinute(t *testing.T) {
	st := freshState()
	second(st, 98)
	for i := 0; i < 62; i++ {
		second(st, 1)
	}
	// 98 is at index 62, outside cpm but still the max.
	want := float64(types.PlotHeight) / 98
	if st.Scale != want {
		t.Errorf("Scale = %v, want %v", st.Scale, want)
	}
}

func TestAggregate_ResetThenTick(t *testing.T) {
	st := freshState()
	second(st, 10)
	scale := st.Scale
	st.Reset()

	Aggregate(st)
	if st.CPM != 0 || st.CPS != 0 {
		t.Errorf("after reset+tick CPS=%d CPM=%d, want 0/0", st.CPS, st.CPM)
	}
	if st.Scale != scale {
		t.Errorf("Scale = %v, want %v kept across reset", st.Scale, scale)
	}
}
