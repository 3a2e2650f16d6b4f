package ratestate

import (
	"sync"

	"github.com/obsidianstack/geiger/pkg/types"
)

// DefaultScale is the display scale before the first non-empty tick.
const DefaultScale = 1.0

// State is the live rate record. It is only ever reached through a Guard.
type State struct {
	// Accumulator counts pulses observed since the last tick.
	Accumulator uint32

	History History

	// CPS equals History.At(0) after each tick.
	CPS uint32

	// CPM equals History.Sum(MinuteWindow) after each tick.
	CPM uint64

	// Scale is vertical pixels per count. Always positive and finite.
	Scale float64
}

// Reset clears counters and history. Scale is left as is so the display
// does not jump on a manual reset.
func (s *State) Reset() {
	s.Accumulator = 0
	s.CPS = 0
	s.CPM = 0
	s.History.Reset()
}

// Snapshot copies the state into a plain value.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Accumulator: s.Accumulator,
		History:     s.History.Samples(),
		CPS:         s.CPS,
		CPM:         s.CPM,
		Scale:       s.Scale,
	}
}

// Snapshot is a point-in-time copy of State, safe to use without the lock.
type Snapshot struct {
	Accumulator uint32
	History     [HistoryLen]uint32 // newest first
	CPS         uint32
	CPM         uint64
	Scale       float64
}

// Reading converts the snapshot to its wire form.
func (s Snapshot) Reading(generatedAt string) types.Reading {
	hist := make([]uint32, HistoryLen)
	copy(hist, s.History[:])
	return types.Reading{
		CPS:         s.CPS,
		CPM:         s.CPM,
		Pending:     s.Accumulator,
		Scale:       s.Scale,
		History:     hist,
		GeneratedAt: generatedAt,
	}
}

// Guard serialises access to the one State instance.
//
// All exported methods are safe for concurrent use. The closure passed to
// With receives the State, not the Guard, so it cannot re-enter.
type Guard struct {
	mu sync.Mutex
	st State
}

// NewGuard returns a Guard over a zeroed State with DefaultScale.
func NewGuard() *Guard {
	return &Guard{st: State{Scale: DefaultScale}}
}

// With runs fn while holding exclusive access to the state.
func (g *Guard) With(fn func(*State)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(&g.st)
}

// Snapshot returns a consistent copy of the state.
func (g *Guard) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.st.Snapshot()
}
