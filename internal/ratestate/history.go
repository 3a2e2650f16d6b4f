package ratestate

// HistoryLen is the number of per-second samples retained.
const HistoryLen = 64

// MinuteWindow is the number of newest samples summed into counts per minute.
const MinuteWindow = 60

// History is a fixed-size ring of per-second pulse counts.
//
// The zero value is an all-zero history ready for use.
type History struct {
	buf  [HistoryLen]uint32
	head int // index in buf of the newest sample
}

// Push records v as the newest sample, discarding the oldest.
func (h *History) Push(v uint32) {
	h.head--
	if h.head < 0 {
		h.head = HistoryLen - 1
	}
	h.buf[h.head] = v
}

// At returns the sample i seconds old; At(0) is the newest.
// Out-of-range indices return 0.
func (h *History) At(i int) uint32 {
	if i < 0 || i >= HistoryLen {
		return 0
	}
	return h.buf[(h.head+i)%HistoryLen]
}

// Sum adds the n newest samples. n is capped at HistoryLen.
func (h *History) Sum(n int) uint64 {
	if n > HistoryLen {
		n = HistoryLen
	}
	var total uint64
	for i := 0; i < n; i++ {
		total += uint64(h.At(i))
	}
	return total
}

// Max returns the largest sample across all slots.
func (h *History) Max() uint32 {
	var m uint32
	for _, v := range h.buf {
		if v > m {
			m = v
		}
	}
	return m
}

// Reset zero-fills the ring.
func (h *History) Reset() {
	*h = History{}
}

// Samples returns a newest-first copy of the ring.
func (h *History) Samples() [HistoryLen]uint32 {
	var out [HistoryLen]uint32
	for i := range out {
		out[i] = h.At(i)
	}
	return out
}
