package actuate

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// Output parameters used by the pulse and tick sources.
const (
	// MaxIntensity is the top of the random intensity range [0, MaxIntensity].
	MaxIntensity = 15

	// StartupIntensity is driven once when the counter comes up.
	StartupIntensity = 5

	// ClickDuration is how long a single click is driven.
	ClickDuration = 20 * time.Millisecond
)

// Actuator drives an output at an intensity for a duration.
// Implementations must be safe for concurrent use and must not block.
type Actuator interface {
	Drive(intensity int, d time.Duration)
	Off()
}

// RandomIntensity draws a uniform intensity in [0, MaxIntensity].
func RandomIntensity() int {
	return rand.Intn(MaxIntensity + 1)
}

// New returns the Actuator for kind. w is the terminal a bell writes to.
func New(kind string, w io.Writer) (Actuator, error) {
	switch kind {
	case "bell":
		return NewBell(w), nil
	case "log":
		return Log{}, nil
	case "none", "":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("actuate: unknown actuator %q", kind)
	}
}

// ForOutput is New for an actuator whose output goes to w. A bell needs an
// interactive terminal; with interactive false it is replaced by Log.
func ForOutput(kind string, w io.Writer, interactive bool) (Actuator, error) {
	if kind == "bell" && !interactive {
		slog.Info("actuate: output is not a terminal, logging clicks instead of ringing")
		return Log{}, nil
	}
	return New(kind, w)
}

// Bell rings the terminal bell. Intensity 0 is silent; any other intensity
// rings once, at most once per drive duration.
type Bell struct {
	mu   sync.Mutex
	w    io.Writer
	last time.Time
	off  bool
	now  func() time.Time // injectable for deterministic tests
}

// NewBell returns a Bell writing to w.
func NewBell(w io.Writer) *Bell {
	return &Bell{w: w, now: time.Now}
}

// Drive rings the bell unless silenced, rate limited, or turned off.
func (b *Bell) Drive(intensity int, d time.Duration) {
	if intensity <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.off {
		return
	}
	now := b.now()
	if !b.last.IsZero() && now.Sub(b.last) < d {
		return
	}
	b.last = now
	b.w.Write([]byte{'\a'}) //nolint:errcheck
}

// Off silences the bell permanently.
func (b *Bell) Off() {
	b.mu.Lock()
	b.off = true
	b.mu.Unlock()
}

// Log records every drive as a debug log line.
type Log struct{}

func (Log) Drive(intensity int, d time.Duration) {
	slog.Debug("actuate: drive", "intensity", intensity, "duration", d)
}

func (Log) Off() {
	slog.Debug("actuate: off")
}

// Nop discards every drive.
type Nop struct{}

func (Nop) Drive(int, time.Duration) {}
func (Nop) Off()                     {}
