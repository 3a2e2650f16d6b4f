package source

import (
	"errors"
	"sync"
	"time"
)

// Timer is a Periodic backed by time.Ticker. It can be registered once at a
// time; Deregister is idempotent and waits for the callback goroutine to
// exit.
type Timer struct {
	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewTimer returns an idle Timer.
func NewTimer() *Timer {
	return &Timer{}
}

// Register starts calling fn every period.
func (t *Timer) Register(period time.Duration, fn func()) error {
	if period <= 0 {
		return errors.New("source: timer period must be positive")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		return errors.New("source: timer already registered")
	}
	t.stop = make(chan struct{})

	ticker := time.NewTicker(period)
	t.wg.Add(1)
	go func(stop <-chan struct{}) {
		defer t.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}(t.stop)
	return nil
}

// Deregister stops the timer.
func (t *Timer) Deregister() {
	t.mu.Lock()
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	t.mu.Unlock()
	t.wg.Wait()
}
