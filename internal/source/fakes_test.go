package source

import (
	"sync"
	"time"
)

// recActuator records every drive.
type recActuator struct {
	mu     sync.Mutex
	drives []int
	offs   int
}

func (a *recActuator) Drive(intensity int, _ time.Duration) {
	a.mu.Lock()
	a.drives = append(a.drives, intensity)
	a.mu.Unlock()
}

func (a *recActuator) Off() {
	a.mu.Lock()
	a.offs++
	a.mu.Unlock()
}

func (a *recActuator) driveCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.drives)
}

// manualEdge fires edges only when the test calls fire.
type manualEdge struct {
	onEdge       func()
	deregistered bool
}

func (m *manualEdge) Register(onEdge func()) error {
	m.onEdge = onEdge
	return nil
}

func (m *manualEdge) Deregister() {
	m.deregistered = true
	m.onEdge = nil
}

func (m *manualEdge) fire() {
	if m.onEdge != nil {
		m.onEdge()
	}
}

// manualTimer is a Periodic driven by the test.
type manualTimer struct {
	period       time.Duration
	fn           func()
	deregistered bool
}

func (m *manualTimer) Register(period time.Duration, fn func()) error {
	m.period = period
	m.fn = fn
	return nil
}

func (m *manualTimer) Deregister() {
	m.deregistered = true
	m.fn = nil
}

func (m *manualTimer) fire() {
	if m.fn != nil {
		m.fn()
	}
}
