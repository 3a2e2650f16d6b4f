package source

import (
	"errors"
	"math/rand"
	"sync"
	"time"
)

// SimEdge is an EdgeNotifier that synthesises edges as a Poisson process
// with a mean rate of cps edges per second. It stands in for a tube when
// no hardware is attached.
type SimEdge struct {
	cps  float64
	seed int64

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewSimEdge returns a simulator. A non-positive cps never fires.
func NewSimEdge(cps float64, seed int64) *SimEdge {
	return &SimEdge{cps: cps, seed: seed}
}

// Register starts the simulated edge stream.
func (s *SimEdge) Register(onEdge func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return errors.New("source: sim edge already registered")
	}
	s.stop = make(chan struct{})

	s.wg.Add(1)
	go s.run(s.stop, onEdge)
	return nil
}

func (s *SimEdge) run(stop <-chan struct{}, onEdge func()) {
	defer s.wg.Done()
	if s.cps <= 0 {
		<-stop
		return
	}

	rng := rand.New(rand.NewSource(s.seed))
	timer := time.NewTimer(s.nextGap(rng))
	defer timer.Stop()
	for {
		select {
		case <-stop:
			return
		case <-timer.C:
			onEdge()
			timer.Reset(s.nextGap(rng))
		}
	}
}

// nextGap draws an exponential inter-arrival time.
func (s *SimEdge) nextGap(rng *rand.Rand) time.Duration {
	return time.Duration(rng.ExpFloat64() / s.cps * float64(time.Second))
}

// Deregister stops the stream and waits for the generator to exit.
func (s *SimEdge) Deregister() {
	s.mu.Lock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
}
