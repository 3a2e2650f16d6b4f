package source

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// ReaderEdge is an EdgeNotifier over a byte stream where every byte is one
// edge. USB tube boards commonly emit a single character per detected
// pulse; line settings are left to the device driver.
type ReaderEdge struct {
	name string
	open func() (io.ReadCloser, error)

	mu     sync.Mutex
	rc     io.ReadCloser
	closed bool
	wg     sync.WaitGroup
}

// NewSerialEdge reads edges from a character device or file.
func NewSerialEdge(device string) *ReaderEdge {
	return NewReaderEdge(device, func() (io.ReadCloser, error) {
		return os.Open(device)
	})
}

// NewReaderEdge reads edges from whatever open returns.
func NewReaderEdge(name string, open func() (io.ReadCloser, error)) *ReaderEdge {
	return &ReaderEdge{name: name, open: open}
}

// Register opens the stream and starts delivering edges.
func (r *ReaderEdge) Register(onEdge func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rc != nil {
		return errors.New("source: reader edge already registered")
	}
	rc, err := r.open()
	if err != nil {
		return fmt.Errorf("source: open %s: %w", r.name, err)
	}
	r.rc = rc
	r.closed = false

	r.wg.Add(1)
	go r.run(rc, onEdge)
	return nil
}

func (r *ReaderEdge) run(rc io.Reader, onEdge func()) {
	defer r.wg.Done()
	var buf [64]byte
	for {
		n, err := rc.Read(buf[:])
		for i := 0; i < n; i++ {
			onEdge()
		}
		if err != nil {
			r.mu.Lock()
			closed := r.closed
			r.mu.Unlock()
			switch {
			case closed:
			case errors.Is(err, io.EOF):
				slog.Info("source: edge stream ended", "device", r.name)
			default:
				slog.Warn("source: edge stream read failed", "device", r.name, "err", err)
			}
			return
		}
	}
}

// Deregister closes the stream and waits for the reader to exit.
func (r *ReaderEdge) Deregister() {
	r.mu.Lock()
	if r.rc != nil {
		r.closed = true
		r.rc.Close()
		r.rc = nil
	}
	r.mu.Unlock()
	r.wg.Wait()
}
