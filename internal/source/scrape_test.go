package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/obsidianstack/geiger/internal/config"
)

// counterServer serves a pulse counter whose value the test controls.
func counterServer(t *testing.T, value *atomic.Int64, check func(*http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprintf(w, `# HELP geiger_pulses_total Pulses seen by the tube.
# TYPE geiger_pulses_total counter
geiger_pulses_total{tube="a"} %d
geiger_pulses_total{tube="b"} 0
# TYPE other_gauge gauge
other_gauge 7
`, value.Load())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPromEdge_PollReplaysDelta(t *testing.T) {
	var value atomic.Int64
	value.Store(100)
	srv := counterServer(t, &value, nil)

	p, err := NewPromEdge(config.PulseConfig{Endpoint: srv.URL, Metric: "geiger_pulses_total"})
	if err != nil {
		t.Fatalf("NewPromEdge() error = %v", err)
	}
	var edges int
	onEdge := func() { edges++ }
	ctx := context.Background()

	// First scrape is the baseline.
	if n, err := p.poll(ctx, onEdge); err != nil || n != 0 {
		t.Fatalf("baseline poll = %d, %v; want 0, nil", n, err)
	}

	value.Store(104)
	if n, err := p.poll(ctx, onEdge); err != nil || n != 4 {
		t.Fatalf("poll = %d, %v; want 4, nil", n, err)
	}

	// Counter reset: baseline moves, nothing fires.
	value.Store(2)
	if n, _ := p.poll(ctx, onEdge); n != 0 {
		t.Errorf("poll after reset = %d, want 0", n)
	}
	value.Store(5)
	if n, _ := p.poll(ctx, onEdge); n != 3 {
		t.Errorf("poll after reset+3 = %d, want 3", n)
	}
	if edges != 7 {
		t.Errorf("edges = %d, want 7", edges)
	}
}

func TestPromEdge_MissingMetric(t *testing.T) {
	var value atomic.Int64
	srv := counterServer(t, &value, nil)
	p, err := NewPromEdge(config.PulseConfig{Endpoint: srv.URL, Metric: "nope_total"})
	if err != nil {
		t.Fatalf("NewPromEdge() error = %v", err)
	}
	if _, err := p.poll(context.Background(), func() {}); err == nil {
		t.Error("poll() expected missing-metric error")
	}
}

func TestPromEdge_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	p, _ := NewPromEdge(config.PulseConfig{Endpoint: srv.URL, Metric: "geiger_pulses_total"})
	_, err := p.poll(context.Background(), func() {})
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("poll() error = %v, want status 503", err)
	}
}

func TestPromEdge_SendsAuth(t *testing.T) {
	t.Setenv("GEIGER_TEST_TOKEN", "s3cret")
	var value atomic.Int64
	var got atomic.Value
	srv := counterServer(t, &value, func(r *http.Request) {
		got.Store(r.Header.Get("Authorization"))
	})

	p, err := NewPromEdge(config.PulseConfig{
		Endpoint: srv.URL,
		Metric:   "geiger_pulses_total",
		Auth:     config.AuthConfig{Mode: "bearer", TokenEnv: "GEIGER_TEST_TOKEN"},
	})
	if err != nil {
		t.Fatalf("NewPromEdge() error = %v", err)
	}
	if _, err := p.poll(context.Background(), func() {}); err != nil {
		t.Fatalf("poll() error = %v", err)
	}
	if got.Load() != "Bearer s3cret" {
		t.Errorf("Authorization = %v, want Bearer s3cret", got.Load())
	}
}

func TestPromEdge_RegisterPolls(t *testing.T) {
	var value atomic.Int64
	srv := counterServer(t, &value, nil)
	p, err := NewPromEdge(config.PulseConfig{
		Endpoint:     srv.URL,
		Metric:       "geiger_pulses_total",
		PollInterval: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewPromEdge() error = %v", err)
	}
	var edges atomic.Int64
	if err := p.Register(func() { edges.Add(1) }); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	defer p.Deregister()

	// Let the baseline land before growing the counter.
	time.Sleep(20 * time.Millisecond)
	value.Add(6)
	waitFor(t, func() bool { return edges.Load() == 6 })
}

func TestBuildHTTPClient_MTLSMissingCert(t *testing.T) {
	_, err := buildHTTPClient(config.PulseConfig{
		Auth: config.AuthConfig{Mode: "mtls", CertFile: "/nonexistent.crt", KeyFile: "/nonexistent.key"},
	})
	if err == nil {
		t.Error("expected error for missing client cert")
	}
}

func TestBuildHTTPClient_BadCA(t *testing.T) {
	dir := t.TempDir()
	ca := dir + "/ca.pem"
	if err := os.WriteFile(ca, []byte("not a cert"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := buildHTTPClient(config.PulseConfig{
		Auth: config.AuthConfig{Mode: "mtls", CertFile: "/nonexistent.crt", KeyFile: "/nonexistent.key", CAFile: ca},
	})
	if err == nil {
		t.Error("expected error")
	}
}

func TestDeltaOf(t *testing.T) {
	if got := deltaOf(10, 4); got != 6 {
		t.Errorf("deltaOf(10,4) = %v, want 6", got)
	}
	if got := deltaOf(3, 4); got != 0 {
		t.Errorf("deltaOf(3,4) = %v, want 0", got)
	}
}
