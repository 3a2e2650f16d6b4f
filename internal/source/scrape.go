package source

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"sync"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/obsidianstack/geiger/internal/config"
)

const (
	defaultScrapeTimeout = 10 * time.Second

	// maxEdgesPerPoll bounds the pulses replayed from one scrape so a
	// counter jump cannot stall the poller.
	maxEdgesPerPoll = 10000
)

// PromEdge is an EdgeNotifier that polls a Prometheus text endpoint and
// replays the increase of one counter as individual edges. The first
// successful scrape only establishes the baseline.
type PromEdge struct {
	cfg    config.PulseConfig
	client *http.Client

	// baseline state, owned by the polling goroutine
	prev        float64
	hasBaseline bool

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPromEdge builds the HTTP client for cfg's auth and TLS settings.
func NewPromEdge(cfg config.PulseConfig) (*PromEdge, error) {
	client, err := buildHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("source: prometheus edge %q: build http client: %w", cfg.Endpoint, err)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = config.DefaultPollInterval
	}
	return &PromEdge{cfg: cfg, client: client}, nil
}

// Register starts polling.
func (p *PromEdge) Register(onEdge func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return errors.New("source: prometheus edge already registered")
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.wg.Add(1)
	go p.run(ctx, onEdge)
	return nil
}

func (p *PromEdge) run(ctx context.Context, onEdge func()) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := p.poll(ctx, onEdge); err != nil && ctx.Err() == nil {
			slog.Warn("source: scrape failed", "endpoint", p.cfg.Endpoint, "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// poll scrapes once and fires one edge per whole unit the counter grew by.
// Fractional growth carries over to the next poll. A counter reset moves
// the baseline without firing.
func (p *PromEdge) poll(ctx context.Context, onEdge func()) (int, error) {
	mfs, err := fetchMetrics(ctx, p.client, p.cfg.Endpoint)
	if err != nil {
		return 0, err
	}
	mf, ok := mfs[p.cfg.Metric]
	if !ok {
		return 0, fmt.Errorf("metric %q not found", p.cfg.Metric)
	}
	total := sumFamily(mf)

	if !p.hasBaseline || total < p.prev {
		p.prev = total
		p.hasBaseline = true
		return 0, nil
	}

	n := int(math.Min(math.Floor(deltaOf(total, p.prev)), maxEdgesPerPoll))
	p.prev += float64(n)
	for i := 0; i < n; i++ {
		onEdge()
	}
	return n, nil
}

// Deregister stops polling and waits for an in-flight scrape to finish.
func (p *PromEdge) Deregister() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.AuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.auth.Mode {
	case "apikey":
		req = req.Clone(req.Context())
		req.Header.Set(t.auth.Header, t.auth.Key())
	case "bearer":
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.auth.Token())
	case "basic":
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.auth.Username, t.auth.Password())
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs an http.Client for the endpoint's auth and TLS settings.
func buildHTTPClient(cfg config.PulseConfig) (*http.Client, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: cfg.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
	}

	if cfg.Auth.Mode == "mtls" {
		cert, err := tls.LoadX509KeyPair(cfg.Auth.CertFile, cfg.Auth.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}

		if cfg.Auth.CAFile != "" {
			caPEM, err := os.ReadFile(cfg.Auth.CAFile)
			if err != nil {
				return nil, fmt.Errorf("read ca file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caPEM) {
				return nil, fmt.Errorf("no valid certs found in ca file %q", cfg.Auth.CAFile)
			}
			tlsCfg.RootCAs = pool
		}
	}

	return &http.Client{
		Transport: &authRoundTripper{
			base: &http.Transport{TLSClientConfig: tlsCfg},
			auth: cfg.Auth,
		},
		Timeout: defaultScrapeTimeout,
	}, nil
}

// fetchMetrics performs an HTTP GET to url and returns parsed metric families.
func fetchMetrics(ctx context.Context, client *http.Client, url string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return parseMetrics(resp.Body)
}

// parseMetrics decodes a text exposition. A partial parse still counts as
// success as long as at least one family came through.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	return mfs, nil
}

// sumFamily adds up all counter, gauge or untyped values across label sets.
func sumFamily(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.Counter != nil:
			total += m.Counter.GetValue()
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		case m.Untyped != nil:
			total += m.Untyped.GetValue()
		}
	}
	return total
}

// deltaOf returns the positive counter delta; a reset yields 0.
func deltaOf(current, previous float64) float64 {
	d := current - previous
	if d < 0 {
		return 0
	}
	return d
}
