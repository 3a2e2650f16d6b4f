package security

import (
	"context"
	"crypto/tls"
	"log/slog"
	"math"
	"net"
	"net/url"
	"time"

	"github.com/obsidianstack/geiger/internal/config"
)

// ExpiringWithin is the window in which a valid certificate is reported as
// expiring.
const ExpiringWithin = 30 * 24 * time.Hour

const dialTimeout = 10 * time.Second

// CertStatus describes the leaf certificate served by an endpoint.
type CertStatus struct {
	Endpoint string `json:"endpoint"`
	AuthType string `json:"auth_type"`
	Status   string `json:"status"` // valid | expiring | expired | unreachable
	DaysLeft int    `json:"days_left"`
	Issuer   string `json:"issuer,omitempty"`
	NotAfter string `json:"not_after,omitempty"`
}

// Check dials the endpoint of cfg and reports on its leaf certificate.
// Returns nil for non-HTTPS endpoints.
func Check(ctx context.Context, cfg config.PulseConfig) *CertStatus {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || u.Scheme != "https" {
		return nil
	}

	cs := &CertStatus{Endpoint: cfg.Endpoint, AuthType: cfg.Auth.Mode}
	if cs.AuthType == "" {
		cs.AuthType = "none"
	}

	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "443")
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{},
		Config: &tls.Config{
			InsecureSkipVerify: cfg.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
		},
	}
	netConn, err := dialer.DialContext(dialCtx, "tcp", host)
	if err != nil {
		cs.Status = "unreachable"
		return cs
	}
	conn := netConn.(*tls.Conn)
	defer conn.Close()

	peers := conn.ConnectionState().PeerCertificates
	if len(peers) == 0 {
		cs.Status = "unreachable"
		return cs
	}
	leaf := peers[0]
	left := time.Until(leaf.NotAfter)

	cs.NotAfter = leaf.NotAfter.UTC().Format(time.RFC3339)
	cs.Issuer = leaf.Issuer.CommonName
	cs.DaysLeft = int(math.Floor(left.Hours() / 24))

	switch {
	case left <= 0:
		cs.Status = "expired"
	case left <= ExpiringWithin:
		cs.Status = "expiring"
	default:
		cs.Status = "valid"
	}
	return cs
}

// Report runs Check and logs the outcome at a level matching its status.
func Report(ctx context.Context, cfg config.PulseConfig) *CertStatus {
	cs := Check(ctx, cfg)
	if cs == nil {
		return nil
	}
	attrs := []any{"endpoint", cs.Endpoint, "status", cs.Status, "days_left", cs.DaysLeft, "issuer", cs.Issuer}
	switch cs.Status {
	case "valid":
		slog.Info("security: endpoint certificate", attrs...)
	default:
		slog.Warn("security: endpoint certificate", attrs...)
	}
	return cs
}
