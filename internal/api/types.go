package api

import "github.com/obsidianstack/geiger/internal/alerts"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State      string            `json:"state"` // "running" | "terminated"
	UptimeS    float64           `json:"uptime_s"`
	Dropped    map[string]uint64 `json:"dropped"` // backlog drops per event kind
	AlertCount int               `json:"alert_count"`
}

// ButtonRequest is the body of POST /api/v1/buttons. Press defaults to
// "short".
type ButtonRequest struct {
	Key   string `json:"key"`
	Press string `json:"press,omitempty"`
}

// ButtonResponse acknowledges an accepted press.
type ButtonResponse struct {
	Accepted bool   `json:"accepted"`
	Event    string `json:"event"`
}

// AlertsResponse is the payload for GET /api/v1/alerts.
type AlertsResponse struct {
	Alerts []*alerts.Alert `json:"alerts"`
}

type errorResponse struct {
	Error string `json:"error"`
}
