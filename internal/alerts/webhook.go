package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/obsidianstack/geiger/internal/config"
	"github.com/obsidianstack/geiger/pkg/types"
)

// fact is one labelled value of the reading behind an alert.
type fact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func readingFacts(r types.Reading) []fact {
	return []fact{
		{"CPS", strconv.FormatUint(uint64(r.CPS), 10)},
		{"CPM", strconv.FormatUint(r.CPM, 10)},
		{"Scale", strconv.FormatFloat(r.Scale, 'g', 4, 64)},
		{"Reading at", r.GeneratedAt},
	}
}

// headline is the one-line summary shared by every chat target.
func headline(a *Alert) string {
	if a.State == "resolved" {
		return fmt.Sprintf("%s %s resolved at %d cps / %d cpm", severityLabel(a.Severity), a.RuleName, a.Reading.CPS, a.Reading.CPM)
	}
	return fmt.Sprintf("%s %s", severityLabel(a.Severity), a.Message)
}

// slackBody uses a legacy attachment so the reading shows as short fields
// under the headline.
func slackBody(a *Alert) any {
	type field struct {
		Title string `json:"title"`
		Value string `json:"value"`
		Short bool   `json:"short"`
	}
	facts := readingFacts(a.Reading)
	fields := make([]field, 0, len(facts))
	for _, f := range facts {
		fields = append(fields, field{Title: f.Name, Value: f.Value, Short: true})
	}
	return map[string]any{
		"text": headline(a),
		"attachments": []map[string]any{{
			"color":  "#" + severityColor(a.Severity),
			"fields": fields,
		}},
	}
}

func teamsBody(a *Alert) any {
	return map[string]any{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(a.Severity),
		"summary":    a.RuleName,
		"title":      "Geiger counter alert: " + a.RuleName,
		"sections": []map[string]any{{
			"activityTitle": headline(a),
			"facts":         readingFacts(a.Reading),
		}},
	}
}

// httpBody is the alert as served by /api/v1/alerts, reading included.
func httpBody(a *Alert) any {
	return map[string]any{"alert": a}
}

var bodies = map[string]func(*Alert) any{
	"slack": slackBody,
	"teams": teamsBody,
	"http":  httpBody,
}

// deliver posts a to every webhook target with a URL. Failures are logged
// and do not stop the remaining targets.
func (e *Engine) deliver(webhooks []config.WebhookConfig, a *Alert) {
	for _, wh := range webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}
		build, ok := bodies[wh.Type]
		if !ok {
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}
		body, err := json.Marshal(build(a))
		if err == nil {
			err = e.post(url, body)
		}
		if err != nil {
			slog.Error("alerts: webhook delivery failed", "type", wh.Type, "rule", a.RuleName, "err", err)
			continue
		}
		slog.Debug("alerts: webhook delivered", "type", wh.Type, "rule", a.RuleName, "state", a.State, "cps", a.Reading.CPS)
	}
}

func (e *Engine) post(url string, body []byte) error {
	resp, err := e.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook answered %s", resp.Status)
	}
	return nil
}

func severityLabel(s string) string {
	switch s {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func severityColor(s string) string {
	switch s {
	case "critical":
		return "FF4F6A"
	case "warning":
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
