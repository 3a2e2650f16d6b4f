package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/obsidianstack/geiger/internal/config"
	"github.com/obsidianstack/geiger/pkg/types"
)

const (
	defaultCooldown   = 15 * time.Minute
	maxHistoryLen     = 200
	recentWindowHours = 1
)

// Alert is a single alert event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"` // "firing" | "resolved"

	// Reading is the reading that fired or resolved the alert.
	Reading types.Reading `json:"reading"`
}

type rule struct {
	config.AlertRule
	cond condition
}

// Engine evaluates alert rules against readings and delivers webhook
// notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	rules    []rule
	webhooks []config.WebhookConfig
	active   map[string]*Alert    // key: rule name
	lastFire map[string]time.Time // last fire time per rule (for cooldown)
	history  []*Alert             // recently resolved alerts

	client *http.Client
	now    func() time.Time
	wg     sync.WaitGroup
}

// New creates an Engine from the alert configuration. Rules with a
// malformed condition are logged and skipped. An Engine without rules is
// valid; Evaluate then does nothing.
func New(cfg config.AlertsConfig) *Engine {
	e := &Engine{
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
	e.SetRules(cfg)
	return e
}

// SetRules replaces the rules and webhook targets. Alerts of rules that no
// longer exist are dropped without a resolve notification.
func (e *Engine) SetRules(cfg config.AlertsConfig) {
	rules := make([]rule, 0, len(cfg.Rules))
	names := make(map[string]bool, len(cfg.Rules))
	for _, r := range cfg.Rules {
		c, err := parseCondition(r.Condition)
		if err != nil {
			slog.Warn("alerts: skipping rule", "rule", r.Name, "err", err)
			continue
		}
		rules = append(rules, rule{AlertRule: r, cond: c})
		names[r.Name] = true
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = rules
	e.webhooks = cfg.Webhooks
	for name := range e.active {
		if !names[name] {
			delete(e.active, name)
		}
	}
	slog.Info("alerts: rules loaded", "rules", len(rules), "webhooks", len(cfg.Webhooks))
}

// Evaluate tests all rules against r. Firing and resolving alerts are
// recorded and webhooks are delivered in the background.
func (e *Engine) Evaluate(r types.Reading) {
	e.mu.Lock()
	rules := e.rules
	e.mu.Unlock()
	if len(rules) == 0 {
		return
	}

	now := e.now()
	for _, rl := range rules {
		fires, value := rl.cond.eval(r)

		e.mu.Lock()
		var notify *Alert
		if fires {
			cooldown := rl.Cooldown
			if cooldown <= 0 {
				cooldown = defaultCooldown
			}
			last, seen := e.lastFire[rl.Name]
			if !seen || now.Sub(last) > cooldown {
				sev := rl.Severity
				if sev == "" {
					sev = "warning"
				}
				a := &Alert{
					ID:       fmt.Sprintf("%s:%d", rl.Name, now.UnixNano()),
					RuleName: rl.Name,
					Severity: sev,
					Value:    value,
					Message:  fmt.Sprintf("[%s] %s fired: %s (value %.2f)", sev, rl.Name, rl.Condition, value),
					FiredAt:  now,
					State:    "firing",
					Reading:  r,
				}
				e.active[rl.Name] = a
				e.lastFire[rl.Name] = now
				cp := *a
				notify = &cp
				slog.Warn("alerts: alert fired", "rule", rl.Name, "value", value, "severity", sev)
			}
		} else if a, ok := e.active[rl.Name]; ok {
			resolved := now
			a.State = "resolved"
			a.ResolvedAt = &resolved
			a.Reading = r
			delete(e.active, rl.Name)

			e.history = append(e.history, a)
			if len(e.history) > maxHistoryLen {
				e.history = e.history[len(e.history)-maxHistoryLen:]
			}
			cp := *a
			notify = &cp
			slog.Info("alerts: alert resolved", "rule", rl.Name)
		}
		webhooks := e.webhooks
		e.mu.Unlock()

		if notify != nil && len(webhooks) > 0 {
			e.wg.Add(1)
			go func(a *Alert) {
				defer e.wg.Done()
				e.deliver(webhooks, a)
			}(notify)
		}
	}
}

// Active returns copies of all firing alerts plus alerts resolved within
// the past hour, newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindowHours * time.Hour)
	out := make([]*Alert, 0, len(e.active))
	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}

// Wait blocks until in-flight webhook deliveries finish.
func (e *Engine) Wait() {
	e.wg.Wait()
}
