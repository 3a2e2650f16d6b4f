package alerts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/obsidianstack/geiger/internal/config"
	"github.com/obsidianstack/geiger/pkg/types"
)

// condition is a parsed rule expression of the form "field op value".
//
//	cps > 5
//	cpm >= 100
//	scale < 1
type condition struct {
	field     string
	op        string
	threshold float64
}

// parseCondition parses and validates a rule expression.
func parseCondition(s string) (condition, error) {
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return condition{}, fmt.Errorf("alerts: condition %q: want \"field op value\"", s)
	}
	c := condition{field: parts[0], op: parts[1]}
	switch c.field {
	case "cps", "cpm", "scale":
	default:
		return condition{}, fmt.Errorf("alerts: condition %q: unknown field %q", s, c.field)
	}
	switch c.op {
	case ">", ">=", "<", "<=", "==":
	default:
		return condition{}, fmt.Errorf("alerts: condition %q: unknown operator %q", s, c.op)
	}
	v, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return condition{}, fmt.Errorf("alerts: condition %q: %w", s, err)
	}
	c.threshold = v
	return c, nil
}

// ValidateRules checks every rule condition in cfg and reports the first
// malformed one together with its rule name.
func ValidateRules(cfg config.AlertsConfig) error {
	for _, r := range cfg.Rules {
		if _, err := parseCondition(r.Condition); err != nil {
			return fmt.Errorf("server.alerts.rules[%s]: %w", r.Name, err)
		}
	}
	return nil
}

// eval returns whether the condition holds for r and the value tested.
func (c condition) eval(r types.Reading) (bool, float64) {
	v := numericField(c.field, r)
	return compareFloat(v, c.op, c.threshold), v
}

// numericField maps a field name to its value in the reading.
func numericField(field string, r types.Reading) float64 {
	switch field {
	case "cps":
		return float64(r.CPS)
	case "cpm":
		return float64(r.CPM)
	case "scale":
		return r.Scale
	default:
		return 0
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}
