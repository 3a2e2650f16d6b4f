package source

import (
	"fmt"
	"time"

	"github.com/obsidianstack/geiger/internal/config"
)

// NewEdge returns the EdgeNotifier selected by cfg.Source.
func NewEdge(cfg config.PulseConfig) (EdgeNotifier, error) {
	switch cfg.Source {
	case "", "sim":
		return NewSimEdge(cfg.SimCPS, time.Now().UnixNano()), nil
	case "serial":
		return NewSerialEdge(cfg.Device), nil
	case "prometheus":
		return NewPromEdge(cfg)
	default:
		return nil, fmt.Errorf("source: unsupported pulse source %q", cfg.Source)
	}
}
