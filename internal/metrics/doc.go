// Package metrics exposes the counter's event flow and live rates in the
// Prometheus exposition format.
package metrics
