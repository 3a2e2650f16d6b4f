// Package api implements the REST endpoints under /api/v1: the live
// reading, the rendered screen, alerts, health, and button presses that
// are fed to the dispatcher through the input source.
package api
