// Package auth provides the API-key middleware guarding the REST and
// WebSocket endpoints.
package auth
