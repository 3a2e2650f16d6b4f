// Package ws streams live readings to WebSocket viewers. A viewer gets the
// current reading on connect and a fresh one whenever the counter ticks or
// is reset.
package ws
