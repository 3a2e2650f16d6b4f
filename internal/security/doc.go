// Package security inspects the TLS certificate of a remote pulse endpoint
// so an expiring certificate is reported before scrapes start failing.
package security
