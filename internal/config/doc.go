// Package config handles YAML configuration loading and hot-reload for the
// counter.
//
// config.go defines the Config struct, applies defaults, overlays GEIGER_*
// environment variables through envconfig, and validates the result.
//
// watch.go provides Watch, which uses fsnotify to reload the file on change
// and hand the new Config to a callback without restarting the process.
//
// The sampling period, history depth, event queue capacity and screen
// geometry are deliberately absent: they are constants of the core.
package config
