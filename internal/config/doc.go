// Package config loads the irriga configuration file.
//
// # Overview
//
// Configuration lives in ~/.config/irriga/config.toml. A missing file is
// not an error: every value has a default tuned for the controller's stock
// firmware, so the panel runs with no config at all. A present but broken
// file fails loudly instead of silently running with defaults.
//
// # File Format
//
//	device_addr = "192.168.4.1:80"
//	poll_interval_seconds = 3
//	fast_interval_seconds = 1
//	accelerate_window_seconds = 30
//	slow_poll_interval_seconds = 10
//	retry_max_attempts = 3
//	retry_backoff_ms = 500
//	statsd_addr = ""
//	log_file = "~/.local/state/irriga/irriga.log"
//	log_level = "info"
//
// Non-positive numbers are ignored and keep their defaults.
//
// # Overrides
//
// The IRRIGA_DEVICE environment variable overrides device_addr from the
// file, which keeps switching between the controller's AP address and its
// client-mode address a one-variable affair. The -device flag overrides
// both.
package config
