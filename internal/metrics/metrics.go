// Package metrics emits optional statsd telemetry for the sync engine.
// Every helper is a no-op until Init succeeds, so callers never guard their
// metric calls on configuration.
package metrics

import (
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog/log"
)

var client *statsd.Client

// Init creates the statsd client. An empty addr leaves metrics disabled.
func Init(addr string) {
	if addr == "" {
		return
	}
	var err error
	client, err = statsd.New(addr)
	if err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("statsd client unavailable, metrics disabled")
		client = nil
		return
	}
	client.Namespace = "irriga."
	log.Info().Str("addr", addr).Msg("statsd metrics initialized")
}

// Count adds delta to a counter.
func Count(name string, delta int64, tags ...string) {
	if client == nil {
		return
	}
	if err := client.Count(name, delta, tags, 1); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("failed to emit count metric")
	}
}

// Gauge records an instantaneous value.
func Gauge(name string, value float64, tags ...string) {
	if client == nil {
		return
	}
	if err := client.Gauge(name, value, tags, 1); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("failed to emit gauge metric")
	}
}

// Timing records a duration.
func Timing(name string, value time.Duration, tags ...string) {
	if client == nil {
		return
	}
	if err := client.Timing(name, value, tags, 1); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("failed to emit timing metric")
	}
}
