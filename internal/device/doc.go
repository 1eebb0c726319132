// Package device provides an HTTP client for the irrigation controller API.
//
// # Overview
//
// This package defines the API client for communicating with the irrigation
// controller firmware. It handles HTTP communication, JSON serialization,
// typed error classification, and a bounded retry helper for mutating calls.
//
// # Architecture
//
// The package is split into four files:
//
//   - client.go: HTTP client implementation and request/response handling
//   - types.go: Data structures mirroring the controller API schema
//   - errors.go: The APIError taxonomy used for retry and display decisions
//   - retry.go: WithRetry, a linear-backoff wrapper for device calls
//
// # Client Usage
//
// Create a client using the controller address from configuration:
//
//	client, err := device.NewClient("192.168.4.1:80")
//	if err != nil {
//		log.Fatal().Err(err).Msg("failed to create client")
//	}
//
//	// Fetch live zone state
//	zones, err := client.ZonesStatus(ctx)
//
//	// Start a zone for ten minutes, with retries
//	err = device.WithRetry(ctx, device.DefaultRetryPolicy(), func(ctx context.Context) error {
//		return client.StartZone(ctx, 1, 10)
//	})
//
// # The Success Envelope
//
// Every mutating endpoint answers with a JSON envelope:
//
//	{"success": true}
//	{"success": false, "error": "zone limit reached"}
//
// The firmware sometimes pairs a success:false body with a 400 or 500
// status, and sometimes with a plain 200. The client therefore decodes the
// body before looking at the status code:
//
//   - decodable body, success true: the call succeeded
//   - decodable body, success false: KindApplication, never retried
//   - undecodable body, non-2xx status: KindHTTPStatus
//   - undecodable body, 2xx status: KindMalformed
//   - no response at all: KindNetwork
//
// Callers branch on the error kind, not on the HTTP status.
//
// # Retry Policy
//
// WithRetry retries only errors that could plausibly clear on a resend:
// transport failures and 5xx statuses. Application rejections are final
// ("zone already active" does not change on a retry) and return on the
// first attempt. Backoff is linear: attempt n waits n times the base.
//
// # Endpoints
//
// Read endpoints return typed payloads:
//
//   - GET /get_zones_status, /get_program_state, /get_connection_status
//   - GET /data/user_settings.json, /data/program.json, /data/system_log.json
//   - GET /scan_wifi, /server_stats
//
// Mutating endpoints go through the envelope:
//
//   - POST /start_zone, /stop_zone, /start_program, /stop_program
//   - POST /save_program, PUT /update_program, POST /delete_program
//   - POST /toggle_program_automatic, /toggle_automatic_programs
//   - POST /save_user_settings, /connect_wifi, /disconnect_wifi, /activate_ap
//   - POST /restart_system, /reset_settings, /reset_factory_data, /clear_logs
package device
