// Package app wires configuration, logging, metrics, the device client and
// the UI into the runnable irriga application.
//
// Run is the single entry point: it loads the config file (honoring the
// IRRIGA_DEVICE override and command-line flags), routes zerolog to the
// log file, initializes the optional statsd sink, builds the HTTP client
// for the controller, and hands everything to ui.Run until the user quits
// or the context is cancelled.
package app
