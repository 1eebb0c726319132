// Package logging configures the process-wide zerolog logger.
//
// The TUI owns the terminal, so log output goes to a file only. Poll-tick
// failures, retries and reconciliation events all land here; nothing in the
// sync engine writes to stdout or stderr.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init routes the global logger to path at the given level. Level accepts
// zerolog's names ("debug", "info", "warn", "error"); unknown values fall
// back to info.
func Init(path, level string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	log.Logger = zerolog.New(logFile).Level(parseLevel(level)).With().Timestamp().Logger()
	return nil
}

func parseLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}
