package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/tarn/irriga/internal/device"
)

// Config captures everything irriga needs to reach and poll the controller.
type Config struct {
	DeviceAddr string

	PollInterval     time.Duration // zones/program cadence
	FastInterval     time.Duration // cadence during an accelerated window
	AccelerateWindow time.Duration // how long a state transition keeps fast polling
	SlowPollInterval time.Duration // logs/connection cadence

	Retry device.RetryPolicy

	StatsdAddr string
	LogFile    string
	LogLevel   string
}

const (
	defaultConfigPath = "~/.config/irriga/config.toml"
	defaultLogFile    = "~/.local/state/irriga/irriga.log"
	defaultDeviceAddr = "192.168.4.1:80"

	defaultPollInterval     = 3 * time.Second
	defaultFastInterval     = time.Second
	defaultAccelerateWindow = 30 * time.Second
	defaultSlowPollInterval = 10 * time.Second
)

// deviceAddrEnv overrides the configured controller address, handy when the
// controller moves between AP and client mode.
const deviceAddrEnv = "IRRIGA_DEVICE"

type rawConfig struct {
	DeviceAddr           string `toml:"device_addr"`
	PollIntervalSecs     int    `toml:"poll_interval_seconds"`
	FastIntervalSecs     int    `toml:"fast_interval_seconds"`
	AccelerateWindowSecs int    `toml:"accelerate_window_seconds"`
	SlowPollIntervalSecs int    `toml:"slow_poll_interval_seconds"`
	RetryMaxAttempts     int    `toml:"retry_max_attempts"`
	RetryBackoffMS       int    `toml:"retry_backoff_ms"`
	StatsdAddr           string `toml:"statsd_addr"`
	LogFile              string `toml:"log_file"`
	LogLevel             string `toml:"log_level"`
}

// Load locates and parses the irriga config, falling back to defaults when
// missing. The IRRIGA_DEVICE environment variable wins over the file.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := defaults()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return applyEnv(cfg), nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if addr := strings.TrimSpace(raw.DeviceAddr); addr != "" {
		cfg.DeviceAddr = addr
	}
	if raw.PollIntervalSecs > 0 {
		cfg.PollInterval = time.Duration(raw.PollIntervalSecs) * time.Second
	}
	if raw.FastIntervalSecs > 0 {
		cfg.FastInterval = time.Duration(raw.FastIntervalSecs) * time.Second
	}
	if raw.AccelerateWindowSecs > 0 {
		cfg.AccelerateWindow = time.Duration(raw.AccelerateWindowSecs) * time.Second
	}
	if raw.SlowPollIntervalSecs > 0 {
		cfg.SlowPollInterval = time.Duration(raw.SlowPollIntervalSecs) * time.Second
	}
	if raw.RetryMaxAttempts > 0 {
		cfg.Retry.MaxAttempts = raw.RetryMaxAttempts
	}
	if raw.RetryBackoffMS > 0 {
		cfg.Retry.BaseBackoff = time.Duration(raw.RetryBackoffMS) * time.Millisecond
	}
	if addr := strings.TrimSpace(raw.StatsdAddr); addr != "" {
		cfg.StatsdAddr = addr
	}
	if lf := strings.TrimSpace(raw.LogFile); lf != "" {
		cfg.LogFile = lf
	}
	if lvl := strings.TrimSpace(raw.LogLevel); lvl != "" {
		cfg.LogLevel = lvl
	}
	cfg.LogFile = mustExpand(cfg.LogFile)

	return applyEnv(cfg), nil
}

func defaults() Config {
	return Config{
		DeviceAddr:       defaultDeviceAddr,
		PollInterval:     defaultPollInterval,
		FastInterval:     defaultFastInterval,
		AccelerateWindow: defaultAccelerateWindow,
		SlowPollInterval: defaultSlowPollInterval,
		Retry:            device.DefaultRetryPolicy(),
		LogFile:          mustExpand(defaultLogFile),
		LogLevel:         "info",
	}
}

func applyEnv(cfg Config) Config {
	if addr := strings.TrimSpace(os.Getenv(deviceAddrEnv)); addr != "" {
		cfg.DeviceAddr = addr
	}
	return cfg
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
