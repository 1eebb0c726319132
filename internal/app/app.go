package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tarn/irriga/internal/config"
	"github.com/tarn/irriga/internal/device"
	"github.com/tarn/irriga/internal/logging"
	"github.com/tarn/irriga/internal/metrics"
	"github.com/tarn/irriga/internal/prefs"
	"github.com/tarn/irriga/internal/state"
	"github.com/tarn/irriga/internal/ui"
)

// Options configure the irriga application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/irriga/prefs.toml
	DeviceAddr string // overrides config and IRRIGA_DEVICE
	PollEvery  int    // seconds; zero uses the configured interval
}

// Run boots the irriga panel until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.DeviceAddr != "" {
		cfg.DeviceAddr = opts.DeviceAddr
	}
	if opts.PollEvery > 0 {
		cfg.PollInterval = time.Duration(opts.PollEvery) * time.Second
	}

	if err := logging.Init(cfg.LogFile, cfg.LogLevel); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	metrics.Init(cfg.StatsdAddr)

	userPrefs := prefs.Load(opts.PrefsPath)

	client, err := device.NewClient(cfg.DeviceAddr)
	if err != nil {
		return fmt.Errorf("init device client: %w", err)
	}

	log.Info().
		Str("device", cfg.DeviceAddr).
		Dur("poll_interval", cfg.PollInterval).
		Msg("starting irriga")

	return ui.Run(ctx, ui.Options{
		Client:    client,
		Store:     &state.Store{},
		Config:    cfg,
		Prefs:     userPrefs,
		PrefsPath: opts.PrefsPath,
	})
}
