package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/safety-monitor/internal/config"
	"github.com/oshokin/safety-monitor/internal/logger"
	"github.com/oshokin/safety-monitor/internal/service/common"
)

// Options controls the safety-monitor process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// DeviceID overrides the device id from the configuration.
	DeviceID string
	// AllowMultiple skips the single instance check.
	AllowMultiple bool
}

// shutdownTimeout bounds session teardown.
const shutdownTimeout = 10 * time.Second

// ErrAlreadyRunning is returned when another monitor process is found.
var ErrAlreadyRunning = errors.New("another safety-monitor instance is already running")

// Run starts a monitoring session and blocks until ctx is canceled or a
// component fails.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "safety-monitor")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if opts.DeviceID != "" {
		settings.DeviceID = opts.DeviceID
	}

	if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
		logger.SetLevel(level)
	}

	if !opts.AllowMultiple {
		running, err := common.AnotherInstanceRunning()
		if err != nil {
			logger.Warn(ctx, "Unable to check for other instances: ", err)
		}

		if running {
			return ErrAlreadyRunning
		}
	}

	return runSession(ctx, settings)
}

// runSession wires one session from settings and tears it down on exit.
func runSession(ctx context.Context, settings *config.Config) error {
	session, err := newSession(ctx, settings)
	if err != nil {
		return err
	}

	defer session.close(ctx)

	logger.InfoKV(ctx, "Monitoring started",
		"device_id", settings.DeviceID,
		"sources", len(session.sources),
		"senders", session.senderNames,
	)

	group, groupCtx := errgroup.WithContext(ctx)

	for _, src := range session.sources {
		group.Go(func() error {
			if err := src.Run(groupCtx, session.channels); err != nil {
				return fmt.Errorf("source %s: %w", src.Name(), err)
			}

			return nil
		})
	}

	group.Go(func() error {
		return session.pipeline.Run(groupCtx, session.channels, session.engine)
	})

	if session.status != nil {
		group.Go(func() error {
			return session.status.Run(groupCtx)
		})
	}

	err = group.Wait()

	logger.Info(ctx, "Monitoring stopped")

	return err
}
