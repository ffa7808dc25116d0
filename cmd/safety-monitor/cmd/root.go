package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/safety-monitor/internal/config"
	"github.com/oshokin/safety-monitor/internal/service/monitor"
	"github.com/oshokin/safety-monitor/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// allowMultiple skips the single instance check.
	allowMultiple bool

	// rootCmd represents the base command for a monitoring session.
	rootCmd = &cobra.Command{
		Use:   "safety-monitor [device-id]",
		Short: "Watch sensor streams and raise safety alerts.",
		Long: `Runs a monitoring session for one wearable device.

Acceleration, heart rate, presence and location samples are read from the
configured MQTT broker and NATS server. Falls, dangerous heart rate and a
removed watch raise alerts that are delivered to every configured channel:
the log, an HTTP endpoint, the alert server over gRPC and a Redis stream.

The presentation layer reads the current state from GET /status or the /ws
websocket and answers prompts with POST /actions/{ok|help|panic}.
Device id can be provided as argument or loaded from configuration file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use device id argument if provided, otherwise rely on config.
			var deviceID string
			if len(args) > 0 {
				deviceID = args[0]
			}

			options := &monitor.Options{
				ConfigPath:    configPath,
				DeviceID:      deviceID,
				AllowMultiple: allowMultiple,
			}

			return monitor.Run(ctx, options)
		},
	}
)

// Execute runs the safety-monitor CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")

	// Hidden flag for running several simulated devices on one host.
	rootCmd.Flags().BoolVar(&allowMultiple, "allow-multiple", false, "skip the single instance check")

	err := rootCmd.Flags().MarkHidden("allow-multiple")
	if err != nil {
		panic(err)
	}
}
