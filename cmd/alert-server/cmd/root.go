package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/safety-monitor/internal/config"
	"github.com/oshokin/safety-monitor/internal/service/alertserver"
	"github.com/oshokin/safety-monitor/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// journalFile overrides the journal path.
	journalFile string

	// rootCmd represents the base command for running the gRPC server.
	rootCmd = &cobra.Command{
		Use:   "alert-server [listen-address]",
		Short: "Receive safety alerts over gRPC and journal them.",
		Long: `Starts the gRPC alert server that receives alerts from safety monitors.

Alerts are validated and appended to the journal: a JSON lines file by default,
or a Postgres table when alert_server.postgres_dsn is configured. A redelivered
alert with a known event id is acknowledged without a second entry.
Listen address can be provided as argument to override config (e.g., :9090, 0.0.0.0:7443).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &alertserver.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				JournalFile:   journalFile,
			}

			return alertserver.Run(ctx, options)
		},
	}
)

// Execute runs the alert-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(exportCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVarP(&journalFile, "journal", "j", "", "path to the alert journal (overrides config)")
}
