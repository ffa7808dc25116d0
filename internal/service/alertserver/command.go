package alertserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"google.golang.org/grpc"

	api "github.com/oshokin/safety-monitor/internal/api/grpc/alert"
	"github.com/oshokin/safety-monitor/internal/config"
	"github.com/oshokin/safety-monitor/internal/logger"
	pb "github.com/oshokin/safety-monitor/internal/pb/v1"
	"github.com/oshokin/safety-monitor/internal/report"
	"github.com/oshokin/safety-monitor/internal/repository/alerts"
	"github.com/oshokin/safety-monitor/internal/service/common"
)

// Options controls the alert-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// JournalFile overrides the journal path from the configuration.
	JournalFile string
}

// ExportOptions controls the export subcommand.
type ExportOptions struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// JournalFile overrides the journal path from the configuration.
	JournalFile string
	// Output is the xlsx file to write.
	Output string
}

// errOutputRequired is returned when no export path is given.
var errOutputRequired = errors.New("output path must be provided")

// Run starts the gRPC server and blocks until context is canceled or server stops.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "alert-server")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	// Determine listen address: CLI argument overrides config port extraction.
	listenAddress, err := common.ResolveListenAddress(settings.AlertServer.ListenAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	repo, err := openRepository(ctx, settings.AlertServer, opts.JournalFile)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.Errorf(ctx, "Failed to close journal: %v", closeErr)
		}
	}()

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer()
	pb.RegisterAlertServiceServer(grpcServer, api.NewServer(newService(repo)))

	logger.InfoKV(ctx, "Alert server listening", "listen_address", listenAddress)

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err = grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")

	return nil
}

// Export writes the whole journal to an xlsx file.
func Export(ctx context.Context, opts *ExportOptions) error {
	ctx = logger.WithName(ctx, "alert-export")

	if opts.Output == "" {
		return errOutputRequired
	}

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	repo, err := openRepository(ctx, settings.AlertServer, opts.JournalFile)
	if err != nil {
		return err
	}

	defer repo.Close()

	journal, err := repo.All(ctx)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}

	file, err := os.OpenFile(filepath.Clean(opts.Output), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, config.DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}

	if err = report.WriteAlerts(file, journal); err != nil {
		_ = file.Close()

		return err
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}

	logger.InfoKV(ctx, "Report written", "path", opts.Output, "alerts", len(journal))

	return nil
}

// openRepository selects Postgres when a DSN is configured and the file journal otherwise.
func openRepository(ctx context.Context, settings config.AlertServer, journalOverride string) (alerts.Repository, error) {
	if settings.PostgresDSN != "" && journalOverride == "" {
		repo, err := alerts.OpenPostgres(ctx, settings.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres journal: %w", err)
		}

		logger.Info(ctx, "Using postgres journal")

		return repo, nil
	}

	path := settings.JournalFile
	if journalOverride != "" {
		path = journalOverride
	}

	logger.InfoKV(ctx, "Using file journal", "path", path)

	return alerts.NewFileRepository(path), nil
}
