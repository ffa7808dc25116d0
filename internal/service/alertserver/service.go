package alertserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/safety-monitor/internal/domain/safety"
	"github.com/oshokin/safety-monitor/internal/logger"
	"github.com/oshokin/safety-monitor/internal/repository/alerts"
)

// service records received alerts in the journal.
// It is unexported to keep the transport decoupled from the implementation.
type service struct {
	// repo is the alert journal.
	repo alerts.Repository
}

// newService creates a service backed by the provided repository.
func newService(repository alerts.Repository) *service {
	return &service{
		repo: repository,
	}
}

// Accept journals alert. A redelivered alert is acknowledged without a second entry.
func (s *service) Accept(ctx context.Context, alert *safety.Alert) error {
	ctx = logger.WithKV(ctx,
		"event_id", alert.EventID,
		"device_id", alert.DeviceID,
		"event_code", alert.EventCode,
	)

	err := s.repo.Append(ctx, alert)

	switch {
	case err == nil:
		logger.InfoKV(ctx, "Alert received", "severity", alert.Severity, "message", alert.Metadata.Message)

		return nil
	case errors.Is(err, alerts.ErrDuplicate):
		logger.Info(ctx, "Duplicate alert acknowledged")

		return nil
	default:
		logger.Errorf(ctx, "Failed to journal alert: %v", err)

		return fmt.Errorf("journal alert: %w", err)
	}
}

// Recent returns up to limit alerts, newest first.
func (s *service) Recent(ctx context.Context, limit int) ([]*safety.Alert, error) {
	result, err := s.repo.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	return result, nil
}
