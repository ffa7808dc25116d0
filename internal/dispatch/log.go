package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oshokin/safety-monitor/internal/domain/safety"
	"github.com/oshokin/safety-monitor/internal/logger"
)

// LogSender writes alerts to the log. It is the fallback when no transport is configured.
type LogSender struct{}

// Name implements Sender.
func (LogSender) Name() string {
	return "log"
}

// Send implements Sender.
func (LogSender) Send(ctx context.Context, alert *safety.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	logger.InfoKV(ctx, "Alert", "severity", alert.Severity, "payload", string(payload))

	return nil
}
