package alerts

import (
	"context"
	"errors"

	"github.com/oshokin/safety-monitor/internal/domain/safety"
)

// Repository defines persistence operations for received alerts.
type Repository interface {
	// Append journals alert. It returns ErrDuplicate for a known event id.
	Append(ctx context.Context, alert *safety.Alert) error
	// Recent returns up to limit alerts, newest first.
	Recent(ctx context.Context, limit int) ([]*safety.Alert, error)
	// All returns every alert in the order it was received.
	All(ctx context.Context) ([]*safety.Alert, error)
	Close() error
}

// ErrDuplicate is returned when an alert with the same event id was already journaled.
var ErrDuplicate = errors.New("alert already journaled")

// newestFirst returns the last limit alerts in reverse order.
func newestFirst(alerts []*safety.Alert, limit int) []*safety.Alert {
	if limit <= 0 || limit > len(alerts) {
		limit = len(alerts)
	}

	result := make([]*safety.Alert, 0, limit)
	for i := len(alerts) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, alerts[i])
	}

	return result
}
