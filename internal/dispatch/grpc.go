package dispatch

import (
	"context"
	"time"

	"github.com/oshokin/safety-monitor/internal/domain/safety"
)

// GRPCConfig configures the gRPC sender.
type GRPCConfig struct {
	Address string        `yaml:"address"`
	Timeout time.Duration `yaml:"timeout"`
}

// Enabled reports whether an alert server is configured.
func (c GRPCConfig) Enabled() bool {
	return c.Address != ""
}

// AlertClient is the part of common.Client the sender needs.
type AlertClient interface {
	Dispatch(ctx context.Context, alert *safety.Alert) error
}

// GRPCSender delivers alerts to an alert-server.
type GRPCSender struct {
	client AlertClient
}

// NewGRPCSender creates a sender over client.
func NewGRPCSender(client AlertClient) *GRPCSender {
	return &GRPCSender{client: client}
}

// Name implements Sender.
func (s *GRPCSender) Name() string {
	return "grpc"
}

// Send implements Sender.
func (s *GRPCSender) Send(ctx context.Context, alert *safety.Alert) error {
	return s.client.Dispatch(ctx, alert)
}
