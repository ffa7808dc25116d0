//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/safety-monitor/internal/config"
	"github.com/oshokin/safety-monitor/internal/domain/safety"
	pb "github.com/oshokin/safety-monitor/internal/pb/v1"
)

// Client wraps the gRPC AlertService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the alert server.
	conn *grpc.ClientConn
	// api is the AlertService client stub.
	api pb.AlertServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errAlertRequired is returned when an alert is not provided.
	errAlertRequired = errors.New("alert must be provided")
)

// Dial creates a client for the alert server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial alert server: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         pb.NewAlertServiceClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// Dispatch sends one alert to the server.
func (c *Client) Dispatch(ctx context.Context, alert *safety.Alert) error {
	if alert == nil {
		return errAlertRequired
	}

	request, err := pb.AlertToStruct(alert)
	if err != nil {
		return err
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err = c.api.Dispatch(callCtx, request); err != nil {
		return fmt.Errorf("dispatch alert: %w", err)
	}

	return nil
}

// ListAlerts returns up to limit recent alerts, newest first.
func (c *Client) ListAlerts(ctx context.Context, limit int) ([]*safety.Alert, error) {
	request, err := structpb.NewStruct(map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.ListAlerts(callCtx, request)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	return pb.AlertsFromStruct(response)
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
