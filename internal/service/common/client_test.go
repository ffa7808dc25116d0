//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	api "github.com/oshokin/safety-monitor/internal/api/grpc/alert"
	"github.com/oshokin/safety-monitor/internal/domain/safety"
	pb "github.com/oshokin/safety-monitor/internal/pb/v1"
)

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestDispatch_NilAlert asserts that a nil alert is rejected by the client.
func TestDispatch_NilAlert(t *testing.T) {
	t.Parallel()

	c := new(Client)

	require.ErrorIs(t, c.Dispatch(context.Background(), nil), errAlertRequired)
}

type memoryService struct {
	mu     sync.Mutex
	alerts []*safety.Alert
}

func (m *memoryService) Accept(_ context.Context, alert *safety.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.alerts = append(m.alerts, alert)

	return nil
}

func (m *memoryService) Recent(_ context.Context, limit int) ([]*safety.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*safety.Alert, 0, limit)
	for i := len(m.alerts) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, m.alerts[i])
	}

	return result, nil
}

// TestClient_Roundtrip runs the client against a real server on loopback.
func TestClient_Roundtrip(t *testing.T) {
	t.Parallel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	grpcServer := grpc.NewServer()
	pb.RegisterAlertServiceServer(grpcServer, api.NewServer(new(memoryService)))

	go func() {
		_ = grpcServer.Serve(lis)
	}()

	t.Cleanup(grpcServer.Stop)

	client, err := Dial(context.Background(), lis.Addr().String(), WithCallTimeout(5*time.Second))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, client.Close())
	})

	ctx := context.Background()

	for _, id := range []string{"evt-1", "evt-2"} {
		require.NoError(t, client.Dispatch(ctx, &safety.Alert{
			EventID:     id,
			DeviceID:    "watch-1",
			EventCode:   safety.EventPanic,
			Severity:    safety.SeverityHigh,
			TimestampMs: 1_700_000_000_000,
			Metadata:    safety.Metadata{Location: &safety.Location{Latitude: 1, Longitude: 2}},
		}))
	}

	err = client.Dispatch(ctx, &safety.Alert{EventCode: safety.EventPanic, Severity: safety.SeverityHigh})
	require.Equal(t, codes.InvalidArgument, status.Code(errors.Unwrap(err)))

	alerts, err := client.ListAlerts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Equal(t, "evt-2", alerts[0].EventID)
	require.Equal(t, &safety.Location{Latitude: 1, Longitude: 2}, alerts[0].Metadata.Location)
}
