package alert

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/safety-monitor/internal/domain/safety"
	pb "github.com/oshokin/safety-monitor/internal/pb/v1"
)

// fakeService keeps accepted alerts in memory.
type fakeService struct {
	mu     sync.Mutex
	alerts []*safety.Alert
	err    error
}

func (f *fakeService) Accept(_ context.Context, alert *safety.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	f.alerts = append(f.alerts, alert)

	return nil
}

func (f *fakeService) Recent(_ context.Context, limit int) ([]*safety.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make([]*safety.Alert, 0, limit)

	for i := len(f.alerts) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, f.alerts[i])
	}

	return result, nil
}

func sampleAlert(id string) *safety.Alert {
	return &safety.Alert{
		EventID:     id,
		DeviceID:    "watch-1",
		UserID:      "user-1",
		EventCode:   safety.EventPanic,
		Severity:    safety.SeverityHigh,
		TimestampMs: 1_700_000_000_123,
		Metadata: safety.Metadata{
			Message:       "Panic button pressed",
			UserResponded: safety.Ptr(false),
			ContactName:   "Anna",
			ContactPhone:  "+15550100",
			Location:      &safety.Location{Latitude: 1.0, Longitude: 2.0},
		},
	}
}

func TestServer_Dispatch(t *testing.T) {
	t.Parallel()

	service := new(fakeService)
	s := NewServer(service)

	message, err := pb.AlertToStruct(sampleAlert("evt-1"))
	require.NoError(t, err)

	_, err = s.Dispatch(context.Background(), message)
	require.NoError(t, err)
	require.Equal(t, []*safety.Alert{sampleAlert("evt-1")}, service.alerts)
}

// TestServer_Dispatch_Validation ensures invalid requests return InvalidArgument errors.
func TestServer_Dispatch_Validation(t *testing.T) {
	t.Parallel()

	s := NewServer(new(fakeService))

	_, err := s.Dispatch(context.Background(), nil)
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	cases := []map[string]any{
		{"eventCode": "PANIC", "severity": "HIGH"},
		{"eventId": "x", "eventCode": "SNEEZE", "severity": "HIGH"},
		{"eventId": "x", "eventCode": "PANIC", "severity": "URGENT"},
		{"eventId": 42},
	}

	for _, fields := range cases {
		message, err := structpb.NewStruct(fields)
		require.NoError(t, err)

		_, err = s.Dispatch(context.Background(), message)
		require.Equal(t, codes.InvalidArgument, status.Code(err), "fields: %v", fields)
	}
}

func TestServer_Dispatch_ServiceError(t *testing.T) {
	t.Parallel()

	s := NewServer(&fakeService{err: errors.New("disk full")})

	message, err := pb.AlertToStruct(sampleAlert("evt-1"))
	require.NoError(t, err)

	_, err = s.Dispatch(context.Background(), message)
	require.Equal(t, codes.Internal, status.Code(err))
}

func TestServer_ListAlerts(t *testing.T) {
	t.Parallel()

	service := &fakeService{alerts: []*safety.Alert{sampleAlert("evt-1"), sampleAlert("evt-2"), sampleAlert("evt-3")}}
	s := NewServer(service)

	request, err := structpb.NewStruct(map[string]any{"limit": 2})
	require.NoError(t, err)

	response, err := s.ListAlerts(context.Background(), request)
	require.NoError(t, err)

	alerts, err := pb.AlertsFromStruct(response)
	require.NoError(t, err)
	require.Equal(t, []*safety.Alert{sampleAlert("evt-3"), sampleAlert("evt-2")}, alerts)

	response, err = s.ListAlerts(context.Background(), nil)
	require.NoError(t, err)

	alerts, err = pb.AlertsFromStruct(response)
	require.NoError(t, err)
	require.Len(t, alerts, 3)
}

func TestServer_ListAlerts_Limit(t *testing.T) {
	t.Parallel()

	s := NewServer(new(fakeService))

	for _, limit := range []int{0, -1, MaxListLimit + 1} {
		request, err := structpb.NewStruct(map[string]any{"limit": limit})
		require.NoError(t, err)

		_, err = s.ListAlerts(context.Background(), request)
		require.Equal(t, codes.InvalidArgument, status.Code(err), "limit: %d", limit)
	}
}
