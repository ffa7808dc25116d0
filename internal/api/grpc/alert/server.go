package alert

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/safety-monitor/internal/domain/safety"
	pb "github.com/oshokin/safety-monitor/internal/pb/v1"
)

// Listing limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 1000
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	Accept(ctx context.Context, alert *safety.Alert) error
	Recent(ctx context.Context, limit int) ([]*safety.Alert, error)
}

// Server implements pb.AlertServiceServer.
type Server struct {
	// service provides the business logic for alert operations.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// Dispatch validates and accepts one alert.
func (s *Server) Dispatch(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	if req == nil || len(req.GetFields()) == 0 {
		return nil, status.Error(codes.InvalidArgument, "alert is required")
	}

	alert, err := pb.AlertFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err = alert.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err = s.service.Accept(ctx, alert); err != nil {
		return nil, status.Error(codes.Internal, "unable to record alert")
	}

	return new(emptypb.Empty), nil
}

// ListAlerts returns the most recent alerts.
func (s *Server) ListAlerts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	limit := DefaultListLimit

	if value, ok := req.GetFields()["limit"]; ok {
		requested := int(value.GetNumberValue())
		if requested <= 0 || requested > MaxListLimit {
			return nil, status.Errorf(codes.InvalidArgument, "limit must be between 1 and %d", MaxListLimit)
		}

		limit = requested
	}

	alerts, err := s.service.Recent(ctx, limit)
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to list alerts")
	}

	response, err := pb.AlertsToStruct(alerts)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	return response, nil
}
