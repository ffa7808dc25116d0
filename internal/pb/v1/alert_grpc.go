package pb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// AlertServiceName is the fully qualified gRPC service name.
const AlertServiceName = "safety.v1.AlertService"

// Full method names.
const (
	AlertServiceDispatchFullMethodName   = "/" + AlertServiceName + "/Dispatch"
	AlertServiceListAlertsFullMethodName = "/" + AlertServiceName + "/ListAlerts"
)

// AlertServiceClient is the client API of the alert service.
type AlertServiceClient interface {
	Dispatch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	ListAlerts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type alertServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAlertServiceClient creates a client stub over cc.
func NewAlertServiceClient(cc grpc.ClientConnInterface) AlertServiceClient {
	return &alertServiceClient{cc: cc}
}

func (c *alertServiceClient) Dispatch(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, AlertServiceDispatchFullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *alertServiceClient) ListAlerts(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, AlertServiceListAlertsFullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// AlertServiceServer is the server API of the alert service.
type AlertServiceServer interface {
	// Dispatch accepts one alert.
	Dispatch(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)
	// ListAlerts returns the most recent alerts, newest first. The request may carry {"limit": n}.
	ListAlerts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// AlertServiceDesc describes the alert service for grpc.Server.
//
//nolint:gochecknoglobals // Service descriptors are package-level by convention.
var AlertServiceDesc = grpc.ServiceDesc{
	ServiceName: AlertServiceName,
	HandlerType: (*AlertServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Dispatch",
			Handler:    alertServiceDispatchHandler,
		},
		{
			MethodName: "ListAlerts",
			Handler:    alertServiceListAlertsHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "safety/v1/alert.proto",
}

// RegisterAlertServiceServer registers srv on registrar.
func RegisterAlertServiceServer(registrar grpc.ServiceRegistrar, srv AlertServiceServer) {
	registrar.RegisterService(&AlertServiceDesc, srv)
}

func alertServiceDispatchHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature is fixed by grpc.MethodHandler.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(AlertServiceServer).Dispatch(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: AlertServiceDispatchFullMethodName,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AlertServiceServer).Dispatch(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}

func alertServiceListAlertsHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature is fixed by grpc.MethodHandler.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(AlertServiceServer).ListAlerts(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: AlertServiceListAlertsFullMethodName,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AlertServiceServer).ListAlerts(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}
