package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "ethiosafeguard.LocationService"

// ErrMalformedRequest marks a received message that is not a valid
// LocationRequest document, such as a string where a number belongs.
var ErrMalformedRequest = errors.New("malformed request")

// LocationServiceServer is implemented by the server side of the location
// service.
type LocationServiceServer interface {
	UpdateLocation(ctx context.Context, req *LocationRequest) (*LocationResponse, error)
	StreamLocations(stream LocationService_StreamLocationsServer) error
	HealthCheck(ctx context.Context, req *HealthCheckRequest) (*HealthCheckResponse, error)
}

type LocationService_StreamLocationsServer interface {
	Send(*LocationResponse) error
	Recv() (*LocationRequest, error)
	grpc.ServerStream
}

type streamLocationsServer struct {
	grpc.ServerStream
}

func (x *streamLocationsServer) Send(m *LocationResponse) error {
	return x.ServerStream.SendMsg(m)
}

// Recv returns the next request. A frame that does not decode yields an
// error wrapping ErrMalformedRequest and leaves the stream usable.
func (x *streamLocationsServer) Recv() (*LocationRequest, error) {
	var raw rawMessage
	if err := x.ServerStream.RecvMsg(&raw); err != nil {
		return nil, err
	}
	m := new(LocationRequest)
	if err := json.Unmarshal(raw, m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	return m, nil
}

func RegisterLocationServiceServer(s grpc.ServiceRegistrar, srv LocationServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LocationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "UpdateLocation", Handler: updateLocationHandler},
		{MethodName: "HealthCheck", Handler: healthCheckHandler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamLocations",
			Handler:       streamLocationsHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "ethiosafeguard/location.json",
}

func updateLocationHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(LocationRequest)
	if err := dec(in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v: %v", ErrMalformedRequest, err)
	}
	if interceptor == nil {
		return srv.(LocationServiceServer).UpdateLocation(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/UpdateLocation",
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LocationServiceServer).UpdateLocation(ctx, req.(*LocationRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func healthCheckHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(HealthCheckRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LocationServiceServer).HealthCheck(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/HealthCheck",
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LocationServiceServer).HealthCheck(ctx, req.(*HealthCheckRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func streamLocationsHandler(srv any, stream grpc.ServerStream) error {
	return srv.(LocationServiceServer).StreamLocations(&streamLocationsServer{stream})
}
