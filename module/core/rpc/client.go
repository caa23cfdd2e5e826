package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Dial opens a plaintext client connection that speaks the JSON codec.
// Extra options are appended after the defaults.
func Dial(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}
	return grpc.NewClient(target, append(base, opts...)...)
}

type LocationServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewLocationServiceClient(cc grpc.ClientConnInterface) *LocationServiceClient {
	return &LocationServiceClient{cc: cc}
}

func (c *LocationServiceClient) UpdateLocation(ctx context.Context, in *LocationRequest, opts ...grpc.CallOption) (*LocationResponse, error) {
	out := new(LocationResponse)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/UpdateLocation", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LocationServiceClient) HealthCheck(ctx context.Context, in *HealthCheckRequest, opts ...grpc.CallOption) (*HealthCheckResponse, error) {
	out := new(HealthCheckResponse)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/HealthCheck", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LocationServiceClient) StreamLocations(ctx context.Context, opts ...grpc.CallOption) (*LocationStream, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], "/"+ServiceName+"/StreamLocations", opts...)
	if err != nil {
		return nil, err
	}
	return &LocationStream{stream}, nil
}

// LocationStream is the client side of StreamLocations.
type LocationStream struct {
	grpc.ClientStream
}

func (x *LocationStream) Send(m *LocationRequest) error {
	return x.ClientStream.SendMsg(m)
}

func (x *LocationStream) Recv() (*LocationResponse, error) {
	m := new(LocationResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
