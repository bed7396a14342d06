package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "lightanalyzer.v1.SamplingControl"

const (
	startMethod         = "/" + ServiceName + "/Start"
	stopMethod          = "/" + ServiceName + "/Stop"
	getStatusMethod     = "/" + ServiceName + "/GetStatus"
	watchReadingsMethod = "/" + ServiceName + "/WatchReadings"
	listSessionsMethod  = "/" + ServiceName + "/ListSessions"
)

// ControlServer is the server API for the SamplingControl service.
// Messages are protobuf well-known types: requests are Empty (ListSessions
// takes a Struct with optional RFC 3339 "from" and "to"), replies are
// Struct values (see statusToProto, updateToProto, noticeToProto,
// sessionsToProto).
type ControlServer interface {
	Start(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Stop(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	WatchReadings(*emptypb.Empty, grpc.ServerStream) error
	ListSessions(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes SamplingControl for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Start", Handler: unaryHandler(startMethod, ControlServer.Start)},
		{MethodName: "Stop", Handler: unaryHandler(stopMethod, ControlServer.Stop)},
		{MethodName: "GetStatus", Handler: unaryHandler(getStatusMethod, ControlServer.GetStatus)},
		{MethodName: "ListSessions", Handler: unaryHandler(listSessionsMethod, ControlServer.ListSessions)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchReadings",
			Handler:       watchReadingsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "lightanalyzer/v1/control.proto",
}

// RegisterControlServer registers srv on s.
func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unaryHandler[T any, Req interface{ *T }](fullMethod string, call func(ControlServer, context.Context, Req) (*structpb.Struct, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := Req(new(T))
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ControlServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ControlServer), ctx, req.(Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchReadingsHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ControlServer).WatchReadings(in, stream)
}

// ControlClient is the client API for the SamplingControl service.
type ControlClient struct {
	cc grpc.ClientConnInterface
}

// NewControlClient wraps an established connection.
func NewControlClient(cc grpc.ClientConnInterface) *ControlClient {
	return &ControlClient{cc: cc}
}

func (c *ControlClient) Start(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, startMethod, opts...)
}

func (c *ControlClient) Stop(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, stopMethod, opts...)
}

func (c *ControlClient) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, getStatusMethod, opts...)
}

// ListSessions returns journaled sessions started within [from, to).
// Empty bounds leave that side of the window open.
func (c *ControlClient) ListSessions(ctx context.Context, from, to string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	req := &structpb.Struct{Fields: map[string]*structpb.Value{}}
	if from != "" {
		req.Fields["from"] = structpb.NewStringValue(from)
	}
	if to != "" {
		req.Fields["to"] = structpb.NewStringValue(to)
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, listSessionsMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// WatchReadings opens the reading feed. The stream ends when ctx is done.
func (c *ControlClient) WatchReadings(ctx context.Context, opts ...grpc.CallOption) (*ReadingStream, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], watchReadingsMethod, opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &ReadingStream{stream}, nil
}

func (c *ControlClient) invoke(ctx context.Context, method string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadingStream receives feed messages from WatchReadings.
type ReadingStream struct {
	grpc.ClientStream
}

// Recv blocks for the next feed message.
func (s *ReadingStream) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := s.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
