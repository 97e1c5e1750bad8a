package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "payswarm.v1.TransferService"

const (
	MethodQuote            = "/" + ServiceName + "/Quote"
	MethodProcessPayment   = "/" + ServiceName + "/ProcessPayment"
	MethodGetTransaction   = "/" + ServiceName + "/GetTransaction"
	MethodCheckPayeeGroups = "/" + ServiceName + "/CheckPayeeGroups"
)

// TransferServiceServer is the server API for the transfer service.
// Requests and responses are JSON documents carried as structpb.Struct.
type TransferServiceServer interface {
	Quote(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ProcessPayment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTransaction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckPayeeGroups(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterTransferServiceServer registers srv on s
func RegisterTransferServiceServer(s grpc.ServiceRegistrar, srv TransferServiceServer) {
	s.RegisterService(&TransferServiceDesc, srv)
}

func unaryHandler(
	method string,
	call func(TransferServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error),
) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}

		if interceptor == nil {
			return call(srv.(TransferServiceServer), ctx, in)
		}

		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(TransferServiceServer), ctx, req.(*structpb.Struct))
		}

		return interceptor(ctx, in, info, handler)
	}
}

// TransferServiceDesc describes the transfer service for grpc.Server.RegisterService
var TransferServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TransferServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Quote",
			Handler:    unaryHandler(MethodQuote, TransferServiceServer.Quote),
		},
		{
			MethodName: "ProcessPayment",
			Handler:    unaryHandler(MethodProcessPayment, TransferServiceServer.ProcessPayment),
		},
		{
			MethodName: "GetTransaction",
			Handler:    unaryHandler(MethodGetTransaction, TransferServiceServer.GetTransaction),
		},
		{
			MethodName: "CheckPayeeGroups",
			Handler:    unaryHandler(MethodCheckPayeeGroups, TransferServiceServer.CheckPayeeGroups),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "payswarm/v1/transfer.proto",
}

// Client calls the transfer service over a client connection
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a new Client instance
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Quote(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodQuote, in, opts...)
}

func (c *Client) ProcessPayment(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodProcessPayment, in, opts...)
}

func (c *Client) GetTransaction(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetTransaction, in, opts...)
}

func (c *Client) CheckPayeeGroups(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodCheckPayeeGroups, in, opts...)
}
