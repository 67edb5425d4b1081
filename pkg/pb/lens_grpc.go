// Package pb defines the chromalens.LensService contract. Requests and
// responses are protobuf well-known types, so no generated message code is
// needed; this file follows the layout protoc-gen-go-grpc emits.
package pb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const LensService_ServiceName = "chromalens.LensService"

const (
	LensService_Activate_FullMethodName    = "/chromalens.LensService/Activate"
	LensService_Deactivate_FullMethodName  = "/chromalens.LensService/Deactivate"
	LensService_SetFilter_FullMethodName   = "/chromalens.LensService/SetFilter"
	LensService_GetState_FullMethodName    = "/chromalens.LensService/GetState"
	LensService_Inspect_FullMethodName     = "/chromalens.LensService/Inspect"
	LensService_LookupColor_FullMethodName = "/chromalens.LensService/LookupColor"
)

// LensServiceClient is the client API for LensService.
type LensServiceClient interface {
	// Activate starts the magnifier with the named filter ("" keeps the current one).
	Activate(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	Deactivate(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	SetFilter(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetState(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	// Inspect takes {x, y, filter} and returns the sampled colour.
	Inspect(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	LookupColor(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type lensServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewLensServiceClient(cc grpc.ClientConnInterface) LensServiceClient {
	return &lensServiceClient{cc}
}

func (c *lensServiceClient) Activate(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, LensService_Activate_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *lensServiceClient) Deactivate(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, LensService_Deactivate_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *lensServiceClient) SetFilter(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, LensService_SetFilter_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *lensServiceClient) GetState(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, LensService_GetState_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *lensServiceClient) Inspect(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, LensService_Inspect_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *lensServiceClient) LookupColor(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, LensService_LookupColor_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// LensServiceServer is the server API for LensService.
type LensServiceServer interface {
	Activate(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Deactivate(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SetFilter(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetState(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Inspect(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LookupColor(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	mustEmbedUnimplementedLensServiceServer()
}

// UnimplementedLensServiceServer must be embedded by implementations.
type UnimplementedLensServiceServer struct{}

func (UnimplementedLensServiceServer) Activate(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Activate not implemented")
}
func (UnimplementedLensServiceServer) Deactivate(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Deactivate not implemented")
}
func (UnimplementedLensServiceServer) SetFilter(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SetFilter not implemented")
}
func (UnimplementedLensServiceServer) GetState(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetState not implemented")
}
func (UnimplementedLensServiceServer) Inspect(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Inspect not implemented")
}
func (UnimplementedLensServiceServer) LookupColor(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method LookupColor not implemented")
}
func (UnimplementedLensServiceServer) mustEmbedUnimplementedLensServiceServer() {}

func RegisterLensServiceServer(s grpc.ServiceRegistrar, srv LensServiceServer) {
	s.RegisterService(&LensService_ServiceDesc, srv)
}

func _LensService_Activate_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LensServiceServer).Activate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: LensService_Activate_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LensServiceServer).Activate(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _LensService_Deactivate_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LensServiceServer).Deactivate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: LensService_Deactivate_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LensServiceServer).Deactivate(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _LensService_SetFilter_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LensServiceServer).SetFilter(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: LensService_SetFilter_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LensServiceServer).SetFilter(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _LensService_GetState_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LensServiceServer).GetState(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: LensService_GetState_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LensServiceServer).GetState(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _LensService_Inspect_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LensServiceServer).Inspect(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: LensService_Inspect_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LensServiceServer).Inspect(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _LensService_LookupColor_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LensServiceServer).LookupColor(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: LensService_LookupColor_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LensServiceServer).LookupColor(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// LensService_ServiceDesc is the grpc.ServiceDesc for LensService.
var LensService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: LensService_ServiceName,
	HandlerType: (*LensServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Activate", Handler: _LensService_Activate_Handler},
		{MethodName: "Deactivate", Handler: _LensService_Deactivate_Handler},
		{MethodName: "SetFilter", Handler: _LensService_SetFilter_Handler},
		{MethodName: "GetState", Handler: _LensService_GetState_Handler},
		{MethodName: "Inspect", Handler: _LensService_Inspect_Handler},
		{MethodName: "LookupColor", Handler: _LensService_LookupColor_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chromalens/lens.proto",
}
