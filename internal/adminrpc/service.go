// Package adminrpc is the swapctl control plane: a small gRPC service
// exposing compact/checkpoint/stats/config verbs against a running
// internal/server.Server, separate from the RESP client protocol per
// spec.md §6's "an admin CLI talking to swapd's gRPC control surface."
//
// This is hand-written rather than protoc-generated (no toolchain runs as
// part of building this module), but follows protoc-gen-go-grpc's
// generated shape exactly — ServiceDesc, unary handlers, a thin client
// stub over grpc.ClientConnInterface — using the well-known wrapper types
// (emptypb.Empty, wrapperspb.StringValue) as messages instead of types
// generated from a .proto, since those wrapper types are themselves
// ordinary compiled protobuf messages and need no codegen of their own.
package adminrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "swapadmin.AdminService"

// AdminServiceServer is the interface cmd/swapd's gRPC listener serves.
type AdminServiceServer interface {
	// Compact runs a manual compaction pass (swapctl compact).
	Compact(ctx context.Context, in *emptypb.Empty) (*emptypb.Empty, error)
	// Checkpoint snapshots the engine into in.Value, returning the
	// checkpoint path (swapctl checkpoint <dir>).
	Checkpoint(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	// Stats returns a text dump of per-CF engine stats (swapctl stat).
	Stats(ctx context.Context, in *emptypb.Empty) (*wrapperspb.StringValue, error)
	// ConfigGet returns a newline-separated "name value" listing for
	// in.Value's glob pattern (swapctl config get <pattern>).
	ConfigGet(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	// ConfigSet applies in.Value, formatted "name value" (swapctl config
	// set <name> <value>).
	ConfigSet(ctx context.Context, in *wrapperspb.StringValue) (*emptypb.Empty, error)
	// ConfigRewrite persists the live config back to its source file
	// (swapctl config rewrite).
	ConfigRewrite(ctx context.Context, in *emptypb.Empty) (*emptypb.Empty, error)
}

// AdminServiceClient is what cmd/swapctl dials against.
type AdminServiceClient interface {
	Compact(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Checkpoint(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Stats(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	ConfigGet(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	ConfigSet(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
	ConfigRewrite(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type adminServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAdminServiceClient wraps an already-dialed connection.
func NewAdminServiceClient(cc grpc.ClientConnInterface) AdminServiceClient {
	return &adminServiceClient{cc: cc}
}

func (c *adminServiceClient) Compact(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Compact", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *adminServiceClient) Checkpoint(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Checkpoint", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *adminServiceClient) Stats(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Stats", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *adminServiceClient) ConfigGet(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/ConfigGet", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *adminServiceClient) ConfigSet(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/ConfigSet", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *adminServiceClient) ConfigRewrite(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/ConfigRewrite", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _AdminService_Compact_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminServiceServer).Compact(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Compact"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AdminServiceServer).Compact(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _AdminService_Checkpoint_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminServiceServer).Checkpoint(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Checkpoint"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AdminServiceServer).Checkpoint(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _AdminService_Stats_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminServiceServer).Stats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Stats"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AdminServiceServer).Stats(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _AdminService_ConfigGet_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminServiceServer).ConfigGet(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ConfigGet"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AdminServiceServer).ConfigGet(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _AdminService_ConfigSet_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminServiceServer).ConfigSet(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ConfigSet"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AdminServiceServer).ConfigSet(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _AdminService_ConfigRewrite_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminServiceServer).ConfigRewrite(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ConfigRewrite"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AdminServiceServer).ConfigRewrite(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc is the grpc.ServiceDesc protoc-gen-go-grpc would emit for
// this service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*AdminServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Compact", Handler: _AdminService_Compact_Handler},
		{MethodName: "Checkpoint", Handler: _AdminService_Checkpoint_Handler},
		{MethodName: "Stats", Handler: _AdminService_Stats_Handler},
		{MethodName: "ConfigGet", Handler: _AdminService_ConfigGet_Handler},
		{MethodName: "ConfigSet", Handler: _AdminService_ConfigSet_Handler},
		{MethodName: "ConfigRewrite", Handler: _AdminService_ConfigRewrite_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "swapadmin.proto",
}

// RegisterAdminServiceServer registers srv against s, mirroring the
// generated RegisterXxxServer helper.
func RegisterAdminServiceServer(s *grpc.Server, srv AdminServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
