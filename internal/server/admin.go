package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/adminrpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// AdminService adapts a *Server to adminrpc.AdminServiceServer for
// cmd/swapd's gRPC listener; every method here runs on whatever goroutine
// grpc-go dispatches the RPC on, never the single command-loop goroutine
// (Checkpoint/Compact are themselves safe to call concurrently with Run,
// see Server's doc comment; ConfigGet/Set/Rewrite only touch
// internal/config, which guards itself with its own mutex).
type AdminService struct {
	srv *Server
}

// NewAdminService wraps srv for gRPC registration.
func NewAdminService(srv *Server) *AdminService { return &AdminService{srv: srv} }

var _ adminrpc.AdminServiceServer = (*AdminService)(nil)

func (a *AdminService) Compact(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if err := a.srv.Compact(); err != nil {
		return nil, err
	}
	return &emptypb.Empty{}, nil
}

func (a *AdminService) Checkpoint(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	path, err := a.srv.Checkpoint(in.GetValue())
	if err != nil {
		return nil, err
	}
	return wrapperspb.String(path), nil
}

func (a *AdminService) Stats(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	cfStats, err := a.srv.StatsSnapshot()
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	for _, s := range cfStats {
		fmt.Fprintf(&b, "cf=%d entries=%d depth=%d page_size=%d\n", s.CF, s.Entries, s.Depth, s.PageSize)
	}
	return wrapperspb.String(b.String()), nil
}

func (a *AdminService) ConfigGet(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	kvs := a.srv.cfg.Get(in.GetValue())
	var b strings.Builder
	for _, kv := range kvs {
		fmt.Fprintf(&b, "%s %s\n", kv.Name, kv.Value)
	}
	return wrapperspb.String(b.String()), nil
}

// ConfigSet expects in.Value formatted "<name> <value>".
func (a *AdminService) ConfigSet(ctx context.Context, in *wrapperspb.StringValue) (*emptypb.Empty, error) {
	name, value, ok := strings.Cut(in.GetValue(), " ")
	if !ok {
		return nil, fmt.Errorf("config set: expected \"name value\", got %q", in.GetValue())
	}
	if err := a.srv.cfg.Set(name, value); err != nil {
		return nil, err
	}
	return &emptypb.Empty{}, nil
}

func (a *AdminService) ConfigRewrite(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if err := a.srv.cfg.Rewrite(); err != nil {
		return nil, err
	}
	return &emptypb.Empty{}, nil
}
