// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/luxfi/r2pipe"
)

const frontendGRPC = "grpc"

// EngineServer is the gRPC frontend. Messages are the r2pipe wire types
// carried by the "json" codec.
type EngineServer interface {
	Open(context.Context, *r2pipe.OpenArgs) (*r2pipe.OpenReply, error)
	Cmd(context.Context, *r2pipe.CmdArgs) (*r2pipe.CmdReply, error)
	Close(context.Context, *r2pipe.CloseArgs) (*r2pipe.CloseReply, error)
}

type engineServer struct {
	sessions *Sessions
}

func (s *engineServer) Open(ctx context.Context, args *r2pipe.OpenArgs) (*r2pipe.OpenReply, error) {
	id, err := s.sessions.Open(ctx, args.Target)
	if err != nil {
		return nil, toStatus(err)
	}
	return &r2pipe.OpenReply{Session: id}, nil
}

func (s *engineServer) Cmd(ctx context.Context, args *r2pipe.CmdArgs) (*r2pipe.CmdReply, error) {
	out, err := s.sessions.Cmd(ctx, args.Session, args.Command)
	if err != nil {
		return nil, toStatus(err)
	}
	return &r2pipe.CmdReply{Output: out}, nil
}

func (s *engineServer) Close(_ context.Context, args *r2pipe.CloseArgs) (*r2pipe.CloseReply, error) {
	if err := s.sessions.Close(args.Session); err != nil {
		return nil, toStatus(err)
	}
	return &r2pipe.CloseReply{}, nil
}

// toStatus maps r2pipe and gateway errors onto gRPC codes.
func toStatus(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, ErrUnknownSession):
		code = codes.NotFound
	case errors.Is(err, ErrNoOpener):
		code = codes.Unimplemented
	case errors.Is(err, r2pipe.ErrArgumentMismatch):
		code = codes.InvalidArgument
	case errors.Is(err, r2pipe.ErrNoSession), errors.Is(err, r2pipe.ErrClosed):
		code = codes.FailedPrecondition
	case errors.Is(err, r2pipe.ErrIO), errors.Is(err, r2pipe.ErrEmptyResponse):
		code = codes.Unavailable
	case errors.Is(err, r2pipe.ErrSharedLibrary):
		code = codes.Unimplemented
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

// EngineServiceDesc describes r2pipe.Engine without generated code.
var EngineServiceDesc = grpc.ServiceDesc{
	ServiceName: r2pipe.GRPCServiceName,
	HandlerType: (*EngineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: r2pipe.MethodOpen, Handler: openHandler},
		{MethodName: r2pipe.MethodCmd, Handler: cmdHandler},
		{MethodName: r2pipe.MethodClose, Handler: closeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "r2pipe/engine",
}

func openHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(r2pipe.OpenArgs)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EngineServer).Open(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: r2pipe.GRPCMethod(r2pipe.MethodOpen)}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EngineServer).Open(ctx, req.(*r2pipe.OpenArgs))
	}
	return interceptor(ctx, in, info, handler)
}

func cmdHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(r2pipe.CmdArgs)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EngineServer).Cmd(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: r2pipe.GRPCMethod(r2pipe.MethodCmd)}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EngineServer).Cmd(ctx, req.(*r2pipe.CmdArgs))
	}
	return interceptor(ctx, in, info, handler)
}

func closeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(r2pipe.CloseArgs)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EngineServer).Close(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: r2pipe.GRPCMethod(r2pipe.MethodClose)}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EngineServer).Close(ctx, req.(*r2pipe.CloseArgs))
	}
	return interceptor(ctx, in, info, handler)
}

// metricsInterceptor records every unary call.
func metricsInterceptor(m *Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		m.observe(frontendGRPC, methodName(info.FullMethod), start, err)
		return resp, err
	}
}

func methodName(full string) string {
	for i := len(full) - 1; i >= 0; i-- {
		if full[i] == '/' {
			return full[i+1:]
		}
	}
	return full
}

// RegisterEngineServer registers srv on s.
func RegisterEngineServer(s grpc.ServiceRegistrar, srv EngineServer) {
	s.RegisterService(&EngineServiceDesc, srv)
}
