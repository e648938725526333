// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package gateway serves engine sessions to remote r2pipe clients over
// JSON-RPC 2.0 and gRPC.
package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/rpc/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/luxfi/r2pipe"
)

// MetricsPath is where the HTTP listener exposes Prometheus metrics.
const MetricsPath = "/metrics"

// shutdownGrace bounds how long Serve waits for in-flight HTTP calls.
const shutdownGrace = 10 * time.Second

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics records requests and sessions on m and serves it at
// MetricsPath.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithGRPCServerOptions appends options passed to grpc.NewServer.
func WithGRPCServerOptions(opts ...grpc.ServerOption) Option {
	return func(s *Server) { s.grpcOpts = append(s.grpcOpts, opts...) }
}

// Server exposes a Sessions table over HTTP (JSON-RPC and metrics) and gRPC.
type Server struct {
	sessions *Sessions
	metrics  *Metrics
	log      *zap.Logger
	grpcOpts []grpc.ServerOption

	rpc  *rpc.Server
	grpc *grpc.Server
}

// NewServer builds both frontends over sessions. Sessions should be created
// with the same Metrics so the session gauge is exported.
func NewServer(sessions *Sessions, opts ...Option) (*Server, error) {
	s := &Server{sessions: sessions, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	rs, err := newRPCServer(sessions, s.metrics)
	if err != nil {
		return nil, err
	}
	s.rpc = rs

	grpcOpts := s.grpcOpts
	if s.metrics != nil {
		grpcOpts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(metricsInterceptor(s.metrics))}, grpcOpts...)
	}
	s.grpc = grpc.NewServer(grpcOpts...)
	RegisterEngineServer(s.grpc, &engineServer{sessions: sessions})
	return s, nil
}

// Handler returns the HTTP mux serving r2pipe.DefaultRPCPath and, with
// metrics enabled, MetricsPath.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(r2pipe.DefaultRPCPath, s.rpc)
	if s.metrics != nil {
		mux.Handle(MetricsPath, s.metrics.Handler())
	}
	return mux
}

// GRPCServer returns the gRPC server, for callers that serve it themselves.
func (s *Server) GRPCServer() *grpc.Server {
	return s.grpc
}

// Serve serves HTTP on httpLis and gRPC on grpcLis until ctx is done or a
// listener fails; either listener may be nil. All sessions are closed on
// return.
func (s *Server) Serve(ctx context.Context, httpLis, grpcLis net.Listener) error {
	if httpLis == nil && grpcLis == nil {
		return errors.New("gateway: no listener")
	}
	g, ctx := errgroup.WithContext(ctx)

	if httpLis != nil {
		hs := &http.Server{
			Handler:           s.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		s.log.Info("serving json-rpc", zap.Stringer("addr", httpLis.Addr()))
		g.Go(func() error {
			if err := hs.Serve(httpLis); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return hs.Shutdown(sctx)
		})
	}

	if grpcLis != nil {
		s.log.Info("serving grpc", zap.Stringer("addr", grpcLis.Addr()))
		g.Go(func() error {
			return s.grpc.Serve(grpcLis)
		})
		g.Go(func() error {
			<-ctx.Done()
			s.grpc.GracefulStop()
			return nil
		})
	}

	err := g.Wait()
	if cerr := s.sessions.CloseAll(); err == nil {
		err = cerr
	}
	s.log.Info("gateway stopped", zap.Error(err))
	return err
}
