// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/r2pipe"
	"github.com/luxfi/r2pipe/gateway"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var httpAddr, grpcAddr, defaultURI string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve engines over JSON-RPC and gRPC",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			gw := cfg.Gateway
			if cmd.Flags().Changed("http") {
				gw.HTTPAddr = httpAddr
			}
			if cmd.Flags().Changed("grpc") {
				gw.GRPCAddr = grpcAddr
			}
			if cmd.Flags().Changed("default") {
				gw.Default = defaultURI
			}

			log := ctx.log()
			opts := cfg.Options(log)

			var metrics *gateway.Metrics
			var serverOpts []gateway.Option
			serverOpts = append(serverOpts, gateway.WithLogger(log))
			if gw.Metrics {
				metrics = gateway.NewMetrics()
				serverOpts = append(serverOpts, gateway.WithMetrics(metrics))
			}

			var opener gateway.Opener
			if gw.AllowOpen {
				opener = gateway.DialOpener(opts...)
			}
			sessions := gateway.NewSessions(opener, log, metrics)

			if gw.Default != "" {
				p, err := r2pipe.Dial(cmd.Context(), gw.Default, opts...)
				if err != nil {
					return fmt.Errorf("open default engine %s: %w", gw.Default, err)
				}
				if err := sessions.SetDefault(p); err != nil {
					return err
				}
			}

			srv, err := gateway.NewServer(sessions, serverOpts...)
			if err != nil {
				_ = sessions.CloseAll()
				return err
			}

			httpLis, grpcLis, err := listen(gw.HTTPAddr, gw.GRPCAddr)
			if err != nil {
				_ = sessions.CloseAll()
				return err
			}

			sctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			log.Info("gateway ready", zap.String("http", gw.HTTPAddr), zap.String("grpc", gw.GRPCAddr))
			return srv.Serve(sctx, httpLis, grpcLis)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", "", "JSON-RPC and metrics listen address, empty to disable")
	cmd.Flags().StringVar(&grpcAddr, "grpc", "", "gRPC listen address, empty to disable")
	cmd.Flags().StringVar(&defaultURI, "default", "", "Engine uri served as the default session")

	return cmd
}

func listen(httpAddr, grpcAddr string) (net.Listener, net.Listener, error) {
	var httpLis, grpcLis net.Listener
	var err error
	if httpAddr != "" {
		if httpLis, err = net.Listen("tcp", httpAddr); err != nil {
			return nil, nil, fmt.Errorf("listen http: %w", err)
		}
	}
	if grpcAddr != "" {
		if grpcLis, err = net.Listen("tcp", grpcAddr); err != nil {
			if httpLis != nil {
				_ = httpLis.Close()
			}
			return nil, nil, fmt.Errorf("listen grpc: %w", err)
		}
	}
	if httpLis == nil && grpcLis == nil {
		return nil, nil, fmt.Errorf("no listen address configured")
	}
	return httpLis, grpcLis, nil
}
