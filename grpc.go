// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2pipe

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

func init() {
	encoding.RegisterCodec(grpcJSONCodec{})
	registerTransport(TransportGRPC, dialGRPC)
}

// grpcJSONCodec lets the gateway service run without generated protobuf
// messages.
type grpcJSONCodec struct{}

func (grpcJSONCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (grpcJSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (grpcJSONCodec) Name() string                       { return GRPCCodecName }

// GRPCMethod returns the full gRPC method name for a gateway method.
func GRPCMethod(method string) string {
	return "/" + GRPCServiceName + "/" + method
}

type grpcCaller struct {
	conn *grpc.ClientConn
}

// DialGRPC returns a Pipe backed by a gateway's gRPC endpoint.
func DialGRPC(ctx context.Context, target string, opts ...Option) (*Pipe, error) {
	o := newOptions(opts)
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(GRPCCodecName)),
	}, o.grpcDial...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: grpc dial %s: %w", ErrIO, target, err)
	}
	return newRemote(ctx, TransportGRPC, &grpcCaller{conn: conn}, o)
}

func (c *grpcCaller) call(ctx context.Context, method string, args, reply interface{}) error {
	if err := c.conn.Invoke(ctx, GRPCMethod(method), args, reply); err != nil {
		return fmt.Errorf("%w: grpc %s: %w", ErrIO, method, err)
	}
	return nil
}

func (c *grpcCaller) close() error {
	return c.conn.Close()
}
