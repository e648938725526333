// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2pipe

import (
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// Option configures a Pipe or a pool.
type Option func(*options)

type options struct {
	codec         Codec
	logger        *zap.Logger
	spawn         *SpawnOptions
	librarySuffix string
	callbackLimit int64

	// gateway clients
	remoteTarget  string
	remoteSession string
	grpcDial      []grpc.DialOption
}

func newOptions(opts []Option) *options {
	o := &options{
		codec:  defaultCodec,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithCodec sets the codec used by Cmdj and by pool workers.
func WithCodec(c Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSpawnOptions sets the spawn options Dial uses for spawn targets.
func WithSpawnOptions(so *SpawnOptions) Option {
	return func(o *options) { o.spawn = so }
}

// WithLibrarySuffix appends a suffix (e.g. ".5.9.8") to the libr_core file
// name loaded by OpenNative.
func WithLibrarySuffix(s string) Option {
	return func(o *options) { o.librarySuffix = s }
}

// WithCallbackLimit bounds how many pool callbacks run at once. Zero means
// unbounded.
func WithCallbackLimit(n int64) Option {
	return func(o *options) { o.callbackLimit = n }
}

// WithRemoteTarget makes a gateway client open a fresh session on target
// when dialing and close it with the Pipe.
func WithRemoteTarget(target string) Option {
	return func(o *options) { o.remoteTarget = target }
}

// WithRemoteSession attaches a gateway client to an existing session.
func WithRemoteSession(id string) Option {
	return func(o *options) { o.remoteSession = id }
}

// WithGRPCDialOptions appends options passed to grpc.NewClient.
func WithGRPCDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) { o.grpcDial = append(o.grpcDial, opts...) }
}
