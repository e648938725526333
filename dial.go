// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2pipe

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Dial opens a Pipe described by uri:
//
//	""  or "session:"             inherited session
//	"/bin/ls", "spawn:///bin/ls"  spawned engine on a file
//	"tcp://host:9080"             engine "=t" listener
//	"http://host:9090"            engine "=h" web server
//	"native:///bin/ls"            libr_core in this process
//	"auto:///bin/ls"              native, or spawned if libr_core is missing
//	"jsonrpc://host:9091/rpc?open=/bin/ls"
//	"grpc://host:9092?session=<id>"
//
// Unknown schemes are engine URIs such as "malloc://512" and are spawned
// as-is.
func Dial(ctx context.Context, uri string, opts ...Option) (*Pipe, error) {
	scheme, target := splitURI(uri)
	dial, ok := lookupTransport(scheme)
	if !ok {
		return dialSpawn(ctx, uri, opts)
	}
	return dial(ctx, target, opts)
}

func splitURI(uri string) (scheme, target string) {
	uri = strings.TrimSpace(uri)
	switch uri {
	case "", TransportSession + ":", TransportSession + "://":
		return TransportSession, ""
	}
	if i := strings.Index(uri, "://"); i > 0 {
		return uri[:i], uri[i+3:]
	}
	return DefaultTransport, uri
}

func dialSpawn(_ context.Context, target string, opts []Option) (*Pipe, error) {
	o := newOptions(opts)
	return Spawn(target, o.spawn, opts...)
}

func dialSession(_ context.Context, _ string, opts []Option) (*Pipe, error) {
	return Open(opts...)
}

func dialTCP(ctx context.Context, target string, opts []Option) (*Pipe, error) {
	return DialTCP(ctx, target, opts...)
}

func dialHTTP(_ context.Context, target string, opts []Option) (*Pipe, error) {
	return DialHTTP(target, opts...), nil
}

func dialNative(_ context.Context, target string, opts []Option) (*Pipe, error) {
	return OpenNative(target, opts...)
}

func dialAuto(ctx context.Context, target string, opts []Option) (*Pipe, error) {
	return DialAuto(ctx, target, opts...)
}

// DialAuto opens target in-process when libr_core can be loaded and spawns
// the engine otherwise. Spawn options come from WithSpawnOptions.
func DialAuto(ctx context.Context, target string, opts ...Option) (*Pipe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := OpenNative(target, opts...)
	if err == nil {
		return p, nil
	}
	o := newOptions(opts)
	o.logger.Debug("native transport unavailable, spawning", zap.String("target", target), zap.Error(err))
	p, serr := Spawn(target, o.spawn, opts...)
	if serr != nil {
		return nil, fmt.Errorf("native: %w; spawn: %w", err, serr)
	}
	return p, nil
}

func dialJSONRPC(ctx context.Context, target string, opts []Option) (*Pipe, error) {
	u, opts, err := remoteURL(target, opts)
	if err != nil {
		return nil, err
	}
	if u.Path == "" {
		u.Path = DefaultRPCPath
	}
	return DialJSONRPC(ctx, u.String(), opts...)
}

func dialGRPC(ctx context.Context, target string, opts []Option) (*Pipe, error) {
	u, opts, err := remoteURL(target, opts)
	if err != nil {
		return nil, err
	}
	return DialGRPC(ctx, u.Host, opts...)
}

// remoteURL splits the open/session query parameters of a gateway target
// into options.
func remoteURL(target string, opts []Option) (*url.URL, []Option, error) {
	u, err := url.Parse("http://" + target)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: gateway address %q: %v", ErrArgumentMismatch, target, err)
	}
	q := u.Query()
	opts = opts[:len(opts):len(opts)]
	if v := q.Get("open"); v != "" {
		opts = append(opts, WithRemoteTarget(v))
	}
	if v := q.Get("session"); v != "" {
		opts = append(opts, WithRemoteSession(v))
	}
	u.RawQuery = ""
	return u, opts, nil
}
