// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2pipe

import (
	"context"
	"io"
	"net"
)

// tcpTransport reaches an engine listening with "=t". The engine treats each
// connection as a single exchange, so every command dials again.
type tcpTransport struct {
	addr   string
	dialer net.Dialer
}

// DialTCP connects once to confirm the engine is reachable and remembers
// the resolved peer address for later commands.
func DialTCP(ctx context.Context, addr string, opts ...Option) (*Pipe, error) {
	o := newOptions(opts)

	t := &tcpTransport{}
	conn, err := t.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, ioError("dial "+addr, err)
	}
	t.addr = conn.RemoteAddr().String()
	_ = conn.Close()

	return newPipe(TransportTCP, t, o), nil
}

// Addr returns the remembered peer address.
func (t *tcpTransport) Addr() string {
	return t.addr
}

func (t *tcpTransport) Cmd(ctx context.Context, cmd string) (string, error) {
	conn, err := t.dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return "", ioError("dial "+t.addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if _, err := io.WriteString(conn, cmd); err != nil {
		return "", ioError("write", err)
	}
	res, err := io.ReadAll(conn)
	if err != nil {
		return "", ioError("read", err)
	}
	// connection close ends the answer; reuse the framed stripping
	return processResult(append(res, terminator))
}

func (t *tcpTransport) Close() error {
	return nil
}
