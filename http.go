// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2pipe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"unicode/utf8"
)

var headerEnd = []byte("\r\n\r\n")

// httpTransport reaches an engine serving "=h". Requests are written by hand
// so the command lands in the path verbatim; callers own any escaping.
type httpTransport struct {
	host   string
	dialer net.Dialer
}

// DialHTTP remembers host ("host:port", optionally prefixed with http://).
// Nothing is dialed until the first command.
func DialHTTP(host string, opts ...Option) *Pipe {
	o := newOptions(opts)
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimSuffix(host, "/")
	return newPipe(TransportHTTP, &httpTransport{host: host}, o)
}

func (t *httpTransport) Cmd(ctx context.Context, cmd string) (string, error) {
	conn, err := t.dialer.DialContext(ctx, "tcp", t.host)
	if err != nil {
		return "", ioError("dial "+t.host, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	req := fmt.Sprintf("GET /cmd/%s HTTP/1.1\r\nHost: %s\r\nConnection: close\r\n\r\n", cmd, t.host)
	if _, err := io.WriteString(conn, req); err != nil {
		return "", ioError("write", err)
	}
	resp, err := io.ReadAll(conn)
	if err != nil {
		return "", ioError("read", err)
	}

	body := extractBody(resp)
	if !utf8.Valid(body) {
		return "", ErrMalformedUTF8
	}
	return string(body), nil
}

// extractBody returns everything after the first blank line, or the whole
// buffer when there is none.
func extractBody(resp []byte) []byte {
	if i := bytes.Index(resp, headerEnd); i >= 0 {
		return resp[i+len(headerEnd):]
	}
	return resp
}

func (t *httpTransport) Close() error {
	return nil
}
