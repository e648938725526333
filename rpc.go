// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2pipe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	rpc "github.com/gorilla/rpc/v2/json2"
	"go.uber.org/zap"
)

const (
	maxRetries    = 3
	retryBaseWait = 500 * time.Millisecond

	// DefaultRPCPath is where a gateway serves JSON-RPC.
	DefaultRPCPath = "/rpc"
)

// newHTTPClient creates an HTTP client with connection reuse disabled.
// Engine commands can run for minutes, so there is no client timeout; use
// the context instead.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DisableKeepAlives: true,
		},
	}
}

// cleanlyCloseBody drains and closes an HTTP response body.
func cleanlyCloseBody(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

// isRetryableError reports failures that happened before the request left
// this process. Commands are not assumed idempotent, so anything later is
// not retried.
func isRetryableError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

type jsonrpcCaller struct {
	uri    string
	client *http.Client
	log    *zap.Logger
}

// DialJSONRPC returns a Pipe backed by a gateway's JSON-RPC endpoint, e.g.
// "http://localhost:9091/rpc". Use WithRemoteTarget to open a dedicated
// engine for this Pipe.
func DialJSONRPC(ctx context.Context, endpoint string, opts ...Option) (*Pipe, error) {
	o := newOptions(opts)
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	c := &jsonrpcCaller{
		uri:    endpoint,
		client: newHTTPClient(),
		log:    o.logger.With(zap.String("endpoint", endpoint)),
	}
	return newRemote(ctx, TransportJSONRPC, c, o)
}

func (c *jsonrpcCaller) call(ctx context.Context, method string, args, reply interface{}) error {
	method = ServiceName + "." + method
	body, err := rpc.EncodeClientRequest(method, args)
	if err != nil {
		return fmt.Errorf("jsonrpc %s: encode: %w", method, err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 500ms, 1s
			wait := retryBaseWait * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uri, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("jsonrpc %s: create request: %w", method, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			if isRetryableError(err) {
				c.log.Debug("request attempt failed", zap.String("method", method), zap.Int("attempt", attempt+1), zap.Error(err))
				continue
			}
			return ioError("jsonrpc "+method, err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			_ = cleanlyCloseBody(resp.Body)
			return fmt.Errorf("%w: jsonrpc %s: status %d", ErrIO, method, resp.StatusCode)
		}
		err = rpc.DecodeClientResponse(resp.Body, reply)
		_ = cleanlyCloseBody(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: jsonrpc %s: %w", ErrIO, method, err)
		}
		return nil
	}
	return fmt.Errorf("%w: jsonrpc %s after %d attempts: %w", ErrIO, method, maxRetries, lastErr)
}

func (c *jsonrpcCaller) close() error {
	c.client.CloseIdleConnections()
	return nil
}
