// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2pipe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Transport is one way of reaching an engine. Cmd performs exactly one
// round trip and must not return before the whole answer has been read.
type Transport interface {
	// Cmd sends an already trimmed command and returns the raw answer
	Cmd(ctx context.Context, cmd string) (string, error)

	// Close releases the transport's process, descriptors or library
	Close() error
}

// Pipe is the command interface shared by every transport.
type Pipe struct {
	name      string
	transport Transport
	codec     Codec
	log       *zap.Logger
}

// NewPipe wraps a Transport. It is exported so custom transports and test
// doubles can be used wherever a Pipe is expected.
func NewPipe(name string, t Transport, opts ...Option) *Pipe {
	return newPipe(name, t, newOptions(opts))
}

func newPipe(name string, t Transport, o *options) *Pipe {
	return &Pipe{
		name:      name,
		transport: t,
		codec:     o.codec,
		log:       o.logger.With(zap.String("transport", name)),
	}
}

// Name returns the transport name ("spawn", "tcp", ...).
func (p *Pipe) Name() string {
	return p.name
}

// Transport returns the underlying transport.
func (p *Pipe) Transport() Transport {
	return p.transport
}

// Cmd trims cmd, runs it and returns the answer without trailing
// whitespace. An empty answer is valid.
func (p *Pipe) Cmd(ctx context.Context, cmd string) (string, error) {
	cmd = strings.TrimSpace(cmd)

	start := time.Now()
	res, err := p.transport.Cmd(ctx, cmd)
	if err != nil {
		p.log.Debug("command failed", zap.String("cmd", cmd), zap.Error(err))
		return "", err
	}
	p.log.Debug("command",
		zap.String("cmd", cmd),
		zap.Int("bytes", len(res)),
		zap.Duration("took", time.Since(start)),
	)
	return strings.TrimRight(res, " \t\r\n"), nil
}

// Cmdj runs cmd and decodes the answer into a generic value (maps, slices,
// json.Number, strings, bools, nil).
func (p *Pipe) Cmdj(ctx context.Context, cmd string) (interface{}, error) {
	var v interface{}
	if err := p.CmdjInto(ctx, cmd, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// CmdjInto runs cmd and decodes the answer into v. An empty answer is
// ErrEmptyResponse, never a zero value.
func (p *Pipe) CmdjInto(ctx context.Context, cmd string, v interface{}) error {
	res, err := p.Cmd(ctx, cmd)
	if err != nil {
		return err
	}
	return p.Decode(cmd, res, v)
}

// Decode decodes res, the answer to cmd, with the pipe's codec. It lets
// callers inspect the text before deciding to decode it.
func (p *Pipe) Decode(cmd, res string, v interface{}) error {
	if strings.TrimSpace(res) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyResponse, strings.TrimSpace(cmd))
	}
	if err := p.codec.Decode([]byte(res), v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformedJSON, strings.TrimSpace(cmd), err)
	}
	return nil
}

// Call runs cmd with the "" prefix, which stops the engine from
// interpreting special characters in it (radare2 5.8.0 and later).
func (p *Pipe) Call(ctx context.Context, cmd string) (string, error) {
	return p.Cmd(ctx, escapeCall(cmd))
}

// Callj is Call followed by a structured decode.
func (p *Pipe) Callj(ctx context.Context, cmd string) (interface{}, error) {
	return p.Cmdj(ctx, escapeCall(cmd))
}

func escapeCall(cmd string) string {
	return `""` + strings.TrimSpace(cmd)
}

// Close closes the transport.
func (p *Pipe) Close() error {
	return p.transport.Close()
}
