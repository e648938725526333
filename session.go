// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2pipe

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Environment exported by an engine to the programs it runs.
const (
	EnvIn   = "R2PIPE_IN"
	EnvOut  = "R2PIPE_OUT"
	EnvPath = "R2PIPE_PATH" // windows named pipe
)

// sessionTransport talks to the engine that started this process. Commands
// hold mu; Close does not, so it can release a reader stuck on a silent
// engine.
type sessionTransport struct {
	mu        sync.Mutex
	r         *os.File
	w         *os.File
	reader    *bufio.Reader
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Open attaches to the engine that spawned this process. It fails with
// ErrNoSession when no session was exported.
func Open(opts ...Option) (*Pipe, error) {
	o := newOptions(opts)
	t, err := openSession()
	if err != nil {
		return nil, err
	}
	return newPipe(TransportSession, t, o), nil
}

func newSessionTransport(r, w *os.File) *sessionTransport {
	return &sessionTransport{
		r:      r,
		w:      w,
		reader: bufio.NewReader(r),
	}
}

// envFD parses a descriptor number from the environment.
func envFD(key string) (int, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	fd, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || fd < 0 {
		return 0, false
	}
	return fd, true
}

// sessionFDs returns the descriptors advertised by a parent engine.
func sessionFDs() (in, out int, ok bool) {
	in, okIn := envFD(EnvIn)
	out, okOut := envFD(EnvOut)
	return in, out, okIn && okOut
}

func (t *sessionTransport) Cmd(ctx context.Context, cmd string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed.Load() {
		return "", ErrClosed
	}
	if err := writeFrame(t.w, cmd); err != nil {
		return "", t.closedErr(err)
	}
	out, err := readFrame(t.reader)
	if err != nil {
		return "", t.closedErr(err)
	}
	return out, nil
}

func (t *sessionTransport) closedErr(err error) error {
	if t.closed.Load() {
		return ioError("session closed", ErrClosed)
	}
	return err
}

// Close releases the duplicated descriptors; a command in flight fails with
// ErrIO. The parent engine keeps running.
func (t *sessionTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		err := t.r.Close()
		if t.w != t.r {
			if werr := t.w.Close(); err == nil {
				err = werr
			}
		}
		if err != nil {
			t.closeErr = ioError("close session", err)
		}
	})
	return t.closeErr
}
