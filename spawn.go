// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2pipe

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// quitGrace is how long Close waits for the engine to exit after q! before
// killing it.
const quitGrace = 5 * time.Second

// SpawnOptions configures the engine executable started by Spawn.
type SpawnOptions struct {
	// Exepath defaults to DefaultExepath()
	Exepath string

	// Args are inserted between the protocol flag and the target
	Args []string

	// Env is appended to the current environment
	Env []string
}

// DefaultExepath returns the canonical engine binary name.
func DefaultExepath() string {
	if runtime.GOOS == "windows" {
		return "radare2.exe"
	}
	return "r2"
}

// spawnArgs builds the engine argv: quiet protocol mode, extra args, target.
func spawnArgs(name string, so *SpawnOptions) (string, []string) {
	exe := DefaultExepath()
	var extra []string
	if so != nil {
		if so.Exepath != "" {
			exe = so.Exepath
		}
		extra = so.Args
	}
	args := make([]string, 0, len(extra)+2)
	args = append(args, "-q0")
	args = append(args, extra...)
	if name != "" {
		args = append(args, name)
	}
	return exe, args
}

// spawnTransport serializes commands on mu. Close never takes mu so it can
// end an engine that stopped answering.
type spawnTransport struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	log    *zap.Logger
	grace  time.Duration

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Spawn starts the engine on name and returns a Pipe over its standard
// input and output. An empty name inside an inherited session opens that
// session instead.
func Spawn(name string, so *SpawnOptions, opts ...Option) (*Pipe, error) {
	o := newOptions(opts)
	if name == "" && InSession() {
		return Open(opts...)
	}
	t, err := spawnEngine(name, so, o.logger)
	if err != nil {
		return nil, err
	}
	return newPipe(TransportSpawn, t, o), nil
}

func spawnEngine(name string, so *SpawnOptions, log *zap.Logger) (*spawnTransport, error) {
	exe, args := spawnArgs(name, so)

	cmd := exec.Command(exe, args...)
	if so != nil && len(so.Env) > 0 {
		cmd.Env = append(os.Environ(), so.Env...)
	}
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, ioError("stdin pipe", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, ioError("stdout pipe", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, ioError("spawn "+exe, err)
	}

	t := &spawnTransport{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		log:    log.With(zap.String("exe", exe), zap.Int("pid", cmd.Process.Pid)),
		grace:  quitGrace,
	}

	// The engine announces itself with one NUL before reading commands.
	// Leaving it unread shifts every later answer by one frame.
	if _, err := t.stdout.ReadByte(); err != nil {
		t.kill()
		return nil, ioError("read handshake", err)
	}
	t.log.Debug("engine spawned", zap.Strings("args", args))
	return t, nil
}

func (t *spawnTransport) Cmd(ctx context.Context, cmd string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed.Load() {
		return "", ErrClosed
	}
	if err := writeFrame(t.stdin, cmd); err != nil {
		return "", t.closedErr(err)
	}
	out, err := readFrame(t.stdout)
	if err != nil {
		return "", t.closedErr(err)
	}
	return out, nil
}

// closedErr reports a command cut short by Close as an I/O failure.
func (t *spawnTransport) closedErr(err error) error {
	if t.closed.Load() {
		return ioError("engine closed", ErrClosed)
	}
	return err
}

// Close asks the engine to quit and reaps it, killing it after a grace
// period. A command in flight fails with ErrIO. It is safe to call more
// than once.
func (t *spawnTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closed.Store(true)

		// an engine that stopped reading can leave the quit write blocked;
		// closing stdin releases it
		sent := make(chan struct{})
		go func() {
			_, _ = io.WriteString(t.stdin, "q!\n")
			close(sent)
		}()
		select {
		case <-sent:
		case <-time.After(t.grace):
		}
		_ = t.stdin.Close()
		t.closeErr = t.wait(t.grace)
	})
	return t.closeErr
}

// Pid returns the engine's process id.
func (t *spawnTransport) Pid() int {
	return t.cmd.Process.Pid
}

func (t *spawnTransport) wait(grace time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- t.cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			t.log.Debug("engine exited", zap.Error(err))
		}
		return nil
	case <-time.After(grace):
		_ = t.cmd.Process.Kill()
		<-done
		return fmt.Errorf("%w: engine ignored quit, killed after %s", ErrIO, grace)
	}
}

func (t *spawnTransport) kill() {
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		_ = t.cmd.Process.Kill()
		_ = t.stdin.Close()
		_ = t.cmd.Wait()
	})
}
