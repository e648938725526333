//go:build unix

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2pipe

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"
)

func TestOpenInheritedSession(t *testing.T) {
	clearSession(t)

	// engine reads commands from cmdR and answers on ansW
	cmdR, cmdW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	ansR, ansW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		serveFakeEngine(cmdR, ansW, false)
	}()

	t.Setenv(EnvIn, strconv.Itoa(int(ansR.Fd())))
	t.Setenv(EnvOut, strconv.Itoa(int(cmdW.Fd())))
	if !InSession() {
		t.Fatal("InSession = false")
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		p, err := Open()
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		got, err := p.Cmd(ctx, "echo hello")
		if err != nil {
			t.Fatalf("Cmd: %v", err)
		}
		if got != "hello" {
			t.Errorf("got %q, want %q", got, "hello")
		}
		// closing the duplicates leaves the parent's descriptors usable
		if err := p.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if err := p.Close(); err != nil {
			t.Errorf("second Close: %v", err)
		}
		if _, err := p.Cmd(ctx, "echo late"); !errors.Is(err, ErrClosed) {
			t.Errorf("Cmd after Close: got %v, want ErrClosed", err)
		}
	}

	cmdW.Close()
	<-done
	cmdR.Close()
	ansR.Close()
	ansW.Close()
}

func TestSessionCloseUnblocksSilentEngine(t *testing.T) {
	clearSession(t)

	// the engine swallows commands and never answers
	cmdR, cmdW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer cmdR.Close()
	defer cmdW.Close()
	ansR, ansW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer ansR.Close()
	defer ansW.Close()

	t.Setenv(EnvIn, strconv.Itoa(int(ansR.Fd())))
	t.Setenv(EnvOut, strconv.Itoa(int(cmdW.Fd())))
	p, err := Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	cmdErr := make(chan error, 1)
	go func() {
		_, err := p.Cmd(context.Background(), "echo never")
		cmdErr <- err
	}()
	time.Sleep(50 * time.Millisecond)

	closed := make(chan error, 1)
	go func() { closed <- p.Close() }()
	select {
	case err := <-closed:
		if err != nil {
			t.Errorf("Close: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Close blocked behind the in-flight command")
	}
	select {
	case err := <-cmdErr:
		if !errors.Is(err, ErrIO) {
			t.Errorf("Cmd: got %v, want ErrIO", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Cmd still blocked after Close")
	}
}

func TestSpawnFallsBackToSession(t *testing.T) {
	clearSession(t)
	t.Setenv(EnvIn, "not-a-number")
	t.Setenv(EnvOut, "1")
	// no usable session, so an empty name spawns
	p, err := Spawn("", fakeEngine(t))
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer p.Close()
	if p.Name() != TransportSpawn {
		t.Errorf("transport = %q, want spawn", p.Name())
	}
}
