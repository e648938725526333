// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/luxfi/r2pipe"
)

type idleEngine struct {
	closed atomic.Bool
}

func (e *idleEngine) Cmd(context.Context, string) (string, error) { return "{}", nil }

func (e *idleEngine) Close() error {
	e.closed.Store(true)
	return nil
}

func TestSendAllStopsPoolOnFailure(t *testing.T) {
	idle := &idleEngine{}
	pool, err := r2pipe.StartWorkers([]r2pipe.Opener{
		func() (*r2pipe.Pipe, error) { return nil, r2pipe.ErrNoSession },
		func() (*r2pipe.Pipe, error) { return r2pipe.NewPipe("idle", idle), nil },
	}, nil)
	if err != nil {
		t.Fatalf("StartWorkers: %v", err)
	}
	<-pool[0].Done()

	err = sendAll(pool, []string{"ij"})
	if !errors.Is(err, r2pipe.ErrChannelClosed) {
		t.Fatalf("sendAll: got %v, want ErrChannelClosed", err)
	}
	select {
	case <-pool[1].Done():
	case <-time.After(5 * time.Second):
		t.Fatal("healthy worker still running after a failed send")
	}
	if !idle.closed.Load() {
		t.Error("engine of the healthy worker was not closed")
	}
}
