// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2pipe

import (
	"errors"
	"testing"
	"time"
)

func TestQueueOrder(t *testing.T) {
	q := newQueue()
	for _, s := range []string{"a", "b", "c"} {
		if err := q.push(s); err != nil {
			t.Fatalf("push: %v", err)
		}
	}
	for _, want := range []string{"a", "b", "c"} {
		got, err := q.pop(false)
		if err != nil {
			t.Fatalf("pop: %v", err)
		}
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
	if _, err := q.pop(false); !errors.Is(err, ErrChannelEmpty) {
		t.Errorf("got %v, want ErrChannelEmpty", err)
	}
}

func TestQueueDrainAfterClose(t *testing.T) {
	q := newQueue()
	_ = q.push("last")
	q.close()

	if err := q.push("late"); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("push after close: got %v", err)
	}
	if got, err := q.pop(true); err != nil || got != "last" {
		t.Errorf("pop = %q, %v", got, err)
	}
	if _, err := q.pop(true); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("got %v, want ErrChannelClosed", err)
	}
}

func TestQueueBlockingPop(t *testing.T) {
	q := newQueue()
	got := make(chan string, 1)
	go func() {
		s, _ := q.pop(true)
		got <- s
	}()

	time.Sleep(10 * time.Millisecond)
	_ = q.push("wake")
	select {
	case s := <-got:
		if s != "wake" {
			t.Errorf("got %q", s)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pop did not wake")
	}

	closed := make(chan error, 1)
	go func() {
		_, err := q.pop(true)
		closed <- err
	}()
	q.close()
	select {
	case err := <-closed:
		if !errors.Is(err, ErrChannelClosed) {
			t.Errorf("got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("close did not wake pop")
	}
}
