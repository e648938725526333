// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2pipe

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

// stubTransport answers from a table and records what it was sent.
type stubTransport struct {
	mu      sync.Mutex
	answers map[string]string
	sent    []string
	closed  bool
}

func (s *stubTransport) Cmd(_ context.Context, cmd string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	s.sent = append(s.sent, cmd)
	return s.answers[cmd], nil
}

func (s *stubTransport) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func TestPipeTrimming(t *testing.T) {
	st := &stubTransport{answers: map[string]string{
		"pd 1": "  0x00001000  push rbp\n\n",
	}}
	p := NewPipe("stub", st)

	got, err := p.Cmd(context.Background(), "  pd 1\n")
	if err != nil {
		t.Fatalf("Cmd: %v", err)
	}
	// leading indentation is engine output and survives
	if want := "  0x00001000  push rbp"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if st.sent[0] != "pd 1" {
		t.Errorf("sent %q", st.sent[0])
	}
}

func TestPipeCmdjEmpty(t *testing.T) {
	p := NewPipe("stub", &stubTransport{answers: map[string]string{"ws": " \n\t"}})
	for _, cmd := range []string{"ws", "missing"} {
		if _, err := p.Cmdj(context.Background(), cmd); !errors.Is(err, ErrEmptyResponse) {
			t.Errorf("%s: got %v, want ErrEmptyResponse", cmd, err)
		}
	}
}

func TestPipeCmdjMalformed(t *testing.T) {
	p := NewPipe("stub", &stubTransport{answers: map[string]string{
		"bad":      "{",
		"trailing": `{"a":1} garbage`,
	}})
	for _, cmd := range []string{"bad", "trailing"} {
		if _, err := p.Cmdj(context.Background(), cmd); !errors.Is(err, ErrMalformedJSON) {
			t.Errorf("%s: got %v, want ErrMalformedJSON", cmd, err)
		}
	}
}

func TestPipeCmdjKeepsAddresses(t *testing.T) {
	const addr = "18446744073709551615"
	p := NewPipe("stub", &stubTransport{answers: map[string]string{
		"sj": `[{"offset":` + addr + `}]`,
	}})

	v, err := p.Cmdj(context.Background(), "sj")
	if err != nil {
		t.Fatalf("Cmdj: %v", err)
	}
	off := v.([]interface{})[0].(map[string]interface{})["offset"].(json.Number)
	if off.String() != addr {
		t.Errorf("offset = %s, want %s", off, addr)
	}

	var into []struct {
		Offset uint64 `json:"offset"`
	}
	if err := p.CmdjInto(context.Background(), "sj", &into); err != nil {
		t.Fatalf("CmdjInto: %v", err)
	}
	if into[0].Offset != 1<<64-1 {
		t.Errorf("offset = %d", into[0].Offset)
	}
}

func TestPipeCall(t *testing.T) {
	st := &stubTransport{answers: map[string]string{
		`""echo a;b`: "a;b",
		`""ij`:       `{"core":{}}`,
	}}
	p := NewPipe("stub", st)

	got, err := p.Call(context.Background(), " echo a;b ")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != "a;b" {
		t.Errorf("got %q", got)
	}
	if _, err := p.Callj(context.Background(), "ij"); err != nil {
		t.Errorf("Callj: %v", err)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := p.Cmd(context.Background(), "ij"); !errors.Is(err, ErrClosed) {
		t.Errorf("after Close: got %v, want ErrClosed", err)
	}
}
