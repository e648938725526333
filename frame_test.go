// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2pipe

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestReadFrame(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []string
		wantErr error
	}{
		{name: "single", in: "hello\n\x00", want: []string{"hello\n"}},
		{name: "empty answer", in: "\x00", want: []string{""}},
		{name: "back to back", in: "a\x00b\x00", want: []string{"a", "b"}},
		{name: "nothing", in: "", wantErr: ErrEmptyResponse},
		{name: "truncated", in: "partial", wantErr: ErrIO},
		{name: "bad utf-8", in: "\xff\xfe\x00", wantErr: ErrMalformedUTF8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bufio.NewReader(strings.NewReader(tt.in))
			for _, want := range tt.want {
				got, err := readFrame(r)
				if err != nil {
					t.Fatalf("readFrame: %v", err)
				}
				if got != want {
					t.Errorf("got %q, want %q", got, want)
				}
			}
			if tt.wantErr != nil {
				if _, err := readFrame(r); !errors.Is(err, tt.wantErr) {
					t.Errorf("got %v, want %v", err, tt.wantErr)
				}
			}
		})
	}
}

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFrame(&buf, "pd 10"); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}
	if buf.String() != "pd 10\n" {
		t.Errorf("wrote %q", buf.String())
	}

	w := failingWriter{}
	if err := writeFrame(w, "x"); !errors.Is(err, ErrIO) || !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("got %v, want ErrIO wrapping io.ErrClosedPipe", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, io.ErrClosedPipe
}
