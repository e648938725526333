// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2pipe

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// startHTTPEngine answers like "=h": it reads one request and closes.
func startHTTPEngine(t *testing.T, requests chan<- string) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { lis.Close() })

	go func() {
		for {
			conn, err := lis.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				r := bufio.NewReader(conn)
				line, err := r.ReadString('\n')
				if err != nil {
					return
				}
				for {
					h, err := r.ReadString('\n')
					if err != nil || h == "\r\n" {
						break
					}
				}
				line = strings.TrimRight(line, "\r\n")
				if requests != nil {
					requests <- line
				}
				cmd := strings.TrimSuffix(strings.TrimPrefix(line, "GET /cmd/"), " HTTP/1.1")
				ans, _ := fakeAnswer(cmd)
				_, _ = io.WriteString(conn, "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n\r\n"+ans)
			}()
		}
	}()
	return lis.Addr().String()
}

func TestHTTPRoundTrip(t *testing.T) {
	requests := make(chan string, 1)
	p := DialHTTP("http://" + startHTTPEngine(t, requests))
	defer p.Close()

	got, err := p.Cmd(context.Background(), "echo test")
	if err != nil {
		t.Fatalf("Cmd: %v", err)
	}
	if got != "test" {
		t.Errorf("got %q, want %q", got, "test")
	}
	// the command goes into the path verbatim
	if line := <-requests; line != "GET /cmd/echo test HTTP/1.1" {
		t.Errorf("request line %q", line)
	}
}

func TestHTTPAgainstNetHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ans, _ := fakeAnswer(strings.TrimPrefix(r.URL.Path, "/cmd/"))
		_, _ = io.WriteString(w, ans)
	}))
	defer srv.Close()

	p := DialHTTP(srv.URL)
	v, err := p.Cmdj(context.Background(), "ij")
	if err != nil {
		t.Fatalf("Cmdj: %v", err)
	}
	core := v.(map[string]interface{})["core"].(map[string]interface{})
	if core["file"] != "/bin/ls" {
		t.Errorf("file = %v", core["file"])
	}
}

func TestDialHTTPStripsScheme(t *testing.T) {
	p := DialHTTP("http://localhost:9090/")
	if host := p.Transport().(*httpTransport).host; host != "localhost:9090" {
		t.Errorf("host = %q", host)
	}
}

func TestExtractBody(t *testing.T) {
	resp := []byte("HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello\r\n\r\nworld")
	if got := extractBody(resp); string(got) != "hello\r\n\r\nworld" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBodyWithoutBoundary(t *testing.T) {
	resp := []byte("no header terminator\r\nhere\r\n")
	got := extractBody(resp)
	if !bytes.Equal(got, resp) {
		t.Errorf("got %q, want the whole buffer", got)
	}
}
