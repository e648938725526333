// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2pipe

import (
	"bufio"
	"io"
	"net"
	"os"
	"strings"
	"testing"
	"time"
)

// The test binary doubles as a fake engine when these are set.
const (
	fakeEngineEnv = "R2PIPE_FAKE_ENGINE"
	fakeModeEnv   = "R2PIPE_FAKE_MODE"
)

const fakeInfo = `{"bin":{"arch":"x86","bits":64},"core":{"file":"/bin/ls","size":142144}}`

func TestMain(m *testing.M) {
	if os.Getenv(fakeEngineEnv) == "1" {
		switch os.Getenv(fakeModeEnv) {
		case "silent":
			os.Exit(0)
		case "hang":
			// answers the handshake, then ignores stdin and quit
			_, _ = os.Stdout.Write([]byte{0})
			time.Sleep(time.Hour)
			os.Exit(0)
		}
		os.Exit(serveFakeEngine(os.Stdin, os.Stdout, true))
	}
	os.Exit(m.Run())
}

// fakeAnswer returns the fake engine's answer to cmd and whether it keeps
// running afterwards.
func fakeAnswer(cmd string) (string, bool) {
	cmd = strings.TrimPrefix(cmd, `""`)
	switch {
	case cmd == "q" || cmd == "q!":
		return "", false
	case strings.HasPrefix(cmd, "echo "):
		return strings.TrimPrefix(cmd, "echo ") + "\n", true
	case cmd == "ij":
		return fakeInfo + "\n", true
	case cmd == "empty":
		return "", true
	case cmd == "bad":
		return "{not json", true
	case cmd == "argv":
		return strings.Join(os.Args[1:], " "), true
	default:
		return "unknown: " + cmd + "\n", true
	}
}

// serveFakeEngine speaks the framed protocol on in/out and returns the exit
// code.
func serveFakeEngine(in io.Reader, out io.Writer, handshake bool) int {
	if handshake {
		if _, err := out.Write([]byte{0}); err != nil {
			return 1
		}
	}
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		cmd := sc.Text()
		if cmd == "crash" {
			return 3
		}
		ans, more := fakeAnswer(cmd)
		if !more {
			return 0
		}
		if _, err := io.WriteString(out, ans+"\x00"); err != nil {
			return 1
		}
	}
	return 0
}

// fakeEngine returns spawn options that run this test binary as the engine.
func fakeEngine(t testing.TB, env ...string) *SpawnOptions {
	t.Helper()
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("Executable: %v", err)
	}
	return &SpawnOptions{
		Exepath: exe,
		Env:     append([]string{fakeEngineEnv + "=1"}, env...),
	}
}

// startTCPEngine serves one command per connection, like "=t".
func startTCPEngine(t testing.TB) string {
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
				buf := make([]byte, 4096)
				n, err := conn.Read(buf)
				if err != nil || n == 0 {
					return
				}
				ans, _ := fakeAnswer(string(buf[:n]))
				_, _ = io.WriteString(conn, ans)
			}()
		}
	}()
	return lis.Addr().String()
}
