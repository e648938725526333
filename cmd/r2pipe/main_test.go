// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fakeEngineEnv = "R2PIPE_FAKE_ENGINE"

const fakeInfo = `{"bin":{"arch":"arm","bits":64},"core":{"file":"/bin/ls"}}`

// The test binary doubles as a framed engine for the pool command.
func TestMain(m *testing.M) {
	if os.Getenv(fakeEngineEnv) == "1" {
		os.Exit(fakeEngine(os.Stdin, os.Stdout))
	}
	os.Exit(m.Run())
}

func fakeEngine(in io.Reader, out io.Writer) int {
	if _, err := out.Write([]byte{0}); err != nil {
		return 1
	}
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		ans, ok := answer(sc.Text())
		if !ok {
			return 0
		}
		if _, err := io.WriteString(out, ans+"\x00"); err != nil {
			return 1
		}
	}
	return 0
}

func answer(cmd string) (string, bool) {
	cmd = strings.TrimPrefix(cmd, `""`)
	switch {
	case cmd == "q!":
		return "", false
	case cmd == "ij":
		return fakeInfo + "\n", true
	case strings.HasPrefix(cmd, "echo "):
		return strings.TrimPrefix(cmd, "echo ") + "\n", true
	}
	return "", true
}

// startTCPEngine answers one command per connection.
func startTCPEngine(t *testing.T) string {
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
				if err != nil {
					return
				}
				ans, _ := answer(string(buf[:n]))
				_, _ = io.WriteString(conn, ans)
			}()
		}
	}()
	return lis.Addr().String()
}

func isolate(t *testing.T) {
	t.Helper()
	for _, key := range []string{"R2PIPE_CONFIG", "R2PIPE_LOG_LEVEL", "R2PIPE_EXEPATH", "R2PIPE_IN", "R2PIPE_OUT", "R2PIPE_PATH"} {
		t.Setenv(key, "")
	}
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCmdOverTCP(t *testing.T) {
	isolate(t)
	addr := startTCPEngine(t)

	out, err := run(t, "cmd", "tcp://"+addr, "echo one", "echo two")
	if err != nil {
		t.Fatalf("cmd: %v", err)
	}
	if out != "one\ntwo\n" {
		t.Errorf("output %q", out)
	}

	out, err = run(t, "cmd", "--json", "--pretty", "never", "tcp://"+addr, "ij")
	if err != nil {
		t.Fatalf("cmd --json: %v", err)
	}
	if strings.TrimSpace(out) != fakeInfo {
		t.Errorf("output %q, want %q", out, fakeInfo)
	}

	out, err = run(t, "cmd", "-j", "--pretty", "always", "--call", "tcp://"+addr, "ij")
	if err != nil {
		t.Fatalf("cmd --call: %v", err)
	}
	var v map[string]interface{}
	if err := json.Unmarshal([]byte(out), &v); err != nil || !strings.Contains(out, "\n  ") {
		t.Errorf("pretty output %q: %v", out, err)
	}
}

func TestCmdErrors(t *testing.T) {
	isolate(t)
	if _, err := run(t, "cmd", "tcp://"+startTCPEngine(t)); err == nil {
		t.Error("accepted a uri without commands")
	}
	if _, err := run(t, "cmd", "--json", "tcp://"+startTCPEngine(t), "nothing"); err == nil {
		t.Error("empty json answer accepted")
	}
	if _, err := run(t, "cmd", "session:", "i"); err == nil {
		t.Error("session without a parent engine accepted")
	}
}

func TestPoolCommand(t *testing.T) {
	isolate(t)
	exe, err := os.Executable()
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv("R2PIPE_EXEPATH", exe)
	t.Setenv(fakeEngineEnv, "1")

	out, err := run(t, "pool", "--target", "/bin/ls,/bin/cat", "ij")
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	for _, want := range []string{"/bin/ls", "/bin/cat", `"arch":"arm"`} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}

	if _, err := run(t, "pool", "ij"); err == nil {
		t.Error("pool without targets accepted")
	}
}

func TestConfigCommands(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "r2pipe.toml")

	if _, err := run(t, "config", "init", "--path", path); err != nil {
		t.Fatalf("config init: %v", err)
	}
	out, err := run(t, "--config", path, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "2 pool targets") {
		t.Errorf("output %q", out)
	}

	if _, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.toml"), "config", "validate"); err == nil {
		t.Error("missing explicit config accepted")
	}
}

func TestTransportsAndVersion(t *testing.T) {
	isolate(t)
	out, err := run(t, "transports")
	if err != nil {
		t.Fatalf("transports: %v", err)
	}
	for _, name := range []string{"grpc", "jsonrpc", "native", "spawn", "tcp"} {
		if !strings.Contains(out, name+"\n") {
			t.Errorf("missing %s in %q", name, out)
		}
	}

	out, err = run(t, "version")
	if err != nil || !strings.HasPrefix(out, "r2pipe dev ") {
		t.Errorf("version = %q, %v", out, err)
	}
}
