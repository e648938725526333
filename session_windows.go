//go:build windows

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2pipe

import "os"

func sessionPipePath() (string, bool) {
	name := os.Getenv(EnvPath)
	if name == "" {
		return "", false
	}
	return `\\.\pipe\` + name, true
}

// InSession reports whether a parent engine exported a session.
func InSession() bool {
	_, ok := sessionPipePath()
	return ok
}

func openSession() (*sessionTransport, error) {
	path, ok := sessionPipePath()
	if !ok {
		return nil, ErrNoSession
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, ioError("open "+path, err)
	}
	return newSessionTransport(f, f), nil
}
