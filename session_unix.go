//go:build unix

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2pipe

import (
	"os"

	"golang.org/x/sys/unix"
)

// InSession reports whether a parent engine exported a session.
func InSession() bool {
	_, _, ok := sessionFDs()
	return ok
}

// openSession duplicates the exported descriptors so closing the Pipe never
// closes the parent's copies.
func openSession() (*sessionTransport, error) {
	in, out, ok := sessionFDs()
	if !ok {
		return nil, ErrNoSession
	}

	dupIn, err := unix.Dup(in)
	if err != nil {
		return nil, ioError("dup "+EnvIn, err)
	}
	dupOut, err := unix.Dup(out)
	if err != nil {
		_ = unix.Close(dupIn)
		return nil, ioError("dup "+EnvOut, err)
	}
	// pollable descriptors let Close interrupt a blocked read
	_ = unix.SetNonblock(dupIn, true)
	_ = unix.SetNonblock(dupOut, true)
	return newSessionTransport(
		os.NewFile(uintptr(dupIn), EnvIn),
		os.NewFile(uintptr(dupOut), EnvOut),
	), nil
}
