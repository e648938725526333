//go:build !unix && !windows

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2pipe

// InSession reports whether a parent engine exported a session. Inherited
// sessions are not supported on this platform.
func InSession() bool {
	return false
}

func openSession() (*sessionTransport, error) {
	return nil, ErrNoSession
}
