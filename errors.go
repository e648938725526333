// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2pipe

import (
	"errors"
	"fmt"

	"github.com/luxfi/r2pipe/dlfcn"
)

var (
	// ErrIO wraps read, write and connect failures.
	ErrIO = errors.New("r2pipe: i/o error")

	// ErrNoSession means no parent engine exported a session. Callers should
	// pick another transport rather than retry.
	ErrNoSession = errors.New("r2pipe: no open session")

	// ErrEmptyResponse means the engine produced nothing where an answer was
	// required.
	ErrEmptyResponse = errors.New("r2pipe: empty response")

	ErrMalformedJSON = errors.New("r2pipe: malformed json")
	ErrMalformedUTF8 = errors.New("r2pipe: malformed utf-8")

	// ErrArgumentMismatch reports inconsistent arguments, such as parallel
	// lists of different lengths.
	ErrArgumentMismatch = errors.New("r2pipe: argument mismatch")

	// ErrSharedLibrary reports a load or symbol resolution failure.
	ErrSharedLibrary = dlfcn.ErrLibrary

	// ErrChannel reports pool mailbox/outbox failures.
	ErrChannel       = errors.New("r2pipe: channel communication error")
	ErrChannelClosed = fmt.Errorf("%w: closed", ErrChannel)
	ErrChannelEmpty  = fmt.Errorf("%w: empty", ErrChannel)

	ErrClosed = errors.New("r2pipe: pipe closed")
)

func ioError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}
