//go:build !darwin && !freebsd && !linux && !windows

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dlfcn

import "errors"

var errUnsupported = errors.New("dynamic loading unsupported on this platform")

func openLibrary(string) (uintptr, error) {
	return 0, errUnsupported
}

func lookupSymbol(uintptr, string) (uintptr, error) {
	return 0, errUnsupported
}

func closeLibrary(uintptr) error {
	return errUnsupported
}

func bind(any, uintptr) {
	panic(errUnsupported)
}
