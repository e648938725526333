// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dlfcn

import "unsafe"

// GoString copies the NUL-terminated string at p, which must point into
// memory owned by native code. A zero p yields "".
func GoString(p uintptr) string {
	if p == 0 {
		return ""
	}
	base := unsafe.Pointer(p) //nolint:govet // native allocation, not Go heap
	n := 0
	for *(*byte)(unsafe.Add(base, n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(base), n))
}

// CString returns s as a NUL-terminated byte slice. The caller must keep the
// slice alive for the duration of the native call.
func CString(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}
