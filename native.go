// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2pipe

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/luxfi/r2pipe/dlfcn"
	"go.uber.org/zap"
)

const (
	coreLibrary   = "libr_core"
	symCoreNew    = "r_core_new"
	symCoreCmdStr = "r_core_cmd_str"
	symCoreFree   = "r_core_free"
	symFree       = "free"
)

// nativeTransport runs commands on an RCore inside this process.
type nativeTransport struct {
	mu      sync.Mutex
	closing atomic.Bool
	lib     *dlfcn.Library
	core    uintptr
	log     *zap.Logger

	// char *r_core_cmd_str(RCore *core, const char *cmd)
	cmdStr func(core uintptr, cmd *byte) uintptr

	// void free(void *ptr); nil when the symbol is not reachable
	free func(ptr uintptr)
}

// OpenNative loads libr_core, creates a core and opens target in it.
func OpenNative(target string, opts ...Option) (*Pipe, error) {
	o := newOptions(opts)
	t, err := openNative(target, o.librarySuffix, o.logger)
	if err != nil {
		return nil, err
	}
	return newPipe(TransportNative, t, o), nil
}

func openNative(target, suffix string, log *zap.Logger) (*nativeTransport, error) {
	lib, err := dlfcn.Open(coreLibrary, suffix)
	if err != nil {
		return nil, err
	}
	t := &nativeTransport{lib: lib, log: log.With(zap.String("lib", lib.Path()))}

	// RCore *r_core_new(void)
	var coreNew func() uintptr
	if err := dlfcn.Resolve(lib, symCoreNew, &coreNew); err != nil {
		_ = lib.Close()
		return nil, err
	}
	if err := dlfcn.Resolve(lib, symCoreCmdStr, &t.cmdStr); err != nil {
		_ = lib.Close()
		return nil, err
	}
	var free func(uintptr)
	if err := dlfcn.Resolve(lib, symFree, &free); err == nil {
		t.free = free
	} else {
		t.log.Debug("answers will not be freed", zap.Error(err))
	}

	t.core = coreNew()
	if t.core == 0 {
		_ = lib.Close()
		return nil, fmt.Errorf("%w: %s returned no core", ErrEmptyResponse, symCoreNew)
	}

	if _, err := t.Cmd(context.Background(), "o "+target); err != nil {
		_ = t.Close()
		return nil, err
	}
	return t, nil
}

func (t *nativeTransport) Cmd(ctx context.Context, cmd string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.IndexByte(cmd, 0) >= 0 {
		return "", fmt.Errorf("%w: command contains NUL", ErrArgumentMismatch)
	}

	if t.closing.Load() {
		return "", ErrClosed
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.core == 0 {
		return "", ErrClosed
	}
	buf := dlfcn.CString(cmd)
	res := t.cmdStr(t.core, &buf[0])
	runtime.KeepAlive(buf)
	if res == 0 {
		return "", ErrEmptyResponse
	}

	out := dlfcn.GoString(res)
	if t.free != nil {
		t.free(res)
	}
	if !utf8.ValidString(out) {
		return "", ErrMalformedUTF8
	}
	return out, nil
}

// Close frees the core when r_core_free is exported, then unloads the
// library. A call already inside the core cannot be interrupted, so Close
// waits for it; commands issued after Close starts fail with ErrClosed. It
// is safe to call more than once.
func (t *nativeTransport) Close() error {
	t.closing.Store(true)
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.lib == nil {
		return nil
	}
	if t.core != 0 {
		// void r_core_free(RCore *core)
		var coreFree func(core uintptr)
		if err := dlfcn.Resolve(t.lib, symCoreFree, &coreFree); err == nil {
			coreFree(t.core)
		}
		t.core = 0
	}
	err := t.lib.Close()
	t.lib = nil
	return err
}
