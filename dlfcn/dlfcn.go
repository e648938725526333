// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package dlfcn loads shared libraries and binds their exported symbols to
// Go function variables.
//
// Binding is unchecked: the loader reinterprets a symbol address as whatever
// func type the caller supplies. A signature that does not match the native
// one is undefined behaviour, so every call site must know the true ABI of
// the symbol out of band and document it next to the binding.
//
// This package is the only place in the module that performs that
// reinterpretation.
package dlfcn

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

// ErrLibrary is returned for any load, lookup or bind failure.
var ErrLibrary = errors.New("dlfcn: shared library error")

// Library owns the OS handle of a loaded shared library. Symbols resolved
// from it must not be called after Close.
type Library struct {
	mu     sync.Mutex
	path   string
	handle uintptr
}

// Extension returns the shared library extension used on goos.
func Extension(goos string) string {
	switch goos {
	case "windows":
		return ".dll"
	case "darwin", "ios":
		return ".dylib"
	default:
		return ".so"
	}
}

// FileName builds the platform file name for a library: name, the native
// extension, then suffix (e.g. a version such as ".5.9.8").
func FileName(name, suffix string) string {
	return name + Extension(runtime.GOOS) + suffix
}

// Open loads the library name with the platform extension and suffix
// appended. The bare file name is tried first so the loader's default search
// path wins, then a few well-known install directories. The error from the
// first attempt is reported when nothing loads.
func Open(name, suffix string) (*Library, error) {
	file := FileName(name, suffix)

	var firstErr error
	for _, path := range candidates(file, searchDirs(runtime.GOOS)) {
		handle, err := openLibrary(path)
		if err == nil {
			return &Library{path: path, handle: handle}, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, fmt.Errorf("%w: open %s: %v", ErrLibrary, file, firstErr)
}

func candidates(file string, dirs []string) []string {
	paths := make([]string, 0, len(dirs)+1)
	paths = append(paths, file)
	for _, dir := range dirs {
		paths = append(paths, filepath.Join(dir, file))
	}
	return paths
}

// searchDirs lists directories radare2 installers use that are commonly
// missing from the dynamic loader's search path.
func searchDirs(goos string) []string {
	switch goos {
	case "windows":
		dirs := []string{`C:\radare2\bin`}
		// release zips unpack into C:\radare2\<version>\bin
		entries, err := os.ReadDir(`C:\radare2`)
		if err != nil {
			return dirs
		}
		for _, entry := range entries {
			if entry.IsDir() {
				dirs = append(dirs, filepath.Join(`C:\radare2`, entry.Name(), "bin"))
			}
		}
		return dirs
	case "darwin":
		return []string{"/usr/local/lib", "/opt/homebrew/lib"}
	default:
		return []string{"/usr/local/lib"}
	}
}

// Path returns the path the library was loaded from.
func (l *Library) Path() string {
	return l.path
}

// Sym returns the address of the exported symbol name.
func (l *Library) Sym(name string) (uintptr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.handle == 0 {
		return 0, fmt.Errorf("%w: symbol %s: library closed", ErrLibrary, name)
	}
	addr, err := lookupSymbol(l.handle, name)
	if err != nil {
		return 0, fmt.Errorf("%w: symbol %s: %v", ErrLibrary, name, err)
	}
	if addr == 0 {
		return 0, fmt.Errorf("%w: symbol %s: nil address", ErrLibrary, name)
	}
	return addr, nil
}

// Resolve binds the exported symbol name to the func variable fn points to.
//
// UNCHECKED: F must match the native signature exactly. The loader has no
// way to verify it.
func Resolve[F any](l *Library, name string, fn *F) (err error) {
	addr, err := l.Sym(name)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: bind %s: %v", ErrLibrary, name, r)
		}
	}()
	bind(fn, addr)
	return nil
}

// Close unloads the library. It is safe to call more than once.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.handle == 0 {
		return nil
	}
	handle := l.handle
	l.handle = 0
	if err := closeLibrary(handle); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrLibrary, l.path, err)
	}
	return nil
}
