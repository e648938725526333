// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2pipe

import (
	"context"
	"sort"
	"sync"
)

// Transport names, also the URI schemes understood by Dial.
const (
	TransportSpawn   = "spawn"   // child process, the default
	TransportSession = "session" // inherited from a parent engine
	TransportTCP     = "tcp"
	TransportHTTP    = "http"
	TransportNative  = "native"  // libr_core in-process
	TransportJSONRPC = "jsonrpc" // r2pipe gateway over JSON-RPC
	TransportGRPC    = "grpc"    // r2pipe gateway over gRPC
	TransportAuto    = "auto"    // native when libr_core loads, else spawn
)

// DefaultTransport is used for URIs without a scheme.
const DefaultTransport = TransportSpawn

type dialFunc func(ctx context.Context, target string, opts []Option) (*Pipe, error)

var (
	transportsMu sync.RWMutex
	transports   = map[string]dialFunc{
		TransportSpawn:   dialSpawn,
		TransportSession: dialSession,
		TransportTCP:     dialTCP,
		TransportHTTP:    dialHTTP,
		TransportNative:  dialNative,
		TransportJSONRPC: dialJSONRPC,
		TransportAuto:    dialAuto,
	}
)

// registerTransport registers a transport under a URI scheme
func registerTransport(name string, dial dialFunc) {
	transportsMu.Lock()
	defer transportsMu.Unlock()
	transports[name] = dial
}

func lookupTransport(name string) (dialFunc, bool) {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	d, ok := transports[name]
	return d, ok
}

// AvailableTransports returns the sorted list of transport names
func AvailableTransports() []string {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	result := make([]string, 0, len(transports))
	for name := range transports {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// HasTransport checks if a transport is available
func HasTransport(name string) bool {
	_, ok := lookupTransport(name)
	return ok
}
