// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package r2pipe drives a radare2 engine through its line-oriented pipe
// protocol, however the engine is reached.
//
// # Transport Selection
//
// Every variant implements [Transport] and is wrapped in a [Pipe]:
//
//	Spawn(path, opts)         # child process, stdin/stdout framing
//	Open()                    # inherited R2PIPE_IN/R2PIPE_OUT session
//	DialTCP(ctx, "host:9080") # one connection per command
//	DialHTTP("host:9090")     # GET /cmd/<command>
//	OpenNative(path)          # libr_core loaded in-process
//	DialJSONRPC / DialGRPC    # an r2pipe gateway
//
// [Dial] selects one from a URI scheme so transport choice can live in
// configuration:
//
//	p, err := r2pipe.Dial(ctx, "tcp://localhost:9080")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	fmt.Println(p.Cmd(ctx, "?e Hello World"))
//
//	var info map[string]any
//	err = p.CmdjInto(ctx, "ij", &info)
//
// # Framing
//
// Pipe-based transports write "cmd\n" and read until a single NUL byte,
// which is stripped. TCP reads until the engine closes the connection. HTTP
// returns the body after the first blank line.
//
// # Concurrency
//
// A Pipe performs one blocking round trip per call and serialises callers,
// but the protocol has no request IDs: treat a Pipe as owned by one
// goroutine at a time. [SpawnMany] runs many engines, each on its own locked
// OS thread, fed through unbounded mailboxes.
package r2pipe
