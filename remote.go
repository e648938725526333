// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2pipe

import (
	"context"
	"time"
)

// Gateway wire contract shared by the JSON-RPC and gRPC frontends.
const (
	ServiceName     = "Engine"        // JSON-RPC service, methods "Engine.Cmd" etc.
	GRPCServiceName = "r2pipe.Engine" // gRPC service, methods "/r2pipe.Engine/Cmd" etc.
	GRPCCodecName   = "json"          // gRPC content-subtype

	MethodOpen  = "Open"
	MethodCmd   = "Cmd"
	MethodClose = "Close"
)

// OpenArgs asks a gateway to start an engine on Target.
type OpenArgs struct {
	Target string `json:"target"`
}

// OpenReply carries the id of the session Open started.
type OpenReply struct {
	Session string `json:"session"`
}

// CmdArgs runs Command in Session; an empty Session addresses the gateway's
// default engine.
type CmdArgs struct {
	Session string `json:"session,omitempty"`
	Command string `json:"command"`
}

// CmdReply is the engine's raw answer to a command.
type CmdReply struct {
	Output string `json:"output"`
}

// CloseArgs ends Session and its engine.
type CloseArgs struct {
	Session string `json:"session"`
}

// CloseReply is empty; failures travel as the call error.
type CloseReply struct{}

// remoteCaller performs one gateway method call.
type remoteCaller interface {
	call(ctx context.Context, method string, args, reply interface{}) error
	close() error
}

// remoteTransport is a gateway client. It owns the remote session when it
// opened it.
type remoteTransport struct {
	caller  remoteCaller
	session string
	owned   bool
}

func newRemote(ctx context.Context, name string, c remoteCaller, o *options) (*Pipe, error) {
	t := &remoteTransport{caller: c, session: o.remoteSession}
	if o.remoteTarget != "" {
		var reply OpenReply
		if err := c.call(ctx, MethodOpen, &OpenArgs{Target: o.remoteTarget}, &reply); err != nil {
			_ = c.close()
			return nil, err
		}
		t.session = reply.Session
		t.owned = true
	}
	return newPipe(name, t, o), nil
}

// Session returns the remote session id, empty for the default engine.
func (t *remoteTransport) Session() string {
	return t.session
}

func (t *remoteTransport) Cmd(ctx context.Context, cmd string) (string, error) {
	var reply CmdReply
	if err := t.caller.call(ctx, MethodCmd, &CmdArgs{Session: t.session, Command: cmd}, &reply); err != nil {
		return "", err
	}
	return reply.Output, nil
}

func (t *remoteTransport) Close() error {
	var err error
	if t.owned {
		t.owned = false
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = t.caller.call(ctx, MethodClose, &CloseArgs{Session: t.session}, &CloseReply{})
		cancel()
	}
	if cerr := t.caller.close(); err == nil {
		err = cerr
	}
	return err
}
