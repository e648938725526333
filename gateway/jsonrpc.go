// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"net/http"
	"time"

	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"

	"github.com/luxfi/r2pipe"
)

const frontendJSONRPC = "jsonrpc"

// EngineService is the JSON-RPC 2.0 frontend, registered as "Engine".
type EngineService struct {
	sessions *Sessions
	metrics  *Metrics
}

func (s *EngineService) Open(r *http.Request, args *r2pipe.OpenArgs, reply *r2pipe.OpenReply) (err error) {
	start := time.Now()
	defer func() { s.metrics.observe(frontendJSONRPC, r2pipe.MethodOpen, start, err) }()
	reply.Session, err = s.sessions.Open(r.Context(), args.Target)
	return err
}

func (s *EngineService) Cmd(r *http.Request, args *r2pipe.CmdArgs, reply *r2pipe.CmdReply) (err error) {
	start := time.Now()
	defer func() { s.metrics.observe(frontendJSONRPC, r2pipe.MethodCmd, start, err) }()
	reply.Output, err = s.sessions.Cmd(r.Context(), args.Session, args.Command)
	return err
}

func (s *EngineService) Close(_ *http.Request, args *r2pipe.CloseArgs, _ *r2pipe.CloseReply) (err error) {
	start := time.Now()
	defer func() { s.metrics.observe(frontendJSONRPC, r2pipe.MethodClose, start, err) }()
	return s.sessions.Close(args.Session)
}

// newRPCServer builds the gorilla JSON-RPC server for sessions.
func newRPCServer(sessions *Sessions, metrics *Metrics) (*rpc.Server, error) {
	s := rpc.NewServer()
	s.RegisterCodec(json2.NewCodec(), "application/json")
	s.RegisterCodec(json2.NewCodec(), "application/json;charset=UTF-8")
	if err := s.RegisterService(&EngineService{sessions: sessions, metrics: metrics}, r2pipe.ServiceName); err != nil {
		return nil, err
	}
	return s, nil
}
