// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luxfi/r2pipe"
)

var (
	ErrUnknownSession = errors.New("gateway: unknown session")
	ErrNoOpener       = errors.New("gateway: opening sessions is disabled")
)

// Opener starts the engine behind a new session.
type Opener func(ctx context.Context, target string) (*r2pipe.Pipe, error)

// DialOpener opens targets with r2pipe.Dial.
func DialOpener(opts ...r2pipe.Option) Opener {
	return func(ctx context.Context, target string) (*r2pipe.Pipe, error) {
		return r2pipe.Dial(ctx, target, opts...)
	}
}

// session serialises commands: engines answer one command at a time.
type session struct {
	mu     sync.Mutex
	id     string
	target string
	pipe   *r2pipe.Pipe
}

func (s *session) cmd(ctx context.Context, cmd string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipe.Cmd(ctx, cmd)
}

// close skips mu: the transport fails a command in flight instead of
// leaving Close queued behind it.
func (s *session) close() error {
	return s.pipe.Close()
}

// Sessions tracks the engines a gateway serves. The empty id names the
// default engine, if one was set.
type Sessions struct {
	open    Opener
	metrics *Metrics
	log     *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewSessions returns an empty session table. A nil opener refuses Open.
func NewSessions(open Opener, log *zap.Logger, metrics *Metrics) *Sessions {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sessions{
		open:     open,
		metrics:  metrics,
		log:      log,
		sessions: make(map[string]*session),
	}
}

// SetDefault serves p under the empty session id, closing any previous
// default.
func (s *Sessions) SetDefault(p *r2pipe.Pipe) error {
	return s.put(&session{id: "", target: "default", pipe: p})
}

// Open starts an engine on target and returns its session id.
func (s *Sessions) Open(ctx context.Context, target string) (string, error) {
	if s.open == nil {
		return "", ErrNoOpener
	}
	p, err := s.open(ctx, target)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	if err := s.put(&session{id: id, target: target, pipe: p}); err != nil {
		return "", err
	}
	s.log.Info("session opened", zap.String("session", id), zap.String("target", target))
	return id, nil
}

func (s *Sessions) put(sess *session) error {
	s.mu.Lock()
	prev := s.sessions[sess.id]
	s.sessions[sess.id] = sess
	n := len(s.sessions)
	s.mu.Unlock()

	s.metrics.setSessions(n)
	if prev != nil {
		return prev.close()
	}
	return nil
}

func (s *Sessions) get(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSession, id)
	}
	return sess, nil
}

// Cmd runs cmd in session id.
func (s *Sessions) Cmd(ctx context.Context, id, cmd string) (string, error) {
	sess, err := s.get(id)
	if err != nil {
		return "", err
	}
	return sess.cmd(ctx, cmd)
}

// Close ends session id. A command in flight fails with the transport's
// close error.
func (s *Sessions) Close(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSession, id)
	}
	s.metrics.setSessions(n)
	s.log.Info("session closed", zap.String("session", id), zap.String("target", sess.target))
	return sess.close()
}

// Len returns the number of live sessions, the default included.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// CloseAll closes every session and returns the errors joined.
func (s *Sessions) CloseAll() error {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	s.metrics.setSessions(0)
	var errs []error
	for id, sess := range all {
		if err := sess.close(); err != nil {
			errs = append(errs, fmt.Errorf("session %q: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
