// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2pipe

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// QuitCommand stops a pool worker. It is never forwarded to the engine and
// produces no result.
const QuitCommand = "q"

// Callback receives every result a pool worker produces, with the entry id.
// It runs on its own goroutine so slow callbacks never stall the worker.
type Callback func(id int, result string)

// Opener creates the Pipe a pool worker owns.
type Opener func() (*Pipe, error)

// PoolEntry is one engine owned by a dedicated worker.
type PoolEntry struct {
	ID int

	mailbox *queue
	outbox  *queue
	done    chan struct{}
	err     error
}

// Send queues cmd for the worker. It fails with ErrChannelClosed once the
// worker has exited.
func (e *PoolEntry) Send(cmd string) error {
	return e.mailbox.push(cmd)
}

// Recv returns the next result. Without block it fails with
// ErrChannelEmpty when nothing is ready. After the worker exits and the
// results are drained it fails with ErrChannelClosed.
func (e *PoolEntry) Recv(block bool) (string, error) {
	return e.outbox.pop(block)
}

// Done is closed when the worker has exited and its engine is closed.
func (e *PoolEntry) Done() <-chan struct{} {
	return e.done
}

// Join waits for the worker and returns the error that ended it, nil after
// QuitCommand.
func (e *PoolEntry) Join() error {
	<-e.done
	return e.err
}

// Pool is a set of entries started together.
type Pool []*PoolEntry

// Close sends QuitCommand to every entry and joins them all, returning the
// first worker error.
func (p Pool) Close() error {
	var g errgroup.Group
	for _, e := range p {
		e := e
		g.Go(func() error {
			_ = e.Send(QuitCommand)
			return e.Join()
		})
	}
	return g.Wait()
}

// SpawnMany starts one spawned engine per name, names[i] configured by
// opts[i]. Workers decode every answer as JSON and queue it re-encoded.
// Unequal list lengths fail with ErrArgumentMismatch before anything starts.
func SpawnMany(names []string, opts []*SpawnOptions, cb Callback, options ...Option) (Pool, error) {
	if len(names) != len(opts) {
		return nil, fmt.Errorf("%w: %d names, %d spawn options", ErrArgumentMismatch, len(names), len(opts))
	}
	openers := make([]Opener, len(names))
	for i := range names {
		name, so := names[i], opts[i]
		openers[i] = func() (*Pipe, error) {
			return Spawn(name, so, options...)
		}
	}
	return StartWorkers(openers, cb, options...)
}

// StartWorkers starts one worker per opener. Each worker opens its own
// Pipe on a goroutine locked to an OS thread, so transports with thread
// affinity (native) work unchanged.
func StartWorkers(openers []Opener, cb Callback, options ...Option) (Pool, error) {
	o := newOptions(options)
	for i, open := range openers {
		if open == nil {
			return nil, fmt.Errorf("%w: opener %d is nil", ErrArgumentMismatch, i)
		}
	}

	var sem *semaphore.Weighted
	if o.callbackLimit > 0 {
		sem = semaphore.NewWeighted(o.callbackLimit)
	}

	pool := make(Pool, 0, len(openers))
	for i, open := range openers {
		e := &PoolEntry{
			ID:      i,
			mailbox: newQueue(),
			outbox:  newQueue(),
			done:    make(chan struct{}),
		}
		go e.run(open, cb, sem, o)
		pool = append(pool, e)
	}
	return pool, nil
}

func (e *PoolEntry) run(open Opener, cb Callback, sem *semaphore.Weighted, o *options) {
	defer close(e.done)
	defer e.outbox.close()
	defer e.mailbox.close()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	log := o.logger.With(zap.Int("entry", e.ID))

	p, err := open()
	if err != nil {
		log.Debug("worker failed to open engine", zap.Error(err))
		e.err = err
		return
	}
	defer func() {
		if err := p.Close(); err != nil && e.err == nil {
			e.err = err
		}
	}()

	ctx := context.Background()
	for {
		cmd, err := e.mailbox.pop(true)
		if err != nil {
			e.err = err
			return
		}
		if cmd == QuitCommand {
			log.Debug("worker quit")
			return
		}

		v, err := p.Cmdj(ctx, cmd)
		if err != nil {
			log.Debug("worker command failed", zap.String("cmd", cmd), zap.Error(err))
			e.err = err
			return
		}
		b, err := o.codec.Encode(v)
		if err != nil {
			e.err = fmt.Errorf("%w: re-encode: %w", ErrMalformedJSON, err)
			return
		}
		res := string(b)
		if err := e.outbox.push(res); err != nil {
			e.err = err
			return
		}
		if cb != nil {
			deliver(sem, cb, e.ID, res)
		}
	}
}

func deliver(sem *semaphore.Weighted, cb Callback, id int, res string) {
	if sem == nil {
		go cb(id, res)
		return
	}
	go func() {
		if err := sem.Acquire(context.Background(), 1); err != nil {
			return
		}
		defer sem.Release(1)
		cb(id, res)
	}()
}
