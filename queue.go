// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package r2pipe

import "sync"

// queue is an unbounded FIFO of strings. After close, queued items can
// still be drained; pushes fail.
type queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []string
	closed bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *queue) push(s string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrChannelClosed
	}
	q.items = append(q.items, s)
	q.cond.Signal()
	return nil
}

func (q *queue) pop(block bool) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		if q.closed {
			return "", ErrChannelClosed
		}
		if !block {
			return "", ErrChannelEmpty
		}
		q.cond.Wait()
	}
	s := q.items[0]
	q.items[0] = ""
	q.items = q.items[1:]
	return s, nil
}

func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}
