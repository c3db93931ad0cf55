// Copyright 2024 The REMP Authors
// This file is part of the remp library.
//
// The remp library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The remp library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the remp library. If not, see <http://www.gnu.org/licenses/>.

// Package queue implements the unbounded, non-blocking-producer queue
// that backs a catchain session's pending-outbound and rmq-inbound
// channels. Producers never block: Push always succeeds immediately,
// growing the backing slice as needed. Consumers may either drain
// everything accumulated so far without blocking (used by
// process_blocks, which must not suspend on the catchain's callback
// thread) or block until an item is available (used by the
// higher-level poller reading the inbound queue).
package queue

import "sync"

// Unbounded is a single-producer/single-consumer (safe for any number
// of producers, one logical consumer loop) queue with no capacity
// limit. The zero value is not usable; construct with New.
type Unbounded[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	closed bool
}

// New returns a ready-to-use unbounded queue.
func New[T any]() *Unbounded[T] {
	q := &Unbounded[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends v. It never blocks and never fails; pushing to a closed
// queue is a silent no-op (the consumer has gone away, so the value is
// simply dropped).
func (q *Unbounded[T]) Push(v T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, v)
	q.cond.Signal()
}

// TryPop removes and returns the oldest item without blocking. ok is
// false if the queue is currently empty.
func (q *Unbounded[T]) TryPop() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return v, false
	}
	v, q.items[0] = q.items[0], v
	q.items = q.items[1:]
	return v, true
}

// DrainAll removes and returns every item currently queued, without
// blocking. Used by process_blocks to empty the pending-outbound queue
// once per catchain round.
func (q *Unbounded[T]) DrainAll() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

// Pop blocks until an item is available or the queue is closed. ok is
// false only in the latter case.
func (q *Unbounded[T]) Pop() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return v, false
	}
	v, q.items[0] = q.items[0], v
	q.items = q.items[1:]
	return v, true
}

// Len reports the number of items currently queued.
func (q *Unbounded[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close marks the queue closed, waking any blocked Pop callers. Further
// Push calls are no-ops.
func (q *Unbounded[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
