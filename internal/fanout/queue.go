// Package fanout provides unbounded FIFO queues with timeout-bounded receives,
// and the three-queue publisher the engine writes into.
package fanout

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Queue is an unbounded, multi-producer multi-consumer FIFO.
// Push never blocks; Next waits up to a timeout for an item.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	head   int
	signal chan struct{} // closed and replaced on every push
}

// NewQueue creates an empty queue
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{signal: make(chan struct{})}
}

// Push appends v to the tail of the queue
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	close(q.signal)
	q.signal = make(chan struct{})
	q.mu.Unlock()
}

// Len returns the number of queued items
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// tryPop removes the head item. When the queue is empty it returns the
// channel that will be closed by the next push. A cancelled ctx leaves the
// queue untouched.
func (q *Queue[T]) tryPop(ctx context.Context) (T, bool, <-chan struct{}) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if cancelled(ctx) {
		return zero, false, nil
	}
	if q.head == len(q.items) {
		return zero, false, q.signal
	}

	v := q.items[q.head]
	q.items[q.head] = zero
	q.head++

	// Compact once the consumed prefix dominates the backing array
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return v, true, nil
}

// Next returns the next item, or ok=false if none arrives within timeout.
// A non-positive timeout polls without waiting.
func (q *Queue[T]) Next(timeout time.Duration) (T, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return q.NextContext(ctx)
}

// NextContext returns the next item, or ok=false once ctx is done. After a
// cancellation nothing is dequeued, so the item stays for the next reader.
func (q *Queue[T]) NextContext(ctx context.Context) (T, bool) {
	for {
		v, ok, wait := q.tryPop(ctx)
		if ok || wait == nil {
			return v, ok
		}

		select {
		case <-wait:
		case <-ctx.Done():
			// An item may have landed between the pop and the deadline
			v, ok, _ = q.tryPop(ctx)
			return v, ok
		}
	}
}

func cancelled(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.Canceled)
}
