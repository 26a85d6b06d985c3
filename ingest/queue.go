package ingest

import (
	"sync"
	"sync/atomic"

	"github.com/luxfi/mempulse/errs"
)

// FetchQueue is a bounded, non-blocking work queue: Offer never blocks the
// caller, returning errs.ErrQueueFull when the queue is saturated and
// errs.ErrQueueClosed once Close has been called. It tracks current and
// peak depth so callers can format the drop-reason grammar's
// depth_current/depth_peak fields.
type FetchQueue[T any] struct {
	items  chan T
	mu     sync.Mutex
	closed bool
	depth  int64
	peak   int64
}

// NewFetchQueue returns a FetchQueue with the given bounded capacity.
func NewFetchQueue[T any](capacity int) *FetchQueue[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &FetchQueue[T]{items: make(chan T, capacity)}
}

// Offer attempts to enqueue item without blocking.
func (q *FetchQueue[T]) Offer(item T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errs.ErrQueueClosed
	}
	q.mu.Unlock()

	select {
	case q.items <- item:
		depth := atomic.AddInt64(&q.depth, 1)
		for {
			peak := atomic.LoadInt64(&q.peak)
			if depth <= peak || atomic.CompareAndSwapInt64(&q.peak, peak, depth) {
				break
			}
		}
		return nil
	default:
		return errs.ErrQueueFull
	}
}

// Take removes and returns the next item, blocking until one is available or
// the queue is closed and drained (ok=false).
func (q *FetchQueue[T]) Take() (item T, ok bool) {
	item, ok = <-q.items
	if ok {
		atomic.AddInt64(&q.depth, -1)
	}
	return item, ok
}

// Close marks the queue closed: further Offer calls fail with
// ErrQueueClosed, and Take continues to drain already-enqueued items before
// reporting closed.
func (q *FetchQueue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.items)
}

// Depth returns the current and peak observed queue depth.
func (q *FetchQueue[T]) Depth() (current, peak int) {
	return int(atomic.LoadInt64(&q.depth)), int(atomic.LoadInt64(&q.peak))
}
