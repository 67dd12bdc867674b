// Package equeue implements the front-slot-plus-ring-buffer event queue
// every active object uses to hold its pending events.
//
// The design is QP/C++'s QEQueue (source/qf_qeq.cpp): one dedicated "front"
// slot always holds the next event to be consumed, and a separate ring
// buffer holds whatever is backed up behind it. post() appends to the far
// end of the ring (FIFO); postLIFO() pushes the current front event back
// into the ring ahead of everything else there and takes the front slot
// itself, so it is the very next thing get() returns. Promoting the oldest ring entry into the
// front slot on every get() is what gives the queue O(1) enqueue/dequeue
// without shifting elements.
//
// QP/C++ links the ring via raw pointers and runs it with interrupts
// disabled; here a head/tail/count ring is guarded by a mutex plus a
// sync.Cond instead, which also gives blocking consumers a place to wait
// without a busy loop.
package equeue

import (
	"context"
	"sync"
)

// Queue is a bounded, blocking event queue for values of type T.
type Queue[T any] struct {
	mu       sync.Mutex
	notEmpty sync.Cond

	front    T
	hasFront bool

	ring  []T
	head  int // next ring slot a FIFO post() writes to
	tail  int // oldest buffered ring slot, next to be promoted to front
	count int

	nMin   int // low-water mark on free ring capacity
	closed bool
}

// New creates a queue whose ring buffer holds up to capacity events in
// addition to the one event held in the front slot.
func New[T any](capacity int) *Queue[T] {
	q := &Queue[T]{
		ring: make([]T, capacity),
		nMin: capacity,
	}
	q.notEmpty.L = &q.mu
	return q
}

// Cap returns the ring buffer capacity (not counting the front slot).
func (q *Queue[T]) Cap() int {
	return len(q.ring)
}

// Post appends e to the back of the queue (FIFO order). It reports false if
// the queue's ring buffer is full; the caller is expected to treat this as
// an allocation-policy decision (drop, block, or escalate), not a panic.
func (q *Queue[T]) Post(e T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.hasFront {
		q.front = e
		q.hasFront = true
		q.notEmpty.Signal()
		return true
	}
	if q.count == len(q.ring) {
		return false
	}
	q.ring[q.head] = e
	q.head = (q.head + 1) % len(q.ring)
	q.count++
	q.updateMin()
	q.notEmpty.Signal()
	return true
}

// PostLIFO inserts e so that it is returned by the very next Get, ahead of
// anything already queued. Used to requeue an event a handler partially
// processed and wants re-dispatched before newer arrivals.
func (q *Queue[T]) PostLIFO(e T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.hasFront {
		q.front = e
		q.hasFront = true
		q.notEmpty.Signal()
		return true
	}
	if q.count == len(q.ring) {
		return false
	}
	q.tail = (q.tail - 1 + len(q.ring)) % len(q.ring)
	q.ring[q.tail] = q.front
	q.count++
	q.updateMin()
	q.front = e
	return true
}

func (q *Queue[T]) updateMin() {
	free := len(q.ring) - q.count
	if free < q.nMin {
		q.nMin = free
	}
}

// Get removes and returns the front event. The second return value is false
// if the queue was empty.
func (q *Queue[T]) Get() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.getLocked()
}

func (q *Queue[T]) getLocked() (T, bool) {
	if !q.hasFront {
		var zero T
		return zero, false
	}
	e := q.front
	if q.count > 0 {
		q.front = q.ring[q.tail]
		q.tail = (q.tail + 1) % len(q.ring)
		q.count--
	} else {
		q.hasFront = false
		var zero T
		q.front = zero
	}
	return e, true
}

// Wait blocks until an event is available, the queue is closed, or ctx is
// done, then returns it (dequeuing it). The contract matches run-to-
// completion dispatch: an active object's thread parks here between events
// rather than polling.
func (q *Queue[T]) Wait(ctx context.Context) (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for !q.hasFront && !q.closed {
		if ctx == nil {
			q.notEmpty.Wait()
			continue
		}
		if ctx.Err() != nil {
			var zero T
			return zero, false
		}
		// context cancellation can't interrupt Cond.Wait directly; a
		// watcher goroutine wakes it up when ctx is done.
		done := make(chan struct{})
		stop := context.AfterFunc(ctx, func() {
			close(done)
			q.mu.Lock()
			q.notEmpty.Broadcast()
			q.mu.Unlock()
		})
		q.notEmpty.Wait()
		stop()
		select {
		case <-done:
		default:
		}
	}
	if q.closed && !q.hasFront {
		var zero T
		return zero, false
	}
	return q.getLocked()
}

// NotEmpty reports whether the queue currently holds an event, without
// consuming it.
func (q *Queue[T]) NotEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.hasFront
}

// WaitNonEmpty blocks until the queue holds an event, is closed, or ctx is
// done, then returns whether an event is available — without dequeuing it.
// The scheduler uses this to learn that a priority has become ready while
// leaving the actual Get to happen only once that priority has won the
// dispatch token.
func (q *Queue[T]) WaitNonEmpty(ctx context.Context) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for !q.hasFront && !q.closed {
		if ctx == nil {
			q.notEmpty.Wait()
			continue
		}
		if ctx.Err() != nil {
			return false
		}
		done := make(chan struct{})
		stop := context.AfterFunc(ctx, func() {
			close(done)
			q.mu.Lock()
			q.notEmpty.Broadcast()
			q.mu.Unlock()
		})
		q.notEmpty.Wait()
		stop()
		select {
		case <-done:
		default:
		}
	}
	return q.hasFront
}

// Close wakes any blocked Wait call and marks the queue closed; subsequent
// Wait calls on an empty queue return immediately with ok=false. Events
// already queued can still be drained with Get/Wait before they report
// empty.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.notEmpty.Broadcast()
}

// Len returns the number of events currently queued, including the front
// slot.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.hasFront {
		return 0
	}
	return 1 + q.count
}

// MinFree returns the lowest number of free ring slots observed, a
// diagnostic for sizing an active object's queue depth correctly.
func (q *Queue[T]) MinFree() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.nMin
}
