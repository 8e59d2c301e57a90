// Package ring provides the fixed-capacity single-producer single-consumer
// queue underlying the scheduler's free and ready queues. Capacity is fixed
// at construction; no allocation happens after New.
package ring

import "fmt"

// Queue is a bounded FIFO. The head index and element count both stay in
// [0, cap); the head wraps explicitly on increment, so capacity need not be
// a power of two and no index arithmetic can overflow, however long the
// queue lives.
//
// The queue is safe for one producer and one consumer under the single-core
// discipline: producers and consumers at different priorities never overlap
// mid-operation because enqueue/dequeue run either in a handler or inside a
// masked critical section.
type Queue[T any] struct {
	buf  []T
	head uint32 // index of the oldest element
	n    uint32 // element count
}

// New builds a queue holding up to capacity elements.
func New[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		panic(fmt.Sprintf("ring: capacity must be positive, got %d", capacity))
	}
	return &Queue[T]{buf: make([]T, capacity)}
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int { return int(q.n) }

// Cap returns the fixed capacity.
func (q *Queue[T]) Cap() int { return len(q.buf) }

// Enqueue appends v and reports whether there was room.
func (q *Queue[T]) Enqueue(v T) bool {
	if q.n == uint32(len(q.buf)) {
		return false
	}
	tail := q.head + q.n
	if tail >= uint32(len(q.buf)) {
		tail -= uint32(len(q.buf))
	}
	q.buf[tail] = v
	q.n++
	return true
}

// Dequeue removes the oldest element, reporting whether one existed.
func (q *Queue[T]) Dequeue() (T, bool) {
	var zero T
	if q.n == 0 {
		return zero, false
	}
	v := q.buf[q.head]
	q.buf[q.head] = zero
	q.head++
	if q.head == uint32(len(q.buf)) {
		q.head = 0
	}
	q.n--
	return v, true
}

// EnqueueUnchecked appends v, treating a full queue as an unrecoverable
// ownership-invariant violation.
func (q *Queue[T]) EnqueueUnchecked(v T) {
	if !q.Enqueue(v) {
		panic("ring: enqueue on full queue")
	}
}

// DequeueUnchecked removes the oldest element, treating an empty queue as an
// unrecoverable ownership-invariant violation.
func (q *Queue[T]) DequeueUnchecked() T {
	v, ok := q.Dequeue()
	if !ok {
		panic("ring: dequeue on empty queue")
	}
	return v
}
