// File: internal/ring/ring.go
// Package ring provides a bounded MPMC ring used for chunk free lists and
// endpoint delivery queues.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Sequence-numbered bounded queue after Dmitry Vyukov's MPMC design.

package ring

import "sync/atomic"

const cacheLinePad = 64

type slot[T any] struct {
	seq  atomic.Uint64
	item T
}

// Ring is a bounded multi-producer multi-consumer FIFO. Capacity is rounded
// up to a power of two.
type Ring[T any] struct {
	head atomic.Uint64
	_    [cacheLinePad]byte
	tail atomic.Uint64
	_    [cacheLinePad]byte
	mask uint64
	slots []slot[T]
}

// New creates a ring holding at least capacity items.
func New[T any](capacity int) *Ring[T] {
	if capacity < 2 {
		capacity = 2
	}
	size := 1
	for size < capacity {
		size <<= 1
	}
	r := &Ring[T]{
		mask:  uint64(size - 1),
		slots: make([]slot[T], size),
	}
	for i := range r.slots {
		r.slots[i].seq.Store(uint64(i))
	}
	return r
}

// Push enqueues item; false when the ring is full.
func (r *Ring[T]) Push(item T) bool {
	for {
		tail := r.tail.Load()
		s := &r.slots[tail&r.mask]
		dif := int64(s.seq.Load()) - int64(tail)
		switch {
		case dif == 0:
			if r.tail.CompareAndSwap(tail, tail+1) {
				s.item = item
				s.seq.Store(tail + 1)
				return true
			}
		case dif < 0:
			return false
		}
		// tail moved, retry
	}
}

// Pop dequeues the oldest item; ok is false when the ring is empty.
func (r *Ring[T]) Pop() (item T, ok bool) {
	for {
		head := r.head.Load()
		s := &r.slots[head&r.mask]
		dif := int64(s.seq.Load()) - int64(head+1)
		switch {
		case dif == 0:
			if r.head.CompareAndSwap(head, head+1) {
				item = s.item
				var zero T
				s.item = zero
				s.seq.Store(head + r.mask + 1)
				return item, true
			}
		case dif < 0:
			var zero T
			return zero, false
		}
		// head moved, retry
	}
}

// Len is an approximate count of queued items.
func (r *Ring[T]) Len() int {
	d := int64(r.tail.Load()) - int64(r.head.Load())
	if d < 0 {
		return 0
	}
	return int(d)
}

// Cap returns the rounded capacity.
func (r *Ring[T]) Cap() int {
	return len(r.slots)
}
