// File: liveness/tracker.go
// Package liveness provides the reference thread-liveness tracker the
// receive pipeline marks progress in.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package liveness

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-shm/api"
)

// Tracker counts goroutines currently marked awake, per OS thread where the
// platform exposes a thread id (see tracker_linux.go).
type Tracker struct {
	awake   atomic.Int64
	drains  atomic.Uint64
	mu      sync.Mutex
	threads map[int]int
}

var _ api.LivenessTracker = (*Tracker)(nil)

// NewTracker creates an idle tracker.
func NewTracker() *Tracker {
	return &Tracker{threads: make(map[int]int)}
}

// Awake marks the calling goroutine as making progress.
func (t *Tracker) Awake() {
	t.awake.Add(1)
	t.drains.Add(1)
	if tid := threadID(); tid != 0 {
		t.mu.Lock()
		t.threads[tid]++
		t.mu.Unlock()
	}
}

// Asleep ends the matching Awake.
func (t *Tracker) Asleep() {
	if t.awake.Add(-1) < 0 {
		panic("liveness: Asleep without matching Awake")
	}
	if tid := threadID(); tid != 0 {
		t.mu.Lock()
		// The goroutine may have migrated since Awake; fall back to any
		// thread still carrying a count so the table total tracks awake.
		if t.threads[tid] == 0 {
			for other, n := range t.threads {
				if n > 0 {
					tid = other
					break
				}
			}
		}
		if t.threads[tid] > 0 {
			t.threads[tid]--
			if t.threads[tid] == 0 {
				delete(t.threads, tid)
			}
		}
		t.mu.Unlock()
	}
}

// AwakeCount returns the number of currently awake goroutines.
func (t *Tracker) AwakeCount() int64 {
	return t.awake.Load()
}

// Wakes returns the total number of Awake transitions.
func (t *Tracker) Wakes() uint64 {
	return t.drains.Load()
}

// ActiveThreads returns the OS threads currently carrying awake goroutines.
// Empty on platforms without thread ids.
func (t *Tracker) ActiveThreads() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]int, 0, len(t.threads))
	for tid := range t.threads {
		out = append(out, tid)
	}
	return out
}
