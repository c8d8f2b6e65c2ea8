// File: monitor/wakesignal.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// WakeSignal is the monitor's generic cross-goroutine deferred invocation:
// a user trigger plus a single mutex-guarded slot. One request outstanding
// at a time; posting over an undispatched request discards the earlier one
// (last-writer-wins). Deliberately minimal — its only use is waking a
// sleeping listener for bookkeeping work that tolerates coalescing. Callers
// needing guaranteed delivery must layer a queue on top.

package monitor

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-shm/reactor"
)

type wakeSignal struct {
	trigger *reactor.UserTrigger

	mu      sync.Mutex
	fn      func()
	pending bool

	discarded atomic.Uint64
}

func newWakeSignal() *wakeSignal {
	return &wakeSignal{trigger: reactor.NewUserTrigger()}
}

// post stores fn as the pending request and fires the trigger. An earlier
// undispatched request is replaced and never invoked.
func (w *wakeSignal) post(fn func()) {
	w.mu.Lock()
	if w.pending {
		w.discarded.Add(1)
	}
	w.fn = fn
	w.pending = true
	w.mu.Unlock()
	w.trigger.Trigger()
}

// take removes and returns the pending request, if any.
func (w *wakeSignal) take() (func(), bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.pending {
		return nil, false
	}
	fn := w.fn
	w.fn = nil
	w.pending = false
	return fn, true
}

// drop clears the slot without invoking, counting the discard.
func (w *wakeSignal) drop() {
	w.mu.Lock()
	if w.pending {
		w.fn = nil
		w.pending = false
		w.discarded.Add(1)
	}
	w.mu.Unlock()
}
