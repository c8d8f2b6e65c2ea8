// File: reactor/trigger.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// UserTrigger is a user-signalable event source: the shared-memory analog of
// an eventfd. Trigger may be called from any goroutine; every trigger
// reaches the hook, and the listener coalesces edges per source while it is
// queued or running. Deduplicating here instead would open a window where an
// edge arriving right after a dispatch is absorbed without being recorded.

package reactor

import (
	"sync"
	"sync/atomic"
)

// UserTrigger implements api.EventSource with an explicit Trigger operation.
type UserTrigger struct {
	mu    sync.Mutex
	hook  func()
	fired atomic.Uint64
}

// NewUserTrigger returns an unbound trigger. Trigger before Bind is a no-op.
func NewUserTrigger() *UserTrigger {
	return &UserTrigger{}
}

// Bind installs or removes the listener's wake hook.
func (t *UserTrigger) Bind(hook func()) {
	t.mu.Lock()
	t.hook = hook
	t.mu.Unlock()
}

// Trigger signals one readiness edge. Returns immediately.
func (t *UserTrigger) Trigger() {
	t.mu.Lock()
	hook := t.hook
	t.mu.Unlock()
	if hook != nil {
		hook()
		t.fired.Add(1)
	}
}

// Fired returns how many edges reached a bound hook.
func (t *UserTrigger) Fired() uint64 {
	return t.fired.Load()
}
