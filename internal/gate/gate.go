// File: internal/gate/gate.go
// Package gate provides the callback-in-flight barrier the monitor's
// teardown waits on.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Every dispatched callback passes Enter/Exit; Quiesce blocks until no
// callback body is running. The idle channel is replaced whenever the count
// leaves zero, so a waiter always observes a quiesce that happened after its
// call, never a stale one.

package gate

import (
	"sync"
	"time"
)

// Gate counts in-flight callbacks and signals waiters when the count
// reaches zero.
type Gate struct {
	mu       sync.Mutex
	inflight int
	idle     chan struct{}
}

// New returns an idle gate.
func New() *Gate {
	idle := make(chan struct{})
	close(idle)
	return &Gate{idle: idle}
}

// Enter marks one callback as running.
func (g *Gate) Enter() {
	g.mu.Lock()
	if g.inflight == 0 {
		g.idle = make(chan struct{})
	}
	g.inflight++
	g.mu.Unlock()
}

// Exit marks one callback as finished. Must pair with Enter.
func (g *Gate) Exit() {
	g.mu.Lock()
	g.inflight--
	if g.inflight < 0 {
		g.mu.Unlock()
		panic("gate: Exit without matching Enter")
	}
	if g.inflight == 0 {
		close(g.idle)
	}
	g.mu.Unlock()
}

// Inflight returns the current count.
func (g *Gate) Inflight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inflight
}

// Quiesce blocks until the in-flight count reaches zero. A timeout of zero
// waits forever. Returns false when the timeout expired first.
func (g *Gate) Quiesce(timeout time.Duration) bool {
	g.mu.Lock()
	idle := g.idle
	g.mu.Unlock()

	if timeout <= 0 {
		<-idle
		return true
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-idle:
		return true
	case <-t.C:
		return false
	}
}
