// File: reactor/listener.go
// Package reactor implements the event listener the shared-memory monitor
// runs on: registered event sources, a ready queue, and N dispatch workers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Sources announce readiness through the hook installed by Attach. Edges
// coalesce per source while the source sits in the ready queue; an edge that
// arrives while the callback is running re-queues the source once the
// callback returns. Detach blocks until an in-flight callback for that
// source has returned, which is what gives the monitor its synchronous
// detach semantics.

package reactor

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-shm/api"
)

// Callback is invoked on a dispatch worker when its source is ready.
type Callback func()

// DefaultMaxSources mirrors the per-listener event cap of the shared-memory
// transports this library bridges.
const DefaultMaxSources = 128

type binding struct {
	src      api.EventSource
	cb       Callback
	queued   bool // sitting in the ready queue
	running  bool // callback executing on a worker
	fired    bool // edge arrived while running
	detached bool
}

// Listener multiplexes event sources onto a pool of dispatch workers.
type Listener struct {
	mu      sync.Mutex
	cond    *sync.Cond
	ready   *queue.Queue // FIFO of *binding
	sources map[api.EventSource]*binding
	max     int
	closed  bool
	wg      sync.WaitGroup
}

// Options configures a listener.
type Options struct {
	// Workers is the number of dispatch goroutines; callbacks of distinct
	// sources run concurrently when Workers > 1. Default 1.
	Workers int
	// MaxSources bounds the source table. Default DefaultMaxSources.
	MaxSources int
}

// NewListener starts the dispatch workers and returns a ready listener.
func NewListener(opts Options) *Listener {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxSources <= 0 {
		opts.MaxSources = DefaultMaxSources
	}
	l := &Listener{
		ready:   queue.New(),
		sources: make(map[api.EventSource]*binding),
		max:     opts.MaxSources,
	}
	l.cond = sync.NewCond(&l.mu)
	l.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go l.dispatch()
	}
	return l
}

// Attach registers src with cb. Returns api.ErrResourceExhausted when the
// source table is full, api.ErrListenerClosed after Close.
func (l *Listener) Attach(src api.EventSource, cb Callback) error {
	if src == nil || cb == nil {
		return api.ErrInvalidArgument
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return api.ErrListenerClosed
	}
	if _, ok := l.sources[src]; ok {
		l.mu.Unlock()
		return api.ErrInvalidArgument
	}
	if len(l.sources) >= l.max {
		l.mu.Unlock()
		return api.ErrResourceExhausted
	}
	b := &binding{src: src, cb: cb}
	l.sources[src] = b
	l.mu.Unlock()

	src.Bind(func() { l.fire(b) })
	return nil
}

// Detach removes src and waits for an in-flight callback of src to return.
// Must not be called from within src's own callback.
func (l *Listener) Detach(src api.EventSource) error {
	l.mu.Lock()
	b, ok := l.sources[src]
	if !ok {
		l.mu.Unlock()
		return api.ErrNotAttached
	}
	b.detached = true
	delete(l.sources, src)
	for b.running {
		l.cond.Wait()
	}
	l.mu.Unlock()

	src.Bind(nil)
	return nil
}

// Sources returns the current source-table occupancy.
func (l *Listener) Sources() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sources)
}

// Close stops dispatch and joins the workers. Queued but undispatched
// readiness is dropped; no callback runs after Close returns.
func (l *Listener) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	for src := range l.sources {
		delete(l.sources, src)
	}
	l.cond.Broadcast()
	l.mu.Unlock()
	l.wg.Wait()
}

// fire marks a source ready. Called from the hook installed by Attach,
// possibly from any goroutine.
func (l *Listener) fire(b *binding) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || b.detached {
		return
	}
	if b.running {
		b.fired = true
		return
	}
	if !b.queued {
		b.queued = true
		l.ready.Add(b)
		l.cond.Signal()
	}
}

func (l *Listener) dispatch() {
	defer l.wg.Done()
	l.mu.Lock()
	for {
		for !l.closed && l.ready.Length() == 0 {
			l.cond.Wait()
		}
		if l.closed {
			l.mu.Unlock()
			return
		}
		b := l.ready.Remove().(*binding)
		b.queued = false
		if b.detached {
			continue
		}
		b.running = true
		l.mu.Unlock()

		b.cb()

		l.mu.Lock()
		b.running = false
		if b.fired && !b.detached && !l.closed {
			b.fired = false
			b.queued = true
			l.ready.Add(b)
			l.cond.Signal()
		}
		l.cond.Broadcast() // detach waiters
	}
}
