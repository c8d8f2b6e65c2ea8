// File: monitor/monitor.go
// Package monitor bridges a zero-copy shared-memory transport's
// data-available events into middleware readers: it owns the listener, the
// wake signal, and the attach/detach lifecycle of reader endpoints.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Every listener-invoked entry point passes the callback gate before it
// checks the running state; Close flips the state, then waits on the gate,
// so no callback body can be executing once Close has returned. The gate is
// a real barrier (count + idle channel), not a flag poll.

package monitor

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-shm/api"
	"github.com/momentics/hioload-shm/internal/gate"
	"github.com/momentics/hioload-shm/reactor"
)

// State is the monitor lifecycle state.
type State int32

const (
	NotRunning State = iota
	Running
)

// String returns the symbolic state name.
func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "not-running"
}

// DefaultQuiesceTimeout bounds the teardown wait for in-flight callbacks.
const DefaultQuiesceTimeout = 5 * time.Second

// Config tunes the monitor's listener and teardown behavior.
type Config struct {
	// Workers is the listener dispatch goroutine count. Default 1.
	Workers int
	// MaxSources bounds the listener source table; one slot is consumed by
	// the wake signal itself. Default reactor.DefaultMaxSources.
	MaxSources int
	// QuiesceTimeout bounds Close's wait for in-flight callbacks.
	// Default DefaultQuiesceTimeout.
	QuiesceTimeout time.Duration
	// Logger receives diagnostics; slog.Default() when nil.
	Logger *slog.Logger
}

// Deps are the external collaborators the receive pipeline consumes.
type Deps struct {
	Index     api.EntityIndex
	Instances api.InstanceRegistry
	Liveness  api.LivenessTracker
}

type readerBinding struct {
	reader   api.Reader
	endpoint api.SubscriberEndpoint
	cache    api.HistoryCache
}

// Monitor owns the listener and the wake signal and composes the reader
// event bindings with the receive pipeline. One per reader subsystem.
type Monitor struct {
	cfg  Config
	deps Deps
	log  *slog.Logger

	listener *reactor.Listener
	wake     *wakeSignal
	gate     *gate.Gate

	state atomic.Int32

	// mu guards the binding table and lifecycle transitions. takeMu is the
	// single coarse lock serializing all endpoints' take operations; the
	// shared transport handle surface is not assumed safe for concurrent
	// takes across endpoints.
	mu       sync.Mutex
	takeMu   sync.Mutex
	bindings map[api.Reader]*readerBinding
	closed   bool

	attached atomic.Int64
	stats    counters
}

// New creates a monitor in the Running state with its wake signal already
// attached to the listener.
func New(cfg Config, deps Deps) (*Monitor, error) {
	if cfg.QuiesceTimeout <= 0 {
		cfg.QuiesceTimeout = DefaultQuiesceTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	m := &Monitor{
		cfg:      cfg,
		deps:     deps,
		log:      log,
		wake:     newWakeSignal(),
		gate:     gate.New(),
		bindings: make(map[api.Reader]*readerBinding),
	}
	m.listener = reactor.NewListener(reactor.Options{
		Workers:    cfg.Workers,
		MaxSources: cfg.MaxSources,
	})
	if err := m.listener.Attach(m.wake.trigger, m.onWake); err != nil {
		m.listener.Close()
		return nil, err
	}
	m.state.Store(int32(Running))
	return m, nil
}

// State returns the current lifecycle state.
func (m *Monitor) State() State {
	return State(m.state.Load())
}

// AttachedReaders returns the number of currently attached readers.
func (m *Monitor) AttachedReaders() int {
	return int(m.attached.Load())
}

// AttachReader registers r's endpoint with the listener, binding the receive
// pipeline as its data-available callback. Fails with
// api.ErrResourceExhausted when the listener's source table is full.
func (m *Monitor) AttachReader(r api.Reader) error {
	if r == nil {
		return api.ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return api.ErrMonitorStopped
	}
	if _, ok := m.bindings[r]; ok {
		return api.ErrAlreadyAttached
	}
	rb := &readerBinding{
		reader:   r,
		endpoint: r.Endpoint(),
		cache:    r.Cache(),
	}
	if err := m.listener.Attach(rb.endpoint, func() { m.onData(rb) }); err != nil {
		return err
	}
	m.bindings[r] = rb
	m.attached.Add(1)
	m.log.Debug("monitor: reader attached", "reader", r.ID(), "attached", m.attached.Load())
	return nil
}

// DetachReader deregisters r's endpoint. Returns api.ErrNotAttached for a
// reader that is not currently attached. Does not return until an in-flight
// drain for r has completed.
func (m *Monitor) DetachReader(r api.Reader) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rb, ok := m.bindings[r]
	if !ok {
		return api.ErrNotAttached
	}
	delete(m.bindings, r)
	if err := m.listener.Detach(rb.endpoint); err != nil {
		// Table and listener disagree; keep the count honest anyway.
		m.log.Warn("monitor: listener detach failed", "reader", r.ID(), "err", err)
	}
	m.attached.Add(-1)
	m.log.Debug("monitor: reader detached", "reader", r.ID(), "attached", m.attached.Load())
	return nil
}

// WakeAndInvoke schedules fn to run on a listener goroutine at the next wake
// dispatch. Returns immediately. Delivery is best-effort: a later call
// before dispatch replaces fn, and a request pending at disable is dropped.
func (m *Monitor) WakeAndInvoke(fn func()) {
	if fn == nil {
		return
	}
	m.wake.post(fn)
}

// WakeAndEnable sets the state to Running and fires the wake trigger so
// goroutines deciding whether to run a callback observe the change promptly.
// A no-op after Close.
func (m *Monitor) WakeAndEnable() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.state.Store(int32(Running))
	m.mu.Unlock()
	m.wake.trigger.Trigger()
}

// WakeAndDisable sets the state to NotRunning and fires the wake trigger.
func (m *Monitor) WakeAndDisable() {
	m.mu.Lock()
	m.state.Store(int32(NotRunning))
	m.mu.Unlock()
	m.wake.trigger.Trigger()
}

// Close disables dispatch, waits for in-flight callbacks to quiesce, then
// closes the listener. Idempotent. When the quiesce wait exceeds the
// configured timeout the listener is deliberately leaked rather than torn
// down underneath a live callback, and api.ErrQuiesceTimeout is returned.
func (m *Monitor) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.state.Store(int32(NotRunning))
	leaked := m.attached.Load()
	m.mu.Unlock()

	m.wake.trigger.Trigger()
	m.wake.drop()

	if !m.gate.Quiesce(m.cfg.QuiesceTimeout) {
		m.log.Error("monitor: teardown quiesce timeout",
			"timeout", m.cfg.QuiesceTimeout, "inflight", m.gate.Inflight())
		return api.ErrQuiesceTimeout
	}
	if leaked > 0 {
		m.log.Warn("monitor: closing with readers still attached", "attached", leaked)
	}
	m.listener.Close()
	return nil
}

// onWake is the wake-trigger callback: gate first, then the state check,
// then at most one pending deferred call.
func (m *Monitor) onWake() {
	m.gate.Enter()
	defer m.gate.Exit()
	if m.State() != Running {
		return
	}
	if fn, ok := m.wake.take(); ok {
		fn()
		m.stats.wakeInvocations.Add(1)
	}
}

// onData is the subscriber-event callback for one reader binding.
func (m *Monitor) onData(rb *readerBinding) {
	m.gate.Enter()
	defer m.gate.Exit()
	if m.State() != Running {
		return
	}
	m.drain(rb)
}
