// File: monitor/monitor_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Lifecycle and wake-invocation tests against fake collaborators; no real
// transport involved.

package monitor_test

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/momentics/hioload-shm/api"
	"github.com/momentics/hioload-shm/fake"
	"github.com/momentics/hioload-shm/monitor"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMonitor(t *testing.T, cfg monitor.Config) (*monitor.Monitor, *fake.Index, *fake.Registry, *fake.Liveness) {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = quietLogger()
	}
	ix := fake.NewIndex()
	reg := fake.NewRegistry()
	lv := fake.NewLiveness()
	m, err := monitor.New(cfg, monitor.Deps{Index: ix, Instances: reg, Liveness: lv})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m, ix, reg, lv
}

func newFakeReader(name string) (*fake.Reader, *fake.Endpoint, *fake.Cache) {
	ep := fake.NewEndpoint()
	hc := fake.NewCache()
	return fake.NewReader(name, ep, hc), ep, hc
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestMonitor_StartsRunning(t *testing.T) {
	m, _, _, _ := newMonitor(t, monitor.Config{})
	if m.State() != monitor.Running {
		t.Fatalf("state = %v, want Running", m.State())
	}
}

// After N attaches and M detaches the attached count is exactly N-M.
func TestMonitor_AttachDetachCounting(t *testing.T) {
	m, _, _, _ := newMonitor(t, monitor.Config{})

	const n = 10
	readers := make([]*fake.Reader, n)
	for i := range readers {
		r, _, _ := newFakeReader(fmt.Sprintf("r%d", i))
		readers[i] = r
		if err := m.AttachReader(r); err != nil {
			t.Fatal(err)
		}
	}
	if got := m.AttachedReaders(); got != n {
		t.Fatalf("attached = %d, want %d", got, n)
	}
	const mDetach = 4
	for i := 0; i < mDetach; i++ {
		if err := m.DetachReader(readers[i]); err != nil {
			t.Fatal(err)
		}
	}
	if got := m.AttachedReaders(); got != n-mDetach {
		t.Fatalf("attached = %d, want %d", got, n-mDetach)
	}
}

func TestMonitor_DoubleAttachRejected(t *testing.T) {
	m, _, _, _ := newMonitor(t, monitor.Config{})
	r, _, _ := newFakeReader("r")
	if err := m.AttachReader(r); err != nil {
		t.Fatal(err)
	}
	if err := m.AttachReader(r); !errors.Is(err, api.ErrAlreadyAttached) {
		t.Fatalf("expected ErrAlreadyAttached, got %v", err)
	}
	if got := m.AttachedReaders(); got != 1 {
		t.Fatalf("attached = %d after rejected attach, want 1", got)
	}
}

func TestMonitor_DetachUnattachedRejected(t *testing.T) {
	m, _, _, _ := newMonitor(t, monitor.Config{})
	r, _, _ := newFakeReader("r")
	if err := m.DetachReader(r); !errors.Is(err, api.ErrNotAttached) {
		t.Fatalf("expected ErrNotAttached, got %v", err)
	}
	if got := m.AttachedReaders(); got != 0 {
		t.Fatalf("attached = %d, want 0", got)
	}
}

// One listener slot is held by the wake trigger, so MaxSources=2 leaves room
// for exactly one reader.
func TestMonitor_AttachOutOfResources(t *testing.T) {
	m, _, _, _ := newMonitor(t, monitor.Config{MaxSources: 2})
	r1, _, _ := newFakeReader("r1")
	if err := m.AttachReader(r1); err != nil {
		t.Fatal(err)
	}
	r2, _, _ := newFakeReader("r2")
	err := m.AttachReader(r2)
	if !errors.Is(err, api.ErrResourceExhausted) {
		t.Fatalf("expected ErrResourceExhausted, got %v", err)
	}
	if got := m.AttachedReaders(); got != 1 {
		t.Fatalf("attached = %d after failed attach, want 1", got)
	}
}

func TestMonitor_WakeAndInvoke(t *testing.T) {
	m, _, _, _ := newMonitor(t, monitor.Config{})
	var calls atomic.Int64
	m.WakeAndInvoke(func() { calls.Add(1) })
	waitFor(t, func() bool { return calls.Load() == 1 })
	time.Sleep(20 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("deferred call ran %d times, want exactly 1", got)
	}
}

// A second request posted before dispatch replaces the first; the first is
// never invoked. The single listener worker is parked in a drain while both
// requests are posted, so the dispatch order is deterministic.
func TestMonitor_WakeAndInvokeLastWriterWins(t *testing.T) {
	m, _, _, _ := newMonitor(t, monitor.Config{Workers: 1})

	blockEP := newBlockingEndpoint()
	r := fake.NewReader("blocker", blockEP, fake.NewCache())
	if err := m.AttachReader(r); err != nil {
		t.Fatal(err)
	}
	blockEP.fire()
	<-blockEP.entered

	var first, second atomic.Int64
	m.WakeAndInvoke(func() { first.Add(1) })
	m.WakeAndInvoke(func() { second.Add(1) })
	if got := m.Stats().WakeDiscarded; got != 1 {
		t.Fatalf("WakeDiscarded = %d, want 1", got)
	}
	close(blockEP.release)

	waitFor(t, func() bool { return second.Load() == 1 })
	if first.Load() != 0 {
		t.Fatal("replaced request was invoked")
	}
}

func TestMonitor_DisableDropsPendingWake(t *testing.T) {
	m, _, _, _ := newMonitor(t, monitor.Config{Workers: 1})

	blockEP := newBlockingEndpoint()
	r := fake.NewReader("blocker", blockEP, fake.NewCache())
	if err := m.AttachReader(r); err != nil {
		t.Fatal(err)
	}
	blockEP.fire()
	<-blockEP.entered

	var calls atomic.Int64
	m.WakeAndInvoke(func() { calls.Add(1) })
	m.WakeAndDisable()
	close(blockEP.release)

	time.Sleep(50 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatal("deferred call ran while disabled")
	}

	// Re-enabling does not resurrect the request either: the monitor's own
	// wake dispatch consumed nothing, but the slot still holds it, so a
	// fresh enable dispatches it.
	m.WakeAndEnable()
	waitFor(t, func() bool { return calls.Load() == 1 })
}

func TestMonitor_CloseIdempotent(t *testing.T) {
	m, _, _, _ := newMonitor(t, monitor.Config{})
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestMonitor_AttachAfterCloseRejected(t *testing.T) {
	m, _, _, _ := newMonitor(t, monitor.Config{})
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	r, _, _ := newFakeReader("r")
	if err := m.AttachReader(r); !errors.Is(err, api.ErrMonitorStopped) {
		t.Fatalf("expected ErrMonitorStopped, got %v", err)
	}
}

func TestMonitor_CloseTimesOutOnStuckCallback(t *testing.T) {
	m, _, _, _ := newMonitor(t, monitor.Config{QuiesceTimeout: 50 * time.Millisecond})

	blockEP := newBlockingEndpoint()
	r := fake.NewReader("stuck", blockEP, fake.NewCache())
	if err := m.AttachReader(r); err != nil {
		t.Fatal(err)
	}
	blockEP.fire()
	<-blockEP.entered
	defer close(blockEP.release)

	if err := m.Close(); !errors.Is(err, api.ErrQuiesceTimeout) {
		t.Fatalf("expected ErrQuiesceTimeout, got %v", err)
	}
}

// blockingEndpoint parks the drain inside TakeChunk until released, so tests
// can hold the listener worker at a known point.
type blockingEndpoint struct {
	entered chan struct{}
	release chan struct{}
	hook    atomic.Pointer[func()]
	once    atomic.Bool
}

func newBlockingEndpoint() *blockingEndpoint {
	return &blockingEndpoint{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (b *blockingEndpoint) Bind(hook func()) {
	if hook != nil {
		b.hook.Store(&hook)
	} else {
		b.hook.Store(nil)
	}
}

func (b *blockingEndpoint) fire() {
	if h := b.hook.Load(); h != nil {
		(*h)()
	}
}

func (b *blockingEndpoint) TakeChunk() (api.Chunk, error) {
	if b.once.CompareAndSwap(false, true) {
		close(b.entered)
		<-b.release
	}
	return nil, api.ErrNoData
}
