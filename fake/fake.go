// Package fake
// Author: momentics <momentics@gmail.com>
//
// Test doubles for the monitor: a scriptable endpoint, a recording cache,
// and canned index/registry/liveness implementations. None of them require
// a real listener or transport.

package fake

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-shm/api"
)

// Chunk is an in-heap api.Chunk with a scripted header.
type Chunk struct {
	Hdr  api.ChunkHeader
	Data []byte

	refs     atomic.Int32
	Released atomic.Bool
}

// NewChunk returns a chunk holding one reference.
func NewChunk(hdr api.ChunkHeader, data []byte) *Chunk {
	c := &Chunk{Hdr: hdr, Data: data}
	c.refs.Store(1)
	return c
}

func (c *Chunk) Header() api.ChunkHeader { return c.Hdr }
func (c *Chunk) Payload() []byte         { return c.Data }
func (c *Chunk) Retain()                 { c.refs.Add(1) }

func (c *Chunk) Release() {
	if c.refs.Add(-1) == 0 {
		c.Released.Store(true)
	}
}

// Endpoint is a scriptable subscriber endpoint. Push queues chunks; Fire
// invokes the bound hook the way a transport delivery would. TakeDelay
// injects scheduling latency into every take for interleaving tests.
type Endpoint struct {
	mu     sync.Mutex
	queue  []api.Chunk
	hook   func()
	takeEr error

	TakeDelay time.Duration
	Takes     atomic.Uint64
	Empties   atomic.Uint64
}

func NewEndpoint() *Endpoint { return &Endpoint{} }

// Push queues a chunk without firing the hook.
func (e *Endpoint) Push(c api.Chunk) {
	e.mu.Lock()
	e.queue = append(e.queue, c)
	e.mu.Unlock()
}

// FailTakes makes every subsequent take return err.
func (e *Endpoint) FailTakes(err error) {
	e.mu.Lock()
	e.takeEr = err
	e.mu.Unlock()
}

// Fire invokes the bound readiness hook, if any.
func (e *Endpoint) Fire() {
	e.mu.Lock()
	hook := e.hook
	e.mu.Unlock()
	if hook != nil {
		hook()
	}
}

func (e *Endpoint) Bind(hook func()) {
	e.mu.Lock()
	e.hook = hook
	e.mu.Unlock()
}

func (e *Endpoint) TakeChunk() (api.Chunk, error) {
	if e.TakeDelay > 0 {
		time.Sleep(e.TakeDelay)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.takeEr != nil {
		return nil, e.takeEr
	}
	if len(e.queue) == 0 {
		e.Empties.Add(1)
		return nil, api.ErrNoData
	}
	c := e.queue[0]
	e.queue = e.queue[1:]
	e.Takes.Add(1)
	return c, nil
}

// StoredSample is one recorded cache store.
type StoredSample struct {
	Info     api.WriterInfo
	Payload  []byte
	KeyHash  uint64
	Instance uint64
	At       time.Time
}

// Cache records every store. StoreDelay injects latency to keep a drain
// in flight during teardown tests.
type Cache struct {
	mu     sync.Mutex
	stores []StoredSample

	StoreDelay time.Duration
}

func NewCache() *Cache { return &Cache{} }

func (c *Cache) Store(info api.WriterInfo, s *api.Sample, ref api.InstanceRef) bool {
	if c.StoreDelay > 0 {
		time.Sleep(c.StoreDelay)
	}
	payload := append([]byte(nil), s.Payload()...)
	c.mu.Lock()
	c.stores = append(c.stores, StoredSample{
		Info:     info,
		Payload:  payload,
		KeyHash:  s.KeyHash,
		Instance: ref.Handle(),
		At:       time.Now(),
	})
	c.mu.Unlock()
	return true
}

// Stores returns a copy of all recorded stores.
func (c *Cache) Stores() []StoredSample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]StoredSample(nil), c.stores...)
}

// Len returns the store count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.stores)
}

// Index is a canned entity index.
type Index struct {
	mu     sync.RWMutex
	remote map[api.GUID]api.RemoteWriter
	local  map[api.GUID]struct{}
}

func NewIndex() *Index {
	return &Index{
		remote: make(map[api.GUID]api.RemoteWriter),
		local:  make(map[api.GUID]struct{}),
	}
}

func (ix *Index) AddRemote(w api.RemoteWriter) {
	ix.mu.Lock()
	ix.remote[w.GUID] = w
	ix.mu.Unlock()
}

func (ix *Index) AddLocal(g api.GUID) {
	ix.mu.Lock()
	ix.local[g] = struct{}{}
	ix.mu.Unlock()
}

func (ix *Index) LookupWriter(g api.GUID) (api.RemoteWriter, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	w, ok := ix.remote[g]
	return w, ok
}

func (ix *Index) IsLocalWriter(g api.GUID) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.local[g]
	return ok
}

// Registry is a canned instance registry with a failure switch.
type Registry struct {
	mu       sync.Mutex
	next     uint64
	handles  map[uint64]uint64
	failNext bool

	Resolves atomic.Uint64
	Releases atomic.Uint64
}

func NewRegistry() *Registry {
	return &Registry{handles: make(map[uint64]uint64)}
}

// FailNext makes the next resolution fail.
func (r *Registry) FailNext() {
	r.mu.Lock()
	r.failNext = true
	r.mu.Unlock()
}

func (r *Registry) ResolveInstance(s *api.Sample) (api.InstanceRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext {
		r.failNext = false
		return nil, fmt.Errorf("fake: key resolution refused")
	}
	h, ok := r.handles[s.KeyHash]
	if !ok {
		r.next++
		h = r.next
		r.handles[s.KeyHash] = h
	}
	r.Resolves.Add(1)
	return &fakeRef{reg: r, handle: h}, nil
}

type fakeRef struct {
	reg    *Registry
	handle uint64
	once   sync.Once
}

func (f *fakeRef) Handle() uint64 { return f.handle }
func (f *fakeRef) Release()       { f.once.Do(func() { f.reg.Releases.Add(1) }) }

// Liveness counts awake/asleep transitions.
type Liveness struct {
	Awakes  atomic.Int64
	Asleeps atomic.Int64
}

func NewLiveness() *Liveness { return &Liveness{} }

func (l *Liveness) Awake()  { l.Awakes.Add(1) }
func (l *Liveness) Asleep() { l.Asleeps.Add(1) }

// Reader bundles an endpoint and a cache behind api.Reader.
type Reader struct {
	Name string
	EP   api.SubscriberEndpoint
	HC   api.HistoryCache
}

func NewReader(name string, ep api.SubscriberEndpoint, hc api.HistoryCache) *Reader {
	return &Reader{Name: name, EP: ep, HC: hc}
}

func (r *Reader) ID() string                       { return r.Name }
func (r *Reader) Endpoint() api.SubscriberEndpoint { return r.EP }
func (r *Reader) Cache() api.HistoryCache          { return r.HC }
