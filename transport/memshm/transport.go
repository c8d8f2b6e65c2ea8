// File: transport/memshm/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Transport, topics, publishers and subscriber endpoints. Publishing loans a
// chunk from the shared arena, fills it once, then hands a reference to each
// attached endpoint — delivery itself never copies. A full endpoint queue
// drops its oldest delivery and counts it; there is no back-pressure toward
// writers.

package memshm

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-shm/api"
	"github.com/momentics/hioload-shm/internal/ring"
)

// Config sets the transport geometry.
type Config struct {
	// ChunkCount is the arena size in chunks. Default 1024.
	ChunkCount int
	// ChunkPayload is the usable payload bytes per chunk. Default 4096.
	ChunkPayload int
	// QueueDepth bounds each endpoint's delivery queue. Default 256.
	QueueDepth int
}

// Transport owns one chunk arena and any number of named topics.
type Transport struct {
	cfg    Config
	seg    *segment
	mu     sync.Mutex
	topics map[string]*Topic
	closed atomic.Bool
}

// New maps the arena and returns a ready transport.
func New(cfg Config) (*Transport, error) {
	if cfg.ChunkCount <= 0 {
		cfg.ChunkCount = 1024
	}
	if cfg.ChunkPayload <= 0 {
		cfg.ChunkPayload = 4096
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 256
	}
	seg, err := newSegment(cfg.ChunkCount, cfg.ChunkPayload)
	if err != nil {
		return nil, err
	}
	return &Transport{
		cfg:    cfg,
		seg:    seg,
		topics: make(map[string]*Topic),
	}, nil
}

// Topic returns the named topic, creating it on first use.
func (t *Transport) Topic(name string) *Topic {
	t.mu.Lock()
	defer t.mu.Unlock()
	tp, ok := t.topics[name]
	if !ok {
		tp = &Topic{name: name, tr: t}
		t.topics[name] = tp
	}
	return tp
}

// FreeChunks reports the current arena free-list occupancy.
func (t *Transport) FreeChunks() int {
	return t.seg.freeChunks()
}

// Close unmaps the arena. The caller must have released all chunks.
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.seg.destroy()
	return nil
}

// Topic is one named delivery channel.
type Topic struct {
	name string
	tr   *Transport

	mu   sync.RWMutex
	subs []*Endpoint
}

// Name returns the topic name.
func (tp *Topic) Name() string { return tp.name }

// NewPublisher returns a publisher for this topic.
func (tp *Topic) NewPublisher() *Publisher {
	return &Publisher{topic: tp}
}

// Subscribe attaches a new endpoint with the transport's queue depth.
func (tp *Topic) Subscribe() *Endpoint {
	e := &Endpoint{
		topic: tp,
		q:     ring.New[*chunk](tp.tr.cfg.QueueDepth),
	}
	tp.mu.Lock()
	tp.subs = append(tp.subs, e)
	tp.mu.Unlock()
	return e
}

// Unsubscribe detaches e; queued deliveries are released. The subscriber
// slice is rebuilt rather than compacted in place: a concurrent deliver may
// still be iterating the old backing array.
func (tp *Topic) Unsubscribe(e *Endpoint) {
	e.detached.Store(true)
	tp.mu.Lock()
	subs := make([]*Endpoint, 0, len(tp.subs))
	for _, s := range tp.subs {
		if s != e {
			subs = append(subs, s)
		}
	}
	tp.subs = subs
	tp.mu.Unlock()
	e.drainQueue()
}

// deliver hands one reference per endpoint and fires their readiness hooks.
// The snapshot is copied under the lock; a push that races Unsubscribe is
// unwound by the detached check in push.
func (tp *Topic) deliver(c *chunk) {
	tp.mu.RLock()
	subs := append([]*Endpoint(nil), tp.subs...)
	tp.mu.RUnlock()
	for _, e := range subs {
		e.push(c)
	}
}

// Publisher loans, fills and publishes chunks on one topic.
type Publisher struct {
	topic *Topic
}

// Publish loans a chunk, writes hdr and payload into it and delivers it to
// every subscribed endpoint. A zero hdr.Timestamp is stamped with the
// current time. Returns api.ErrResourceExhausted when the arena is empty and
// api.ErrChunkTooLarge when payload exceeds the chunk geometry.
func (p *Publisher) Publish(hdr api.ChunkHeader, payload []byte) error {
	tp := p.topic
	if tp.tr.closed.Load() {
		return api.ErrTransportClosed
	}
	if len(payload) > tp.tr.cfg.ChunkPayload {
		return api.ErrChunkTooLarge
	}
	if hdr.Timestamp == 0 {
		hdr.Timestamp = time.Now().UnixNano()
	}
	c, err := tp.tr.seg.loan()
	if err != nil {
		return err
	}
	if err := encodeHeader(c.mem, hdr, len(payload)); err != nil {
		c.Release()
		return err
	}
	copy(c.mem[HeaderSize:], payload)
	tp.deliver(c)
	c.Release() // publisher's loan reference
	return nil
}

// Endpoint is the subscriber side of a topic: a bounded delivery queue plus
// the event-source hook the listener multiplexes on.
type Endpoint struct {
	topic *Topic
	q     *ring.Ring[*chunk]

	hookMu sync.Mutex
	hook   func()

	detached atomic.Bool
	dropped  atomic.Uint64
}

var _ api.SubscriberEndpoint = (*Endpoint)(nil)

// Bind installs or removes the listener's wake hook.
func (e *Endpoint) Bind(hook func()) {
	e.hookMu.Lock()
	e.hook = hook
	e.hookMu.Unlock()
}

// TakeChunk pops the oldest delivery, validating its header. Returns
// api.ErrNoData when the queue is empty.
func (e *Endpoint) TakeChunk() (api.Chunk, error) {
	c, ok := e.q.Pop()
	if !ok {
		return nil, api.ErrNoData
	}
	if _, _, err := decodeHeader(c.mem); err != nil {
		c.Release()
		return nil, err
	}
	return c, nil
}

// Dropped reports deliveries discarded because the queue was full.
func (e *Endpoint) Dropped() uint64 {
	return e.dropped.Load()
}

// push enqueues one delivery, dropping the oldest on overflow, then fires
// the readiness hook. The recheck after the enqueue closes the race with
// Unsubscribe: whichever of the two observes the other's write drains the
// queue, so no reference can strand in a detached endpoint.
func (e *Endpoint) push(c *chunk) {
	if e.detached.Load() {
		return
	}
	c.Retain()
	for !e.q.Push(c) {
		old, ok := e.q.Pop()
		if ok {
			old.Release()
			e.dropped.Add(1)
		}
	}
	if e.detached.Load() {
		e.drainQueue()
		return
	}
	e.hookMu.Lock()
	hook := e.hook
	e.hookMu.Unlock()
	if hook != nil {
		hook()
	}
}

// drainQueue releases every queued delivery. Safe to call concurrently.
func (e *Endpoint) drainQueue() {
	for {
		c, ok := e.q.Pop()
		if !ok {
			return
		}
		c.Release()
	}
}
