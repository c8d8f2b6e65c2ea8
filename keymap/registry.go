// File: keymap/registry.go
// Package keymap provides the reference instance-key registry: key hash to
// stable, reference-counted instance handle.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package keymap

import (
	"fmt"
	"sync"

	"github.com/momentics/hioload-shm/api"
)

// Registry maps key hashes to instance entries. Entries are created on
// first resolution and retired when the last reference is released.
type Registry struct {
	mu         sync.Mutex
	entries    map[uint64]*entry
	nextHandle uint64
	max        int
	closed     bool
}

type entry struct {
	handle uint64
	refs   int
}

var _ api.InstanceRegistry = (*Registry)(nil)

// NewRegistry creates a registry holding at most maxInstances live entries;
// maxInstances <= 0 means unlimited.
func NewRegistry(maxInstances int) *Registry {
	return &Registry{
		entries: make(map[uint64]*entry),
		max:     maxInstances,
	}
}

// ResolveInstance resolves-or-creates the entry for s's key hash and
// acquires one reference on it.
func (r *Registry) ResolveInstance(s *api.Sample) (api.InstanceRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, fmt.Errorf("keymap: registry is closed")
	}
	e, ok := r.entries[s.KeyHash]
	if !ok {
		if r.max > 0 && len(r.entries) >= r.max {
			return nil, fmt.Errorf("keymap: instance limit %d reached: %w", r.max, api.ErrResourceExhausted)
		}
		r.nextHandle++
		e = &entry{handle: r.nextHandle}
		r.entries[s.KeyHash] = e
	}
	e.refs++
	return &ref{reg: r, key: s.KeyHash, handle: e.handle}, nil
}

// Len returns the live entry count.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close rejects further resolutions. Outstanding references may still be
// released.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

func (r *Registry) release(key uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(r.entries, key)
	}
}

// ref is one counted reference to an instance entry.
type ref struct {
	reg      *Registry
	key      uint64
	handle   uint64
	released sync.Once
}

// Handle returns the stable instance handle.
func (f *ref) Handle() uint64 { return f.handle }

// Release drops this reference; the last one retires the entry.
func (f *ref) Release() {
	f.released.Do(func() { f.reg.release(f.key) })
}
