// File: entity/index.go
// Package entity provides the reference remote-writer entity index consumed
// by the monitor's receive pipeline.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package entity

import (
	"sync"

	"github.com/google/uuid"

	"github.com/momentics/hioload-shm/api"
)

// NewGUID mints a fresh random writer identity.
func NewGUID() api.GUID {
	return api.GUID(uuid.New())
}

// Index is a thread-safe writer registry. Remote writers resolve through
// LookupWriter; local writer identities are tracked separately so the
// pipeline can tell an expected skip from an unknown identity.
type Index struct {
	mu     sync.RWMutex
	remote map[api.GUID]api.RemoteWriter
	local  map[api.GUID]struct{}
}

var _ api.EntityIndex = (*Index)(nil)

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		remote: make(map[api.GUID]api.RemoteWriter),
		local:  make(map[api.GUID]struct{}),
	}
}

// AddRemoteWriter registers (or updates) a discovered remote writer.
func (ix *Index) AddRemoteWriter(w api.RemoteWriter) {
	ix.mu.Lock()
	ix.remote[w.GUID] = w
	ix.mu.Unlock()
}

// RemoveRemoteWriter drops a remote writer.
func (ix *Index) RemoveRemoteWriter(g api.GUID) {
	ix.mu.Lock()
	delete(ix.remote, g)
	ix.mu.Unlock()
}

// AddLocalWriter records a co-located writer identity.
func (ix *Index) AddLocalWriter(g api.GUID) {
	ix.mu.Lock()
	ix.local[g] = struct{}{}
	ix.mu.Unlock()
}

// RemoveLocalWriter drops a co-located writer identity.
func (ix *Index) RemoveLocalWriter(g api.GUID) {
	ix.mu.Lock()
	delete(ix.local, g)
	ix.mu.Unlock()
}

// LookupWriter resolves a remote writer by identity.
func (ix *Index) LookupWriter(g api.GUID) (api.RemoteWriter, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	w, ok := ix.remote[g]
	return w, ok
}

// IsLocalWriter reports whether g belongs to a co-located writer.
func (ix *Index) IsLocalWriter(g api.GUID) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.local[g]
	return ok
}

// Len returns the remote writer count.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.remote)
}
