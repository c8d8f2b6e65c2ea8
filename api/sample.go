// File: api/sample.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Sample is the middleware-native record built from a taken chunk. It owns
// one chunk reference for its lifetime; the cache takes its own reference
// when it retains the sample past the pipeline iteration.

package api

import "sync/atomic"

// Sample wraps a chunk's payload with the header metadata the history cache
// keys on. Reference-counted; the constructor's caller holds one reference.
type Sample struct {
	Kind      DataKind
	Status    StatusFlags
	KeyHash   uint64
	Timestamp int64

	chunk Chunk
	refs  atomic.Int32
}

// NewSample builds a sample descriptor from a taken chunk. Ownership of the
// caller's chunk reference transfers to the sample.
func NewSample(c Chunk) *Sample {
	hdr := c.Header()
	s := &Sample{
		Kind:      hdr.Kind,
		Status:    hdr.Status,
		KeyHash:   hdr.KeyHash,
		Timestamp: hdr.Timestamp,
		chunk:     c,
	}
	s.refs.Store(1)
	return s
}

// Payload returns the serialized sample bytes. Valid only while at least one
// reference is held.
func (s *Sample) Payload() []byte {
	return s.chunk.Payload()
}

// Writer returns the identity recorded in the chunk header.
func (s *Sample) Writer() GUID {
	return s.chunk.Header().Writer
}

// Retain adds a reference.
func (s *Sample) Retain() {
	s.refs.Add(1)
}

// Release drops a reference; the last release frees the underlying chunk.
func (s *Sample) Release() {
	if s.refs.Add(-1) == 0 {
		s.chunk.Release()
		s.chunk = nil
	}
}
