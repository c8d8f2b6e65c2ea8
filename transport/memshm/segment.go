// File: transport/memshm/segment.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Segment is the chunk arena: a fixed count of fixed-size chunks carved out
// of one contiguous mapping, recycled through a lock-free free list. On
// Linux the arena is an anonymous shared mmap; elsewhere it falls back to
// the Go heap (see mmap_linux.go / mmap_stub.go).

package memshm

import (
	"sync/atomic"

	"github.com/momentics/hioload-shm/api"
	"github.com/momentics/hioload-shm/internal/ring"
)

type segment struct {
	arena     []byte
	unmap     func()
	chunkSize int
	chunks    []chunk
	free      *ring.Ring[*chunk]
}

func newSegment(chunkCount, chunkPayload int) (*segment, error) {
	chunkSize := HeaderSize + chunkPayload
	arena, unmap, err := mapArena(chunkCount * chunkSize)
	if err != nil {
		return nil, err
	}
	s := &segment{
		arena:     arena,
		unmap:     unmap,
		chunkSize: chunkSize,
		chunks:    make([]chunk, chunkCount),
		free:      ring.New[*chunk](chunkCount),
	}
	for i := range s.chunks {
		c := &s.chunks[i]
		c.seg = s
		c.mem = arena[i*chunkSize : (i+1)*chunkSize]
		s.free.Push(c)
	}
	return s, nil
}

// loan pops a free chunk with one reference held by the caller.
func (s *segment) loan() (*chunk, error) {
	c, ok := s.free.Pop()
	if !ok {
		return nil, api.ErrResourceExhausted
	}
	c.refs.Store(1)
	return c, nil
}

func (s *segment) freeChunks() int {
	return s.free.Len()
}

func (s *segment) destroy() {
	if s.unmap != nil {
		s.unmap()
	}
	s.arena = nil
}

// chunk is one shared-memory region: header block followed by payload.
// Reference-counted; the last release returns it to the segment free list.
type chunk struct {
	seg  *segment
	mem  []byte
	refs atomic.Int32
}

var _ api.Chunk = (*chunk)(nil)

// Header decodes the header block. A chunk whose head fails validation
// reports a zero header; TakeChunk rejects such chunks before handing them
// to a reader.
func (c *chunk) Header() api.ChunkHeader {
	hdr, _, err := decodeHeader(c.mem)
	if err != nil {
		return api.ChunkHeader{}
	}
	return hdr
}

// Payload returns the written payload bytes.
func (c *chunk) Payload() []byte {
	_, n, err := decodeHeader(c.mem)
	if err != nil {
		return nil
	}
	return c.mem[HeaderSize : HeaderSize+n]
}

// Retain adds a reference.
func (c *chunk) Retain() {
	c.refs.Add(1)
}

// Release drops a reference; the last one recycles the chunk.
func (c *chunk) Release() {
	n := c.refs.Add(-1)
	if n == 0 {
		c.seg.free.Push(c)
	} else if n < 0 {
		panic("memshm: chunk released more times than retained")
	}
}
