// File: api/chunk.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Zero-copy chunk contract shared between the transport layer and the
// shared-memory monitor. A chunk is owned by the transport until the last
// reference is released.

package api

import "encoding/hex"

// GUID is the globally unique identity of a data-producing entity.
type GUID [16]byte

// String renders the GUID as lowercase hex.
func (g GUID) String() string {
	return hex.EncodeToString(g[:])
}

// IsZero reports whether the GUID is the all-zero identity.
func (g GUID) IsZero() bool {
	return g == GUID{}
}

// DataKind tags what a chunk's payload encodes.
type DataKind uint8

const (
	// KindEmpty carries no serialized content (lifecycle-only change).
	KindEmpty DataKind = iota
	// KindKey carries only the sample's key fields.
	KindKey
	// KindData carries a full serialized sample.
	KindData
)

// String returns the symbolic name of the kind.
func (k DataKind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindKey:
		return "key"
	case KindData:
		return "data"
	}
	return "invalid"
}

// StatusFlags carries the instance-lifecycle bits attached to a sample.
type StatusFlags uint32

const (
	// StatusDisposed marks the instance as disposed by its writer.
	StatusDisposed StatusFlags = 1 << iota
	// StatusUnregistered marks the writer as no longer updating the instance.
	StatusUnregistered
)

// ChunkHeader is the metadata block every chunk carries ahead of its payload.
type ChunkHeader struct {
	Writer    GUID
	Kind      DataKind
	Status    StatusFlags
	KeyHash   uint64
	Timestamp int64 // nanoseconds since the Unix epoch, writer clock
}

// Chunk is one shared-memory region loaned to a reader. Implementations are
// reference-counted; Release on the last reference returns the region to the
// transport.
type Chunk interface {
	Header() ChunkHeader
	Payload() []byte
	Retain()
	Release()
}
